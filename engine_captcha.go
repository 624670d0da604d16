package reeutil

import (
	"context"
	"strings"

	"github.com/MrBl4ck04/ReeUtil-sub000/captcha"
	"github.com/google/uuid"
)

// IssueCaptcha creates a challenge, stores its answer for Captcha.TTL, and
// returns the id with the rendered image.
func (e *Engine) IssueCaptcha(ctx context.Context) (*CaptchaChallenge, error) {
	if !e.ready() {
		return nil, ErrEngineNotReady
	}

	text, err := captcha.NewText()
	if err != nil {
		return nil, err
	}
	png, err := captcha.Render(text)
	if err != nil {
		return nil, err
	}

	id := uuid.NewString()
	ttl := e.config.Captcha.TTL
	if err := e.captchas.Put(ctx, id, text, ttl); err != nil {
		return nil, e.storeFailure(ctx, "store captcha", err)
	}

	e.metricInc(MetricCaptchaIssued)
	e.emitAudit(ctx, auditEventCaptchaIssued, true, auditSubject{}, nil, nil)

	return &CaptchaChallenge{
		ID:        id,
		Image:     captcha.DataURI(png),
		ExpiresAt: e.now().Add(ttl).UTC(),
	}, nil
}

// VerifyCaptcha consumes the challenge id whatever the outcome and reports
// whether text matches its answer, ignoring case and surrounding spaces.
// Unknown, expired, and already used ids fail.
func (e *Engine) VerifyCaptcha(ctx context.Context, id, text string) bool {
	if !e.ready() {
		return false
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return false
	}

	expected, ok, err := e.captchas.Take(ctx, id)
	if err != nil {
		e.logger.WarnContext(ctx, "captcha lookup failed", "error", err)
		return false
	}
	if !ok || !captcha.Match(expected, text) {
		e.metricInc(MetricCaptchaRejected)
		return false
	}
	return true
}
