package reeutil

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"

	"github.com/MrBl4ck04/ReeUtil-sub000/internal"
	"github.com/MrBl4ck04/ReeUtil-sub000/internal/expiring"
)

// SendVerificationCode mails a fresh six-digit code to email. A new request
// for the same address replaces the previous code. This store is separate
// from pending logins; neither consumes the other.
func (e *Engine) SendVerificationCode(ctx context.Context, email string) error {
	if !e.ready() {
		return ErrEngineNotReady
	}

	email = normalizeEmail(email)
	if _, err := mail.ParseAddress(email); err != nil {
		return fmt.Errorf("%w: email is malformed", ErrValidation)
	}
	subject := auditSubject{email: email}

	if _, err := e.codes.PruneExpired(ctx); err != nil {
		e.logger.WarnContext(ctx, "prune verification codes", "error", err)
	}

	code, err := internal.NewCode()
	if err != nil {
		return err
	}
	if err := e.codes.Put(ctx, email, code, e.config.Codes.VerificationTTL); err != nil {
		return e.storeFailure(ctx, "store verification code", err)
	}

	if err := e.mailer.SendCode(ctx, email, code, PurposeVerification); err != nil {
		e.rollback(ctx, "discard verification code", func(ctx context.Context) error {
			return e.codes.Delete(ctx, email)
		})
		e.logger.ErrorContext(ctx, "verification code delivery failed", "error", err)
		e.metricInc(MetricCodeDeliveryFailed)
		e.emitAudit(ctx, auditEventCodeDeliveryFailed, false, subject, ErrDeliveryFailed, func() map[string]string {
			return map[string]string{"purpose": string(PurposeVerification)}
		})
		return fmt.Errorf("%w: %v", ErrDeliveryFailed, err)
	}

	e.metricInc(MetricVerificationCodeSent)
	e.emitAudit(ctx, auditEventVerificationCodeSent, true, subject, nil, nil)
	return nil
}

// VerifyCode checks a standalone verification code. A match consumes it;
// a mismatch keeps it for another try.
func (e *Engine) VerifyCode(ctx context.Context, email, code string) error {
	if !e.ready() {
		return ErrEngineNotReady
	}

	email = normalizeEmail(email)
	code = strings.TrimSpace(code)
	if email == "" || code == "" {
		return fmt.Errorf("%w: email and code are required", ErrValidation)
	}
	subject := auditSubject{email: email}

	_, ok, err := e.codes.TakeIf(ctx, email, func(stored string) bool {
		return codesEqual(stored, code)
	})
	switch {
	case errors.Is(err, expiring.ErrMismatch):
		return e.verificationFailed(ctx, subject, ErrCodeMismatch)
	case err != nil:
		return e.storeFailure(ctx, "consume verification code", err)
	case !ok:
		return e.verificationFailed(ctx, subject, ErrCodeExpired)
	}

	e.metricInc(MetricVerificationCodeSuccess)
	e.emitAudit(ctx, auditEventVerificationCodeCheck, true, subject, nil, nil)
	return nil
}

func (e *Engine) verificationFailed(ctx context.Context, subject auditSubject, err error) error {
	e.metricInc(MetricVerificationCodeFailure)
	e.emitAudit(ctx, auditEventVerificationCodeCheck, false, subject, err, nil)
	return err
}
