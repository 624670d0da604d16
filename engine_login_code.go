package reeutil

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"strings"

	"github.com/MrBl4ck04/ReeUtil-sub000/internal/expiring"
)

// ConfirmLoginCode completes a pending login. A wrong code leaves the
// pending login in place for another try. A right code consumes it in the
// same step that compares it, so two concurrent correct submissions yield
// exactly one token and a stale code never removes a newer pending login.
func (e *Engine) ConfirmLoginCode(ctx context.Context, email, code string) (*LoginResult, error) {
	if !e.ready() {
		return nil, ErrEngineNotReady
	}

	email = normalizeEmail(email)
	code = strings.TrimSpace(code)
	if email == "" || code == "" {
		return nil, fmt.Errorf("%w: email and code are required", ErrValidation)
	}
	subject := auditSubject{email: email}

	if _, err := e.pending.PruneExpired(ctx); err != nil {
		e.logger.WarnContext(ctx, "prune pending logins", "error", err)
	}

	pl, ok, err := e.pending.TakeIf(ctx, email, func(pl pendingLogin) bool {
		return codesEqual(pl.Code, code)
	})
	if ok {
		subject.principalID, subject.kind = pl.PrincipalID, pl.Kind
	}
	switch {
	case errors.Is(err, expiring.ErrMismatch):
		return nil, e.loginCodeFailed(ctx, subject, ErrCodeMismatch)
	case err != nil:
		return nil, e.storeFailure(ctx, "consume pending login", err)
	case !ok:
		return nil, e.loginCodeFailed(ctx, subject, ErrSessionNotFound)
	}

	p, err := e.findByID(ctx, pl.Kind, pl.PrincipalID)
	if errors.Is(err, ErrPrincipalNotFound) {
		return nil, e.loginCodeFailed(ctx, subject, ErrPrincipalNotFound)
	}
	if err != nil {
		return nil, e.storeFailure(ctx, "reload principal", err)
	}

	res, err := e.issue(ctx, p)
	if err != nil {
		return nil, err
	}
	e.metricInc(MetricLoginCodeSuccess)
	e.metricInc(MetricLoginSuccess)
	e.emitAudit(ctx, auditEventLoginCodeSuccess, true, subjectOf(p), nil, nil)
	return res, nil
}

func (e *Engine) loginCodeFailed(ctx context.Context, subject auditSubject, err error) error {
	e.metricInc(MetricLoginCodeFailure)
	e.emitAudit(ctx, auditEventLoginCodeFailure, false, subject, err, nil)
	return err
}

func codesEqual(stored, provided string) bool {
	return subtle.ConstantTimeCompare([]byte(stored), []byte(provided)) == 1
}
