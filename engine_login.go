package reeutil

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/MrBl4ck04/ReeUtil-sub000/internal"
	"github.com/MrBl4ck04/ReeUtil-sub000/internal/rate"
)

// Login runs the first login step: CAPTCHA, employee lookup, user lookup,
// lockout, password age, then either an immediate token (staff) or an
// emailed second factor (users).
//
// The CAPTCHA is consumed even when a later step fails.
func (e *Engine) Login(ctx context.Context, req LoginRequest) (*LoginResult, error) {
	if !e.ready() {
		return nil, ErrEngineNotReady
	}

	email := normalizeEmail(req.Email)
	if email == "" || req.Password == "" || strings.TrimSpace(req.CaptchaID) == "" || strings.TrimSpace(req.CaptchaText) == "" {
		e.metricInc(MetricLoginFailure)
		return nil, fmt.Errorf("%w: email, password and captcha are required", ErrValidation)
	}

	ip := clientIPFromContext(ctx)
	if err := e.limiter.CheckLogin(ctx, ip); err != nil {
		if errors.Is(err, rate.ErrRateLimited) {
			e.metricInc(MetricLoginRateLimited)
			e.emitAudit(ctx, auditEventLoginRateLimited, false, auditSubject{email: email}, ErrRateLimited, nil)
			return nil, ErrRateLimited
		}
		// The throttle fails open; lockout still applies.
		e.logger.WarnContext(ctx, "login throttle unavailable", "error", err)
	}

	if !e.VerifyCaptcha(ctx, req.CaptchaID, req.CaptchaText) {
		return nil, e.loginFailed(ctx, auditSubject{email: email}, "captcha", ErrCaptchaInvalid)
	}

	emp, err := e.store.FindEmployeeByEmail(ctx, email)
	switch {
	case err == nil:
		return e.loginPrincipal(ctx, employeePrincipal(emp), req.Password)
	case !errors.Is(err, ErrPrincipalNotFound):
		return nil, e.storeFailure(ctx, "find employee", err)
	}

	user, err := e.store.FindUserByEmail(ctx, email)
	if errors.Is(err, ErrPrincipalNotFound) {
		if dv, ok := e.verifier.(dummyVerifier); ok {
			dv.VerifyDummy(req.Password)
		}
		return nil, e.loginFailed(ctx, auditSubject{email: email}, "unknown_email", ErrInvalidCredentials)
	}
	if err != nil {
		return nil, e.storeFailure(ctx, "find user", err)
	}

	return e.loginPrincipal(ctx, userPrincipal(user), req.Password)
}

func (e *Engine) loginPrincipal(ctx context.Context, p *Principal, password string) (*LoginResult, error) {
	subject := subjectOf(p)

	if err := e.checkCredentials(ctx, p, password); err != nil {
		return nil, e.loginFailed(ctx, subject, "credentials", err)
	}

	if err := e.limiter.ResetLogin(ctx, clientIPFromContext(ctx)); err != nil {
		e.logger.WarnContext(ctx, "reset login throttle", "error", err)
	}

	if p.Kind == KindUser && e.passwordExpired(p) {
		e.metricInc(MetricPasswordExpired)
		return nil, e.loginFailed(ctx, subject, "password_age", ErrPasswordExpired)
	}

	if p.Kind == KindUser || e.config.Security.RequireStaffSecondFactor {
		return e.startSecondFactor(ctx, p)
	}

	res, err := e.issue(ctx, p)
	if err != nil {
		return nil, err
	}
	e.metricInc(MetricLoginSuccess)
	e.emitAudit(ctx, auditEventLoginSuccess, true, subject, nil, nil)
	return res, nil
}

// checkCredentials verifies the password and drives the lockout counter.
// Users always go through the counter. Employees only do when
// Security.EnforceStaffLockout is set; otherwise a wrong password is a
// plain failure and a blocked flag is only reported after a match.
func (e *Engine) checkCredentials(ctx context.Context, p *Principal, password string) error {
	state := p.lockout()
	counted := p.Kind == KindUser || e.config.Security.EnforceStaffLockout

	if counted && state.IsBlocked {
		return blockedError(state.BlockedAt)
	}

	match := e.passwordMatches(ctx, p, password)

	if !counted {
		if !match {
			return ErrInvalidCredentials
		}
		if state.IsBlocked {
			return blockedError(state.BlockedAt)
		}
		return nil
	}

	if match {
		if state.LoginAttempts > 0 {
			state.LoginAttempts = 0
			if err := e.saveLockout(ctx, p, state); err != nil {
				return err
			}
		}
		return nil
	}

	limit := e.config.Lockout.MaxAttempts
	state.LoginAttempts++
	if state.LoginAttempts >= limit {
		at := e.now().UTC()
		state.IsBlocked = true
		state.BlockedAt = &at
		if err := e.saveLockout(ctx, p, state); err != nil {
			return err
		}
		e.metricInc(MetricAccountBlocked)
		e.emitAudit(ctx, auditEventAccountBlocked, false, subjectOf(p), ErrAccountBlocked, nil)
		return blockedError(&at)
	}
	if err := e.saveLockout(ctx, p, state); err != nil {
		return err
	}
	return attemptsError(limit - state.LoginAttempts)
}

func (e *Engine) passwordMatches(ctx context.Context, p *Principal, password string) bool {
	ok, err := e.verifier.Verify(password, p.passwordHash())
	if err != nil {
		// Malformed digests and out-of-range inputs count as a mismatch.
		e.logger.WarnContext(ctx, "password verification error", "principal_id", p.ID(), "error", err)
		return false
	}
	return ok
}

func (e *Engine) saveLockout(ctx context.Context, p *Principal, state LockoutState) error {
	if err := e.store.SaveLockout(ctx, p.Kind, p.ID(), state); err != nil {
		return e.storeFailure(ctx, "save lockout", err)
	}
	p.setLockout(state)
	return nil
}

func (e *Engine) passwordExpired(p *Principal) bool {
	maxAge := e.config.Password.MaxAge
	if maxAge <= 0 {
		return false
	}
	since := p.passwordSetAt()
	if since.IsZero() {
		return false
	}
	return e.now().Sub(since) > maxAge
}

// startSecondFactor stores a pending login keyed by email and mails its code.
// A later login for the same email replaces the pending one.
func (e *Engine) startSecondFactor(ctx context.Context, p *Principal) (*LoginResult, error) {
	email := normalizeEmail(p.Email())
	subject := subjectOf(p)

	code, err := internal.NewCode()
	if err != nil {
		return nil, err
	}
	if err := e.pending.Put(ctx, email, pendingLogin{PrincipalID: p.ID(), Code: code, Kind: p.Kind}, e.config.Codes.PendingLoginTTL); err != nil {
		return nil, e.storeFailure(ctx, "store pending login", err)
	}

	if err := e.mailer.SendCode(ctx, email, code, PurposeLogin); err != nil {
		e.rollback(ctx, "discard pending login", func(ctx context.Context) error {
			return e.pending.Delete(ctx, email)
		})
		e.logger.ErrorContext(ctx, "login code delivery failed", "principal_id", p.ID(), "error", err)
		e.metricInc(MetricCodeDeliveryFailed)
		e.emitAudit(ctx, auditEventCodeDeliveryFailed, false, subject, ErrDeliveryFailed, func() map[string]string {
			return map[string]string{"purpose": string(PurposeLogin)}
		})
		return nil, fmt.Errorf("%w: %v", ErrDeliveryFailed, err)
	}

	e.metricInc(MetricLoginCodeSent)
	e.emitAudit(ctx, auditEventLoginCodeSent, true, subject, nil, nil)
	return &LoginResult{RequiresVerification: true, Email: email}, nil
}

// loginFailed records a first-step failure. Credential and CAPTCHA failures
// also count against the caller's IP.
func (e *Engine) loginFailed(ctx context.Context, subject auditSubject, reason string, err error) error {
	if errors.Is(err, ErrStoreUnavailable) {
		return err
	}

	if errors.Is(err, ErrInvalidCredentials) || errors.Is(err, ErrCaptchaInvalid) || errors.Is(err, ErrAccountBlocked) {
		if incErr := e.limiter.IncrementLogin(ctx, clientIPFromContext(ctx)); incErr != nil {
			e.logger.WarnContext(ctx, "count failed login", "error", incErr)
		}
	}

	e.metricInc(MetricLoginFailure)
	e.emitAudit(ctx, auditEventLoginFailure, false, subject, err, func() map[string]string {
		return map[string]string{"reason": reason}
	})
	return err
}
