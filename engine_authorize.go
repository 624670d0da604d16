package reeutil

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"
)

// Authorize resolves a bearer token to a live principal. The token must
// verify and its subject must still exist as an employee or a user; the
// employee lookup wins when both match.
func (e *Engine) Authorize(ctx context.Context, token string) (*Principal, error) {
	if !e.ready() {
		return nil, ErrEngineNotReady
	}

	start := time.Now()
	defer func() {
		e.metrics.Observe(MetricAuthorizeLatency, time.Since(start))
	}()

	token = strings.TrimSpace(token)
	if token == "" {
		return nil, e.authorizeFailed(ctx, auditSubject{}, fmt.Errorf("%w: missing token", ErrUnauthorized))
	}

	claims, err := e.tokens.Parse(token)
	if err != nil {
		return nil, e.authorizeFailed(ctx, auditSubject{}, fmt.Errorf("%w: %v", ErrUnauthorized, err))
	}

	p, err := e.resolve(ctx, claims.PrincipalID())
	if errors.Is(err, ErrPrincipalNotFound) {
		return nil, e.authorizeFailed(ctx, auditSubject{principalID: claims.PrincipalID()},
			fmt.Errorf("%w: principal no longer exists", ErrUnauthorized))
	}
	if err != nil {
		return nil, e.storeFailure(ctx, "resolve principal", err)
	}

	e.metricInc(MetricAuthorizeSuccess)
	return p, nil
}

// Allowed reports whether p may use a route restricted to roles. Employees
// pass any gate that admits "admin"; everyone else needs their own role in
// the set.
func (e *Engine) Allowed(p *Principal, roles ...string) bool {
	if p == nil {
		return false
	}
	if p.Kind == KindEmployee && slices.Contains(roles, roleAdmin) {
		return true
	}
	if slices.Contains(roles, p.Role()) {
		return true
	}
	e.metricInc(MetricAuthorizeForbidden)
	return false
}

func (e *Engine) authorizeFailed(ctx context.Context, subject auditSubject, err error) error {
	e.metricInc(MetricAuthorizeFailure)
	e.emitAudit(ctx, auditEventAuthorizeFailure, false, subject, err, nil)
	return err
}
