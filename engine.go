package reeutil

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/MrBl4ck04/ReeUtil-sub000/internal/audit"
	"github.com/MrBl4ck04/ReeUtil-sub000/internal/expiring"
	"github.com/MrBl4ck04/ReeUtil-sub000/internal/rate"
	"github.com/MrBl4ck04/ReeUtil-sub000/jwt"
)

// Engine runs the login pipeline and resolves session tokens.
//
// Engine is safe for concurrent use once built.
type Engine struct {
	config   Config
	store    PrincipalStore
	mailer   Mailer
	verifier PasswordVerifier
	tokens   *jwt.Manager

	captchas expiring.Store[string]
	codes    expiring.Store[string]
	pending  expiring.Store[pendingLogin]
	limiter  *rate.Limiter

	audit   *audit.Dispatcher
	metrics *Metrics
	logger  *slog.Logger
	now     func() time.Time
}

// Close flushes and stops the audit dispatcher.
func (e *Engine) Close() {
	if e == nil {
		return
	}
	if e.audit != nil {
		e.audit.Close()
	}
}

// AuditDropped returns how many audit events were discarded on a full buffer.
func (e *Engine) AuditDropped() uint64 {
	if e == nil || e.audit == nil {
		return 0
	}
	return e.audit.Dropped()
}

// MetricsSnapshot copies the engine counters.
func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	if e == nil || e.metrics == nil {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}
	return e.metrics.Snapshot()
}

// TokenTTL is the lifetime of issued session tokens.
func (e *Engine) TokenTTL() time.Duration {
	return e.config.JWT.TTL
}

func (e *Engine) ready() bool {
	return e != nil && e.store != nil && e.tokens != nil && e.pending != nil
}

// issue signs a session token for p and builds the terminal login result.
func (e *Engine) issue(ctx context.Context, p *Principal) (*LoginResult, error) {
	token, exp, err := e.tokens.CreateToken(p.ID())
	if err != nil {
		e.logger.ErrorContext(ctx, "sign session token", "principal_id", p.ID(), "error", err)
		return nil, fmt.Errorf("sign session token: %w", err)
	}
	e.metricInc(MetricTokenIssued)

	view := p.View()
	return &LoginResult{
		Token:     token,
		ExpiresAt: &exp,
		Principal: &view,
	}, nil
}

// findByID re-fetches a principal of a known kind.
func (e *Engine) findByID(ctx context.Context, kind Kind, id string) (*Principal, error) {
	if kind == KindEmployee {
		emp, err := e.store.FindEmployeeByID(ctx, id)
		if err != nil {
			return nil, err
		}
		return employeePrincipal(emp), nil
	}
	u, err := e.store.FindUserByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return userPrincipal(u), nil
}

// resolve looks an id up as an employee first, then as a user.
func (e *Engine) resolve(ctx context.Context, id string) (*Principal, error) {
	p, err := e.findByID(ctx, KindEmployee, id)
	if err == nil || !errors.Is(err, ErrPrincipalNotFound) {
		return p, err
	}
	return e.findByID(ctx, KindUser, id)
}

func (e *Engine) storeFailure(ctx context.Context, op string, err error) error {
	e.logger.ErrorContext(ctx, "backing store failure", "op", op, "error", err)
	return fmt.Errorf("%w: %s: %v", ErrStoreUnavailable, op, err)
}

const rollbackTimeout = 2 * time.Second

// rollback runs undo on a context detached from the request, which may
// already be cancelled by the failure being undone.
func (e *Engine) rollback(ctx context.Context, op string, undo func(context.Context) error) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), rollbackTimeout)
	defer cancel()
	if err := undo(ctx); err != nil {
		e.logger.WarnContext(ctx, op, "error", err)
	}
}
