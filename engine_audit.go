package reeutil

import (
	"context"
	"strings"
)

const (
	auditEventCaptchaIssued         = "captcha_issued"
	auditEventLoginSuccess          = "login_success"
	auditEventLoginFailure          = "login_failure"
	auditEventLoginRateLimited      = "login_rate_limited"
	auditEventAccountBlocked        = "account_blocked"
	auditEventLoginCodeSent         = "login_code_sent"
	auditEventLoginCodeSuccess      = "login_code_success"
	auditEventLoginCodeFailure      = "login_code_failure"
	auditEventCodeDeliveryFailed    = "code_delivery_failed"
	auditEventVerificationCodeSent  = "verification_code_sent"
	auditEventVerificationCodeCheck = "verification_code_check"
	auditEventAuthorizeFailure      = "authorize_failure"
)

// auditSubject identifies who an event is about. Either field may be empty.
type auditSubject struct {
	principalID string
	kind        Kind
	email       string
}

func subjectOf(p *Principal) auditSubject {
	if p == nil {
		return auditSubject{}
	}
	return auditSubject{principalID: p.ID(), kind: p.Kind, email: p.Email()}
}

func (e *Engine) emitAudit(
	ctx context.Context,
	eventType string,
	success bool,
	subject auditSubject,
	err error,
	metadataBuilder func() map[string]string,
) {
	if e == nil || e.audit == nil {
		return
	}

	var metadata map[string]string
	if metadataBuilder != nil {
		metadata = metadataBuilder()
	}

	event := AuditEvent{
		Timestamp:   e.now().UTC(),
		EventType:   eventType,
		PrincipalID: subject.principalID,
		Kind:        string(subject.kind),
		Email:       subject.email,
		IP:          clientIPFromContext(ctx),
		Success:     success,
		Metadata:    metadata,
	}
	if code := auditErrorCode(err); code != "" {
		event.Error = code
	}

	e.audit.Emit(ctx, event)
}

// auditErrorCode reuses the client-facing taxonomy in lower case.
func auditErrorCode(err error) string {
	if err == nil {
		return ""
	}
	return strings.ToLower(Describe(err).Code)
}
