package reeutil

import (
	"testing"
	"time"
)

func TestAuditEventsForFailedAndCompletedLogin(t *testing.T) {
	sink := NewChannelSink(64)
	cfg := testConfig()
	cfg.Audit.Enabled = true
	env := buildTestEnv(t, New().WithConfig(cfg).WithAuditSink(sink))

	_, _ = env.login(t, "ana@reeutil.test", badPassword)

	deadline := time.After(2 * time.Second)
	var got []AuditEvent
	for len(got) < 2 {
		select {
		case ev := <-sink.Events():
			got = append(got, ev)
		case <-deadline:
			t.Fatalf("timed out, got %d events", len(got))
		}
	}

	if got[0].EventType != auditEventCaptchaIssued || !got[0].Success {
		t.Fatalf("unexpected first event %+v", got[0])
	}
	failure := got[1]
	if failure.EventType != auditEventLoginFailure || failure.Success {
		t.Fatalf("unexpected second event %+v", failure)
	}
	if failure.PrincipalID != "u1" || failure.Kind != string(KindUser) || failure.Error != "invalid_credentials" {
		t.Fatalf("unexpected failure event %+v", failure)
	}
	if failure.Metadata["reason"] != "credentials" {
		t.Fatalf("unexpected metadata %v", failure.Metadata)
	}
}

func TestAuditDisabledByDefault(t *testing.T) {
	env := newTestEnv(t, testConfig())
	if env.engine.audit != nil {
		t.Fatal("expected no dispatcher when audit is disabled")
	}
	if env.engine.AuditDropped() != 0 {
		t.Fatal("expected zero drops")
	}
}
