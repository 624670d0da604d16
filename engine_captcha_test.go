package reeutil

import (
	"context"
	"strings"
	"testing"
	"time"
)

func TestIssueCaptchaReturnsImageAndStoresAnswer(t *testing.T) {
	env := newTestEnv(t, testConfig())
	ctx := context.Background()

	ch, err := env.engine.IssueCaptcha(ctx)
	if err != nil {
		t.Fatalf("IssueCaptcha: %v", err)
	}
	if ch.ID == "" || !strings.HasPrefix(ch.Image, "data:image/png;base64,") {
		t.Fatalf("unexpected challenge %+v", ch)
	}
	if !ch.ExpiresAt.Equal(env.clock.Now().Add(2 * time.Minute)) {
		t.Fatalf("unexpected expiry %v", ch.ExpiresAt)
	}

	text, ok, _ := env.engine.captchas.Get(ctx, ch.ID)
	if !ok || len(text) != 5 {
		t.Fatalf("expected 5 character answer, got %q", text)
	}
}

func TestVerifyCaptchaIsCaseInsensitiveAndSingleUse(t *testing.T) {
	env := newTestEnv(t, testConfig())
	ctx := context.Background()

	id, text := solveCaptcha(t, env.engine)
	if !env.engine.VerifyCaptcha(ctx, id, "  "+strings.ToLower(text)+" ") {
		t.Fatal("expected lower-case answer with spaces to pass")
	}
	if env.engine.VerifyCaptcha(ctx, id, text) {
		t.Fatal("expected replay to fail")
	}
}

func TestVerifyCaptchaWrongAnswerConsumesChallenge(t *testing.T) {
	env := newTestEnv(t, testConfig())
	ctx := context.Background()

	id, text := solveCaptcha(t, env.engine)
	if env.engine.VerifyCaptcha(ctx, id, text[:4]) {
		t.Fatal("expected truncated answer to fail")
	}
	if env.engine.VerifyCaptcha(ctx, id, text) {
		t.Fatal("expected challenge to be gone after a wrong answer")
	}
}

func TestVerifyCaptchaExpired(t *testing.T) {
	env := newTestEnv(t, testConfig())

	id, text := solveCaptcha(t, env.engine)
	env.clock.Advance(2 * time.Minute)
	if env.engine.VerifyCaptcha(context.Background(), id, text) {
		t.Fatal("expected expired challenge to fail")
	}
}

func TestVerifyCaptchaUnknownOrEmpty(t *testing.T) {
	env := newTestEnv(t, testConfig())
	ctx := context.Background()

	if env.engine.VerifyCaptcha(ctx, "missing", "ABCDE") {
		t.Fatal("expected unknown id to fail")
	}
	id, _ := solveCaptcha(t, env.engine)
	if env.engine.VerifyCaptcha(ctx, id, "") {
		t.Fatal("expected empty answer to fail")
	}
}
