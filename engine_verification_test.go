package reeutil

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestVerificationCodeRoundTrip(t *testing.T) {
	env := newTestEnv(t, testConfig())
	ctx := context.Background()

	if err := env.engine.SendVerificationCode(ctx, " New@Reeutil.test"); err != nil {
		t.Fatalf("SendVerificationCode: %v", err)
	}
	sent := env.mailer.last(t, PurposeVerification)
	if sent.email != "new@reeutil.test" || len(sent.code) != 6 {
		t.Fatalf("unexpected delivery %+v", sent)
	}

	if err := env.engine.VerifyCode(ctx, sent.email, sent.code); err != nil {
		t.Fatalf("VerifyCode: %v", err)
	}
	if err := env.engine.VerifyCode(ctx, sent.email, sent.code); !errors.Is(err, ErrCodeExpired) {
		t.Fatalf("expected consumed code, got %v", err)
	}
}

func TestVerificationCodeOverwriteAndExpiry(t *testing.T) {
	env := newTestEnv(t, testConfig())
	ctx := context.Background()

	_ = env.engine.SendVerificationCode(ctx, "new@reeutil.test")
	first := env.mailer.last(t, PurposeVerification)
	_ = env.engine.SendVerificationCode(ctx, "new@reeutil.test")
	second := env.mailer.last(t, PurposeVerification)

	if first.code != second.code {
		if err := env.engine.VerifyCode(ctx, first.email, first.code); !errors.Is(err, ErrCodeMismatch) {
			t.Fatalf("expected replaced code to fail, got %v", err)
		}
	}

	env.clock.Advance(10 * time.Minute)
	if err := env.engine.VerifyCode(ctx, second.email, second.code); !errors.Is(err, ErrCodeExpired) {
		t.Fatalf("expected ErrCodeExpired, got %v", err)
	}
}

func TestVerificationCodeRejectsMalformedEmail(t *testing.T) {
	env := newTestEnv(t, testConfig())
	for _, email := range []string{"", "not-an-email"} {
		if err := env.engine.SendVerificationCode(context.Background(), email); !errors.Is(err, ErrValidation) {
			t.Fatalf("%q: expected ErrValidation, got %v", email, err)
		}
	}
	if env.mailer.count() != 0 {
		t.Fatal("nothing may be sent for invalid input")
	}
}

func TestVerificationCodeDeliveryFailure(t *testing.T) {
	env := newTestEnv(t, testConfig())
	env.mailer.err = errors.New("queue closed")
	ctx := context.Background()

	if err := env.engine.SendVerificationCode(ctx, "new@reeutil.test"); !errors.Is(err, ErrDeliveryFailed) {
		t.Fatalf("expected ErrDeliveryFailed, got %v", err)
	}
	if _, ok, _ := env.engine.codes.Get(ctx, "new@reeutil.test"); ok {
		t.Fatal("expected code removed after delivery failure")
	}
}

func TestVerificationAndLoginCodesAreIndependent(t *testing.T) {
	env := newTestEnv(t, testConfig())
	ctx := context.Background()

	if err := env.engine.SendVerificationCode(ctx, "ana@reeutil.test"); err != nil {
		t.Fatalf("SendVerificationCode: %v", err)
	}
	verification := env.mailer.last(t, PurposeVerification)
	login := startUserLogin(t, env)

	if verification.code != login.code {
		if _, err := env.engine.ConfirmLoginCode(ctx, login.email, verification.code); !errors.Is(err, ErrCodeMismatch) {
			t.Fatalf("verification code must not complete a login, got %v", err)
		}
	}
	if _, err := env.engine.ConfirmLoginCode(ctx, login.email, login.code); err != nil {
		t.Fatalf("ConfirmLoginCode: %v", err)
	}
	if err := env.engine.VerifyCode(ctx, verification.email, verification.code); err != nil {
		t.Fatalf("completing a login must not consume the verification code: %v", err)
	}
}
