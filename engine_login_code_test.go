package reeutil

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func startUserLogin(t *testing.T, env *testEnv) sentCode {
	t.Helper()
	res, err := env.login(t, "ana@reeutil.test", goodPassword)
	if err != nil || !res.RequiresVerification {
		t.Fatalf("expected pending login, got %+v, %v", res, err)
	}
	return env.mailer.last(t, PurposeLogin)
}

func TestConfirmLoginCodeHappyPath(t *testing.T) {
	env := newTestEnv(t, testConfig())
	ctx := context.Background()
	sent := startUserLogin(t, env)

	if len(sent.code) != 6 || sent.code[0] == '0' {
		t.Fatalf("expected six digit code, got %q", sent.code)
	}

	res, err := env.engine.ConfirmLoginCode(ctx, "Ana@reeutil.test", sent.code)
	if err != nil {
		t.Fatalf("ConfirmLoginCode: %v", err)
	}
	if res.Token == "" || res.Principal == nil || res.Principal.ID != "u1" || res.Principal.Kind != KindUser {
		t.Fatalf("unexpected result %+v", res)
	}
	if res.Principal.LoginAttempts == nil || *res.Principal.LoginAttempts != 0 || res.Principal.IsStaff {
		t.Fatalf("unexpected user view %+v", res.Principal)
	}

	p, err := env.engine.Authorize(ctx, res.Token)
	if err != nil || p.ID() != "u1" {
		t.Fatalf("Authorize: %v", err)
	}

	if _, err := env.engine.ConfirmLoginCode(ctx, "ana@reeutil.test", sent.code); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expected single use, got %v", err)
	}
}

func TestConfirmLoginCodeMismatchKeepsPending(t *testing.T) {
	env := newTestEnv(t, testConfig())
	ctx := context.Background()
	sent := startUserLogin(t, env)

	wrong := "000000"
	if sent.code == wrong {
		wrong = "111111"
	}
	if _, err := env.engine.ConfirmLoginCode(ctx, sent.email, wrong); !errors.Is(err, ErrCodeMismatch) {
		t.Fatalf("expected ErrCodeMismatch, got %v", err)
	}
	if _, err := env.engine.ConfirmLoginCode(ctx, sent.email, sent.code); err != nil {
		t.Fatalf("expected retry with the right code to pass: %v", err)
	}
}

func TestConfirmLoginCodeExpired(t *testing.T) {
	env := newTestEnv(t, testConfig())
	sent := startUserLogin(t, env)

	env.clock.Advance(10 * time.Minute)
	if _, err := env.engine.ConfirmLoginCode(context.Background(), sent.email, sent.code); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}
}

func TestConfirmLoginCodeLatestLoginWins(t *testing.T) {
	env := newTestEnv(t, testConfig())
	ctx := context.Background()

	first := startUserLogin(t, env)
	second := startUserLogin(t, env)
	if first.code != second.code {
		if _, err := env.engine.ConfirmLoginCode(ctx, first.email, first.code); !errors.Is(err, ErrCodeMismatch) {
			t.Fatalf("expected superseded code to fail, got %v", err)
		}
	}
	if _, err := env.engine.ConfirmLoginCode(ctx, second.email, second.code); err != nil {
		t.Fatalf("expected latest code to pass: %v", err)
	}
}

func TestConfirmLoginCodePrincipalRemoved(t *testing.T) {
	env := newTestEnv(t, testConfig())
	sent := startUserLogin(t, env)

	env.store.mu.Lock()
	delete(env.store.users, "u1")
	env.store.mu.Unlock()

	_, err := env.engine.ConfirmLoginCode(context.Background(), sent.email, sent.code)
	if !errors.Is(err, ErrPrincipalNotFound) {
		t.Fatalf("expected ErrPrincipalNotFound, got %v", err)
	}
	if f := Describe(err); f.Code != CodeNotFound || f.Status != 404 {
		t.Fatalf("unexpected failure %+v", f)
	}
}

func TestConfirmLoginCodeValidation(t *testing.T) {
	env := newTestEnv(t, testConfig())
	if _, err := env.engine.ConfirmLoginCode(context.Background(), "", "123456"); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
}

func TestConfirmLoginCodeConcurrentSingleToken(t *testing.T) {
	env := newTestEnv(t, testConfig())
	sent := startUserLogin(t, env)

	var wins atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := env.engine.ConfirmLoginCode(context.Background(), sent.email, sent.code); err == nil {
				wins.Add(1)
			}
		}()
	}
	wg.Wait()

	if wins.Load() != 1 {
		t.Fatalf("expected exactly one token, got %d", wins.Load())
	}
}

func TestConfirmLoginCodeRejectsAnotherEmailsCode(t *testing.T) {
	env := newTestEnv(t, testConfig())
	ctx := context.Background()
	env.store.addUser(User{
		ID:                "u2",
		FirstName:         "Bea",
		LastName:          "Soto",
		Email:             "bea@reeutil.test",
		Role:              "user",
		PasswordHash:      hashPassword(t, goodPassword),
		PasswordChangedAt: env.clock.Now().Add(-24 * time.Hour),
	})

	ana := startUserLogin(t, env)
	if _, err := env.login(t, "bea@reeutil.test", goodPassword); err != nil {
		t.Fatalf("login bea: %v", err)
	}
	bea := env.mailer.last(t, PurposeLogin)
	if bea.code == ana.code {
		t.Skip("both logins drew the same code")
	}

	if _, err := env.engine.ConfirmLoginCode(ctx, bea.email, ana.code); !errors.Is(err, ErrCodeMismatch) {
		t.Fatalf("expected ErrCodeMismatch, got %v", err)
	}

	res, err := env.engine.ConfirmLoginCode(ctx, bea.email, bea.code)
	if err != nil || res.Principal.ID != "u2" {
		t.Fatalf("expected bea's pending login intact: %+v, %v", res, err)
	}
	if _, err := env.engine.ConfirmLoginCode(ctx, ana.email, ana.code); err != nil {
		t.Fatalf("expected ana's pending login intact: %v", err)
	}
}
