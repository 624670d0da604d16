package reeutil

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestLoginRequiresAllInputs(t *testing.T) {
	env := newTestEnv(t, testConfig())
	ctx := context.Background()
	id, text := solveCaptcha(t, env.engine)

	cases := []LoginRequest{
		{Password: goodPassword, CaptchaID: id, CaptchaText: text},
		{Email: "ana@reeutil.test", CaptchaID: id, CaptchaText: text},
		{Email: "ana@reeutil.test", Password: goodPassword, CaptchaText: text},
		{Email: "ana@reeutil.test", Password: goodPassword, CaptchaID: id, CaptchaText: "   "},
	}
	for i, req := range cases {
		if _, err := env.engine.Login(ctx, req); !errors.Is(err, ErrValidation) {
			t.Fatalf("case %d: expected ErrValidation, got %v", i, err)
		}
	}

	// Validation failures must not consume the challenge.
	if !env.engine.VerifyCaptcha(ctx, id, text) {
		t.Fatal("expected captcha untouched by validation failures")
	}
}

func TestLoginWrongCaptchaLeavesCounterAlone(t *testing.T) {
	env := newTestEnv(t, testConfig())
	id, _ := solveCaptcha(t, env.engine)

	_, err := env.engine.Login(context.Background(), LoginRequest{
		Email: "ana@reeutil.test", Password: badPassword, CaptchaID: id, CaptchaText: "?????",
	})
	if !errors.Is(err, ErrCaptchaInvalid) {
		t.Fatalf("expected ErrCaptchaInvalid, got %v", err)
	}
	if u := env.store.user("u1"); u.LoginAttempts != 0 {
		t.Fatalf("captcha failure must not touch the counter, got %d", u.LoginAttempts)
	}
}

func TestLoginUnknownEmailIsIndistinguishable(t *testing.T) {
	env := newTestEnv(t, testConfig())

	_, err := env.login(t, "nobody@reeutil.test", goodPassword)
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
	f := Describe(err)
	if f.Code != CodeInvalidCredentials || f.AttemptsRemaining != nil {
		t.Fatalf("unexpected failure %+v", f)
	}
}

func TestUserLockoutAfterThreeFailures(t *testing.T) {
	env := newTestEnv(t, testConfig())

	_, err := env.login(t, "ana@reeutil.test", badPassword)
	if !errors.Is(err, ErrInvalidCredentials) || attemptsOf(t, err) != 2 {
		t.Fatalf("first failure: %v", err)
	}
	_, err = env.login(t, "ana@reeutil.test", badPassword)
	if attemptsOf(t, err) != 1 {
		t.Fatalf("second failure: %v", err)
	}

	_, err = env.login(t, "ana@reeutil.test", badPassword)
	if !errors.Is(err, ErrAccountBlocked) {
		t.Fatalf("third failure: expected ErrAccountBlocked, got %v", err)
	}
	f := Describe(err)
	if f.BlockedAt == nil || !f.BlockedAt.Equal(env.clock.Now()) {
		t.Fatalf("expected blockedAt stamp, got %+v", f)
	}

	u := env.store.user("u1")
	if !u.IsBlocked || u.LoginAttempts != 3 || u.BlockedAt == nil {
		t.Fatalf("unexpected persisted state %+v", u)
	}

	// A blocked user stays blocked even with the right password, and the
	// counter is left alone.
	env.store.mu.Lock()
	saves := env.store.saves
	env.store.mu.Unlock()
	if _, err := env.login(t, "ana@reeutil.test", goodPassword); !errors.Is(err, ErrAccountBlocked) {
		t.Fatalf("expected ErrAccountBlocked, got %v", err)
	}
	if _, err := env.login(t, "ana@reeutil.test", badPassword); !errors.Is(err, ErrAccountBlocked) {
		t.Fatalf("expected ErrAccountBlocked, got %v", err)
	}
	env.store.mu.Lock()
	after := env.store.saves
	env.store.mu.Unlock()
	if after != saves {
		t.Fatalf("blocked logins must not persist lockout state, saves %d -> %d", saves, after)
	}
	if u := env.store.user("u1"); u.LoginAttempts != 3 || !u.IsBlocked {
		t.Fatalf("expected counter frozen at 3, got %+v", u)
	}
	if env.mailer.count() != 0 {
		t.Fatal("no code may be sent to a blocked user")
	}
}

func TestUserSuccessResetsCounter(t *testing.T) {
	env := newTestEnv(t, testConfig())

	_, _ = env.login(t, "ana@reeutil.test", badPassword)
	if u := env.store.user("u1"); u.LoginAttempts != 1 {
		t.Fatalf("expected one recorded failure, got %d", u.LoginAttempts)
	}

	res, err := env.login(t, "ANA@reeutil.test ", goodPassword)
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if !res.RequiresVerification || res.Email != "ana@reeutil.test" || res.Token != "" {
		t.Fatalf("unexpected result %+v", res)
	}
	if u := env.store.user("u1"); u.LoginAttempts != 0 {
		t.Fatalf("expected counter reset, got %d", u.LoginAttempts)
	}
}

func TestLockoutPersistFailureSurfaces(t *testing.T) {
	env := newTestEnv(t, testConfig())
	env.store.saveErr = errors.New("disk full")

	_, err := env.login(t, "ana@reeutil.test", badPassword)
	if !errors.Is(err, ErrStoreUnavailable) {
		t.Fatalf("expected ErrStoreUnavailable, got %v", err)
	}
	if f := Describe(err); f.Code != CodeInternal || f.Message != "internal error" {
		t.Fatalf("backend detail leaked: %+v", f)
	}
}

func TestLoginPasswordExpiry(t *testing.T) {
	env := newTestEnv(t, testConfig())
	now := env.clock.Now()

	env.store.addUser(User{
		ID: "u2", Email: "old@reeutil.test", PasswordHash: hashPassword(t, goodPassword),
		PasswordChangedAt: now.Add(-61 * 24 * time.Hour),
	})
	env.store.addUser(User{
		ID: "u3", Email: "created@reeutil.test", PasswordHash: hashPassword(t, goodPassword),
		CreatedAt: now.Add(-90 * 24 * time.Hour),
	})
	env.store.addUser(User{
		ID: "u4", Email: "undated@reeutil.test", PasswordHash: hashPassword(t, goodPassword),
	})

	for _, email := range []string{"old@reeutil.test", "created@reeutil.test"} {
		if _, err := env.login(t, email, goodPassword); !errors.Is(err, ErrPasswordExpired) {
			t.Fatalf("%s: expected ErrPasswordExpired, got %v", email, err)
		}
	}
	if _, err := env.login(t, "undated@reeutil.test", goodPassword); err != nil {
		t.Fatalf("undated password must never expire: %v", err)
	}
	if env.mailer.count() != 1 {
		t.Fatalf("expected one code sent, got %d", env.mailer.count())
	}
}

func TestLoginDeliveryFailureDropsPendingLogin(t *testing.T) {
	env := newTestEnv(t, testConfig())
	env.mailer.err = errors.New("smtp down")

	_, err := env.login(t, "ana@reeutil.test", goodPassword)
	if !errors.Is(err, ErrDeliveryFailed) {
		t.Fatalf("expected ErrDeliveryFailed, got %v", err)
	}
	if _, ok, _ := env.engine.pending.Get(context.Background(), "ana@reeutil.test"); ok {
		t.Fatal("expected pending login removed after delivery failure")
	}
}

func TestEmployeeLoginIssuesTokenImmediately(t *testing.T) {
	env := newTestEnv(t, testConfig())

	res, err := env.login(t, "luis@reeutil.test", goodPassword)
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if res.RequiresVerification || res.Token == "" || res.ExpiresAt == nil {
		t.Fatalf("expected terminal result, got %+v", res)
	}
	v := res.Principal
	if v.Kind != KindEmployee || v.Role != "admin" || !v.IsStaff || v.Cargo != "Tasador" || len(v.Permissions) != 2 {
		t.Fatalf("unexpected view %+v", v)
	}
	if !res.ExpiresAt.Equal(env.clock.Now().Add(24 * time.Hour)) {
		t.Fatalf("unexpected expiry %v", res.ExpiresAt)
	}
	if env.mailer.count() != 0 {
		t.Fatal("employees get no second factor by default")
	}
}

func TestEmployeeFailuresDoNotCount(t *testing.T) {
	env := newTestEnv(t, testConfig())

	for i := 0; i < 5; i++ {
		_, err := env.login(t, "luis@reeutil.test", badPassword)
		if !errors.Is(err, ErrInvalidCredentials) {
			t.Fatalf("attempt %d: expected ErrInvalidCredentials, got %v", i+1, err)
		}
		if f := Describe(err); f.AttemptsRemaining != nil {
			t.Fatalf("employees carry no attempts detail, got %+v", f)
		}
	}
	if env.store.saves != 0 {
		t.Fatalf("expected no lockout writes, got %d", env.store.saves)
	}
}

func TestBlockedEmployee(t *testing.T) {
	env := newTestEnv(t, testConfig())
	at := env.clock.Now().Add(-time.Hour)
	env.store.addEmployee(Employee{
		ID: "e2", Email: "blocked@reeutil.test", PasswordHash: hashPassword(t, goodPassword),
		IsBlocked: true, BlockedAt: &at,
	})

	if _, err := env.login(t, "blocked@reeutil.test", badPassword); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("wrong password on blocked employee: expected ErrInvalidCredentials, got %v", err)
	}
	_, err := env.login(t, "blocked@reeutil.test", goodPassword)
	if !errors.Is(err, ErrAccountBlocked) {
		t.Fatalf("expected ErrAccountBlocked, got %v", err)
	}
}

func TestHardenedStaffLockoutAndSecondFactor(t *testing.T) {
	cfg := testConfig()
	cfg.Security.EnforceStaffLockout = true
	cfg.Security.RequireStaffSecondFactor = true
	env := newTestEnv(t, cfg)

	_, err := env.login(t, "luis@reeutil.test", badPassword)
	if attemptsOf(t, err) != 2 {
		t.Fatalf("expected staff failures to count, got %v", err)
	}

	res, err := env.login(t, "luis@reeutil.test", goodPassword)
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if !res.RequiresVerification {
		t.Fatalf("expected second factor for staff, got %+v", res)
	}

	sent := env.mailer.last(t, PurposeLogin)
	done, err := env.engine.ConfirmLoginCode(context.Background(), sent.email, sent.code)
	if err != nil {
		t.Fatalf("ConfirmLoginCode: %v", err)
	}
	if done.Principal.Kind != KindEmployee {
		t.Fatalf("expected employee principal, got %+v", done.Principal)
	}
}

func TestEmployeeShadowsUserWithSameEmail(t *testing.T) {
	env := newTestEnv(t, testConfig())
	env.store.addUser(User{ID: "u9", Email: "luis@reeutil.test", PasswordHash: hashPassword(t, "user-password-1")})

	res, err := env.login(t, "luis@reeutil.test", goodPassword)
	if err != nil || res.Principal == nil || res.Principal.ID != "e1" {
		t.Fatalf("expected employee e1, got %+v, %v", res, err)
	}
}

func TestLoginStoreFailure(t *testing.T) {
	env := newTestEnv(t, testConfig())
	env.store.findErr = errors.New("connection reset")

	_, err := env.login(t, "ana@reeutil.test", goodPassword)
	if !errors.Is(err, ErrStoreUnavailable) {
		t.Fatalf("expected ErrStoreUnavailable, got %v", err)
	}
}
