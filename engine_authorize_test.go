package reeutil

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestAuthorizeRejectsBadTokens(t *testing.T) {
	env := newTestEnv(t, testConfig())
	ctx := context.Background()

	for _, tok := range []string{"", "   ", "garbage", "a.b.c"} {
		_, err := env.engine.Authorize(ctx, tok)
		if !errors.Is(err, ErrUnauthorized) {
			t.Fatalf("%q: expected ErrUnauthorized, got %v", tok, err)
		}
	}
}

func TestAuthorizeExpiredToken(t *testing.T) {
	env := newTestEnv(t, testConfig())
	res, err := env.login(t, "luis@reeutil.test", goodPassword)
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	env.clock.Advance(25 * time.Hour)
	if _, err := env.engine.Authorize(context.Background(), res.Token); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
}

func TestAuthorizeOrphanedToken(t *testing.T) {
	env := newTestEnv(t, testConfig())
	res, err := env.login(t, "luis@reeutil.test", goodPassword)
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	env.store.mu.Lock()
	delete(env.store.employees, "e1")
	env.store.mu.Unlock()

	_, err = env.engine.Authorize(context.Background(), res.Token)
	if !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
}

func TestAuthorizeEmployeeRoleNormalisation(t *testing.T) {
	env := newTestEnv(t, testConfig())
	env.store.addEmployee(Employee{ID: "e3", Email: "norole@reeutil.test", PasswordHash: hashPassword(t, goodPassword)})

	res, err := env.login(t, "norole@reeutil.test", goodPassword)
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	p, err := env.engine.Authorize(context.Background(), res.Token)
	if err != nil {
		t.Fatalf("Authorize: %v", err)
	}
	if p.Kind != KindEmployee || p.Role() != "employee" {
		t.Fatalf("unexpected principal kind=%s role=%s", p.Kind, p.Role())
	}
}

func TestAllowed(t *testing.T) {
	env := newTestEnv(t, testConfig())

	staff := employeePrincipal(&Employee{ID: "e1", Role: &RoleRef{Name: "tasador"}})
	admin := userPrincipal(&User{ID: "u1", Role: "admin"})
	customer := userPrincipal(&User{ID: "u2", Role: "user"})

	cases := []struct {
		name  string
		p     *Principal
		roles []string
		want  bool
	}{
		{"employee passes admin gate", staff, []string{"admin"}, true},
		{"employee by own role", staff, []string{"tasador"}, true},
		{"employee outside gate", staff, []string{"user"}, false},
		{"admin user", admin, []string{"admin"}, true},
		{"customer on admin gate", customer, []string{"admin"}, false},
		{"customer on user gate", customer, []string{"user", "admin"}, true},
		{"nil principal", nil, []string{"user"}, false},
	}
	for _, tc := range cases {
		if got := env.engine.Allowed(tc.p, tc.roles...); got != tc.want {
			t.Fatalf("%s: got %v want %v", tc.name, got, tc.want)
		}
	}
	if !admin.IsStaff() || customer.IsStaff() {
		t.Fatal("isStaff must follow the admin role for users")
	}
}
