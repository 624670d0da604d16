package reeutil

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/bcrypt"
)

const (
	testSecret   = "0123456789abcdef0123456789abcdef"
	goodPassword = "correct-password-123"
	badPassword  = "wrong-password"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type fakeStore struct {
	mu        sync.Mutex
	users     map[string]*User
	employees map[string]*Employee
	saves     int
	saveErr   error
	findErr   error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		users:     map[string]*User{},
		employees: map[string]*Employee{},
	}
}

func (s *fakeStore) addUser(u User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[u.ID] = &u
}

func (s *fakeStore) addEmployee(e Employee) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.employees[e.ID] = &e
}

func (s *fakeStore) user(id string) User {
	s.mu.Lock()
	defer s.mu.Unlock()
	return *s.users[id]
}

func (s *fakeStore) FindEmployeeByEmail(_ context.Context, email string) (*Employee, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.findErr != nil {
		return nil, s.findErr
	}
	for _, e := range s.employees {
		if e.Email == email {
			cp := *e
			return &cp, nil
		}
	}
	return nil, ErrPrincipalNotFound
}

func (s *fakeStore) FindEmployeeByID(_ context.Context, id string) (*Employee, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.employees[id]; ok {
		cp := *e
		return &cp, nil
	}
	return nil, ErrPrincipalNotFound
}

func (s *fakeStore) FindUserByEmail(_ context.Context, email string) (*User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, ErrPrincipalNotFound
}

func (s *fakeStore) FindUserByID(_ context.Context, id string) (*User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u, ok := s.users[id]; ok {
		cp := *u
		return &cp, nil
	}
	return nil, ErrPrincipalNotFound
}

func (s *fakeStore) SaveLockout(_ context.Context, kind Kind, id string, st LockoutState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.saveErr != nil {
		return s.saveErr
	}
	s.saves++
	if kind == KindEmployee {
		e := s.employees[id]
		e.LoginAttempts, e.IsBlocked, e.BlockedAt = st.LoginAttempts, st.IsBlocked, st.BlockedAt
		return nil
	}
	u := s.users[id]
	u.LoginAttempts, u.IsBlocked, u.BlockedAt = st.LoginAttempts, st.IsBlocked, st.BlockedAt
	return nil
}

type sentCode struct {
	email   string
	code    string
	purpose CodePurpose
}

type fakeMailer struct {
	mu     sync.Mutex
	sent   []sentCode
	err    error
	onSend func()
}

func (m *fakeMailer) SendCode(_ context.Context, email, code string, purpose CodePurpose) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.onSend != nil {
		m.onSend()
	}
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, sentCode{email: email, code: code, purpose: purpose})
	return nil
}

func (m *fakeMailer) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sent)
}

func (m *fakeMailer) last(t *testing.T, purpose CodePurpose) sentCode {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := len(m.sent) - 1; i >= 0; i-- {
		if m.sent[i].purpose == purpose {
			return m.sent[i]
		}
	}
	t.Fatalf("no %s code sent", purpose)
	return sentCode{}
}

func hashPassword(t *testing.T, pw string) string {
	t.Helper()
	out, err := bcrypt.GenerateFromPassword([]byte(pw), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	return string(out)
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.JWT.PrivateKey = []byte(testSecret)
	cfg.Password.Memory = 8 * 1024
	cfg.Password.Time = 1
	cfg.Password.Parallelism = 1
	cfg.Password.KeyLength = 16
	cfg.Password.BcryptCost = bcrypt.MinCost
	return cfg
}

type testEnv struct {
	engine *Engine
	store  *fakeStore
	mailer *fakeMailer
	clock  *fakeClock
}

func newTestEnv(t *testing.T, cfg Config) *testEnv {
	t.Helper()
	return buildTestEnv(t, New().WithConfig(cfg))
}

func buildTestEnv(t *testing.T, b *Builder) *testEnv {
	t.Helper()

	env := &testEnv{store: newFakeStore(), mailer: &fakeMailer{}, clock: newFakeClock()}
	engine, err := b.
		WithPrincipalStore(env.store).
		WithMailer(env.mailer).
		WithClock(env.clock.Now).
		Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	t.Cleanup(engine.Close)
	env.engine = engine

	env.store.addUser(User{
		ID:                "u1",
		FirstName:         "Ana",
		LastName:          "Rojas",
		Email:             "ana@reeutil.test",
		Role:              "user",
		PasswordHash:      hashPassword(t, goodPassword),
		PasswordChangedAt: env.clock.Now().Add(-24 * time.Hour),
	})
	env.store.addEmployee(Employee{
		ID:           "e1",
		FirstName:    "Luis",
		LastName:     "Paz",
		Email:        "luis@reeutil.test",
		PasswordHash: hashPassword(t, goodPassword),
		Position:     "Tasador",
		Permissions:  []string{"inventory", "quotes"},
		Role:         &RoleRef{ID: "r1", Name: "admin"},
	})
	return env
}

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis.Run failed: %v", err)
	}
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		_ = client.Close()
		mr.Close()
	})
	return mr, client
}

// solveCaptcha issues a challenge and reads its answer back from the store.
func solveCaptcha(t *testing.T, e *Engine) (string, string) {
	t.Helper()
	ctx := context.Background()
	ch, err := e.IssueCaptcha(ctx)
	if err != nil {
		t.Fatalf("IssueCaptcha: %v", err)
	}
	text, ok, err := e.captchas.Get(ctx, ch.ID)
	if err != nil || !ok {
		t.Fatalf("captcha answer missing: ok=%v err=%v", ok, err)
	}
	return ch.ID, text
}

func (env *testEnv) login(t *testing.T, email, pw string) (*LoginResult, error) {
	t.Helper()
	id, text := solveCaptcha(t, env.engine)
	return env.engine.Login(context.Background(), LoginRequest{
		Email:       email,
		Password:    pw,
		CaptchaID:   id,
		CaptchaText: text,
	})
}

func attemptsOf(t *testing.T, err error) int {
	t.Helper()
	var d *DetailError
	if !errors.As(err, &d) || d.AttemptsRemaining == nil {
		t.Fatalf("expected attempts detail on %v", err)
	}
	return *d.AttemptsRemaining
}
