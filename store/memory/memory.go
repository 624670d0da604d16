// Package memory is an in-process PrincipalStore for local runs and tests.
package memory

import (
	"context"
	"fmt"
	"strings"
	"sync"

	reeutil "github.com/MrBl4ck04/ReeUtil-sub000"
)

// Store keeps users and employees in maps guarded by one lock. Emails are
// unique across both kinds.
type Store struct {
	mu        sync.RWMutex
	users     map[string]reeutil.User
	employees map[string]reeutil.Employee
	emails    map[string]string
}

// New returns an empty Store.
func New() *Store {
	return &Store{
		users:     map[string]reeutil.User{},
		employees: map[string]reeutil.Employee{},
		emails:    map[string]string{},
	}
}

func normalize(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// AddUser inserts u. Duplicate ids or emails fail with
// reeutil.ErrDuplicateIdentifier.
func (s *Store) AddUser(u reeutil.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	u.Email = normalize(u.Email)
	if err := s.claimLocked(u.ID, u.Email); err != nil {
		return err
	}
	s.users[u.ID] = u
	return nil
}

// AddEmployee inserts e. Duplicate ids or emails fail with
// reeutil.ErrDuplicateIdentifier.
func (s *Store) AddEmployee(e reeutil.Employee) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e.Email = normalize(e.Email)
	if err := s.claimLocked(e.ID, e.Email); err != nil {
		return err
	}
	e.Permissions = append([]string(nil), e.Permissions...)
	s.employees[e.ID] = e
	return nil
}

// Remove deletes the principal with id of either kind.
func (s *Store) Remove(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if u, ok := s.users[id]; ok {
		delete(s.emails, u.Email)
		delete(s.users, id)
	}
	if e, ok := s.employees[id]; ok {
		delete(s.emails, e.Email)
		delete(s.employees, id)
	}
}

func (s *Store) claimLocked(id, email string) error {
	if id == "" || email == "" {
		return fmt.Errorf("memory: id and email are required")
	}
	if _, taken := s.emails[email]; taken {
		return fmt.Errorf("%w: email %s", reeutil.ErrDuplicateIdentifier, email)
	}
	_, isUser := s.users[id]
	_, isEmployee := s.employees[id]
	if isUser || isEmployee {
		return fmt.Errorf("%w: id %s", reeutil.ErrDuplicateIdentifier, id)
	}
	s.emails[email] = id
	return nil
}

func (s *Store) FindEmployeeByEmail(_ context.Context, email string) (*reeutil.Employee, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if e, ok := s.employees[s.emails[normalize(email)]]; ok {
		return cloneEmployee(e), nil
	}
	return nil, reeutil.ErrPrincipalNotFound
}

func (s *Store) FindEmployeeByID(_ context.Context, id string) (*reeutil.Employee, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if e, ok := s.employees[id]; ok {
		return cloneEmployee(e), nil
	}
	return nil, reeutil.ErrPrincipalNotFound
}

func (s *Store) FindUserByEmail(_ context.Context, email string) (*reeutil.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if u, ok := s.users[s.emails[normalize(email)]]; ok {
		return &u, nil
	}
	return nil, reeutil.ErrPrincipalNotFound
}

func (s *Store) FindUserByID(_ context.Context, id string) (*reeutil.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if u, ok := s.users[id]; ok {
		return &u, nil
	}
	return nil, reeutil.ErrPrincipalNotFound
}

func (s *Store) SaveLockout(_ context.Context, kind reeutil.Kind, id string, st reeutil.LockoutState) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if kind == reeutil.KindEmployee {
		e, ok := s.employees[id]
		if !ok {
			return reeutil.ErrPrincipalNotFound
		}
		e.LoginAttempts, e.IsBlocked, e.BlockedAt = st.LoginAttempts, st.IsBlocked, st.BlockedAt
		s.employees[id] = e
		return nil
	}

	u, ok := s.users[id]
	if !ok {
		return reeutil.ErrPrincipalNotFound
	}
	u.LoginAttempts, u.IsBlocked, u.BlockedAt = st.LoginAttempts, st.IsBlocked, st.BlockedAt
	s.users[id] = u
	return nil
}

func cloneEmployee(e reeutil.Employee) *reeutil.Employee {
	e.Permissions = append([]string(nil), e.Permissions...)
	if e.Role != nil {
		role := *e.Role
		e.Role = &role
	}
	return &e
}

var _ reeutil.PrincipalStore = (*Store)(nil)
