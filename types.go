package reeutil

import (
	"context"
	"strings"
	"time"
)

// Kind discriminates the two principal kinds.
type Kind string

const (
	KindUser     Kind = "user"
	KindEmployee Kind = "employee"
)

const (
	roleAdmin           = "admin"
	defaultUserRole     = "user"
	defaultEmployeeRole = "employee"
)

// RoleRef is an employee's assigned role document.
type RoleRef struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// User is a marketplace customer.
type User struct {
	ID                string
	FirstName         string
	LastName          string
	Email             string
	Role              string
	PasswordHash      string
	LoginAttempts     int
	IsBlocked         bool
	BlockedAt         *time.Time
	PasswordChangedAt time.Time
	CreatedAt         time.Time
}

// Employee is a staff member. Permissions are opaque module identifiers.
type Employee struct {
	ID                string
	FirstName         string
	LastName          string
	Email             string
	PasswordHash      string
	Position          string
	Permissions       []string
	Role              *RoleRef
	LoginAttempts     int
	IsBlocked         bool
	BlockedAt         *time.Time
	PasswordChangedAt time.Time
	CreatedAt         time.Time
}

// Principal is an authenticated identity. Exactly one of User and Employee
// is set, matching Kind.
type Principal struct {
	Kind     Kind
	User     *User
	Employee *Employee
}

func userPrincipal(u *User) *Principal         { return &Principal{Kind: KindUser, User: u} }
func employeePrincipal(e *Employee) *Principal { return &Principal{Kind: KindEmployee, Employee: e} }

func (p *Principal) ID() string {
	if p.Kind == KindEmployee {
		return p.Employee.ID
	}
	return p.User.ID
}

func (p *Principal) Email() string {
	if p.Kind == KindEmployee {
		return p.Employee.Email
	}
	return p.User.Email
}

// Role is the normalised role name. Employees take the name of their role
// reference, falling back to "employee".
func (p *Principal) Role() string {
	if p.Kind == KindEmployee {
		if p.Employee.Role != nil && p.Employee.Role.Name != "" {
			return p.Employee.Role.Name
		}
		return defaultEmployeeRole
	}
	if p.User.Role == "" {
		return defaultUserRole
	}
	return p.User.Role
}

// IsStaff is true for employees and for admin users.
func (p *Principal) IsStaff() bool {
	return p.Kind == KindEmployee || p.Role() == roleAdmin
}

func (p *Principal) passwordHash() string {
	if p.Kind == KindEmployee {
		return p.Employee.PasswordHash
	}
	return p.User.PasswordHash
}

func (p *Principal) passwordSetAt() time.Time {
	changed, created := p.User.PasswordChangedAt, p.User.CreatedAt
	if p.Kind == KindEmployee {
		changed, created = p.Employee.PasswordChangedAt, p.Employee.CreatedAt
	}
	if !changed.IsZero() {
		return changed
	}
	return created
}

func (p *Principal) lockout() LockoutState {
	if p.Kind == KindEmployee {
		return LockoutState{LoginAttempts: p.Employee.LoginAttempts, IsBlocked: p.Employee.IsBlocked, BlockedAt: p.Employee.BlockedAt}
	}
	return LockoutState{LoginAttempts: p.User.LoginAttempts, IsBlocked: p.User.IsBlocked, BlockedAt: p.User.BlockedAt}
}

func (p *Principal) setLockout(s LockoutState) {
	if p.Kind == KindEmployee {
		p.Employee.LoginAttempts, p.Employee.IsBlocked, p.Employee.BlockedAt = s.LoginAttempts, s.IsBlocked, s.BlockedAt
		return
	}
	p.User.LoginAttempts, p.User.IsBlocked, p.User.BlockedAt = s.LoginAttempts, s.IsBlocked, s.BlockedAt
}

// PrincipalView is the stable external shape of either kind.
type PrincipalView struct {
	ID            string     `json:"id"`
	FirstName     string     `json:"firstName"`
	LastName      string     `json:"lastName"`
	Email         string     `json:"email"`
	Kind          Kind       `json:"kind"`
	Role          string     `json:"role"`
	IsStaff       bool       `json:"isStaff"`
	LoginAttempts *int       `json:"loginAttempts,omitempty"`
	IsBlocked     bool       `json:"isBlocked"`
	BlockedAt     *time.Time `json:"blockedAt,omitempty"`
	Permissions   []string   `json:"permissions,omitempty"`
	Cargo         string     `json:"cargo,omitempty"`
}

// View normalises field names across kinds.
func (p *Principal) View() PrincipalView {
	v := PrincipalView{
		ID:      p.ID(),
		Email:   p.Email(),
		Kind:    p.Kind,
		Role:    p.Role(),
		IsStaff: p.IsStaff(),
	}
	if p.Kind == KindEmployee {
		e := p.Employee
		v.FirstName, v.LastName = e.FirstName, e.LastName
		v.IsBlocked, v.BlockedAt = e.IsBlocked, e.BlockedAt
		v.Permissions = append([]string{}, e.Permissions...)
		v.Cargo = e.Position
		return v
	}
	u := p.User
	attempts := u.LoginAttempts
	v.FirstName, v.LastName = u.FirstName, u.LastName
	v.LoginAttempts = &attempts
	v.IsBlocked, v.BlockedAt = u.IsBlocked, u.BlockedAt
	return v
}

// LockoutState is the persisted brute-force counter of one principal.
type LockoutState struct {
	LoginAttempts int
	IsBlocked     bool
	BlockedAt     *time.Time
}

// PrincipalStore is the persistent home of users and employees. Lookups
// return ErrPrincipalNotFound when nothing matches. Employee lookups expand
// the role reference and permission modules.
type PrincipalStore interface {
	FindEmployeeByEmail(ctx context.Context, email string) (*Employee, error)
	FindEmployeeByID(ctx context.Context, id string) (*Employee, error)
	FindUserByEmail(ctx context.Context, email string) (*User, error)
	FindUserByID(ctx context.Context, id string) (*User, error)
	SaveLockout(ctx context.Context, kind Kind, id string, state LockoutState) error
}

// CodePurpose tells the mailer which template a code belongs to.
type CodePurpose string

const (
	PurposeLogin        CodePurpose = "login"
	PurposeVerification CodePurpose = "verification"
)

// Mailer delivers one-time codes out of band.
type Mailer interface {
	SendCode(ctx context.Context, email, code string, purpose CodePurpose) error
}

// PasswordVerifier checks a plaintext password against a stored digest.
type PasswordVerifier interface {
	Verify(password, digest string) (bool, error)
}

// dummyVerifier is implemented by verifiers that can equalise timing when
// no principal matched.
type dummyVerifier interface {
	VerifyDummy(password string)
}

// LoginRequest is the first login step.
type LoginRequest struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	CaptchaID   string `json:"captchaId"`
	CaptchaText string `json:"captchaText"`
}

// LoginResult is either a pending second factor or a terminal token.
type LoginResult struct {
	RequiresVerification bool           `json:"requiresVerification"`
	Email                string         `json:"email,omitempty"`
	Token                string         `json:"token,omitempty"`
	ExpiresAt            *time.Time     `json:"expiresAt,omitempty"`
	Principal            *PrincipalView `json:"principal,omitempty"`
}

// CaptchaChallenge is an issued challenge. Image is a PNG data URI.
type CaptchaChallenge struct {
	ID        string    `json:"id"`
	Image     string    `json:"image"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// pendingLogin is a password-verified login awaiting its emailed code.
type pendingLogin struct {
	PrincipalID string
	Code        string
	Kind        Kind
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
