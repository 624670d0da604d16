package mysql

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"time"

	reeutil "github.com/MrBl4ck04/ReeUtil-sub000"
)

// Store implements reeutil.PrincipalStore.
type Store struct{ DB *sql.DB }

// New returns a Store on db.
func New(db *sql.DB) *Store { return &Store{DB: db} }

const (
	userColumns     = "id,first_name,last_name,email,role,password_hash,login_attempts,is_blocked,blocked_at,password_changed_at,created_at"
	employeeColumns = "e.id,e.first_name,e.last_name,e.email,e.password_hash,e.position,e.login_attempts,e.is_blocked,e.blocked_at,e.password_changed_at,e.created_at,r.id,r.name"
	employeeFrom    = " FROM employees e LEFT JOIN roles r ON r.id = e.role_id"
)

type rowScanner interface {
	Scan(dest ...any) error
}

func normalize(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func parseID(id string) (uint64, bool) {
	n, err := strconv.ParseUint(id, 10, 64)
	return n, err == nil
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t.UTC(), Valid: true}
}

func timePtr(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time
	return &v
}

func scanUser(row rowScanner) (*reeutil.User, error) {
	var (
		u         reeutil.User
		id        uint64
		blockedAt sql.NullTime
		changedAt sql.NullTime
	)
	err := row.Scan(&id, &u.FirstName, &u.LastName, &u.Email, &u.Role, &u.PasswordHash,
		&u.LoginAttempts, &u.IsBlocked, &blockedAt, &changedAt, &u.CreatedAt)
	if err != nil {
		return nil, translate(err)
	}
	u.ID = strconv.FormatUint(id, 10)
	u.BlockedAt = timePtr(blockedAt)
	if changedAt.Valid {
		u.PasswordChangedAt = changedAt.Time
	}
	return &u, nil
}

func (s *Store) FindUserByEmail(ctx context.Context, email string) (*reeutil.User, error) {
	row := s.DB.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE email=? LIMIT 1", normalize(email))
	return scanUser(row)
}

func (s *Store) FindUserByID(ctx context.Context, id string) (*reeutil.User, error) {
	n, ok := parseID(id)
	if !ok {
		return nil, reeutil.ErrPrincipalNotFound
	}
	row := s.DB.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE id=? LIMIT 1", n)
	return scanUser(row)
}

func (s *Store) scanEmployee(ctx context.Context, row rowScanner) (*reeutil.Employee, error) {
	var (
		e         reeutil.Employee
		id        uint64
		blockedAt sql.NullTime
		changedAt sql.NullTime
		roleID    sql.NullInt64
		roleName  sql.NullString
	)
	err := row.Scan(&id, &e.FirstName, &e.LastName, &e.Email, &e.PasswordHash, &e.Position,
		&e.LoginAttempts, &e.IsBlocked, &blockedAt, &changedAt, &e.CreatedAt, &roleID, &roleName)
	if err != nil {
		return nil, translate(err)
	}
	e.ID = strconv.FormatUint(id, 10)
	e.BlockedAt = timePtr(blockedAt)
	if changedAt.Valid {
		e.PasswordChangedAt = changedAt.Time
	}
	if roleID.Valid {
		e.Role = &reeutil.RoleRef{ID: strconv.FormatInt(roleID.Int64, 10), Name: roleName.String}
	}

	perms, err := s.permissions(ctx, id)
	if err != nil {
		return nil, err
	}
	e.Permissions = perms
	return &e, nil
}

func (s *Store) permissions(ctx context.Context, employeeID uint64) ([]string, error) {
	rows, err := s.DB.QueryContext(ctx,
		"SELECT module FROM employee_permissions WHERE employee_id=? ORDER BY module", employeeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var m string
		if err := rows.Scan(&m); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (s *Store) FindEmployeeByEmail(ctx context.Context, email string) (*reeutil.Employee, error) {
	row := s.DB.QueryRowContext(ctx,
		"SELECT "+employeeColumns+employeeFrom+" WHERE e.email=? LIMIT 1", normalize(email))
	return s.scanEmployee(ctx, row)
}

func (s *Store) FindEmployeeByID(ctx context.Context, id string) (*reeutil.Employee, error) {
	n, ok := parseID(id)
	if !ok {
		return nil, reeutil.ErrPrincipalNotFound
	}
	row := s.DB.QueryRowContext(ctx,
		"SELECT "+employeeColumns+employeeFrom+" WHERE e.id=? LIMIT 1", n)
	return s.scanEmployee(ctx, row)
}

// SaveLockout overwrites the lockout columns of one principal.
func (s *Store) SaveLockout(ctx context.Context, kind reeutil.Kind, id string, state reeutil.LockoutState) error {
	n, ok := parseID(id)
	if !ok {
		return reeutil.ErrPrincipalNotFound
	}
	table := "users"
	if kind == reeutil.KindEmployee {
		table = "employees"
	}

	res, err := s.DB.ExecContext(ctx,
		"UPDATE "+table+" SET login_attempts=?, is_blocked=?, blocked_at=? WHERE id=?",
		state.LoginAttempts, state.IsBlocked, nullTime(state.BlockedAt), n)
	if err != nil {
		return err
	}
	// Affected rows count changed rows only, so zero is not proof of absence.
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		var one int
		err := s.DB.QueryRowContext(ctx, "SELECT 1 FROM "+table+" WHERE id=?", n).Scan(&one)
		return translate(err)
	}
	return nil
}

// CreateUser inserts u and returns its id. A taken email fails with
// reeutil.ErrDuplicateIdentifier.
func (s *Store) CreateUser(ctx context.Context, u reeutil.User) (string, error) {
	role := u.Role
	if role == "" {
		role = "user"
	}
	res, err := s.DB.ExecContext(ctx,
		"INSERT INTO users (first_name,last_name,email,role,password_hash,password_changed_at) VALUES (?,?,?,?,?,?)",
		u.FirstName, u.LastName, normalize(u.Email), role, u.PasswordHash, nullTime(nonZero(u.PasswordChangedAt)))
	if err != nil {
		return "", translate(err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return "", err
	}
	return strconv.FormatInt(id, 10), nil
}

// CreateEmployee inserts e with its permissions in one transaction. When
// e.Role names a role that does not exist yet it is created.
func (s *Store) CreateEmployee(ctx context.Context, e reeutil.Employee) (string, error) {
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return "", err
	}
	defer func() { _ = tx.Rollback() }()

	var roleID sql.NullInt64
	if e.Role != nil && e.Role.Name != "" {
		if _, err := tx.ExecContext(ctx, "INSERT IGNORE INTO roles (name) VALUES (?)", e.Role.Name); err != nil {
			return "", err
		}
		if err := tx.QueryRowContext(ctx, "SELECT id FROM roles WHERE name=?", e.Role.Name).Scan(&roleID); err != nil {
			return "", err
		}
	}

	res, err := tx.ExecContext(ctx,
		"INSERT INTO employees (first_name,last_name,email,password_hash,position,role_id,password_changed_at) VALUES (?,?,?,?,?,?,?)",
		e.FirstName, e.LastName, normalize(e.Email), e.PasswordHash, e.Position, roleID, nullTime(nonZero(e.PasswordChangedAt)))
	if err != nil {
		return "", translate(err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return "", err
	}

	for _, m := range e.Permissions {
		if _, err := tx.ExecContext(ctx,
			"INSERT IGNORE INTO employee_permissions (employee_id, module) VALUES (?,?)", id, m); err != nil {
			return "", fmt.Errorf("permission %q: %w", m, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return "", err
	}
	return strconv.FormatInt(id, 10), nil
}

func nonZero(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}

var _ reeutil.PrincipalStore = (*Store)(nil)
