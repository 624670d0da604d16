package memory

import (
	"fmt"
	"io"
	"os"
	"time"

	reeutil "github.com/MrBl4ck04/ReeUtil-sub000"
	"gopkg.in/yaml.v3"
)

// Hasher turns a plaintext seed password into a stored digest.
type Hasher interface {
	Hash(password string) (string, error)
}

type seedRole struct {
	ID   string `yaml:"id"`
	Name string `yaml:"name"`
}

type seedPrincipal struct {
	ID                string    `yaml:"id"`
	FirstName         string    `yaml:"firstName"`
	LastName          string    `yaml:"lastName"`
	Email             string    `yaml:"email"`
	Role              string    `yaml:"role"`
	Password          string    `yaml:"password"`
	PasswordHash      string    `yaml:"passwordHash"`
	PasswordChangedAt time.Time `yaml:"passwordChangedAt"`
	CreatedAt         time.Time `yaml:"createdAt"`
	IsBlocked         bool      `yaml:"isBlocked"`
}

type seedEmployee struct {
	seedPrincipal `yaml:",inline"`
	Position      string    `yaml:"cargo"`
	Permissions   []string  `yaml:"permissions"`
	RoleRef       *seedRole `yaml:"roleRef"`
}

type seedFile struct {
	Users     []seedPrincipal `yaml:"users"`
	Employees []seedEmployee  `yaml:"employees"`
}

// LoadSeedFile reads a YAML seed from path into s.
func (s *Store) LoadSeedFile(path string, hasher Hasher) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return s.LoadSeed(f, hasher)
}

// LoadSeed reads users and employees from YAML. Entries carry either a
// plaintext password, hashed with hasher, or a ready passwordHash.
func (s *Store) LoadSeed(r io.Reader, hasher Hasher) error {
	var seed seedFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&seed); err != nil {
		return fmt.Errorf("decode seed: %w", err)
	}

	for _, u := range seed.Users {
		digest, err := seedDigest(u, hasher)
		if err != nil {
			return err
		}
		if err := s.AddUser(reeutil.User{
			ID:                u.ID,
			FirstName:         u.FirstName,
			LastName:          u.LastName,
			Email:             u.Email,
			Role:              u.Role,
			PasswordHash:      digest,
			IsBlocked:         u.IsBlocked,
			PasswordChangedAt: u.PasswordChangedAt,
			CreatedAt:         u.CreatedAt,
		}); err != nil {
			return err
		}
	}

	for _, e := range seed.Employees {
		digest, err := seedDigest(e.seedPrincipal, hasher)
		if err != nil {
			return err
		}
		emp := reeutil.Employee{
			ID:                e.ID,
			FirstName:         e.FirstName,
			LastName:          e.LastName,
			Email:             e.Email,
			PasswordHash:      digest,
			Position:          e.Position,
			Permissions:       e.Permissions,
			IsBlocked:         e.IsBlocked,
			PasswordChangedAt: e.PasswordChangedAt,
			CreatedAt:         e.CreatedAt,
		}
		if e.RoleRef != nil {
			emp.Role = &reeutil.RoleRef{ID: e.RoleRef.ID, Name: e.RoleRef.Name}
		}
		if err := s.AddEmployee(emp); err != nil {
			return err
		}
	}
	return nil
}

func seedDigest(p seedPrincipal, hasher Hasher) (string, error) {
	if p.PasswordHash != "" {
		return p.PasswordHash, nil
	}
	if p.Password == "" {
		return "", fmt.Errorf("seed %s: password or passwordHash required", p.Email)
	}
	if hasher == nil {
		return "", fmt.Errorf("seed %s: plaintext password needs a hasher", p.Email)
	}
	digest, err := hasher.Hash(p.Password)
	if err != nil {
		return "", fmt.Errorf("seed %s: %w", p.Email, err)
	}
	return digest, nil
}
