package password

import (
	"errors"
	"sync"
)

const (
	minPassBytes = 8
	// bcrypt ignores input past 72 bytes; reject rather than truncate.
	maxPassBytes = 72
)

var (
	// ErrUnsupportedDigest reports a digest in a format no hasher handles.
	ErrUnsupportedDigest = errors.New("unsupported password digest")
	// ErrPasswordLength reports a password outside [8, 72] bytes.
	ErrPasswordLength = errors.New("password must be 8 to 72 bytes")
)

// Hasher produces and checks digests in one format.
type Hasher interface {
	Hash(password string) (string, error)
	Verify(password, digest string) (bool, error)
}

// Verifier checks digests of any supported format and hashes new passwords
// with its primary hasher.
type Verifier struct {
	primary Hasher
	argon   *Argon2
	bcrypt  *Bcrypt

	dummyOnce sync.Once
	dummy     string
}

// NewVerifier returns a Verifier that hashes with Argon2id and accepts both
// Argon2id and bcrypt digests.
func NewVerifier(argonCfg Config, bcryptCost int) (*Verifier, error) {
	a, err := NewArgon2(argonCfg)
	if err != nil {
		return nil, err
	}
	b, err := NewBcrypt(bcryptCost)
	if err != nil {
		return nil, err
	}
	return &Verifier{primary: a, argon: a, bcrypt: b}, nil
}

func (v *Verifier) Hash(password string) (string, error) {
	return v.primary.Hash(password)
}

func (v *Verifier) Verify(password, digest string) (bool, error) {
	switch {
	case isBcrypt(digest):
		return v.bcrypt.Verify(password, digest)
	case len(digest) > len(argon2Prefix) && digest[:len(argon2Prefix)] == argon2Prefix:
		return v.argon.Verify(password, digest)
	default:
		return false, ErrUnsupportedDigest
	}
}

// VerifyDummy burns the same work as a real verification against a fixed
// digest. Callers use it when no principal matched so that response timing
// does not reveal whether the email exists.
func (v *Verifier) VerifyDummy(password string) {
	v.dummyOnce.Do(func() {
		v.dummy, _ = v.primary.Hash("dummy-password-for-timing")
	})
	if v.dummy != "" {
		_, _ = v.primary.Verify(password, v.dummy)
	}
}

func checkLength(password string) error {
	if len(password) < minPassBytes || len(password) > maxPassBytes {
		return ErrPasswordLength
	}
	return nil
}
