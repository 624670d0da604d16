package password

import (
	"errors"
	"testing"

	"golang.org/x/crypto/bcrypt"
)

func newTestVerifier(t *testing.T) *Verifier {
	t.Helper()
	v, err := NewVerifier(fastConfig(), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("NewVerifier: %v", err)
	}
	return v
}

func TestVerifierDispatchesByPrefix(t *testing.T) {
	v := newTestVerifier(t)

	argonDigest, err := v.Hash("correct-horse")
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}
	b, _ := NewBcrypt(bcrypt.MinCost)
	bcryptDigest, err := b.Hash("correct-horse")
	if err != nil {
		t.Fatalf("bcrypt Hash: %v", err)
	}

	for name, digest := range map[string]string{"argon2": argonDigest, "bcrypt": bcryptDigest} {
		ok, err := v.Verify("correct-horse", digest)
		if err != nil || !ok {
			t.Fatalf("%s: Verify = %v, %v", name, ok, err)
		}
		ok, err = v.Verify("battery-staple", digest)
		if err != nil || ok {
			t.Fatalf("%s: wrong password Verify = %v, %v", name, ok, err)
		}
	}
}

func TestVerifierUnknownDigest(t *testing.T) {
	v := newTestVerifier(t)
	if _, err := v.Verify("whatever", "$1$md5crypt"); !errors.Is(err, ErrUnsupportedDigest) {
		t.Fatalf("expected ErrUnsupportedDigest, got %v", err)
	}
}

func TestVerifyDummyDoesNotPanic(t *testing.T) {
	v := newTestVerifier(t)
	v.VerifyDummy("anything")
	v.VerifyDummy("anything-else")
	if v.dummy == "" {
		t.Fatal("expected dummy digest to be prepared")
	}
}

func TestNewBcryptCostRange(t *testing.T) {
	if _, err := NewBcrypt(bcrypt.MaxCost + 1); err == nil {
		t.Fatal("expected out of range cost to fail")
	}
	b, err := NewBcrypt(0)
	if err != nil || b.cost != bcrypt.DefaultCost {
		t.Fatalf("expected default cost, got %v, %v", b, err)
	}
}
