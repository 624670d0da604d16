package expiring

import (
	"context"
	"errors"
	"time"
)

// ErrUnavailable wraps backend failures. Memory stores never return it.
var ErrUnavailable = errors.New("expiring store unavailable")

// ErrMismatch is returned by TakeIf when a live value fails the match and
// was left in place.
var ErrMismatch = errors.New("expiring value does not match")

// Store is a keyed set of values that disappear after their TTL.
//
// Single-key operations are atomic with respect to concurrent callers.
// Writes to an existing key replace the previous value (last writer wins).
type Store[V any] interface {
	Put(ctx context.Context, key string, value V, ttl time.Duration) error
	Get(ctx context.Context, key string) (V, bool, error)
	Delete(ctx context.Context, key string) error
	// Take returns the value and removes it in one step.
	Take(ctx context.Context, key string) (V, bool, error)
	// TakeIf removes the value only if match accepts it, in one step with
	// respect to concurrent writers. A live value that match rejects is
	// returned with ErrMismatch and stays stored.
	TakeIf(ctx context.Context, key string, match func(V) bool) (V, bool, error)
	PruneExpired(ctx context.Context) (int, error)
}

// Entry is a value with its absolute expiry instant.
type Entry[V any] struct {
	Value     V         `cbor:"1,keyasint"`
	ExpiresAt time.Time `cbor:"2,keyasint"`
}

func (e Entry[V]) expired(now time.Time) bool {
	return !now.Before(e.ExpiresAt)
}
