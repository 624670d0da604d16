package expiring

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fxamacker/cbor/v2"
	"github.com/redis/go-redis/v9"
)

var encMode = mustEncMode()

// compareAndDelete drops KEYS[1] only while it still holds ARGV[1].
var compareAndDelete = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// takeIfAttempts bounds re-reads when a writer keeps replacing the key.
const takeIfAttempts = 5

func mustEncMode() cbor.EncMode {
	mode, err := cbor.EncOptions{Time: cbor.TimeRFC3339Nano}.EncMode()
	if err != nil {
		panic(err)
	}
	return mode
}

// Redis is a [Store] shared across processes. Entries are CBOR-encoded and
// expire through native key TTLs.
type Redis[V any] struct {
	redis  redis.UniversalClient
	prefix string
	now    func() time.Time
}

// NewRedis creates a store whose keys live under prefix.
func NewRedis[V any](client redis.UniversalClient, prefix string, now func() time.Time) *Redis[V] {
	if now == nil {
		now = time.Now
	}
	return &Redis[V]{
		redis:  client,
		prefix: prefix,
		now:    now,
	}
}

func (r *Redis[V]) key(key string) string {
	return r.prefix + ":" + key
}

func (r *Redis[V]) Put(ctx context.Context, key string, value V, ttl time.Duration) error {
	if ttl <= 0 {
		return r.Delete(ctx, key)
	}

	data, err := encMode.Marshal(Entry[V]{Value: value, ExpiresAt: r.now().Add(ttl)})
	if err != nil {
		return fmt.Errorf("encode entry: %w", err)
	}
	if err := r.redis.Set(ctx, r.key(key), data, ttl).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

func (r *Redis[V]) Get(ctx context.Context, key string) (V, bool, error) {
	raw, err := r.redis.Get(ctx, r.key(key)).Bytes()
	return r.decode(raw, err)
}

func (r *Redis[V]) Delete(ctx context.Context, key string) error {
	if err := r.redis.Del(ctx, r.key(key)).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

func (r *Redis[V]) Take(ctx context.Context, key string) (V, bool, error) {
	raw, err := r.redis.GetDel(ctx, r.key(key)).Bytes()
	return r.decode(raw, err)
}

// TakeIf reads the entry, runs match locally and deletes the key only if
// its bytes are unchanged since the read. A concurrent replacement causes a
// re-read, so match always judges the value that would be removed.
func (r *Redis[V]) TakeIf(ctx context.Context, key string, match func(V) bool) (V, bool, error) {
	var zero V
	k := r.key(key)
	for range takeIfAttempts {
		raw, err := r.redis.Get(ctx, k).Bytes()
		value, ok, err := r.decode(raw, err)
		if err != nil || !ok {
			return zero, false, err
		}
		if !match(value) {
			return value, true, ErrMismatch
		}

		n, err := compareAndDelete.Run(ctx, r.redis, []string{k}, raw).Int()
		if err != nil {
			return zero, false, fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
		if n == 1 {
			return value, true, nil
		}
	}
	return zero, false, fmt.Errorf("%w: %s replaced during take", ErrUnavailable, key)
}

// PruneExpired is a no-op; Redis evicts keys on TTL.
func (r *Redis[V]) PruneExpired(context.Context) (int, error) {
	return 0, nil
}

func (r *Redis[V]) decode(raw []byte, err error) (V, bool, error) {
	var zero V
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return zero, false, nil
		}
		return zero, false, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	var entry Entry[V]
	if err := cbor.Unmarshal(raw, &entry); err != nil {
		return zero, false, fmt.Errorf("decode entry: %w", err)
	}
	if entry.expired(r.now()) {
		return zero, false, nil
	}
	return entry.Value, true, nil
}
