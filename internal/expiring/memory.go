package expiring

import (
	"context"
	"sync"
	"time"
)

// Memory is a process-local [Store].
type Memory[V any] struct {
	mu      sync.Mutex
	entries map[string]Entry[V]
	now     func() time.Time
}

// NewMemory creates an empty store. A nil now uses time.Now.
func NewMemory[V any](now func() time.Time) *Memory[V] {
	if now == nil {
		now = time.Now
	}
	return &Memory[V]{
		entries: make(map[string]Entry[V]),
		now:     now,
	}
}

func (m *Memory[V]) Put(_ context.Context, key string, value V, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	m.pruneLocked(now)
	m.entries[key] = Entry[V]{Value: value, ExpiresAt: now.Add(ttl)}
	return nil
}

func (m *Memory[V]) Get(_ context.Context, key string) (V, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var zero V
	entry, ok := m.entries[key]
	if !ok {
		return zero, false, nil
	}
	if entry.expired(m.now()) {
		delete(m.entries, key)
		return zero, false, nil
	}
	return entry.Value, true, nil
}

func (m *Memory[V]) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	delete(m.entries, key)
	m.mu.Unlock()
	return nil
}

func (m *Memory[V]) Take(_ context.Context, key string) (V, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var zero V
	entry, ok := m.entries[key]
	if !ok {
		return zero, false, nil
	}
	delete(m.entries, key)
	if entry.expired(m.now()) {
		return zero, false, nil
	}
	return entry.Value, true, nil
}

func (m *Memory[V]) TakeIf(_ context.Context, key string, match func(V) bool) (V, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var zero V
	entry, ok := m.entries[key]
	if !ok {
		return zero, false, nil
	}
	if entry.expired(m.now()) {
		delete(m.entries, key)
		return zero, false, nil
	}
	if !match(entry.Value) {
		return entry.Value, true, ErrMismatch
	}
	delete(m.entries, key)
	return entry.Value, true, nil
}

func (m *Memory[V]) PruneExpired(context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.pruneLocked(m.now()), nil
}

// Len reports the number of stored entries, expired ones included.
func (m *Memory[V]) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

func (m *Memory[V]) pruneLocked(now time.Time) int {
	removed := 0
	for key, entry := range m.entries {
		if entry.expired(now) {
			delete(m.entries, key)
			removed++
		}
	}
	return removed
}
