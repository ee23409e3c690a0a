package store

import (
	"context"
	"strconv"
	"sync"
	"time"
)

// memoryEntry is a stored value with optional expiration
type memoryEntry struct {
	value     string
	expiresAt time.Time // zero means no expiry
}

func (e *memoryEntry) expired(now time.Time) bool {
	return !e.expiresAt.IsZero() && now.After(e.expiresAt)
}

// MemoryStore is a thread-safe in-process Store with TTL support. It
// implements Incrementer, so counters are atomic under the lock. State is
// lost on restart and not shared across processes; it backs tests and
// single-process deployments.
type MemoryStore struct {
	mu    sync.Mutex
	items map[string]*memoryEntry
	now   func() time.Time
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		items: make(map[string]*memoryEntry),
		now:   time.Now,
	}
}

// SetClock overrides the time source, for tests that advance time manually.
func (s *MemoryStore) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

func (s *MemoryStore) get(key string) (*memoryEntry, bool) {
	entry, found := s.items[key]
	if !found {
		return nil, false
	}
	if entry.expired(s.now()) {
		delete(s.items, key)
		return nil, false
	}
	return entry, true
}

// Read returns the value for key, with ok=false when absent or expired.
func (s *MemoryStore) Read(ctx context.Context, key string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, found := s.get(key)
	if !found {
		return "", false, nil
	}
	return entry.value, true, nil
}

// Write sets key to value with an optional expiry.
func (s *MemoryStore) Write(ctx context.Context, key, value string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry := &memoryEntry{value: value}
	if ttl > 0 {
		entry.expiresAt = s.now().Add(ttl)
	}
	s.items[key] = entry
	return nil
}

// Delete removes key, reporting whether it existed.
func (s *MemoryStore) Delete(ctx context.Context, key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, found := s.get(key)
	delete(s.items, key)
	return found, nil
}

// Exists reports whether key is present and not expired.
func (s *MemoryStore) Exists(ctx context.Context, key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, found := s.get(key)
	return found, nil
}

// Increment atomically adds by to the integer counter at key.
func (s *MemoryStore) Increment(ctx context.Context, key string, by int64, ttl time.Duration) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var current int64
	entry, found := s.get(key)
	if found {
		current, _ = strconv.ParseInt(entry.value, 10, 64)
	}

	next := current + by
	updated := &memoryEntry{value: strconv.FormatInt(next, 10)}
	if found {
		updated.expiresAt = entry.expiresAt
	} else if ttl > 0 {
		updated.expiresAt = s.now().Add(ttl)
	}
	s.items[key] = updated

	return next, nil
}

// IncrementFloat atomically adds by to the float accumulator at key.
func (s *MemoryStore) IncrementFloat(ctx context.Context, key string, by float64, ttl time.Duration) (float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var current float64
	entry, found := s.get(key)
	if found {
		current, _ = strconv.ParseFloat(entry.value, 64)
	}

	next := current + by
	updated := &memoryEntry{value: strconv.FormatFloat(next, 'f', -1, 64)}
	if found {
		updated.expiresAt = entry.expiresAt
	} else if ttl > 0 {
		updated.expiresAt = s.now().Add(ttl)
	}
	s.items[key] = updated

	return next, nil
}
