package store

import (
	"context"
	"strconv"
	"time"
)

// Store is an opaque key/value counter store shared across processes.
// Values are stored as strings; numeric interpretation is up to the caller.
// A ttl of 0 means the key does not expire.
type Store interface {
	// Read returns the value for key, with ok=false when the key is absent.
	Read(ctx context.Context, key string) (value string, ok bool, err error)

	// Write sets key to value, creating it if absent. When ttl > 0 the key
	// expires after ttl.
	Write(ctx context.Context, key, value string, ttl time.Duration) error

	// Delete removes key, reporting whether it existed.
	Delete(ctx context.Context, key string) (bool, error)

	// Exists reports whether key is present and not expired.
	Exists(ctx context.Context, key string) (bool, error)
}

// Incrementer is an optional capability for stores that support atomic
// increments. The ttl is applied only when the increment creates the key,
// so an existing counter keeps its original expiry.
type Incrementer interface {
	Increment(ctx context.Context, key string, by int64, ttl time.Duration) (int64, error)
	IncrementFloat(ctx context.Context, key string, by float64, ttl time.Duration) (float64, error)
}

// Increment adds by to the integer counter at key. Stores implementing
// Incrementer do this atomically. Otherwise a read-modify-write fallback is
// used, which loses updates under concurrent writers; deployments that share
// a store across processes should use a store with atomic increments.
func Increment(ctx context.Context, s Store, key string, by int64, ttl time.Duration) (int64, error) {
	if inc, ok := s.(Incrementer); ok {
		return inc.Increment(ctx, key, by, ttl)
	}

	value, present, err := s.Read(ctx, key)
	if err != nil {
		return 0, err
	}

	var current int64
	if present {
		current, _ = strconv.ParseInt(value, 10, 64)
		// Keep the original expiry unknown; rewriting with the same ttl is the
		// closest a plain store can get.
	}

	next := current + by
	if err := s.Write(ctx, key, strconv.FormatInt(next, 10), ttl); err != nil {
		return 0, err
	}

	return next, nil
}

// IncrementFloat is the floating-point counterpart of Increment, used for
// spend accumulators.
func IncrementFloat(ctx context.Context, s Store, key string, by float64, ttl time.Duration) (float64, error) {
	if inc, ok := s.(Incrementer); ok {
		return inc.IncrementFloat(ctx, key, by, ttl)
	}

	value, present, err := s.Read(ctx, key)
	if err != nil {
		return 0, err
	}

	var current float64
	if present {
		current, _ = strconv.ParseFloat(value, 64)
	}

	next := current + by
	if err := s.Write(ctx, key, strconv.FormatFloat(next, 'f', -1, 64), ttl); err != nil {
		return 0, err
	}

	return next, nil
}

// ReadInt64 reads key as an integer counter, returning 0 when absent.
func ReadInt64(ctx context.Context, s Store, key string) (int64, error) {
	value, present, err := s.Read(ctx, key)
	if err != nil || !present {
		return 0, err
	}
	n, _ := strconv.ParseInt(value, 10, 64)
	return n, nil
}

// ReadFloat64 reads key as a float counter, returning 0 when absent.
func ReadFloat64(ctx context.Context, s Store, key string) (float64, error) {
	value, present, err := s.Read(ctx, key)
	if err != nil || !present {
		return 0, err
	}
	f, _ := strconv.ParseFloat(value, 64)
	return f, nil
}
