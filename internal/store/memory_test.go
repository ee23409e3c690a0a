package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore_ReadWriteDelete(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	t.Run("read missing key", func(t *testing.T) {
		val, found, err := s.Read(ctx, "missing")
		require.NoError(t, err)
		assert.False(t, found)
		assert.Equal(t, "", val)
	})

	t.Run("write then read", func(t *testing.T) {
		require.NoError(t, s.Write(ctx, "key1", "value1", 0))

		val, found, err := s.Read(ctx, "key1")
		require.NoError(t, err)
		assert.True(t, found)
		assert.Equal(t, "value1", val)
	})

	t.Run("exists", func(t *testing.T) {
		found, err := s.Exists(ctx, "key1")
		require.NoError(t, err)
		assert.True(t, found)

		found, err = s.Exists(ctx, "missing")
		require.NoError(t, err)
		assert.False(t, found)
	})

	t.Run("delete", func(t *testing.T) {
		deleted, err := s.Delete(ctx, "key1")
		require.NoError(t, err)
		assert.True(t, deleted)

		deleted, err = s.Delete(ctx, "key1")
		require.NoError(t, err)
		assert.False(t, deleted)

		_, found, err := s.Read(ctx, "key1")
		require.NoError(t, err)
		assert.False(t, found)
	})
}

func TestMemoryStore_Expiry(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	base := time.Date(2026, 1, 15, 12, 0, 0, 0, time.UTC)
	now := base
	s.SetClock(func() time.Time { return now })

	require.NoError(t, s.Write(ctx, "ttl-key", "v", 10*time.Second))

	_, found, err := s.Read(ctx, "ttl-key")
	require.NoError(t, err)
	assert.True(t, found)

	// Just before expiry
	now = base.Add(9 * time.Second)
	_, found, err = s.Read(ctx, "ttl-key")
	require.NoError(t, err)
	assert.True(t, found)

	// Past expiry
	now = base.Add(11 * time.Second)
	_, found, err = s.Read(ctx, "ttl-key")
	require.NoError(t, err)
	assert.False(t, found)

	found, err = s.Exists(ctx, "ttl-key")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestMemoryStore_Increment(t *testing.T) {
	ctx := context.Background()

	t.Run("counts up from zero", func(t *testing.T) {
		s := NewMemoryStore()

		n, err := s.Increment(ctx, "counter", 1, time.Minute)
		require.NoError(t, err)
		assert.Equal(t, int64(1), n)

		n, err = s.Increment(ctx, "counter", 1, time.Minute)
		require.NoError(t, err)
		assert.Equal(t, int64(2), n)

		n, err = s.Increment(ctx, "counter", 5, time.Minute)
		require.NoError(t, err)
		assert.Equal(t, int64(7), n)
	})

	t.Run("ttl only set on create", func(t *testing.T) {
		s := NewMemoryStore()
		base := time.Date(2026, 1, 15, 12, 0, 0, 0, time.UTC)
		now := base
		s.SetClock(func() time.Time { return now })

		_, err := s.Increment(ctx, "window", 1, 10*time.Second)
		require.NoError(t, err)

		// Later increments must not slide the window
		now = base.Add(8 * time.Second)
		_, err = s.Increment(ctx, "window", 1, 10*time.Second)
		require.NoError(t, err)

		now = base.Add(11 * time.Second)
		_, found, err := s.Read(ctx, "window")
		require.NoError(t, err)
		assert.False(t, found)
	})

	t.Run("restarts after expiry", func(t *testing.T) {
		s := NewMemoryStore()
		base := time.Date(2026, 1, 15, 12, 0, 0, 0, time.UTC)
		now := base
		s.SetClock(func() time.Time { return now })

		n, err := s.Increment(ctx, "counter", 1, time.Second)
		require.NoError(t, err)
		assert.Equal(t, int64(1), n)

		now = base.Add(2 * time.Second)
		n, err = s.Increment(ctx, "counter", 1, time.Second)
		require.NoError(t, err)
		assert.Equal(t, int64(1), n)
	})

	t.Run("float accumulator", func(t *testing.T) {
		s := NewMemoryStore()

		f, err := s.IncrementFloat(ctx, "spend", 0.25, time.Hour)
		require.NoError(t, err)
		assert.InDelta(t, 0.25, f, 1e-9)

		f, err = s.IncrementFloat(ctx, "spend", 1.5, time.Hour)
		require.NoError(t, err)
		assert.InDelta(t, 1.75, f, 1e-9)
	})
}

func TestIncrementHelpers(t *testing.T) {
	ctx := context.Background()

	t.Run("uses the incrementer capability", func(t *testing.T) {
		s := NewMemoryStore()

		n, err := Increment(ctx, s, "c", 1, time.Minute)
		require.NoError(t, err)
		assert.Equal(t, int64(1), n)

		f, err := IncrementFloat(ctx, s, "f", 0.5, time.Minute)
		require.NoError(t, err)
		assert.InDelta(t, 0.5, f, 1e-9)
	})

	t.Run("read helpers default to zero", func(t *testing.T) {
		s := NewMemoryStore()

		n, err := ReadInt64(ctx, s, "absent")
		require.NoError(t, err)
		assert.Equal(t, int64(0), n)

		f, err := ReadFloat64(ctx, s, "absent")
		require.NoError(t, err)
		assert.Equal(t, 0.0, f)
	})

	t.Run("read helpers parse stored values", func(t *testing.T) {
		s := NewMemoryStore()
		require.NoError(t, s.Write(ctx, "n", "42", 0))
		require.NoError(t, s.Write(ctx, "f", "3.5", 0))

		n, err := ReadInt64(ctx, s, "n")
		require.NoError(t, err)
		assert.Equal(t, int64(42), n)

		f, err := ReadFloat64(ctx, s, "f")
		require.NoError(t, err)
		assert.Equal(t, 3.5, f)
	})
}
