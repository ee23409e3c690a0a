package breaker

import (
	"context"
	"errors"
	"testing"
	"time"

	"llm_resilience/internal/store"
	"llm_resilience/internal/tenancy"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() Config {
	return Config{
		FailureThreshold: 3,
		FailureWindow:    time.Minute,
		Cooldown:         5 * time.Minute,
	}
}

func TestCircuitBreaker_OpensAtThreshold(t *testing.T) {
	s := store.NewMemoryStore()
	ctx := context.Background()

	b := New(s, testConfig(), tenancy.Disabled(), "chat", "gpt-4")

	assert.False(t, b.Open(ctx))

	b.RecordFailure(ctx)
	b.RecordFailure(ctx)
	assert.False(t, b.Open(ctx))

	b.RecordFailure(ctx)
	assert.True(t, b.Open(ctx))
}

func TestCircuitBreaker_SuccessClearsCounter(t *testing.T) {
	s := store.NewMemoryStore()
	ctx := context.Background()

	b := New(s, testConfig(), tenancy.Disabled(), "chat", "gpt-4")

	b.RecordFailure(ctx)
	b.RecordFailure(ctx)
	b.RecordSuccess(ctx)

	// Counter restarted, two more failures stay under threshold
	b.RecordFailure(ctx)
	b.RecordFailure(ctx)
	assert.False(t, b.Open(ctx))

	b.RecordFailure(ctx)
	assert.True(t, b.Open(ctx))
}

func TestCircuitBreaker_TimeBasedRecovery(t *testing.T) {
	s := store.NewMemoryStore()
	ctx := context.Background()

	base := time.Date(2026, 1, 15, 12, 0, 0, 0, time.UTC)
	now := base
	s.SetClock(func() time.Time { return now })

	b := New(s, testConfig(), tenancy.Disabled(), "chat", "gpt-4")

	for i := 0; i < 3; i++ {
		b.RecordFailure(ctx)
	}
	require.True(t, b.Open(ctx))

	// Still open just before the cooldown elapses
	now = base.Add(5*time.Minute - time.Second)
	assert.True(t, b.Open(ctx))

	// Open marker expired, breaker closes on its own
	now = base.Add(5*time.Minute + time.Second)
	assert.False(t, b.Open(ctx))
}

func TestCircuitBreaker_WindowExpiryForgivesFailures(t *testing.T) {
	s := store.NewMemoryStore()
	ctx := context.Background()

	base := time.Date(2026, 1, 15, 12, 0, 0, 0, time.UTC)
	now := base
	s.SetClock(func() time.Time { return now })

	b := New(s, testConfig(), tenancy.Disabled(), "chat", "gpt-4")

	b.RecordFailure(ctx)
	b.RecordFailure(ctx)

	// Window passes, old failures expire
	now = base.Add(2 * time.Minute)
	b.RecordFailure(ctx)
	assert.False(t, b.Open(ctx))
	assert.Equal(t, int64(1), b.Status(ctx).FailureCount)
}

func TestCircuitBreaker_TenantIsolation(t *testing.T) {
	s := store.NewMemoryStore()
	ctx := context.Background()
	tenants := tenancy.Config{Enabled: true}

	acme := New(s, testConfig(), tenants, "chat", "gpt-4", WithTenant("acme"))
	globex := New(s, testConfig(), tenants, "chat", "gpt-4", WithTenant("globex"))

	for i := 0; i < 3; i++ {
		acme.RecordFailure(ctx)
	}

	assert.True(t, acme.Open(ctx))
	assert.False(t, globex.Open(ctx))
}

func TestCircuitBreaker_DisabledTenancyCollapses(t *testing.T) {
	s := store.NewMemoryStore()
	ctx := context.Background()

	// With tenancy disabled an explicit tenant id is silently ignored,
	// so both breakers share one circuit.
	acme := New(s, testConfig(), tenancy.Disabled(), "chat", "gpt-4", WithTenant("acme"))
	global := New(s, testConfig(), tenancy.Disabled(), "chat", "gpt-4")

	for i := 0; i < 3; i++ {
		acme.RecordFailure(ctx)
	}

	assert.True(t, global.Open(ctx))
	assert.Nil(t, acme.Status(ctx).TenantID)
}

func TestCircuitBreaker_Reset(t *testing.T) {
	s := store.NewMemoryStore()
	ctx := context.Background()

	b := New(s, testConfig(), tenancy.Disabled(), "chat", "gpt-4")

	for i := 0; i < 3; i++ {
		b.RecordFailure(ctx)
	}
	require.True(t, b.Open(ctx))

	b.Reset(ctx)

	status := b.Status(ctx)
	assert.False(t, status.Open)
	assert.Equal(t, int64(0), status.FailureCount)
}

func TestCircuitBreaker_Status(t *testing.T) {
	s := store.NewMemoryStore()
	ctx := context.Background()
	tenants := tenancy.Config{Enabled: true}

	b := New(s, testConfig(), tenants, "chat", "gpt-4", WithTenant("acme"))
	b.RecordFailure(ctx)

	status := b.Status(ctx)
	require.NotNil(t, status.TenantID)
	assert.Equal(t, "acme", *status.TenantID)
	assert.False(t, status.Open)
	assert.Equal(t, int64(1), status.FailureCount)
}

// failingStore errors on every operation.
type failingStore struct{}

func (failingStore) Read(ctx context.Context, key string) (string, bool, error) {
	return "", false, errors.New("store down")
}
func (failingStore) Write(ctx context.Context, key, value string, ttl time.Duration) error {
	return errors.New("store down")
}
func (failingStore) Delete(ctx context.Context, key string) (bool, error) {
	return false, errors.New("store down")
}
func (failingStore) Exists(ctx context.Context, key string) (bool, error) {
	return false, errors.New("store down")
}

func TestCircuitBreaker_StoreOutageReadsClosed(t *testing.T) {
	ctx := context.Background()

	b := New(failingStore{}, testConfig(), tenancy.Disabled(), "chat", "gpt-4")

	// A store outage never blocks traffic
	for i := 0; i < 10; i++ {
		b.RecordFailure(ctx)
	}
	assert.False(t, b.Open(ctx))
	assert.Equal(t, int64(0), b.Status(ctx).FailureCount)
}
