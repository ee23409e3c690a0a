// Package breaker implements a counter-store-backed circuit breaker keyed by
// (agent type, model, tenant). Because all state lives in the shared store,
// breakers in different processes agree on when a model is failing.
package breaker

import (
	"context"
	"fmt"
	"time"

	"llm_resilience/internal/logging"
	"llm_resilience/internal/store"
	"llm_resilience/internal/tenancy"
)

// Config holds circuit breaker thresholds
type Config struct {
	FailureThreshold int           // failures within the window before opening
	FailureWindow    time.Duration // expiry of the failure counter
	Cooldown         time.Duration // how long the breaker stays open
}

// DefaultConfig provides reasonable defaults
func DefaultConfig() Config {
	return Config{
		FailureThreshold: 5,
		FailureWindow:    1 * time.Minute,
		Cooldown:         5 * time.Minute,
	}
}

// Status is a point-in-time snapshot of one breaker.
type Status struct {
	TenantID     *string `json:"tenant_id"`
	Open         bool    `json:"open"`
	FailureCount int64   `json:"failure_count"`
}

// CircuitBreaker gates calls to one (agent type, model) pair for one tenant.
// It is a stateless wrapper over the store: state is two time-windowed keys,
// a failure counter (TTL = window) and an open marker (TTL = cooldown). The
// breaker is open exactly while the marker exists; recovery is time based.
//
// Store failures are logged and treated as "unknown, proceed as closed" so a
// counter-store outage never takes requests down with it.
type CircuitBreaker struct {
	store     store.Store
	cfg       Config
	agentType string
	modelID   string
	tenantID  string
	hasTenant bool
	tenant    tenancy.Config
	logger    *logging.Logger
}

// Option customizes breaker construction.
type Option func(*CircuitBreaker)

// WithTenant pins the breaker to an explicit tenant id instead of consulting
// the tenancy resolver.
func WithTenant(tenantID string) Option {
	return func(b *CircuitBreaker) {
		b.tenantID, b.hasTenant = b.tenant.Resolve(tenantID)
	}
}

// WithLogger overrides the default logger.
func WithLogger(logger *logging.Logger) Option {
	return func(b *CircuitBreaker) {
		b.logger = logger
	}
}

// New creates a breaker for the given agent type and model. The tenant is
// resolved once, at construction.
func New(s store.Store, cfg Config, tenant tenancy.Config, agentType, modelID string, opts ...Option) *CircuitBreaker {
	b := &CircuitBreaker{
		store:     s,
		cfg:       cfg,
		agentType: agentType,
		modelID:   modelID,
		tenant:    tenant,
		logger:    logging.NewLogger("breaker"),
	}
	b.tenantID, b.hasTenant = tenant.Resolve("")
	for _, opt := range opts {
		opt(b)
	}
	return b
}

func (b *CircuitBreaker) failureKey() string {
	return b.tenant.ScopeKey(fmt.Sprintf("breaker:failures:%s:%s", b.agentType, b.modelID), b.tenantID)
}

func (b *CircuitBreaker) openKey() string {
	return b.tenant.ScopeKey(fmt.Sprintf("breaker:open:%s:%s", b.agentType, b.modelID), b.tenantID)
}

// RecordFailure increments the failure counter, opening the breaker once the
// count reaches the threshold within the window.
func (b *CircuitBreaker) RecordFailure(ctx context.Context) {
	count, err := store.Increment(ctx, b.store, b.failureKey(), 1, b.cfg.FailureWindow)
	if err != nil {
		b.logger.Error("failed to record failure, treating breaker as closed",
			"agent", b.agentType, "model", b.modelID, "error", err)
		return
	}

	if count >= int64(b.cfg.FailureThreshold) {
		if err := b.store.Write(ctx, b.openKey(), "1", b.cfg.Cooldown); err != nil {
			b.logger.Error("failed to open breaker",
				"agent", b.agentType, "model", b.modelID, "error", err)
			return
		}
		b.logger.Warn("breaker opened",
			"agent", b.agentType, "model", b.modelID,
			"failures", count, "cooldown", b.cfg.Cooldown)
	}
}

// RecordSuccess clears the failure counter so stale failures do not
// accumulate across a long window. Callers that skip it still get an upper
// bound on staleness from the window expiry.
func (b *CircuitBreaker) RecordSuccess(ctx context.Context) {
	if _, err := b.store.Delete(ctx, b.failureKey()); err != nil {
		b.logger.Error("failed to clear failure counter",
			"agent", b.agentType, "model", b.modelID, "error", err)
	}
}

// Open reports whether calls should be blocked. Store errors read as closed.
func (b *CircuitBreaker) Open(ctx context.Context) bool {
	open, err := b.store.Exists(ctx, b.openKey())
	if err != nil {
		b.logger.Error("failed to check breaker state, treating as closed",
			"agent", b.agentType, "model", b.modelID, "error", err)
		return false
	}
	return open
}

// Reset deletes both the failure counter and the open marker. Used for
// operator intervention and tenant-scoped resets.
func (b *CircuitBreaker) Reset(ctx context.Context) {
	if _, err := b.store.Delete(ctx, b.failureKey()); err != nil {
		b.logger.Error("failed to reset failure counter",
			"agent", b.agentType, "model", b.modelID, "error", err)
	}
	if _, err := b.store.Delete(ctx, b.openKey()); err != nil {
		b.logger.Error("failed to reset open marker",
			"agent", b.agentType, "model", b.modelID, "error", err)
	}
}

// Status returns the tenant, open flag and current failure count.
func (b *CircuitBreaker) Status(ctx context.Context) Status {
	status := Status{Open: b.Open(ctx)}
	if b.hasTenant {
		tenantID := b.tenantID
		status.TenantID = &tenantID
	}

	count, err := store.ReadInt64(ctx, b.store, b.failureKey())
	if err != nil {
		b.logger.Error("failed to read failure counter",
			"agent", b.agentType, "model", b.modelID, "error", err)
		return status
	}
	status.FailureCount = count
	return status
}
