// Package budget tracks spend against per-period limits in the shared
// counter store and enforces them per tenant.
package budget

import (
	"context"
	"fmt"
	"time"

	"llm_resilience/internal/logging"
	"llm_resilience/internal/store"
	"llm_resilience/internal/tenancy"
)

// Enforcement decides what happens when spend passes the limit.
type Enforcement string

const (
	EnforcementHard Enforcement = "hard" // block the call
	EnforcementSoft Enforcement = "soft" // record only
)

// Known scope/period pairs; the ledger currently tracks one of each.
const (
	ScopeGlobal = "global"
	PeriodDaily = "daily"
)

// ledgerSlack keeps a just-expired ledger readable briefly past the period
// boundary instead of cutting it off mid-request.
const ledgerSlack = time.Hour

// Policy is the resolved limit for one tenant. LimitUSD 0 means unrestricted.
type Policy struct {
	LimitUSD    float64
	Enforcement Enforcement
}

// StaticConfig is the process-wide budget applied when no tenant override
// exists, including to entirely unknown tenant ids.
type StaticConfig struct {
	DailyLimitUSD float64
	Enforcement   Enforcement
}

// OverrideLookup resolves tenant-specific budget overrides from external
// persistence. Available probes whether the backing store exists at all; the
// Tracker caches that answer for the process lifetime.
type OverrideLookup interface {
	Available(ctx context.Context) bool
	Lookup(ctx context.Context, tenantID string) (*Policy, error)
}

// ExceededError is returned by CheckBudget under hard enforcement.
type ExceededError struct {
	TenantID   string
	BudgetType string
	LimitUSD   float64
	CurrentUSD float64
}

func (e *ExceededError) Error() string {
	if e.TenantID != "" {
		return fmt.Sprintf("budget exceeded for tenant %s: %s spend %.4f over limit %.4f",
			e.TenantID, e.BudgetType, e.CurrentUSD, e.LimitUSD)
	}
	return fmt.Sprintf("budget exceeded: %s spend %.4f over limit %.4f",
		e.BudgetType, e.CurrentUSD, e.LimitUSD)
}

// DomainError marks ExceededError as part of the resilience error hierarchy.
func (e *ExceededError) DomainError() {}

// ScopeStatus reports one scope/period ledger.
type ScopeStatus struct {
	CurrentUSD  float64     `json:"current"`
	LimitUSD    float64     `json:"limit"`
	Enforcement Enforcement `json:"enforcement"`
}

// Status maps scope:period to ledger state for one tenant.
type Status struct {
	TenantID *string                `json:"tenant_id"`
	Scopes   map[string]ScopeStatus `json:"scopes"`
}

// Tracker is a stateless wrapper over the counter store: every operation
// reads or writes through it, so concurrent requests across processes see
// one ledger. The only in-process state is the cached override probe.
type Tracker struct {
	store     store.Store
	static    StaticConfig
	tenant    tenancy.Config
	overrides OverrideLookup
	logger    *logging.Logger

	probe probeCache
	now   func() time.Time
}

// NewTracker creates a budget tracker. overrides may be nil when no tenant
// override store is configured.
func NewTracker(s store.Store, static StaticConfig, tenant tenancy.Config, overrides OverrideLookup) *Tracker {
	return &Tracker{
		store:     s,
		static:    static,
		tenant:    tenant,
		overrides: overrides,
		logger:    logging.NewLogger("budget"),
		now:       time.Now,
	}
}

// SetClock overrides the time source, for tests.
func (t *Tracker) SetClock(now func() time.Time) { t.now = now }

// ledgerKey returns the store key for the current period; the date component
// plus the TTL make the accumulator reset naturally at period boundaries.
func (t *Tracker) ledgerKey(scope, period, tenantID string) string {
	base := fmt.Sprintf("budget:%s:%s:%s", scope, period, t.now().UTC().Format("20060102"))
	return t.tenant.ScopeKey(base, tenantID)
}

// ledgerTTL is the time remaining until the end of the current day plus
// slack, so the key outlives the period by a little and then disappears.
func (t *Tracker) ledgerTTL() time.Duration {
	now := t.now().UTC()
	endOfDay := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC).Add(24 * time.Hour)
	return endOfDay.Sub(now) + ledgerSlack
}

// RecordSpend atomically adds amount to the current period's ledger for the
// resolved tenant. Store failures are logged, not returned: losing one spend
// sample must not abort the request that produced it.
func (t *Tracker) RecordSpend(ctx context.Context, agentType string, amountUSD float64, tenantID string) {
	resolved, _ := t.tenant.Resolve(tenantID)
	key := t.ledgerKey(ScopeGlobal, PeriodDaily, resolved)

	total, err := store.IncrementFloat(ctx, t.store, key, amountUSD, t.ledgerTTL())
	if err != nil {
		t.logger.Error("failed to record spend",
			"agent", agentType, "amount", amountUSD, "tenant", resolved, "error", err)
		return
	}
	t.logger.Debug("recorded spend",
		"agent", agentType, "amount", amountUSD, "tenant", resolved, "total", total)
}

// CurrentSpend returns the ledger value for the given scope and period, or 0
// when the key is absent or the store is unreachable.
func (t *Tracker) CurrentSpend(ctx context.Context, scope, period, tenantID string) float64 {
	resolved, _ := t.tenant.Resolve(tenantID)
	key := t.ledgerKey(scope, period, resolved)

	value, err := store.ReadFloat64(ctx, t.store, key)
	if err != nil {
		t.logger.Error("failed to read spend, treating as 0", "key", key, "error", err)
		return 0
	}
	return value
}

// CheckBudget resolves the applicable policy and compares current spend
// against its limit. It returns *ExceededError only under hard enforcement
// with spend strictly over the limit; soft enforcement and unrestricted
// budgets always pass.
func (t *Tracker) CheckBudget(ctx context.Context, agentType, tenantID string) error {
	resolved, _ := t.tenant.Resolve(tenantID)
	policy := t.resolvePolicy(ctx, resolved)

	if policy.LimitUSD <= 0 {
		return nil
	}

	current := t.CurrentSpend(ctx, ScopeGlobal, PeriodDaily, resolved)
	if current > policy.LimitUSD && policy.Enforcement == EnforcementHard {
		return &ExceededError{
			TenantID:   resolved,
			BudgetType: PeriodDaily,
			LimitUSD:   policy.LimitUSD,
			CurrentUSD: current,
		}
	}

	if current > policy.LimitUSD {
		t.logger.Warn("soft budget limit exceeded",
			"agent", agentType, "tenant", resolved,
			"current", current, "limit", policy.LimitUSD)
	}
	return nil
}

// Reset clears the current period's ledger for one tenant (or the global
// ledger when tenancy is disabled) without touching other tenants.
func (t *Tracker) Reset(ctx context.Context, tenantID string) {
	resolved, _ := t.tenant.Resolve(tenantID)
	key := t.ledgerKey(ScopeGlobal, PeriodDaily, resolved)
	if _, err := t.store.Delete(ctx, key); err != nil {
		t.logger.Error("failed to reset ledger", "key", key, "error", err)
	}
}

// Status reports current spend, limit and enforcement per known scope/period.
func (t *Tracker) Status(ctx context.Context, tenantID string) Status {
	resolved, hasTenant := t.tenant.Resolve(tenantID)
	policy := t.resolvePolicy(ctx, resolved)

	status := Status{Scopes: map[string]ScopeStatus{}}
	if hasTenant {
		id := resolved
		status.TenantID = &id
	}
	status.Scopes[ScopeGlobal+":"+PeriodDaily] = ScopeStatus{
		CurrentUSD:  t.CurrentSpend(ctx, ScopeGlobal, PeriodDaily, resolved),
		LimitUSD:    policy.LimitUSD,
		Enforcement: policy.Enforcement,
	}
	return status
}

// resolvePolicy applies the resolution order: tenant override (when tenancy
// is enabled and the override store exists), then the static configuration.
// A tenant override fully replaces the static budget; limits are not merged.
func (t *Tracker) resolvePolicy(ctx context.Context, tenantID string) Policy {
	static := Policy{LimitUSD: t.static.DailyLimitUSD, Enforcement: t.static.Enforcement}
	if static.Enforcement == "" {
		static.Enforcement = EnforcementHard
	}

	if tenantID == "" || t.overrides == nil {
		return static
	}
	if !t.probe.available(ctx, t.overrides) {
		return static
	}

	override, err := t.overrides.Lookup(ctx, tenantID)
	if err != nil {
		t.logger.Error("failed to look up tenant budget override, applying static budget",
			"tenant", tenantID, "error", err)
		return static
	}
	if override == nil {
		return static
	}

	resolved := *override
	if resolved.Enforcement == "" {
		resolved.Enforcement = EnforcementHard
	}
	return resolved
}

// ResetProbe invalidates the cached override-store probe so the next check
// asks again. Exposed for operator use after provisioning the override table.
func (t *Tracker) ResetProbe() {
	t.probe.reset()
}
