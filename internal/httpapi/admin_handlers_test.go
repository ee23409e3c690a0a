package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"llm_resilience/internal/breaker"
	"llm_resilience/internal/budget"
	"llm_resilience/internal/logging"
	"llm_resilience/internal/store"
	"llm_resilience/internal/tenancy"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestDeps(t *testing.T) *Dependencies {
	t.Helper()
	s := store.NewMemoryStore()
	tenants := tenancy.Disabled()
	return &Dependencies{
		Store:   s,
		Tenancy: tenants,
		Breaker: breaker.Config{FailureThreshold: 3, FailureWindow: time.Minute, Cooldown: 5 * time.Minute},
		Budget:  budget.NewTracker(s, budget.StaticConfig{DailyLimitUSD: 100, Enforcement: budget.EnforcementHard}, tenants, nil),
		Records: logging.NewNoopRecordSink(),
		Logger:  logging.NewLogger("httpapi-test"),
	}
}

func TestHandleAdminCircuits(t *testing.T) {
	deps := newTestDeps(t)
	ctx := context.Background()

	t.Run("requires agent_type and model", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/admin/circuits", nil)
		w := httptest.NewRecorder()
		deps.handleAdminCircuits(w, req)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("reports closed circuit", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/admin/circuits?agent_type=chat&model=gpt-4", nil)
		w := httptest.NewRecorder()
		deps.handleAdminCircuits(w, req)
		require.Equal(t, http.StatusOK, w.Code)

		var status breaker.Status
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &status))
		assert.False(t, status.Open)
		assert.Equal(t, int64(0), status.FailureCount)
	})

	t.Run("reports open circuit", func(t *testing.T) {
		b := breaker.New(deps.Store, deps.Breaker, deps.Tenancy, "chat", "gpt-4")
		for i := 0; i < 3; i++ {
			b.RecordFailure(ctx)
		}

		req := httptest.NewRequest(http.MethodGet, "/admin/circuits?agent_type=chat&model=gpt-4", nil)
		w := httptest.NewRecorder()
		deps.handleAdminCircuits(w, req)
		require.Equal(t, http.StatusOK, w.Code)

		var status breaker.Status
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &status))
		assert.True(t, status.Open)
	})

	t.Run("rejects other methods", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodDelete, "/admin/circuits?agent_type=chat&model=gpt-4", nil)
		w := httptest.NewRecorder()
		deps.handleAdminCircuits(w, req)
		assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
	})
}

func TestHandleAdminCircuitReset(t *testing.T) {
	deps := newTestDeps(t)
	ctx := context.Background()

	b := breaker.New(deps.Store, deps.Breaker, deps.Tenancy, "chat", "gpt-4")
	for i := 0; i < 3; i++ {
		b.RecordFailure(ctx)
	}
	require.True(t, b.Open(ctx))

	req := httptest.NewRequest(http.MethodPost, "/admin/circuits/reset?agent_type=chat&model=gpt-4", nil)
	w := httptest.NewRecorder()
	deps.handleAdminCircuitReset(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	assert.False(t, b.Open(ctx))
}

func TestHandleAdminBudgets(t *testing.T) {
	deps := newTestDeps(t)
	ctx := context.Background()

	deps.Budget.RecordSpend(ctx, "chat", 12.5, "")

	req := httptest.NewRequest(http.MethodGet, "/admin/budgets", nil)
	w := httptest.NewRecorder()
	deps.handleAdminBudgets(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var status budget.Status
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &status))
	scope := status.Scopes["global:daily"]
	assert.InDelta(t, 12.5, scope.CurrentUSD, 1e-9)
	assert.Equal(t, 100.0, scope.LimitUSD)
}

func TestHandleAdminBudgetReset(t *testing.T) {
	deps := newTestDeps(t)
	ctx := context.Background()

	deps.Budget.RecordSpend(ctx, "chat", 12.5, "")

	req := httptest.NewRequest(http.MethodPost, "/admin/budgets/reset", nil)
	w := httptest.NewRecorder()
	deps.handleAdminBudgetReset(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	assert.InDelta(t, 0.0, deps.Budget.CurrentSpend(ctx, budget.ScopeGlobal, budget.PeriodDaily, ""), 1e-9)
}

func TestHandleAdminTenantBudgets_Unconfigured(t *testing.T) {
	deps := newTestDeps(t)

	req := httptest.NewRequest(http.MethodGet, "/admin/tenants/budgets", nil)
	w := httptest.NewRecorder()
	deps.handleAdminTenantBudgets(w, req)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}
