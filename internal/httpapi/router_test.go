package httpapi

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"llm_resilience/internal/budget"
	"llm_resilience/internal/config"
	"llm_resilience/internal/orchestrator"
	"llm_resilience/internal/providers"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticProvider struct {
	resp *providers.ChatResponse
}

func (p *staticProvider) ID() string   { return "static" }
func (p *staticProvider) Name() string { return "static" }
func (p *staticProvider) Close() error { return nil }

func (p *staticProvider) Chat(ctx context.Context, req providers.ChatRequest) (*providers.ChatResponse, error) {
	return p.resp, nil
}

func memoryConfig() *config.Config {
	return &config.Config{
		HTTPPort:  "8080",
		JWTSecret: []byte("test-secret"),
		Store:     config.StoreConfig{Backend: "memory"},
		Breaker: config.BreakerConfig{
			FailureThreshold: 3,
			FailureWindow:    time.Minute,
			Cooldown:         5 * time.Minute,
		},
		Budget: config.BudgetConfig{DailyLimitUSD: 100, Enforcement: "hard"},
		Backoff: config.BackoffConfig{
			Strategy: "constant",
			Base:     time.Millisecond,
			MaxDelay: time.Millisecond,
		},
		AttemptSink: config.AttemptSinkConfig{Backend: "noop"},
	}
}

func TestNewRouter(t *testing.T) {
	mux, deps, err := NewRouter(memoryConfig())
	require.NoError(t, err)
	t.Cleanup(func() { deps.Close() })

	t.Run("health endpoint is public", func(t *testing.T) {
		w := httptest.NewRecorder()
		mux.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("admin endpoints require a token", func(t *testing.T) {
		w := httptest.NewRecorder()
		mux.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/admin/budgets", nil))
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("executor is wired and usable", func(t *testing.T) {
		require.NotNil(t, deps.Executor)

		result, err := deps.Executor.Execute(context.Background(), orchestrator.Request{
			AgentType: "chat",
			Candidates: []orchestrator.Candidate{
				{ModelID: "gpt-4", Provider: &staticProvider{resp: &providers.ChatResponse{
					StatusCode:   200,
					InputTokens:  10,
					OutputTokens: 5,
					CostUSD:      0.002,
					ServedModel:  "gpt-4-0613",
				}}},
			},
		})
		require.NoError(t, err)
		require.NotNil(t, result.Response)
		assert.Equal(t, "gpt-4-0613", result.Log.ChosenModelID())

		// The spend lands in the budget scope the admin endpoints report on.
		status := deps.Budget.Status(context.Background(), "")
		assert.InDelta(t, 0.002, status.Scopes[budget.ScopeGlobal+":"+budget.PeriodDaily].CurrentUSD, 1e-9)
	})
}
