package httpapi

import (
	"net/http"

	"llm_resilience/internal/breaker"
	"llm_resilience/internal/middleware"
	"llm_resilience/internal/utils"
)

// handleAdminCircuits reports the state of one circuit.
// GET /admin/circuits?agent_type=...&model=...&tenant_id=...
func (d *Dependencies) handleAdminCircuits(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		utils.RespondMethodNotAllowed(w)
		return
	}

	agentType := r.URL.Query().Get("agent_type")
	modelID := r.URL.Query().Get("model")
	if agentType == "" || modelID == "" {
		utils.RespondWithError(w, http.StatusBadRequest, "agent_type and model are required")
		return
	}

	b := d.newBreaker(r, agentType, modelID)
	utils.RespondWithJSON(w, http.StatusOK, b.Status(r.Context()))
}

// handleAdminCircuitReset force-closes one circuit.
// POST /admin/circuits/reset?agent_type=...&model=...&tenant_id=...
func (d *Dependencies) handleAdminCircuitReset(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		utils.RespondMethodNotAllowed(w)
		return
	}

	agentType := r.URL.Query().Get("agent_type")
	modelID := r.URL.Query().Get("model")
	if agentType == "" || modelID == "" {
		utils.RespondWithError(w, http.StatusBadRequest, "agent_type and model are required")
		return
	}

	b := d.newBreaker(r, agentType, modelID)
	b.Reset(r.Context())

	if adminID, ok := middleware.GetAdminID(r.Context()); ok {
		d.Logger.Info("circuit reset", "admin_id", adminID, "agent_type", agentType, "model", modelID)
	}
	utils.RespondWithJSON(w, http.StatusOK, b.Status(r.Context()))
}

func (d *Dependencies) newBreaker(r *http.Request, agentType, modelID string) *breaker.CircuitBreaker {
	opts := []breaker.Option{breaker.WithLogger(d.Logger)}
	if tenantID := r.URL.Query().Get("tenant_id"); tenantID != "" {
		opts = append(opts, breaker.WithTenant(tenantID))
	}
	return breaker.New(d.Store, d.Breaker, d.Tenancy, agentType, modelID, opts...)
}
