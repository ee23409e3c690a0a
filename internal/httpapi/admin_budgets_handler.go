package httpapi

import (
	"encoding/json"
	"net/http"
	"time"

	"llm_resilience/internal/middleware"
	"llm_resilience/internal/models"
	"llm_resilience/internal/utils"

	"github.com/google/uuid"
)

// handleAdminBudgets reports current spend against the resolved limits.
// GET /admin/budgets?tenant_id=...
func (d *Dependencies) handleAdminBudgets(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		utils.RespondMethodNotAllowed(w)
		return
	}

	tenantID := r.URL.Query().Get("tenant_id")
	utils.RespondWithJSON(w, http.StatusOK, d.Budget.Status(r.Context(), tenantID))
}

// handleAdminBudgetReset clears the current period's ledger.
// POST /admin/budgets/reset?tenant_id=...
func (d *Dependencies) handleAdminBudgetReset(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		utils.RespondMethodNotAllowed(w)
		return
	}

	tenantID := r.URL.Query().Get("tenant_id")
	d.Budget.Reset(r.Context(), tenantID)

	if adminID, ok := middleware.GetAdminID(r.Context()); ok {
		d.Logger.Info("budget ledger reset", "admin_id", adminID, "tenant_id", tenantID)
	}
	utils.RespondWithJSON(w, http.StatusOK, d.Budget.Status(r.Context(), tenantID))
}

type tenantBudgetRequest struct {
	TenantID      string  `json:"tenant_id"`
	DailyLimitUSD float64 `json:"daily_limit_usd"`
	Enforcement   string  `json:"enforcement"`
}

// handleAdminTenantBudgets manages persisted per-tenant budget overrides.
// GET lists all overrides, PUT upserts one.
func (d *Dependencies) handleAdminTenantBudgets(w http.ResponseWriter, r *http.Request) {
	if d.Overrides == nil {
		utils.RespondWithError(w, http.StatusServiceUnavailable, "Tenant budget store not configured")
		return
	}

	switch r.Method {
	case http.MethodGet:
		records, err := d.Overrides.List(r.Context())
		if err != nil {
			utils.RespondWithError(w, http.StatusInternalServerError, "Failed to list tenant budgets")
			return
		}
		utils.RespondWithJSON(w, http.StatusOK, records)

	case http.MethodPut:
		var req tenantBudgetRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			utils.RespondWithError(w, http.StatusBadRequest, "Invalid request body")
			return
		}
		if req.TenantID == "" {
			utils.RespondWithError(w, http.StatusBadRequest, "tenant_id is required")
			return
		}
		if req.Enforcement != "hard" && req.Enforcement != "soft" {
			utils.RespondWithError(w, http.StatusBadRequest, "enforcement must be hard or soft")
			return
		}

		record := &models.TenantBudget{
			ID:            uuid.New(),
			TenantID:      req.TenantID,
			DailyLimitUSD: req.DailyLimitUSD,
			Enforcement:   req.Enforcement,
			CreatedAt:     time.Now().UTC(),
			UpdatedAt:     time.Now().UTC(),
		}
		if err := d.Overrides.Upsert(r.Context(), record); err != nil {
			utils.RespondWithError(w, http.StatusInternalServerError, "Failed to save tenant budget")
			return
		}
		// Pick up a table created after the first probe.
		d.Budget.ResetProbe()
		utils.RespondWithJSON(w, http.StatusOK, record)

	default:
		utils.RespondMethodNotAllowed(w)
	}
}
