package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"llm_resilience/internal/budget"
	"llm_resilience/internal/logging"
	"llm_resilience/internal/models"
)

// TenantBudgetRepository handles tenant budget override database operations.
// It implements budget.OverrideLookup.
type TenantBudgetRepository struct {
	db     *DB
	logger *logging.Logger
}

// NewTenantBudgetRepository creates a new tenant budget repository
func (db *DB) NewTenantBudgetRepository() *TenantBudgetRepository {
	return &TenantBudgetRepository{
		db:     db,
		logger: logging.NewLogger("tenant-budgets"),
	}
}

// Available probes whether the tenant_budgets table exists. Deployments that
// never migrated the override table simply run on the static budget. The
// budget tracker caches this answer process-wide.
func (r *TenantBudgetRepository) Available(ctx context.Context) bool {
	var regclass sql.NullString
	err := r.db.conn.GetContext(ctx, &regclass, `SELECT to_regclass('tenant_budgets')`)
	if err != nil {
		r.logger.Error("failed to probe tenant_budgets table", "error", err)
		return false
	}
	return regclass.Valid
}

// Lookup returns the budget override for a tenant, or nil when none exists.
func (r *TenantBudgetRepository) Lookup(ctx context.Context, tenantID string) (*budget.Policy, error) {
	record, err := r.GetByTenantID(ctx, tenantID)
	if err != nil {
		if errors.Is(err, ErrTenantBudgetNotFound) {
			return nil, nil
		}
		return nil, err
	}

	return &budget.Policy{
		LimitUSD:    record.DailyLimitUSD,
		Enforcement: budget.Enforcement(record.Enforcement),
	}, nil
}

// GetByTenantID retrieves a tenant budget override by tenant id
func (r *TenantBudgetRepository) GetByTenantID(ctx context.Context, tenantID string) (*models.TenantBudget, error) {
	cacheKey := "tenant_budget:" + tenantID
	if cached, found := r.db.tenantBudgetCache.Get(cacheKey); found {
		if record, ok := cached.(*models.TenantBudget); ok {
			return record, nil
		}
	}

	var record models.TenantBudget
	query := `
		SELECT id, tenant_id, daily_limit_usd, enforcement, created_at, updated_at
		FROM tenant_budgets
		WHERE tenant_id = $1
	`

	err := r.db.conn.GetContext(ctx, &record, query, tenantID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTenantBudgetNotFound
		}
		return nil, fmt.Errorf("failed to get tenant budget: %w", err)
	}

	r.db.tenantBudgetCache.Set(cacheKey, &record)
	return &record, nil
}

// List returns all tenant budget overrides
func (r *TenantBudgetRepository) List(ctx context.Context) ([]*models.TenantBudget, error) {
	query := `
		SELECT id, tenant_id, daily_limit_usd, enforcement, created_at, updated_at
		FROM tenant_budgets
		ORDER BY tenant_id
	`

	var records []*models.TenantBudget
	if err := r.db.conn.SelectContext(ctx, &records, query); err != nil {
		return nil, fmt.Errorf("failed to list tenant budgets: %w", err)
	}

	return records, nil
}

// Upsert creates or updates a tenant budget override
func (r *TenantBudgetRepository) Upsert(ctx context.Context, record *models.TenantBudget) error {
	query := `
		INSERT INTO tenant_budgets (id, tenant_id, daily_limit_usd, enforcement, created_at, updated_at)
		VALUES ($1, $2, $3, $4, NOW(), NOW())
		ON CONFLICT (tenant_id) DO UPDATE
		SET daily_limit_usd = EXCLUDED.daily_limit_usd,
		    enforcement = EXCLUDED.enforcement,
		    updated_at = NOW()
	`

	if _, err := r.db.conn.ExecContext(ctx, query,
		record.ID, record.TenantID, record.DailyLimitUSD, record.Enforcement); err != nil {
		return fmt.Errorf("failed to upsert tenant budget: %w", err)
	}

	r.db.tenantBudgetCache.Delete("tenant_budget:" + record.TenantID)
	return nil
}
