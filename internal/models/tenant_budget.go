package models

import (
	"time"

	"github.com/google/uuid"
)

// TenantBudget is a persisted per-tenant budget override. When present it
// fully replaces the process-wide static budget for that tenant.
type TenantBudget struct {
	ID            uuid.UUID `db:"id" json:"id"`
	TenantID      string    `db:"tenant_id" json:"tenant_id"`
	DailyLimitUSD float64   `db:"daily_limit_usd" json:"daily_limit_usd"`
	Enforcement   string    `db:"enforcement" json:"enforcement"` // "hard" or "soft"
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time `db:"updated_at" json:"updated_at"`
}
