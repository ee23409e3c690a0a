package storage

import "errors"

// ErrTenantBudgetNotFound is returned when no budget override exists for a
// tenant.
var ErrTenantBudgetNotFound = errors.New("tenant budget not found")
