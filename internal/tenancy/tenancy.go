// Package tenancy carries the process-wide multi-tenancy toggle as an
// explicit configuration object rather than ambient global state.
package tenancy

import "fmt"

// Config controls how tenant identifiers are resolved and applied to store
// keys. With Enabled false every tenant-scoped key collapses onto one shared
// global identity, so legacy single-tenant deployments keep their existing
// counter namespace.
type Config struct {
	Enabled bool

	// Resolver returns the current tenant identifier, consulted only when
	// tenancy is enabled and no explicit tenant was supplied. An empty
	// return means no tenant.
	Resolver func() string
}

// Disabled is the single-tenant configuration.
func Disabled() Config {
	return Config{Enabled: false}
}

// Resolve returns the effective tenant for an operation. A supplied tenant
// id is silently ignored when tenancy is disabled.
func (c Config) Resolve(explicit string) (string, bool) {
	if !c.Enabled {
		return "", false
	}
	if explicit != "" {
		return explicit, true
	}
	if c.Resolver != nil {
		if id := c.Resolver(); id != "" {
			return id, true
		}
	}
	return "", false
}

// ScopeKey appends the tenant component to a store key. The component is
// omitted entirely, not left empty, when no tenant applies.
func (c Config) ScopeKey(base, tenantID string) string {
	if !c.Enabled || tenantID == "" {
		return base
	}
	return fmt.Sprintf("%s:tenant:%s", base, tenantID)
}
