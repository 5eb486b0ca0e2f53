// Package scope makes tenant isolation an explicit query parameter instead
// of ambient state. Every tenant-scoped query threads a Scope through; the
// AllTenants bypass exists only for the narrow administrative call sites
// (order-number generation, table sibling checks, platform backup,
// super-admin views).
package scope

import "gorm.io/gorm"

type Scope struct {
	tenantID uint
	all      bool
}

// Tenant scopes queries to a single tenant.
func Tenant(id uint) Scope { return Scope{tenantID: id} }

// AllTenants is the explicit cross-tenant bypass.
func AllTenants() Scope { return Scope{all: true} }

// All reports whether the scope bypasses tenant filtering.
func (s Scope) All() bool { return s.all }

// TenantID returns the scoped tenant id (0 when All).
func (s Scope) TenantID() uint { return s.tenantID }

// Apply returns a gorm scope closure adding the tenant filter unless bypassed.
func (s Scope) Apply(db *gorm.DB) *gorm.DB {
	if s.all {
		return db
	}
	return db.Where("tenant_id = ?", s.tenantID)
}
