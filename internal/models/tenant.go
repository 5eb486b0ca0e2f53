package models

import "time"

// Tenant is one cafe account, the unit of data partitioning. Every
// tenant-owned row carries TenantID; deleting a tenant removes all of them.
type Tenant struct {
	ID                uint      `gorm:"primaryKey" json:"id"`
	Name              string    `gorm:"not null" json:"name"`
	Slug              string    `gorm:"uniqueIndex;not null" json:"slug"`
	TaxRate           float64   `json:"tax_rate"`            // percent, e.g. 10 for 10%
	ServiceChargeRate float64   `json:"service_charge_rate"` // percent
	Active            bool      `gorm:"default:true" json:"active"`
	LogoPath          string    `json:"logo_path"`
	ThemeColor        string    `json:"theme_color"`
	Address           string    `json:"address"`
	Phone             string    `json:"phone"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

type User struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	TenantID  *uint     `gorm:"index" json:"tenant_id"` // nil for platform super admins
	Name      string    `gorm:"not null" json:"name"`
	Email     string    `gorm:"uniqueIndex;not null" json:"email"`
	Password  string    `gorm:"not null" json:"-"` // bcrypt hash
	Role      Role      `gorm:"not null;default:'cashier'" json:"role"`
	Active    bool      `gorm:"default:true" json:"active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type Customer struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	TenantID  uint      `gorm:"index;not null" json:"tenant_id"`
	Name      string    `gorm:"not null" json:"name"`
	Phone     string    `json:"phone"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
