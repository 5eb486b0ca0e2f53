package models

import "time"

// SubscriptionPlan is platform-level (no tenant_id).
type SubscriptionPlan struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	Name         string    `gorm:"uniqueIndex;not null" json:"name"`
	Price        float64   `gorm:"not null" json:"price"`
	DurationDays int       `gorm:"not null" json:"duration_days"`
	MaxUsers     int       `json:"max_users"`
	MaxMenuItems int       `json:"max_menu_items"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Subscription is one billing period of a tenant. A tenant accumulates a
// history of rows; at most one is "current" (see services.SubscriptionService).
type Subscription struct {
	ID        uint               `gorm:"primaryKey" json:"id"`
	TenantID  uint               `gorm:"index;not null" json:"tenant_id"`
	PlanID    uint               `gorm:"not null" json:"plan_id"`
	StartsAt  time.Time          `gorm:"not null" json:"starts_at"`
	EndsAt    time.Time          `gorm:"not null" json:"ends_at"`
	PricePaid float64            `json:"price_paid"`
	Status    SubscriptionStatus `gorm:"not null;default:'trial'" json:"status"`
	CreatedAt time.Time          `json:"created_at"`
	UpdatedAt time.Time          `json:"updated_at"`
}
