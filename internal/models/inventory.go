package models

import "time"

// Inventory models. CurrentStock is a cache of the movement ledger's running
// balance; it is only ever mutated together with a StockMovement insert.
type Ingredient struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	TenantID     uint      `gorm:"index;not null" json:"tenant_id"`
	Name         string    `gorm:"not null" json:"name"`
	Unit         string    `json:"unit"` // g, ml, pcs
	CurrentStock float64   `gorm:"not null" json:"current_stock"`
	MinimumStock float64   `gorm:"not null" json:"minimum_stock"`
	CostPerUnit  float64   `gorm:"not null" json:"cost_per_unit"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// IsLowStock reports whether the ingredient is at or below its reorder level.
func (i *Ingredient) IsLowStock() bool { return i.CurrentStock <= i.MinimumStock }

// StockMovement is an append-only audit row. Never updated or deleted.
type StockMovement struct {
	ID           uint              `gorm:"primaryKey" json:"id"`
	TenantID     uint              `gorm:"index;not null" json:"tenant_id"`
	IngredientID uint              `gorm:"index;not null" json:"ingredient_id"`
	Type         StockMovementType `gorm:"not null" json:"type"`
	Quantity     float64           `gorm:"not null" json:"quantity"`
	CostPerUnit  float64           `json:"cost_per_unit"`
	Reference    string            `json:"reference"`
	Notes        string            `json:"notes"`
	UserID       *uint             `json:"user_id"`
	CreatedAt    time.Time         `json:"created_at"`
}

// Recipe links a menu item to the ingredients consumed per unit sold.
type Recipe struct {
	ID             uint    `gorm:"primaryKey" json:"id"`
	TenantID       uint    `gorm:"index;not null" json:"tenant_id"`
	MenuItemID     uint    `gorm:"index;not null" json:"menu_item_id"`
	IngredientID   uint    `gorm:"index;not null" json:"ingredient_id"`
	QuantityNeeded float64 `gorm:"not null" json:"quantity_needed"`
}
