package models

import "time"

// Menu domain models
type Category struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	TenantID  uint      `gorm:"index;not null" json:"tenant_id"`
	Name      string    `gorm:"not null" json:"name"`
	SortOrder int       `json:"sort_order"`
	Active    bool      `gorm:"default:true" json:"active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type MenuItem struct {
	ID          uint          `gorm:"primaryKey" json:"id"`
	TenantID    uint          `gorm:"index;not null" json:"tenant_id"`
	CategoryID  uint          `gorm:"index;not null" json:"category_id"`
	Name        string        `gorm:"not null" json:"name"`
	Description string        `json:"description"`
	Price       float64       `gorm:"not null" json:"price"`
	ImagePath   string        `json:"image_path"`
	Available   bool          `gorm:"default:true" json:"available"`
	Variants    []MenuVariant `gorm:"foreignKey:MenuItemID" json:"variants,omitempty"`
	CreatedAt   time.Time     `json:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at"`
}

// MenuVariant is a size/preparation option overriding the base price.
type MenuVariant struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	MenuItemID uint      `gorm:"index;not null" json:"menu_item_id"`
	Name       string    `gorm:"not null" json:"name"`
	Price      float64   `gorm:"not null" json:"price"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

type MenuModifier struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	TenantID  uint      `gorm:"index;not null" json:"tenant_id"`
	Name      string    `gorm:"not null" json:"name"`
	Price     float64   `json:"price"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// MenuItemModifier links items to the modifiers offered for them.
// Kept as an explicit model (not a gorm many2many) so backup/restore can
// remap both sides of the pivot.
type MenuItemModifier struct {
	ID             uint `gorm:"primaryKey" json:"id"`
	MenuItemID     uint `gorm:"index;not null" json:"menu_item_id"`
	MenuModifierID uint `gorm:"index;not null" json:"menu_modifier_id"`
}
