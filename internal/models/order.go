package models

import "time"

// Order is the central transactional record. OrderNumber is unique per
// tenant (composite index) and doubles as the customer-facing lookup key.
type Order struct {
	ID          uint   `gorm:"primaryKey" json:"id"`
	TenantID    uint   `gorm:"not null;index:idx_tenant_order_number,unique,priority:1" json:"tenant_id"`
	OrderNumber string `gorm:"not null;index:idx_tenant_order_number,unique,priority:2" json:"order_number"`
	TableID     *uint  `gorm:"index" json:"table_id"`
	CustomerID  *uint  `json:"customer_id"`
	UserID      *uint  `json:"user_id"` // cashier/waiter who took the order

	Type          OrderType     `gorm:"not null;default:'dine_in'" json:"type"`
	Status        OrderStatus   `gorm:"not null;default:'pending'" json:"status"`
	PaymentStatus PaymentStatus `gorm:"not null;default:'unpaid'" json:"payment_status"`

	Subtotal       float64 `gorm:"not null" json:"subtotal"`
	TaxAmount      float64 `gorm:"not null" json:"tax_amount"`
	ServiceCharge  float64 `gorm:"not null" json:"service_charge"`
	DiscountAmount float64 `gorm:"not null" json:"discount_amount"`
	Total          float64 `gorm:"not null" json:"total"`

	Notes string `json:"notes"`

	// Timestamps are stamped once when the status is first reached and
	// never cleared afterwards.
	ConfirmedAt *time.Time `json:"confirmed_at"`
	PreparingAt *time.Time `json:"preparing_at"`
	ReadyAt     *time.Time `json:"ready_at"`
	ServedAt    *time.Time `json:"served_at"`
	CompletedAt *time.Time `json:"completed_at"`
	CancelledAt *time.Time `json:"cancelled_at"`

	Items     []OrderItem `gorm:"foreignKey:OrderID" json:"items,omitempty"`
	CreatedAt time.Time   `json:"created_at"`
	UpdatedAt time.Time   `json:"updated_at"`
}

// StatusTimestamp returns the pointer to the timestamp field matching s,
// or nil when s has no timestamp (pending).
func (o *Order) StatusTimestamp(s OrderStatus) **time.Time {
	switch s {
	case OrderConfirmed:
		return &o.ConfirmedAt
	case OrderPreparing:
		return &o.PreparingAt
	case OrderReady:
		return &o.ReadyAt
	case OrderServed:
		return &o.ServedAt
	case OrderCompleted:
		return &o.CompletedAt
	case OrderCancelled:
		return &o.CancelledAt
	}
	return nil
}

// OrderItem snapshots the menu item at order time. Later menu edits must not
// alter historical orders, so name and prices are denormalized here.
type OrderItem struct {
	ID            uint    `gorm:"primaryKey" json:"id"`
	OrderID       uint    `gorm:"index;not null" json:"order_id"`
	MenuItemID    uint    `gorm:"not null" json:"menu_item_id"`
	MenuVariantID *uint   `json:"menu_variant_id"`
	ItemName      string  `gorm:"not null" json:"item_name"`
	VariantName   string  `json:"variant_name"`
	UnitPrice     float64 `gorm:"not null" json:"unit_price"`
	Quantity      int     `gorm:"not null" json:"quantity"`
	Subtotal      float64 `gorm:"not null" json:"subtotal"`
	Notes         string  `json:"notes"`

	Modifiers []OrderItemModifier `gorm:"foreignKey:OrderItemID" json:"modifiers,omitempty"`
	CreatedAt time.Time           `json:"created_at"`
}

type OrderItemModifier struct {
	ID          uint    `gorm:"primaryKey" json:"id"`
	OrderItemID uint    `gorm:"index;not null" json:"order_item_id"`
	Name        string  `gorm:"not null" json:"name"`
	Price       float64 `json:"price"`
}

type Payment struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	TenantID   uint      `gorm:"index;not null" json:"tenant_id"`
	OrderID    uint      `gorm:"index;not null" json:"order_id"`
	Method     string    `gorm:"not null" json:"method"` // cash, card, qris, transfer
	Amount     float64   `gorm:"not null" json:"amount"`
	ReceivedBy *uint     `json:"received_by"`
	PaidAt     time.Time `json:"paid_at"`
	CreatedAt  time.Time `json:"created_at"`
}
