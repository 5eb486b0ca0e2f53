package models

// Closed status vocabularies. Keeping these typed (instead of bare strings)
// lets transition and side-effect code switch exhaustively.
type OrderStatus string
type OrderType string
type PaymentStatus string
type TableStatus string
type StockMovementType string
type SubscriptionStatus string
type Role string

const (
	OrderPending   OrderStatus = "pending"
	OrderConfirmed OrderStatus = "confirmed"
	OrderPreparing OrderStatus = "preparing"
	OrderReady     OrderStatus = "ready"
	OrderServed    OrderStatus = "served"
	OrderCompleted OrderStatus = "completed"
	OrderCancelled OrderStatus = "cancelled"

	TypeDineIn   OrderType = "dine_in"
	TypeTakeaway OrderType = "takeaway"
	TypeDelivery OrderType = "delivery"

	PaymentUnpaid PaymentStatus = "unpaid"
	PaymentPaid   PaymentStatus = "paid"

	TableAvailable   TableStatus = "available"
	TableOccupied    TableStatus = "occupied"
	TableReserved    TableStatus = "reserved"
	TableMaintenance TableStatus = "maintenance"

	MovementIn          StockMovementType = "in"
	MovementOut         StockMovementType = "out"
	MovementAdjustment  StockMovementType = "adjustment"
	MovementWaste       StockMovementType = "waste"
	MovementOrderDeduct StockMovementType = "order_deduct"

	SubscriptionTrial     SubscriptionStatus = "trial"
	SubscriptionActive    SubscriptionStatus = "active"
	SubscriptionExpired   SubscriptionStatus = "expired"
	SubscriptionCancelled SubscriptionStatus = "cancelled"

	RoleSuperAdmin Role = "super_admin"
	RoleOwner      Role = "owner"
	RoleManager    Role = "manager"
	RoleCashier    Role = "cashier"
	RoleKitchen    Role = "kitchen"
)

// Valid reports whether s is one of the seven order statuses.
func (s OrderStatus) Valid() bool {
	switch s {
	case OrderPending, OrderConfirmed, OrderPreparing, OrderReady, OrderServed, OrderCompleted, OrderCancelled:
		return true
	}
	return false
}

// Terminal reports whether no further transition is allowed out of s.
func (s OrderStatus) Terminal() bool {
	return s == OrderCompleted || s == OrderCancelled
}

func (t StockMovementType) Valid() bool {
	switch t {
	case MovementIn, MovementOut, MovementAdjustment, MovementWaste, MovementOrderDeduct:
		return true
	}
	return false
}
