package services

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/kedaiku/pos/internal/models"
	"github.com/kedaiku/pos/internal/scope"
)

var (
	ErrInvalidStatus        = errors.New("invalid_order_status")
	ErrTerminalStatus       = errors.New("order_in_terminal_status")
	ErrEmptyOrder           = errors.New("order_has_no_items")
	ErrConfirmationRequired = errors.New("confirmation_phrase_required")
	ErrOrderNumberExhausted = errors.New("order_number_allocation_failed")
)

const orderNumberRetries = 5

// OrderService owns the order lifecycle: creation with per-day sequence
// numbers, item snapshots, total recalculation, status transitions and the
// table-occupancy side effect.
type OrderService struct {
	DB *gorm.DB
}

func NewOrderService(db *gorm.DB) *OrderService { return &OrderService{DB: db} }

type OrderItemInput struct {
	MenuItemID    uint
	MenuVariantID *uint
	Quantity      int
	Notes         string
	ModifierIDs   []uint
}

type CreateOrderInput struct {
	TenantID       uint
	TableID        *uint
	CustomerID     *uint
	UserID         *uint
	Type           models.OrderType
	DiscountAmount float64
	Notes          string
	Items          []OrderItemInput
}

// GenerateOrderNumber allocates the next ORD-{tenant}-{YYYYMMDD}-{seq:04d}
// number by scanning the tenant's existing numbers for today. Runs outside
// the ambient tenant scope since the new row does not exist yet; uniqueness
// is ultimately enforced by the (tenant_id, order_number) index plus the
// retry loop in CreateOrder.
func (s *OrderService) GenerateOrderNumber(tx *gorm.DB, tenantID uint, now time.Time) string {
	prefix := fmt.Sprintf("ORD-%d-%s-", tenantID, now.Format("20060102"))
	var last models.Order
	seq := 1
	err := scope.AllTenants().Apply(tx.Model(&models.Order{})).
		Where("tenant_id = ? AND order_number LIKE ?", tenantID, prefix+"%").
		Order("order_number desc").
		First(&last).Error
	if err == nil {
		if n, convErr := strconv.Atoi(strings.TrimPrefix(last.OrderNumber, prefix)); convErr == nil {
			seq = n + 1
		}
	}
	return fmt.Sprintf("%s%04d", prefix, seq)
}

// CreateOrder persists a new order with denormalized item snapshots and
// recalculated totals, all in one transaction. Duplicate order numbers from
// concurrent creation are retried with a freshly scanned sequence.
func (s *OrderService) CreateOrder(in CreateOrderInput) (*models.Order, error) {
	if len(in.Items) == 0 {
		return nil, ErrEmptyOrder
	}
	if in.Type == "" {
		in.Type = models.TypeDineIn
	}
	var order *models.Order
	for attempt := 0; attempt < orderNumberRetries; attempt++ {
		o := models.Order{
			TenantID:       in.TenantID,
			TableID:        in.TableID,
			CustomerID:     in.CustomerID,
			UserID:         in.UserID,
			Type:           in.Type,
			Status:         models.OrderPending,
			PaymentStatus:  models.PaymentUnpaid,
			DiscountAmount: in.DiscountAmount,
			Notes:          in.Notes,
		}
		err := s.DB.Transaction(func(tx *gorm.DB) error {
			o.OrderNumber = s.GenerateOrderNumber(tx, in.TenantID, time.Now())
			if err := tx.Create(&o).Error; err != nil {
				return err
			}
			for _, it := range in.Items {
				if _, err := s.addItemTx(tx, &o, it); err != nil {
					return err
				}
			}
			return s.RecalculateTotals(tx, &o)
		})
		if err == nil {
			order = &o
			break
		}
		if isDuplicateErr(err) {
			log.Warnf("order number conflict for tenant %d, retrying (%d)", in.TenantID, attempt+1)
			continue
		}
		return nil, err
	}
	if order == nil {
		return nil, ErrOrderNumberExhausted
	}
	return order, nil
}

// addItemTx snapshots the menu item, variant and modifiers into immutable
// order rows. Prices are copied so later menu edits leave history intact.
func (s *OrderService) addItemTx(tx *gorm.DB, o *models.Order, in OrderItemInput) (*models.OrderItem, error) {
	if in.Quantity <= 0 {
		return nil, errors.New("quantity_must_be_positive")
	}
	var mi models.MenuItem
	if err := scope.Tenant(o.TenantID).Apply(tx).First(&mi, in.MenuItemID).Error; err != nil {
		return nil, err
	}
	price := mi.Price
	variantName := ""
	if in.MenuVariantID != nil {
		var v models.MenuVariant
		if err := tx.Where("menu_item_id = ?", mi.ID).First(&v, *in.MenuVariantID).Error; err != nil {
			return nil, err
		}
		price = v.Price
		variantName = v.Name
	}
	item := models.OrderItem{
		OrderID:       o.ID,
		MenuItemID:    mi.ID,
		MenuVariantID: in.MenuVariantID,
		ItemName:      mi.Name,
		VariantName:   variantName,
		UnitPrice:     price,
		Quantity:      in.Quantity,
		Notes:         in.Notes,
	}
	modifierTotal := 0.0
	var mods []models.OrderItemModifier
	for _, mid := range in.ModifierIDs {
		var mm models.MenuModifier
		if err := scope.Tenant(o.TenantID).Apply(tx).First(&mm, mid).Error; err != nil {
			return nil, err
		}
		mods = append(mods, models.OrderItemModifier{Name: mm.Name, Price: mm.Price})
		modifierTotal += mm.Price
	}
	item.Subtotal = (price + modifierTotal) * float64(in.Quantity)
	if err := tx.Create(&item).Error; err != nil {
		return nil, err
	}
	for i := range mods {
		mods[i].OrderItemID = item.ID
	}
	if len(mods) > 0 {
		if err := tx.Create(&mods).Error; err != nil {
			return nil, err
		}
	}
	return &item, nil
}

// AddItem appends an item to an existing non-terminal order and refreshes
// totals within the same transaction.
func (s *OrderService) AddItem(orderID uint, tenantID uint, in OrderItemInput) (*models.Order, error) {
	var o models.Order
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		if err := scope.Tenant(tenantID).Apply(tx).First(&o, orderID).Error; err != nil {
			return err
		}
		if o.Status.Terminal() {
			return ErrTerminalStatus
		}
		if _, err := s.addItemTx(tx, &o, in); err != nil {
			return err
		}
		return s.RecalculateTotals(tx, &o)
	})
	if err != nil {
		return nil, err
	}
	return &o, nil
}

// RemoveItem deletes an item (and its modifiers) and refreshes totals.
func (s *OrderService) RemoveItem(orderID, itemID, tenantID uint) (*models.Order, error) {
	var o models.Order
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		if err := scope.Tenant(tenantID).Apply(tx).First(&o, orderID).Error; err != nil {
			return err
		}
		if o.Status.Terminal() {
			return ErrTerminalStatus
		}
		var item models.OrderItem
		if err := tx.Where("order_id = ?", o.ID).First(&item, itemID).Error; err != nil {
			return err
		}
		if err := tx.Where("order_item_id = ?", item.ID).Delete(&models.OrderItemModifier{}).Error; err != nil {
			return err
		}
		if err := tx.Delete(&item).Error; err != nil {
			return err
		}
		return s.RecalculateTotals(tx, &o)
	})
	if err != nil {
		return nil, err
	}
	return &o, nil
}

// RecalculateTotals recomputes subtotal from the item rows, applies the
// tenant's tax and service-charge percentages, subtracts the discount and
// floors the total at zero. Callers mutate items only through this service,
// which always invokes it in the same transaction.
func (s *OrderService) RecalculateTotals(tx *gorm.DB, o *models.Order) error {
	var subtotal float64
	row := tx.Model(&models.OrderItem{}).Where("order_id = ?", o.ID).Select("COALESCE(SUM(subtotal), 0)").Row()
	if err := row.Scan(&subtotal); err != nil {
		return err
	}
	var tenant models.Tenant
	if err := tx.First(&tenant, o.TenantID).Error; err != nil {
		return err
	}
	o.Subtotal = subtotal
	o.TaxAmount = subtotal * tenant.TaxRate / 100
	o.ServiceCharge = subtotal * tenant.ServiceChargeRate / 100
	total := o.Subtotal + o.TaxAmount + o.ServiceCharge - o.DiscountAmount
	if total < 0 {
		total = 0
	}
	o.Total = total
	return tx.Model(o).Updates(map[string]interface{}{
		"subtotal":       o.Subtotal,
		"tax_amount":     o.TaxAmount,
		"service_charge": o.ServiceCharge,
		"total":          o.Total,
	}).Error
}

// Transition moves the order to newStatus, stamping the matching timestamp
// the first time that status is reached, then applies the table-occupancy
// rule. Terminal states accept no further transitions; beyond that, no
// legality check is made on jumps (the POS and kitchen drive the sequence).
func (s *OrderService) Transition(o *models.Order, newStatus models.OrderStatus) error {
	if !newStatus.Valid() {
		return ErrInvalidStatus
	}
	if o.Status.Terminal() {
		return ErrTerminalStatus
	}
	return s.DB.Transaction(func(tx *gorm.DB) error {
		o.Status = newStatus
		if ts := o.StatusTimestamp(newStatus); ts != nil && *ts == nil {
			now := time.Now()
			*ts = &now
		}
		if err := tx.Save(o).Error; err != nil {
			return err
		}
		return s.applyTableRule(tx, o)
	})
}

// applyTableRule ties table availability to the statuses of its orders:
// an active order marks the table occupied, and a terminal order frees it
// only when no sibling order on the table is still active. Pending orders
// and orders without a table are no-ops. The sibling query runs cross-tenant
// for parity with the occupancy semantics (a table belongs to one tenant, so
// this is not a security boundary).
func (s *OrderService) applyTableRule(tx *gorm.DB, o *models.Order) error {
	if o.TableID == nil {
		return nil
	}
	switch o.Status {
	case models.OrderConfirmed, models.OrderPreparing, models.OrderReady, models.OrderServed:
		return tx.Model(&models.Table{}).
			Where("id = ? AND status <> ?", *o.TableID, models.TableOccupied).
			Update("status", models.TableOccupied).Error
	case models.OrderCompleted, models.OrderCancelled:
		var active int64
		err := scope.AllTenants().Apply(tx.Model(&models.Order{})).
			Where("table_id = ? AND id <> ? AND status NOT IN ?", *o.TableID, o.ID,
				[]models.OrderStatus{models.OrderCompleted, models.OrderCancelled}).
			Count(&active).Error
		if err != nil {
			return err
		}
		if active == 0 {
			return tx.Model(&models.Table{}).
				Where("id = ? AND status = ?", *o.TableID, models.TableOccupied).
				Update("status", models.TableAvailable).Error
		}
	}
	return nil
}

// MarkPaid records a payment row and flips the order's payment status.
func (s *OrderService) MarkPaid(orderID, tenantID uint, method string, amount float64, receivedBy *uint) (*models.Payment, error) {
	var p models.Payment
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		var o models.Order
		if err := scope.Tenant(tenantID).Apply(tx).First(&o, orderID).Error; err != nil {
			return err
		}
		p = models.Payment{TenantID: tenantID, OrderID: o.ID, Method: method, Amount: amount, ReceivedBy: receivedBy, PaidAt: time.Now()}
		if err := tx.Create(&p).Error; err != nil {
			return err
		}
		return tx.Model(&o).Update("payment_status", models.PaymentPaid).Error
	})
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// DeductStockForOrder records order_deduct movements for every ingredient
// referenced by the order's items through recipes. Invoked explicitly by the
// fulfillment endpoint; it is not an implicit lifecycle hook.
func (s *OrderService) DeductStockForOrder(stock *StockService, o *models.Order, actor *uint) error {
	return s.DB.Transaction(func(tx *gorm.DB) error {
		var items []models.OrderItem
		if err := tx.Where("order_id = ?", o.ID).Find(&items).Error; err != nil {
			return err
		}
		for _, item := range items {
			var recipes []models.Recipe
			if err := scope.Tenant(o.TenantID).Apply(tx).Where("menu_item_id = ?", item.MenuItemID).Find(&recipes).Error; err != nil {
				return err
			}
			for _, rc := range recipes {
				_, err := stock.recordMovementTx(tx, MovementInput{
					TenantID:     o.TenantID,
					IngredientID: rc.IngredientID,
					Type:         models.MovementOrderDeduct,
					Quantity:     rc.QuantityNeeded * float64(item.Quantity),
					Reference:    o.OrderNumber,
					UserID:       actor,
				})
				if err != nil {
					return err
				}
			}
		}
		return nil
	})
}

// ResetTransactions is the owner-only irreversible bulk wipe of all orders,
// items, modifiers and payments for a tenant. Occupied tables revert to
// available; reserved/maintenance are left alone.
func (s *OrderService) ResetTransactions(tenantID uint, confirm string) error {
	if confirm != "RESET" {
		return ErrConfirmationRequired
	}
	return s.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec(`DELETE FROM order_item_modifiers WHERE order_item_id IN
			(SELECT id FROM order_items WHERE order_id IN (SELECT id FROM orders WHERE tenant_id = ?))`, tenantID).Error; err != nil {
			return err
		}
		if err := tx.Exec(`DELETE FROM order_items WHERE order_id IN (SELECT id FROM orders WHERE tenant_id = ?)`, tenantID).Error; err != nil {
			return err
		}
		if err := tx.Where("tenant_id = ?", tenantID).Delete(&models.Payment{}).Error; err != nil {
			return err
		}
		if err := tx.Where("tenant_id = ?", tenantID).Delete(&models.Order{}).Error; err != nil {
			return err
		}
		return tx.Model(&models.Table{}).
			Where("tenant_id = ? AND status = ?", tenantID, models.TableOccupied).
			Update("status", models.TableAvailable).Error
	})
}

func isDuplicateErr(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique") || strings.Contains(msg, "duplicate")
}
