package services

import (
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"gorm.io/gorm"

	"github.com/kedaiku/pos/internal/models"
)

func TestCreateOrderAssignsSequentialNumbers(t *testing.T) {
	db := setupServiceDB(t)
	tenant, item, _, _, _ := seedCafe(t, db)
	svc := NewOrderService(db)

	var numbers []string
	for i := 0; i < 3; i++ {
		o, err := svc.CreateOrder(CreateOrderInput{
			TenantID: tenant.ID,
			Type:     models.TypeTakeaway,
			Items:    []OrderItemInput{{MenuItemID: item.ID, Quantity: 1}},
		})
		if err != nil {
			t.Fatalf("create order %d: %v", i, err)
		}
		numbers = append(numbers, o.OrderNumber)
	}
	prefix := fmt.Sprintf("ORD-%d-%s-", tenant.ID, time.Now().Format("20060102"))
	for i, n := range numbers {
		want := fmt.Sprintf("%s%04d", prefix, i+1)
		if n != want {
			t.Fatalf("order %d: number %q, want %q", i, n, want)
		}
	}
}

func TestCreateOrderConcurrentNumbersUnique(t *testing.T) {
	db := setupServiceDB(t)
	tenant, item, _, _, _ := seedCafe(t, db)
	svc := NewOrderService(db)

	const workers, perWorker = 4, 5
	errs := make(chan error, workers*perWorker)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perWorker; i++ {
				_, err := svc.CreateOrder(CreateOrderInput{
					TenantID: tenant.ID,
					Type:     models.TypeTakeaway,
					Items:    []OrderItemInput{{MenuItemID: item.ID, Quantity: 1}},
				})
				errs <- err
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Fatalf("concurrent create: %v", err)
		}
	}

	var orders []models.Order
	if err := db.Where("tenant_id = ?", tenant.ID).Find(&orders).Error; err != nil {
		t.Fatalf("load orders: %v", err)
	}
	if len(orders) != workers*perWorker {
		t.Fatalf("expected %d orders, got %d", workers*perWorker, len(orders))
	}
	seen := map[string]bool{}
	for _, o := range orders {
		if seen[o.OrderNumber] {
			t.Fatalf("duplicate order number %q", o.OrderNumber)
		}
		seen[o.OrderNumber] = true
	}
}

func TestIsDuplicateErr(t *testing.T) {
	cases := []struct {
		err  error
		want bool
	}{
		{nil, false},
		{gorm.ErrDuplicatedKey, true},
		{errors.New("UNIQUE constraint failed: orders.tenant_id, orders.order_number"), true},
		{errors.New(`duplicate key value violates unique constraint "idx_tenant_order_number"`), true},
		{errors.New("connection refused"), false},
	}
	for _, c := range cases {
		if got := isDuplicateErr(c.err); got != c.want {
			t.Fatalf("isDuplicateErr(%v) = %v, want %v", c.err, got, c.want)
		}
	}
}

func TestOrderNumbersIndependentPerTenant(t *testing.T) {
	db := setupServiceDB(t)
	tenant, item, _, _, _ := seedCafe(t, db)
	other := models.Tenant{Name: "Other", Slug: "other", Active: true}
	if err := db.Create(&other).Error; err != nil {
		t.Fatalf("tenant: %v", err)
	}
	cat := models.Category{TenantID: other.ID, Name: "Tea", Active: true}
	if err := db.Create(&cat).Error; err != nil {
		t.Fatalf("category: %v", err)
	}
	otherItem := models.MenuItem{TenantID: other.ID, CategoryID: cat.ID, Name: "Chai", Price: 10000, Available: true}
	if err := db.Create(&otherItem).Error; err != nil {
		t.Fatalf("item: %v", err)
	}

	svc := NewOrderService(db)
	if _, err := svc.CreateOrder(CreateOrderInput{TenantID: tenant.ID, Items: []OrderItemInput{{MenuItemID: item.ID, Quantity: 1}}}); err != nil {
		t.Fatalf("first tenant order: %v", err)
	}
	o2, err := svc.CreateOrder(CreateOrderInput{TenantID: other.ID, Items: []OrderItemInput{{MenuItemID: otherItem.ID, Quantity: 1}}})
	if err != nil {
		t.Fatalf("second tenant order: %v", err)
	}
	want := fmt.Sprintf("ORD-%d-%s-0001", other.ID, time.Now().Format("20060102"))
	if o2.OrderNumber != want {
		t.Fatalf("second tenant starts at %q, want %q", o2.OrderNumber, want)
	}
}

func TestCreateOrderSnapshotsAndTotals(t *testing.T) {
	db := setupServiceDB(t)
	tenant, item, variant, modifier, _ := seedCafe(t, db)
	svc := NewOrderService(db)

	o, err := svc.CreateOrder(CreateOrderInput{
		TenantID: tenant.ID,
		Type:     models.TypeDineIn,
		Items: []OrderItemInput{{
			MenuItemID:    item.ID,
			MenuVariantID: &variant.ID,
			Quantity:      2,
			ModifierIDs:   []uint{modifier.ID},
		}},
	})
	if err != nil {
		t.Fatalf("create order: %v", err)
	}

	// variant price 25000 + modifier 3000, twice
	wantSubtotal := (25000.0 + 3000.0) * 2
	if o.Subtotal != wantSubtotal {
		t.Fatalf("subtotal %f, want %f", o.Subtotal, wantSubtotal)
	}
	if o.TaxAmount != wantSubtotal*0.10 {
		t.Fatalf("tax %f, want %f", o.TaxAmount, wantSubtotal*0.10)
	}
	if o.ServiceCharge != wantSubtotal*0.05 {
		t.Fatalf("service charge %f, want %f", o.ServiceCharge, wantSubtotal*0.05)
	}
	if o.Total != wantSubtotal*1.15 {
		t.Fatalf("total %f, want %f", o.Total, wantSubtotal*1.15)
	}

	// Renaming the menu item must not alter the stored snapshot.
	if err := db.Model(&models.MenuItem{}).Where("id = ?", item.ID).Updates(map[string]interface{}{"name": "Renamed", "price": 99999}).Error; err != nil {
		t.Fatalf("rename item: %v", err)
	}
	var items []models.OrderItem
	if err := db.Where("order_id = ?", o.ID).Find(&items).Error; err != nil {
		t.Fatalf("load items: %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("expected 1 item, got %d", len(items))
	}
	if items[0].ItemName != "Latte" || items[0].VariantName != "Large" || items[0].UnitPrice != 25000 {
		t.Fatalf("snapshot mutated: %+v", items[0])
	}
}

func TestCreateOrderRejectsEmpty(t *testing.T) {
	db := setupServiceDB(t)
	tenant, _, _, _, _ := seedCafe(t, db)
	svc := NewOrderService(db)
	if _, err := svc.CreateOrder(CreateOrderInput{TenantID: tenant.ID}); !errors.Is(err, ErrEmptyOrder) {
		t.Fatalf("expected ErrEmptyOrder, got %v", err)
	}
}

func TestDiscountFloorsTotalAtZero(t *testing.T) {
	db := setupServiceDB(t)
	tenant, item, _, _, _ := seedCafe(t, db)
	svc := NewOrderService(db)
	o, err := svc.CreateOrder(CreateOrderInput{
		TenantID:       tenant.ID,
		DiscountAmount: 1000000,
		Items:          []OrderItemInput{{MenuItemID: item.ID, Quantity: 1}},
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if o.Total != 0 {
		t.Fatalf("total %f, want 0", o.Total)
	}
}

func TestTransitionStampsTimestampOnce(t *testing.T) {
	db := setupServiceDB(t)
	tenant, item, _, _, _ := seedCafe(t, db)
	svc := NewOrderService(db)
	o, err := svc.CreateOrder(CreateOrderInput{TenantID: tenant.ID, Items: []OrderItemInput{{MenuItemID: item.ID, Quantity: 1}}})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := svc.Transition(o, models.OrderConfirmed); err != nil {
		t.Fatalf("confirm: %v", err)
	}
	if o.ConfirmedAt == nil {
		t.Fatalf("ConfirmedAt not stamped")
	}
	first := *o.ConfirmedAt

	// Bounce through preparing and back; the original stamp must survive.
	if err := svc.Transition(o, models.OrderPreparing); err != nil {
		t.Fatalf("preparing: %v", err)
	}
	time.Sleep(10 * time.Millisecond)
	if err := svc.Transition(o, models.OrderConfirmed); err != nil {
		t.Fatalf("re-confirm: %v", err)
	}
	if !o.ConfirmedAt.Equal(first) {
		t.Fatalf("ConfirmedAt overwritten: %v vs %v", o.ConfirmedAt, first)
	}
}

func TestTerminalOrderRejectsTransitions(t *testing.T) {
	db := setupServiceDB(t)
	tenant, item, _, _, _ := seedCafe(t, db)
	svc := NewOrderService(db)
	o, err := svc.CreateOrder(CreateOrderInput{TenantID: tenant.ID, Items: []OrderItemInput{{MenuItemID: item.ID, Quantity: 1}}})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := svc.Transition(o, models.OrderCompleted); err != nil {
		t.Fatalf("complete: %v", err)
	}
	if err := svc.Transition(o, models.OrderPreparing); !errors.Is(err, ErrTerminalStatus) {
		t.Fatalf("expected ErrTerminalStatus, got %v", err)
	}
	if err := svc.Transition(o, models.OrderStatus("bogus")); !errors.Is(err, ErrInvalidStatus) {
		t.Fatalf("expected ErrInvalidStatus, got %v", err)
	}
}

func tableStatus(t *testing.T, db *gorm.DB, id uint) models.TableStatus {
	t.Helper()
	var tb models.Table
	if err := db.First(&tb, id).Error; err != nil {
		t.Fatalf("load table: %v", err)
	}
	return tb.Status
}

func TestTableOccupancyFollowsOrderLifecycle(t *testing.T) {
	db := setupServiceDB(t)
	tenant, item, _, _, table := seedCafe(t, db)
	svc := NewOrderService(db)

	o1, err := svc.CreateOrder(CreateOrderInput{TenantID: tenant.ID, TableID: &table.ID, Items: []OrderItemInput{{MenuItemID: item.ID, Quantity: 1}}})
	if err != nil {
		t.Fatalf("order 1: %v", err)
	}
	// Pending does not touch the table.
	if got := tableStatus(t, db, table.ID); got != models.TableAvailable {
		t.Fatalf("table after pending: %s", got)
	}
	if err := svc.Transition(o1, models.OrderConfirmed); err != nil {
		t.Fatalf("confirm 1: %v", err)
	}
	if got := tableStatus(t, db, table.ID); got != models.TableOccupied {
		t.Fatalf("table after confirm: %s", got)
	}

	o2, err := svc.CreateOrder(CreateOrderInput{TenantID: tenant.ID, TableID: &table.ID, Items: []OrderItemInput{{MenuItemID: item.ID, Quantity: 1}}})
	if err != nil {
		t.Fatalf("order 2: %v", err)
	}
	if err := svc.Transition(o2, models.OrderConfirmed); err != nil {
		t.Fatalf("confirm 2: %v", err)
	}

	// Completing one of two active orders keeps the table occupied.
	if err := svc.Transition(o1, models.OrderCompleted); err != nil {
		t.Fatalf("complete 1: %v", err)
	}
	if got := tableStatus(t, db, table.ID); got != models.TableOccupied {
		t.Fatalf("table after first completion: %s", got)
	}

	// Cancelling the last active order frees it.
	if err := svc.Transition(o2, models.OrderCancelled); err != nil {
		t.Fatalf("cancel 2: %v", err)
	}
	if got := tableStatus(t, db, table.ID); got != models.TableAvailable {
		t.Fatalf("table after last terminal: %s", got)
	}
}

func TestTerminalOrderLeavesManualTableStatusAlone(t *testing.T) {
	db := setupServiceDB(t)
	tenant, item, _, _, table := seedCafe(t, db)
	svc := NewOrderService(db)

	o, err := svc.CreateOrder(CreateOrderInput{TenantID: tenant.ID, TableID: &table.ID, Items: []OrderItemInput{{MenuItemID: item.ID, Quantity: 1}}})
	if err != nil {
		t.Fatalf("order: %v", err)
	}
	if err := svc.Transition(o, models.OrderConfirmed); err != nil {
		t.Fatalf("confirm: %v", err)
	}
	// Staff flips the table to maintenance while the order is live.
	if err := db.Model(&models.Table{}).Where("id = ?", table.ID).Update("status", models.TableMaintenance).Error; err != nil {
		t.Fatalf("maintenance: %v", err)
	}
	if err := svc.Transition(o, models.OrderCompleted); err != nil {
		t.Fatalf("complete: %v", err)
	}
	if got := tableStatus(t, db, table.ID); got != models.TableMaintenance {
		t.Fatalf("release clobbered manual status: %s", got)
	}
}

func TestAddAndRemoveItemRefreshTotals(t *testing.T) {
	db := setupServiceDB(t)
	tenant, item, _, _, _ := seedCafe(t, db)
	svc := NewOrderService(db)
	o, err := svc.CreateOrder(CreateOrderInput{TenantID: tenant.ID, Items: []OrderItemInput{{MenuItemID: item.ID, Quantity: 1}}})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	base := o.Total

	o2, err := svc.AddItem(o.ID, tenant.ID, OrderItemInput{MenuItemID: item.ID, Quantity: 2})
	if err != nil {
		t.Fatalf("add item: %v", err)
	}
	if o2.Total <= base {
		t.Fatalf("total did not grow: %f -> %f", base, o2.Total)
	}

	var items []models.OrderItem
	if err := db.Where("order_id = ?", o.ID).Find(&items).Error; err != nil {
		t.Fatalf("items: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(items))
	}
	o3, err := svc.RemoveItem(o.ID, items[1].ID, tenant.ID)
	if err != nil {
		t.Fatalf("remove item: %v", err)
	}
	if o3.Total != base {
		t.Fatalf("total after removal %f, want %f", o3.Total, base)
	}
}

func TestMarkPaidRecordsPayment(t *testing.T) {
	db := setupServiceDB(t)
	tenant, item, _, _, _ := seedCafe(t, db)
	svc := NewOrderService(db)
	o, err := svc.CreateOrder(CreateOrderInput{TenantID: tenant.ID, Items: []OrderItemInput{{MenuItemID: item.ID, Quantity: 1}}})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	p, err := svc.MarkPaid(o.ID, tenant.ID, "cash", o.Total, nil)
	if err != nil {
		t.Fatalf("pay: %v", err)
	}
	if p.Method != "cash" || p.Amount != o.Total {
		t.Fatalf("unexpected payment: %+v", p)
	}
	var reloaded models.Order
	if err := db.First(&reloaded, o.ID).Error; err != nil {
		t.Fatalf("reload: %v", err)
	}
	if reloaded.PaymentStatus != models.PaymentPaid {
		t.Fatalf("payment status %s", reloaded.PaymentStatus)
	}
}

func TestDeductStockForOrder(t *testing.T) {
	db := setupServiceDB(t)
	tenant, item, _, _, _ := seedCafe(t, db)
	ing := seedIngredient(t, db, tenant.ID, 1000)
	if err := db.Create(&models.Recipe{TenantID: tenant.ID, MenuItemID: item.ID, IngredientID: ing.ID, QuantityNeeded: 50}).Error; err != nil {
		t.Fatalf("recipe: %v", err)
	}
	svc := NewOrderService(db)
	stock := NewStockService(db)
	o, err := svc.CreateOrder(CreateOrderInput{TenantID: tenant.ID, Items: []OrderItemInput{{MenuItemID: item.ID, Quantity: 3}}})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := svc.DeductStockForOrder(stock, o, nil); err != nil {
		t.Fatalf("deduct: %v", err)
	}
	var reloaded models.Ingredient
	if err := db.First(&reloaded, ing.ID).Error; err != nil {
		t.Fatalf("reload: %v", err)
	}
	if reloaded.CurrentStock != 1000-150 {
		t.Fatalf("stock %f, want 850", reloaded.CurrentStock)
	}
	var mv models.StockMovement
	if err := db.Where("ingredient_id = ?", ing.ID).First(&mv).Error; err != nil {
		t.Fatalf("movement: %v", err)
	}
	if mv.Type != models.MovementOrderDeduct || mv.Reference != o.OrderNumber {
		t.Fatalf("unexpected movement: %+v", mv)
	}
}

func TestResetTransactions(t *testing.T) {
	db := setupServiceDB(t)
	tenant, item, _, _, table := seedCafe(t, db)
	svc := NewOrderService(db)

	o, err := svc.CreateOrder(CreateOrderInput{TenantID: tenant.ID, TableID: &table.ID, Items: []OrderItemInput{{MenuItemID: item.ID, Quantity: 1}}})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := svc.Transition(o, models.OrderConfirmed); err != nil {
		t.Fatalf("confirm: %v", err)
	}
	if _, err := svc.MarkPaid(o.ID, tenant.ID, "cash", o.Total, nil); err != nil {
		t.Fatalf("pay: %v", err)
	}
	reserved := models.Table{TenantID: tenant.ID, Number: "T2", Status: models.TableReserved}
	if err := db.Create(&reserved).Error; err != nil {
		t.Fatalf("reserved table: %v", err)
	}

	if err := svc.ResetTransactions(tenant.ID, "nope"); !errors.Is(err, ErrConfirmationRequired) {
		t.Fatalf("expected confirmation error, got %v", err)
	}
	if err := svc.ResetTransactions(tenant.ID, "RESET"); err != nil {
		t.Fatalf("reset: %v", err)
	}

	for name, model := range map[string]interface{}{
		"orders":      &models.Order{},
		"order_items": &models.OrderItem{},
		"payments":    &models.Payment{},
	} {
		var n int64
		if err := db.Model(model).Count(&n).Error; err != nil {
			t.Fatalf("count %s: %v", name, err)
		}
		if n != 0 {
			t.Fatalf("%s not wiped: %d rows", name, n)
		}
	}
	// Menu survives, occupied table freed, reserved untouched.
	var menuCount int64
	if err := db.Model(&models.MenuItem{}).Count(&menuCount).Error; err != nil {
		t.Fatalf("count menu: %v", err)
	}
	if menuCount != 1 {
		t.Fatalf("menu items wiped")
	}
	if got := tableStatus(t, db, table.ID); got != models.TableAvailable {
		t.Fatalf("occupied table not freed: %s", got)
	}
	if got := tableStatus(t, db, reserved.ID); got != models.TableReserved {
		t.Fatalf("reserved table touched: %s", got)
	}
}
