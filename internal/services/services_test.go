package services

import (
	"fmt"
	"testing"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/kedaiku/pos/internal/models"
)

func setupServiceDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	all := []interface{}{
		&models.Tenant{}, &models.User{}, &models.Category{}, &models.MenuItem{},
		&models.MenuVariant{}, &models.MenuModifier{}, &models.MenuItemModifier{},
		&models.Table{}, &models.Customer{}, &models.Order{}, &models.OrderItem{},
		&models.OrderItemModifier{}, &models.Payment{}, &models.Ingredient{},
		&models.Recipe{}, &models.StockMovement{}, &models.SubscriptionPlan{},
		&models.Subscription{}, &models.SystemSetting{}, &models.AuditLog{},
	}
	if err := db.AutoMigrate(all...); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

// seedCafe creates a tenant (10% tax, 5% service charge) with one category,
// one 20000 menu item with a 25000 variant, a 3000 modifier and one table.
func seedCafe(t *testing.T, db *gorm.DB) (tenant models.Tenant, item models.MenuItem, variant models.MenuVariant, modifier models.MenuModifier, table models.Table) {
	t.Helper()
	tenant = models.Tenant{Name: "Kopi Test", Slug: "kopi-test", TaxRate: 10, ServiceChargeRate: 5, Active: true}
	if err := db.Create(&tenant).Error; err != nil {
		t.Fatalf("tenant: %v", err)
	}
	cat := models.Category{TenantID: tenant.ID, Name: "Coffee", Active: true}
	if err := db.Create(&cat).Error; err != nil {
		t.Fatalf("category: %v", err)
	}
	item = models.MenuItem{TenantID: tenant.ID, CategoryID: cat.ID, Name: "Latte", Price: 20000, Available: true}
	if err := db.Create(&item).Error; err != nil {
		t.Fatalf("menu item: %v", err)
	}
	variant = models.MenuVariant{MenuItemID: item.ID, Name: "Large", Price: 25000}
	if err := db.Create(&variant).Error; err != nil {
		t.Fatalf("variant: %v", err)
	}
	modifier = models.MenuModifier{TenantID: tenant.ID, Name: "Extra Shot", Price: 3000}
	if err := db.Create(&modifier).Error; err != nil {
		t.Fatalf("modifier: %v", err)
	}
	table = models.Table{TenantID: tenant.ID, Number: "T1", Seats: 4}
	if err := db.Create(&table).Error; err != nil {
		t.Fatalf("table: %v", err)
	}
	return
}

func seedIngredient(t *testing.T, db *gorm.DB, tenantID uint, stock float64) models.Ingredient {
	t.Helper()
	ing := models.Ingredient{TenantID: tenantID, Name: "Milk", Unit: "ml", CurrentStock: stock, MinimumStock: 100, CostPerUnit: 15}
	if err := db.Create(&ing).Error; err != nil {
		t.Fatalf("ingredient: %v", err)
	}
	return ing
}
