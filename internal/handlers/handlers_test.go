package handlers

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/kedaiku/pos/internal/auth"
	"github.com/kedaiku/pos/internal/models"
)

func setupHandlerDB(t *testing.T) *gorm.DB {
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

// seedHandlerTenant creates a tenant, an owner account and a small menu.
func seedHandlerTenant(t *testing.T, db *gorm.DB) (models.Tenant, models.User, models.MenuItem, models.Table) {
	t.Helper()
	tenant := models.Tenant{Name: "Kopi Handler", Slug: "kopi-handler", TaxRate: 10, ServiceChargeRate: 5, Active: true}
	if err := db.Create(&tenant).Error; err != nil {
		t.Fatalf("tenant: %v", err)
	}
	hash, err := HashPassword("secret123")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	owner := models.User{TenantID: &tenant.ID, Name: "Owner", Email: "owner@handler.test", Password: hash, Role: models.RoleOwner, Active: true}
	if err := db.Create(&owner).Error; err != nil {
		t.Fatalf("owner: %v", err)
	}
	cat := models.Category{TenantID: tenant.ID, Name: "Coffee", Active: true}
	if err := db.Create(&cat).Error; err != nil {
		t.Fatalf("category: %v", err)
	}
	item := models.MenuItem{TenantID: tenant.ID, CategoryID: cat.ID, Name: "Americano", Price: 18000, Available: true}
	if err := db.Create(&item).Error; err != nil {
		t.Fatalf("item: %v", err)
	}
	table := models.Table{TenantID: tenant.ID, Number: "B1", Seats: 2}
	if err := db.Create(&table).Error; err != nil {
		t.Fatalf("table: %v", err)
	}
	return tenant, owner, item, table
}

// asUser attaches an authenticated user to the request context.
func asUser(r *http.Request, u *models.User) *http.Request {
	return r.WithContext(auth.WithUser(r.Context(), u))
}

func doJSON(t *testing.T, h http.HandlerFunc, r *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	r.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	h(w, r)
	return w
}
