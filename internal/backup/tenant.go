package backup

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/kedaiku/pos/internal/models"
	"github.com/kedaiku/pos/internal/scope"
)

const (
	documentType = "tenant_backup"
	appVersion   = "1.4.0"
)

var ErrInvalidDocument = errors.New("invalid_tenant_backup")

type Metadata struct {
	Type       string    `json:"type"`
	TenantID   uint      `json:"tenant_id"`
	TenantName string    `json:"tenant_name"`
	TenantSlug string    `json:"tenant_slug"`
	CreatedAt  time.Time `json:"created_at"`
	AppVersion string    `json:"app_version"`
}

// UserRecord re-exposes the bcrypt hash that models.User hides from API
// responses; a restore without password hashes would lock every staff
// account out.
type UserRecord struct {
	models.User
	Password string `json:"password"`
}

// TenantDocument is the on-disk JSON schema of a tenant backup. Rows carry
// their original primary/foreign keys; the restore engine remaps them.
type TenantDocument struct {
	Metadata          Metadata                   `json:"metadata"`
	Tenant            models.Tenant              `json:"tenant"`
	Users             []UserRecord               `json:"users"`
	Categories        []models.Category          `json:"categories"`
	MenuItems         []models.MenuItem          `json:"menu_items"`
	MenuVariants      []models.MenuVariant       `json:"menu_variants"`
	MenuModifiers     []models.MenuModifier      `json:"menu_modifiers"`
	MenuItemModifiers []models.MenuItemModifier  `json:"menu_item_modifiers"`
	Tables            []models.Table             `json:"tables"`
	Customers         []models.Customer          `json:"customers"`
	Orders            []models.Order             `json:"orders"`
	OrderItems        []models.OrderItem         `json:"order_items"`
	OrderItemModifiers []models.OrderItemModifier `json:"order_item_modifiers"`
	Payments          []models.Payment           `json:"payments"`
	Ingredients       []models.Ingredient        `json:"ingredients"`
	Recipes           []models.Recipe            `json:"recipes"`
	StockMovements    []models.StockMovement     `json:"stock_movements"`
	Subscriptions     []models.Subscription      `json:"subscriptions"`
}

// TenantEngine serializes one tenant's data to JSON and back.
type TenantEngine struct {
	DB    *gorm.DB
	Store *Store
}

func NewTenantEngine(db *gorm.DB, store *Store) *TenantEngine {
	return &TenantEngine{DB: db, Store: store}
}

// Export captures every tenant-owned table in a single transaction so the
// document is a consistent point-in-time view.
func (e *TenantEngine) Export(tenantID uint) (*TenantDocument, error) {
	doc := &TenantDocument{}
	err := e.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&doc.Tenant, tenantID).Error; err != nil {
			return err
		}
		sc := scope.Tenant(tenantID)
		var users []models.User
		if err := sc.Apply(tx).Find(&users).Error; err != nil {
			return err
		}
		for _, u := range users {
			doc.Users = append(doc.Users, UserRecord{User: u, Password: u.Password})
		}
		if err := sc.Apply(tx).Find(&doc.Categories).Error; err != nil {
			return err
		}
		if err := sc.Apply(tx).Find(&doc.MenuItems).Error; err != nil {
			return err
		}
		if err := tx.Where("menu_item_id IN (SELECT id FROM menu_items WHERE tenant_id = ?)", tenantID).Find(&doc.MenuVariants).Error; err != nil {
			return err
		}
		if err := sc.Apply(tx).Find(&doc.MenuModifiers).Error; err != nil {
			return err
		}
		if err := tx.Where("menu_item_id IN (SELECT id FROM menu_items WHERE tenant_id = ?)", tenantID).Find(&doc.MenuItemModifiers).Error; err != nil {
			return err
		}
		if err := sc.Apply(tx).Find(&doc.Tables).Error; err != nil {
			return err
		}
		if err := sc.Apply(tx).Find(&doc.Customers).Error; err != nil {
			return err
		}
		if err := sc.Apply(tx).Find(&doc.Orders).Error; err != nil {
			return err
		}
		if err := tx.Where("order_id IN (SELECT id FROM orders WHERE tenant_id = ?)", tenantID).Find(&doc.OrderItems).Error; err != nil {
			return err
		}
		if err := tx.Where("order_item_id IN (SELECT id FROM order_items WHERE order_id IN (SELECT id FROM orders WHERE tenant_id = ?))", tenantID).Find(&doc.OrderItemModifiers).Error; err != nil {
			return err
		}
		if err := sc.Apply(tx).Find(&doc.Payments).Error; err != nil {
			return err
		}
		if err := sc.Apply(tx).Find(&doc.Ingredients).Error; err != nil {
			return err
		}
		if err := sc.Apply(tx).Find(&doc.Recipes).Error; err != nil {
			return err
		}
		if err := sc.Apply(tx).Find(&doc.StockMovements).Error; err != nil {
			return err
		}
		return sc.Apply(tx).Find(&doc.Subscriptions).Error
	})
	if err != nil {
		return nil, err
	}
	doc.Metadata = Metadata{
		Type:       documentType,
		TenantID:   doc.Tenant.ID,
		TenantName: doc.Tenant.Name,
		TenantSlug: doc.Tenant.Slug,
		CreatedAt:  time.Now().UTC(),
		AppVersion: appVersion,
	}
	return doc, nil
}

// ExportToFile writes the export as backup_tenant_{slug}_{ts}.json.
func (e *TenantEngine) ExportToFile(tenantID uint) (string, error) {
	doc, err := e.Export(tenantID)
	if err != nil {
		return "", err
	}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return "", err
	}
	name := fmt.Sprintf("backup_tenant_%s_%s.json", doc.Metadata.TenantSlug, timestamp(doc.Metadata.CreatedAt))
	if _, err := e.Store.Write(name, data); err != nil {
		return "", err
	}
	return name, nil
}

// ParseDocument decodes and validates a tenant backup document.
func ParseDocument(data []byte) (*TenantDocument, error) {
	var doc TenantDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDocument, err)
	}
	if doc.Metadata.Type != documentType {
		return nil, ErrInvalidDocument
	}
	return &doc, nil
}
