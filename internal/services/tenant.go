package services

import (
	"errors"
	"strings"

	"gorm.io/gorm"

	"github.com/kedaiku/pos/internal/models"
)

var ErrSlugTaken = errors.New("slug_already_taken")

// TenantService handles tenant provisioning and the cascading delete of all
// tenant-owned data.
type TenantService struct {
	DB *gorm.DB
}

func NewTenantService(db *gorm.DB) *TenantService { return &TenantService{DB: db} }

type CreateTenantInput struct {
	Name              string
	Slug              string
	TaxRate           float64
	ServiceChargeRate float64
	OwnerName         string
	OwnerEmail        string
	OwnerPassword     string // already hashed by the caller
}

// Create provisions a tenant together with its owner account.
func (s *TenantService) Create(in CreateTenantInput) (*models.Tenant, *models.User, error) {
	t := models.Tenant{
		Name:              in.Name,
		Slug:              strings.ToLower(strings.TrimSpace(in.Slug)),
		TaxRate:           in.TaxRate,
		ServiceChargeRate: in.ServiceChargeRate,
		Active:            true,
	}
	var owner models.User
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&t).Error; err != nil {
			if isDuplicateErr(err) {
				return ErrSlugTaken
			}
			return err
		}
		owner = models.User{TenantID: &t.ID, Name: in.OwnerName, Email: in.OwnerEmail, Password: in.OwnerPassword, Role: models.RoleOwner, Active: true}
		return tx.Create(&owner).Error
	})
	if err != nil {
		return nil, nil, err
	}
	return &t, &owner, nil
}

// Delete removes the tenant and every row it owns.
func (s *TenantService) Delete(tenantID uint, confirm string) error {
	if confirm != "DELETE" {
		return ErrConfirmationRequired
	}
	return s.DB.Transaction(func(tx *gorm.DB) error {
		if err := PurgeTenantData(tx, tenantID); err != nil {
			return err
		}
		return tx.Delete(&models.Tenant{}, tenantID).Error
	})
}

// PurgeTenantData deletes every tenant-owned row, children before parents.
// Shared by tenant deletion and the restore engine's replace step.
func PurgeTenantData(tx *gorm.DB, tenantID uint) error {
	steps := []struct {
		sql  string
		args []interface{}
	}{
		{`DELETE FROM order_item_modifiers WHERE order_item_id IN
			(SELECT id FROM order_items WHERE order_id IN (SELECT id FROM orders WHERE tenant_id = ?))`, []interface{}{tenantID}},
		{`DELETE FROM order_items WHERE order_id IN (SELECT id FROM orders WHERE tenant_id = ?)`, []interface{}{tenantID}},
		{`DELETE FROM payments WHERE tenant_id = ?`, []interface{}{tenantID}},
		{`DELETE FROM orders WHERE tenant_id = ?`, []interface{}{tenantID}},
		{`DELETE FROM stock_movements WHERE tenant_id = ?`, []interface{}{tenantID}},
		{`DELETE FROM recipes WHERE tenant_id = ?`, []interface{}{tenantID}},
		{`DELETE FROM menu_item_modifiers WHERE menu_item_id IN (SELECT id FROM menu_items WHERE tenant_id = ?)`, []interface{}{tenantID}},
		{`DELETE FROM menu_variants WHERE menu_item_id IN (SELECT id FROM menu_items WHERE tenant_id = ?)`, []interface{}{tenantID}},
		{`DELETE FROM menu_items WHERE tenant_id = ?`, []interface{}{tenantID}},
		{`DELETE FROM menu_modifiers WHERE tenant_id = ?`, []interface{}{tenantID}},
		{`DELETE FROM ingredients WHERE tenant_id = ?`, []interface{}{tenantID}},
		{`DELETE FROM categories WHERE tenant_id = ?`, []interface{}{tenantID}},
		{`DELETE FROM tables WHERE tenant_id = ?`, []interface{}{tenantID}},
		{`DELETE FROM customers WHERE tenant_id = ?`, []interface{}{tenantID}},
		{`DELETE FROM subscriptions WHERE tenant_id = ?`, []interface{}{tenantID}},
		{`DELETE FROM users WHERE tenant_id = ?`, []interface{}{tenantID}},
	}
	for _, st := range steps {
		if err := tx.Exec(st.sql, st.args...).Error; err != nil {
			return err
		}
	}
	return nil
}
