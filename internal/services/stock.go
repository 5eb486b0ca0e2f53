package services

import (
	"errors"

	"gorm.io/gorm"

	"github.com/kedaiku/pos/internal/models"
	"github.com/kedaiku/pos/internal/scope"
)

var (
	ErrInvalidMovementType = errors.New("invalid_movement_type")
	ErrInvalidQuantity     = errors.New("invalid_movement_quantity")
)

// StockService maintains the append-only movement ledger and keeps
// Ingredient.CurrentStock consistent with it. Stock never goes negative.
type StockService struct {
	DB *gorm.DB
}

func NewStockService(db *gorm.DB) *StockService { return &StockService{DB: db} }

type MovementInput struct {
	TenantID     uint
	IngredientID uint
	Type         models.StockMovementType
	Quantity     float64
	CostPerUnit  *float64 // only meaningful for "in" movements
	Reference    string
	Notes        string
	UserID       *uint
}

// RecordMovement appends a ledger row and applies it to the cached stock
// level, atomically.
func (s *StockService) RecordMovement(in MovementInput) (*models.StockMovement, error) {
	var mv *models.StockMovement
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		var err error
		mv, err = s.recordMovementTx(tx, in)
		return err
	})
	if err != nil {
		return nil, err
	}
	return mv, nil
}

func (s *StockService) recordMovementTx(tx *gorm.DB, in MovementInput) (*models.StockMovement, error) {
	if !in.Type.Valid() {
		return nil, ErrInvalidMovementType
	}
	switch in.Type {
	case models.MovementAdjustment:
		// signed delta, zero records nothing
		if in.Quantity == 0 {
			return nil, ErrInvalidQuantity
		}
	default:
		if in.Quantity <= 0 {
			return nil, ErrInvalidQuantity
		}
	}
	var ing models.Ingredient
	if err := scope.Tenant(in.TenantID).Apply(tx).First(&ing, in.IngredientID).Error; err != nil {
		return nil, err
	}
	mv := models.StockMovement{
		TenantID:     in.TenantID,
		IngredientID: ing.ID,
		Type:         in.Type,
		Quantity:     in.Quantity,
		Reference:    in.Reference,
		Notes:        in.Notes,
		UserID:       in.UserID,
	}
	if in.CostPerUnit != nil {
		mv.CostPerUnit = *in.CostPerUnit
	}
	if err := tx.Create(&mv).Error; err != nil {
		return nil, err
	}

	updates := map[string]interface{}{}
	switch in.Type {
	case models.MovementIn:
		ing.CurrentStock += in.Quantity
		// moving-forward cost tracking, not a weighted average
		if in.CostPerUnit != nil {
			ing.CostPerUnit = *in.CostPerUnit
			updates["cost_per_unit"] = ing.CostPerUnit
		}
	case models.MovementOut, models.MovementWaste, models.MovementOrderDeduct:
		ing.CurrentStock -= in.Quantity
	case models.MovementAdjustment:
		// quantity is a signed delta; the ledger stays append-only and
		// current stock is always previous + delta
		ing.CurrentStock += in.Quantity
	}
	if ing.CurrentStock < 0 {
		ing.CurrentStock = 0
	}
	updates["current_stock"] = ing.CurrentStock
	if err := tx.Model(&ing).Updates(updates).Error; err != nil {
		return nil, err
	}
	return &mv, nil
}

// LowStock lists ingredients at or under their reorder level.
func (s *StockService) LowStock(tenantID uint) ([]models.Ingredient, error) {
	var out []models.Ingredient
	err := scope.Tenant(tenantID).Apply(s.DB).
		Where("current_stock <= minimum_stock").
		Order("name asc").
		Find(&out).Error
	return out, err
}
