package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"gorm.io/gorm"

	"github.com/kedaiku/pos/internal/auth"
	"github.com/kedaiku/pos/internal/httpx"
	"github.com/kedaiku/pos/internal/models"
	"github.com/kedaiku/pos/internal/scope"
	"github.com/kedaiku/pos/internal/services"
	"github.com/kedaiku/pos/internal/validation"
)

// InventoryHandler covers ingredient CRUD, the movement ledger and recipes.
type InventoryHandler struct {
	DB    *gorm.DB
	Stock *services.StockService
}

func NewInventoryHandler(db *gorm.DB, stock *services.StockService) *InventoryHandler {
	return &InventoryHandler{DB: db, Stock: stock}
}

// ListIngredients: GET /ingredients
func (h *InventoryHandler) ListIngredients(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := auth.TenantIDFromContext(r.Context())
	if !ok {
		httpx.JSONError(w, http.StatusForbidden, "no_tenant_context", nil)
		return
	}
	var out []models.Ingredient
	if err := scope.Tenant(tenantID).Apply(h.DB).Order("name asc").Find(&out).Error; err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "failed_to_list_ingredients", nil)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"items": out, "total": len(out)})
}

// CreateIngredient: POST /ingredients
func (h *InventoryHandler) CreateIngredient(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := auth.TenantIDFromContext(r.Context())
	if !ok {
		httpx.JSONError(w, http.StatusForbidden, "no_tenant_context", nil)
		return
	}
	var req struct {
		Name         string  `json:"name"`
		Unit         string  `json:"unit"`
		CurrentStock float64 `json:"current_stock"`
		MinimumStock float64 `json:"minimum_stock"`
		CostPerUnit  float64 `json:"cost_per_unit"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_json", nil)
		return
	}
	v := validation.Violations{}
	validation.Required("name", req.Name, v)
	validation.NonNegativeFloat("current_stock", req.CurrentStock, v)
	validation.NonNegativeFloat("minimum_stock", req.MinimumStock, v)
	validation.NonNegativeFloat("cost_per_unit", req.CostPerUnit, v)
	if !v.Empty() {
		httpx.JSONError(w, http.StatusBadRequest, "validation_failed", v)
		return
	}
	ing := models.Ingredient{
		TenantID: tenantID, Name: req.Name, Unit: req.Unit,
		CurrentStock: req.CurrentStock, MinimumStock: req.MinimumStock, CostPerUnit: req.CostPerUnit,
	}
	if err := h.DB.Create(&ing).Error; err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "ingredient_create_failed", nil)
		return
	}
	httpx.JSON(w, http.StatusCreated, ing)
}

// RecordMovement: POST /ingredients/movements
func (h *InventoryHandler) RecordMovement(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := auth.TenantIDFromContext(r.Context())
	if !ok {
		httpx.JSONError(w, http.StatusForbidden, "no_tenant_context", nil)
		return
	}
	var req struct {
		IngredientID uint                     `json:"ingredient_id"`
		Type         models.StockMovementType `json:"type"`
		Quantity     float64                  `json:"quantity"`
		CostPerUnit  *float64                 `json:"cost_per_unit"`
		Reference    string                   `json:"reference"`
		Notes        string                   `json:"notes"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_json", nil)
		return
	}
	mv, err := h.Stock.RecordMovement(services.MovementInput{
		TenantID:     tenantID,
		IngredientID: req.IngredientID,
		Type:         req.Type,
		Quantity:     req.Quantity,
		CostPerUnit:  req.CostPerUnit,
		Reference:    req.Reference,
		Notes:        req.Notes,
		UserID:       actorID(r),
	})
	if err != nil {
		switch {
		case errors.Is(err, services.ErrInvalidMovementType), errors.Is(err, services.ErrInvalidQuantity):
			httpx.JSONError(w, http.StatusBadRequest, err.Error(), nil)
		case errors.Is(err, gorm.ErrRecordNotFound):
			httpx.JSONError(w, http.StatusNotFound, "not_found", nil)
		default:
			httpx.JSONError(w, http.StatusInternalServerError, "movement_failed", nil)
		}
		return
	}
	httpx.JSON(w, http.StatusCreated, mv)
}

// ListMovements: GET /ingredients/movements?ingredient_id=...
func (h *InventoryHandler) ListMovements(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := auth.TenantIDFromContext(r.Context())
	if !ok {
		httpx.JSONError(w, http.StatusForbidden, "no_tenant_context", nil)
		return
	}
	dbq := scope.Tenant(tenantID).Apply(h.DB)
	if ingID := queryID(r, "ingredient_id"); ingID != 0 {
		dbq = dbq.Where("ingredient_id = ?", ingID)
	}
	var out []models.StockMovement
	if err := dbq.Order("id desc").Limit(200).Find(&out).Error; err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "failed_to_list_movements", nil)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"items": out, "total": len(out)})
}

// LowStock: GET /ingredients/low-stock
func (h *InventoryHandler) LowStock(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := auth.TenantIDFromContext(r.Context())
	if !ok {
		httpx.JSONError(w, http.StatusForbidden, "no_tenant_context", nil)
		return
	}
	out, err := h.Stock.LowStock(tenantID)
	if err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "failed_to_list_low_stock", nil)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"items": out, "total": len(out)})
}

// SetRecipe: POST /recipes — replaces a menu item's ingredient list.
func (h *InventoryHandler) SetRecipe(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := auth.TenantIDFromContext(r.Context())
	if !ok {
		httpx.JSONError(w, http.StatusForbidden, "no_tenant_context", nil)
		return
	}
	var req struct {
		MenuItemID  uint `json:"menu_item_id"`
		Ingredients []struct {
			IngredientID   uint    `json:"ingredient_id"`
			QuantityNeeded float64 `json:"quantity_needed"`
		} `json:"ingredients"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_json", nil)
		return
	}
	err := h.DB.Transaction(func(tx *gorm.DB) error {
		var item models.MenuItem
		if err := scope.Tenant(tenantID).Apply(tx).First(&item, req.MenuItemID).Error; err != nil {
			return err
		}
		if err := tx.Where("menu_item_id = ?", item.ID).Delete(&models.Recipe{}).Error; err != nil {
			return err
		}
		for _, ing := range req.Ingredients {
			var exists models.Ingredient
			if err := scope.Tenant(tenantID).Apply(tx).First(&exists, ing.IngredientID).Error; err != nil {
				return err
			}
			rc := models.Recipe{TenantID: tenantID, MenuItemID: item.ID, IngredientID: exists.ID, QuantityNeeded: ing.QuantityNeeded}
			if err := tx.Create(&rc).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			httpx.JSONError(w, http.StatusNotFound, "not_found", nil)
			return
		}
		httpx.JSONError(w, http.StatusInternalServerError, "recipe_update_failed", nil)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"status": "updated"})
}
