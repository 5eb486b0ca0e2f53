package handlers

import (
	"encoding/json"
	"net/http"
	"regexp"
	"strings"

	"gorm.io/gorm"

	"github.com/kedaiku/pos/internal/auth"
	"github.com/kedaiku/pos/internal/httpx"
	"github.com/kedaiku/pos/internal/models"
	"github.com/kedaiku/pos/internal/scope"
	"github.com/kedaiku/pos/internal/validation"
)

var searchSanitizer = regexp.MustCompile(`[^a-zA-Z0-9 \-_]`)

// MenuHandler covers category, menu item, variant and modifier CRUD.
type MenuHandler struct {
	DB *gorm.DB
}

func NewMenuHandler(db *gorm.DB) *MenuHandler { return &MenuHandler{DB: db} }

// ListCategories: GET /categories
func (h *MenuHandler) ListCategories(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := auth.TenantIDFromContext(r.Context())
	if !ok {
		httpx.JSONError(w, http.StatusForbidden, "no_tenant_context", nil)
		return
	}
	var cats []models.Category
	if err := scope.Tenant(tenantID).Apply(h.DB).Order("sort_order asc, name asc").Find(&cats).Error; err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "failed_to_list_categories", nil)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"items": cats, "total": len(cats)})
}

// CreateCategory: POST /categories
func (h *MenuHandler) CreateCategory(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := auth.TenantIDFromContext(r.Context())
	if !ok {
		httpx.JSONError(w, http.StatusForbidden, "no_tenant_context", nil)
		return
	}
	var req struct {
		Name      string `json:"name"`
		SortOrder int    `json:"sort_order"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_json", nil)
		return
	}
	v := validation.Violations{}
	validation.Required("name", req.Name, v)
	if !v.Empty() {
		httpx.JSONError(w, http.StatusBadRequest, "validation_failed", v)
		return
	}
	c := models.Category{TenantID: tenantID, Name: req.Name, SortOrder: req.SortOrder, Active: true}
	if err := h.DB.Create(&c).Error; err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "category_create_failed", nil)
		return
	}
	httpx.JSON(w, http.StatusCreated, c)
}

// DeleteCategory: POST /categories/delete?id=...
func (h *MenuHandler) DeleteCategory(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := auth.TenantIDFromContext(r.Context())
	if !ok {
		httpx.JSONError(w, http.StatusForbidden, "no_tenant_context", nil)
		return
	}
	id := queryID(r, "id")
	if id == 0 {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_id", nil)
		return
	}
	var count int64
	h.DB.Model(&models.MenuItem{}).Where("category_id = ?", id).Count(&count)
	if count > 0 {
		httpx.JSONError(w, http.StatusBadRequest, "category_has_items", nil)
		return
	}
	if err := scope.Tenant(tenantID).Apply(h.DB).Delete(&models.Category{}, id).Error; err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "delete_failed", nil)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"deleted": id})
}

// ListItems: GET /menu-items?q=...
func (h *MenuHandler) ListItems(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := auth.TenantIDFromContext(r.Context())
	if !ok {
		httpx.JSONError(w, http.StatusForbidden, "no_tenant_context", nil)
		return
	}
	dbq := scope.Tenant(tenantID).Apply(h.DB)
	if q := strings.TrimSpace(r.URL.Query().Get("q")); q != "" {
		like := "%" + strings.ToLower(searchSanitizer.ReplaceAllString(q, "")) + "%"
		dbq = dbq.Where("lower(name) LIKE ?", like)
	}
	if cid := queryID(r, "category_id"); cid != 0 {
		dbq = dbq.Where("category_id = ?", cid)
	}
	var items []models.MenuItem
	if err := dbq.Preload("Variants").Order("name asc").Find(&items).Error; err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "failed_to_list_menu_items", nil)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"items": items, "total": len(items)})
}

// CreateItem: POST /menu-items
func (h *MenuHandler) CreateItem(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := auth.TenantIDFromContext(r.Context())
	if !ok {
		httpx.JSONError(w, http.StatusForbidden, "no_tenant_context", nil)
		return
	}
	var req struct {
		CategoryID  uint    `json:"category_id"`
		Name        string  `json:"name"`
		Description string  `json:"description"`
		Price       float64 `json:"price"`
		Variants    []struct {
			Name  string  `json:"name"`
			Price float64 `json:"price"`
		} `json:"variants"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_json", nil)
		return
	}
	v := validation.Violations{}
	validation.Required("name", req.Name, v)
	validation.PositiveFloat("price", req.Price, v)
	if req.CategoryID == 0 {
		v["category_id"] = "required"
	}
	if !v.Empty() {
		httpx.JSONError(w, http.StatusBadRequest, "validation_failed", v)
		return
	}
	var cat models.Category
	if err := scope.Tenant(tenantID).Apply(h.DB).First(&cat, req.CategoryID).Error; err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_category", nil)
		return
	}
	item := models.MenuItem{TenantID: tenantID, CategoryID: cat.ID, Name: req.Name, Description: req.Description, Price: req.Price, Available: true}
	for _, vr := range req.Variants {
		item.Variants = append(item.Variants, models.MenuVariant{Name: vr.Name, Price: vr.Price})
	}
	if err := h.DB.Create(&item).Error; err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "menu_item_create_failed", nil)
		return
	}
	httpx.JSON(w, http.StatusCreated, item)
}

// UpdateItem: POST /menu-items/update?id=...
func (h *MenuHandler) UpdateItem(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := auth.TenantIDFromContext(r.Context())
	if !ok {
		httpx.JSONError(w, http.StatusForbidden, "no_tenant_context", nil)
		return
	}
	id := queryID(r, "id")
	if id == 0 {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_id", nil)
		return
	}
	var item models.MenuItem
	if err := scope.Tenant(tenantID).Apply(h.DB).First(&item, id).Error; err != nil {
		httpx.JSONError(w, http.StatusNotFound, "not_found", nil)
		return
	}
	var req struct {
		Name        *string  `json:"name"`
		Description *string  `json:"description"`
		Price       *float64 `json:"price"`
		Available   *bool    `json:"available"`
		CategoryID  *uint    `json:"category_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_json", nil)
		return
	}
	if req.Name != nil {
		item.Name = *req.Name
	}
	if req.Description != nil {
		item.Description = *req.Description
	}
	if req.Price != nil {
		item.Price = *req.Price
	}
	if req.Available != nil {
		item.Available = *req.Available
	}
	if req.CategoryID != nil {
		item.CategoryID = *req.CategoryID
	}
	if err := h.DB.Save(&item).Error; err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "update_failed", nil)
		return
	}
	httpx.JSON(w, http.StatusOK, item)
}

// DeleteItem: POST /menu-items/delete?id=...
func (h *MenuHandler) DeleteItem(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := auth.TenantIDFromContext(r.Context())
	if !ok {
		httpx.JSONError(w, http.StatusForbidden, "no_tenant_context", nil)
		return
	}
	id := queryID(r, "id")
	if id == 0 {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_id", nil)
		return
	}
	err := h.DB.Transaction(func(tx *gorm.DB) error {
		var item models.MenuItem
		if err := scope.Tenant(tenantID).Apply(tx).First(&item, id).Error; err != nil {
			return err
		}
		if err := tx.Where("menu_item_id = ?", item.ID).Delete(&models.MenuVariant{}).Error; err != nil {
			return err
		}
		if err := tx.Where("menu_item_id = ?", item.ID).Delete(&models.MenuItemModifier{}).Error; err != nil {
			return err
		}
		if err := tx.Where("menu_item_id = ?", item.ID).Delete(&models.Recipe{}).Error; err != nil {
			return err
		}
		return tx.Delete(&item).Error
	})
	if err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "delete_failed", nil)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"deleted": id})
}

// CreateModifier: POST /menu-modifiers
func (h *MenuHandler) CreateModifier(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := auth.TenantIDFromContext(r.Context())
	if !ok {
		httpx.JSONError(w, http.StatusForbidden, "no_tenant_context", nil)
		return
	}
	var req struct {
		Name        string  `json:"name"`
		Price       float64 `json:"price"`
		MenuItemIDs []uint  `json:"menu_item_ids"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_json", nil)
		return
	}
	v := validation.Violations{}
	validation.Required("name", req.Name, v)
	if !v.Empty() {
		httpx.JSONError(w, http.StatusBadRequest, "validation_failed", v)
		return
	}
	m := models.MenuModifier{TenantID: tenantID, Name: req.Name, Price: req.Price}
	err := h.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&m).Error; err != nil {
			return err
		}
		for _, itemID := range req.MenuItemIDs {
			var item models.MenuItem
			if err := scope.Tenant(tenantID).Apply(tx).First(&item, itemID).Error; err != nil {
				return err
			}
			if err := tx.Create(&models.MenuItemModifier{MenuItemID: item.ID, MenuModifierID: m.ID}).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "modifier_create_failed", nil)
		return
	}
	httpx.JSON(w, http.StatusCreated, m)
}
