package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"gorm.io/gorm"

	"github.com/kedaiku/pos/internal/auth"
	"github.com/kedaiku/pos/internal/httpx"
	"github.com/kedaiku/pos/internal/models"
	"github.com/kedaiku/pos/internal/scope"
	"github.com/kedaiku/pos/internal/validation"
)

type CustomerHandler struct {
	DB *gorm.DB
}

func NewCustomerHandler(db *gorm.DB) *CustomerHandler { return &CustomerHandler{DB: db} }

// List: GET /customers?q=...
func (h *CustomerHandler) List(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := auth.TenantIDFromContext(r.Context())
	if !ok {
		httpx.JSONError(w, http.StatusForbidden, "no_tenant_context", nil)
		return
	}
	dbq := scope.Tenant(tenantID).Apply(h.DB)
	if q := strings.TrimSpace(r.URL.Query().Get("q")); q != "" {
		like := "%" + strings.ToLower(searchSanitizer.ReplaceAllString(q, "")) + "%"
		dbq = dbq.Where("lower(name) LIKE ? OR phone LIKE ?", like, like)
	}
	var out []models.Customer
	if err := dbq.Order("name asc").Limit(200).Find(&out).Error; err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "failed_to_list_customers", nil)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"items": out, "total": len(out)})
}

// Create: POST /customers
func (h *CustomerHandler) Create(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := auth.TenantIDFromContext(r.Context())
	if !ok {
		httpx.JSONError(w, http.StatusForbidden, "no_tenant_context", nil)
		return
	}
	var req struct {
		Name  string `json:"name"`
		Phone string `json:"phone"`
		Email string `json:"email"`
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
	c := models.Customer{TenantID: tenantID, Name: req.Name, Phone: req.Phone, Email: req.Email}
	if err := h.DB.Create(&c).Error; err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "customer_create_failed", nil)
		return
	}
	httpx.JSON(w, http.StatusCreated, c)
}

// Delete: POST /customers/delete?id=...
func (h *CustomerHandler) Delete(w http.ResponseWriter, r *http.Request) {
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
	if err := scope.Tenant(tenantID).Apply(h.DB).Delete(&models.Customer{}, id).Error; err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "delete_failed", nil)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"deleted": id})
}
