package handlers

import (
	"encoding/json"
	"net/http"

	"gorm.io/gorm"

	"github.com/kedaiku/pos/internal/auth"
	"github.com/kedaiku/pos/internal/httpx"
	"github.com/kedaiku/pos/internal/models"
	"github.com/kedaiku/pos/internal/scope"
	"github.com/kedaiku/pos/internal/validation"
)

type TableHandler struct {
	DB *gorm.DB
}

func NewTableHandler(db *gorm.DB) *TableHandler { return &TableHandler{DB: db} }

// List: GET /tables
func (h *TableHandler) List(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := auth.TenantIDFromContext(r.Context())
	if !ok {
		httpx.JSONError(w, http.StatusForbidden, "no_tenant_context", nil)
		return
	}
	var tables []models.Table
	if err := scope.Tenant(tenantID).Apply(h.DB).Order("number asc").Find(&tables).Error; err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "failed_to_list_tables", nil)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"items": tables, "total": len(tables)})
}

// Create: POST /tables — the QR token is generated once here and never
// regenerated.
func (h *TableHandler) Create(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := auth.TenantIDFromContext(r.Context())
	if !ok {
		httpx.JSONError(w, http.StatusForbidden, "no_tenant_context", nil)
		return
	}
	var req struct {
		Number string `json:"number"`
		Seats  int    `json:"seats"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_json", nil)
		return
	}
	v := validation.Violations{}
	validation.Required("number", req.Number, v)
	if !v.Empty() {
		httpx.JSONError(w, http.StatusBadRequest, "validation_failed", v)
		return
	}
	t := models.Table{TenantID: tenantID, Number: req.Number, Seats: req.Seats, Status: models.TableAvailable}
	if err := h.DB.Create(&t).Error; err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "table_create_failed", nil)
		return
	}
	httpx.JSON(w, http.StatusCreated, t)
}

// SetStatus: POST /tables/status?id=... — manual reserved/maintenance moves.
// Occupied/available are normally driven by the order lifecycle.
func (h *TableHandler) SetStatus(w http.ResponseWriter, r *http.Request) {
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
	var req struct {
		Status models.TableStatus `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_json", nil)
		return
	}
	switch req.Status {
	case models.TableAvailable, models.TableOccupied, models.TableReserved, models.TableMaintenance:
	default:
		httpx.JSONError(w, http.StatusBadRequest, "invalid_status", nil)
		return
	}
	var t models.Table
	if err := scope.Tenant(tenantID).Apply(h.DB).First(&t, id).Error; err != nil {
		httpx.JSONError(w, http.StatusNotFound, "not_found", nil)
		return
	}
	if err := h.DB.Model(&t).Update("status", req.Status).Error; err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "update_failed", nil)
		return
	}
	httpx.JSON(w, http.StatusOK, t)
}

// Delete: POST /tables/delete?id=...
func (h *TableHandler) Delete(w http.ResponseWriter, r *http.Request) {
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
	var active int64
	h.DB.Model(&models.Order{}).
		Where("table_id = ? AND status NOT IN ?", id, []models.OrderStatus{models.OrderCompleted, models.OrderCancelled}).
		Count(&active)
	if active > 0 {
		httpx.JSONError(w, http.StatusBadRequest, "table_has_active_orders", nil)
		return
	}
	if err := scope.Tenant(tenantID).Apply(h.DB).Delete(&models.Table{}, id).Error; err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "delete_failed", nil)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"deleted": id})
}

// ByToken: GET /public/tables?token=... — unauthenticated QR lookup for the
// self-service ordering flow.
func (h *TableHandler) ByToken(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		httpx.JSONError(w, http.StatusBadRequest, "missing_token", nil)
		return
	}
	var t models.Table
	if err := h.DB.Where("qr_token = ?", token).First(&t).Error; err != nil {
		httpx.JSONError(w, http.StatusNotFound, "not_found", nil)
		return
	}
	var tenant models.Tenant
	if err := h.DB.First(&tenant, t.TenantID).Error; err != nil || !tenant.Active {
		httpx.JSONError(w, http.StatusNotFound, "not_found", nil)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"table": t, "tenant": tenant})
}
