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
	"github.com/kedaiku/pos/internal/services"
	"github.com/kedaiku/pos/internal/validation"
)

// StaffHandler manages a tenant's user accounts.
type StaffHandler struct {
	DB    *gorm.DB
	Audit *services.AuditService
}

func NewStaffHandler(db *gorm.DB, audit *services.AuditService) *StaffHandler {
	return &StaffHandler{DB: db, Audit: audit}
}

// List: GET /staff
func (h *StaffHandler) List(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := auth.TenantIDFromContext(r.Context())
	if !ok {
		httpx.JSONError(w, http.StatusForbidden, "no_tenant_context", nil)
		return
	}
	var staff []models.User
	if err := scope.Tenant(tenantID).Apply(h.DB).Order("id asc").Find(&staff).Error; err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "failed_to_list_staff", nil)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"items": staff, "total": len(staff)})
}

// Create: POST /staff
func (h *StaffHandler) Create(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := auth.TenantIDFromContext(r.Context())
	if !ok {
		httpx.JSONError(w, http.StatusForbidden, "no_tenant_context", nil)
		return
	}
	var req struct {
		Name     string `json:"name"`
		Email    string `json:"email"`
		Password string `json:"password"`
		Role     string `json:"role"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_json", nil)
		return
	}
	v := validation.Violations{}
	validation.Required("name", req.Name, v)
	validation.Required("email", req.Email, v)
	validation.Required("password", req.Password, v)
	role := models.Role(req.Role)
	switch role {
	case models.RoleManager, models.RoleCashier, models.RoleKitchen:
	default:
		v["role"] = "must_be_manager_cashier_or_kitchen"
	}
	if !v.Empty() {
		httpx.JSONError(w, http.StatusBadRequest, "validation_failed", v)
		return
	}
	hash, err := HashPassword(req.Password)
	if err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "staff_create_failed", nil)
		return
	}
	u := models.User{
		TenantID: &tenantID,
		Name:     req.Name,
		Email:    strings.ToLower(strings.TrimSpace(req.Email)),
		Password: hash,
		Role:     role,
		Active:   true,
	}
	if err := h.DB.Create(&u).Error; err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "unique") {
			httpx.JSONError(w, http.StatusConflict, "email_already_exists", nil)
			return
		}
		httpx.JSONError(w, http.StatusInternalServerError, "staff_create_failed", nil)
		return
	}
	h.Audit.Record(actorID(r), "staff.create", "created staff "+u.Email, clientIP(r), map[string]any{"user_id": u.ID, "tenant_id": tenantID})
	httpx.JSON(w, http.StatusCreated, u)
}

// Delete: POST /staff/delete?id=...
func (h *StaffHandler) Delete(w http.ResponseWriter, r *http.Request) {
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
	var u models.User
	if err := scope.Tenant(tenantID).Apply(h.DB).First(&u, id).Error; err != nil {
		httpx.JSONError(w, http.StatusNotFound, "not_found", nil)
		return
	}
	if u.Role == models.RoleOwner {
		httpx.JSONError(w, http.StatusBadRequest, "cannot_delete_owner", nil)
		return
	}
	if err := h.DB.Delete(&u).Error; err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "delete_failed", nil)
		return
	}
	h.Audit.Record(actorID(r), "staff.delete", "deleted staff "+u.Email, clientIP(r), map[string]any{"user_id": u.ID, "tenant_id": tenantID})
	httpx.JSON(w, http.StatusOK, map[string]any{"deleted": id})
}
