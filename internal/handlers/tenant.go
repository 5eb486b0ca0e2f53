package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"gorm.io/gorm"

	"github.com/kedaiku/pos/internal/auth"
	"github.com/kedaiku/pos/internal/httpx"
	"github.com/kedaiku/pos/internal/models"
	"github.com/kedaiku/pos/internal/services"
	"github.com/kedaiku/pos/internal/validation"
)

// TenantHandler exposes the super-admin tenant CRUD.
type TenantHandler struct {
	DB    *gorm.DB
	Svc   *services.TenantService
	Audit *services.AuditService
}

func NewTenantHandler(db *gorm.DB, svc *services.TenantService, audit *services.AuditService) *TenantHandler {
	return &TenantHandler{DB: db, Svc: svc, Audit: audit}
}

// List: GET /admin/tenants
func (h *TenantHandler) List(w http.ResponseWriter, r *http.Request) {
	var tenants []models.Tenant
	if err := h.DB.Order("id asc").Find(&tenants).Error; err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "failed_to_list_tenants", nil)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"items": tenants, "total": len(tenants)})
}

// Create: POST /admin/tenants — provisions a tenant with its owner account.
func (h *TenantHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name              string  `json:"name"`
		Slug              string  `json:"slug"`
		TaxRate           float64 `json:"tax_rate"`
		ServiceChargeRate float64 `json:"service_charge_rate"`
		OwnerName         string  `json:"owner_name"`
		OwnerEmail        string  `json:"owner_email"`
		OwnerPassword     string  `json:"owner_password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_json", nil)
		return
	}
	v := validation.Violations{}
	validation.Required("name", req.Name, v)
	validation.Slug("slug", req.Slug, v)
	validation.Required("owner_email", req.OwnerEmail, v)
	validation.Required("owner_password", req.OwnerPassword, v)
	validation.NonNegativeFloat("tax_rate", req.TaxRate, v)
	validation.NonNegativeFloat("service_charge_rate", req.ServiceChargeRate, v)
	if !v.Empty() {
		httpx.JSONError(w, http.StatusBadRequest, "validation_failed", v)
		return
	}
	hash, err := HashPassword(req.OwnerPassword)
	if err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "tenant_create_failed", nil)
		return
	}
	tenant, owner, err := h.Svc.Create(services.CreateTenantInput{
		Name: req.Name, Slug: req.Slug,
		TaxRate: req.TaxRate, ServiceChargeRate: req.ServiceChargeRate,
		OwnerName: req.OwnerName, OwnerEmail: req.OwnerEmail, OwnerPassword: hash,
	})
	if errors.Is(err, services.ErrSlugTaken) {
		httpx.JSONError(w, http.StatusConflict, "slug_already_taken", nil)
		return
	}
	if err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "tenant_create_failed", nil)
		return
	}
	actor := actorID(r)
	h.Audit.Record(actor, "tenant.create", "created tenant "+tenant.Slug, clientIP(r), map[string]any{"tenant_id": tenant.ID})
	httpx.JSON(w, http.StatusCreated, map[string]any{"tenant": tenant, "owner": owner})
}

// Update: POST /admin/tenants/update?id=...
func (h *TenantHandler) Update(w http.ResponseWriter, r *http.Request) {
	id := queryID(r, "id")
	if id == 0 {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_id", nil)
		return
	}
	var t models.Tenant
	if err := h.DB.First(&t, id).Error; err != nil {
		httpx.JSONError(w, http.StatusNotFound, "not_found", nil)
		return
	}
	var req struct {
		Name              *string  `json:"name"`
		TaxRate           *float64 `json:"tax_rate"`
		ServiceChargeRate *float64 `json:"service_charge_rate"`
		Active            *bool    `json:"active"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_json", nil)
		return
	}
	if req.Name != nil {
		t.Name = *req.Name
	}
	if req.TaxRate != nil {
		t.TaxRate = *req.TaxRate
	}
	if req.ServiceChargeRate != nil {
		t.ServiceChargeRate = *req.ServiceChargeRate
	}
	if req.Active != nil {
		t.Active = *req.Active
	}
	if err := h.DB.Save(&t).Error; err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "update_failed", nil)
		return
	}
	httpx.JSON(w, http.StatusOK, t)
}

// Delete: POST /admin/tenants/delete?id=... — irreversible, requires the
// typed confirmation phrase "DELETE".
func (h *TenantHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := queryID(r, "id")
	if id == 0 {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_id", nil)
		return
	}
	var req struct {
		Confirm string `json:"confirm"`
	}
	_ = json.NewDecoder(r.Body).Decode(&req)
	var t models.Tenant
	if err := h.DB.First(&t, id).Error; err != nil {
		httpx.JSONError(w, http.StatusNotFound, "not_found", nil)
		return
	}
	if err := h.Svc.Delete(id, req.Confirm); err != nil {
		if errors.Is(err, services.ErrConfirmationRequired) {
			httpx.JSONError(w, http.StatusBadRequest, "confirmation_required", nil)
			return
		}
		httpx.JSONError(w, http.StatusInternalServerError, "delete_failed", nil)
		return
	}
	h.Audit.Record(actorID(r), "tenant.delete", "deleted tenant "+t.Slug, clientIP(r), map[string]any{"tenant_id": t.ID})
	httpx.JSON(w, http.StatusOK, map[string]any{"deleted": id})
}

func actorID(r *http.Request) *uint {
	if u, ok := auth.UserFromContext(r.Context()); ok {
		return &u.ID
	}
	return nil
}
