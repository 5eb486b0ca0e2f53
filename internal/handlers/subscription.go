package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"gorm.io/gorm"

	"github.com/kedaiku/pos/internal/auth"
	"github.com/kedaiku/pos/internal/httpx"
	"github.com/kedaiku/pos/internal/models"
	"github.com/kedaiku/pos/internal/services"
	"github.com/kedaiku/pos/internal/validation"
)

// SubscriptionHandler covers the platform-level plan catalog and per-tenant
// subscription assignment. Everything except Current is super-admin only.
type SubscriptionHandler struct {
	DB    *gorm.DB
	Svc   *services.SubscriptionService
	Audit *services.AuditService
}

func NewSubscriptionHandler(db *gorm.DB, svc *services.SubscriptionService, audit *services.AuditService) *SubscriptionHandler {
	return &SubscriptionHandler{DB: db, Svc: svc, Audit: audit}
}

// ListPlans: GET /plans
func (h *SubscriptionHandler) ListPlans(w http.ResponseWriter, r *http.Request) {
	var plans []models.SubscriptionPlan
	if err := h.DB.Order("price asc").Find(&plans).Error; err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "failed_to_list_plans", nil)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"items": plans, "total": len(plans)})
}

// CreatePlan: POST /plans
func (h *SubscriptionHandler) CreatePlan(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name         string  `json:"name"`
		Price        float64 `json:"price"`
		DurationDays int     `json:"duration_days"`
		MaxUsers     int     `json:"max_users"`
		MaxMenuItems int     `json:"max_menu_items"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_json", nil)
		return
	}
	v := validation.Violations{}
	validation.Required("name", req.Name, v)
	validation.NonNegativeFloat("price", req.Price, v)
	validation.PositiveInt("duration_days", req.DurationDays, v)
	if !v.Empty() {
		httpx.JSONError(w, http.StatusBadRequest, "validation_failed", v)
		return
	}
	plan := models.SubscriptionPlan{
		Name:         req.Name,
		Price:        req.Price,
		DurationDays: req.DurationDays,
		MaxUsers:     req.MaxUsers,
		MaxMenuItems: req.MaxMenuItems,
	}
	if err := h.DB.Create(&plan).Error; err != nil {
		httpx.JSONError(w, http.StatusConflict, "plan_create_failed", nil)
		return
	}
	httpx.JSON(w, http.StatusCreated, plan)
}

// UpdatePlan: POST /plans/update?id=...
func (h *SubscriptionHandler) UpdatePlan(w http.ResponseWriter, r *http.Request) {
	id := queryID(r, "id")
	if id == 0 {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_id", nil)
		return
	}
	var plan models.SubscriptionPlan
	if err := h.DB.First(&plan, id).Error; err != nil {
		httpx.JSONError(w, http.StatusNotFound, "plan_not_found", nil)
		return
	}
	var req struct {
		Name         *string  `json:"name"`
		Price        *float64 `json:"price"`
		DurationDays *int     `json:"duration_days"`
		MaxUsers     *int     `json:"max_users"`
		MaxMenuItems *int     `json:"max_menu_items"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_json", nil)
		return
	}
	if req.Name != nil {
		plan.Name = *req.Name
	}
	if req.Price != nil {
		plan.Price = *req.Price
	}
	if req.DurationDays != nil {
		plan.DurationDays = *req.DurationDays
	}
	if req.MaxUsers != nil {
		plan.MaxUsers = *req.MaxUsers
	}
	if req.MaxMenuItems != nil {
		plan.MaxMenuItems = *req.MaxMenuItems
	}
	if err := h.DB.Save(&plan).Error; err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "plan_update_failed", nil)
		return
	}
	httpx.JSON(w, http.StatusOK, plan)
}

// Assign: POST /subscriptions/assign
func (h *SubscriptionHandler) Assign(w http.ResponseWriter, r *http.Request) {
	var req struct {
		TenantID uint   `json:"tenant_id"`
		PlanID   uint   `json:"plan_id"`
		Status   string `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_json", nil)
		return
	}
	if req.TenantID == 0 || req.PlanID == 0 {
		httpx.JSONError(w, http.StatusBadRequest, "tenant_id_and_plan_id_required", nil)
		return
	}
	status := models.SubscriptionStatus(req.Status)
	if status == "" {
		status = models.SubscriptionActive
	}
	if status != models.SubscriptionTrial && status != models.SubscriptionActive {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_status", nil)
		return
	}
	var tenant models.Tenant
	if err := h.DB.First(&tenant, req.TenantID).Error; err != nil {
		httpx.JSONError(w, http.StatusNotFound, "tenant_not_found", nil)
		return
	}
	sub, err := h.Svc.Assign(req.TenantID, req.PlanID, status, time.Now())
	if err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "subscription_assign_failed", nil)
		return
	}
	h.Audit.Record(actorID(r), "subscription.assign", "assigned plan to tenant "+tenant.Slug, clientIP(r), map[string]any{
		"tenant_id": req.TenantID,
		"plan_id":   req.PlanID,
		"status":    status,
	})
	httpx.JSON(w, http.StatusCreated, sub)
}

// Current: GET /subscriptions/current — the calling tenant's live subscription.
func (h *SubscriptionHandler) Current(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := auth.TenantIDFromContext(r.Context())
	if !ok {
		httpx.JSONError(w, http.StatusForbidden, "no_tenant_context", nil)
		return
	}
	sub, err := h.Svc.Current(tenantID)
	if err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "failed_to_load_subscription", nil)
		return
	}
	if sub == nil {
		httpx.JSON(w, http.StatusOK, map[string]any{"subscription": nil})
		return
	}
	var plan models.SubscriptionPlan
	if err := h.DB.First(&plan, sub.PlanID).Error; err == nil {
		httpx.JSON(w, http.StatusOK, map[string]any{"subscription": sub, "plan": plan})
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"subscription": sub})
}

// ExpireOverdue: POST /subscriptions/expire-overdue
func (h *SubscriptionHandler) ExpireOverdue(w http.ResponseWriter, r *http.Request) {
	n, err := h.Svc.ExpireOverdue(time.Now())
	if err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "expire_failed", nil)
		return
	}
	h.Audit.Record(actorID(r), "subscription.expire_overdue", "expired overdue subscriptions", clientIP(r), map[string]any{"expired": n})
	httpx.JSON(w, http.StatusOK, map[string]any{"expired": n})
}
