package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"gorm.io/gorm"

	"github.com/kedaiku/pos/internal/auth"
	"github.com/kedaiku/pos/internal/httpx"
	"github.com/kedaiku/pos/internal/models"
	"github.com/kedaiku/pos/internal/scope"
	"github.com/kedaiku/pos/internal/services"
)

// OrderHandler drives the POS and kitchen order flows through OrderService.
type OrderHandler struct {
	DB    *gorm.DB
	Svc   *services.OrderService
	Stock *services.StockService
	Audit *services.AuditService
}

func NewOrderHandler(db *gorm.DB, svc *services.OrderService, stock *services.StockService, audit *services.AuditService) *OrderHandler {
	return &OrderHandler{DB: db, Svc: svc, Stock: stock, Audit: audit}
}

type orderItemReq struct {
	MenuItemID    uint   `json:"menu_item_id"`
	MenuVariantID *uint  `json:"menu_variant_id"`
	Quantity      int    `json:"quantity"`
	Notes         string `json:"notes"`
	ModifierIDs   []uint `json:"modifier_ids"`
}

// Create: POST /orders
func (h *OrderHandler) Create(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := auth.TenantIDFromContext(r.Context())
	if !ok {
		httpx.JSONError(w, http.StatusForbidden, "no_tenant_context", nil)
		return
	}
	var req struct {
		TableID        *uint            `json:"table_id"`
		CustomerID     *uint            `json:"customer_id"`
		Type           models.OrderType `json:"type"`
		DiscountAmount float64          `json:"discount_amount"`
		Notes          string           `json:"notes"`
		Items          []orderItemReq   `json:"items"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_json", nil)
		return
	}
	if len(req.Items) == 0 {
		httpx.JSONError(w, http.StatusBadRequest, "validation_failed", map[string]string{"items": "required"})
		return
	}
	in := services.CreateOrderInput{
		TenantID:       tenantID,
		TableID:        req.TableID,
		CustomerID:     req.CustomerID,
		UserID:         actorID(r),
		Type:           req.Type,
		DiscountAmount: req.DiscountAmount,
		Notes:          req.Notes,
	}
	for _, it := range req.Items {
		in.Items = append(in.Items, services.OrderItemInput{
			MenuItemID:    it.MenuItemID,
			MenuVariantID: it.MenuVariantID,
			Quantity:      it.Quantity,
			Notes:         it.Notes,
			ModifierIDs:   it.ModifierIDs,
		})
	}
	order, err := h.Svc.CreateOrder(in)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			httpx.JSONError(w, http.StatusBadRequest, "invalid_menu_item", nil)
			return
		}
		httpx.JSONError(w, http.StatusInternalServerError, "order_create_failed", nil)
		return
	}
	httpx.JSON(w, http.StatusCreated, order)
}

// List: GET /orders?status=...&number=...
func (h *OrderHandler) List(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := auth.TenantIDFromContext(r.Context())
	if !ok {
		httpx.JSONError(w, http.StatusForbidden, "no_tenant_context", nil)
		return
	}
	dbq := scope.Tenant(tenantID).Apply(h.DB)
	if st := r.URL.Query().Get("status"); st != "" {
		if !models.OrderStatus(st).Valid() {
			httpx.JSONError(w, http.StatusBadRequest, "invalid_status", nil)
			return
		}
		dbq = dbq.Where("status = ?", st)
	}
	if n := strings.TrimSpace(r.URL.Query().Get("number")); n != "" {
		dbq = dbq.Where("order_number = ?", n)
	}
	var orders []models.Order
	if err := dbq.Preload("Items.Modifiers").Order("id desc").Limit(100).Find(&orders).Error; err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "failed_to_list_orders", nil)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"items": orders, "total": len(orders)})
}

// Get: GET /orders/get?id=...
func (h *OrderHandler) Get(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := auth.TenantIDFromContext(r.Context())
	if !ok {
		httpx.JSONError(w, http.StatusForbidden, "no_tenant_context", nil)
		return
	}
	id := queryID(r, "id")
	var o models.Order
	if err := scope.Tenant(tenantID).Apply(h.DB).Preload("Items.Modifiers").First(&o, id).Error; err != nil {
		httpx.JSONError(w, http.StatusNotFound, "not_found", nil)
		return
	}
	httpx.JSON(w, http.StatusOK, o)
}

// Transition: POST /orders/status?id=... body {"status": "..."}
func (h *OrderHandler) Transition(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := auth.TenantIDFromContext(r.Context())
	if !ok {
		httpx.JSONError(w, http.StatusForbidden, "no_tenant_context", nil)
		return
	}
	id := queryID(r, "id")
	var req struct {
		Status models.OrderStatus `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_json", nil)
		return
	}
	var o models.Order
	if err := scope.Tenant(tenantID).Apply(h.DB).First(&o, id).Error; err != nil {
		httpx.JSONError(w, http.StatusNotFound, "not_found", nil)
		return
	}
	if err := h.Svc.Transition(&o, req.Status); err != nil {
		switch {
		case errors.Is(err, services.ErrInvalidStatus):
			httpx.JSONError(w, http.StatusBadRequest, "invalid_status", nil)
		case errors.Is(err, services.ErrTerminalStatus):
			httpx.JSONError(w, http.StatusConflict, "order_already_closed", nil)
		default:
			httpx.JSONError(w, http.StatusInternalServerError, "transition_failed", nil)
		}
		return
	}
	httpx.JSON(w, http.StatusOK, o)
}

// AddItem: POST /orders/items?id=...
func (h *OrderHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := auth.TenantIDFromContext(r.Context())
	if !ok {
		httpx.JSONError(w, http.StatusForbidden, "no_tenant_context", nil)
		return
	}
	id := queryID(r, "id")
	var req orderItemReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_json", nil)
		return
	}
	o, err := h.Svc.AddItem(id, tenantID, services.OrderItemInput{
		MenuItemID:    req.MenuItemID,
		MenuVariantID: req.MenuVariantID,
		Quantity:      req.Quantity,
		Notes:         req.Notes,
		ModifierIDs:   req.ModifierIDs,
	})
	if err != nil {
		orderMutationError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, o)
}

// RemoveItem: POST /orders/items/delete?id=...&item_id=...
func (h *OrderHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := auth.TenantIDFromContext(r.Context())
	if !ok {
		httpx.JSONError(w, http.StatusForbidden, "no_tenant_context", nil)
		return
	}
	o, err := h.Svc.RemoveItem(queryID(r, "id"), queryID(r, "item_id"), tenantID)
	if err != nil {
		orderMutationError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, o)
}

// Pay: POST /orders/pay?id=... body {"method": "cash", "amount": 123}
func (h *OrderHandler) Pay(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := auth.TenantIDFromContext(r.Context())
	if !ok {
		httpx.JSONError(w, http.StatusForbidden, "no_tenant_context", nil)
		return
	}
	id := queryID(r, "id")
	var req struct {
		Method string  `json:"method"`
		Amount float64 `json:"amount"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_json", nil)
		return
	}
	if req.Method == "" || req.Amount <= 0 {
		httpx.JSONError(w, http.StatusBadRequest, "validation_failed", map[string]string{"method": "required", "amount": "must_be_positive"})
		return
	}
	p, err := h.Svc.MarkPaid(id, tenantID, req.Method, req.Amount, actorID(r))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			httpx.JSONError(w, http.StatusNotFound, "not_found", nil)
			return
		}
		httpx.JSONError(w, http.StatusInternalServerError, "payment_failed", nil)
		return
	}
	httpx.JSON(w, http.StatusCreated, p)
}

// Fulfill: POST /orders/fulfill?id=... — records recipe-based stock
// deductions for the order. Manual by design; completing an order does not
// touch stock on its own.
func (h *OrderHandler) Fulfill(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := auth.TenantIDFromContext(r.Context())
	if !ok {
		httpx.JSONError(w, http.StatusForbidden, "no_tenant_context", nil)
		return
	}
	id := queryID(r, "id")
	var o models.Order
	if err := scope.Tenant(tenantID).Apply(h.DB).First(&o, id).Error; err != nil {
		httpx.JSONError(w, http.StatusNotFound, "not_found", nil)
		return
	}
	if err := h.Svc.DeductStockForOrder(h.Stock, &o, actorID(r)); err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "stock_deduction_failed", nil)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"status": "deducted"})
}

// Reset: POST /orders/reset — owner-only wipe of all transactions, requires
// the typed phrase "RESET".
func (h *OrderHandler) Reset(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := auth.TenantIDFromContext(r.Context())
	if !ok {
		httpx.JSONError(w, http.StatusForbidden, "no_tenant_context", nil)
		return
	}
	var req struct {
		Confirm string `json:"confirm"`
	}
	_ = json.NewDecoder(r.Body).Decode(&req)
	if err := h.Svc.ResetTransactions(tenantID, req.Confirm); err != nil {
		if errors.Is(err, services.ErrConfirmationRequired) {
			httpx.JSONError(w, http.StatusBadRequest, "confirmation_required", nil)
			return
		}
		httpx.JSONError(w, http.StatusInternalServerError, "reset_failed", nil)
		return
	}
	h.Audit.Record(actorID(r), "orders.reset", "reset all transactions", clientIP(r), map[string]any{"tenant_id": tenantID})
	httpx.JSON(w, http.StatusOK, map[string]string{"status": "reset"})
}

func orderMutationError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		httpx.JSONError(w, http.StatusNotFound, "not_found", nil)
	case errors.Is(err, services.ErrTerminalStatus):
		httpx.JSONError(w, http.StatusConflict, "order_already_closed", nil)
	default:
		httpx.JSONError(w, http.StatusInternalServerError, "order_update_failed", nil)
	}
}
