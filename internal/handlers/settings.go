package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"gorm.io/gorm"

	"github.com/kedaiku/pos/internal/httpx"
	"github.com/kedaiku/pos/internal/models"
	"github.com/kedaiku/pos/internal/services"
)

// SettingHandler exposes the platform key/value settings. Super-admin only.
type SettingHandler struct {
	DB    *gorm.DB
	Svc   *services.SettingService
	Audit *services.AuditService
}

func NewSettingHandler(db *gorm.DB, svc *services.SettingService, audit *services.AuditService) *SettingHandler {
	return &SettingHandler{DB: db, Svc: svc, Audit: audit}
}

// List: GET /settings
func (h *SettingHandler) List(w http.ResponseWriter, r *http.Request) {
	var rows []models.SystemSetting
	if err := h.DB.Order("key asc").Find(&rows).Error; err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "failed_to_list_settings", nil)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"items": rows, "total": len(rows)})
}

// Get: GET /settings/get?key=...
func (h *SettingHandler) Get(w http.ResponseWriter, r *http.Request) {
	key := strings.TrimSpace(r.URL.Query().Get("key"))
	if key == "" {
		httpx.JSONError(w, http.StatusBadRequest, "key_required", nil)
		return
	}
	value := h.Svc.Get(key, r.URL.Query().Get("default"))
	httpx.JSON(w, http.StatusOK, map[string]any{"key": key, "value": value})
}

// Set: POST /settings
func (h *SettingHandler) Set(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Key   string `json:"key"`
		Value string `json:"value"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_json", nil)
		return
	}
	req.Key = strings.TrimSpace(req.Key)
	if req.Key == "" {
		httpx.JSONError(w, http.StatusBadRequest, "key_required", nil)
		return
	}
	if err := h.Svc.Set(req.Key, req.Value); err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "setting_write_failed", nil)
		return
	}
	h.Audit.Record(actorID(r), "settings.set", "updated setting "+req.Key, clientIP(r), map[string]any{"key": req.Key})
	httpx.JSON(w, http.StatusOK, map[string]any{"key": req.Key, "value": req.Value})
}
