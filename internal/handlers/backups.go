package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"gorm.io/gorm"

	"github.com/kedaiku/pos/internal/backup"
	"github.com/kedaiku/pos/internal/httpx"
	"github.com/kedaiku/pos/internal/models"
	"github.com/kedaiku/pos/internal/services"
)

// dumpTimeout bounds the external pg_dump/psql invocations.
const dumpTimeout = 5 * time.Minute

const maxUploadBytes = 64 << 20

// BackupHandler exposes the backup/restore surface. Destructive operations
// require a typed confirmation phrase; the handler never keeps confirmation
// state across requests, so a failed restore must be re-confirmed.
type BackupHandler struct {
	DB     *gorm.DB
	Store  *backup.Store
	Full   *backup.FullEngine
	Tenant *backup.TenantEngine
	Audit  *services.AuditService
}

func NewBackupHandler(db *gorm.DB, store *backup.Store, full *backup.FullEngine, tenant *backup.TenantEngine, audit *services.AuditService) *BackupHandler {
	return &BackupHandler{DB: db, Store: store, Full: full, Tenant: tenant, Audit: audit}
}

// List: GET /admin/backups
func (h *BackupHandler) List(w http.ResponseWriter, r *http.Request) {
	infos, err := h.Store.List()
	if err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "failed_to_list_backups", nil)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"items": infos, "total": len(infos)})
}

// CreateFull: POST /admin/backups/full
func (h *BackupHandler) CreateFull(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), dumpTimeout)
	defer cancel()
	name, err := h.Full.CreateFull(ctx)
	if err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "backup_failed", map[string]string{"reason": err.Error()})
		return
	}
	h.Audit.Record(actorID(r), "backup.create", "created full backup "+name, clientIP(r), nil)
	httpx.JSON(w, http.StatusCreated, map[string]string{"name": name})
}

// CreateTenant: POST /admin/backups/tenant?tenant_id=...
func (h *BackupHandler) CreateTenant(w http.ResponseWriter, r *http.Request) {
	tenantID := queryID(r, "tenant_id")
	if tenantID == 0 {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_tenant_id", nil)
		return
	}
	name, err := h.Tenant.ExportToFile(tenantID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			httpx.JSONError(w, http.StatusNotFound, "tenant_not_found", nil)
			return
		}
		httpx.JSONError(w, http.StatusInternalServerError, "backup_failed", nil)
		return
	}
	h.Audit.Record(actorID(r), "backup.create", "created tenant backup "+name, clientIP(r), map[string]any{"tenant_id": tenantID})
	httpx.JSON(w, http.StatusCreated, map[string]string{"name": name})
}

// Download: GET /admin/backups/download?name=...
func (h *BackupHandler) Download(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get("name")
	data, err := h.Store.Read(name)
	if err != nil {
		backupStoreError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set("Content-Disposition", `attachment; filename="`+name+`"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

// Upload: POST /admin/backups/upload?name=... — stores an uploaded tenant
// backup under upload_{ts}_{sanitized}.json for a later restore.
func (h *BackupHandler) Upload(w http.ResponseWriter, r *http.Request) {
	data, err := io.ReadAll(io.LimitReader(r.Body, maxUploadBytes+1))
	if err != nil || len(data) == 0 {
		httpx.JSONError(w, http.StatusBadRequest, "empty_upload", nil)
		return
	}
	if len(data) > maxUploadBytes {
		httpx.JSONError(w, http.StatusBadRequest, "upload_too_large", nil)
		return
	}
	// must be a parseable tenant backup before it is stored
	if _, err := backup.ParseDocument(data); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_tenant_backup", nil)
		return
	}
	name := "upload_" + time.Now().UTC().Format("20060102-150405") + "_" + backup.SanitizeName(r.URL.Query().Get("name")) + ".json"
	if _, err := h.Store.Write(name, data); err != nil {
		backupStoreError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, map[string]string{"name": name})
}

// Delete: POST /admin/backups/delete?name=...
func (h *BackupHandler) Delete(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get("name")
	if err := h.Store.Delete(name); err != nil {
		backupStoreError(w, err)
		return
	}
	h.Audit.Record(actorID(r), "backup.delete", "deleted backup "+name, clientIP(r), nil)
	httpx.JSON(w, http.StatusOK, map[string]string{"deleted": name})
}

// RestoreFull: POST /admin/backups/restore-full?name=... with
// {"confirm":"RESTORE"}. Destructive and non-transactional: on failure the
// operator recovers manually from the auto-before-restore snapshot.
func (h *BackupHandler) RestoreFull(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Confirm string `json:"confirm"`
	}
	_ = json.NewDecoder(r.Body).Decode(&req)
	if req.Confirm != "RESTORE" {
		httpx.JSONError(w, http.StatusBadRequest, "confirmation_required", nil)
		return
	}
	name := r.URL.Query().Get("name")
	ctx, cancel := context.WithTimeout(r.Context(), dumpTimeout)
	defer cancel()
	if err := h.Full.RestoreFull(ctx, name); err != nil {
		if errors.Is(err, backup.ErrUnsafePath) || errors.Is(err, backup.ErrBackupNotFound) {
			backupStoreError(w, err)
			return
		}
		httpx.JSONError(w, http.StatusInternalServerError, "restore_failed", map[string]string{"reason": err.Error()})
		return
	}
	h.Audit.Record(actorID(r), "backup.restore", "restored full backup "+name, clientIP(r), nil)
	httpx.JSON(w, http.StatusOK, map[string]string{"status": "restored"})
}

// RestoreTenant: POST /admin/backups/restore-tenant?name=...&tenant_id=...
// with {"confirm":"RESTORE"}. Replaces the target tenant's data from the
// stored document inside one transaction.
func (h *BackupHandler) RestoreTenant(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Confirm string `json:"confirm"`
	}
	_ = json.NewDecoder(r.Body).Decode(&req)
	if req.Confirm != "RESTORE" {
		httpx.JSONError(w, http.StatusBadRequest, "confirmation_required", nil)
		return
	}
	tenantID := queryID(r, "tenant_id")
	if tenantID == 0 {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_tenant_id", nil)
		return
	}
	var tenant models.Tenant
	if err := h.DB.First(&tenant, tenantID).Error; err != nil {
		httpx.JSONError(w, http.StatusNotFound, "tenant_not_found", nil)
		return
	}
	name := r.URL.Query().Get("name")
	data, err := h.Store.Read(name)
	if err != nil {
		backupStoreError(w, err)
		return
	}
	doc, err := backup.ParseDocument(data)
	if err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_tenant_backup", nil)
		return
	}
	stats, err := h.Tenant.RestoreTenant(doc, tenantID)
	if err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "restore_failed", map[string]string{"reason": err.Error()})
		return
	}
	h.Audit.Record(actorID(r), "backup.restore", "restored tenant backup "+name, clientIP(r), map[string]any{"tenant_id": tenantID})
	httpx.JSON(w, http.StatusOK, stats)
}

func backupStoreError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, backup.ErrUnsafePath):
		httpx.JSONError(w, http.StatusBadRequest, "unsafe_backup_path", nil)
	case errors.Is(err, backup.ErrBackupNotFound):
		httpx.JSONError(w, http.StatusNotFound, "backup_not_found", nil)
	default:
		httpx.JSONError(w, http.StatusInternalServerError, "backup_io_failed", nil)
	}
}
