package handlers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"gorm.io/gorm"

	"github.com/kedaiku/pos/internal/backup"
	"github.com/kedaiku/pos/internal/models"
	"github.com/kedaiku/pos/internal/services"
)

func newBackupHandler(t *testing.T, db *gorm.DB) *BackupHandler {
	t.Helper()
	store, err := backup.NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("store: %v", err)
	}
	return NewBackupHandler(db, store, backup.NewFullEngine(store, "test.db"), backup.NewTenantEngine(db, store), services.NewAuditService(db))
}

func TestBackupTenantExportDownloadRestore(t *testing.T) {
	db := setupHandlerDB(t)
	tenant, owner, item, _ := seedHandlerTenant(t, db)
	h := newBackupHandler(t, db)

	// Export
	req := asUser(httptest.NewRequest(http.MethodPost, fmt.Sprintf("/backups/tenant?tenant_id=%d", tenant.ID), nil), &owner)
	w := doJSON(t, h.CreateTenant, req)
	if w.Code != http.StatusCreated {
		t.Fatalf("export: expected 201 got %d body=%s", w.Code, w.Body.String())
	}
	var created map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode: %v", err)
	}
	name := created["name"]
	if !strings.HasPrefix(name, "backup_tenant_kopi-handler_") {
		t.Fatalf("unexpected backup name %q", name)
	}

	// Download round-trips the document.
	req = asUser(httptest.NewRequest(http.MethodGet, "/backups/download?name="+name, nil), &owner)
	w = doJSON(t, h.Download, req)
	if w.Code != http.StatusOK {
		t.Fatalf("download: expected 200 got %d", w.Code)
	}
	if _, err := backup.ParseDocument(w.Body.Bytes()); err != nil {
		t.Fatalf("downloaded doc invalid: %v", err)
	}

	// Wipe the menu, then restore it from the backup.
	if err := db.Where("tenant_id = ?", tenant.ID).Delete(&models.MenuItem{}).Error; err != nil {
		t.Fatalf("wipe: %v", err)
	}
	url := fmt.Sprintf("/backups/restore-tenant?name=%s&tenant_id=%d", name, tenant.ID)

	req = asUser(httptest.NewRequest(http.MethodPost, url, strings.NewReader(`{"confirm":"no"}`)), &owner)
	if w := doJSON(t, h.RestoreTenant, req); w.Code != http.StatusBadRequest {
		t.Fatalf("missing confirmation: expected 400 got %d", w.Code)
	}

	req = asUser(httptest.NewRequest(http.MethodPost, url, strings.NewReader(`{"confirm":"RESTORE"}`)), &owner)
	w = doJSON(t, h.RestoreTenant, req)
	if w.Code != http.StatusOK {
		t.Fatalf("restore: expected 200 got %d body=%s", w.Code, w.Body.String())
	}
	var stats backup.RestoreStats
	if err := json.Unmarshal(w.Body.Bytes(), &stats); err != nil {
		t.Fatalf("decode stats: %v", err)
	}
	if stats.Inserted["menu_items"] != 1 {
		t.Fatalf("menu item not restored: %+v", stats)
	}
	var restored models.MenuItem
	if err := db.Where("tenant_id = ?", tenant.ID).First(&restored).Error; err != nil {
		t.Fatalf("restored item: %v", err)
	}
	if restored.Name != item.Name {
		t.Fatalf("restored %q, want %q", restored.Name, item.Name)
	}
}

func TestBackupDownloadRejectsTraversal(t *testing.T) {
	db := setupHandlerDB(t)
	_, owner, _, _ := seedHandlerTenant(t, db)
	h := newBackupHandler(t, db)

	req := asUser(httptest.NewRequest(http.MethodGet, "/backups/download?name=..%2F..%2Fetc%2Fpasswd", nil), &owner)
	if w := doJSON(t, h.Download, req); w.Code != http.StatusBadRequest {
		t.Fatalf("traversal: expected 400 got %d", w.Code)
	}
	req = asUser(httptest.NewRequest(http.MethodGet, "/backups/download?name=missing.json", nil), &owner)
	if w := doJSON(t, h.Download, req); w.Code != http.StatusNotFound {
		t.Fatalf("missing: expected 404 got %d", w.Code)
	}
}

func TestBackupUploadValidatesDocument(t *testing.T) {
	db := setupHandlerDB(t)
	tenant, owner, _, _ := seedHandlerTenant(t, db)
	h := newBackupHandler(t, db)

	// Garbage is rejected before it touches the store.
	req := asUser(httptest.NewRequest(http.MethodPost, "/backups/upload?name=evil.json", strings.NewReader("not a backup")), &owner)
	if w := doJSON(t, h.Upload, req); w.Code != http.StatusBadRequest {
		t.Fatalf("garbage upload: expected 400 got %d", w.Code)
	}

	// A real export uploads fine.
	doc, err := h.Tenant.Export(tenant.ID)
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	raw, err := json.Marshal(doc)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	req = asUser(httptest.NewRequest(http.MethodPost, "/backups/upload?name=My%20Backup.json", bytes.NewReader(raw)), &owner)
	w := doJSON(t, h.Upload, req)
	if w.Code != http.StatusCreated {
		t.Fatalf("upload: expected 201 got %d body=%s", w.Code, w.Body.String())
	}
	var resp map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !strings.HasPrefix(resp["name"], "upload_") || !strings.HasSuffix(resp["name"], "MyBackup.json.json") {
		t.Fatalf("unexpected stored name %q", resp["name"])
	}

	// The uploaded file shows up in the listing as an upload.
	req = asUser(httptest.NewRequest(http.MethodGet, "/backups", nil), &owner)
	w = doJSON(t, h.List, req)
	if w.Code != http.StatusOK {
		t.Fatalf("list: expected 200 got %d", w.Code)
	}
	var list struct {
		Items []backup.Info `json:"items"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &list); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if len(list.Items) != 1 || list.Items[0].Kind != "upload" {
		t.Fatalf("unexpected listing: %+v", list.Items)
	}
}
