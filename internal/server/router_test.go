package server

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/kedaiku/pos/internal/config"
	"github.com/kedaiku/pos/internal/db"
	"github.com/kedaiku/pos/internal/models"
)

func setupRouter(t *testing.T) (*gorm.DB, http.Handler) {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	gdb, err := db.ConnectAndMigrate(dsn)
	if err != nil {
		t.Fatalf("db: %v", err)
	}
	h, err := New(gdb, config.Config{DatabaseDSN: dsn, BackupDir: t.TempDir()})
	if err != nil {
		t.Fatalf("router: %v", err)
	}
	return gdb, h
}

func seedLoginUser(t *testing.T, gdb *gorm.DB, role models.Role) models.User {
	t.Helper()
	tenant := models.Tenant{Name: "Router Cafe", Slug: "router-" + strings.ToLower(string(role)), Active: true}
	if err := gdb.Create(&tenant).Error; err != nil {
		t.Fatalf("tenant: %v", err)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte("secret123"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("bcrypt: %v", err)
	}
	u := models.User{
		TenantID: &tenant.ID,
		Name:     "Router User",
		Email:    string(role) + "@router.test",
		Password: string(hash),
		Role:     role,
		Active:   true,
	}
	if err := gdb.Create(&u).Error; err != nil {
		t.Fatalf("user: %v", err)
	}
	return u
}

func login(t *testing.T, h http.Handler, email string) *http.Cookie {
	t.Helper()
	body := fmt.Sprintf(`{"email":%q,"password":"secret123"}`, email)
	r := httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(body))
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)
	if w.Code != http.StatusOK {
		t.Fatalf("login: expected 200 got %d body=%s", w.Code, w.Body.String())
	}
	for _, c := range w.Result().Cookies() {
		if c.Name == "session" {
			return c
		}
	}
	t.Fatalf("no session cookie set")
	return nil
}

func TestHealthEndpoints(t *testing.T) {
	_, h := setupRouter(t)

	for _, path := range []string{"/health", "/healthz"} {
		r := httptest.NewRequest(http.MethodGet, path, nil)
		w := httptest.NewRecorder()
		h.ServeHTTP(w, r)
		if w.Code != http.StatusOK {
			t.Fatalf("%s: expected 200 got %d", path, w.Code)
		}
	}
}

func TestProtectedRoutesRequireSession(t *testing.T) {
	_, h := setupRouter(t)

	for _, path := range []string{"/orders", "/menu/items", "/auth/me", "/backups"} {
		r := httptest.NewRequest(http.MethodGet, path, nil)
		w := httptest.NewRecorder()
		h.ServeHTTP(w, r)
		if w.Code != http.StatusUnauthorized {
			t.Fatalf("%s: expected 401 got %d", path, w.Code)
		}
	}
}

func TestLoginCookieGrantsAccessPerRole(t *testing.T) {
	gdb, h := setupRouter(t)
	cashier := seedLoginUser(t, gdb, models.RoleCashier)
	cookie := login(t, h, cashier.Email)

	r := httptest.NewRequest(http.MethodGet, "/orders", nil)
	r.AddCookie(cookie)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)
	if w.Code != http.StatusOK {
		t.Fatalf("/orders with session: expected 200 got %d body=%s", w.Code, w.Body.String())
	}

	// Cashiers can browse the menu but not define it.
	r = httptest.NewRequest(http.MethodPost, "/menu/items", strings.NewReader(`{"name":"Nope"}`))
	r.AddCookie(cookie)
	w = httptest.NewRecorder()
	h.ServeHTTP(w, r)
	if w.Code != http.StatusForbidden {
		t.Fatalf("cashier item create: expected 403 got %d", w.Code)
	}

	// Platform administration stays super-admin only.
	r = httptest.NewRequest(http.MethodGet, "/tenants", nil)
	r.AddCookie(cookie)
	w = httptest.NewRecorder()
	h.ServeHTTP(w, r)
	if w.Code != http.StatusForbidden {
		t.Fatalf("cashier /tenants: expected 403 got %d", w.Code)
	}
}

func TestDisabledUserLosesAccess(t *testing.T) {
	gdb, h := setupRouter(t)
	u := seedLoginUser(t, gdb, models.RoleOwner)
	cookie := login(t, h, u.Email)

	if err := gdb.Model(&models.User{}).Where("id = ?", u.ID).Update("active", false).Error; err != nil {
		t.Fatalf("disable: %v", err)
	}
	r := httptest.NewRequest(http.MethodGet, "/auth/me", nil)
	r.AddCookie(cookie)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("disabled user: expected 401 got %d", w.Code)
	}
}

func TestUnknownRouteReturnsJSON404(t *testing.T) {
	_, h := setupRouter(t)
	r := httptest.NewRequest(http.MethodGet, "/nope", nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404 got %d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); !strings.HasPrefix(ct, "application/json") {
		t.Fatalf("expected json content type, got %q", ct)
	}
}
