package server

import (
	"context"
	"net/http"
	"time"

	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/kedaiku/pos/internal/auth"
	"github.com/kedaiku/pos/internal/backup"
	"github.com/kedaiku/pos/internal/config"
	"github.com/kedaiku/pos/internal/handlers"
	"github.com/kedaiku/pos/internal/httpx"
	"github.com/kedaiku/pos/internal/models"
	"github.com/kedaiku/pos/internal/services"
)

// New constructs the root http.Handler with all routes and middlewares applied.
func New(db *gorm.DB, cfg config.Config) (http.Handler, error) {
	mux := http.NewServeMux()

	// Sessions only carry a user id; resolve it to a live, active user row on
	// every request so disabled accounts lose access immediately.
	auth.SetUserLoader(func(_ context.Context, uid uint) (*models.User, bool) {
		var u models.User
		if err := db.Where("id = ? AND active = ?", uid, true).First(&u).Error; err != nil {
			return nil, false
		}
		return &u, true
	})

	store, err := backup.NewStore(cfg.BackupDir)
	if err != nil {
		return nil, err
	}

	orderSvc := services.NewOrderService(db)
	stockSvc := services.NewStockService(db)
	tenantSvc := services.NewTenantService(db)
	subSvc := services.NewSubscriptionService(db)
	settingSvc := services.NewSettingService(db)
	auditSvc := services.NewAuditService(db)
	fullEngine := backup.NewFullEngine(store, cfg.DatabaseDSN)
	tenantEngine := backup.NewTenantEngine(db, store)

	ah := handlers.NewAuthHandler(db)
	th := handlers.NewTenantHandler(db, tenantSvc, auditSvc)
	sh := handlers.NewStaffHandler(db, auditSvc)
	mh := handlers.NewMenuHandler(db)
	tbh := handlers.NewTableHandler(db)
	ch := handlers.NewCustomerHandler(db)
	oh := handlers.NewOrderHandler(db, orderSvc, stockSvc, auditSvc)
	ivh := handlers.NewInventoryHandler(db, stockSvc)
	subh := handlers.NewSubscriptionHandler(db, subSvc, auditSvc)
	seth := handlers.NewSettingHandler(db, settingSvc, auditSvc)
	bh := handlers.NewBackupHandler(db, store, fullEngine, tenantEngine, auditSvc)
	rh := handlers.NewReportHandler(db)

	// --- Health endpoints ---
	mux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		if err := db.Exec("SELECT 1").Error; err != nil {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"status":"degraded"}`))
			return
		}
		httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	// --- Auth ---
	mux.HandleFunc("/auth/login", ah.Login)
	mux.Handle("/auth/logout", authed(http.HandlerFunc(ah.Logout)))
	mux.Handle("/auth/me", authed(http.HandlerFunc(ah.Me)))

	// --- Public QR table lookup (no session) ---
	mux.HandleFunc("/t", tbh.ByToken)

	// --- Platform administration (super admin only) ---
	superAdmin := func(h http.HandlerFunc) http.Handler {
		return roled(h, models.RoleSuperAdmin)
	}
	mux.Handle("/tenants", superAdmin(listCreate(th.List, th.Create)))
	mux.Handle("/tenants/update", superAdmin(th.Update))
	mux.Handle("/tenants/delete", superAdmin(th.Delete))

	mux.Handle("/plans", authed(listCreateRoled(subh.ListPlans, subh.CreatePlan, models.RoleSuperAdmin)))
	mux.Handle("/plans/update", superAdmin(subh.UpdatePlan))
	mux.Handle("/subscriptions/assign", superAdmin(subh.Assign))
	mux.Handle("/subscriptions/expire-overdue", superAdmin(subh.ExpireOverdue))
	mux.Handle("/subscriptions/current", authed(http.HandlerFunc(subh.Current)))

	mux.Handle("/settings", superAdmin(listCreate(seth.List, seth.Set)))
	mux.Handle("/settings/get", superAdmin(seth.Get))

	mux.Handle("/backups", superAdmin(bh.List))
	mux.Handle("/backups/full", superAdmin(bh.CreateFull))
	mux.Handle("/backups/tenant", superAdmin(bh.CreateTenant))
	mux.Handle("/backups/download", superAdmin(bh.Download))
	mux.Handle("/backups/upload", superAdmin(bh.Upload))
	mux.Handle("/backups/delete", superAdmin(bh.Delete))
	mux.Handle("/backups/restore-full", superAdmin(bh.RestoreFull))
	mux.Handle("/backups/restore-tenant", superAdmin(bh.RestoreTenant))

	// --- Tenant management (owner/manager) ---
	managers := []models.Role{models.RoleOwner, models.RoleManager}
	mux.Handle("/staff", roled(listCreate(sh.List, sh.Create), managers...))
	mux.Handle("/staff/delete", roled(sh.Delete, models.RoleOwner))

	mux.Handle("/menu/categories", authed(listCreateRoled(mh.ListCategories, mh.CreateCategory, managers...)))
	mux.Handle("/menu/categories/delete", roled(mh.DeleteCategory, managers...))
	mux.Handle("/menu/items", authed(listCreateRoled(mh.ListItems, mh.CreateItem, managers...)))
	mux.Handle("/menu/items/update", roled(mh.UpdateItem, managers...))
	mux.Handle("/menu/items/delete", roled(mh.DeleteItem, managers...))
	mux.Handle("/menu/modifiers", roled(mh.CreateModifier, managers...))

	mux.Handle("/tables", authed(listCreateRoled(tbh.List, tbh.Create, managers...)))
	mux.Handle("/tables/status", authed(http.HandlerFunc(tbh.SetStatus)))
	mux.Handle("/tables/delete", roled(tbh.Delete, managers...))

	mux.Handle("/customers", authed(listCreate(ch.List, ch.Create)))
	mux.Handle("/customers/delete", roled(ch.Delete, managers...))

	// --- Order flow (any authenticated staff) ---
	mux.Handle("/orders", authed(listCreate(oh.List, oh.Create)))
	mux.Handle("/orders/get", authed(http.HandlerFunc(oh.Get)))
	mux.Handle("/orders/transition", authed(http.HandlerFunc(oh.Transition)))
	mux.Handle("/orders/items/add", authed(http.HandlerFunc(oh.AddItem)))
	mux.Handle("/orders/items/remove", authed(http.HandlerFunc(oh.RemoveItem)))
	mux.Handle("/orders/pay", authed(http.HandlerFunc(oh.Pay)))
	mux.Handle("/orders/fulfill", authed(http.HandlerFunc(oh.Fulfill)))
	mux.Handle("/orders/reset", roled(oh.Reset, models.RoleOwner))

	// --- Inventory (owner/manager, plus kitchen for reads and movements) ---
	kitchenAnd := append([]models.Role{models.RoleKitchen}, managers...)
	mux.Handle("/inventory/ingredients", roled(listCreateRoled(ivh.ListIngredients, ivh.CreateIngredient, managers...), kitchenAnd...))
	mux.Handle("/inventory/movements", roled(listCreate(ivh.ListMovements, ivh.RecordMovement), kitchenAnd...))
	mux.Handle("/inventory/low-stock", authed(http.HandlerFunc(ivh.LowStock)))
	mux.Handle("/inventory/recipes", roled(ivh.SetRecipe, managers...))

	// --- Reports ---
	mux.Handle("/reports/sales.xlsx", roled(rh.Sales, managers...))
	mux.Handle("/reports/inventory.xlsx", roled(rh.Inventory, managers...))

	mux.HandleFunc("/", func(w http.ResponseWriter, _ *http.Request) {
		httpx.JSONError(w, http.StatusNotFound, "not_found", nil)
	})

	return withRecover(withLogging(auth.Middleware(mux))), nil
}

// authed requires a valid session.
func authed(h http.Handler) http.Handler { return auth.RequireAuth(h) }

// roled requires a valid session with one of the given roles.
func roled(h http.HandlerFunc, roles ...models.Role) http.Handler {
	return auth.RequireRole(h, roles...)
}

// listCreate dispatches GET to list and POST to create.
func listCreate(list, create http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			list(w, r)
		case http.MethodPost:
			create(w, r)
		default:
			w.Header().Set("Allow", "GET,POST")
			httpx.JSONError(w, http.StatusMethodNotAllowed, "method_not_allowed", nil)
		}
	}
}

// listCreateRoled lets any authenticated user list but restricts creation.
func listCreateRoled(list, create http.HandlerFunc, createRoles ...models.Role) http.HandlerFunc {
	restricted := auth.RequireRole(create, createRoles...)
	return func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			list(w, r)
		case http.MethodPost:
			restricted.ServeHTTP(w, r)
		default:
			w.Header().Set("Allow", "GET,POST")
			httpx.JSONError(w, http.StatusMethodNotAllowed, "method_not_allowed", nil)
		}
	}
}

func withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		log.WithFields(log.Fields{
			"method":   r.Method,
			"path":     r.URL.Path,
			"duration": time.Since(start).String(),
		}).Info("request")
	})
}

func withRecover(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				log.Errorf("panic serving %s %s: %v", r.Method, r.URL.Path, rec)
				httpx.JSONError(w, http.StatusInternalServerError, "internal_error", nil)
			}
		}()
		next.ServeHTTP(w, r)
	})
}
