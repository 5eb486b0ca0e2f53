package db

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	migrate "github.com/golang-migrate/migrate/v4"
	// Blank imports register the postgres driver and file source for golang-migrate.
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	log "github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/kedaiku/pos/internal/models"
)

// AllModels lists every persisted model in dependency order. Shared with the
// test helpers so their schema never drifts from production.
func AllModels() []interface{} {
	return []interface{}{
		&models.Tenant{}, &models.User{}, &models.Category{}, &models.MenuItem{},
		&models.MenuVariant{}, &models.MenuModifier{}, &models.MenuItemModifier{},
		&models.Table{}, &models.Customer{}, &models.Order{}, &models.OrderItem{},
		&models.OrderItemModifier{}, &models.Payment{}, &models.Ingredient{},
		&models.Recipe{}, &models.StockMovement{}, &models.SubscriptionPlan{},
		&models.Subscription{}, &models.SystemSetting{}, &models.AuditLog{},
	}
}

// ConnectAndMigrate opens the database (sqlite file path or postgres DSN) and
// brings the schema up to date. Postgres DSNs may use golang-migrate SQL
// migrations via MIGRATIONS=1; otherwise AutoMigrate runs (dev convenience).
func ConnectAndMigrate(rawDSN string) (*gorm.DB, error) {
	dsn := NormalizeDSN(rawDSN)
	if dsn == "" {
		return nil, fmt.Errorf("DATABASE_DSN is empty, check the environment configuration")
	}
	logLevel := logger.Silent
	if os.Getenv("DB_DEBUG") == "1" {
		logLevel = logger.Info
	}
	cfg := &gorm.Config{Logger: logger.Default.LogMode(logLevel)}

	var gdb *gorm.DB
	var err error
	if IsPostgresDSN(dsn) {
		for i := 0; i < 10; i++ {
			gdb, err = gorm.Open(postgres.Open(dsn), cfg)
			if err == nil {
				break
			}
			log.Warnf("retrying DB connection: %v", err)
			time.Sleep(2 * time.Second)
		}
	} else {
		gdb, err = gorm.Open(sqlite.Open(dsn), cfg)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to connect database: %w", err)
	}
	if pingErr := gdb.Exec("SELECT 1").Error; pingErr != nil {
		return nil, fmt.Errorf("db ping failed: %w", pingErr)
	}
	log.Infof("using DSN: %s", MaskDSN(dsn))

	if v := strings.ToLower(os.Getenv("MIGRATIONS")); IsPostgresDSN(dsn) && (v == "1" || v == "true" || v == "yes") {
		if err := runSQLMigrations(dsn); err != nil {
			return nil, fmt.Errorf("sql migrations failed: %w", err)
		}
	} else {
		for _, m := range AllModels() {
			if migErr := gdb.AutoMigrate(m); migErr != nil {
				return nil, fmt.Errorf("automigrate %T: %w", m, migErr)
			}
		}
	}

	for _, table := range []string{"tenants", "users", "orders"} {
		if !gdb.Migrator().HasTable(table) {
			return nil, errors.New("missing table after migration: " + table)
		}
	}
	if v := strings.ToLower(os.Getenv("DB_SEED")); v == "1" || v == "true" || v == "yes" {
		seed(gdb)
	}
	return gdb, nil
}

func seed(gdb *gorm.DB) {
	basePlans := []models.SubscriptionPlan{
		{Name: "Trial", Price: 0, DurationDays: 14, MaxUsers: 3, MaxMenuItems: 20},
		{Name: "Basic", Price: 99000, DurationDays: 30, MaxUsers: 5, MaxMenuItems: 100},
		{Name: "Pro", Price: 249000, DurationDays: 30, MaxUsers: 20, MaxMenuItems: 0},
	}
	for _, p := range basePlans {
		var existing models.SubscriptionPlan
		if err := gdb.Where("name = ?", p.Name).First(&existing).Error; err == gorm.ErrRecordNotFound {
			gdb.Create(&p)
		}
	}
}

// runSQLMigrations executes migrations in ./migrations using golang-migrate.
func runSQLMigrations(dsn string) error {
	m, err := migrate.New("file://migrations", dsn)
	if err != nil {
		return err
	}
	if err = m.Up(); err != nil && err != migrate.ErrNoChange {
		return err
	}
	return nil
}
