package services

import (
	"testing"

	"github.com/kedaiku/pos/internal/models"
)

func TestSettingDefaultAndUpsert(t *testing.T) {
	db := setupServiceDB(t)
	svc := NewSettingService(db)

	if got := svc.Get("app_name", "KedaiKu"); got != "KedaiKu" {
		t.Fatalf("default: %q", got)
	}
	if err := svc.Set("app_name", "Kopi Corner"); err != nil {
		t.Fatalf("set: %v", err)
	}
	if got := svc.Get("app_name", "KedaiKu"); got != "Kopi Corner" {
		t.Fatalf("after set: %q", got)
	}
	// Second Set updates the existing row instead of inserting a duplicate.
	if err := svc.Set("app_name", "Warung"); err != nil {
		t.Fatalf("second set: %v", err)
	}
	var n int64
	if err := db.Model(&models.SystemSetting{}).Where("key = ?", "app_name").Count(&n).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected single row, got %d", n)
	}
}

func TestSettingReadsAreMemoized(t *testing.T) {
	db := setupServiceDB(t)
	svc := NewSettingService(db)

	if err := svc.Set("maintenance", "off"); err != nil {
		t.Fatalf("set: %v", err)
	}
	if got := svc.Get("maintenance", ""); got != "off" {
		t.Fatalf("first read: %q", got)
	}
	// A write behind the service's back is not observed until invalidation.
	if err := db.Model(&models.SystemSetting{}).Where("key = ?", "maintenance").Update("value", "on").Error; err != nil {
		t.Fatalf("raw update: %v", err)
	}
	if got := svc.Get("maintenance", ""); got != "off" {
		t.Fatalf("expected cached value, got %q", got)
	}
	// Writing through the service invalidates the entry.
	if err := svc.Set("maintenance", "on"); err != nil {
		t.Fatalf("set: %v", err)
	}
	if got := svc.Get("maintenance", ""); got != "on" {
		t.Fatalf("after invalidation: %q", got)
	}
}
