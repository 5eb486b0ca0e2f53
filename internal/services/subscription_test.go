package services

import (
	"testing"
	"time"

	"github.com/kedaiku/pos/internal/models"
)

func TestSubscriptionAssignAndCurrent(t *testing.T) {
	db := setupServiceDB(t)
	tenant, _, _, _, _ := seedCafe(t, db)
	plan := models.SubscriptionPlan{Name: "Basic", Price: 99000, DurationDays: 30}
	if err := db.Create(&plan).Error; err != nil {
		t.Fatalf("plan: %v", err)
	}
	svc := NewSubscriptionService(db)

	start := time.Now()
	sub, err := svc.Assign(tenant.ID, plan.ID, models.SubscriptionActive, start)
	if err != nil {
		t.Fatalf("assign: %v", err)
	}
	if sub.PricePaid != 99000 {
		t.Fatalf("price paid %f", sub.PricePaid)
	}
	wantEnd := start.AddDate(0, 0, 30)
	if !sub.EndsAt.Equal(wantEnd) {
		t.Fatalf("ends at %v, want %v", sub.EndsAt, wantEnd)
	}

	cur, err := svc.Current(tenant.ID)
	if err != nil {
		t.Fatalf("current: %v", err)
	}
	if cur == nil || cur.ID != sub.ID {
		t.Fatalf("current mismatch: %+v", cur)
	}
}

func TestCurrentIgnoresExpiredHistory(t *testing.T) {
	db := setupServiceDB(t)
	tenant, _, _, _, _ := seedCafe(t, db)
	plan := models.SubscriptionPlan{Name: "Basic", Price: 99000, DurationDays: 30}
	if err := db.Create(&plan).Error; err != nil {
		t.Fatalf("plan: %v", err)
	}
	old := models.Subscription{TenantID: tenant.ID, PlanID: plan.ID, StartsAt: time.Now().AddDate(0, -2, 0), EndsAt: time.Now().AddDate(0, -1, 0), Status: models.SubscriptionActive}
	if err := db.Create(&old).Error; err != nil {
		t.Fatalf("old sub: %v", err)
	}
	svc := NewSubscriptionService(db)
	cur, err := svc.Current(tenant.ID)
	if err != nil {
		t.Fatalf("current: %v", err)
	}
	if cur != nil {
		t.Fatalf("expired subscription reported current: %+v", cur)
	}
}

func TestExpireOverdue(t *testing.T) {
	db := setupServiceDB(t)
	tenant, _, _, _, _ := seedCafe(t, db)
	plan := models.SubscriptionPlan{Name: "Basic", Price: 99000, DurationDays: 30}
	if err := db.Create(&plan).Error; err != nil {
		t.Fatalf("plan: %v", err)
	}
	overdue := models.Subscription{TenantID: tenant.ID, PlanID: plan.ID, StartsAt: time.Now().AddDate(0, -2, 0), EndsAt: time.Now().AddDate(0, 0, -1), Status: models.SubscriptionTrial}
	live := models.Subscription{TenantID: tenant.ID, PlanID: plan.ID, StartsAt: time.Now(), EndsAt: time.Now().AddDate(0, 0, 20), Status: models.SubscriptionActive}
	if err := db.Create(&overdue).Error; err != nil {
		t.Fatalf("overdue: %v", err)
	}
	if err := db.Create(&live).Error; err != nil {
		t.Fatalf("live: %v", err)
	}
	svc := NewSubscriptionService(db)
	n, err := svc.ExpireOverdue(time.Now())
	if err != nil {
		t.Fatalf("expire: %v", err)
	}
	if n != 1 {
		t.Fatalf("expired %d, want 1", n)
	}
	var reloaded models.Subscription
	if err := db.First(&reloaded, overdue.ID).Error; err != nil {
		t.Fatalf("reload: %v", err)
	}
	if reloaded.Status != models.SubscriptionExpired {
		t.Fatalf("status %s", reloaded.Status)
	}
	reloaded = models.Subscription{}
	if err := db.First(&reloaded, live.ID).Error; err != nil {
		t.Fatalf("reload live: %v", err)
	}
	if reloaded.Status != models.SubscriptionActive {
		t.Fatalf("live subscription touched: %s", reloaded.Status)
	}
}
