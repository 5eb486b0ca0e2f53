package services

import (
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/kedaiku/pos/internal/models"
	"github.com/kedaiku/pos/internal/scope"
)

// SubscriptionService resolves a tenant's current subscription out of its
// history and handles expiry.
type SubscriptionService struct {
	DB *gorm.DB
}

func NewSubscriptionService(db *gorm.DB) *SubscriptionService {
	return &SubscriptionService{DB: db}
}

// Current returns the latest trial/active subscription still in its period,
// or nil when the tenant has none.
func (s *SubscriptionService) Current(tenantID uint) (*models.Subscription, error) {
	var sub models.Subscription
	err := scope.Tenant(tenantID).Apply(s.DB).
		Where("status IN ? AND ends_at >= ?", []models.SubscriptionStatus{models.SubscriptionTrial, models.SubscriptionActive}, time.Now()).
		Order("ends_at desc").
		First(&sub).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &sub, nil
}

// Assign starts a new subscription period for the tenant on the given plan.
func (s *SubscriptionService) Assign(tenantID, planID uint, status models.SubscriptionStatus, startsAt time.Time) (*models.Subscription, error) {
	var plan models.SubscriptionPlan
	if err := s.DB.First(&plan, planID).Error; err != nil {
		return nil, err
	}
	sub := models.Subscription{
		TenantID:  tenantID,
		PlanID:    plan.ID,
		StartsAt:  startsAt,
		EndsAt:    startsAt.AddDate(0, 0, plan.DurationDays),
		PricePaid: plan.Price,
		Status:    status,
	}
	if err := s.DB.Create(&sub).Error; err != nil {
		return nil, err
	}
	return &sub, nil
}

// ExpireOverdue marks trial/active subscriptions past their end date as
// expired. Called from an admin endpoint; there is no background job.
func (s *SubscriptionService) ExpireOverdue(now time.Time) (int64, error) {
	res := s.DB.Model(&models.Subscription{}).
		Where("status IN ? AND ends_at < ?", []models.SubscriptionStatus{models.SubscriptionTrial, models.SubscriptionActive}, now).
		Update("status", models.SubscriptionExpired)
	return res.RowsAffected, res.Error
}
