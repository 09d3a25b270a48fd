package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/stocxer/stocxer-backend/internal/gateway"
	"github.com/stocxer/stocxer-backend/internal/models"
	"gorm.io/gorm"
)

var ErrSubscriptionNotFound = errors.New("subscription not found")

// SubscriptionService mutates subscription state from gateway events. No
// credit ledger involvement; subscriptions and credits are separate products.
type SubscriptionService struct {
	db *gorm.DB
}

func NewSubscriptionService(db *gorm.DB) *SubscriptionService {
	return &SubscriptionService{db: db}
}

func (s *SubscriptionService) HandleActivated(ctx context.Context, e gateway.SubscriptionActivated) error {
	userID, err := uuid.Parse(e.Notes.UserID)
	if err != nil {
		return fmt.Errorf("%w: %q", ErrPaymentNoUser, e.Notes.UserID)
	}

	plan := e.PlanType
	if !models.ValidPlan(plan) {
		return fmt.Errorf("subscription %s references unknown plan %q", e.SubscriptionID, plan)
	}

	sub := models.Subscription{
		UserID:                userID,
		GatewaySubscriptionID: e.SubscriptionID,
		PlanType:              plan,
		Status:                models.SubStatusActive,
		CurrentPeriodStart:    e.PeriodStart,
		CurrentPeriodEnd:      e.PeriodEnd,
	}

	var existing models.Subscription
	err = s.db.WithContext(ctx).
		Where("gateway_subscription_id = ?", e.SubscriptionID).
		First(&existing).Error
	if err == nil {
		return s.db.WithContext(ctx).Model(&existing).Updates(map[string]interface{}{
			"plan_type":            plan,
			"status":               models.SubStatusActive,
			"current_period_start": e.PeriodStart,
			"current_period_end":   e.PeriodEnd,
		}).Error
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}
	return s.db.WithContext(ctx).Create(&sub).Error
}

func (s *SubscriptionService) HandleCharged(ctx context.Context, e gateway.SubscriptionCharged) error {
	var sub models.Subscription
	err := s.db.WithContext(ctx).
		Where("gateway_subscription_id = ?", e.SubscriptionID).
		First(&sub).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		// Charge delivered before (or without) the activation event.
		return s.HandleActivated(ctx, gateway.SubscriptionActivated(e))
	}
	if err != nil {
		return err
	}

	return s.db.WithContext(ctx).Model(&sub).Updates(map[string]interface{}{
		"status":               models.SubStatusActive,
		"current_period_start": e.PeriodStart,
		"current_period_end":   e.PeriodEnd,
	}).Error
}

func (s *SubscriptionService) HandleCancelled(ctx context.Context, e gateway.SubscriptionCancelled) error {
	res := s.db.WithContext(ctx).
		Model(&models.Subscription{}).
		Where("gateway_subscription_id = ?", e.SubscriptionID).
		Update("status", models.SubStatusCancelled)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%w: %s", ErrSubscriptionNotFound, e.SubscriptionID)
	}
	return nil
}
