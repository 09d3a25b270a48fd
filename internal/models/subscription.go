package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Plan tiers.
const (
	PlanFree   = "free"
	PlanMedium = "medium"
	PlanPro    = "pro"
)

// Subscription states.
const (
	SubStatusActive    = "active"
	SubStatusTrial     = "trial"
	SubStatusCancelled = "cancelled"
	SubStatusExpired   = "expired"
)

// ValidPlan reports whether plan names a known tier.
func ValidPlan(plan string) bool {
	switch plan {
	case PlanFree, PlanMedium, PlanPro:
		return true
	}
	return false
}

type Subscription struct {
	ID                    uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	UserID                uuid.UUID `gorm:"type:uuid;not null;index" json:"user_id"`
	GatewaySubscriptionID string    `gorm:"size:64;index" json:"gateway_subscription_id"`
	PlanType              string    `gorm:"size:20;not null;default:'free'" json:"plan_type"`
	Status                string    `gorm:"size:20;not null;default:'active'" json:"status"`
	CurrentPeriodStart    time.Time `json:"current_period_start"`
	CurrentPeriodEnd      time.Time `json:"current_period_end"`
	CreatedAt             time.Time `json:"created_at"`
	UpdatedAt             time.Time `json:"updated_at"`
	User                  User      `gorm:"foreignKey:UserID" json:"-"`
}

func (s *Subscription) BeforeCreate(*gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}

// Active reports whether the subscription currently grants its plan.
func (s *Subscription) Active(now time.Time) bool {
	if s.Status != SubStatusActive && s.Status != SubStatusTrial {
		return false
	}
	return s.CurrentPeriodEnd.IsZero() || now.Before(s.CurrentPeriodEnd)
}
