package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Payment lifecycle states reported by the gateway.
const (
	PaymentStatusCreated  = "created"
	PaymentStatusPending  = "pending"
	PaymentStatusCaptured = "captured"
	PaymentStatusFailed   = "failed"
	PaymentStatusRefunded = "refunded"
)

// What a payment buys.
const (
	PaymentTypeSubscription = "subscription"
	PaymentTypeCredits      = "credits"
	PaymentTypeRefund       = "refund"
)

// PaymentRecord tracks one gateway transaction attempt. A failed record never
// has a corresponding CreditTransaction.
type PaymentRecord struct {
	ID               uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	UserID           uuid.UUID      `gorm:"type:uuid;not null;index" json:"user_id"`
	GatewayPaymentID *string        `gorm:"size:64;uniqueIndex" json:"gateway_payment_id,omitempty"`
	GatewayOrderID   string         `gorm:"size:64;index" json:"gateway_order_id"`
	AmountPaise      int64          `gorm:"not null" json:"amount_paise"`
	Currency         string         `gorm:"size:8;default:'INR'" json:"currency"`
	Status           string         `gorm:"size:20;not null;default:'created'" json:"status"`
	PaymentType      string         `gorm:"size:20;not null" json:"payment_type"`
	PackID           *uuid.UUID     `gorm:"type:uuid" json:"pack_id,omitempty"`
	Method           string         `gorm:"size:32" json:"method,omitempty"`
	ErrorCode        string         `gorm:"size:64" json:"error_code,omitempty"`
	ErrorDescription string         `gorm:"size:255" json:"error_description,omitempty"`
	Notes            datatypes.JSON `gorm:"type:jsonb" json:"notes,omitempty"`
	CreatedAt        time.Time      `json:"created_at"`
	UpdatedAt        time.Time      `json:"updated_at"`
	User             User           `gorm:"foreignKey:UserID" json:"-"`
}

func (p *PaymentRecord) BeforeCreate(*gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}

// CreditPack is a purchasable bundle of credits. Seeded at migration and
// served publicly as the pack catalog.
type CreditPack struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Name         string    `gorm:"size:100;not null;uniqueIndex" json:"name"`
	AmountINR    int64     `gorm:"not null" json:"amount_inr"`
	Credits      int64     `gorm:"not null" json:"credits"`
	BonusCredits int64     `gorm:"not null;default:0" json:"bonus_credits"`
	SortOrder    int       `gorm:"not null;default:0" json:"sort_order"`
	IsActive     bool      `gorm:"not null;default:true" json:"is_active"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func (p *CreditPack) BeforeCreate(*gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}
