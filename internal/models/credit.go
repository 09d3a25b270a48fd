package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Ledger entry types. Purchase, refund and bonus add credits; debit removes them.
const (
	EntryPurchase = "purchase"
	EntryDebit    = "debit"
	EntryRefund   = "refund"
	EntryBonus    = "bonus"
)

// CreditAccount is the single balance row per user. The balance is only ever
// mutated together with an appended CreditTransaction, inside one transaction.
// Invariant: Balance = LifetimePurchased - LifetimeSpent + LifetimeBonus, >= 0.
type CreditAccount struct {
	ID                uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	UserID            uuid.UUID `gorm:"type:uuid;not null;uniqueIndex" json:"user_id"`
	Balance           int64     `gorm:"not null;default:0" json:"balance"`
	LifetimePurchased int64     `gorm:"not null;default:0" json:"lifetime_purchased"`
	LifetimeSpent     int64     `gorm:"not null;default:0" json:"lifetime_spent"`
	LifetimeBonus     int64     `gorm:"not null;default:0" json:"lifetime_bonus"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
	User              User      `gorm:"foreignKey:UserID" json:"-"`
}

func (a *CreditAccount) BeforeCreate(*gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}

// CreditTransaction is an append-only ledger entry. Amount is stored as a
// positive magnitude; Type determines the sign of the balance change.
// BalanceAfter of entry n equals BalanceBefore of entry n+1 for a given user.
type CreditTransaction struct {
	ID               uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	UserID           uuid.UUID `gorm:"type:uuid;not null;index" json:"user_id"`
	Type             string    `gorm:"size:20;not null" json:"type"`
	Amount           int64     `gorm:"not null" json:"amount"`
	BalanceBefore    int64     `gorm:"not null" json:"balance_before"`
	BalanceAfter     int64     `gorm:"not null" json:"balance_after"`
	GatewayPaymentID *string   `gorm:"size:64;uniqueIndex" json:"gateway_payment_id,omitempty"`
	Description      string    `gorm:"size:255" json:"description"`
	CreatedAt        time.Time `gorm:"index" json:"created_at"`
	User             User      `gorm:"foreignKey:UserID" json:"-"`
}

func (t *CreditTransaction) BeforeCreate(*gorm.DB) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	return nil
}
