package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/stocxer/stocxer-backend/internal/database"
	"github.com/stocxer/stocxer-backend/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	ErrInsufficientBalance = errors.New("insufficient credit balance")
	ErrDuplicatePayment    = errors.New("gateway payment already credited")
	ErrAccountNotFound     = errors.New("credit account not found")
	ErrInvalidEntry        = errors.New("invalid ledger entry")
)

// LedgerService owns every mutation of credit balances. Each mutation locks
// the user's account row, appends one CreditTransaction and updates the
// balance in a single database transaction, so concurrent webhook deliveries
// and concurrent debits for the same user serialize at the database.
type LedgerService struct {
	db *gorm.DB
}

func NewLedgerService(db *gorm.DB) *LedgerService {
	return &LedgerService{db: db}
}

// withTx returns a clone bound to an open transaction, so callers can fold a
// ledger mutation into a larger atomic unit.
func (s *LedgerService) withTx(tx *gorm.DB) *LedgerService {
	return &LedgerService{db: tx}
}

// EnsureAccount idempotently provisions the credit account row for a user.
// Called from signup; safe to call again at any time.
func (s *LedgerService) EnsureAccount(ctx context.Context, userID uuid.UUID) (*models.CreditAccount, error) {
	if err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}},
			DoNothing: true,
		}).
		Create(&models.CreditAccount{UserID: userID}).Error; err != nil {
		return nil, fmt.Errorf("failed to provision credit account: %w", err)
	}

	// Reload into a fresh struct. The skipped insert above still assigns an
	// ID through the BeforeCreate hook, and GORM would fold that phantom
	// primary key into the lookup conditions.
	var account models.CreditAccount
	if err := s.db.WithContext(ctx).Where("user_id = ?", userID).First(&account).Error; err != nil {
		return nil, fmt.Errorf("failed to load credit account: %w", err)
	}
	return &account, nil
}

// Apply atomically mutates a user's balance and appends the ledger entry.
// Amount is a positive magnitude; entryType determines the sign. For
// purchase-type entries gatewayPaymentID is the idempotency key: a second
// delivery of the same payment returns ErrDuplicatePayment and writes nothing.
func (s *LedgerService) Apply(ctx context.Context, userID uuid.UUID, entryType string, amount int64, gatewayPaymentID, description string) (*models.CreditTransaction, error) {
	if amount <= 0 {
		return nil, fmt.Errorf("%w: amount must be positive, got %d", ErrInvalidEntry, amount)
	}

	var delta int64
	switch entryType {
	case models.EntryPurchase, models.EntryRefund, models.EntryBonus:
		delta = amount
	case models.EntryDebit:
		delta = -amount
	default:
		return nil, fmt.Errorf("%w: unknown entry type %q", ErrInvalidEntry, entryType)
	}

	var entry *models.CreditTransaction
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var account models.CreditAccount
		if err := database.LockForUpdate(tx).
			Where("user_id = ?", userID).
			First(&account).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrAccountNotFound
			}
			return err
		}

		var paymentID *string
		if gatewayPaymentID != "" {
			var existing int64
			if err := tx.Model(&models.CreditTransaction{}).
				Where("gateway_payment_id = ?", gatewayPaymentID).
				Count(&existing).Error; err != nil {
				return err
			}
			if existing > 0 {
				return ErrDuplicatePayment
			}
			paymentID = &gatewayPaymentID
		}

		newBalance := account.Balance + delta
		if newBalance < 0 {
			return ErrInsufficientBalance
		}

		updates := map[string]interface{}{"balance": newBalance}
		switch entryType {
		case models.EntryPurchase:
			updates["lifetime_purchased"] = account.LifetimePurchased + amount
		case models.EntryBonus:
			updates["lifetime_bonus"] = account.LifetimeBonus + amount
		case models.EntryDebit:
			updates["lifetime_spent"] = account.LifetimeSpent + amount
		case models.EntryRefund:
			// A refund reverses an earlier debit rather than counting as a purchase.
			updates["lifetime_spent"] = account.LifetimeSpent - amount
		}
		if err := tx.Model(&models.CreditAccount{}).
			Where("id = ?", account.ID).
			Updates(updates).Error; err != nil {
			return err
		}

		row := models.CreditTransaction{
			UserID:           userID,
			Type:             entryType,
			Amount:           amount,
			BalanceBefore:    account.Balance,
			BalanceAfter:     newBalance,
			GatewayPaymentID: paymentID,
			Description:      description,
		}
		if err := tx.Create(&row).Error; err != nil {
			// Concurrent delivery of the same payment loses the insert race on
			// the unique index and must be treated as already applied.
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return ErrDuplicatePayment
			}
			return err
		}

		entry = &row
		return nil
	})
	if err != nil {
		return nil, err
	}
	return entry, nil
}

// Account returns the current credit account for a user.
func (s *LedgerService) Account(ctx context.Context, userID uuid.UUID) (*models.CreditAccount, error) {
	var account models.CreditAccount
	if err := s.db.WithContext(ctx).Where("user_id = ?", userID).First(&account).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAccountNotFound
		}
		return nil, err
	}
	return &account, nil
}

// History returns the most recent ledger entries for a user, newest first.
func (s *LedgerService) History(ctx context.Context, userID uuid.UUID, limit int) ([]models.CreditTransaction, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	var entries []models.CreditTransaction
	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC, id DESC").
		Limit(limit).
		Find(&entries).Error
	if err != nil {
		return nil, err
	}
	return entries, nil
}
