package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/stocxer/stocxer-backend/internal/database"
	"github.com/stocxer/stocxer-backend/internal/dto"
	"github.com/stocxer/stocxer-backend/internal/gateway"
	"github.com/stocxer/stocxer-backend/internal/models"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	ErrPackNotFound  = errors.New("credit pack not found")
	ErrPaymentNoUser = errors.New("payment event carries no resolvable user")
)

// BillingService owns the pack catalog, checkout orders and the reconciliation
// of gateway payment events into the credit ledger.
type BillingService struct {
	db     *gorm.DB
	ledger *LedgerService
	quota  *QuotaService
}

func NewBillingService(db *gorm.DB, ledger *LedgerService, quota *QuotaService) *BillingService {
	return &BillingService{db: db, ledger: ledger, quota: quota}
}

// ListPacks returns the active credit pack catalog in display order.
func (s *BillingService) ListPacks(ctx context.Context) ([]models.CreditPack, error) {
	var packs []models.CreditPack
	err := s.db.WithContext(ctx).
		Where("is_active = ?", true).
		Order("sort_order ASC, amount_inr ASC").
		Find(&packs).Error
	if err != nil {
		return nil, err
	}
	return packs, nil
}

// CreateCheckout opens a local order for a pack purchase. The frontend hands
// the returned order reference to the hosted gateway checkout; the webhook
// closes the loop.
func (s *BillingService) CreateCheckout(ctx context.Context, userID uuid.UUID, packID uuid.UUID) (*models.PaymentRecord, error) {
	var pack models.CreditPack
	if err := s.db.WithContext(ctx).
		Where("id = ? AND is_active = ?", packID, true).
		First(&pack).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPackNotFound
		}
		return nil, err
	}

	notes, err := json.Marshal(gateway.PaymentNotes{
		UserID:      userID.String(),
		PackID:      pack.ID.String(),
		PaymentType: models.PaymentTypeCredits,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode order notes: %w", err)
	}

	record := models.PaymentRecord{
		UserID:         userID,
		GatewayOrderID: "order_" + strings.ReplaceAll(uuid.New().String(), "-", "")[:20],
		AmountPaise:    pack.AmountINR * 100,
		Currency:       "INR",
		Status:         models.PaymentStatusCreated,
		PaymentType:    models.PaymentTypeCredits,
		PackID:         &pack.ID,
		Notes:          datatypes.JSON(notes),
	}
	if err := s.db.WithContext(ctx).Create(&record).Error; err != nil {
		return nil, fmt.Errorf("failed to create checkout order: %w", err)
	}
	return &record, nil
}

// ApplyCapturedPayment reconciles a payment.captured event. Credits purchases
// feed the ledger keyed by the gateway payment ID; replays surface as
// ErrDuplicatePayment, which callers treat as success.
func (s *BillingService) ApplyCapturedPayment(ctx context.Context, e gateway.PaymentCaptured) error {
	userID, err := uuid.Parse(e.Notes.UserID)
	if err != nil {
		return fmt.Errorf("%w: %q", ErrPaymentNoUser, e.Notes.UserID)
	}

	var exists int64
	if err := s.db.WithContext(ctx).Model(&models.User{}).
		Where("id = ?", userID).
		Count(&exists).Error; err != nil {
		return err
	}
	if exists == 0 {
		return fmt.Errorf("%w: user %s", ErrUserNotFound, userID)
	}

	if err := s.recordPaymentStatus(ctx, userID, e.PaymentID, e.OrderID, e.AmountPaise, models.PaymentStatusCaptured, e.Method, "", "", e.Notes); err != nil {
		return err
	}

	if e.Notes.PaymentType != models.PaymentTypeCredits {
		// Subscription charges mutate subscription state via their own events.
		return nil
	}

	packID, err := uuid.Parse(e.Notes.PackID)
	if err != nil {
		return fmt.Errorf("%w: bad pack reference %q", ErrPackNotFound, e.Notes.PackID)
	}
	var pack models.CreditPack
	if err := s.db.WithContext(ctx).Where("id = ?", packID).First(&pack).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("%w: %s", ErrPackNotFound, packID)
		}
		return err
	}

	credits := pack.Credits + pack.BonusCredits
	description := fmt.Sprintf("Purchased %s (%d credits + %d bonus)", pack.Name, pack.Credits, pack.BonusCredits)
	_, err = s.ledger.Apply(ctx, userID, models.EntryPurchase, credits, e.PaymentID, description)
	return err
}

// MarkPaymentFailed records a failed gateway payment. No ledger mutation.
func (s *BillingService) MarkPaymentFailed(ctx context.Context, e gateway.PaymentFailed) error {
	userID, err := uuid.Parse(e.Notes.UserID)
	if err != nil {
		return fmt.Errorf("%w: %q", ErrPaymentNoUser, e.Notes.UserID)
	}
	return s.recordPaymentStatus(ctx, userID, e.PaymentID, e.OrderID, e.AmountPaise, models.PaymentStatusFailed, "", e.ErrorCode, e.ErrorDescription, e.Notes)
}

// recordPaymentStatus upserts the PaymentRecord for a gateway payment,
// attaching it to the checkout order when one exists.
func (s *BillingService) recordPaymentStatus(ctx context.Context, userID uuid.UUID, paymentID, orderID string, amountPaise int64, status, method, errorCode, errorDescription string, notes gateway.PaymentNotes) error {
	if orderID != "" {
		res := s.db.WithContext(ctx).Model(&models.PaymentRecord{}).
			Where("gateway_order_id = ? AND gateway_payment_id IS NULL", orderID).
			Updates(map[string]interface{}{
				"gateway_payment_id": paymentID,
				"status":             status,
				"method":             method,
				"error_code":         errorCode,
				"error_description":  errorDescription,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected > 0 {
			return nil
		}
	}

	encoded, err := json.Marshal(notes)
	if err != nil {
		return fmt.Errorf("failed to encode payment notes: %w", err)
	}

	paymentType := notes.PaymentType
	if paymentType == "" {
		paymentType = models.PaymentTypeCredits
	}
	var packID *uuid.UUID
	if id, err := uuid.Parse(notes.PackID); err == nil {
		packID = &id
	}

	record := models.PaymentRecord{
		UserID:           userID,
		GatewayPaymentID: &paymentID,
		GatewayOrderID:   orderID,
		AmountPaise:      amountPaise,
		Status:           status,
		PaymentType:      paymentType,
		PackID:           packID,
		Method:           method,
		ErrorCode:        errorCode,
		ErrorDescription: errorDescription,
		Notes:            datatypes.JSON(encoded),
	}
	return s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "gateway_payment_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"status", "method", "error_code", "error_description", "updated_at",
			}),
		}).
		Create(&record).Error
}

// ConsumeScan enforces the plan's daily allowance, counts the scan and debits
// its credit cost. The quota check and the debit are the billing side of a
// scan; the analysis itself runs elsewhere.
func (s *BillingService) ConsumeScan(ctx context.Context, userID uuid.UUID, scanType string) error {
	status, err := s.Status(ctx, userID)
	if err != nil {
		return err
	}

	limits := models.PlanLimit{
		PlanType:       status.PlanType,
		DailyScans:     status.Limits.DailyScans,
		MonthlyScans:   status.Limits.MonthlyScans,
		ScanCreditCost: status.Limits.ScanCreditCost,
	}

	// Check, debit and count in one transaction. The account row lock
	// serializes concurrent scans from the same user, so the limit check
	// and the counter cannot drift apart, and a failed count rolls the
	// debit back.
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var account models.CreditAccount
		if err := database.LockForUpdate(tx).Where("user_id = ?", userID).First(&account).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrAccountNotFound
			}
			return err
		}

		quota := s.quota.withTx(tx)
		if err := quota.CheckDailyLimit(ctx, userID, &limits); err != nil {
			return err
		}

		if limits.ScanCreditCost > 0 {
			description := fmt.Sprintf("Scan: %s", scanType)
			if _, err := s.ledger.withTx(tx).Apply(ctx, userID, models.EntryDebit, limits.ScanCreditCost, "", description); err != nil {
				return err
			}
		}

		return quota.RecordScan(ctx, userID, scanType)
	})
}

// Status assembles the billing dashboard view: current plan, balance, today's
// usage and the plan's limits.
func (s *BillingService) Status(ctx context.Context, userID uuid.UUID) (*dto.BillingStatusResponse, error) {
	account, err := s.ledger.EnsureAccount(ctx, userID)
	if err != nil {
		return nil, err
	}

	planType := models.PlanFree
	var sub models.Subscription
	err = s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("updated_at DESC").
		First(&sub).Error
	if err == nil && sub.Active(nowUTC()) {
		planType = sub.PlanType
	} else if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	var limits models.PlanLimit
	if err := s.db.WithContext(ctx).Where("plan_type = ?", planType).First(&limits).Error; err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
		// A plan whose limits row was deleted falls back to the free tier
		// allowances rather than unlimited zero-cost scans.
		limits = models.DefaultFreeLimits()
		limits.PlanType = planType
	}

	todayUsage, err := s.quota.TodayUsage(ctx, userID)
	if err != nil {
		return nil, err
	}

	return &dto.BillingStatusResponse{
		PlanType:       planType,
		CreditsBalance: account.Balance,
		TodayUsage:     todayUsage,
		Limits: dto.PlanLimitsResponse{
			DailyScans:       limits.DailyScans,
			MonthlyScans:     limits.MonthlyScans,
			ScanCreditCost:   limits.ScanCreditCost,
			OptionChainDepth: limits.OptionChainDepth,
			AIChatEnabled:    limits.AIChatEnabled,
			PaperTrading:     limits.PaperTrading,
		},
	}, nil
}
