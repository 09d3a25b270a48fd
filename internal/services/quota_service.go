package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/stocxer/stocxer-backend/internal/models"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var ErrQuotaExceeded = errors.New("daily scan quota exceeded")

// QuotaService tracks per-user, per-day scan counters against plan limits.
type QuotaService struct {
	db *gorm.DB
}

func NewQuotaService(db *gorm.DB) *QuotaService {
	return &QuotaService{db: db}
}

func (s *QuotaService) withTx(tx *gorm.DB) *QuotaService {
	return &QuotaService{db: tx}
}

// RecordScan increments the (user, scan type, day) counter. The upsert is a
// single atomic statement so concurrent scans from the same user never lose
// updates.
func (s *QuotaService) RecordScan(ctx context.Context, userID uuid.UUID, scanType string) error {
	if scanType == "" {
		return fmt.Errorf("%w: scan type required", ErrInvalidEntry)
	}

	row := models.UsageLog{
		UserID:    userID,
		ScanType:  scanType,
		UsageDate: datatypes.Date(todayUTC()),
		Count:     1,
	}
	return s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{
				{Name: "user_id"},
				{Name: "scan_type"},
				{Name: "usage_date"},
			},
			DoUpdates: clause.Assignments(map[string]interface{}{
				"count":      gorm.Expr("usage_logs.count + 1"),
				"updated_at": nowUTC(),
			}),
		}).
		Create(&row).Error
}

// TodayUsage sums today's scan counts across all scan types for a user.
func (s *QuotaService) TodayUsage(ctx context.Context, userID uuid.UUID) (int, error) {
	var total int64
	err := s.db.WithContext(ctx).
		Model(&models.UsageLog{}).
		Where("user_id = ? AND usage_date = ?", userID, datatypes.Date(todayUTC())).
		Select("COALESCE(SUM(count), 0)").
		Scan(&total).Error
	if err != nil {
		return 0, err
	}
	return int(total), nil
}

// CheckDailyLimit rejects with ErrQuotaExceeded when today's usage has reached
// the plan's daily scan allowance. A zero allowance means unlimited.
func (s *QuotaService) CheckDailyLimit(ctx context.Context, userID uuid.UUID, limits *models.PlanLimit) error {
	if limits == nil || limits.DailyScans <= 0 {
		return nil
	}
	used, err := s.TodayUsage(ctx, userID)
	if err != nil {
		return err
	}
	if used >= limits.DailyScans {
		return fmt.Errorf("%w: %d of %d scans used today", ErrQuotaExceeded, used, limits.DailyScans)
	}
	return nil
}

func todayUTC() time.Time {
	now := nowUTC()
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
}

func nowUTC() time.Time {
	return time.Now().UTC()
}
