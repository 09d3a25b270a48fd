package papertrade

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/stocxer/stocxer-backend/internal/models"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	ErrPositionNotFound  = errors.New("position not found")
	ErrPositionClosed    = errors.New("position already closed")
	ErrSignalNotFound    = errors.New("signal not found")
	ErrFeatureDisabled   = errors.New("paper trading is not available on your plan")
	ErrInvalidDirection  = errors.New("direction must be long or short")
	ErrInvalidQuantity   = errors.New("quantity must be positive")
	ErrInvalidEntryPrice = errors.New("entry_price must be positive")
	ErrSymbolRequired    = errors.New("symbol is required")
)

type TradeService struct {
	db *gorm.DB
}

func NewTradeService(db *gorm.DB) *TradeService {
	return &TradeService{db: db}
}

// featureEnabled checks the paper_trading flag on the user's current plan.
// Users without an active subscription fall back to the free tier.
func (s *TradeService) featureEnabled(ctx context.Context, userID uuid.UUID) (bool, error) {
	planType := models.PlanFree
	var sub models.Subscription
	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		First(&sub).Error
	if err == nil && sub.Active(time.Now()) {
		planType = sub.PlanType
	} else if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return false, err
	}

	var limit models.PlanLimit
	if err := s.db.WithContext(ctx).Where("plan_type = ?", planType).First(&limit).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, nil
		}
		return false, err
	}
	return limit.PaperTrading, nil
}

func (s *TradeService) OpenPosition(ctx context.Context, userID uuid.UUID, req *OpenPositionRequest) (*PaperPosition, error) {
	enabled, err := s.featureEnabled(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !enabled {
		return nil, ErrFeatureDisabled
	}

	if req.Symbol == "" {
		return nil, ErrSymbolRequired
	}
	if req.Direction != DirectionLong && req.Direction != DirectionShort {
		return nil, ErrInvalidDirection
	}
	if req.Quantity <= 0 {
		return nil, ErrInvalidQuantity
	}
	if req.EntryPrice <= 0 {
		return nil, ErrInvalidEntryPrice
	}

	pos := PaperPosition{
		UserID:     userID,
		Symbol:     req.Symbol,
		Instrument: req.Instrument,
		OptionType: req.OptionType,
		Strike:     req.Strike,
		Direction:  req.Direction,
		Quantity:   req.Quantity,
		EntryPrice: req.EntryPrice,
		Status:     PositionOpen,
		OpenedAt:   time.Now().UTC(),
	}
	if pos.Instrument == "" {
		pos.Instrument = "equity"
	}
	if req.Expiry != "" {
		expiry, err := time.Parse("2006-01-02", req.Expiry)
		if err != nil {
			return nil, fmt.Errorf("invalid expiry %q: %w", req.Expiry, err)
		}
		pos.Expiry = &expiry
	}
	if req.SignalID != "" {
		signalID, err := uuid.Parse(req.SignalID)
		if err != nil {
			return nil, fmt.Errorf("invalid signal_id: %w", err)
		}
		var sig PaperSignal
		if err := s.db.WithContext(ctx).First(&sig, "id = ?", signalID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, ErrSignalNotFound
			}
			return nil, err
		}
		pos.SignalID = &sig.ID
	}

	if err := s.db.WithContext(ctx).Create(&pos).Error; err != nil {
		return nil, err
	}
	return &pos, nil
}

// ClosePosition settles an open position at the given price and folds the
// result into the user's daily performance row.
func (s *TradeService) ClosePosition(ctx context.Context, userID, positionID uuid.UUID, exitPrice float64) (*PaperPosition, error) {
	if exitPrice <= 0 {
		return nil, ErrInvalidEntryPrice
	}

	var pos PaperPosition
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("id = ? AND user_id = ?", positionID, userID).First(&pos).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrPositionNotFound
			}
			return err
		}
		if pos.Status != PositionOpen {
			return ErrPositionClosed
		}

		pnl := (exitPrice - pos.EntryPrice) * float64(pos.Quantity)
		if pos.Direction == DirectionShort {
			pnl = -pnl
		}
		now := time.Now().UTC()
		pos.ExitPrice = &exitPrice
		pos.PnL = pnl
		pos.Status = PositionClosed
		pos.ClosedAt = &now

		if err := tx.Model(&PaperPosition{}).Where("id = ?", pos.ID).Updates(map[string]interface{}{
			"exit_price": exitPrice,
			"pnl":        pnl,
			"status":     PositionClosed,
			"closed_at":  now,
		}).Error; err != nil {
			return err
		}

		return s.recordPerformance(tx, userID, now, pnl)
	})
	if err != nil {
		return nil, err
	}
	return &pos, nil
}

func (s *TradeService) recordPerformance(tx *gorm.DB, userID uuid.UUID, closedAt time.Time, pnl float64) error {
	won := 0
	if pnl > 0 {
		won = 1
	}
	row := PaperPerformance{
		UserID:      userID,
		TradeDate:   datatypes.Date(closedAt.Truncate(24 * time.Hour)),
		TradesTotal: 1,
		TradesWon:   won,
		GrossPnL:    pnl,
	}
	return tx.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}, {Name: "trade_date"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"trades_total": gorm.Expr("paper_performance.trades_total + 1"),
			"trades_won":   gorm.Expr(fmt.Sprintf("paper_performance.trades_won + %d", won)),
			"gross_pnl":    gorm.Expr("paper_performance.gross_pnl + ?", pnl),
			"updated_at":   time.Now().UTC(),
		}),
	}).Create(&row).Error
}

func (s *TradeService) ListPositions(ctx context.Context, userID uuid.UUID, status string) ([]PaperPosition, error) {
	q := s.db.WithContext(ctx).Where("user_id = ?", userID)
	if status != "" {
		q = q.Where("status = ?", status)
	}
	var positions []PaperPosition
	if err := q.Order("opened_at DESC").Limit(200).Find(&positions).Error; err != nil {
		return nil, err
	}
	return positions, nil
}

func (s *TradeService) Performance(ctx context.Context, userID uuid.UUID, days int) (*PerformanceSummary, error) {
	if days <= 0 || days > 365 {
		days = 30
	}
	since := time.Now().UTC().AddDate(0, 0, -days)

	var daily []PaperPerformance
	if err := s.db.WithContext(ctx).
		Where("user_id = ? AND trade_date >= ?", userID, datatypes.Date(since)).
		Order("trade_date DESC").
		Find(&daily).Error; err != nil {
		return nil, err
	}

	summary := PerformanceSummary{Daily: daily}
	for _, d := range daily {
		summary.TradesTotal += d.TradesTotal
		summary.TradesWon += d.TradesWon
		summary.GrossPnL += d.GrossPnL
	}
	if summary.TradesTotal > 0 {
		summary.WinRate = float64(summary.TradesWon) / float64(summary.TradesTotal)
	}
	return &summary, nil
}

type SignalService struct {
	db *gorm.DB
}

func NewSignalService(db *gorm.DB) *SignalService {
	return &SignalService{db: db}
}

func (s *SignalService) Create(ctx context.Context, req *CreateSignalRequest) (*PaperSignal, error) {
	if req.Symbol == "" {
		return nil, ErrSymbolRequired
	}
	if req.Bias != DirectionLong && req.Bias != DirectionShort {
		return nil, ErrInvalidDirection
	}
	if req.EntryPrice <= 0 {
		return nil, ErrInvalidEntryPrice
	}

	targets, err := json.Marshal(req.Targets)
	if err != nil {
		return nil, err
	}

	sig := PaperSignal{
		Symbol:     req.Symbol,
		Bias:       req.Bias,
		EntryPrice: req.EntryPrice,
		StopLoss:   req.StopLoss,
		Targets:    datatypes.JSON(targets),
		Confidence: req.Confidence,
		Rationale:  req.Rationale,
		Status:     SignalActive,
	}
	if req.ExpiresAt != "" {
		expires, err := time.Parse(time.RFC3339, req.ExpiresAt)
		if err != nil {
			return nil, fmt.Errorf("invalid expires_at %q: %w", req.ExpiresAt, err)
		}
		sig.ExpiresAt = &expires
	}

	if err := s.db.WithContext(ctx).Create(&sig).Error; err != nil {
		return nil, err
	}
	return &sig, nil
}

// ListActive returns live signals, expiring stale ones on the fly.
func (s *SignalService) ListActive(ctx context.Context, symbol string) ([]PaperSignal, error) {
	now := time.Now().UTC()
	if err := s.db.WithContext(ctx).
		Model(&PaperSignal{}).
		Where("status = ? AND expires_at IS NOT NULL AND expires_at < ?", SignalActive, now).
		Update("status", SignalExpired).Error; err != nil {
		return nil, err
	}

	q := s.db.WithContext(ctx).Where("status = ?", SignalActive)
	if symbol != "" {
		q = q.Where("symbol = ?", symbol)
	}
	var signals []PaperSignal
	if err := q.Order("created_at DESC").Limit(100).Find(&signals).Error; err != nil {
		return nil, err
	}
	return signals, nil
}

func (s *SignalService) MarkTriggered(ctx context.Context, signalID uuid.UUID) error {
	res := s.db.WithContext(ctx).
		Model(&PaperSignal{}).
		Where("id = ? AND status = ?", signalID, SignalActive).
		Update("status", SignalTriggered)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrSignalNotFound
	}
	return nil
}
