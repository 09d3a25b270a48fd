package papertrade

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Position lifecycle.
const (
	PositionOpen   = "open"
	PositionClosed = "closed"
)

// Signal lifecycle.
const (
	SignalActive    = "active"
	SignalTriggered = "triggered"
	SignalExpired   = "expired"
)

// Trade direction.
const (
	DirectionLong  = "long"
	DirectionShort = "short"
)

// PaperPosition is a simulated trade opened from a signal. Prices are in
// rupees with paise precision (float64 matches broker feeds, not money moved).
type PaperPosition struct {
	ID         uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	UserID     uuid.UUID  `gorm:"type:uuid;not null;index" json:"user_id"`
	SignalID   *uuid.UUID `gorm:"type:uuid;index" json:"signal_id,omitempty"`
	Symbol     string     `gorm:"size:32;not null;index" json:"symbol"`
	Instrument string     `gorm:"size:16;not null;default:'equity'" json:"instrument"`
	OptionType string     `gorm:"size:4" json:"option_type,omitempty"`
	Strike     float64    `json:"strike,omitempty"`
	Expiry     *time.Time `gorm:"type:date" json:"expiry,omitempty"`
	Direction  string     `gorm:"size:8;not null" json:"direction"`
	Quantity   int        `gorm:"not null" json:"quantity"`
	EntryPrice float64    `gorm:"not null" json:"entry_price"`
	ExitPrice  *float64   `json:"exit_price,omitempty"`
	Status     string     `gorm:"size:16;not null;default:'open';index" json:"status"`
	PnL        float64    `gorm:"column:pnl" json:"pnl"`
	OpenedAt   time.Time  `gorm:"not null" json:"opened_at"`
	ClosedAt   *time.Time `json:"closed_at,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

func (PaperPosition) TableName() string {
	return "paper_positions"
}

func (p *PaperPosition) BeforeCreate(*gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}

// PaperSignal is a published trade idea users can mirror into positions.
type PaperSignal struct {
	ID         uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	Symbol     string         `gorm:"size:32;not null;index" json:"symbol"`
	Bias       string         `gorm:"size:8;not null" json:"bias"`
	EntryPrice float64        `gorm:"not null" json:"entry_price"`
	StopLoss   float64        `gorm:"not null" json:"stop_loss"`
	Targets    datatypes.JSON `gorm:"type:jsonb" json:"targets"`
	Confidence int            `gorm:"not null;default:0" json:"confidence"`
	Rationale  string         `gorm:"type:text" json:"rationale"`
	Status     string         `gorm:"size:16;not null;default:'active';index" json:"status"`
	ExpiresAt  *time.Time     `json:"expires_at,omitempty"`
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
}

func (PaperSignal) TableName() string {
	return "paper_signals"
}

func (s *PaperSignal) BeforeCreate(*gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}

// PaperPerformance aggregates a user's closed trades per day.
type PaperPerformance struct {
	ID          uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	UserID      uuid.UUID      `gorm:"type:uuid;not null;uniqueIndex:idx_paper_perf_user_date" json:"user_id"`
	TradeDate   datatypes.Date `gorm:"not null;uniqueIndex:idx_paper_perf_user_date" json:"trade_date"`
	TradesTotal int            `gorm:"not null;default:0" json:"trades_total"`
	TradesWon   int            `gorm:"not null;default:0" json:"trades_won"`
	GrossPnL    float64        `gorm:"column:gross_pnl;not null;default:0" json:"gross_pnl"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

func (PaperPerformance) TableName() string {
	return "paper_performance"
}

func (p *PaperPerformance) BeforeCreate(*gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}

// --- DTOs ---

type ErrorResponse struct {
	Error   bool   `json:"error"`
	Message string `json:"message"`
}

type OpenPositionRequest struct {
	SignalID   string  `json:"signal_id,omitempty"`
	Symbol     string  `json:"symbol"`
	Instrument string  `json:"instrument,omitempty"`
	OptionType string  `json:"option_type,omitempty"`
	Strike     float64 `json:"strike,omitempty"`
	Expiry     string  `json:"expiry,omitempty"`
	Direction  string  `json:"direction"`
	Quantity   int     `json:"quantity"`
	EntryPrice float64 `json:"entry_price"`
}

type ClosePositionRequest struct {
	ExitPrice float64 `json:"exit_price"`
}

type CreateSignalRequest struct {
	Symbol     string    `json:"symbol"`
	Bias       string    `json:"bias"`
	EntryPrice float64   `json:"entry_price"`
	StopLoss   float64   `json:"stop_loss"`
	Targets    []float64 `json:"targets"`
	Confidence int       `json:"confidence"`
	Rationale  string    `json:"rationale"`
	ExpiresAt  string    `json:"expires_at,omitempty"`
}

type PerformanceSummary struct {
	TradesTotal int     `json:"trades_total"`
	TradesWon   int     `json:"trades_won"`
	WinRate     float64 `json:"win_rate"`
	GrossPnL    float64 `json:"gross_pnl"`
	Daily       []PaperPerformance `json:"daily"`
}
