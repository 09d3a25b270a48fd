package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// PlanLimit is the per-tier quota and feature configuration. Rows are seeded
// at migration and editable through the admin API; the application only reads
// them when enforcing quotas.
type PlanLimit struct {
	ID               uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	PlanType         string    `gorm:"size:20;not null;uniqueIndex" json:"plan_type"`
	DailyScans       int       `gorm:"not null;default:0" json:"daily_scans"`
	MonthlyScans     int       `gorm:"not null;default:0" json:"monthly_scans"`
	ScanCreditCost   int64     `gorm:"not null;default:0" json:"scan_credit_cost"`
	OptionChainDepth int       `gorm:"not null;default:5" json:"option_chain_depth"`
	AIChatEnabled    bool      `gorm:"not null;default:false" json:"ai_chat_enabled"`
	PaperTrading     bool      `gorm:"not null;default:false" json:"paper_trading"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

func (p *PlanLimit) BeforeCreate(*gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}

// DefaultFreeLimits returns the built-in free tier allowances. They back the
// first-boot seed and the fallback when a plan's limits row is missing, so a
// deleted row degrades to the most restrictive tier instead of unlimited.
func DefaultFreeLimits() PlanLimit {
	return PlanLimit{
		PlanType:         PlanFree,
		DailyScans:       5,
		MonthlyScans:     100,
		ScanCreditCost:   10,
		OptionChainDepth: 5,
	}
}
