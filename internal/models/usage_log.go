package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// UsageLog counts scans per user, type and day. Rows are only ever written
// through an atomic upsert (count = count + 1) so concurrent scans never lose
// updates.
type UsageLog struct {
	ID        uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	UserID    uuid.UUID      `gorm:"type:uuid;not null;uniqueIndex:idx_usage_user_type_date" json:"user_id"`
	ScanType  string         `gorm:"size:32;not null;uniqueIndex:idx_usage_user_type_date" json:"scan_type"`
	UsageDate datatypes.Date `gorm:"not null;uniqueIndex:idx_usage_user_type_date" json:"usage_date"`
	Count     int            `gorm:"not null;default:0" json:"count"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

func (u *UsageLog) BeforeCreate(*gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	return nil
}
