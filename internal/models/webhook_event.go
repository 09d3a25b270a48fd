package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// WebhookEvent is the audit trail of gateway deliveries. GatewayEventID is the
// gateway's delivery ID; a second delivery with the same ID is recognized and
// acknowledged without reprocessing.
type WebhookEvent struct {
	ID              uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	GatewayEventID  *string        `gorm:"size:64;uniqueIndex" json:"gateway_event_id,omitempty"`
	EventType       string         `gorm:"size:64;not null;index" json:"event_type"`
	Payload         datatypes.JSON `gorm:"type:jsonb" json:"payload"`
	Processed       bool           `gorm:"not null;default:false" json:"processed"`
	ProcessingError string         `gorm:"size:512" json:"processing_error,omitempty"`
	CreatedAt       time.Time      `json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`
}

func (e *WebhookEvent) BeforeCreate(*gorm.DB) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	return nil
}
