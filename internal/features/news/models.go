package news

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Sentiment labels assigned by the upstream analysis pipeline.
const (
	SentimentPositive = "positive"
	SentimentNegative = "negative"
	SentimentNeutral  = "neutral"
)

// NewsItem is one market headline. URL is the dedupe key: the ingest feed
// redelivers items and the upsert keeps the newest copy.
type NewsItem struct {
	ID          uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	Headline    string         `gorm:"size:512;not null" json:"headline"`
	URL         string         `gorm:"size:1024;not null;uniqueIndex" json:"url"`
	Source      string         `gorm:"size:128;not null;index" json:"source"`
	Summary     string         `gorm:"type:text" json:"summary,omitempty"`
	Symbols     datatypes.JSON `gorm:"type:jsonb" json:"symbols"`
	Sentiment   string         `gorm:"size:16;not null;default:'neutral'" json:"sentiment"`
	PublishedAt time.Time      `gorm:"not null;index" json:"published_at"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

func (NewsItem) TableName() string {
	return "news_items"
}

func (n *NewsItem) BeforeCreate(*gorm.DB) error {
	if n.ID == uuid.Nil {
		n.ID = uuid.New()
	}
	return nil
}

// --- DTOs ---

type ErrorResponse struct {
	Error   bool   `json:"error"`
	Message string `json:"message"`
}

type IngestItem struct {
	Headline    string   `json:"headline"`
	URL         string   `json:"url"`
	Source      string   `json:"source"`
	Summary     string   `json:"summary,omitempty"`
	Symbols     []string `json:"symbols"`
	Sentiment   string   `json:"sentiment,omitempty"`
	PublishedAt string   `json:"published_at"`
}

type IngestRequest struct {
	Items []IngestItem `json:"items"`
}

type IngestResponse struct {
	Ingested int `json:"ingested"`
	Skipped  int `json:"skipped"`
}
