package news

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	ErrHeadlineRequired = errors.New("headline is required")
	ErrURLRequired      = errors.New("url is required")
)

const feedKeyPrefix = "news:feed:"

// NewsService serves the headline feed with a redis read-through cache in
// front of the news_items table. A nil cache client disables caching; every
// read then goes to the database.
type NewsService struct {
	db       *gorm.DB
	cache    *redis.Client
	cacheTTL time.Duration
}

func NewNewsService(db *gorm.DB, cache *redis.Client, cacheTTL time.Duration) *NewsService {
	return &NewsService{db: db, cache: cache, cacheTTL: cacheTTL}
}

// Feed returns the most recent headlines, optionally filtered by symbol.
func (s *NewsService) Feed(ctx context.Context, symbol string, limit int) ([]NewsItem, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}

	key := feedKey(symbol, limit)
	if s.cache != nil {
		if cached, err := s.cache.Get(ctx, key).Result(); err == nil {
			var items []NewsItem
			if err := json.Unmarshal([]byte(cached), &items); err == nil {
				return items, nil
			}
			// Corrupt entry, fall through to the database.
		}
	}

	q := s.db.WithContext(ctx).Order("published_at DESC").Limit(limit)
	if symbol != "" {
		// Symbols column is a JSON array of tickers.
		q = q.Where("symbols LIKE ?", "%\""+symbol+"\"%")
	}
	var items []NewsItem
	if err := q.Find(&items).Error; err != nil {
		return nil, err
	}

	if s.cache != nil {
		if payload, err := json.Marshal(items); err == nil {
			if err := s.cache.Set(ctx, key, payload, s.cacheTTL).Err(); err != nil {
				slog.Warn("news cache write failed", "key", key, "error", err)
			}
		}
	}
	return items, nil
}

// Ingest upserts a batch of headlines keyed by URL and drops the feed cache.
// Items missing headline or url are skipped, not fatal: upstream feeds are
// messy and one bad row should not reject the batch.
func (s *NewsService) Ingest(ctx context.Context, req *IngestRequest) (*IngestResponse, error) {
	resp := &IngestResponse{}
	for _, in := range req.Items {
		if in.Headline == "" || in.URL == "" {
			resp.Skipped++
			continue
		}

		publishedAt := time.Now().UTC()
		if in.PublishedAt != "" {
			if t, err := time.Parse(time.RFC3339, in.PublishedAt); err == nil {
				publishedAt = t
			}
		}
		sentiment := in.Sentiment
		switch sentiment {
		case SentimentPositive, SentimentNegative, SentimentNeutral:
		default:
			sentiment = SentimentNeutral
		}
		symbols, err := json.Marshal(in.Symbols)
		if err != nil {
			resp.Skipped++
			continue
		}

		item := NewsItem{
			Headline:    in.Headline,
			URL:         in.URL,
			Source:      in.Source,
			Summary:     in.Summary,
			Symbols:     symbols,
			Sentiment:   sentiment,
			PublishedAt: publishedAt,
		}
		err = s.db.WithContext(ctx).Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "url"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"headline", "source", "summary", "symbols", "sentiment", "published_at", "updated_at",
			}),
		}).Create(&item).Error
		if err != nil {
			return nil, fmt.Errorf("ingest %s: %w", in.URL, err)
		}
		resp.Ingested++
	}

	s.invalidateFeed(ctx)
	return resp, nil
}

func (s *NewsService) invalidateFeed(ctx context.Context) {
	if s.cache == nil {
		return
	}
	keys, err := s.cache.Keys(ctx, feedKeyPrefix+"*").Result()
	if err != nil {
		slog.Warn("news cache scan failed", "error", err)
		return
	}
	if len(keys) > 0 {
		if err := s.cache.Del(ctx, keys...).Err(); err != nil {
			slog.Warn("news cache invalidation failed", "error", err)
		}
	}
}

func feedKey(symbol string, limit int) string {
	if symbol == "" {
		symbol = "all"
	}
	return fmt.Sprintf("%s%s:%d", feedKeyPrefix, symbol, limit)
}
