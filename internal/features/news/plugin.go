package news

import (
	"context"
	"log/slog"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stocxer/stocxer-backend/internal/config"
	"gorm.io/gorm"
)

type NewsPlugin struct {
	cache *redis.Client
}

func New() *NewsPlugin {
	return &NewsPlugin{}
}

func (p *NewsPlugin) ID() string { return "news" }

func (p *NewsPlugin) Models() []interface{} {
	return []interface{}{
		&NewsItem{},
	}
}

// cacheClient lazily connects to redis. The feed degrades to direct database
// reads when the cache is unreachable.
func (p *NewsPlugin) cacheClient(cfg *config.Config) *redis.Client {
	if p.cache != nil {
		return p.cache
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr(),
		Password: cfg.RedisPassword,
		DB:       0,
	})
	if err := client.Ping(context.Background()).Err(); err != nil {
		slog.Warn("news cache unavailable, serving feed from database", "addr", cfg.RedisAddr(), "error", err)
		return nil
	}
	p.cache = client
	return client
}

func (p *NewsPlugin) RegisterRoutes(router fiber.Router, db *gorm.DB, cfg *config.Config) {
	service := NewNewsService(db, p.cacheClient(cfg), cfg.NewsCacheTTL)
	handler := NewNewsHandler(service)

	router.Get("/news", handler.Feed)
}

func (p *NewsPlugin) RegisterAdminRoutes(router fiber.Router, db *gorm.DB, cfg *config.Config) {
	service := NewNewsService(db, p.cacheClient(cfg), cfg.NewsCacheTTL)
	handler := NewNewsHandler(service)

	router.Post("/news/ingest", handler.Ingest)
}
