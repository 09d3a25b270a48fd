package papertrade

import (
	"github.com/gofiber/fiber/v2"
	"github.com/stocxer/stocxer-backend/internal/config"
	"gorm.io/gorm"
)

type PaperTradePlugin struct{}

func New() *PaperTradePlugin {
	return &PaperTradePlugin{}
}

func (p *PaperTradePlugin) ID() string { return "papertrade" }

func (p *PaperTradePlugin) Models() []interface{} {
	return []interface{}{
		&PaperPosition{},
		&PaperSignal{},
		&PaperPerformance{},
	}
}

func (p *PaperTradePlugin) RegisterRoutes(router fiber.Router, db *gorm.DB, cfg *config.Config) {
	trades := NewTradeService(db)
	signals := NewSignalService(db)
	handler := NewTradeHandler(trades, signals)

	router.Get("/paper/positions", handler.ListPositions)
	router.Post("/paper/positions", handler.OpenPosition)
	router.Post("/paper/positions/:id/close", handler.ClosePosition)
	router.Get("/paper/performance", handler.Performance)
	router.Get("/paper/signals", handler.ListSignals)
}

func (p *PaperTradePlugin) RegisterAdminRoutes(router fiber.Router, db *gorm.DB, cfg *config.Config) {
	trades := NewTradeService(db)
	signals := NewSignalService(db)
	handler := NewTradeHandler(trades, signals)

	router.Post("/paper/signals", handler.CreateSignal)
	router.Post("/paper/signals/:id/trigger", handler.MarkSignalTriggered)
}
