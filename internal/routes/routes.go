package routes

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/stocxer/stocxer-backend/internal/config"
	"github.com/stocxer/stocxer-backend/internal/features"
	"github.com/stocxer/stocxer-backend/internal/handlers"
	"github.com/stocxer/stocxer-backend/internal/middleware"
	"gorm.io/gorm"
)

func Setup(
	app *fiber.App,
	cfg *config.Config,
	db *gorm.DB,
	authHandler *handlers.AuthHandler,
	healthHandler *handlers.HealthHandler,
	webhookHandler *handlers.WebhookHandler,
	billingHandler *handlers.BillingHandler,
	plansHandler *handlers.PlanLimitsHandler,
	plugins []features.Plugin,
) {
	api := app.Group("/api")

	// General API rate limiter: 60 req/min per IP
	api.Use(limiter.New(limiter.Config{
		Max:               60,
		Expiration:        1 * time.Minute,
		LimiterMiddleware: limiter.SlidingWindow{},
		KeyGenerator:      func(c *fiber.Ctx) string { return c.IP() },
	}))

	// Health
	api.Get("/health", healthHandler.Check)

	// Public catalog
	api.Get("/billing/packs", billingHandler.ListPacks)
	api.Get("/plans", plansHandler.ListPlans)

	// Auth routes are public with a stricter rate limit of 10 req/min per IP.
	auth := api.Group("/auth")
	auth.Use(limiter.New(limiter.Config{
		Max:               10,
		Expiration:        1 * time.Minute,
		LimiterMiddleware: limiter.SlidingWindow{},
		KeyGenerator:      func(c *fiber.Ctx) string { return c.IP() },
	}))
	auth.Post("/register", authHandler.Register)
	auth.Post("/login", authHandler.Login)
	auth.Post("/refresh", authHandler.Refresh)

	// Protected routes (JWT required) - apply middleware to individual routes
	// so public routes stay unaffected
	api.Post("/auth/logout", middleware.JWTProtected(cfg), authHandler.Logout)
	api.Delete("/auth/account", middleware.JWTProtected(cfg), authHandler.DeleteAccount)

	// Billing endpoints for authenticated users.
	api.Get("/billing/status", middleware.JWTProtected(cfg), billingHandler.Status)
	api.Post("/billing/checkout", middleware.JWTProtected(cfg), billingHandler.Checkout)
	api.Get("/billing/transactions", middleware.JWTProtected(cfg), billingHandler.History)
	api.Post("/billing/scan", middleware.JWTProtected(cfg), billingHandler.ConsumeScan)

	// Admin plan management (protected + admin required)
	admin := api.Group("/admin", middleware.JWTProtected(cfg), middleware.AdminRequired(db, cfg))
	admin.Put("/plans/:plan_type", plansHandler.SetPlanLimits)
	admin.Delete("/plans/:plan_type", plansHandler.DeletePlanLimits)

	// Gateway webhooks are signature-authenticated, no JWT.
	webhooks := api.Group("/webhooks")
	webhooks.Post("/gateway", webhookHandler.HandleGatewayWebhook)

	// Feature plugin routes on a dedicated protected group
	protected := api.Group("/p", middleware.JWTProtected(cfg))
	for _, p := range plugins {
		p.RegisterRoutes(protected, db, cfg)
		if ap, ok := p.(features.AdminPlugin); ok {
			ap.RegisterAdminRoutes(admin, db, cfg)
		}
	}
}
