package features

import (
	"github.com/gofiber/fiber/v2"
	"github.com/stocxer/stocxer-backend/internal/config"
	"gorm.io/gorm"
)

// Plugin defines the interface every feature module must implement.
type Plugin interface {
	// ID returns the unique feature identifier used in route prefixes.
	ID() string

	// Models returns the list of GORM model pointers for AutoMigrate.
	Models() []interface{}

	// RegisterRoutes mounts feature routes on the given Fiber group.
	// The group is already prefixed with /api/p and has JWT middleware applied.
	RegisterRoutes(router fiber.Router, db *gorm.DB, cfg *config.Config)
}

// AdminPlugin extends Plugin with admin-only route registration, used by
// features that need ingest or maintenance endpoints.
type AdminPlugin interface {
	Plugin

	// RegisterAdminRoutes mounts admin-only routes on the given Fiber group.
	// The group has both JWT and Admin middleware applied.
	RegisterAdminRoutes(router fiber.Router, db *gorm.DB, cfg *config.Config)
}
