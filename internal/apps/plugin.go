package apps

import (
	"github.com/ahmetcoskunkizilkaya/careerforge/internal/config"
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

// Plugin defines the interface every user-data feature must implement.
type Plugin interface {
	// ID returns the unique plugin identifier.
	ID() string

	// Models returns the list of GORM model pointers for AutoMigrate.
	Models() []interface{}

	// RegisterRoutes mounts plugin routes on the given Fiber group.
	// The group is prefixed with /api/p, requires a JWT and exposes the
	// caller's email through identity.GetEmail.
	RegisterRoutes(router fiber.Router, db *gorm.DB, cfg *config.Config)
}

// AdminPlugin extends Plugin with admin-specific route registration.
// Plugins that implement this interface can register additional admin-only routes.
type AdminPlugin interface {
	Plugin

	// RegisterAdminRoutes mounts admin-only routes on the given Fiber group.
	// The group has both JWT and Admin middleware applied.
	RegisterAdminRoutes(router fiber.Router, db *gorm.DB, cfg *config.Config)
}

// PublicPlugin serves routes that need no account, such as the learning
// APIs guests use.
type PublicPlugin interface {
	ID() string

	// RegisterPublicRoutes mounts routes on the /api group. Only the global
	// rate limiter applies.
	RegisterPublicRoutes(router fiber.Router, cfg *config.Config)
}
