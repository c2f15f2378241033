package routes

import (
	"time"

	"github.com/ahmetcoskunkizilkaya/careerforge/internal/apps"
	"github.com/ahmetcoskunkizilkaya/careerforge/internal/config"
	"github.com/ahmetcoskunkizilkaya/careerforge/internal/dto"
	"github.com/ahmetcoskunkizilkaya/careerforge/internal/handlers"
	"github.com/ahmetcoskunkizilkaya/careerforge/internal/identity"
	"github.com/ahmetcoskunkizilkaya/careerforge/internal/middleware"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"gorm.io/gorm"
)

const (
	apiPerMinute  = 60
	authPerMinute = 10
	// A syncing client issues a list plus one write per roadmap on login.
	userPerMinute = 120
)

// Setup mounts every route under /api:
//
//	/api/health            public
//	/api/auth/*            public, stricter limit
//	/api/admin/*           JWT + admin
//	/api/<public plugin>   public learning and judge APIs
//	/api/p/<plugin>        JWT with an email claim, limited per identity
func Setup(
	app *fiber.App,
	cfg *config.Config,
	db *gorm.DB,
	authHandler *handlers.AuthHandler,
	healthHandler *handlers.HealthHandler,
	logHandler *handlers.SystemLogHandler,
	plugins []apps.Plugin,
	publicPlugins []apps.PublicPlugin,
) {
	api := app.Group("/api")
	api.Use(rateLimit(apiPerMinute, func(c *fiber.Ctx) string { return c.IP() }))

	api.Get("/health", healthHandler.Check)

	auth := api.Group("/auth")
	auth.Use(rateLimit(authPerMinute, func(c *fiber.Ctx) string { return "auth:" + c.IP() }))
	auth.Post("/register", authHandler.Register)
	auth.Post("/login", authHandler.Login)
	auth.Post("/refresh", authHandler.Refresh)

	// JWT is applied per route so the public learning APIs stay open.
	api.Post("/auth/logout", middleware.JWTProtected(cfg), authHandler.Logout)
	api.Delete("/auth/account", middleware.JWTProtected(cfg), authHandler.DeleteAccount)

	admin := api.Group("/admin", middleware.JWTProtected(cfg), middleware.AdminRequired(db, cfg))
	admin.Get("/logs", logHandler.List)
	admin.Delete("/logs", logHandler.Purge)

	// Public plugins go first: group middleware matches by plain path prefix,
	// so /api/p would otherwise also guard /api/practice.
	for _, p := range publicPlugins {
		p.RegisterPublicRoutes(api, cfg)
	}

	protected := api.Group("/p", middleware.UserData(cfg)...)
	protected.Use(rateLimit(userPerMinute, func(c *fiber.Ctx) string {
		email, _ := identity.GetEmail(c)
		return "user:" + email
	}))
	for _, p := range plugins {
		p.RegisterRoutes(protected, db, cfg)
		if ap, ok := p.(apps.AdminPlugin); ok {
			ap.RegisterAdminRoutes(admin, db, cfg)
		}
	}
}

// rateLimit is a per-key sliding window of max requests per minute.
func rateLimit(max int, key func(*fiber.Ctx) string) fiber.Handler {
	return limiter.New(limiter.Config{
		Max:               max,
		Expiration:        time.Minute,
		LimiterMiddleware: limiter.SlidingWindow{},
		KeyGenerator:      key,
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(dto.ErrorResponse{
				Error: true, Message: "Too many requests, slow down",
			})
		},
	})
}
