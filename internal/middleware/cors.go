package middleware

import (
	"github.com/ahmetcoskunkizilkaya/careerforge/internal/config"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
)

// CORS lets browser clients on other origins call the API with a bearer
// token. Rate-limit headers are exposed so clients can back off.
func CORS(cfg *config.Config) fiber.Handler {
	return cors.New(cors.Config{
		AllowOrigins:  cfg.CORSOrigins,
		AllowHeaders:  "Origin, Content-Type, Accept, Authorization, X-Admin-Token, X-Request-ID",
		AllowMethods:  "GET, POST, PUT, DELETE, OPTIONS",
		ExposeHeaders: "X-Request-ID, X-RateLimit-Limit, X-RateLimit-Remaining, Retry-After",
		MaxAge:        600,
	})
}
