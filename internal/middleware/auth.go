package middleware

import (
	"github.com/ahmetcoskunkizilkaya/careerforge/internal/config"
	"github.com/ahmetcoskunkizilkaya/careerforge/internal/dto"
	"github.com/ahmetcoskunkizilkaya/careerforge/internal/identity"
	jwtware "github.com/gofiber/contrib/jwt"
	"github.com/gofiber/fiber/v2"
)

// JWTProtected verifies the bearer access token and stores it under
// c.Locals("user"). Only HS256 tokens signed with the configured secret pass.
func JWTProtected(cfg *config.Config) fiber.Handler {
	return jwtware.New(jwtware.Config{
		SigningKey: jwtware.SigningKey{JWTAlg: jwtware.HS256, Key: []byte(cfg.JWTSecret)},
		AuthScheme: "Bearer",
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{
				Error:   true,
				Message: "Unauthorized: invalid or expired token",
			})
		},
	})
}

// RequireIdentity rejects tokens without an email claim and caches the
// normalized email for handlers. Must run after JWTProtected.
func RequireIdentity() fiber.Handler {
	return func(c *fiber.Ctx) error {
		email, err := identity.GetEmail(c)
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{
				Error:   true,
				Message: "Unauthorized: token has no email",
			})
		}
		identity.SetEmail(c, email)
		return c.Next()
	}
}

// UserData is the chain guarding per-user routes.
func UserData(cfg *config.Config) []fiber.Handler {
	return []fiber.Handler{JWTProtected(cfg), RequireIdentity()}
}
