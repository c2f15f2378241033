package middleware

import (
	"crypto/subtle"
	"strings"

	"github.com/ahmetcoskunkizilkaya/careerforge/internal/config"
	"github.com/ahmetcoskunkizilkaya/careerforge/internal/dto"
	"github.com/ahmetcoskunkizilkaya/careerforge/internal/identity"
	"github.com/ahmetcoskunkizilkaya/careerforge/internal/models"
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

// AdminRequired admits a request when any of these hold:
// 1. X-Admin-Token matches the configured token
// 2. the token's email or sub is in the configured admin lists
// 3. the user row has role "admin"
func AdminRequired(db *gorm.DB, cfg *config.Config) fiber.Handler {
	emails := csvSet(cfg.AdminEmails)
	userIDs := csvSet(cfg.AdminUserIDs)
	adminToken := []byte(cfg.AdminToken)

	return func(c *fiber.Ctx) error {
		if len(adminToken) > 0 && subtle.ConstantTimeCompare([]byte(c.Get("X-Admin-Token")), adminToken) == 1 {
			return c.Next()
		}

		email, err := identity.GetEmail(c)
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{
				Error: true, Message: "Unauthorized",
			})
		}
		if _, ok := emails[email]; ok {
			return c.Next()
		}
		if sub, err := identity.GetUserID(c); err == nil {
			if _, ok := userIDs[sub.String()]; ok {
				return c.Next()
			}
		}

		var roles []string
		if err := db.Model(&models.User{}).Where("email = ?", email).Limit(1).Pluck("role", &roles).Error; err == nil && len(roles) == 1 && roles[0] == models.RoleAdmin {
			return c.Next()
		}

		return c.Status(fiber.StatusForbidden).JSON(dto.ErrorResponse{
			Error: true, Message: "Admin access required",
		})
	}
}

// csvSet lower-cases and trims a comma-separated list into a set.
func csvSet(s string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, p := range strings.Split(s, ",") {
		if v := strings.ToLower(strings.TrimSpace(p)); v != "" {
			set[v] = struct{}{}
		}
	}
	return set
}
