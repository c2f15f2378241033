// Package identity reads the authenticated caller out of a request and
// scopes queries to it.
package identity

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const emailLocal = "user_email"

var ErrNoIdentity = errors.New("no authenticated identity")

func claims(c *fiber.Ctx) (jwt.MapClaims, error) {
	token, ok := c.Locals("user").(*jwt.Token)
	if !ok || token == nil {
		return nil, errors.New("invalid token in context")
	}
	mc, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, errors.New("invalid claims")
	}
	return mc, nil
}

// GetUserID extracts the user UUID from JWT claims in context.
func GetUserID(c *fiber.Ctx) (uuid.UUID, error) {
	mc, err := claims(c)
	if err != nil {
		return uuid.Nil, err
	}
	sub, ok := mc["sub"].(string)
	if !ok {
		return uuid.Nil, errors.New("missing sub claim")
	}
	return uuid.Parse(sub)
}

// GetEmail returns the caller's normalized email. RequireIdentity
// caches it in locals; without it the token is consulted directly.
func GetEmail(c *fiber.Ctx) (string, error) {
	if email, ok := c.Locals(emailLocal).(string); ok && email != "" {
		return email, nil
	}
	mc, err := claims(c)
	if err != nil {
		return "", ErrNoIdentity
	}
	email := Normalize(stringClaim(mc, "email"))
	if email == "" {
		return "", ErrNoIdentity
	}
	return email, nil
}

// SetEmail stores the caller's email in locals.
func SetEmail(c *fiber.Ctx, email string) {
	c.Locals(emailLocal, Normalize(email))
}

// Normalize lowercases and trims an email so that lookups are stable.
func Normalize(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func stringClaim(mc jwt.MapClaims, key string) string {
	s, _ := mc[key].(string)
	return s
}
