// Package apptest wires plugins into a throwaway fiber app backed by an
// in-memory sqlite database for handler tests.
package apptest

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ahmetcoskunkizilkaya/careerforge/internal/apps"
	"github.com/ahmetcoskunkizilkaya/careerforge/internal/config"
	"github.com/ahmetcoskunkizilkaya/careerforge/internal/middleware"
	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const secret = "apptest-secret"

// Config returns a config with a fixed JWT secret and short timeouts.
func Config() *config.Config {
	return &config.Config{
		JWTSecret:         secret,
		JWTAccessExpiry:   time.Hour,
		JWTRefreshExpiry:  time.Hour,
		AITimeout:         2 * time.Second,
		JudgePollInterval: 5 * time.Millisecond,
		JudgeTimeout:      time.Second,
		JudgeConcurrency:  2,
	}
}

// DB opens an in-memory sqlite database and migrates models into it.
func DB(t testing.TB, models ...interface{}) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: logger.Discard})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatal(err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })
	if len(models) > 0 {
		if err := db.AutoMigrate(models...); err != nil {
			t.Fatalf("migrate: %v", err)
		}
	}
	return db
}

// Token signs an access token for email.
func Token(t testing.TB, email string) string {
	t.Helper()
	claims := jwt.MapClaims{
		"sub":   uuid.NewString(),
		"email": email,
		"exp":   time.Now().Add(time.Hour).Unix(),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		t.Fatal(err)
	}
	return signed
}

// App mounts p under /api/p the way the server does.
func App(t testing.TB, db *gorm.DB, p apps.Plugin) *fiber.App {
	t.Helper()
	cfg := Config()
	app := fiber.New()
	protected := app.Group("/api/p", middleware.UserData(cfg)...)
	p.RegisterRoutes(protected, db, cfg)
	return app
}

// PublicApp mounts p under /api.
func PublicApp(t testing.TB, cfg *config.Config, p apps.PublicPlugin) *fiber.App {
	t.Helper()
	app := fiber.New()
	p.RegisterPublicRoutes(app.Group("/api"), cfg)
	return app
}

// Do sends a JSON request and returns the status and raw body.
func Do(t testing.TB, app *fiber.App, method, path, token string, body any) (int, []byte) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatal(err)
		}
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()
	out, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatal(err)
	}
	return resp.StatusCode, out
}

// Decode unmarshals body into v or fails the test.
func Decode(t testing.TB, body []byte, v any) {
	t.Helper()
	if err := json.Unmarshal(body, v); err != nil {
		t.Fatalf("decode %s: %v", body, err)
	}
}

