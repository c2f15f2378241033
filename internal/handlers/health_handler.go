package handlers

import (
	"time"

	"github.com/ahmetcoskunkizilkaya/careerforge/internal/database"
	"github.com/ahmetcoskunkizilkaya/careerforge/internal/dto"
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

type HealthHandler struct {
	db      *gorm.DB
	plugins []string
}

// NewHealthHandler reports the database state and the mounted plugin IDs.
func NewHealthHandler(db *gorm.DB, plugins []string) *HealthHandler {
	return &HealthHandler{db: db, plugins: plugins}
}

func (h *HealthHandler) Check(c *fiber.Ctx) error {
	resp := dto.HealthResponse{
		Status:    "ok",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		DB:        "ok",
		Plugins:   h.plugins,
	}
	if err := database.Ping(h.db); err != nil {
		resp.Status = "degraded"
		resp.DB = "unhealthy: " + err.Error()
		return c.Status(fiber.StatusServiceUnavailable).JSON(resp)
	}
	return c.JSON(resp)
}
