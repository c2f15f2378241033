package handlers

import (
	"strconv"
	"strings"
	"time"

	"github.com/ahmetcoskunkizilkaya/careerforge/internal/dto"
	"github.com/ahmetcoskunkizilkaya/careerforge/internal/identity"
	"github.com/ahmetcoskunkizilkaya/careerforge/internal/services"
	"github.com/gofiber/fiber/v2"
)

type SystemLogHandler struct {
	logService *services.SystemLogService
}

func NewSystemLogHandler(logService *services.SystemLogService) *SystemLogHandler {
	return &SystemLogHandler{logService: logService}
}

func (h *SystemLogHandler) List(c *fiber.Ctx) error {
	limit, _ := strconv.Atoi(c.Query("limit", "50"))
	offset, _ := strconv.Atoi(c.Query("offset", "0"))
	if limit <= 0 || limit > 200 {
		limit = 200
	}
	if offset < 0 {
		offset = 0
	}

	filter := services.LogFilter{
		Level:     strings.ToUpper(c.Query("level")),
		Component: c.Query("component"),
		UserEmail: identity.Normalize(c.Query("user_email")),
	}
	if since := c.Query("since"); since != "" {
		t, err := time.Parse(time.RFC3339, since)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
				Error: true, Message: "since must be RFC3339",
			})
		}
		filter.Since = t
	}

	logs, total, err := h.logService.List(filter, limit, offset)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{
			Error: true, Message: "Failed to fetch logs",
		})
	}

	return c.JSON(fiber.Map{
		"logs":   logs,
		"total":  total,
		"limit":  limit,
		"offset": offset,
	})
}

func (h *SystemLogHandler) Purge(c *fiber.Ctx) error {
	deleted, err := h.logService.Purge()
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{
			Error: true, Message: "Failed to purge logs",
		})
	}
	return c.JSON(fiber.Map{"deleted": deleted})
}
