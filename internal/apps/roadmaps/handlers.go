package roadmaps

import (
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/ahmetcoskunkizilkaya/careerforge/internal/dto"
	"github.com/ahmetcoskunkizilkaya/careerforge/internal/identity"
	"github.com/gofiber/fiber/v2"
)

type RoadmapHandler struct {
	roadmapService *RoadmapService
}

func NewRoadmapHandler(roadmapService *RoadmapService) *RoadmapHandler {
	return &RoadmapHandler{roadmapService: roadmapService}
}

// List handles GET /roadmaps. The body is a bare JSON array.
func (h *RoadmapHandler) List(c *fiber.Ctx) error {
	email, err := identity.GetEmail(c)
	if err != nil {
		return unauthorized(c)
	}

	items, err := h.roadmapService.List(email)
	if err != nil {
		slog.Error("list roadmaps failed", "component", "roadmaps", "user_email", email, "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{
			Error: true, Message: "Failed to fetch roadmaps",
		})
	}
	return c.JSON(items)
}

// Get handles GET /roadmaps/:id.
func (h *RoadmapHandler) Get(c *fiber.Ctx) error {
	email, err := identity.GetEmail(c)
	if err != nil {
		return unauthorized(c)
	}

	item, err := h.roadmapService.Get(email, c.Params("id"))
	if err != nil {
		return h.fail(c, email, "get", err)
	}
	return c.JSON(item)
}

// Create handles POST /roadmaps. 201 for a new roadmap, 200 when the body's
// id matched an existing one.
func (h *RoadmapHandler) Create(c *fiber.Ctx) error {
	email, err := identity.GetEmail(c)
	if err != nil {
		return unauthorized(c)
	}

	raw, err := decodeObject(c.Body())
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
			Error: true, Message: "Invalid request body",
		})
	}

	item, created, err := h.roadmapService.Save(email, raw)
	if err != nil {
		return h.fail(c, email, "create", err)
	}
	if created {
		return c.Status(fiber.StatusCreated).JSON(item)
	}
	return c.JSON(item)
}

// Update handles PUT /roadmaps/:id.
func (h *RoadmapHandler) Update(c *fiber.Ctx) error {
	email, err := identity.GetEmail(c)
	if err != nil {
		return unauthorized(c)
	}

	raw, err := decodeObject(c.Body())
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
			Error: true, Message: "Invalid request body",
		})
	}

	item, err := h.roadmapService.Update(email, c.Params("id"), raw)
	if err != nil {
		return h.fail(c, email, "update", err)
	}
	return c.JSON(item)
}

// Delete handles DELETE /roadmaps/:id.
func (h *RoadmapHandler) Delete(c *fiber.Ctx) error {
	email, err := identity.GetEmail(c)
	if err != nil {
		return unauthorized(c)
	}

	if err := h.roadmapService.Delete(email, c.Params("id")); err != nil {
		return h.fail(c, email, "delete", err)
	}
	return c.JSON(fiber.Map{"message": "Roadmap deleted"})
}

func (h *RoadmapHandler) fail(c *fiber.Ctx, email, action string, err error) error {
	switch {
	case errors.Is(err, ErrRoadmapNotFound):
		return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{
			Error: true, Message: "Roadmap not found",
		})
	case errors.Is(err, ErrInvalidRoadmap):
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
			Error: true, Message: err.Error(),
		})
	}
	slog.Error("roadmap request failed",
		"component", "roadmaps",
		"action", action,
		"user_email", email,
		"roadmap_id", c.Params("id"),
		"error", err,
	)
	return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{
		Error: true, Message: "Failed to " + action + " roadmap",
	})
}

func unauthorized(c *fiber.Ctx) error {
	return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{
		Error: true, Message: "Unauthorized",
	})
}

func decodeObject(body []byte) (map[string]any, error) {
	var raw map[string]any
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, err
	}
	if raw == nil {
		return nil, ErrInvalidRoadmap
	}
	return raw, nil
}
