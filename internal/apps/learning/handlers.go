package learning

import (
	"errors"

	"github.com/ahmetcoskunkizilkaya/careerforge/internal/dto"
	"github.com/gofiber/fiber/v2"
)

type LearningHandler struct {
	learningService *LearningService
}

func NewLearningHandler(learningService *LearningService) *LearningHandler {
	return &LearningHandler{learningService: learningService}
}

// GenerateRoadmap handles POST /roadmap/generate.
func (h *LearningHandler) GenerateRoadmap(c *fiber.Ctx) error {
	var req GenerateRoadmapRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
			Error: true, Message: "Invalid request body",
		})
	}

	resp, err := h.learningService.GenerateRoadmap(c.UserContext(), req.Role)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(resp)
}

// Questions handles POST /practice/questions.
func (h *LearningHandler) Questions(c *fiber.Ctx) error {
	var req QuestionsRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
			Error: true, Message: "Invalid request body",
		})
	}

	resp, err := h.learningService.Questions(c.UserContext(), req)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(resp)
}

// Theory handles GET /theory?query=.
func (h *LearningHandler) Theory(c *fiber.Ctx) error {
	resp, err := h.learningService.Theory(c.UserContext(), c.Query("query"))
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(resp)
}

// Resources handles GET /resources?query=.
func (h *LearningHandler) Resources(c *fiber.Ctx) error {
	return c.JSON(h.learningService.Resources(c.UserContext(), c.Query("query")))
}

func (h *LearningHandler) fail(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, ErrRoleRequired), errors.Is(err, ErrNodeRequired), errors.Is(err, ErrQueryRequired):
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
			Error: true, Message: err.Error(),
		})
	case errors.Is(err, ErrNoAIConfigured):
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{
			Error: true, Message: "AI service not configured",
		})
	case errors.Is(err, ErrEmptyOutput), errors.Is(err, ErrInvalidOutput):
		return c.Status(fiber.StatusBadGateway).JSON(dto.ErrorResponse{
			Error: true, Message: err.Error(),
		})
	default:
		h.learningService.log.Error("AI request failed", "path", c.Path(), "error", err)
		return c.Status(fiber.StatusBadGateway).JSON(dto.ErrorResponse{
			Error: true, Message: "AI service unavailable",
		})
	}
}
