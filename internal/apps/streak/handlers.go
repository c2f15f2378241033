package streak

import (
	"errors"

	"github.com/ahmetcoskunkizilkaya/careerforge/internal/dto"
	"github.com/ahmetcoskunkizilkaya/careerforge/internal/identity"
	"github.com/gofiber/fiber/v2"
)

type StreakHandler struct {
	streakService *StreakService
}

func NewStreakHandler(streakService *StreakService) *StreakHandler {
	return &StreakHandler{streakService: streakService}
}

// Get handles GET /streak.
func (h *StreakHandler) Get(c *fiber.Ctx) error {
	email, err := identity.GetEmail(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{
			Error: true, Message: "Unauthorized",
		})
	}

	resp, err := h.streakService.Get(email)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{
			Error: true, Message: "Failed to fetch streak",
		})
	}
	return c.JSON(resp)
}

// Update handles POST /streak with action touch or reset.
func (h *StreakHandler) Update(c *fiber.Ctx) error {
	email, err := identity.GetEmail(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{
			Error: true, Message: "Unauthorized",
		})
	}

	var req ActionRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
			Error: true, Message: "Invalid request body",
		})
	}

	var resp StreakResponse
	switch req.Action {
	case "touch":
		resp, err = h.streakService.Touch(email, req.Date)
	case "reset":
		resp, err = h.streakService.Reset(email)
	default:
		err = ErrUnknownAction
	}
	if err != nil {
		if errors.Is(err, ErrUnknownAction) {
			return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
				Error: true, Message: err.Error(),
			})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{
			Error: true, Message: "Failed to update streak",
		})
	}
	return c.JSON(resp)
}
