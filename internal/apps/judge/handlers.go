package judge

import (
	"errors"
	"log/slog"

	"github.com/ahmetcoskunkizilkaya/careerforge/internal/dto"
	"github.com/ahmetcoskunkizilkaya/careerforge/internal/judge"
	"github.com/gofiber/fiber/v2"
)

type JudgeHandler struct {
	runner *judge.Runner
	log    *slog.Logger
}

func NewJudgeHandler(runner *judge.Runner, log *slog.Logger) *JudgeHandler {
	return &JudgeHandler{runner: runner, log: log}
}

// Run handles POST /judge.
func (h *JudgeHandler) Run(c *fiber.Ctx) error {
	var req judge.Request
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
			Error: true, Message: "Invalid request body",
		})
	}

	resp, err := h.runner.Run(c.UserContext(), req)
	if err != nil {
		switch {
		case errors.Is(err, judge.ErrMissingFields),
			errors.Is(err, judge.ErrSourceTooLarge),
			errors.Is(err, judge.ErrNoTests),
			errors.Is(err, judge.ErrTooManyTests),
			errors.Is(err, judge.ErrTestIOTooLarge):
			return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
				Error: true, Message: err.Error(),
			})
		default:
			h.log.Error("judge run failed", "component", "judge", "error", err)
			return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{
				Error: true, Message: err.Error(),
			})
		}
	}
	return c.JSON(resp)
}
