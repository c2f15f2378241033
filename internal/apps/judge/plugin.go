package judge

import (
	"log/slog"

	"github.com/ahmetcoskunkizilkaya/careerforge/internal/config"
	"github.com/ahmetcoskunkizilkaya/careerforge/internal/judge"
	"github.com/gofiber/fiber/v2"
)

// JudgePlugin exposes the Judge0 runner for coding exercises.
type JudgePlugin struct {
	log *slog.Logger
}

func New(log *slog.Logger) *JudgePlugin {
	if log == nil {
		log = slog.Default()
	}
	return &JudgePlugin{log: log}
}

func (p *JudgePlugin) ID() string { return "judge" }

func (p *JudgePlugin) RegisterPublicRoutes(router fiber.Router, cfg *config.Config) {
	handler := NewJudgeHandler(judge.NewRunner(cfg, p.log), p.log)

	router.Post("/judge", handler.Run)
}
