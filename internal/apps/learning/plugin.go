package learning

import (
	"context"
	"log/slog"

	"github.com/ahmetcoskunkizilkaya/careerforge/internal/config"
	"github.com/ahmetcoskunkizilkaya/careerforge/internal/llm"
	"github.com/gofiber/fiber/v2"
)

// LearningPlugin serves the AI-backed learning APIs. They need no account so
// guests can generate roadmaps and practice.
type LearningPlugin struct {
	ai     Completer
	videos VideoSearcher
	log    *slog.Logger
}

type Option func(*LearningPlugin)

// WithCompleter replaces the provider chain built from config.
func WithCompleter(ai Completer) Option {
	return func(p *LearningPlugin) { p.ai = ai }
}

// WithVideoSearcher replaces the YouTube client built from config.
func WithVideoSearcher(v VideoSearcher) Option {
	return func(p *LearningPlugin) { p.videos = v }
}

func WithLogger(log *slog.Logger) Option {
	return func(p *LearningPlugin) { p.log = log }
}

func New(opts ...Option) *LearningPlugin {
	p := &LearningPlugin{log: slog.Default()}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *LearningPlugin) ID() string { return "learning" }

func (p *LearningPlugin) RegisterPublicRoutes(router fiber.Router, cfg *config.Config) {
	ai := p.ai
	if ai == nil {
		ai = llm.New(cfg, p.log)
	}
	videos := p.videos
	if videos == nil {
		yt, err := NewYouTubeSearcher(context.Background(), cfg.YouTubeAPIKey)
		if err != nil {
			p.log.Warn("video search disabled", "error", err)
		} else {
			videos = yt
		}
	}

	handler := NewLearningHandler(NewLearningService(ai, videos, p.log))

	router.Post("/roadmap/generate", handler.GenerateRoadmap)
	router.Post("/practice/questions", handler.Questions)
	router.Get("/theory", handler.Theory)
	router.Get("/resources", handler.Resources)
}
