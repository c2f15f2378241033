package roadmaps

import (
	"github.com/ahmetcoskunkizilkaya/careerforge/internal/config"
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

type RoadmapsPlugin struct{}

func New() *RoadmapsPlugin {
	return &RoadmapsPlugin{}
}

func (p *RoadmapsPlugin) ID() string { return "roadmaps" }

func (p *RoadmapsPlugin) Models() []interface{} {
	return []interface{}{
		&UserRoadmap{},
	}
}

func (p *RoadmapsPlugin) RegisterRoutes(router fiber.Router, db *gorm.DB, cfg *config.Config) {
	handler := NewRoadmapHandler(NewRoadmapService(db))

	router.Get("/roadmaps", handler.List)
	router.Post("/roadmaps", handler.Create)
	router.Get("/roadmaps/:id", handler.Get)
	router.Put("/roadmaps/:id", handler.Update)
	router.Delete("/roadmaps/:id", handler.Delete)
}

func (p *RoadmapsPlugin) PurgeUser(tx *gorm.DB, email string) error {
	return NewRoadmapService(tx).PurgeUser(tx, email)
}
