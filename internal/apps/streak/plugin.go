package streak

import (
	"github.com/ahmetcoskunkizilkaya/careerforge/internal/config"
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

type StreakPlugin struct{}

func New() *StreakPlugin {
	return &StreakPlugin{}
}

func (p *StreakPlugin) ID() string { return "streak" }

func (p *StreakPlugin) Models() []interface{} {
	return []interface{}{
		&UserStats{},
	}
}

func (p *StreakPlugin) RegisterRoutes(router fiber.Router, db *gorm.DB, cfg *config.Config) {
	handler := NewStreakHandler(NewStreakService(db))

	router.Get("/streak", handler.Get)
	router.Post("/streak", handler.Update)
}

func (p *StreakPlugin) PurgeUser(tx *gorm.DB, email string) error {
	return NewStreakService(tx).PurgeUser(tx, email)
}
