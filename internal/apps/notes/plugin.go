package notes

import (
	"github.com/ahmetcoskunkizilkaya/careerforge/internal/config"
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

type NotesPlugin struct{}

func New() *NotesPlugin {
	return &NotesPlugin{}
}

func (p *NotesPlugin) ID() string { return "notes" }

func (p *NotesPlugin) Models() []interface{} {
	return []interface{}{
		&Note{},
	}
}

func (p *NotesPlugin) RegisterRoutes(router fiber.Router, db *gorm.DB, cfg *config.Config) {
	handler := NewNoteHandler(NewNoteService(db))

	router.Get("/notes", handler.List)
	router.Post("/notes", handler.Create)
	router.Get("/notes/:id", handler.Get)
	router.Put("/notes/:id", handler.Update)
	router.Delete("/notes/:id", handler.Delete)
}

func (p *NotesPlugin) PurgeUser(tx *gorm.DB, email string) error {
	return NewNoteService(tx).PurgeUser(tx, email)
}
