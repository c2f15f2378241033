package notes

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Note struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	UserEmail string    `gorm:"size:255;not null;index:idx_notes_user_milestone,priority:1" json:"userEmail"`
	Milestone string    `gorm:"size:255;index:idx_notes_user_milestone,priority:2" json:"milestone"`
	RoadmapID string    `gorm:"size:64" json:"roadmapId,omitempty"`
	Title     string    `gorm:"size:200" json:"title"`
	Content   string    `gorm:"type:text;not null" json:"content"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `gorm:"index" json:"updatedAt"`
}

func (n *Note) BeforeCreate(tx *gorm.DB) error {
	if n.ID == uuid.Nil {
		n.ID = uuid.New()
	}
	return nil
}

// --- DTOs ---

type CreateNoteRequest struct {
	Title     string `json:"title"`
	Content   string `json:"content"`
	Milestone string `json:"milestone"`
	RoadmapID string `json:"roadmapId"`
}

// UpdateNoteRequest changes only the fields that are present.
type UpdateNoteRequest struct {
	Title     *string `json:"title"`
	Content   *string `json:"content"`
	Milestone *string `json:"milestone"`
}

type NoteResponse struct {
	Note *Note `json:"note"`
}

type NotesListResponse struct {
	Notes []Note `json:"notes"`
}
