package notes

import (
	"errors"
	"fmt"
	"strings"

	"github.com/ahmetcoskunkizilkaya/careerforge/internal/identity"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

var (
	ErrNoteNotFound    = errors.New("note not found")
	ErrContentRequired = errors.New("content is required")
	ErrTitleTooLong    = errors.New("title must be at most 200 characters")
)

const maxTitleLen = 200

type NoteService struct {
	db *gorm.DB
}

func NewNoteService(db *gorm.DB) *NoteService {
	return &NoteService{db: db}
}

// List returns the caller's notes, most recently updated first. A non-empty
// milestone narrows the result to that milestone.
func (s *NoteService) List(email, milestone string) ([]Note, error) {
	notes := []Note{}
	q := s.db.Scopes(identity.ForUser(email))
	if milestone != "" {
		q = q.Where("milestone = ?", milestone)
	}
	if err := q.Order("updated_at DESC").Find(&notes).Error; err != nil {
		return nil, fmt.Errorf("failed to list notes: %w", err)
	}
	return notes, nil
}

func (s *NoteService) Create(email string, req *CreateNoteRequest) (*Note, error) {
	if strings.TrimSpace(req.Content) == "" {
		return nil, ErrContentRequired
	}
	title := strings.TrimSpace(req.Title)
	if len([]rune(title)) > maxTitleLen {
		return nil, ErrTitleTooLong
	}

	note := Note{
		UserEmail: email,
		Title:     title,
		Content:   req.Content,
		Milestone: strings.TrimSpace(req.Milestone),
		RoadmapID: strings.TrimSpace(req.RoadmapID),
	}
	if err := s.db.Create(&note).Error; err != nil {
		return nil, fmt.Errorf("failed to create note: %w", err)
	}
	return &note, nil
}

func (s *NoteService) Get(email string, id uuid.UUID) (*Note, error) {
	var note Note
	err := s.db.Scopes(identity.ForUser(email)).Where("id = ?", id).First(&note).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNoteNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get note: %w", err)
	}
	return &note, nil
}

func (s *NoteService) Update(email string, id uuid.UUID, req *UpdateNoteRequest) (*Note, error) {
	note, err := s.Get(email, id)
	if err != nil {
		return nil, err
	}
	if req.Title != nil {
		title := strings.TrimSpace(*req.Title)
		if len([]rune(title)) > maxTitleLen {
			return nil, ErrTitleTooLong
		}
		note.Title = title
	}
	if req.Content != nil {
		if strings.TrimSpace(*req.Content) == "" {
			return nil, ErrContentRequired
		}
		note.Content = *req.Content
	}
	if req.Milestone != nil {
		note.Milestone = strings.TrimSpace(*req.Milestone)
	}
	if err := s.db.Save(note).Error; err != nil {
		return nil, fmt.Errorf("failed to update note: %w", err)
	}
	return note, nil
}

func (s *NoteService) Delete(email string, id uuid.UUID) error {
	result := s.db.Scopes(identity.ForUser(email)).Where("id = ?", id).Delete(&Note{})
	if result.Error != nil {
		return fmt.Errorf("failed to delete note: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNoteNotFound
	}
	return nil
}

// PurgeUser deletes every note owned by email.
func (s *NoteService) PurgeUser(tx *gorm.DB, email string) error {
	return tx.Scopes(identity.ForUser(email)).Delete(&Note{}).Error
}
