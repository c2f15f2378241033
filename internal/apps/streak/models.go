package streak

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// UserStats is the server-authoritative streak row, one per email.
type UserStats struct {
	ID            uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	UserEmail     string    `gorm:"size:255;not null;uniqueIndex" json:"userEmail"`
	Streak        int       `json:"streak"`
	LongestStreak int       `json:"longestStreak"`
	LastActive    *string   `gorm:"size:10" json:"lastActive"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

func (s *UserStats) BeforeCreate(tx *gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}

func (UserStats) TableName() string {
	return "user_stats"
}

// --- DTOs ---

type ActionRequest struct {
	Action string `json:"action"`
	Date   string `json:"date"`
}

type StreakResponse struct {
	Streak        int     `json:"streak"`
	LastActive    *string `json:"lastActive"`
	LongestStreak int     `json:"longestStreak"`
}
