package roadmaps

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// UserRoadmap is a saved roadmap. ClientID keeps the id the client first
// created the roadmap under, so repeated uploads of it update one row.
type UserRoadmap struct {
	ID        uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	UserEmail string         `gorm:"size:255;not null;index;uniqueIndex:idx_roadmaps_user_client,priority:1" json:"userEmail"`
	ClientID  *string        `gorm:"size:64;uniqueIndex:idx_roadmaps_user_client,priority:2" json:"clientId"`
	Name      string         `gorm:"size:255;not null" json:"name"`
	Skills    datatypes.JSON `json:"skills"`
	Payload   datatypes.JSON `json:"payload"`
	CreatedAt time.Time      `gorm:"index" json:"createdAt"`
	UpdatedAt time.Time      `json:"updatedAt"`
}

func (r *UserRoadmap) BeforeCreate(tx *gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}

func (UserRoadmap) TableName() string {
	return "user_roadmaps"
}
