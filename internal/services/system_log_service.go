package services

import (
	"time"

	"github.com/ahmetcoskunkizilkaya/careerforge/internal/logging"
	"github.com/ahmetcoskunkizilkaya/careerforge/internal/models"
	"gorm.io/gorm"
)

// LogFilter narrows a system log listing. Empty fields match everything.
type LogFilter struct {
	Level     string
	Component string
	UserEmail string
	Since     time.Time
}

type SystemLogService struct {
	db        *gorm.DB
	retention time.Duration
}

func NewSystemLogService(db *gorm.DB, retention time.Duration) *SystemLogService {
	return &SystemLogService{db: db, retention: retention}
}

func (s *SystemLogService) List(f LogFilter, limit, offset int) ([]models.SystemLog, int64, error) {
	var logs []models.SystemLog
	var total int64

	query := s.db.Model(&models.SystemLog{})
	if f.Level != "" {
		query = query.Where("level = ?", f.Level)
	}
	if f.Component != "" {
		query = query.Where("component = ?", f.Component)
	}
	if f.UserEmail != "" {
		query = query.Where("user_email = ?", f.UserEmail)
	}
	if !f.Since.IsZero() {
		query = query.Where("timestamp >= ?", f.Since)
	}
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if err := query.Order("timestamp DESC").Limit(limit).Offset(offset).Find(&logs).Error; err != nil {
		return nil, 0, err
	}
	return logs, total, nil
}

// Purge removes logs past the retention window now instead of waiting for
// the daily cleanup.
func (s *SystemLogService) Purge() (int64, error) {
	return logging.Purge(s.db, s.retention, time.Now())
}
