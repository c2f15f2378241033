package logging

import (
	"log/slog"
	"time"

	"github.com/ahmetcoskunkizilkaya/careerforge/internal/models"
	"gorm.io/gorm"
)

// Purge deletes system_logs older than retention and reports how many rows went.
func Purge(db *gorm.DB, retention time.Duration, now time.Time) (int64, error) {
	cutoff := now.Add(-retention)
	result := db.Where("timestamp < ?", cutoff).Delete(&models.SystemLog{})
	return result.RowsAffected, result.Error
}

// PurgeRefreshTokens deletes refresh tokens that expired, or were revoked,
// before now minus grace.
func PurgeRefreshTokens(db *gorm.DB, grace time.Duration, now time.Time) (int64, error) {
	cutoff := now.Add(-grace)
	result := db.Where("expires_at < ? OR revoked_at < ?", cutoff, cutoff).Delete(&models.RefreshToken{})
	return result.RowsAffected, result.Error
}

// StartCleanup runs a daily sweep of old system_logs and dead refresh tokens
// until done is closed.
func StartCleanup(db *gorm.DB, retention time.Duration, done chan struct{}) {
	go func() {
		ticker := time.NewTicker(24 * time.Hour)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				sweep(db, retention, time.Now())
			case <-done:
				return
			}
		}
	}()
}

func sweep(db *gorm.DB, retention time.Duration, now time.Time) {
	if deleted, err := Purge(db, retention, now); err != nil {
		slog.Error("log cleanup failed", "error", err)
	} else if deleted > 0 {
		slog.Info("log cleanup completed", "deleted", deleted)
	}
	if deleted, err := PurgeRefreshTokens(db, 24*time.Hour, now); err != nil {
		slog.Error("refresh token cleanup failed", "error", err)
	} else if deleted > 0 {
		slog.Info("refresh token cleanup completed", "deleted", deleted)
	}
}
