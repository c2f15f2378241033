package streak

import (
	"errors"
	"fmt"
	"time"

	"github.com/ahmetcoskunkizilkaya/careerforge/internal/identity"
	streaklaw "github.com/ahmetcoskunkizilkaya/careerforge/internal/streak"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var ErrUnknownAction = errors.New("action must be touch or reset")

type StreakService struct {
	db  *gorm.DB
	now func() time.Time
}

func NewStreakService(db *gorm.DB) *StreakService {
	return &StreakService{db: db, now: time.Now}
}

// Get returns the caller's streak. Users without a row see the baseline.
func (s *StreakService) Get(email string) (StreakResponse, error) {
	var row UserStats
	err := s.db.Scopes(identity.ForUser(email)).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		m := streaklaw.Missing()
		return StreakResponse{Streak: m.Count, LastActive: m.LastActive}, nil
	}
	if err != nil {
		return StreakResponse{}, fmt.Errorf("failed to get streak: %w", err)
	}
	return StreakResponse{
		Streak:        streaklaw.Display(row.Streak),
		LastActive:    row.LastActive,
		LongestStreak: row.LongestStreak,
	}, nil
}

// Touch records activity on day. An empty or malformed day means today in UTC.
func (s *StreakService) Touch(email, day string) (StreakResponse, error) {
	day = streaklaw.ResolveDate(day, s.now())
	var out StreakResponse
	err := s.db.Transaction(func(tx *gorm.DB) error {
		row, found, err := load(tx, email)
		if err != nil {
			return err
		}
		next := streaklaw.Touch(streaklaw.State{Count: row.Streak, LastActive: row.LastActive}, day)
		row.Streak = next.Count
		row.LastActive = next.LastActive
		if row.Streak > row.LongestStreak {
			row.LongestStreak = row.Streak
		}
		if err := save(tx, row, found); err != nil {
			return err
		}
		out = StreakResponse{Streak: row.Streak, LastActive: row.LastActive, LongestStreak: row.LongestStreak}
		return nil
	})
	return out, err
}

// Reset zeroes the streak and forgets the last active day. The longest
// streak survives.
func (s *StreakService) Reset(email string) (StreakResponse, error) {
	var out StreakResponse
	err := s.db.Transaction(func(tx *gorm.DB) error {
		row, found, err := load(tx, email)
		if err != nil {
			return err
		}
		reset := streaklaw.Reset()
		row.Streak = reset.Count
		row.LastActive = reset.LastActive
		if err := save(tx, row, found); err != nil {
			return err
		}
		out = StreakResponse{Streak: row.Streak, LastActive: row.LastActive, LongestStreak: row.LongestStreak}
		return nil
	})
	return out, err
}

// PurgeUser deletes the streak row for email.
func (s *StreakService) PurgeUser(tx *gorm.DB, email string) error {
	return tx.Scopes(identity.ForUser(email)).Delete(&UserStats{}).Error
}

func load(tx *gorm.DB, email string) (*UserStats, bool, error) {
	var row UserStats
	err := tx.Scopes(identity.ForUser(email)).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return &UserStats{UserEmail: email}, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to find streak: %w", err)
	}
	return &row, true, nil
}

// save updates a loaded row. New rows are upserted on user_email so two
// first touches racing each other end in one row.
func save(tx *gorm.DB, row *UserStats, found bool) error {
	if found {
		return tx.Save(row).Error
	}
	return tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_email"}},
		DoUpdates: clause.AssignmentColumns([]string{"streak", "longest_streak", "last_active", "updated_at"}),
	}).Create(row).Error
}
