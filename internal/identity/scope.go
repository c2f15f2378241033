package identity

import "gorm.io/gorm"

// ForUser returns a GORM scope that filters by user_email.
func ForUser(email string) func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Where("user_email = ?", email)
	}
}
