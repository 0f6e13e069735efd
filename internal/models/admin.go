package models

import "time"

// Admin represents a counter or back-office staff account.
type Admin struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	Username string `gorm:"type:text;not null;uniqueIndex"` // Unique login name.
	Password string `gorm:"type:text;not null"`             // Hashed password.

	Active bool `gorm:"not null;default:true"` // Whether the admin can sign in.

	CreatedAt time.Time `gorm:"not null;autoCreateTime"` // Creation timestamp.
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime"` // Last update timestamp.
}
