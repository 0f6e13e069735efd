package models

import "time"

// Passport stores traveller identity keyed by passport number. At most one
// row exists per normalized passport number; repeat purchases refresh the
// name, date of birth and nationality in place.
type Passport struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	PassportNumber string `gorm:"type:varchar(32);not null;uniqueIndex"` // Business key, uppercased.
	FullName       string `gorm:"type:text;not null"`                    // "Surname, GivenName" when both present.

	DateOfBirth *time.Time // Optional date of birth.
	Nationality string     `gorm:"type:text;not null"` // Defaults to Papua New Guinea.
	ExpiryDate  time.Time  `gorm:"not null"`           // Defaults to ten years after first issue.

	CreatedAt time.Time `gorm:"not null;autoCreateTime"` // Creation timestamp.
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime"` // Last update timestamp.
}
