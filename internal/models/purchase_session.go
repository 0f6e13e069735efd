package models

import (
	"time"

	"gorm.io/datatypes"
)

// Purchase session statuses.
const (
	// SessionStatusPending marks a session awaiting payment confirmation.
	SessionStatusPending = "pending"
	// SessionStatusCompleted marks a session that produced a voucher.
	SessionStatusCompleted = "completed"
	// SessionStatusExpired marks a session that timed out unpaid.
	SessionStatusExpired = "expired"
)

// PurchaseSession records an in-flight voucher purchase. The session id
// doubles as the idempotency key for payment gateway callbacks. Rows are
// never deleted; completed and expired sessions are retained for audit.
type PurchaseSession struct {
	ID string `gorm:"type:varchar(64);primaryKey"` // Opaque unique session id.

	CustomerEmail string `gorm:"type:text;not null"` // Contact email for delivery.
	CustomerPhone string `gorm:"type:text"`          // Optional contact phone.

	Quantity       int     `gorm:"not null;default:1"`                       // Requested voucher count.
	Amount         float64 `gorm:"type:decimal(20,2);not null"`              // Total monetary amount.
	Currency       string  `gorm:"type:varchar(8);not null;default:'PGK'"`   // ISO currency code.
	DeliveryMethod string  `gorm:"type:varchar(32);not null;default:'email'"` // Voucher delivery channel.

	PassportInput datatypes.JSON `gorm:"type:jsonb"` // Raw passport data captured at session start.
	Metadata      datatypes.JSON `gorm:"type:jsonb"` // Source, client fingerprint, gateway payloads.

	Status     string `gorm:"type:varchar(16);not null;default:'pending';index"` // pending, completed or expired.
	GatewayRef string `gorm:"type:text;index"`                                   // Payment gateway transaction reference.

	CreatedAt   time.Time  `gorm:"not null;autoCreateTime"` // Session creation timestamp.
	ExpiresAt   time.Time  `gorm:"not null;index"`          // Payment deadline.
	CompletedAt *time.Time // Completion time, set exactly once.
}
