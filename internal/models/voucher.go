package models

import "time"

// Voucher is a single-use exit pass minted by a completed purchase. The
// code is unique and prefixed by issuance channel (ONL online, CTR counter,
// CRP corporate). Redemption sets UsedAt exactly once and never clears it.
type Voucher struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	Code           string `gorm:"type:varchar(32);not null;uniqueIndex"` // Scannable voucher code.
	PassportNumber string `gorm:"type:varchar(32);not null;index"`       // Linked passport business key.

	Amount        float64 `gorm:"type:decimal(20,2);not null"` // Paid amount.
	PaymentMethod string  `gorm:"type:varchar(32);not null"`   // card, cash, bank transfer.

	CollectedAmount *float64 `gorm:"type:decimal(20,2)"` // Cash collected for counter sales.
	ReturnedAmount  *float64 `gorm:"type:decimal(20,2)"` // Change returned for counter sales.

	ValidFrom  time.Time `gorm:"not null"`       // Start of the validity window.
	ValidUntil time.Time `gorm:"not null;index"` // End of the validity window.

	CustomerName  string `gorm:"type:text"` // Customer name snapshot at issuance.
	CustomerEmail string `gorm:"type:text"` // Customer email snapshot at issuance.

	SessionID *string `gorm:"type:varchar(64);index"` // Originating purchase session, when online.

	UsedAt    *time.Time `gorm:"index"`                   // Redemption time, nil until scanned.
	CreatedAt time.Time  `gorm:"not null;autoCreateTime"` // Issuance timestamp.
}
