package voucher

import (
	"time"

	"github.com/niuginipay/greenfees/internal/models"
)

// Validation states reported for a voucher.
const (
	// StateValid means the voucher is inside its window and unused.
	StateValid = "valid"
	// StateUsed means the voucher has already been redeemed.
	StateUsed = "used"
	// StateExpired means the validity window has passed.
	StateExpired = "expired"
	// StateNotYetValid means the validity window has not started.
	StateNotYetValid = "not_yet_valid"
)

// State classifies a voucher at the given instant. A used voucher reports
// used even when still inside its window.
func State(v *models.Voucher, now time.Time) string {
	if v.UsedAt != nil {
		return StateUsed
	}
	if now.Before(v.ValidFrom) {
		return StateNotYetValid
	}
	if now.After(v.ValidUntil) {
		return StateExpired
	}
	return StateValid
}

// IsValid reports whether the voucher can be redeemed at the given instant.
func IsValid(v *models.Voucher, now time.Time) bool {
	return State(v, now) == StateValid
}
