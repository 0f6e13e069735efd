// Package voucher mints and validates single-use exit passes.
package voucher

import (
	"crypto/rand"
	"encoding/hex"
	"strconv"
	"strings"
	"time"
)

// Issuance channel prefixes baked into voucher codes.
const (
	// PrefixOnline marks vouchers sold through the public portal.
	PrefixOnline = "ONL"
	// PrefixCounter marks vouchers sold at a staffed counter.
	PrefixCounter = "CTR"
	// PrefixCorporate marks vouchers issued under a corporate account.
	PrefixCorporate = "CRP"
)

// GenerateCode produces a scannable voucher code: channel prefix, the
// current millisecond encoded base36, and a random suffix, all uppercased.
// Uniqueness is enforced by the unique index on vouchers.code; callers
// treat a duplicate-key insert as retryable and regenerate.
func GenerateCode(prefix string) string {
	millis := strconv.FormatInt(time.Now().UnixMilli(), 36)
	suffix := make([]byte, 4)
	_, _ = rand.Read(suffix)
	return strings.ToUpper(prefix + millis + hex.EncodeToString(suffix))
}
