package settings

// DB config keys and defaults for settings.
const (
	// VoucherValidityDaysKey controls how long issued vouchers stay valid.
	VoucherValidityDaysKey = "VOUCHER_VALIDITY_DAYS"
	// DefaultVoucherAmountKey is the DB config key for the default fee amount.
	DefaultVoucherAmountKey = "DEFAULT_VOUCHER_AMOUNT"
	// SiteNameKey is the DB config key for the portal display name.
	SiteNameKey = "SITE_NAME"

	// DefaultVoucherValidityDays is the fallback validity window in days.
	DefaultVoucherValidityDays = 90
	// DefaultVoucherAmount is the fallback green fee amount in PGK.
	DefaultVoucherAmount = 50.0
	// DefaultSiteName is the fallback portal display name.
	DefaultSiteName = "PNG Green Fees"
)
