package voucher

import (
	"errors"
	"time"

	"github.com/niuginipay/greenfees/internal/models"
	"github.com/niuginipay/greenfees/internal/settings"
	"gorm.io/gorm"
)

// ErrCodeCollision indicates voucher code collision retries were exhausted.
var ErrCodeCollision = errors.New("voucher: code collision retries exhausted")

// issueRetries bounds regeneration attempts on code collisions.
const issueRetries = 3

// issueSavePoint scopes each insert attempt so a duplicate-key violation
// does not poison the enclosing transaction.
const issueSavePoint = "sp_voucher_issue"

// Issuer creates voucher rows inside purchase transactions.
type Issuer struct {
	genCode func(prefix string) string
}

// NewIssuer constructs an Issuer using the standard code generator.
func NewIssuer() *Issuer {
	return &Issuer{genCode: GenerateCode}
}

// NewIssuerWithGenerator constructs an Issuer with a custom code generator.
func NewIssuerWithGenerator(gen func(prefix string) string) *Issuer {
	if gen == nil {
		gen = GenerateCode
	}
	return &Issuer{genCode: gen}
}

// IssueParams carries the inputs for minting one voucher.
type IssueParams struct {
	PassportNumber string  // Linked passport business key, already normalized.
	Amount         float64 // Paid amount.
	PaymentMethod  string  // Gateway payment method.
	SessionID      string  // Originating purchase session, empty for counter sales.
	CustomerName   string  // Name snapshot.
	CustomerEmail  string  // Email snapshot.
	Prefix         string  // Channel prefix, defaults to PrefixOnline.
	ValidityDays   int     // Overrides the configured validity window when positive.
}

// Issue inserts a voucher row linked to the passport and session inside the
// caller's transaction. The validity window starts now and runs for the
// configured number of days. On a code collision the insert is retried with
// a fresh code up to issueRetries times before failing with ErrCodeCollision.
func (i *Issuer) Issue(tx *gorm.DB, params IssueParams) (*models.Voucher, error) {
	prefix := params.Prefix
	if prefix == "" {
		prefix = PrefixOnline
	}
	days := params.ValidityDays
	if days <= 0 {
		days = settings.VoucherValidityDays()
	}
	gen := i.genCode
	if gen == nil {
		gen = GenerateCode
	}

	now := time.Now().UTC()
	var sessionID *string
	if params.SessionID != "" {
		id := params.SessionID
		sessionID = &id
	}

	for attempt := 0; attempt < issueRetries; attempt++ {
		record := models.Voucher{
			Code:           gen(prefix),
			PassportNumber: params.PassportNumber,
			Amount:         params.Amount,
			PaymentMethod:  params.PaymentMethod,
			ValidFrom:      now,
			ValidUntil:     now.AddDate(0, 0, days),
			CustomerName:   params.CustomerName,
			CustomerEmail:  params.CustomerEmail,
			SessionID:      sessionID,
			CreatedAt:      now,
		}
		if errSave := tx.SavePoint(issueSavePoint).Error; errSave != nil {
			return nil, errSave
		}
		errCreate := tx.Create(&record).Error
		if errCreate == nil {
			return &record, nil
		}
		if !errors.Is(errCreate, gorm.ErrDuplicatedKey) {
			return nil, errCreate
		}
		if errRollback := tx.RollbackTo(issueSavePoint).Error; errRollback != nil {
			return nil, errRollback
		}
	}
	return nil, ErrCodeCollision
}
