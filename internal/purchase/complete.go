// Package purchase implements the atomic purchase-completion transaction:
// the payment-gateway confirmation path that upserts a passport, mints a
// voucher and finalizes the session exactly once, or rolls back entirely.
package purchase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/niuginipay/greenfees/internal/models"
	"github.com/niuginipay/greenfees/internal/notify"
	"github.com/niuginipay/greenfees/internal/passport"
	"github.com/niuginipay/greenfees/internal/voucher"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// defaultCompleteTimeout bounds the completion transaction, consistent
// with gateway webhook timeouts.
const defaultCompleteTimeout = 8 * time.Second

// errAlreadyCompleted aborts the transaction on the idempotency path.
// Rolling back is safe there: nothing has been written yet.
var errAlreadyCompleted = errors.New("purchase: session already completed")

// PaymentData is the gateway confirmation payload for a session.
type PaymentData struct {
	TransactionID string         // Gateway transaction reference.
	PaymentMethod string         // Defaults to card.
	Metadata      map[string]any // Gateway metadata merged into the session for audit.
}

// Result is the outcome of a completion attempt. Exactly one of two
// successful shapes exists: everything created, or already done.
type Result struct {
	AlreadyCompleted bool
	Voucher          *models.Voucher
	Passport         *models.Passport
}

// Service orchestrates purchase completion. It holds no global state; all
// coordination happens through the database's row locks and constraints.
type Service struct {
	db         *gorm.DB
	issuer     *voucher.Issuer
	dispatcher notify.Dispatcher
	timeout    time.Duration
}

// NewService constructs a Service. A nil dispatcher disables notifications.
func NewService(db *gorm.DB, issuer *voucher.Issuer, dispatcher notify.Dispatcher) *Service {
	if issuer == nil {
		issuer = voucher.NewIssuer()
	}
	return &Service{
		db:         db,
		issuer:     issuer,
		dispatcher: dispatcher,
		timeout:    defaultCompleteTimeout,
	}
}

// Complete executes the purchase-completion transaction for a session.
//
// Inside a single database transaction it locks the session row, returns
// the no-op result when the session already completed, upserts the
// passport, issues the voucher and finalizes the session. Any failure rolls
// the whole transaction back, leaving the session pending for a later
// retry. Gateways redeliver webhooks on ambiguous failures, so this method
// must stay safe to invoke any number of times per session.
//
// Notification dispatch runs only after a successful commit and never
// affects the returned result.
func (s *Service) Complete(ctx context.Context, sessionID string, payment PaymentData) (*Result, error) {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return nil, ErrSessionNotFound
	}

	txCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	var result Result
	var customerPhone, currency string
	errTx := s.db.WithContext(txCtx).Transaction(func(tx *gorm.DB) error {
		session, errGet := GetSessionForUpdate(tx, sessionID)
		if errGet != nil {
			return errGet
		}
		customerPhone = session.CustomerPhone
		currency = session.Currency

		if session.Status == models.SessionStatusCompleted {
			return errAlreadyCompleted
		}

		input, errInput := passportInputFromSession(session)
		if errInput != nil {
			return errInput
		}

		pass, errUpsert := passport.Upsert(tx, input)
		if errUpsert != nil {
			return errUpsert
		}

		method := strings.TrimSpace(payment.PaymentMethod)
		if method == "" {
			method = "card"
		}
		issued, errIssue := s.issuer.Issue(tx, voucher.IssueParams{
			PassportNumber: pass.PassportNumber,
			Amount:         session.Amount,
			PaymentMethod:  method,
			SessionID:      session.ID,
			CustomerName:   pass.FullName,
			CustomerEmail:  session.CustomerEmail,
			Prefix:         voucher.PrefixOnline,
		})
		if errIssue != nil {
			return errIssue
		}

		if errMark := MarkSessionCompleted(tx, session, payment.TransactionID, payment.Metadata); errMark != nil {
			return errMark
		}

		result = Result{Voucher: issued, Passport: pass}
		return nil
	})
	if errTx != nil {
		if errors.Is(errTx, errAlreadyCompleted) {
			return &Result{AlreadyCompleted: true}, nil
		}
		return nil, errTx
	}

	s.dispatchIssued(sessionID, customerPhone, currency, &result)
	return &result, nil
}

// passportInputFromSession extracts the passport data captured at session
// creation. Absent or unreadable data is an upstream flow bug.
func passportInputFromSession(session *models.PurchaseSession) (passport.Input, error) {
	var input passport.Input
	if len(session.PassportInput) == 0 {
		return input, ErrMissingPassportData
	}
	if errDecode := json.Unmarshal(session.PassportInput, &input); errDecode != nil {
		return input, fmt.Errorf("%w: %v", ErrMissingPassportData, errDecode)
	}
	if input.Empty() {
		return input, ErrMissingPassportData
	}
	return input, nil
}

// dispatchIssued hands the voucher to the notification pipeline. Failures
// are logged and swallowed: money is captured and the voucher exists
// durably, so a notification failure must never make the purchase look
// failed.
func (s *Service) dispatchIssued(sessionID, customerPhone, currency string, result *Result) {
	if s.dispatcher == nil || result.Voucher == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	event := notify.VoucherIssued{
		CustomerEmail: result.Voucher.CustomerEmail,
		CustomerPhone: customerPhone,
		CustomerName:  result.Voucher.CustomerName,
		VoucherCode:   result.Voucher.Code,
		Amount:        result.Voucher.Amount,
		Currency:      currency,
		ValidUntil:    result.Voucher.ValidUntil,
		SessionID:     sessionID,
	}
	if errNotify := s.dispatcher.VoucherIssued(ctx, event); errNotify != nil {
		log.WithError(errNotify).
			WithField("voucher_code", result.Voucher.Code).
			Warn("purchase: voucher notification dispatch failed")
	}
}
