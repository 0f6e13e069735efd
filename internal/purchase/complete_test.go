package purchase

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	dbpkg "github.com/niuginipay/greenfees/internal/db"
	"github.com/niuginipay/greenfees/internal/models"
	"github.com/niuginipay/greenfees/internal/notify"
	"github.com/niuginipay/greenfees/internal/passport"
	"github.com/niuginipay/greenfees/internal/voucher"
	"gorm.io/gorm"
)

// recordingDispatcher captures dispatched notifications.
type recordingDispatcher struct {
	mu     sync.Mutex
	events []notify.VoucherIssued
}

func (d *recordingDispatcher) VoucherIssued(_ context.Context, event notify.VoucherIssued) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.events = append(d.events, event)
	return nil
}

func (d *recordingDispatcher) count() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.events)
}

func seedSession(t *testing.T, conn *gorm.DB, withPassport bool) *models.PurchaseSession {
	t.Helper()
	store := NewStore(conn)
	params := CreateSessionParams{
		CustomerEmail: "jane@example.com",
		Amount:        50,
		Metadata:      map[string]any{"source": "portal"},
	}
	if withPassport {
		params.Passport = &passport.Input{PassportNumber: "P123", Surname: "Doe", GivenName: "Jane"}
	}
	session, errCreate := store.CreateSession(context.Background(), params)
	if errCreate != nil {
		t.Fatalf("seed session: %v", errCreate)
	}
	return session
}

func TestCompleteIssuesVoucherAndIsIdempotent(t *testing.T) {
	conn := openTestDB(t)
	dispatcher := &recordingDispatcher{}
	svc := NewService(conn, voucher.NewIssuer(), dispatcher)
	session := seedSession(t, conn, true)

	result, errComplete := svc.Complete(context.Background(), session.ID, PaymentData{
		TransactionID: "TXN1",
		PaymentMethod: "card",
		Metadata:      map[string]any{"gateway": "bsp"},
	})
	if errComplete != nil {
		t.Fatalf("complete: %v", errComplete)
	}
	if result.AlreadyCompleted {
		t.Fatalf("expected first completion to do the work")
	}
	if result.Voucher == nil || result.Voucher.PassportNumber != "P123" {
		t.Fatalf("expected voucher linked to P123, got %+v", result.Voucher)
	}
	if result.Voucher.SessionID == nil || *result.Voucher.SessionID != session.ID {
		t.Fatalf("expected voucher linked to session %s", session.ID)
	}
	if result.Passport == nil || result.Passport.FullName != "Doe, Jane" {
		t.Fatalf("expected passport 'Doe, Jane', got %+v", result.Passport)
	}

	var row models.PurchaseSession
	if errFind := conn.Where("id = ?", session.ID).First(&row).Error; errFind != nil {
		t.Fatalf("reload session: %v", errFind)
	}
	if row.Status != models.SessionStatusCompleted || row.GatewayRef != "TXN1" || row.CompletedAt == nil {
		t.Fatalf("expected finalized session, got %+v", row)
	}
	if dispatcher.count() != 1 {
		t.Fatalf("expected one notification, got %d", dispatcher.count())
	}

	again, errAgain := svc.Complete(context.Background(), session.ID, PaymentData{TransactionID: "TXN1"})
	if errAgain != nil {
		t.Fatalf("second complete: %v", errAgain)
	}
	if !again.AlreadyCompleted {
		t.Fatalf("expected already-completed no-op on redelivery")
	}

	var passports, vouchers int64
	if errCount := conn.Model(&models.Passport{}).Count(&passports).Error; errCount != nil {
		t.Fatalf("count passports: %v", errCount)
	}
	if errCount := conn.Model(&models.Voucher{}).Count(&vouchers).Error; errCount != nil {
		t.Fatalf("count vouchers: %v", errCount)
	}
	if passports != 1 || vouchers != 1 {
		t.Fatalf("expected exactly one passport and voucher, got %d/%d", passports, vouchers)
	}
	if dispatcher.count() != 1 {
		t.Fatalf("expected no second notification, got %d", dispatcher.count())
	}
}

func TestCompleteFailsWithoutPassportData(t *testing.T) {
	conn := openTestDB(t)
	svc := NewService(conn, voucher.NewIssuer(), nil)
	session := seedSession(t, conn, false)

	_, errComplete := svc.Complete(context.Background(), session.ID, PaymentData{TransactionID: "TXN1"})
	if !errors.Is(errComplete, ErrMissingPassportData) {
		t.Fatalf("expected ErrMissingPassportData, got %v", errComplete)
	}

	var row models.PurchaseSession
	if errFind := conn.Where("id = ?", session.ID).First(&row).Error; errFind != nil {
		t.Fatalf("reload session: %v", errFind)
	}
	if row.Status != models.SessionStatusPending {
		t.Fatalf("expected session to stay pending, got %q", row.Status)
	}

	var vouchers int64
	if errCount := conn.Model(&models.Voucher{}).Count(&vouchers).Error; errCount != nil {
		t.Fatalf("count vouchers: %v", errCount)
	}
	if vouchers != 0 {
		t.Fatalf("expected no voucher, got %d", vouchers)
	}
}

func TestCompleteUnknownSession(t *testing.T) {
	conn := openTestDB(t)
	svc := NewService(conn, voucher.NewIssuer(), nil)

	_, errComplete := svc.Complete(context.Background(), "no-such-session", PaymentData{TransactionID: "TXN1"})
	if !errors.Is(errComplete, ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound, got %v", errComplete)
	}
}

func TestCompleteRollsBackPassportWhenIssuanceFails(t *testing.T) {
	conn := openTestDB(t)

	// A generator that always returns a taken code exhausts issuance retries.
	stuck := voucher.NewIssuerWithGenerator(func(prefix string) string { return "ONLSTUCK" })
	if errSeed := conn.Create(&models.Voucher{
		Code:           "ONLSTUCK",
		PassportNumber: "P0",
		Amount:         50,
		PaymentMethod:  "card",
		ValidFrom:      time.Now().UTC(),
		ValidUntil:     time.Now().UTC().AddDate(0, 0, 1),
	}).Error; errSeed != nil {
		t.Fatalf("seed voucher: %v", errSeed)
	}

	svc := NewService(conn, stuck, nil)
	session := seedSession(t, conn, true)

	_, errComplete := svc.Complete(context.Background(), session.ID, PaymentData{TransactionID: "TXN1"})
	if !errors.Is(errComplete, voucher.ErrCodeCollision) {
		t.Fatalf("expected ErrCodeCollision, got %v", errComplete)
	}

	var passports int64
	if errCount := conn.Model(&models.Passport{}).Where("passport_number = ?", "P123").Count(&passports).Error; errCount != nil {
		t.Fatalf("count passports: %v", errCount)
	}
	if passports != 0 {
		t.Fatalf("expected passport upsert to roll back, found %d rows", passports)
	}

	var row models.PurchaseSession
	if errFind := conn.Where("id = ?", session.ID).First(&row).Error; errFind != nil {
		t.Fatalf("reload session: %v", errFind)
	}
	if row.Status != models.SessionStatusPending {
		t.Fatalf("expected session to stay pending for retry, got %q", row.Status)
	}
}

func TestCompleteConcurrentAttemptsProduceOneVoucher(t *testing.T) {
	dsn := "file:" + filepath.Join(t.TempDir(), "greenfees.db")
	conn, errOpen := dbpkg.Open(dsn)
	if errOpen != nil {
		t.Fatalf("open db: %v", errOpen)
	}
	if errMigrate := dbpkg.Migrate(conn); errMigrate != nil {
		t.Fatalf("migrate db: %v", errMigrate)
	}

	svc := NewService(conn, voucher.NewIssuer(), nil)
	session := seedSession(t, conn, true)

	const attempts = 4
	results := make([]*Result, attempts)
	errs := make([]error, attempts)
	var wg sync.WaitGroup
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(slot int) {
			defer wg.Done()
			results[slot], errs[slot] = svc.Complete(context.Background(), session.ID, PaymentData{TransactionID: "TXN1"})
		}(i)
	}
	wg.Wait()

	winners := 0
	for i := 0; i < attempts; i++ {
		if errs[i] == nil && results[i] != nil && !results[i].AlreadyCompleted {
			winners++
		}
	}
	if winners != 1 {
		t.Fatalf("expected exactly one attempt to do the work, got %d", winners)
	}

	var passports, vouchers int64
	if errCount := conn.Model(&models.Passport{}).Count(&passports).Error; errCount != nil {
		t.Fatalf("count passports: %v", errCount)
	}
	if errCount := conn.Model(&models.Voucher{}).Count(&vouchers).Error; errCount != nil {
		t.Fatalf("count vouchers: %v", errCount)
	}
	if passports != 1 || vouchers != 1 {
		t.Fatalf("expected exactly one passport and voucher, got %d/%d", passports, vouchers)
	}
}
