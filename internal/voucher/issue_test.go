package voucher

import (
	"errors"
	"fmt"
	"testing"
	"time"

	dbpkg "github.com/niuginipay/greenfees/internal/db"
	"github.com/niuginipay/greenfees/internal/models"
	"gorm.io/gorm"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	conn, errOpen := dbpkg.Open(":memory:")
	if errOpen != nil {
		t.Fatalf("open db: %v", errOpen)
	}
	if errMigrate := dbpkg.Migrate(conn); errMigrate != nil {
		t.Fatalf("migrate db: %v", errMigrate)
	}
	return conn
}

func TestIssueCreatesVoucherWithWindow(t *testing.T) {
	conn := openTestDB(t)
	issuer := NewIssuer()

	var issued *models.Voucher
	errTx := conn.Transaction(func(tx *gorm.DB) error {
		var errIssue error
		issued, errIssue = issuer.Issue(tx, IssueParams{
			PassportNumber: "P123",
			Amount:         50,
			PaymentMethod:  "card",
			SessionID:      "S1",
			CustomerName:   "Doe, Jane",
			CustomerEmail:  "jane@example.com",
			ValidityDays:   30,
		})
		return errIssue
	})
	if errTx != nil {
		t.Fatalf("issue: %v", errTx)
	}

	if issued.SessionID == nil || *issued.SessionID != "S1" {
		t.Fatalf("expected session link S1, got %v", issued.SessionID)
	}
	wantUntil := issued.ValidFrom.AddDate(0, 0, 30)
	if !issued.ValidUntil.Equal(wantUntil) {
		t.Fatalf("expected valid_until %v, got %v", wantUntil, issued.ValidUntil)
	}
	if !IsValid(issued, time.Now().UTC()) {
		t.Fatalf("expected freshly issued voucher to be valid")
	}
}

func TestIssueRetriesOnCollision(t *testing.T) {
	conn := openTestDB(t)

	calls := 0
	issuer := &Issuer{genCode: func(prefix string) string {
		calls++
		if calls == 1 {
			return "ONLDUP1"
		}
		return fmt.Sprintf("ONLFRESH%d", calls)
	}}

	if errSeed := conn.Create(&models.Voucher{
		Code:           "ONLDUP1",
		PassportNumber: "P0",
		Amount:         50,
		PaymentMethod:  "card",
		ValidFrom:      time.Now().UTC(),
		ValidUntil:     time.Now().UTC().AddDate(0, 0, 1),
	}).Error; errSeed != nil {
		t.Fatalf("seed voucher: %v", errSeed)
	}

	var issued *models.Voucher
	errTx := conn.Transaction(func(tx *gorm.DB) error {
		var errIssue error
		issued, errIssue = issuer.Issue(tx, IssueParams{PassportNumber: "P1", Amount: 50, PaymentMethod: "card", ValidityDays: 30})
		return errIssue
	})
	if errTx != nil {
		t.Fatalf("issue after collision: %v", errTx)
	}
	if issued.Code == "ONLDUP1" {
		t.Fatalf("expected regenerated code, got the colliding one")
	}
	if calls < 2 {
		t.Fatalf("expected generator to be called again after collision, calls=%d", calls)
	}
}

func TestIssueExhaustsRetries(t *testing.T) {
	conn := openTestDB(t)

	issuer := &Issuer{genCode: func(prefix string) string { return "ONLSTUCK" }}

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

	errTx := conn.Transaction(func(tx *gorm.DB) error {
		_, errIssue := issuer.Issue(tx, IssueParams{PassportNumber: "P1", Amount: 50, PaymentMethod: "card", ValidityDays: 30})
		return errIssue
	})
	if !errors.Is(errTx, ErrCodeCollision) {
		t.Fatalf("expected ErrCodeCollision, got %v", errTx)
	}

	var count int64
	if errCount := conn.Model(&models.Voucher{}).Where("passport_number = ?", "P1").Count(&count).Error; errCount != nil {
		t.Fatalf("count: %v", errCount)
	}
	if count != 0 {
		t.Fatalf("expected no voucher for P1 after exhausted retries, got %d", count)
	}
}
