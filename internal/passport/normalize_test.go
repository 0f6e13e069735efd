package passport

import (
	"testing"
	"time"
)

func TestNormalizeComposesFullName(t *testing.T) {
	now := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	record := Normalize(Input{PassportNumber: "p123", Surname: "Doe", GivenName: "Jane"}, now)
	if record.FullName != "Doe, Jane" {
		t.Fatalf("expected full name 'Doe, Jane', got %q", record.FullName)
	}
	if record.PassportNumber != "P123" {
		t.Fatalf("expected uppercased number P123, got %q", record.PassportNumber)
	}

	onlySurname := Normalize(Input{PassportNumber: "P1", Surname: "Doe"}, now)
	if onlySurname.FullName != "Doe" {
		t.Fatalf("expected 'Doe', got %q", onlySurname.FullName)
	}
	onlyGiven := Normalize(Input{PassportNumber: "P1", GivenName: "Jane"}, now)
	if onlyGiven.FullName != "Jane" {
		t.Fatalf("expected 'Jane', got %q", onlyGiven.FullName)
	}
}

func TestNormalizeAppliesDefaults(t *testing.T) {
	now := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	record := Normalize(Input{PassportNumber: "P9"}, now)

	if record.Nationality != DefaultNationality {
		t.Fatalf("expected default nationality, got %q", record.Nationality)
	}
	wantExpiry := now.AddDate(10, 0, 0)
	if !record.ExpiryDate.Equal(wantExpiry) {
		t.Fatalf("expected expiry %v, got %v", wantExpiry, record.ExpiryDate)
	}
	if record.DateOfBirth != nil {
		t.Fatalf("expected nil date of birth")
	}
}

func TestNormalizeParsesDates(t *testing.T) {
	now := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	record := Normalize(Input{
		PassportNumber: "P9",
		DateOfBirth:    "1990-07-14",
		ExpiryDate:     "2030-01-02",
		Nationality:    "Australia",
	}, now)

	if record.DateOfBirth == nil || record.DateOfBirth.Format("2006-01-02") != "1990-07-14" {
		t.Fatalf("unexpected date of birth: %v", record.DateOfBirth)
	}
	if record.ExpiryDate.Format("2006-01-02") != "2030-01-02" {
		t.Fatalf("unexpected expiry date: %v", record.ExpiryDate)
	}
	if record.Nationality != "Australia" {
		t.Fatalf("unexpected nationality: %q", record.Nationality)
	}

	bad := Normalize(Input{PassportNumber: "P9", DateOfBirth: "14/07/1990"}, now)
	if bad.DateOfBirth != nil {
		t.Fatalf("expected unparseable date of birth to be dropped")
	}
}

func TestInputEmpty(t *testing.T) {
	if !(Input{}).Empty() {
		t.Fatalf("expected zero input to be empty")
	}
	if !(Input{PassportNumber: "   "}).Empty() {
		t.Fatalf("expected blank number to be empty")
	}
	if (Input{PassportNumber: "P1"}).Empty() {
		t.Fatalf("expected populated input to be non-empty")
	}
}
