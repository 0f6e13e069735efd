// Package passport normalizes traveller passport data and maintains the
// one-row-per-passport-number invariant during purchase completion.
package passport

import (
	"strings"
	"time"

	"github.com/niuginipay/greenfees/internal/models"
)

// DefaultNationality is applied when the traveller leaves nationality blank.
const DefaultNationality = "Papua New Guinea"

// defaultExpiryYears pads missing passport expiry dates.
const defaultExpiryYears = 10

// dateLayout is the wire format for passport dates.
const dateLayout = "2006-01-02"

// Input is the raw passport data captured when a purchase session starts.
type Input struct {
	PassportNumber string `json:"passport_number"`
	Surname        string `json:"surname"`
	GivenName      string `json:"given_name"`
	DateOfBirth    string `json:"date_of_birth,omitempty"`
	Nationality    string `json:"nationality,omitempty"`
	ExpiryDate     string `json:"expiry_date,omitempty"`
}

// Empty reports whether no usable passport data was captured.
func (in Input) Empty() bool {
	return strings.TrimSpace(in.PassportNumber) == ""
}

// Normalize builds a passport record from raw input: the number is
// uppercased, the full name is "Surname, GivenName" when both parts are
// present, and nationality and expiry fall back to defaults. Unparseable
// dates are treated as absent.
func Normalize(in Input, now time.Time) models.Passport {
	record := models.Passport{
		PassportNumber: strings.ToUpper(strings.TrimSpace(in.PassportNumber)),
		FullName:       ComposeFullName(in.Surname, in.GivenName),
		Nationality:    strings.TrimSpace(in.Nationality),
		ExpiryDate:     now.AddDate(defaultExpiryYears, 0, 0),
	}
	if record.Nationality == "" {
		record.Nationality = DefaultNationality
	}
	if dob, ok := parseDate(in.DateOfBirth); ok {
		record.DateOfBirth = &dob
	}
	if expiry, ok := parseDate(in.ExpiryDate); ok {
		record.ExpiryDate = expiry
	}
	return record
}

// ComposeFullName joins surname and given name, tolerating either part
// being absent.
func ComposeFullName(surname, givenName string) string {
	surname = strings.TrimSpace(surname)
	givenName = strings.TrimSpace(givenName)
	switch {
	case surname != "" && givenName != "":
		return surname + ", " + givenName
	case surname != "":
		return surname
	default:
		return givenName
	}
}

func parseDate(value string) (time.Time, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, false
	}
	parsed, errParse := time.Parse(dateLayout, value)
	if errParse != nil {
		return time.Time{}, false
	}
	return parsed.UTC(), true
}
