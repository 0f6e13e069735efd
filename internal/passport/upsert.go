package passport

import (
	"errors"
	"time"

	"github.com/niuginipay/greenfees/internal/models"
	"gorm.io/gorm"
)

// ErrEmptyPassportNumber indicates upsert input without a passport number.
var ErrEmptyPassportNumber = errors.New("passport: empty passport number")

// upsertSavePoint scopes the insert attempt so a duplicate-key violation
// does not poison the enclosing transaction.
const upsertSavePoint = "sp_passport_upsert"

// Finder looks up a passport row by its normalized number inside the
// caller's transaction.
type Finder func(tx *gorm.DB, passportNumber string) (*models.Passport, error)

// Upsert creates or refreshes the passport row for the input's passport
// number inside the caller's transaction. A unique-constraint violation on
// insert means a concurrent session created the row first; the loser falls
// back to reading and updating that row instead of failing.
func Upsert(tx *gorm.DB, in Input) (*models.Passport, error) {
	return UpsertWithFinder(tx, in, findByNumber)
}

// UpsertWithFinder runs the upsert with a custom row lookup.
func UpsertWithFinder(tx *gorm.DB, in Input, find Finder) (*models.Passport, error) {
	if find == nil {
		find = findByNumber
	}
	record := Normalize(in, time.Now().UTC())
	if record.PassportNumber == "" {
		return nil, ErrEmptyPassportNumber
	}

	existing, errFind := find(tx, record.PassportNumber)
	if errFind == nil {
		return refresh(tx, existing, record)
	}
	if !errors.Is(errFind, gorm.ErrRecordNotFound) {
		return nil, errFind
	}

	if errSave := tx.SavePoint(upsertSavePoint).Error; errSave != nil {
		return nil, errSave
	}
	errCreate := tx.Create(&record).Error
	if errCreate == nil {
		return &record, nil
	}
	if !errors.Is(errCreate, gorm.ErrDuplicatedKey) {
		return nil, errCreate
	}
	if errRollback := tx.RollbackTo(upsertSavePoint).Error; errRollback != nil {
		return nil, errRollback
	}
	winner, errRetry := find(tx, record.PassportNumber)
	if errRetry != nil {
		return nil, errRetry
	}
	return refresh(tx, winner, record)
}

// findByNumber reads the passport row for a normalized number.
func findByNumber(tx *gorm.DB, passportNumber string) (*models.Passport, error) {
	var existing models.Passport
	if errFind := tx.Where("passport_number = ?", passportNumber).First(&existing).Error; errFind != nil {
		return nil, errFind
	}
	return &existing, nil
}

// refresh applies the latest name, date of birth and nationality to an
// existing passport row. The stored expiry date is kept unless the input
// carried an explicit one.
func refresh(tx *gorm.DB, existing *models.Passport, latest models.Passport) (*models.Passport, error) {
	updates := map[string]any{
		"full_name":   latest.FullName,
		"nationality": latest.Nationality,
	}
	if latest.DateOfBirth != nil {
		updates["date_of_birth"] = *latest.DateOfBirth
	}
	if errUpdate := tx.Model(existing).Updates(updates).Error; errUpdate != nil {
		return nil, errUpdate
	}
	existing.FullName = latest.FullName
	existing.Nationality = latest.Nationality
	if latest.DateOfBirth != nil {
		existing.DateOfBirth = latest.DateOfBirth
	}
	return existing, nil
}
