package db

import (
	"fmt"

	"github.com/niuginipay/greenfees/internal/models"
	"gorm.io/gorm"
)

// Migrate creates or updates the schema for all persisted entities. The
// passport upsert and voucher issuance rely on the unique indexes declared
// on the models to surface duplicate inserts; dropping one breaks both.
func Migrate(conn *gorm.DB) error {
	if conn == nil {
		return fmt.Errorf("db: nil connection")
	}
	return conn.AutoMigrate(
		&models.PurchaseSession{},
		&models.Passport{},
		&models.Voucher{},
		&models.Setting{},
		&models.Admin{},
	)
}
