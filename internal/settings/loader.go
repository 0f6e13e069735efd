package settings

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/niuginipay/greenfees/internal/models"
	"gorm.io/gorm"
)

// RefreshDBConfigSnapshot reloads the portal settings table and swaps the
// result into the in-memory snapshot. Issuance and the public handlers read
// the snapshot, never the table, so this must run at startup and after every
// settings write; until it does the accessors serve their defaults.
func RefreshDBConfigSnapshot(ctx context.Context, db *gorm.DB) error {
	if db == nil {
		return errors.New("settings: nil db")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	var rows []models.Setting
	if errFind := db.WithContext(ctx).Find(&rows).Error; errFind != nil {
		return errFind
	}

	values := make(map[string]json.RawMessage, len(rows))
	var latest time.Time
	for _, row := range rows {
		key := strings.TrimSpace(row.Key)
		if key == "" {
			continue
		}
		values[key] = row.Value
		if updatedAt := row.UpdatedAt.UTC(); updatedAt.After(latest) {
			latest = updatedAt
		}
	}

	StoreDBConfig(latest, values)
	return nil
}
