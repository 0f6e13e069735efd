package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/niuginipay/greenfees/internal/models"
	"github.com/niuginipay/greenfees/internal/settings"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SettingsHandler exposes the DB-backed portal settings.
type SettingsHandler struct {
	db *gorm.DB // Database handle for setting rows.
}

// NewSettingsHandler wires a settings handler.
func NewSettingsHandler(db *gorm.DB) *SettingsHandler {
	return &SettingsHandler{db: db}
}

// Get returns the effective portal settings from the in-memory snapshot.
func (h *SettingsHandler) Get(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"voucher_validity_days":  settings.VoucherValidityDays(),
		"default_voucher_amount": settings.VoucherDefaultAmount(),
		"site_name":              settings.SiteName(),
		"updated_at":             settings.DBConfigUpdatedAt(),
	})
}

// updateSettingsRequest captures optional setting changes.
type updateSettingsRequest struct {
	VoucherValidityDays  *int     `json:"voucher_validity_days"`  // Validity window in days.
	DefaultVoucherAmount *float64 `json:"default_voucher_amount"` // Default fee in PGK.
	SiteName             *string  `json:"site_name"`              // Portal display name.
}

// Update persists changed settings and refreshes the in-memory snapshot so
// new values apply to subsequent issuances immediately.
func (h *SettingsHandler) Update(c *gin.Context) {
	var body updateSettingsRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}

	rows := make([]models.Setting, 0, 3)
	if body.VoucherValidityDays != nil {
		if *body.VoucherValidityDays <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "voucher_validity_days must be positive"})
			return
		}
		rows = append(rows, settingRow(settings.VoucherValidityDaysKey, *body.VoucherValidityDays))
	}
	if body.DefaultVoucherAmount != nil {
		if *body.DefaultVoucherAmount <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "default_voucher_amount must be positive"})
			return
		}
		rows = append(rows, settingRow(settings.DefaultVoucherAmountKey, *body.DefaultVoucherAmount))
	}
	if body.SiteName != nil {
		rows = append(rows, settingRow(settings.SiteNameKey, *body.SiteName))
	}
	if len(rows) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "no fields to update"})
		return
	}

	errUpsert := h.db.WithContext(c.Request.Context()).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "key"}},
			DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
		}).
		Create(&rows).Error
	if errUpsert != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "save settings failed"})
		return
	}

	if errRefresh := settings.RefreshDBConfigSnapshot(c.Request.Context(), h.db); errRefresh != nil {
		log.WithError(errRefresh).Warn("settings: snapshot refresh failed")
	}
	h.Get(c)
}

// settingRow builds a setting row with a JSON-encoded value.
func settingRow(key string, value any) models.Setting {
	raw, _ := json.Marshal(value)
	return models.Setting{Key: key, Value: raw, UpdatedAt: time.Now().UTC()}
}
