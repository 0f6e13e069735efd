package handlers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/niuginipay/greenfees/internal/models"
	"github.com/niuginipay/greenfees/internal/voucher"
	"gorm.io/gorm"
)

// VoucherHandler answers public voucher validity lookups.
type VoucherHandler struct {
	db *gorm.DB // Database handle for voucher queries.
}

// NewVoucherHandler wires a voucher handler with its database dependency.
func NewVoucherHandler(db *gorm.DB) *VoucherHandler {
	return &VoucherHandler{db: db}
}

// Check reports the current state of a voucher code.
func (h *VoucherHandler) Check(c *gin.Context) {
	code := strings.ToUpper(strings.TrimSpace(c.Param("code")))
	if code == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing code"})
		return
	}

	var row models.Voucher
	if errFind := h.db.WithContext(c.Request.Context()).
		Where("code = ?", code).
		First(&row).Error; errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "voucher not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
		return
	}

	now := time.Now().UTC()
	c.JSON(http.StatusOK, gin.H{
		"code":        row.Code,
		"state":       voucher.State(&row, now),
		"valid":       voucher.IsValid(&row, now),
		"valid_from":  row.ValidFrom,
		"valid_until": row.ValidUntil,
		"used_at":     row.UsedAt,
	})
}
