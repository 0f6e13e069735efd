package handlers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	dbutil "github.com/niuginipay/greenfees/internal/db"
	"github.com/niuginipay/greenfees/internal/models"
	"github.com/niuginipay/greenfees/internal/passport"
	"github.com/niuginipay/greenfees/internal/voucher"
	"gorm.io/gorm"
)

// VoucherAdminHandler handles staff voucher operations: listing, counter
// issuance and checkpoint redemption.
type VoucherAdminHandler struct {
	db     *gorm.DB // Database handle for voucher queries.
	issuer *voucher.Issuer
}

// NewVoucherAdminHandler wires a voucher admin handler.
func NewVoucherAdminHandler(db *gorm.DB, issuer *voucher.Issuer) *VoucherAdminHandler {
	if issuer == nil {
		issuer = voucher.NewIssuer()
	}
	return &VoucherAdminHandler{db: db, issuer: issuer}
}

// List returns vouchers filtered by code or passport number, newest first,
// paginated.
func (h *VoucherAdminHandler) List(c *gin.Context) {
	var (
		codeQ     = strings.TrimSpace(c.Query("code"))
		passportQ = strings.TrimSpace(c.Query("passport_number"))
		usedQ     = strings.TrimSpace(c.Query("used"))
	)
	page, pageSize := parsePagination(c)

	q := h.db.WithContext(c.Request.Context()).Model(&models.Voucher{})
	if codeQ != "" {
		pattern := dbutil.NormalizeLikePattern(h.db, "%"+codeQ+"%")
		q = q.Where(dbutil.CaseInsensitiveLikeExpr(h.db, "code"), pattern)
	}
	if passportQ != "" {
		pattern := dbutil.NormalizeLikePattern(h.db, "%"+passportQ+"%")
		q = q.Where(dbutil.CaseInsensitiveLikeExpr(h.db, "passport_number"), pattern)
	}
	if usedQ == "true" || usedQ == "1" {
		q = q.Where("used_at IS NOT NULL")
	} else if usedQ == "false" || usedQ == "0" {
		q = q.Where("used_at IS NULL")
	}

	var total int64
	if errCount := q.Count(&total).Error; errCount != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "count failed"})
		return
	}

	var rows []models.Voucher
	if errFind := q.Order("created_at DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&rows).Error; errFind != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list vouchers failed"})
		return
	}

	now := time.Now().UTC()
	out := make([]gin.H, 0, len(rows))
	for i := range rows {
		out = append(out, h.formatVoucher(&rows[i], now))
	}
	c.JSON(http.StatusOK, gin.H{
		"vouchers":  out,
		"total":     total,
		"page":      page,
		"page_size": pageSize,
	})
}

// counterIssueRequest captures an in-person counter sale.
type counterIssueRequest struct {
	Passport        passport.Input `json:"passport"`         // Traveller passport details.
	Amount          float64        `json:"amount"`           // Fee charged.
	PaymentMethod   string         `json:"payment_method"`   // cash, card.
	CollectedAmount *float64       `json:"collected_amount"` // Cash handed over.
	ReturnedAmount  *float64       `json:"returned_amount"`  // Change returned.
	Corporate       bool           `json:"corporate"`        // Corporate bulk sale channel.
}

// CounterIssue mints a voucher for an in-person sale. The passport upsert
// and voucher insert run in one transaction, mirroring the online flow
// without a purchase session.
func (h *VoucherAdminHandler) CounterIssue(c *gin.Context) {
	var body counterIssueRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if body.Amount <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "amount must be positive"})
		return
	}
	if strings.TrimSpace(body.Passport.PassportNumber) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing passport number"})
		return
	}
	method := strings.TrimSpace(body.PaymentMethod)
	if method == "" {
		method = "cash"
	}
	prefix := voucher.PrefixCounter
	if body.Corporate {
		prefix = voucher.PrefixCorporate
	}

	var issued *models.Voucher
	errTx := h.db.WithContext(c.Request.Context()).Transaction(func(tx *gorm.DB) error {
		record, errUpsert := passport.Upsert(tx, body.Passport)
		if errUpsert != nil {
			return errUpsert
		}
		minted, errIssue := h.issuer.Issue(tx, voucher.IssueParams{
			PassportNumber: record.PassportNumber,
			Amount:         body.Amount,
			PaymentMethod:  method,
			CustomerName:   record.FullName,
			Prefix:         prefix,
		})
		if errIssue != nil {
			return errIssue
		}
		if body.CollectedAmount != nil || body.ReturnedAmount != nil {
			updates := map[string]any{}
			if body.CollectedAmount != nil {
				updates["collected_amount"] = *body.CollectedAmount
				minted.CollectedAmount = body.CollectedAmount
			}
			if body.ReturnedAmount != nil {
				updates["returned_amount"] = *body.ReturnedAmount
				minted.ReturnedAmount = body.ReturnedAmount
			}
			if errUpdate := tx.Model(&models.Voucher{}).
				Where("id = ?", minted.ID).
				Updates(updates).Error; errUpdate != nil {
				return errUpdate
			}
		}
		issued = minted
		return nil
	})
	if errTx != nil {
		if errors.Is(errTx, passport.ErrEmptyPassportNumber) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "missing passport number"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "issue voucher failed"})
		return
	}
	c.JSON(http.StatusCreated, h.formatVoucher(issued, time.Now().UTC()))
}

// redeemRequest captures optional cash-handling fields for redemption.
type redeemRequest struct {
	CollectedAmount *float64 `json:"collected_amount"` // Cash handed over at the counter.
	ReturnedAmount  *float64 `json:"returned_amount"`  // Change returned at the counter.
}

// Redeem marks a voucher used at a checkpoint scan. UsedAt is set exactly
// once; scanning a used or out-of-window voucher reports a conflict with
// the voucher's current state.
func (h *VoucherAdminHandler) Redeem(c *gin.Context) {
	code := strings.ToUpper(strings.TrimSpace(c.Param("code")))
	if code == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing code"})
		return
	}
	var body redeemRequest
	if c.Request.Body != nil && c.Request.ContentLength > 0 {
		if errBind := c.ShouldBindJSON(&body); errBind != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
			return
		}
	}

	var redeemed *models.Voucher
	var state string
	errTx := h.db.WithContext(c.Request.Context()).Transaction(func(tx *gorm.DB) error {
		var row models.Voucher
		if errFind := dbutil.LockForUpdate(tx).
			Where("code = ?", code).
			First(&row).Error; errFind != nil {
			return errFind
		}

		now := time.Now().UTC()
		state = voucher.State(&row, now)
		if state != voucher.StateValid {
			redeemed = &row
			return errVoucherNotRedeemable
		}

		updates := map[string]any{"used_at": now}
		if body.CollectedAmount != nil {
			updates["collected_amount"] = *body.CollectedAmount
		}
		if body.ReturnedAmount != nil {
			updates["returned_amount"] = *body.ReturnedAmount
		}
		// Conditioned on used_at still being clear so concurrent scans
		// cannot both win.
		res := tx.Model(&models.Voucher{}).
			Where("id = ? AND used_at IS NULL", row.ID).
			Updates(updates)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			state = voucher.StateUsed
			redeemed = &row
			return errVoucherNotRedeemable
		}

		row.UsedAt = &now
		row.CollectedAmount = body.CollectedAmount
		row.ReturnedAmount = body.ReturnedAmount
		redeemed = &row
		return nil
	})
	if errTx != nil {
		switch {
		case errors.Is(errTx, gorm.ErrRecordNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "voucher not found"})
		case errors.Is(errTx, errVoucherNotRedeemable):
			c.JSON(http.StatusConflict, gin.H{"error": "voucher not redeemable", "state": state})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "redeem failed"})
		}
		return
	}
	c.JSON(http.StatusOK, h.formatVoucher(redeemed, time.Now().UTC()))
}

// errVoucherNotRedeemable aborts the redeem transaction when the voucher is
// used or outside its validity window.
var errVoucherNotRedeemable = errors.New("voucher not redeemable")

// formatVoucher maps a voucher model into a response payload.
func (h *VoucherAdminHandler) formatVoucher(row *models.Voucher, now time.Time) gin.H {
	return gin.H{
		"id":               row.ID,
		"code":             row.Code,
		"passport_number":  row.PassportNumber,
		"amount":           row.Amount,
		"payment_method":   row.PaymentMethod,
		"collected_amount": row.CollectedAmount,
		"returned_amount":  row.ReturnedAmount,
		"valid_from":       row.ValidFrom,
		"valid_until":      row.ValidUntil,
		"customer_name":    row.CustomerName,
		"customer_email":   row.CustomerEmail,
		"session_id":       row.SessionID,
		"state":            voucher.State(row, now),
		"used_at":          row.UsedAt,
		"created_at":       row.CreatedAt,
	}
}
