package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	dbutil "github.com/niuginipay/greenfees/internal/db"
	"github.com/niuginipay/greenfees/internal/models"
	"gorm.io/gorm"
)

// SessionAdminHandler handles staff views over purchase sessions.
type SessionAdminHandler struct {
	db *gorm.DB // Database handle for session queries.
}

// NewSessionAdminHandler wires a session admin handler.
func NewSessionAdminHandler(db *gorm.DB) *SessionAdminHandler {
	return &SessionAdminHandler{db: db}
}

// List returns purchase sessions filtered by status and customer email,
// newest first, paginated.
func (h *SessionAdminHandler) List(c *gin.Context) {
	var (
		statusQ = strings.TrimSpace(c.Query("status"))
		emailQ  = strings.TrimSpace(c.Query("email"))
	)
	page, pageSize := parsePagination(c)

	q := h.db.WithContext(c.Request.Context()).Model(&models.PurchaseSession{})
	if statusQ != "" {
		q = q.Where("status = ?", statusQ)
	}
	if emailQ != "" {
		pattern := dbutil.NormalizeLikePattern(h.db, "%"+emailQ+"%")
		q = q.Where(dbutil.CaseInsensitiveLikeExpr(h.db, "customer_email"), pattern)
	}

	var total int64
	if errCount := q.Count(&total).Error; errCount != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "count failed"})
		return
	}

	var rows []models.PurchaseSession
	if errFind := q.Order("created_at DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&rows).Error; errFind != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list sessions failed"})
		return
	}

	out := make([]gin.H, 0, len(rows))
	for _, row := range rows {
		out = append(out, gin.H{
			"id":             row.ID,
			"customer_email": row.CustomerEmail,
			"quantity":       row.Quantity,
			"amount":         row.Amount,
			"currency":       row.Currency,
			"status":         row.Status,
			"gateway_ref":    row.GatewayRef,
			"created_at":     row.CreatedAt,
			"expires_at":     row.ExpiresAt,
			"completed_at":   row.CompletedAt,
		})
	}
	c.JSON(http.StatusOK, gin.H{
		"sessions":  out,
		"total":     total,
		"page":      page,
		"page_size": pageSize,
	})
}

// parsePagination reads page/page_size query params with sane bounds.
func parsePagination(c *gin.Context) (int, int) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	if page < 1 {
		page = 1
	}
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	if pageSize < 1 {
		pageSize = 20
	}
	if pageSize > 100 {
		pageSize = 100
	}
	return page, pageSize
}
