package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// HealthHandler answers liveness probes.
type HealthHandler struct {
	db *gorm.DB
}

// NewHealthHandler wires a health handler.
func NewHealthHandler(db *gorm.DB) *HealthHandler {
	return &HealthHandler{db: db}
}

// Check reports service and database health.
func (h *HealthHandler) Check(c *gin.Context) {
	sqlDB, errDB := h.db.DB()
	if errDB != nil || sqlDB.PingContext(c.Request.Context()) != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
