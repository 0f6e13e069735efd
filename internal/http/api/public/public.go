// Package public wires the customer-facing API routes.
package public

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/niuginipay/greenfees/internal/http/api/public/handlers"
	"github.com/niuginipay/greenfees/internal/purchase"
	"gorm.io/gorm"
)

// RegisterPublicRoutes registers the customer-facing session, payment and
// voucher lookup routes.
func RegisterPublicRoutes(r *gin.Engine, db *gorm.DB, store *purchase.Store, svc *purchase.Service, webhookSecret string, sessionTTL time.Duration) {
	if r == nil || db == nil {
		return
	}

	api := r.Group("/api")

	sessionHandler := handlers.NewSessionHandler(store, sessionTTL)
	api.POST("/sessions", sessionHandler.Create)
	api.GET("/sessions/:id/status", sessionHandler.Status)

	webhookHandler := handlers.NewWebhookHandler(svc, webhookSecret)
	api.POST("/payments/webhook", webhookHandler.Confirm)

	voucherHandler := handlers.NewVoucherHandler(db)
	api.GET("/vouchers/:code", voucherHandler.Check)
}
