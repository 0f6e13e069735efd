// Package admin wires the staff-facing API routes.
package admin

import (
	"github.com/gin-gonic/gin"
	"github.com/niuginipay/greenfees/internal/config"
	apihttp "github.com/niuginipay/greenfees/internal/http"
	"github.com/niuginipay/greenfees/internal/http/api/admin/handlers"
	"github.com/niuginipay/greenfees/internal/voucher"
	"gorm.io/gorm"
)

// RegisterAdminRoutes registers the staff login, session, voucher and
// settings routes. All routes except login require a bearer token.
func RegisterAdminRoutes(r *gin.Engine, db *gorm.DB, issuer *voucher.Issuer, adminCfg config.AdminConfig) {
	if r == nil || db == nil {
		return
	}

	group := r.Group("/v0/admin")

	authHandler := handlers.NewAuthHandler(db, adminCfg.JWTSecret, adminCfg.TokenTTL)
	group.POST("/login", authHandler.Login)

	healthHandler := handlers.NewHealthHandler(db)
	group.GET("/health", healthHandler.Check)

	authed := group.Group("")
	authed.Use(apihttp.AdminAuthMiddleware(adminCfg.JWTSecret))

	sessionHandler := handlers.NewSessionAdminHandler(db)
	authed.GET("/sessions", sessionHandler.List)

	voucherHandler := handlers.NewVoucherAdminHandler(db, issuer)
	authed.GET("/vouchers", voucherHandler.List)
	authed.POST("/vouchers", voucherHandler.CounterIssue)
	authed.POST("/vouchers/:code/redeem", voucherHandler.Redeem)

	settingsHandler := handlers.NewSettingsHandler(db)
	authed.GET("/settings", settingsHandler.Get)
	authed.PUT("/settings", settingsHandler.Update)
}
