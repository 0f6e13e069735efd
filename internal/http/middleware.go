// Package http provides shared gin middleware for the portal API.
package http

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/niuginipay/greenfees/internal/security"
	log "github.com/sirupsen/logrus"
)

// RequestLogMiddleware logs one line per request with method, path,
// status and latency.
func RequestLogMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		entry := log.WithFields(log.Fields{
			"method":  c.Request.Method,
			"path":    c.Request.URL.Path,
			"status":  c.Writer.Status(),
			"latency": time.Since(start).String(),
		})
		if c.Writer.Status() >= http.StatusInternalServerError {
			entry.Error("http: request failed")
			return
		}
		entry.Info("http: request")
	}
}

// AdminAuthMiddleware validates the staff bearer token and stores the
// admin identity on the request context.
func AdminAuthMiddleware(jwtSecret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := strings.TrimSpace(c.GetHeader("Authorization"))
		if header == "" || !strings.HasPrefix(header, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing bearer token"})
			return
		}
		token := strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))

		claims, errParse := security.ParseAdminToken(jwtSecret, token)
		if errParse != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		c.Set("adminID", claims.AdminID)
		c.Set("adminUsername", claims.Username)
		c.Next()
	}
}
