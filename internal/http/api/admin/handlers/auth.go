package handlers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/niuginipay/greenfees/internal/models"
	"github.com/niuginipay/greenfees/internal/security"
	"gorm.io/gorm"
)

// AuthHandler handles staff login.
type AuthHandler struct {
	db        *gorm.DB // Database handle for admin lookups.
	jwtSecret string
	tokenTTL  time.Duration
}

// NewAuthHandler wires an auth handler with its dependencies.
func NewAuthHandler(db *gorm.DB, jwtSecret string, tokenTTL time.Duration) *AuthHandler {
	return &AuthHandler{db: db, jwtSecret: jwtSecret, tokenTTL: tokenTTL}
}

// loginRequest captures staff credentials.
type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Login verifies credentials and returns a bearer token.
func (h *AuthHandler) Login(c *gin.Context) {
	var body loginRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	username := strings.TrimSpace(body.Username)
	if username == "" || body.Password == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing credentials"})
		return
	}

	var admin models.Admin
	errFind := h.db.WithContext(c.Request.Context()).
		Where("username = ?", username).
		First(&admin).Error
	if errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
		return
	}
	if !admin.Active {
		c.JSON(http.StatusForbidden, gin.H{"error": "account disabled"})
		return
	}
	if !security.CheckPassword(admin.Password, body.Password) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
		return
	}

	token, errToken := security.GenerateAdminToken(h.jwtSecret, admin.ID, admin.Username, h.tokenTTL)
	if errToken != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "sign token failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"token":      token,
		"expires_in": int64(h.tokenTTL.Seconds()),
		"username":   admin.Username,
	})
}
