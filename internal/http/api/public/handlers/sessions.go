package handlers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/niuginipay/greenfees/internal/models"
	"github.com/niuginipay/greenfees/internal/passport"
	"github.com/niuginipay/greenfees/internal/purchase"
	"github.com/niuginipay/greenfees/internal/settings"
)

// SessionHandler handles the public purchase session endpoints.
type SessionHandler struct {
	store      *purchase.Store
	sessionTTL time.Duration // Payment deadline for new sessions.
}

// NewSessionHandler wires a session handler with its store dependency. A
// non-positive ttl falls back to the store default.
func NewSessionHandler(store *purchase.Store, sessionTTL time.Duration) *SessionHandler {
	return &SessionHandler{store: store, sessionTTL: sessionTTL}
}

// createSessionRequest captures the payload for starting a purchase.
type createSessionRequest struct {
	CustomerEmail  string          `json:"customer_email"`  // Required contact email.
	CustomerPhone  string          `json:"customer_phone"`  // Optional contact phone.
	Quantity       int             `json:"quantity"`        // Voucher count, defaults to 1.
	Amount         float64         `json:"amount"`          // Defaults to the configured fee.
	Currency       string          `json:"currency"`        // Defaults to PGK.
	DeliveryMethod string          `json:"delivery_method"` // email or sms.
	Passport       *passport.Input `json:"passport"`        // Raw passport data.
	Metadata       map[string]any  `json:"metadata"`        // Source, client fingerprint.
}

// Create opens a pending purchase session with a payment deadline.
func (h *SessionHandler) Create(c *gin.Context) {
	var body createSessionRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	amount := body.Amount
	if amount <= 0 {
		amount = settings.VoucherDefaultAmount()
	}

	session, errCreate := h.store.CreateSession(c.Request.Context(), purchase.CreateSessionParams{
		CustomerEmail:  body.CustomerEmail,
		CustomerPhone:  body.CustomerPhone,
		Quantity:       body.Quantity,
		Amount:         amount,
		Currency:       body.Currency,
		DeliveryMethod: body.DeliveryMethod,
		Passport:       body.Passport,
		Metadata:       body.Metadata,
		TTL:            h.sessionTTL,
	})
	if errCreate != nil {
		if errors.Is(errCreate, purchase.ErrInvalidSessionData) {
			c.JSON(http.StatusBadRequest, gin.H{"error": errCreate.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "create session failed"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"id":         session.ID,
		"status":     session.Status,
		"amount":     session.Amount,
		"currency":   session.Currency,
		"quantity":   session.Quantity,
		"expires_at": session.ExpiresAt,
	})
}

// Status reports the externally visible status of a session.
func (h *SessionHandler) Status(c *gin.Context) {
	id := strings.TrimSpace(c.Param("id"))
	if id == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing session id"})
		return
	}

	status, session, errStatus := h.store.SessionStatus(c.Request.Context(), id)
	if errStatus != nil {
		if errors.Is(errStatus, purchase.ErrSessionNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
		return
	}

	out := gin.H{
		"id":         session.ID,
		"status":     status,
		"amount":     session.Amount,
		"currency":   session.Currency,
		"expires_at": session.ExpiresAt,
	}
	if status == models.SessionStatusCompleted {
		out["completed_at"] = session.CompletedAt
		out["gateway_ref"] = session.GatewayRef
	}
	c.JSON(http.StatusOK, out)
}
