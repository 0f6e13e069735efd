package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/niuginipay/greenfees/internal/purchase"
	"github.com/niuginipay/greenfees/internal/security"
	"github.com/niuginipay/greenfees/internal/voucher"
	log "github.com/sirupsen/logrus"
)

// signatureHeader carries the gateway's HMAC over the raw request body.
const signatureHeader = "X-Gateway-Signature"

// WebhookHandler receives payment confirmation callbacks from the gateway.
type WebhookHandler struct {
	svc    *purchase.Service
	secret string
}

// NewWebhookHandler wires a webhook handler with the completion service and
// the shared gateway secret. An empty secret disables signature checks.
func NewWebhookHandler(svc *purchase.Service, secret string) *WebhookHandler {
	return &WebhookHandler{svc: svc, secret: secret}
}

// gatewayCallbackRequest captures the gateway's confirmation payload.
type gatewayCallbackRequest struct {
	SessionID     string         `json:"session_id"`     // Session being confirmed.
	TransactionID string         `json:"transaction_id"` // Gateway transaction reference.
	PaymentMethod string         `json:"payment_method"` // card, bank transfer.
	Metadata      map[string]any `json:"metadata"`       // Gateway extras, merged into the session.
}

// Confirm verifies the callback signature and runs the completion
// transaction. Redelivered callbacks for an already completed session return
// 200 with already_completed set so the gateway stops retrying.
func (h *WebhookHandler) Confirm(c *gin.Context) {
	body, errRead := c.GetRawData()
	if errRead != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "read body failed"})
		return
	}
	if h.secret != "" {
		signature := c.GetHeader(signatureHeader)
		if !security.VerifyWebhookSignature(h.secret, body, signature) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid signature"})
			return
		}
	}

	var req gatewayCallbackRequest
	if errDecode := json.Unmarshal(body, &req); errDecode != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if strings.TrimSpace(req.SessionID) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing session_id"})
		return
	}
	if strings.TrimSpace(req.TransactionID) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing transaction_id"})
		return
	}

	result, errComplete := h.svc.Complete(c.Request.Context(), req.SessionID, purchase.PaymentData{
		TransactionID: req.TransactionID,
		PaymentMethod: req.PaymentMethod,
		Metadata:      req.Metadata,
	})
	if errComplete != nil {
		switch {
		case errors.Is(errComplete, purchase.ErrSessionNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
		case errors.Is(errComplete, purchase.ErrMissingPassportData), errors.Is(errComplete, purchase.ErrInvalidSessionData):
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": errComplete.Error()})
		case errors.Is(errComplete, purchase.ErrInvalidSessionState):
			c.JSON(http.StatusConflict, gin.H{"error": "session is not payable"})
		default:
			log.WithError(errComplete).WithField("session_id", req.SessionID).Error("webhook: completion failed")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "completion failed"})
		}
		return
	}

	if result.AlreadyCompleted {
		c.JSON(http.StatusOK, gin.H{"already_completed": true})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"already_completed": false,
		"voucher": gin.H{
			"code":        result.Voucher.Code,
			"amount":      result.Voucher.Amount,
			"valid_from":  result.Voucher.ValidFrom,
			"valid_until": result.Voucher.ValidUntil,
			"state":       voucher.StateValid,
		},
		"passport": gin.H{
			"passport_number": result.Passport.PassportNumber,
			"full_name":       result.Passport.FullName,
		},
	})
}
