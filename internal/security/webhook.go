package security

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// SignWebhookBody computes the hex HMAC-SHA256 signature the payment
// gateway is expected to send alongside a callback body.
func SignWebhookBody(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifyWebhookSignature checks a gateway callback signature in constant
// time. The signature may carry an optional "sha256=" prefix.
func VerifyWebhookSignature(secret string, body []byte, signature string) bool {
	signature = strings.TrimSpace(signature)
	signature = strings.TrimPrefix(signature, "sha256=")
	if signature == "" {
		return false
	}
	expected := SignWebhookBody(secret, body)
	return hmac.Equal([]byte(expected), []byte(strings.ToLower(signature)))
}
