package gateway

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// Sign returns hex(HMAC-SHA256(secret, payload)).
func Sign(payload []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifySignature recomputes the HMAC and compares in constant time.
func VerifySignature(payload []byte, signature, secret string) bool {
	if signature == "" || secret == "" {
		return false
	}
	expected := Sign(payload, secret)
	return hmac.Equal([]byte(expected), []byte(strings.ToLower(strings.TrimSpace(signature))))
}

// CallbackPayload: payload checkout callback, "order_id|payment_id".
func CallbackPayload(orderID, paymentID string) []byte {
	return []byte(orderID + "|" + paymentID)
}

// VerifyCallback: callback client, pakai API key secret.
func VerifyCallback(orderID, paymentID, signature, keySecret string) bool {
	return VerifySignature(CallbackPayload(orderID, paymentID), signature, keySecret)
}

// VerifyWebhook: raw body webhook, pakai webhook secret (beda dari key secret).
func VerifyWebhook(body []byte, signature, webhookSecret string) bool {
	return VerifySignature(body, signature, webhookSecret)
}
