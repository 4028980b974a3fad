package payment

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
)

// SignPayment returns the checkout signature the gateway sends after a
// successful payment: hex(HMAC-SHA256(secret, orderID + "|" + paymentID)).
func SignPayment(secret, orderID, paymentID string) string {
	return sign(secret, []byte(orderID+"|"+paymentID))
}

// VerifyPayment checks a checkout signature in constant time.
func VerifyPayment(secret, orderID, paymentID, signature string) bool {
	if secret == "" || signature == "" {
		return false
	}
	return equal(SignPayment(secret, orderID, paymentID), signature)
}

// SignWebhook returns hex(HMAC-SHA256(secret, body)).
func SignWebhook(secret string, body []byte) string {
	return sign(secret, body)
}

// VerifyWebhook checks a webhook signature over the raw request body.
func VerifyWebhook(secret string, body []byte, signature string) bool {
	if secret == "" || signature == "" {
		return false
	}
	return equal(SignWebhook(secret, body), signature)
}

func sign(secret string, msg []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(msg)
	return hex.EncodeToString(mac.Sum(nil))
}

func equal(expected, got string) bool {
	return hmac.Equal([]byte(expected), []byte(got))
}
