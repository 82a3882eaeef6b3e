package webhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
)

// Signature computes the Shopier callback signature: base64 of the
// HMAC-SHA256 of random_nr concatenated with the platform order id, keyed by
// the merchant API secret.
func Signature(secret, randomNr, orderID string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(randomNr + orderID))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

// VerifySignature checks a callback signature in constant time.
func VerifySignature(secret, randomNr, orderID, signature string) bool {
	expected := Signature(secret, randomNr, orderID)
	return hmac.Equal([]byte(expected), []byte(signature))
}
