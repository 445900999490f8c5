// Package signature verifies webhook authenticity headers.
package signature

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"strings"
)

// HexHMAC computes the hex-encoded HMAC-SHA256 of body under secret
func HexHMAC(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifyHMAC checks a "sha256="-prefixed hex HMAC-SHA256 signature
// against the raw body. Signatures without the prefix are rejected.
func VerifyHMAC(secret string, body []byte, provided string) bool {
	hexSig, ok := strings.CutPrefix(provided, "sha256=")
	if !ok {
		return false
	}
	sig, err := hex.DecodeString(hexSig)
	if err != nil {
		return false
	}
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hmac.Equal(sig, mac.Sum(nil))
}

// VerifyToken compares a plain shared token in constant time
func VerifyToken(secret, provided string) bool {
	if secret == "" || provided == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(secret), []byte(provided)) == 1
}
