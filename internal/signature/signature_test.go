package signature

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestVerifyHMAC(t *testing.T) {
	secret := "webhook-secret"
	body := []byte(`{"action":"opened"}`)
	sig := HexHMAC(secret, body)

	tests := []struct {
		name     string
		provided string
		expected bool
	}{
		{"sha256 prefix", "sha256=" + sig, true},
		{"bare hex rejected", sig, false},
		{"uppercase prefix", "SHA256=" + sig, false},
		{"wrong signature", "sha256=" + HexHMAC("other", body), false},
		{"empty", "", false},
		{"garbage", "not-a-signature", false},
		{"prefix with non-hex payload", "sha256=zzzz", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, VerifyHMAC(secret, body, tt.provided))
		})
	}
}

func TestVerifyHMAC_BodyTamper(t *testing.T) {
	secret := "webhook-secret"
	sig := "sha256=" + HexHMAC(secret, []byte("original"))
	assert.False(t, VerifyHMAC(secret, []byte("tampered"), sig))
}

func TestVerifyToken(t *testing.T) {
	assert.True(t, VerifyToken("secret", "secret"))
	assert.False(t, VerifyToken("secret", "wrong"))
	assert.False(t, VerifyToken("", ""))
	assert.False(t, VerifyToken("secret", ""))
}
