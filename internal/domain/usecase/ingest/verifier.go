package ingest

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strings"

	coreport "github.com/maryreaky/betrix-payments/internal/domain/port/core"
)

// SignatureVerifier validates that an inbound event genuinely originated
// from the payment provider. The HMAC is computed over the exact raw request
// bytes, never a re-serialized object.
type SignatureVerifier struct {
	secret []byte
	logger coreport.Logger
}

// NewSignatureVerifier creates a verifier bound to the shared secret
func NewSignatureVerifier(sharedSecret string, logger coreport.Logger) *SignatureVerifier {
	return &SignatureVerifier{
		secret: []byte(sharedSecret),
		logger: logger,
	}
}

// Verify computes HMAC-SHA256 over rawBody and compares it to the
// hex-encoded provided signature in constant time. A "sha256=" prefix on
// the provided value is tolerated.
func (v *SignatureVerifier) Verify(rawBody []byte, providedSignature string) bool {
	provided := strings.TrimSpace(providedSignature)
	provided = strings.TrimPrefix(provided, "sha256=")
	if provided == "" {
		v.logger.Warn("Webhook rejected: missing signature", map[string]any{
			"event": "security",
		})
		return false
	}

	mac := hmac.New(sha256.New, v.secret)
	mac.Write(rawBody)
	expected := hex.EncodeToString(mac.Sum(nil))

	// hmac.Equal is constant time
	if !hmac.Equal([]byte(expected), []byte(strings.ToLower(provided))) {
		v.logger.Warn("Webhook rejected: signature mismatch", map[string]any{
			"event":     "security",
			"body_size": len(rawBody),
		})
		return false
	}
	return true
}

// Sign computes the hex-encoded HMAC-SHA256 signature for a payload.
// Used by tests and by outbound notification delivery.
func (v *SignatureVerifier) Sign(rawBody []byte) string {
	mac := hmac.New(sha256.New, v.secret)
	mac.Write(rawBody)
	return hex.EncodeToString(mac.Sum(nil))
}
