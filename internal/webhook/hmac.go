package webhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"strings"
)

// verifySignature verifies an HMAC-SHA256 signature against the raw
// request body.
//
// This function uses constant-time comparison (crypto/subtle) to prevent
// timing attacks. It accepts the platform's plain lowercase hex format
// and the common "sha256=<hex>" prefix form.
//
// Returns nil if the signature is valid, error otherwise. All errors
// are generic to prevent information leakage; a missing or malformed
// signature is a verification failure, never a panic.
func verifySignature(body []byte, signature, secret string) error {
	if secret == "" {
		return fmt.Errorf("webhook verification failed")
	}

	if signature == "" {
		return fmt.Errorf("webhook verification failed")
	}

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	expectedMAC := mac.Sum(nil)

	actualMAC, err := parseSignature(signature)
	if err != nil {
		// Generic error - don't leak format details
		return fmt.Errorf("webhook verification failed")
	}

	if subtle.ConstantTimeCompare(expectedMAC, actualMAC) != 1 {
		return fmt.Errorf("webhook verification failed")
	}

	return nil
}

// parseSignature decodes the signature value from its hex forms.
func parseSignature(signature string) ([]byte, error) {
	if strings.HasPrefix(signature, "sha256=") {
		return hex.DecodeString(strings.TrimPrefix(signature, "sha256="))
	}
	return hex.DecodeString(signature)
}

// computeSignature computes the lowercase hex HMAC-SHA256 of a body.
// Used by tests to produce valid signatures.
func computeSignature(body []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}
