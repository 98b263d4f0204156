package auth

import (
	"crypto/rand"
	"encoding/hex"
	"regexp"
)

// Reset tokens are exactly 32 lowercase hex characters. Anything else is
// rejected before a store lookup is attempted.
var resetTokenPattern = regexp.MustCompile(`^[a-f0-9]{32}$`)

// NewSessionToken returns a new opaque session token (64 hex characters).
func NewSessionToken() (string, error) {
	return randomHex(32)
}

// NewResetToken returns a new password-reset token (32 hex characters).
func NewResetToken() (string, error) {
	return randomHex(16)
}

// ValidResetTokenFormat reports whether token matches ^[a-f0-9]{32}$.
func ValidResetTokenFormat(token string) bool {
	return resetTokenPattern.MatchString(token)
}

func randomHex(nBytes int) (string, error) {
	b := make([]byte, nBytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
