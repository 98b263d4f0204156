package auth

import (
	"strings"

	"github.com/groupdesk/groupdesk-be/internal/apperr"
	"golang.org/x/crypto/bcrypt"
)

// Characters that count toward the special-character requirement.
const specialChars = "!@#$%^&*()_+-=[]{};':\"|,.<>/?~`"

// HashPassword hashes a plaintext password with bcrypt.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// CheckPassword reports whether password matches the stored bcrypt hash.
func CheckPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// ValidatePassword enforces the password complexity policy: minimum 8
// characters, at least one letter, one digit, and one special character.
// Checks run in that order and each failure gets its own message.
func ValidatePassword(password string) error {
	if len(password) < 8 {
		return apperr.New(apperr.CodeWeakPassword, "Password must be at least 8 characters long")
	}

	var hasLetter, hasDigit, hasSpecial bool
	for _, c := range password {
		switch {
		case (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z'):
			hasLetter = true
		case c >= '0' && c <= '9':
			hasDigit = true
		case strings.ContainsRune(specialChars, c):
			hasSpecial = true
		}
	}

	if !hasLetter {
		return apperr.New(apperr.CodeWeakPassword, "Password must contain at least one letter")
	}
	if !hasDigit {
		return apperr.New(apperr.CodeWeakPassword, "Password must contain at least one number")
	}
	if !hasSpecial {
		return apperr.New(apperr.CodeWeakPassword, "Password must contain at least one special character")
	}
	return nil
}
