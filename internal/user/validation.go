package user

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// Input validation limits.
const (
	MaxUsernameLen = 30
	MaxPasswordLen = 128
	MaxLineLen     = 256
)

// ValidateString checks string length and encoding.
func ValidateString(value, fieldName string, maxLen int) error {
	if !utf8.ValidString(value) {
		return fmt.Errorf("%s contains invalid UTF-8", fieldName)
	}
	if utf8.RuneCountInString(value) > maxLen {
		return fmt.Errorf("%s too long (max %d characters)", fieldName, maxLen)
	}
	return nil
}

// ValidateUsername checks username requirements.
func ValidateUsername(username string) error {
	if err := ValidateString(username, "username", MaxUsernameLen); err != nil {
		return err
	}

	if len(username) < 2 {
		return fmt.Errorf("username too short (minimum 2 characters)")
	}

	for _, r := range username {
		if !((r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') ||
			(r >= '0' && r <= '9') || r == '_' || r == '-') {
			return fmt.Errorf("username contains invalid characters (use letters, numbers, _ or -)")
		}
	}

	return nil
}

// ValidatePassword checks password requirements.
func ValidatePassword(password string) error {
	if err := ValidateString(password, "password", MaxPasswordLen); err != nil {
		return err
	}

	if len(password) < 6 {
		return fmt.Errorf("password too short (minimum 6 characters)")
	}

	return nil
}

// SanitizeForDisplay drops control characters other than tabs and line
// breaks.
func SanitizeForDisplay(input string) string {
	var b strings.Builder
	for _, r := range input {
		if (r >= 32 && r != 127) || r == '\n' || r == '\r' || r == '\t' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
