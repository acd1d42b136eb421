package util

import (
	"crypto/sha256"
	"encoding/hex"
	"regexp"
	"strings"
)

var digitsOnly = regexp.MustCompile(`\D`)

// FormatToE164 normalizes a US phone number to E.164 (+1XXXXXXXXXX).
// Returns an empty string when the input cannot be normalized.
func FormatToE164(phoneNumber string) string {
	if strings.TrimSpace(phoneNumber) == "" {
		return ""
	}

	digits := digitsOnly.ReplaceAllString(phoneNumber, "")

	switch {
	case len(digits) == 10:
		return "+1" + digits
	case len(digits) == 11 && strings.HasPrefix(digits, "1"):
		return "+" + digits
	case strings.HasPrefix(phoneNumber, "+") && len(digits) >= 10 && len(digits) <= 15:
		return "+" + digits
	default:
		return ""
	}
}

// IsValidPhoneNumber reports whether the input normalizes to a usable E.164 number.
func IsValidPhoneNumber(phoneNumber string) bool {
	return FormatToE164(phoneNumber) != ""
}

// MaskPhoneNumber hides all but the last four digits, e.g. "(XXX) XXX-1234".
func MaskPhoneNumber(phoneNumber string) string {
	if strings.TrimSpace(phoneNumber) == "" {
		return ""
	}

	digits := digitsOnly.ReplaceAllString(phoneNumber, "")
	if len(digits) >= 4 {
		return "(XXX) XXX-" + digits[len(digits)-4:]
	}
	return "(XXX) XXX-XXXX"
}

// IsMaskedPhoneNumber reports whether the value is a masked number produced
// by MaskPhoneNumber, as submitted back by returning customers.
func IsMaskedPhoneNumber(phoneNumber string) bool {
	return strings.HasPrefix(phoneNumber, "(XXX)")
}

// PhoneHash returns the SHA-256 hex digest of a normalized phone number,
// used as the lookup key for customer rows.
func PhoneHash(phoneNumber string) string {
	normalized := digitsOnly.ReplaceAllString(phoneNumber, "")
	sum := sha256.Sum256([]byte(normalized))
	return hex.EncodeToString(sum[:])
}
