package util

import (
	"html"
	"strings"
)

// SanitizeInput trims and escapes HTML/script-like characters from free-text input.
func SanitizeInput(s string) string {
	return html.EscapeString(strings.TrimSpace(s))
}

// NormalizeLicensePlate upper-cases a plate and strips everything but
// letters and digits.
func NormalizeLicensePlate(plate string) string {
	var b strings.Builder
	for _, r := range strings.ToUpper(strings.TrimSpace(plate)) {
		if (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	return b.String()
}
