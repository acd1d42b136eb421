package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormatToE164(t *testing.T) {
	cases := []struct {
		name  string
		input string
		want  string
	}{
		{"bare ten digits", "5551234567", "+15551234567"},
		{"formatted", "(555) 123-4567", "+15551234567"},
		{"dashed", "555-123-4567", "+15551234567"},
		{"leading one", "15551234567", "+15551234567"},
		{"already e164", "+15551234567", "+15551234567"},
		{"international", "+442071234567", "+442071234567"},
		{"empty", "", ""},
		{"whitespace", "   ", ""},
		{"too short", "12345", ""},
		{"letters", "call-me-maybe", ""},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, FormatToE164(tc.input))
		})
	}
}

func TestMaskPhoneNumber(t *testing.T) {
	assert.Equal(t, "(XXX) XXX-4567", MaskPhoneNumber("+15551234567"))
	assert.Equal(t, "(XXX) XXX-4567", MaskPhoneNumber("555-123-4567"))
	assert.Equal(t, "(XXX) XXX-XXXX", MaskPhoneNumber("123"))
	assert.Equal(t, "", MaskPhoneNumber(""))
}

func TestIsMaskedPhoneNumber(t *testing.T) {
	assert.True(t, IsMaskedPhoneNumber(MaskPhoneNumber("+15551234567")))
	assert.False(t, IsMaskedPhoneNumber("+15551234567"))
}

func TestPhoneHashIgnoresFormatting(t *testing.T) {
	a := PhoneHash("+15551234567")
	b := PhoneHash("1 (555) 123-4567")
	assert.Equal(t, a, b)
	assert.Len(t, a, 64)

	assert.NotEqual(t, a, PhoneHash("+15551234568"))
}

func TestNormalizeLicensePlate(t *testing.T) {
	assert.Equal(t, "ABC1234", NormalizeLicensePlate(" abc-1234 "))
	assert.Equal(t, "", NormalizeLicensePlate("---"))
}
