package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodePayloadEmpty(t *testing.T) {
	p := DecodePayload("")
	require.NotNil(t, p)
	assert.True(t, p.IsEmpty())
}

func TestDecodePayloadCorruptIsSelfHealing(t *testing.T) {
	for _, raw := range []string{"{not json", "[]", `"scalar"`, "\x00\x01"} {
		p := DecodePayload(raw)
		require.NotNil(t, p, "raw=%q", raw)
		assert.True(t, p.IsEmpty(), "raw=%q", raw)
	}
}

func TestPayloadRoundTrip(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	checkInID := "b3f1c9a0-0000-0000-0000-000000000001"

	challenge := &OtpChallenge{
		PhoneNumber:  "+15551234567",
		OtpCode:      "482913",
		OtpGenerated: now,
		OtpExpiry:    now.Add(5 * time.Minute),
		Attempts:     1,
	}
	cooldown := &OtpCooldown{
		PhoneNumber:   "+15551234567",
		CooldownUntil: now.Add(2 * time.Minute),
		SendCount:     1,
	}
	sendCount := &OtpSendCount{
		PhoneNumber:  "+15551234567",
		Count:        1,
		LastSendTime: now,
	}

	cases := []struct {
		name    string
		payload SessionPayload
	}{
		{"all empty", SessionPayload{}},
		{"challenge only", SessionPayload{OtpData: challenge}},
		{"cooldown survives challenge", SessionPayload{OtpCooldown: cooldown, OtpSendCount: sendCount}},
		{"full", SessionPayload{
			CheckInID:    &checkInID,
			OtpData:      challenge,
			OtpCooldown:  cooldown,
			OtpSendCount: sendCount,
		}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			raw, err := tc.payload.Encode()
			require.NoError(t, err)

			decoded := DecodePayload(raw)
			assert.Equal(t, &tc.payload, decoded)
		})
	}
}

func TestEncodeOmitsEmptySlots(t *testing.T) {
	raw, err := (&SessionPayload{}).Encode()
	require.NoError(t, err)
	assert.Equal(t, "{}", raw)
}

func TestDecodePayloadPreservesUnknownSlotAbsence(t *testing.T) {
	raw := `{"otpCooldown":{"phoneNumber":"+15551234567","cooldownUntil":"2024-01-01T00:02:00Z","sendCount":1}}`
	p := DecodePayload(raw)

	require.NotNil(t, p.OtpCooldown)
	assert.Nil(t, p.OtpData)
	assert.Nil(t, p.OtpSendCount)
	assert.Nil(t, p.CheckInID)
	assert.Equal(t, 1, p.OtpCooldown.SendCount)
}
