package model

import (
	"encoding/json"
	"time"
)

// SessionPayload is the typed view over a session's free-form payload blob.
// Every field is optional; absence means "no value for that slot". All slots
// are decoded and re-encoded together so writing one never clobbers another.
type SessionPayload struct {
	CheckInID    *string       `json:"checkInId,omitempty"`
	OtpData      *OtpChallenge `json:"otpData,omitempty"`
	OtpCooldown  *OtpCooldown  `json:"otpCooldown,omitempty"`
	OtpSendCount *OtpSendCount `json:"otpSendCount,omitempty"`
}

// OtpChallenge is the live, pending passcode awaiting validation.
type OtpChallenge struct {
	PhoneNumber  string    `json:"phoneNumber"`
	OtpCode      string    `json:"otpCode"`
	OtpGenerated time.Time `json:"otpGenerated"`
	OtpExpiry    time.Time `json:"otpExpiry"`
	Attempts     int       `json:"attempts"`
}

// OtpCooldown throttles repeated sends; it survives challenge consumption.
type OtpCooldown struct {
	PhoneNumber   string    `json:"phoneNumber"`
	CooldownUntil time.Time `json:"cooldownUntil"`
	SendCount     int       `json:"sendCount"`
}

// OtpSendCount tracks how many codes were issued for a phone in this session.
type OtpSendCount struct {
	PhoneNumber  string    `json:"phoneNumber"`
	Count        int       `json:"count"`
	LastSendTime time.Time `json:"lastSendTime"`
}

// DecodePayload parses a raw payload string into its typed view. An empty or
// unparsable blob decodes to an empty payload rather than failing, so a
// corrupt blob never bricks the session.
func DecodePayload(raw string) *SessionPayload {
	if raw == "" {
		return &SessionPayload{}
	}
	var p SessionPayload
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		return &SessionPayload{}
	}
	return &p
}

// Encode serializes the payload back to its stored representation.
func (p *SessionPayload) Encode() (string, error) {
	data, err := json.Marshal(p)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// IsEmpty reports whether no slot holds a value.
func (p *SessionPayload) IsEmpty() bool {
	return p.CheckInID == nil && p.OtpData == nil && p.OtpCooldown == nil && p.OtpSendCount == nil
}
