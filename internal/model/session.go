package model

import "time"

// Session is a check-in session record. It correlates a kiosk client's
// sequential requests and carries the OTP verification state inside its
// payload. Liveness is inactivity-based: a session is usable only while
// now - LastActivity stays within the configured timeout.
type Session struct {
	ID           string    `json:"id"`
	Payload      string    `json:"payload"`
	CustomerID   *string   `json:"customerId,omitempty"`
	IPAddress    string    `json:"ipAddress,omitempty"`
	LastActivity time.Time `json:"lastActivity"`
}

// IsExpired reports whether the session's inactivity window has elapsed.
func (s *Session) IsExpired(timeout time.Duration) bool {
	return time.Since(s.LastActivity) > timeout
}
