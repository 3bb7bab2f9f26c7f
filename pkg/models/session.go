package models

import "time"

// Session is an authenticated token with an absolute expiry. Regular sessions
// last 24 hours; "remember me" sessions last 30 days.
type Session struct {
	Token      string    `json:"token"`
	UserID     string    `json:"user_id"`
	Remembered bool      `json:"remembered"`
	CreatedAt  time.Time `json:"created_at"`
	ExpiresAt  time.Time `json:"expires_at"`
	LastSeenAt time.Time `json:"last_seen_at"`
}

// Expired reports whether the session is past its expiry.
func (s *Session) Expired() bool {
	return time.Now().After(s.ExpiresAt)
}
