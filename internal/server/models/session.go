package models

import "time"

// Session binds a token to a user. ID is the hex SHA-256 of the token; the
// token itself is never stored.
type Session struct {
	ID         string
	UserID     string
	CreatedAt  time.Time
	LastSeenAt time.Time
	ExpiresAt  time.Time
}

// Expired reports whether the session is past its absolute expiry or has
// been idle for longer than idle at now.
func (s *Session) Expired(now time.Time, idle time.Duration) bool {
	if !now.Before(s.ExpiresAt) {
		return true
	}
	return idle > 0 && now.Sub(s.LastSeenAt) >= idle
}
