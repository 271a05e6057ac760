package entity

import "time"

// Session is a server-side login session bound to one user.
// The client only holds a signed token carrying ID.
type Session struct {
	ID        string     `json:"id"` // 64-character hex string
	UserID    string     `json:"user_id"`
	UserAgent string     `json:"user_agent,omitempty"`
	IPAddress string     `json:"ip_address,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	ExpiresAt time.Time  `json:"expires_at"`
	RevokedAt *time.Time `json:"revoked_at,omitempty"`
}

// ExpiredAt reports whether the session has expired at now.
func (s *Session) ExpiredAt(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}

// ValidAt reports whether the session can identify a user at now.
func (s *Session) ValidAt(now time.Time) bool {
	return !s.IsRevoked() && !s.ExpiredAt(now)
}

// Remaining returns how long the session stays valid after now, or zero.
func (s *Session) Remaining(now time.Time) time.Duration {
	if !s.ValidAt(now) {
		return 0
	}
	return s.ExpiresAt.Sub(now)
}

func (s *Session) IsRevoked() bool {
	return s.RevokedAt != nil
}

func (s *Session) IsValid() bool {
	return s.ValidAt(time.Now())
}
