package session

// Session is the stored state for one authenticated device/browser context.
// Timestamps are unix milliseconds; RevokedAt == 0 means the session is
// active. Revocation is terminal: once RevokedAt is set it never clears.
type Session struct {
	ID            string
	UserID        string
	Surface       string
	CreatedByIP   string
	UserAgent     string
	CreatedAt     int64
	LastUsedAt    int64
	RevokedAt     int64
	RevokedReason string
}

// IsActive reports whether the session has not been revoked.
func (s *Session) IsActive() bool {
	return s != nil && s.RevokedAt == 0
}
