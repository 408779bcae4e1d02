package refresh

// Revocation reasons stamped onto refresh records when they leave the live
// state. The same strings are used for session revocation so audit trails
// line up.
const (
	ReasonRotated         = "rotated"
	ReasonLogout          = "logout"
	ReasonSecurityRevoked = "security-revoked"
	ReasonExpiredCleanup  = "expired-cleanup"
	ReasonReuseDetected   = "reuse-detected"
)

// Record is the stored state for one refresh token. TokenHashHex is the hex
// SHA-256 digest of the token secret and doubles as the storage key suffix;
// the raw secret is never persisted. Timestamps are unix milliseconds.
type Record struct {
	ID             string
	UserID         string
	SessionID      string
	Surface        string
	TokenHashHex   string
	ExpiresAt      int64
	CreatedAt      int64
	CreatedByIP    string
	RevokedAt      int64
	RevokedReason  string
	ReplacedByHash string
}

// IsLive reports whether the record is unrevoked and unexpired at the given
// unix-millisecond instant. At most one record per session is live at any
// time; the rotation script maintains that invariant.
func (r *Record) IsLive(nowMilli int64) bool {
	return r != nil && r.RevokedAt == 0 && r.ExpiresAt > nowMilli
}
