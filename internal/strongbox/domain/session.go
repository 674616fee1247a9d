package domain

import "time"

type SessionState string

const (
	SessionPendingOTP    SessionState = "pending_otp"
	SessionAuthenticated SessionState = "authenticated"
	SessionExpired       SessionState = "expired"
)

// Session is one login attempt. It starts in SessionPendingOTP when the
// password checks out, moves to SessionAuthenticated after a correct code,
// and ends in SessionExpired on logout, timeout or an exhausted retry budget.
type Session struct {
	ID     string // ULID, doubles as the pending-login reference
	UserID string
	State  SessionState

	OTPCounter   uint64 // HOTP counter the emailed code was generated from
	OTPExpiresAt time.Time
	OTPAttempts  int

	TokenFingerprint string // SHA-256 of the access token, set on authentication
	CSRFFingerprint  string // SHA-256 of the anti-forgery token
	ExpiresAt        time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}

// IsLive reports whether the session can currently back an access token.
func (s *Session) IsLive(now time.Time) bool {
	return s.State == SessionAuthenticated && now.Before(s.ExpiresAt)
}

// PasswordReset is a single-use reset token, stored by fingerprint.
type PasswordReset struct {
	ID        string
	UserID    string
	TokenHash string
	ExpiresAt time.Time
	UsedAt    *time.Time
	CreatedAt time.Time
}
