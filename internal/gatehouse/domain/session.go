package domain

import "time"

// Session is the stored record of an opaque session token. The raw token is
// handed to the caller once as a cookie value; only its fingerprint (base64url
// SHA-256) is persisted. Expiry is absolute, fixed at issuance.
type Session struct {
	ID        string
	UserID    string
	TokenHash string
	ExpiresAt time.Time
	CreatedAt time.Time
}

// Expired reports whether the session is past its absolute expiry at now.
func (s Session) Expired(now time.Time) bool {
	return now.After(s.ExpiresAt)
}
