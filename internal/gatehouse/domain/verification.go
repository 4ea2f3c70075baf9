package domain

import "time"

// TokenPurpose scopes a verification token to the single flow it was minted
// for. A token minted for one purpose cannot be consumed by another.
type TokenPurpose string

const (
	PurposeEmailVerification TokenPurpose = "email_verification"
	PurposePasswordReset     TokenPurpose = "password_reset"
)

// VerificationToken is a single-use, time-boxed credential bound to one user
// and one purpose. Stored by fingerprint; consumed at most once.
type VerificationToken struct {
	ID        string
	UserID    string
	TokenHash string
	Purpose   TokenPurpose
	ExpiresAt time.Time
	UsedAt    *time.Time // nil until consumed
	CreatedAt time.Time
}

// Consumed reports whether the token has already been used.
func (t VerificationToken) Consumed() bool { return t.UsedAt != nil }

// Expired reports whether the token is past its expiry at now.
func (t VerificationToken) Expired(now time.Time) bool {
	return now.After(t.ExpiresAt)
}
