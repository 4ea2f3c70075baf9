package domain

import "time"

// Identity links a user to an external identity provider account. The
// (provider, subject) pair is unique; account linking is disabled, so a user
// gains at most one identity per provider and identities are only created
// together with their user.
type Identity struct {
	ID        string
	UserID    string
	Provider  string // e.g. "google", "github"
	Subject   string // provider-assigned stable subject identifier
	CreatedAt time.Time
}
