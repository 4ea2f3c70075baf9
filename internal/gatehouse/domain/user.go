package domain

import "time"

type User struct {
	ID           string
	Email        string // unique, lowercased
	Name         string // normalized display name
	PasswordHash string // argon2 encoded; empty for federated-only accounts
	Role         Role
	Verified     bool // email ownership proven
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
