package store

import (
	"context"
	"errors"
	"time"

	"github.com/fennelworks/gatehouse/internal/gatehouse/domain"
)

var (
	ErrNotFound      = errors.New("store: not found")
	ErrAlreadyExists = errors.New("store: already exists")
)

// Store is the root data access interface. Concrete drivers (sqlite today)
// implement this. Sub-repositories keep concerns tidy and independently
// testable.
type Store interface {
	Users() Users
	Sessions() Sessions
	VerificationTokens() VerificationTokens
	Identities() Identities

	ApplyMigrations() error

	// Tx starts a read/write transaction and returns a Tx-scoped Store. The
	// caller MUST Commit or Rollback the returned Tx.
	Tx(ctx context.Context) (Tx, error)

	// WithTx executes fn within a transaction: rolled back if fn errors,
	// committed otherwise. Preferred over Tx for multi-step operations that
	// must be atomic (token consumption, role changes).
	WithTx(ctx context.Context, fn func(tx Tx) error) error

	// Close releases underlying resources.
	Close() error

	// Ping verifies the database connection is still alive.
	Ping(ctx context.Context) error
}

// Tx is a transaction-scoped store with explicit Commit/Rollback.
type Tx interface {
	Store
	Commit() error
	Rollback() error
}

type Users interface {
	// GetUserByID returns a user by id.
	GetUserByID(ctx context.Context, id string) (domain.User, error)

	// GetUserByEmail is used during login and duplicate-signup checks.
	// Lookup is by the stored (lowercased) email.
	GetUserByEmail(ctx context.Context, email string) (domain.User, error)

	// CreateUser inserts a new user (id is provided by the app via ULID).
	// Returns ErrAlreadyExists when the email is taken.
	CreateUser(ctx context.Context, u domain.User) error

	// SetVerified marks email ownership proven and bumps updated_at.
	SetVerified(ctx context.Context, userID string) error

	// SetRole replaces the user's role and bumps updated_at.
	SetRole(ctx context.Context, userID string, role domain.Role) error

	// UpdatePasswordHash sets the password_hash (argon2) and bumps updated_at.
	UpdatePasswordHash(ctx context.Context, userID string, newHash string) error

	// ListUsers returns all users ordered by creation date (newest first).
	ListUsers(ctx context.Context) ([]domain.User, error)
}

type Sessions interface {
	// CreateSession stores a new session record.
	CreateSession(ctx context.Context, s domain.Session) error

	// GetSessionByTokenHash returns the session by its token fingerprint.
	GetSessionByTokenHash(ctx context.Context, hash string) (domain.Session, error)

	// DeleteSessionByTokenHash removes one session. Deleting an unknown hash
	// is a no-op, which keeps logout idempotent.
	DeleteSessionByTokenHash(ctx context.Context, hash string) error

	// DeleteUserSessions bulk-revokes every session of a user (e.g. after a
	// password reset).
	DeleteUserSessions(ctx context.Context, userID string) error

	// DeleteExpiredSessions is housekeeping; expiry is enforced lazily at
	// validation regardless.
	DeleteExpiredSessions(ctx context.Context, now time.Time) error
}

type VerificationTokens interface {
	// CreateToken stores a freshly minted verification token.
	CreateToken(ctx context.Context, t domain.VerificationToken) error

	// GetTokenByHash fetches a token by its fingerprint, consumed or not.
	GetTokenByHash(ctx context.Context, hash string) (domain.VerificationToken, error)

	// ConsumeToken marks the token used iff it is still unused. Returns
	// ErrNotFound when the token was already consumed, so two concurrent
	// consumptions cannot both succeed.
	ConsumeToken(ctx context.Context, id string, usedAt time.Time) error

	// DeleteExpiredTokens is housekeeping.
	DeleteExpiredTokens(ctx context.Context, now time.Time) error
}

type Identities interface {
	// CreateIdentity links a federated account to a user. Returns
	// ErrAlreadyExists when the (provider, subject) pair is taken.
	CreateIdentity(ctx context.Context, i domain.Identity) error

	// GetIdentity fetches a link by provider and provider subject.
	GetIdentity(ctx context.Context, provider, subject string) (domain.Identity, error)
}
