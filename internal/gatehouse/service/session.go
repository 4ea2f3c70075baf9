package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/fennelworks/gatehouse/internal/gatehouse/domain"
	"github.com/fennelworks/gatehouse/internal/gatehouse/store"
	"github.com/fennelworks/gatehouse/pkg/cryptox"
	"github.com/fennelworks/gatehouse/pkg/idx"
	"github.com/fennelworks/gatehouse/pkg/slogx"
)

// DefaultSessionTTL is the absolute session lifetime, fixed at issuance.
const DefaultSessionTTL = 30 * 24 * time.Hour

var (
	ErrInvalidCredentials = errors.New("invalid_credentials")
	ErrEmailNotVerified   = errors.New("email_not_verified")
	ErrNoSession          = errors.New("no_session")
)

// SessionService owns the session lifecycle and is the source of truth for
// "is this caller authenticated". Sessions are opaque tokens persisted by
// fingerprint with an absolute expiry; validation never extends it.
type SessionService struct {
	Store store.Store
	TTL   time.Duration
}

// TTLOrDefault returns the effective session lifetime.
func (s *SessionService) TTLOrDefault() time.Duration {
	if s.TTL <= 0 {
		return DefaultSessionTTL
	}
	return s.TTL
}

// Login authenticates with email and password and mints a session. The
// prerequisites are a credential match AND a verified email; an unverified
// user fails with ErrEmailNotVerified and obtains no session.
func (s *SessionService) Login(ctx context.Context, email, password string) (domain.Session, string, domain.User, error) {
	log := slogx.FromContext(ctx)
	email = strings.ToLower(strings.TrimSpace(email))

	user, err := s.Store.Users().GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.Session{}, "", domain.User{}, ErrInvalidCredentials
		}
		log.Error("failed to look up user for login", slog.Any("error", err))
		return domain.Session{}, "", domain.User{}, err
	}

	// Federated-only accounts have no password and cannot use password login.
	if user.PasswordHash == "" || cryptox.VerifyPassword(password, user.PasswordHash) != nil {
		log.Info("login credential mismatch", slog.String("user_id", user.ID))
		return domain.Session{}, "", domain.User{}, ErrInvalidCredentials
	}

	if !user.Verified {
		log.Info("login attempt before email verification", slog.String("user_id", user.ID))
		return domain.Session{}, "", domain.User{}, ErrEmailNotVerified
	}

	session, raw, err := s.Create(ctx, user)
	if err != nil {
		return domain.Session{}, "", domain.User{}, err
	}
	return session, raw, user, nil
}

// Create mints a session for an already-authenticated user and returns the
// stored record plus the raw opaque token for the caller's cookie. A user may
// hold any number of concurrent sessions.
func (s *SessionService) Create(ctx context.Context, user domain.User) (domain.Session, string, error) {
	raw, err := cryptox.GenerateToken(cryptox.TokenSize256)
	if err != nil {
		return domain.Session{}, "", err
	}

	now := time.Now()
	session := domain.Session{
		ID:        idx.New().String(),
		UserID:    user.ID,
		TokenHash: cryptox.FingerprintToken(raw),
		ExpiresAt: now.Add(s.TTLOrDefault()),
	}

	if err := s.Store.Sessions().CreateSession(ctx, session); err != nil {
		return domain.Session{}, "", err
	}

	slogx.FromContext(ctx).Debug("session created",
		slog.String("user_id", user.ID),
		slog.String("session_id", session.ID),
		slog.Time("expires_at", session.ExpiresAt),
	)
	return session, raw, nil
}

// Validate resolves a raw session token to its session and bound user. It
// fails closed: absent, malformed, unknown or expired tokens all return
// ErrNoSession. Expiry is enforced here lazily; there is no sweeper
// dependency.
func (s *SessionService) Validate(ctx context.Context, raw string) (domain.Session, domain.User, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return domain.Session{}, domain.User{}, ErrNoSession
	}

	session, err := s.Store.Sessions().GetSessionByTokenHash(ctx, cryptox.FingerprintToken(raw))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.Session{}, domain.User{}, ErrNoSession
		}
		return domain.Session{}, domain.User{}, err
	}

	if session.Expired(time.Now()) {
		// Best-effort cleanup; the validation result does not depend on it.
		_ = s.Store.Sessions().DeleteSessionByTokenHash(ctx, session.TokenHash)
		return domain.Session{}, domain.User{}, ErrNoSession
	}

	user, err := s.Store.Users().GetUserByID(ctx, session.UserID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			// Session outlived its user; treat as unauthenticated.
			return domain.Session{}, domain.User{}, ErrNoSession
		}
		return domain.Session{}, domain.User{}, err
	}

	return session, user, nil
}

// Revoke invalidates one session immediately. Idempotent: revoking an
// unknown or already-revoked token is a no-op, not an error.
func (s *SessionService) Revoke(ctx context.Context, raw string) error {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	return s.Store.Sessions().DeleteSessionByTokenHash(ctx, cryptox.FingerprintToken(raw))
}

// RevokeAll invalidates every session belonging to a user.
func (s *SessionService) RevokeAll(ctx context.Context, userID string) error {
	return s.Store.Sessions().DeleteUserSessions(ctx, userID)
}
