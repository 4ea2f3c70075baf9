package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/fennelworks/gatehouse/internal/gatehouse/domain"
	"github.com/fennelworks/gatehouse/internal/gatehouse/store"
	"github.com/fennelworks/gatehouse/pkg/cryptox"
	"github.com/fennelworks/gatehouse/pkg/idx"
	"github.com/fennelworks/gatehouse/pkg/mailx"
	"github.com/fennelworks/gatehouse/pkg/slogx"
)

// DefaultVerificationTTL bounds how long an emailed token stays redeemable.
const DefaultVerificationTTL = time.Hour

var (
	ErrTokenInvalid = errors.New("token_invalid")
	ErrTokenExpired = errors.New("token_expired")
)

// VerificationService orchestrates email-ownership proof and the shared
// single-use token machinery behind it (email verification and password
// reset differ only by purpose).
type VerificationService struct {
	Store    store.Store
	Mailer   mailx.Mailer
	Sessions *SessionService

	BaseURL  string        // public base URL used to render callback links
	TokenTTL time.Duration // defaults to DefaultVerificationTTL

	// AutoSignIn establishes a session immediately after a successful email
	// verification.
	AutoSignIn bool
}

func (s *VerificationService) tokenTTL() time.Duration {
	if s.TokenTTL <= 0 {
		return DefaultVerificationTTL
	}
	return s.TokenTTL
}

// Issue mints a cryptographically unpredictable single-use token bound to the
// user and purpose, persists its fingerprint with an expiry, and returns the
// raw token plus the callback URL to embed in the email. Reissuing before
// expiry is allowed; earlier tokens stay valid until consumed or expired.
func (s *VerificationService) Issue(ctx context.Context, userID string, purpose domain.TokenPurpose) (string, string, error) {
	raw, err := cryptox.GenerateToken(cryptox.TokenSize256)
	if err != nil {
		return "", "", err
	}

	token := domain.VerificationToken{
		ID:        idx.New().String(),
		UserID:    userID,
		TokenHash: cryptox.FingerprintToken(raw),
		Purpose:   purpose,
		ExpiresAt: time.Now().Add(s.tokenTTL()),
	}
	if err := s.Store.VerificationTokens().CreateToken(ctx, token); err != nil {
		return "", "", err
	}

	return raw, s.callbackURL(purpose, raw), nil
}

func (s *VerificationService) callbackURL(purpose domain.TokenPurpose, raw string) string {
	base := strings.TrimRight(s.BaseURL, "/")
	switch purpose {
	case domain.PurposePasswordReset:
		return fmt.Sprintf("%s/auth/reset-password?token=%s", base, url.QueryEscape(raw))
	default:
		return fmt.Sprintf("%s/v1/verify-email?token=%s", base, url.QueryEscape(raw))
	}
}

// SendVerification dispatches the verification email. Callers treat failure
// as non-fatal: the account already exists and the token can be resent.
func (s *VerificationService) SendVerification(ctx context.Context, user domain.User, link string) error {
	return s.Mailer.Send(ctx, user.Email, "Verify your email address", mailx.Message{
		Description: "Please verify your email address to complete the registration process.",
		Link:        link,
	})
}

// Consume redeems a raw token for the given purpose. Failure modes are
// stable kinds: ErrTokenExpired past expiry, ErrTokenInvalid
// for unknown, wrong-purpose or already-used tokens. The used-marking and the
// user mutation happen in one transaction, and the store's consume guard
// rejects a concurrent second redemption, so one token grants verification at
// most once.
func (s *VerificationService) Consume(ctx context.Context, raw string, purpose domain.TokenPurpose) (domain.User, error) {
	log := slogx.FromContext(ctx)
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return domain.User{}, ErrTokenInvalid
	}

	hash := cryptox.FingerprintToken(raw)
	now := time.Now()

	var user domain.User
	err := s.Store.WithTx(ctx, func(tx store.Tx) error {
		token, err := tx.VerificationTokens().GetTokenByHash(ctx, hash)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return ErrTokenInvalid
			}
			return err
		}

		if token.Purpose != purpose || token.Consumed() {
			return ErrTokenInvalid
		}
		if token.Expired(now) {
			return ErrTokenExpired
		}

		if err := tx.VerificationTokens().ConsumeToken(ctx, token.ID, now); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				// Lost the race against a concurrent consumption.
				return ErrTokenInvalid
			}
			return err
		}

		if purpose == domain.PurposeEmailVerification {
			if err := tx.Users().SetVerified(ctx, token.UserID); err != nil {
				return err
			}
		}

		user, err = tx.Users().GetUserByID(ctx, token.UserID)
		return err
	})
	if err != nil {
		return domain.User{}, err
	}

	log.Info("verification token consumed",
		slog.String("user_id", user.ID),
		slog.String("purpose", string(purpose)),
	)
	return user, nil
}

// VerifyEmail consumes an email-verification token and, when auto sign-in is
// enabled, establishes a session for the now-verified user. The returned raw
// session token is empty when no session was created.
func (s *VerificationService) VerifyEmail(ctx context.Context, raw string) (domain.User, string, error) {
	user, err := s.Consume(ctx, raw, domain.PurposeEmailVerification)
	if err != nil {
		return domain.User{}, "", err
	}
	user.Verified = true

	if !s.AutoSignIn || s.Sessions == nil {
		return user, "", nil
	}

	_, sessionToken, err := s.Sessions.Create(ctx, user)
	if err != nil {
		// Verification itself succeeded; the user can still log in normally.
		slogx.FromContext(ctx).Warn("failed to auto-create session after verification",
			slog.String("user_id", user.ID), slog.Any("error", err))
		return user, "", nil
	}
	return user, sessionToken, nil
}

// Resend reissues a verification token for an unverified account. Unknown
// and already-verified emails return nil so the endpoint cannot be used to
// probe which addresses exist.
func (s *VerificationService) Resend(ctx context.Context, email string) error {
	log := slogx.FromContext(ctx)
	email = strings.ToLower(strings.TrimSpace(email))

	user, err := s.Store.Users().GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			log.Debug("verification resend for unknown email")
			return nil
		}
		return err
	}
	if user.Verified {
		return nil
	}

	_, link, err := s.Issue(ctx, user.ID, domain.PurposeEmailVerification)
	if err != nil {
		return err
	}

	if err := s.SendVerification(ctx, user, link); err != nil {
		log.Warn("failed to resend verification email",
			slog.String("user_id", user.ID), slog.Any("error", err))
	}
	return nil
}
