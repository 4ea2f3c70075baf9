package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/fennelworks/gatehouse/internal/gatehouse/domain"
	"github.com/fennelworks/gatehouse/internal/gatehouse/store"
	"github.com/fennelworks/gatehouse/pkg/cryptox"
	"github.com/fennelworks/gatehouse/pkg/mailx"
	"github.com/fennelworks/gatehouse/pkg/slogx"
)

// PasswordResetService runs the forgot-password flow on the same single-use
// token machinery as email verification, scoped by purpose.
type PasswordResetService struct {
	Store        store.Store
	Verification *VerificationService
	Sessions     *SessionService
}

// Request issues a reset token and emails the link. It always reports
// success for well-formed requests, whether or not the account exists, so the
// endpoint cannot be used to enumerate accounts.
func (s *PasswordResetService) Request(ctx context.Context, email string) error {
	log := slogx.FromContext(ctx)
	email = strings.ToLower(strings.TrimSpace(email))

	user, err := s.Store.Users().GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			log.Debug("password reset requested for unknown email")
			return nil
		}
		return err
	}

	_, link, err := s.Verification.Issue(ctx, user.ID, domain.PurposePasswordReset)
	if err != nil {
		return err
	}

	err = s.Verification.Mailer.Send(ctx, user.Email, "Reset your password", mailx.Message{
		Description: "A password reset was requested for your account. Follow the link to choose a new password.",
		Link:        link,
	})
	if err != nil {
		// The token exists; the user can request again.
		log.Warn("failed to send password reset email",
			slog.String("user_id", user.ID), slog.Any("error", err))
	}
	return nil
}

// Finalize consumes the reset token, replaces the password hash, and revokes
// every session of the user so a stolen session does not survive the reset.
func (s *PasswordResetService) Finalize(ctx context.Context, rawToken, newPassword string) error {
	if len(newPassword) < MinPasswordLength {
		return ErrWeakPassword
	}

	user, err := s.Verification.Consume(ctx, rawToken, domain.PurposePasswordReset)
	if err != nil {
		return err
	}

	hash, err := cryptox.HashPassword(newPassword)
	if err != nil {
		return err
	}

	return s.Store.WithTx(ctx, func(tx store.Tx) error {
		if err := tx.Users().UpdatePasswordHash(ctx, user.ID, hash); err != nil {
			return err
		}
		return tx.Sessions().DeleteUserSessions(ctx, user.ID)
	})
}
