package service

import (
	"context"
	"errors"
	"log/slog"
	"net/mail"
	"strings"

	"github.com/fennelworks/gatehouse/internal/gatehouse/domain"
	"github.com/fennelworks/gatehouse/internal/gatehouse/policy"
	"github.com/fennelworks/gatehouse/internal/gatehouse/store"
	"github.com/fennelworks/gatehouse/pkg/cryptox"
	"github.com/fennelworks/gatehouse/pkg/idx"
	"github.com/fennelworks/gatehouse/pkg/slogx"
)

// MinPasswordLength is the minimum accepted password length.
const MinPasswordLength = 6

var (
	ErrInvalidEmail     = errors.New("invalid_email")
	ErrIneligibleDomain = errors.New("ineligible_domain")
	ErrWeakPassword     = errors.New("weak_password")
	ErrEmailTaken       = errors.New("email_taken")
)

// SignupService runs the signup state machine: domain gating and name
// normalization, account creation (always unverified, role assigned
// server-side), then the asynchronous verification dispatch.
type SignupService struct {
	Store        store.Store
	Verification *VerificationService
	Policy       policy.Policy

	// AdminEmails are promoted to ADMIN at creation time. Populated from
	// configuration; a role is never client-settable.
	AdminEmails []string
}

// SignupResult carries the created user and whether the verification email
// actually went out. VerificationSent=false is a warning, not a failure: the
// account is durable and the email can be resent.
type SignupResult struct {
	User             domain.User
	VerificationSent bool
}

// Signup validates, creates the unverified account and dispatches the
// verification email. All validation happens before any store write.
func (s *SignupService) Signup(ctx context.Context, email, name, password string) (SignupResult, error) {
	log := slogx.FromContext(ctx)

	email = strings.ToLower(strings.TrimSpace(email))
	if _, err := mail.ParseAddress(email); err != nil {
		return SignupResult{}, ErrInvalidEmail
	}
	if !s.Policy.EligibleDomain(email) {
		log.Info("signup rejected by domain policy")
		return SignupResult{}, ErrIneligibleDomain
	}
	if len(password) < MinPasswordLength {
		return SignupResult{}, ErrWeakPassword
	}

	name = policy.NormalizeName(name)

	hash, err := cryptox.HashPassword(password)
	if err != nil {
		return SignupResult{}, err
	}

	user := domain.User{
		ID:           idx.New().String(),
		Email:        email,
		Name:         name,
		PasswordHash: hash,
		Role:         roleForEmail(email, s.AdminEmails),
		Verified:     false,
	}

	if err := s.Store.Users().CreateUser(ctx, user); err != nil {
		if errors.Is(err, store.ErrAlreadyExists) {
			return SignupResult{}, ErrEmailTaken
		}
		log.Error("failed to create user", slog.Any("error", err))
		return SignupResult{}, err
	}

	log.Info("user registered",
		slog.String("user_id", user.ID),
		slog.String("role", string(user.Role)),
	)

	// Verification is asynchronous and retryable; a dispatch failure must
	// not fail the signup.
	sent := true
	_, link, err := s.Verification.Issue(ctx, user.ID, domain.PurposeEmailVerification)
	if err != nil {
		log.Warn("failed to issue verification token",
			slog.String("user_id", user.ID), slog.Any("error", err))
		sent = false
	} else if err := s.Verification.SendVerification(ctx, user, link); err != nil {
		log.Warn("failed to send verification email",
			slog.String("user_id", user.ID), slog.Any("error", err))
		sent = false
	}

	return SignupResult{User: user, VerificationSent: sent}, nil
}
