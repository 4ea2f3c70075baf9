package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/MicahParks/keyfunc/v2"
	"github.com/fennelworks/gatehouse/internal/gatehouse/domain"
	"github.com/fennelworks/gatehouse/internal/gatehouse/policy"
	"github.com/fennelworks/gatehouse/internal/gatehouse/store"
	"github.com/fennelworks/gatehouse/pkg/idx"
	"github.com/fennelworks/gatehouse/pkg/slogx"
	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrUnknownProvider      = errors.New("unknown_provider")
	ErrInvalidProviderToken = errors.New("invalid_provider_token")
	ErrAccountExists        = errors.New("account_exists")
)

// Provider describes an external OIDC identity provider whose ID tokens we
// accept in exchange for a session.
type Provider struct {
	Name     string // e.g. "google", "github"
	Issuer   string // expected iss claim
	JWKSURL  string // where the provider publishes its signing keys
	Audience string // our client ID at the provider
}

type providerVerifier struct {
	provider Provider
	jwks     *keyfunc.JWKS
}

// FederationService exchanges externally issued identity tokens for local
// sessions. The handshake with the provider happens entirely on the client;
// this service only sees the resulting ID token.
type FederationService struct {
	Store    store.Store
	Sessions *SessionService

	// AdminEmails mirrors SignupService: the creation-time role allow-list
	// applies however the account comes into existence.
	AdminEmails []string

	providers map[string]*providerVerifier
}

// NewFederationService fetches each provider's JWKS and keeps it refreshed in
// the background for token verification.
func NewFederationService(st store.Store, sessions *SessionService, adminEmails []string, providers []Provider) (*FederationService, error) {
	s := &FederationService{
		Store:       st,
		Sessions:    sessions,
		AdminEmails: adminEmails,
		providers:   make(map[string]*providerVerifier, len(providers)),
	}

	for _, p := range providers {
		jwks, err := keyfunc.Get(p.JWKSURL, keyfunc.Options{
			RefreshInterval:   time.Hour,
			RefreshTimeout:    10 * time.Second,
			RefreshUnknownKID: true,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to fetch JWKS for provider %s: %w", p.Name, err)
		}
		s.providers[p.Name] = &providerVerifier{provider: p, jwks: jwks}
	}

	return s, nil
}

// Close stops the background JWKS refresh goroutines.
func (s *FederationService) Close() {
	for _, pv := range s.providers {
		pv.jwks.EndBackground()
	}
}

type providerClaims struct {
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
	Name          string `json:"name"`
	jwt.RegisteredClaims
}

// Exchange verifies a provider-issued ID token and returns a local session.
// A first-time subject with an unused email gets a fresh account, already
// verified since the provider attests email ownership. Account linking is
// disabled: if the email belongs to an existing account without this
// identity, the exchange is rejected.
func (s *FederationService) Exchange(ctx context.Context, providerName, rawIDToken string) (domain.Session, string, domain.User, error) {
	log := slogx.FromContext(ctx)

	pv, ok := s.providers[providerName]
	if !ok {
		return domain.Session{}, "", domain.User{}, ErrUnknownProvider
	}

	var claims providerClaims
	_, err := jwt.ParseWithClaims(rawIDToken, &claims, pv.jwks.Keyfunc,
		jwt.WithIssuer(pv.provider.Issuer),
		jwt.WithAudience(pv.provider.Audience),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		log.Info("provider token verification failed",
			slog.String("provider", providerName), slog.Any("error", err))
		return domain.Session{}, "", domain.User{}, ErrInvalidProviderToken
	}

	subject := claims.Subject
	email := strings.ToLower(strings.TrimSpace(claims.Email))
	if subject == "" || email == "" || !claims.EmailVerified {
		return domain.Session{}, "", domain.User{}, ErrInvalidProviderToken
	}

	user, err := s.resolveUser(ctx, providerName, subject, email, claims.Name)
	if err != nil {
		return domain.Session{}, "", domain.User{}, err
	}

	session, raw, err := s.Sessions.Create(ctx, user)
	if err != nil {
		return domain.Session{}, "", domain.User{}, err
	}
	return session, raw, user, nil
}

func (s *FederationService) resolveUser(ctx context.Context, provider, subject, email, name string) (domain.User, error) {
	log := slogx.FromContext(ctx)

	identity, err := s.Store.Identities().GetIdentity(ctx, provider, subject)
	if err == nil {
		return s.Store.Users().GetUserByID(ctx, identity.UserID)
	}
	if !errors.Is(err, store.ErrNotFound) {
		return domain.User{}, err
	}

	// New subject. An existing account under the same email blocks the
	// exchange since linking is disabled.
	if _, err := s.Store.Users().GetUserByEmail(ctx, email); err == nil {
		log.Info("federated signup blocked by existing account",
			slog.String("provider", provider))
		return domain.User{}, ErrAccountExists
	} else if !errors.Is(err, store.ErrNotFound) {
		return domain.User{}, err
	}

	user := domain.User{
		ID:       idx.New().String(),
		Email:    email,
		Name:     policy.NormalizeName(name),
		Role:     roleForEmail(email, s.AdminEmails),
		Verified: true, // provider attested email ownership
	}

	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		if err := tx.Users().CreateUser(ctx, user); err != nil {
			return err
		}
		return tx.Identities().CreateIdentity(ctx, domain.Identity{
			ID:       idx.New().String(),
			UserID:   user.ID,
			Provider: provider,
			Subject:  subject,
		})
	})
	if err != nil {
		if errors.Is(err, store.ErrAlreadyExists) {
			// Concurrent exchange for the same subject or email.
			return domain.User{}, ErrAccountExists
		}
		return domain.User{}, err
	}

	log.Info("user registered via identity provider",
		slog.String("user_id", user.ID),
		slog.String("provider", provider),
	)
	return user, nil
}

func roleForEmail(email string, adminEmails []string) domain.Role {
	for _, admin := range adminEmails {
		if strings.EqualFold(strings.TrimSpace(admin), email) {
			return domain.RoleAdmin
		}
	}
	return domain.RoleUser
}
