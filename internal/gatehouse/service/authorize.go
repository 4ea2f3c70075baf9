package service

import (
	"context"
	"errors"

	"github.com/fennelworks/gatehouse/internal/gatehouse/domain"
	"github.com/fennelworks/gatehouse/pkg/slogx"
)

// ErrForbidden is deliberately generic: a denial never reveals which rule
// failed.
var ErrForbidden = errors.New("forbidden")

// AuthorizeService is the authorization gate. It resolves a session to its
// bound user's role and consults the permission table; every privileged
// mutation must pass through here synchronously before executing.
type AuthorizeService struct {
	Sessions    *SessionService
	Permissions *domain.Permissions
}

// Authorize resolves the raw session token and checks that its user's role
// holds action. Returns the resolved user on success, ErrNoSession for an
// unauthenticated caller, and ErrForbidden on denial.
func (s *AuthorizeService) Authorize(ctx context.Context, rawSessionToken string, action domain.Action) (domain.User, error) {
	_, user, err := s.Sessions.Validate(ctx, rawSessionToken)
	if err != nil {
		return domain.User{}, err
	}

	if !s.Permissions.Has(user.Role, action) {
		slogx.FromContext(ctx).Info("authorization denied",
			"user_id", user.ID,
			"role", string(user.Role),
			"action", string(action),
		)
		return domain.User{}, ErrForbidden
	}

	return user, nil
}
