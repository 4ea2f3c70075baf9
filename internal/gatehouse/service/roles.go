package service

import (
	"context"
	"errors"
	"log/slog"

	"github.com/fennelworks/gatehouse/internal/gatehouse/domain"
	"github.com/fennelworks/gatehouse/internal/gatehouse/store"
	"github.com/fennelworks/gatehouse/pkg/slogx"
)

var (
	ErrUnknownRole = errors.New("unknown_role")
	ErrUnknownUser = errors.New("unknown_user")
)

// RolesService handles admin-gated user administration. Every mutation
// consults the authorization gate first; the permission table is never
// bypassed.
type RolesService struct {
	Store     store.Store
	Authorize *AuthorizeService
}

// SetRole changes the target user's role on behalf of the acting session.
// The acting caller must hold user:set-role (i.e. be ADMIN); the update is a
// single atomic store transition so concurrent role changes cannot interleave.
func (s *RolesService) SetRole(ctx context.Context, actingSessionToken, targetUserID string, newRole domain.Role) (domain.User, error) {
	log := slogx.FromContext(ctx)

	actor, err := s.Authorize.Authorize(ctx, actingSessionToken, domain.ActionSetRole)
	if err != nil {
		return domain.User{}, err
	}

	if _, ok := domain.ParseRole(string(newRole)); !ok {
		return domain.User{}, ErrUnknownRole
	}

	var target domain.User
	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		target, err = tx.Users().GetUserByID(ctx, targetUserID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return ErrUnknownUser
			}
			return err
		}

		if err := tx.Users().SetRole(ctx, targetUserID, newRole); err != nil {
			return err
		}
		target.Role = newRole
		return nil
	})
	if err != nil {
		return domain.User{}, err
	}

	log.Info("user role changed",
		slog.String("actor_id", actor.ID),
		slog.String("target_id", target.ID),
		slog.String("new_role", string(newRole)),
	)
	return target, nil
}

// ListUsers returns every account, newest first. Requires user:list.
func (s *RolesService) ListUsers(ctx context.Context, actingSessionToken string) ([]domain.User, error) {
	if _, err := s.Authorize.Authorize(ctx, actingSessionToken, domain.ActionListUsers); err != nil {
		return nil, err
	}
	return s.Store.Users().ListUsers(ctx)
}
