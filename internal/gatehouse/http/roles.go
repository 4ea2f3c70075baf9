package http

import (
	"errors"
	"net/http"
	"time"

	"github.com/fennelworks/gatehouse/internal/gatehouse/domain"
	"github.com/fennelworks/gatehouse/internal/gatehouse/service"
	"github.com/fennelworks/gatehouse/pkg/httpx"
	"github.com/fennelworks/gatehouse/pkg/slogx"
)

type RolesHandler struct {
	RolesService *service.RolesService
}

type SetRoleResponse struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
	Role   string `json:"role"`
}

type UserSummary struct {
	UserID    string    `json:"user_id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	Role      string    `json:"role"`
	Verified  bool      `json:"verified"`
	CreatedAt time.Time `json:"created_at"`
}

type ListUsersResponse struct {
	Users []UserSummary `json:"users"`
}

// HandleSetRole changes the target user's role. The authorization gate in the
// service decides; a denial is a generic forbidden.
func (h *RolesHandler) HandleSetRole(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	targetID := r.PathValue("id")

	if err := r.ParseForm(); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "Invalid form data")
		return
	}
	role := r.FormValue("role")
	if role == "" {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "role is required")
		return
	}

	raw, ok := sessionToken(r)
	if !ok {
		httpx.WriteError(w, http.StatusUnauthorized, "no_session", "Authentication required")
		return
	}

	target, err := h.RolesService.SetRole(ctx, raw, targetID, domain.Role(role))
	if err != nil {
		switch {
		case errors.Is(err, service.ErrNoSession):
			httpx.WriteError(w, http.StatusUnauthorized, "no_session", "Authentication required")
		case errors.Is(err, service.ErrForbidden):
			httpx.WriteError(w, http.StatusForbidden, "forbidden", "You are not allowed to perform this action")
		case errors.Is(err, service.ErrUnknownRole):
			httpx.WriteError(w, http.StatusBadRequest, "unknown_role", "Role must be USER or ADMIN")
		case errors.Is(err, service.ErrUnknownUser):
			httpx.WriteError(w, http.StatusNotFound, "unknown_user", "No such user")
		default:
			log.Error("role change failed", "target_id", targetID, "err", err)
			httpx.WriteError(w, http.StatusInternalServerError, "server_error", "Failed to change role")
		}
		return
	}

	httpx.WriteJSON(w, http.StatusOK, SetRoleResponse{
		UserID: target.ID,
		Email:  target.Email,
		Role:   string(target.Role),
	})
}

// HandleListUsers returns every account, newest first.
func (h *RolesHandler) HandleListUsers(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	raw, ok := sessionToken(r)
	if !ok {
		httpx.WriteError(w, http.StatusUnauthorized, "no_session", "Authentication required")
		return
	}

	users, err := h.RolesService.ListUsers(ctx, raw)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrNoSession):
			httpx.WriteError(w, http.StatusUnauthorized, "no_session", "Authentication required")
		case errors.Is(err, service.ErrForbidden):
			httpx.WriteError(w, http.StatusForbidden, "forbidden", "You are not allowed to perform this action")
		default:
			log.Error("user listing failed", "err", err)
			httpx.WriteError(w, http.StatusInternalServerError, "server_error", "Failed to list users")
		}
		return
	}

	resp := ListUsersResponse{Users: make([]UserSummary, 0, len(users))}
	for _, u := range users {
		resp.Users = append(resp.Users, UserSummary{
			UserID:    u.ID,
			Email:     u.Email,
			Name:      u.Name,
			Role:      string(u.Role),
			Verified:  u.Verified,
			CreatedAt: u.CreatedAt,
		})
	}
	httpx.WriteJSON(w, http.StatusOK, resp)
}
