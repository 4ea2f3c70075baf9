package http

import (
	"net/http"
	"time"

	"github.com/fennelworks/gatehouse/internal/gatehouse/store"
	"github.com/fennelworks/gatehouse/pkg/httpx"
	"github.com/fennelworks/gatehouse/pkg/slogx"
)

type UserInfoHandler struct {
	Store store.Store
}

type UserInfoResponse struct {
	UserID    string    `json:"user_id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	Role      string    `json:"role"`
	Verified  bool      `json:"verified"`
	CreatedAt time.Time `json:"created_at"`
}

// ServeHTTP returns the authenticated user's own account. Runs behind the
// session middleware, so the context always carries a validated identity.
func (h *UserInfoHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	userID := httpx.UserIDFromContext(ctx)
	if userID == "" {
		httpx.WriteError(w, http.StatusUnauthorized, "no_session", "Authentication required")
		return
	}

	user, err := h.Store.Users().GetUserByID(ctx, userID)
	if err != nil {
		log.Warn("failed to load user", "user_id", userID, "err", err)
		httpx.WriteError(w, http.StatusInternalServerError, "server_error", "Failed to load account")
		return
	}

	httpx.WriteJSON(w, http.StatusOK, UserInfoResponse{
		UserID:    user.ID,
		Email:     user.Email,
		Name:      user.Name,
		Role:      string(user.Role),
		Verified:  user.Verified,
		CreatedAt: user.CreatedAt,
	})
}
