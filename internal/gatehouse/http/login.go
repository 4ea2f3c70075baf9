package http

import (
	"errors"
	"net/http"
	"time"

	"github.com/fennelworks/gatehouse/internal/gatehouse/service"
	"github.com/fennelworks/gatehouse/pkg/httpx"
	"github.com/fennelworks/gatehouse/pkg/slogx"
)

type LoginHandler struct {
	SessionService *service.SessionService
	CookieSecure   bool
}

// LoginResponse is returned on successful authentication. The session token
// itself travels only in the HttpOnly cookie.
type LoginResponse struct {
	UserID    string    `json:"user_id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	Role      string    `json:"role"`
	ExpiresAt time.Time `json:"expires_at"`
}

func (h *LoginHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	if err := r.ParseForm(); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "Invalid form data")
		return
	}

	email := r.FormValue("email")
	password := r.FormValue("password")
	if email == "" || password == "" {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "email and password are required")
		return
	}

	session, raw, user, err := h.SessionService.Login(ctx, email, password)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidCredentials):
			httpx.WriteError(w, http.StatusUnauthorized, "invalid_credentials", "Email or password is incorrect")
		case errors.Is(err, service.ErrEmailNotVerified):
			httpx.WriteError(w, http.StatusForbidden, "email_not_verified", "Verify your email address before signing in")
		default:
			log.Error("login failed", "err", err)
			httpx.WriteError(w, http.StatusInternalServerError, "server_error", "Failed to sign in")
		}
		return
	}

	setSessionCookie(w, raw, session.ExpiresAt, h.CookieSecure)
	httpx.WriteJSON(w, http.StatusOK, LoginResponse{
		UserID:    user.ID,
		Email:     user.Email,
		Name:      user.Name,
		Role:      string(user.Role),
		ExpiresAt: session.ExpiresAt,
	})
}
