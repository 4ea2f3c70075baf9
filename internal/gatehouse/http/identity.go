package http

import (
	"errors"
	"net/http"

	"github.com/fennelworks/gatehouse/internal/gatehouse/service"
	"github.com/fennelworks/gatehouse/pkg/httpx"
	"github.com/fennelworks/gatehouse/pkg/slogx"
)

type IdentityHandler struct {
	FederationService *service.FederationService
	CookieSecure      bool
}

// ServeHTTP exchanges a provider-issued ID token for a first-party session.
// The provider name comes from the path; the raw ID token from the form.
func (h *IdentityHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	provider := r.PathValue("provider")

	if err := r.ParseForm(); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "Invalid form data")
		return
	}
	idToken := r.FormValue("id_token")
	if idToken == "" {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "id_token is required")
		return
	}

	session, raw, user, err := h.FederationService.Exchange(ctx, provider, idToken)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrUnknownProvider):
			httpx.WriteError(w, http.StatusBadRequest, "unknown_provider", "Identity provider is not configured")
		case errors.Is(err, service.ErrInvalidProviderToken):
			httpx.WriteError(w, http.StatusUnauthorized, "invalid_provider_token", "Identity token could not be verified")
		case errors.Is(err, service.ErrAccountExists):
			httpx.WriteError(w, http.StatusConflict, "account_exists", "An account with this email already exists")
		default:
			log.Error("identity exchange failed", "provider", provider, "err", err)
			httpx.WriteError(w, http.StatusInternalServerError, "server_error", "Failed to sign in with provider")
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
