package http

import (
	"errors"
	"net/http"

	"github.com/fennelworks/gatehouse/internal/gatehouse/service"
	"github.com/fennelworks/gatehouse/pkg/httpx"
	"github.com/fennelworks/gatehouse/pkg/slogx"
)

type PasswordResetHandler struct {
	PasswordResetService *service.PasswordResetService
}

// HandleRequest starts the forgot-password flow. Always 202 for well-formed
// requests, whether or not the account exists.
func (h *PasswordResetHandler) HandleRequest(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if err := r.ParseForm(); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "Invalid form data")
		return
	}

	email := r.FormValue("email")
	if email == "" {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "email is required")
		return
	}

	if err := h.PasswordResetService.Request(ctx, email); err != nil {
		slogx.FromContext(ctx).Error("password reset request failed", "err", err)
		httpx.WriteError(w, http.StatusInternalServerError, "server_error", "Failed to process password reset request")
		return
	}

	w.WriteHeader(http.StatusAccepted)
}

// HandleFinalize redeems the reset token and installs the new password. All
// existing sessions of the user are revoked.
func (h *PasswordResetHandler) HandleFinalize(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	if err := r.ParseForm(); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "Invalid form data")
		return
	}

	token := r.FormValue("token")
	newPassword := r.FormValue("new_password")
	if token == "" {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "token is required")
		return
	}
	if newPassword == "" {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "new_password is required")
		return
	}

	if err := h.PasswordResetService.Finalize(ctx, token, newPassword); err != nil {
		switch {
		case errors.Is(err, service.ErrWeakPassword):
			httpx.WriteError(w, http.StatusBadRequest, "weak_password", "Password does not meet the minimum length")
		case errors.Is(err, service.ErrTokenExpired):
			httpx.WriteError(w, http.StatusBadRequest, "token_expired", "Reset link has expired; request a new one")
		case errors.Is(err, service.ErrTokenInvalid):
			httpx.WriteError(w, http.StatusBadRequest, "token_invalid", "Reset link is invalid or already used")
		default:
			log.Error("password reset finalize failed", "err", err)
			httpx.WriteError(w, http.StatusInternalServerError, "server_error", "Failed to reset password")
		}
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
