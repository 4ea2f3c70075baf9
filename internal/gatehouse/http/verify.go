package http

import (
	"errors"
	"net/http"
	"time"

	"github.com/fennelworks/gatehouse/internal/gatehouse/service"
	"github.com/fennelworks/gatehouse/pkg/httpx"
	"github.com/fennelworks/gatehouse/pkg/slogx"
)

type VerifyEmailHandler struct {
	VerificationService *service.VerificationService
	CookieSecure        bool
}

// VerifyEmailResponse reports the outcome of redeeming a verification link.
// SignedIn is true when auto sign-in established a session (the cookie is set
// on the same response).
type VerifyEmailResponse struct {
	UserID   string `json:"user_id"`
	Email    string `json:"email"`
	Verified bool   `json:"verified"`
	SignedIn bool   `json:"signed_in"`
}

func (h *VerifyEmailHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	token := r.URL.Query().Get("token")
	if token == "" {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "token is required")
		return
	}

	user, sessionToken, err := h.VerificationService.VerifyEmail(ctx, token)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrTokenExpired):
			httpx.WriteError(w, http.StatusBadRequest, "token_expired", "Verification link has expired; request a new one")
		case errors.Is(err, service.ErrTokenInvalid):
			httpx.WriteError(w, http.StatusBadRequest, "token_invalid", "Verification link is invalid or already used")
		default:
			log.Error("email verification failed", "err", err)
			httpx.WriteError(w, http.StatusInternalServerError, "server_error", "Failed to verify email")
		}
		return
	}

	signedIn := sessionToken != ""
	if signedIn {
		expires := time.Now().Add(h.VerificationService.Sessions.TTLOrDefault())
		setSessionCookie(w, sessionToken, expires, h.CookieSecure)
	}

	httpx.WriteJSON(w, http.StatusOK, VerifyEmailResponse{
		UserID:   user.ID,
		Email:    user.Email,
		Verified: true,
		SignedIn: signedIn,
	})
}

type ResendVerificationHandler struct {
	VerificationService *service.VerificationService
}

// ServeHTTP reissues a verification email. Always 202 for well-formed
// requests so the endpoint cannot enumerate accounts.
func (h *ResendVerificationHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
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

	if err := h.VerificationService.Resend(ctx, email); err != nil {
		slogx.FromContext(ctx).Error("verification resend failed", "err", err)
		httpx.WriteError(w, http.StatusInternalServerError, "server_error", "Failed to resend verification email")
		return
	}

	w.WriteHeader(http.StatusAccepted)
}
