package http

import (
	"errors"
	"net/http"

	"github.com/fennelworks/gatehouse/internal/gatehouse/service"
	"github.com/fennelworks/gatehouse/pkg/httpx"
	"github.com/fennelworks/gatehouse/pkg/slogx"
)

type SignupHandler struct {
	SignupService *service.SignupService
}

// SignupResponse is returned on successful registration. The account starts
// unverified; VerificationSent=false signals the email did not go out and a
// resend is needed.
type SignupResponse struct {
	UserID           string `json:"user_id"`
	Email            string `json:"email"`
	Name             string `json:"name"`
	Role             string `json:"role"`
	Verified         bool   `json:"verified"`
	VerificationSent bool   `json:"verification_sent"`
}

func (h *SignupHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	if err := r.ParseForm(); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "Invalid form data")
		return
	}

	email := r.FormValue("email")
	name := r.FormValue("name")
	password := r.FormValue("password")

	if email == "" {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "email is required")
		return
	}
	if password == "" {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "password is required")
		return
	}

	res, err := h.SignupService.Signup(ctx, email, name, password)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidEmail):
			httpx.WriteError(w, http.StatusBadRequest, "invalid_email", "Email address is not valid")
		case errors.Is(err, service.ErrIneligibleDomain):
			httpx.WriteError(w, http.StatusBadRequest, "ineligible_domain", "Email domain is not eligible for registration")
		case errors.Is(err, service.ErrWeakPassword):
			httpx.WriteError(w, http.StatusBadRequest, "weak_password", "Password does not meet the minimum length")
		case errors.Is(err, service.ErrEmailTaken):
			httpx.WriteError(w, http.StatusConflict, "email_taken", "An account with this email already exists")
		default:
			log.Error("signup failed", "err", err)
			httpx.WriteError(w, http.StatusInternalServerError, "server_error", "Failed to create account")
		}
		return
	}

	httpx.WriteJSON(w, http.StatusCreated, SignupResponse{
		UserID:           res.User.ID,
		Email:            res.User.Email,
		Name:             res.User.Name,
		Role:             string(res.User.Role),
		Verified:         res.User.Verified,
		VerificationSent: res.VerificationSent,
	})
}
