package http

import (
	"net/http"

	"github.com/fennelworks/gatehouse/internal/gatehouse/service"
	"github.com/fennelworks/gatehouse/pkg/httpx"
	"github.com/fennelworks/gatehouse/pkg/slogx"
)

type LogoutHandler struct {
	SessionService *service.SessionService
	CookieSecure   bool
}

// ServeHTTP revokes the current session. Idempotent: logging out without a
// session, or twice, succeeds either way.
func (h *LogoutHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if raw, ok := sessionToken(r); ok {
		if err := h.SessionService.Revoke(ctx, raw); err != nil {
			slogx.FromContext(ctx).Error("failed to revoke session", "err", err)
			httpx.WriteError(w, http.StatusInternalServerError, "server_error", "Failed to sign out")
			return
		}
	}

	clearSessionCookie(w, h.CookieSecure)
	w.WriteHeader(http.StatusNoContent)
}
