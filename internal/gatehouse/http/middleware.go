package http

import (
	"errors"
	"net/http"

	"github.com/fennelworks/gatehouse/internal/gatehouse/service"
	"github.com/fennelworks/gatehouse/pkg/httpx"
	"github.com/fennelworks/gatehouse/pkg/slogx"
)

// sessionMiddleware resolves the session cookie to its bound user and injects
// the identity into the request context. Requests without a valid session are
// rejected with 401 before the handler runs.
func (r *Router) sessionMiddleware() httpx.Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			raw, ok := sessionToken(req)
			if !ok {
				httpx.WriteError(w, http.StatusUnauthorized, "no_session", "Authentication required")
				return
			}

			session, user, err := r.SessionService.Validate(req.Context(), raw)
			if err != nil {
				if errors.Is(err, service.ErrNoSession) {
					httpx.WriteError(w, http.StatusUnauthorized, "no_session", "Authentication required")
					return
				}
				slogx.FromContext(req.Context()).Error("session validation failed", "err", err)
				httpx.WriteError(w, http.StatusInternalServerError, "server_error", "Failed to validate session")
				return
			}

			ctx := httpx.ContextWithSession(req.Context(), user.ID, string(user.Role), session.ID)
			next.ServeHTTP(w, req.WithContext(ctx))
		})
	}
}
