package httpx

import (
	"net/http"
	"strings"
)

// Decision is the outcome of the route guard for one request.
type Decision int

const (
	// Allow passes the request through unchanged.
	Allow Decision = iota
	// RedirectLogin sends an unauthenticated caller to the login page.
	RedirectLogin
	// RedirectLanding sends an already-authenticated caller away from
	// auth-only pages (login, signup) to the landing page.
	RedirectLanding
)

// RouteConfig classifies request paths for the guard.
type RouteConfig struct {
	// Protected paths require a session. Matched exactly.
	Protected []string
	// AuthOnly paths are for unauthenticated users only. Matched by prefix.
	AuthOnly []string
	// LoginPath is where unauthenticated callers of protected paths go.
	LoginPath string
	// LandingPath is where authenticated callers of auth-only paths go.
	LandingPath string
}

// Guard decides, before any handler runs, whether a request may proceed.
// The decision is based only on session-cookie presence; full session
// validation happens downstream on the endpoints that need an identity.
type Guard struct {
	protected map[string]struct{}
	authOnly  []string

	loginPath   string
	landingPath string
}

// NewGuard builds an immutable Guard from the route configuration.
func NewGuard(cfg RouteConfig) *Guard {
	protected := make(map[string]struct{}, len(cfg.Protected))
	for _, p := range cfg.Protected {
		protected[p] = struct{}{}
	}

	return &Guard{
		protected:   protected,
		authOnly:    append([]string(nil), cfg.AuthOnly...),
		loginPath:   cfg.LoginPath,
		landingPath: cfg.LandingPath,
	}
}

// Decide classifies path and returns the guard decision for a caller whose
// session indicator is hasSession.
func (g *Guard) Decide(path string, hasSession bool) Decision {
	if _, ok := g.protected[path]; ok && !hasSession {
		return RedirectLogin
	}

	if hasSession {
		for _, prefix := range g.authOnly {
			if strings.HasPrefix(path, prefix) {
				return RedirectLanding
			}
		}
	}

	return Allow
}

// LoginPath returns the configured login redirect target.
func (g *Guard) LoginPath() string { return g.loginPath }

// LandingPath returns the configured authenticated landing page.
func (g *Guard) LandingPath() string { return g.landingPath }

// Middleware applies the guard to every request. hasSession reports a cheap
// session-presence signal, typically cookie presence.
func (g *Guard) Middleware(hasSession func(*http.Request) bool) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch g.Decide(r.URL.Path, hasSession(r)) {
			case RedirectLogin:
				http.Redirect(w, r, g.loginPath, http.StatusSeeOther)
			case RedirectLanding:
				http.Redirect(w, r, g.landingPath, http.StatusSeeOther)
			default:
				next.ServeHTTP(w, r)
			}
		})
	}
}
