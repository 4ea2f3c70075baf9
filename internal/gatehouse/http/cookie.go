package http

import (
	"net/http"
	"time"
)

// SessionCookieName carries the opaque session token. The cookie is the only
// client-side session state; everything else lives server-side.
const SessionCookieName = "gatehouse_session"

func setSessionCookie(w http.ResponseWriter, token string, expiresAt time.Time, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    token,
		Path:     "/",
		Expires:  expiresAt,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	})
}

func clearSessionCookie(w http.ResponseWriter, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// sessionToken extracts the raw session token from the request cookie.
func sessionToken(r *http.Request) (string, bool) {
	c, err := r.Cookie(SessionCookieName)
	if err != nil || c.Value == "" {
		return "", false
	}
	return c.Value, true
}

// hasSessionCookie reports bare cookie presence. The route guard keys off
// presence alone; actual validity is checked by whatever handles the request.
func hasSessionCookie(r *http.Request) bool {
	_, ok := sessionToken(r)
	return ok
}
