package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/fennelworks/gatehouse/internal/gatehouse/service"
	"github.com/fennelworks/gatehouse/internal/gatehouse/store"
	"github.com/fennelworks/gatehouse/pkg/httpx"
	"github.com/fennelworks/gatehouse/pkg/slogx"
)

// Router holds shared dependencies for HTTP handlers.
type Router struct {
	Mux         *http.ServeMux
	middlewares []httpx.Middleware

	buildVersion string
	startTime    time.Time
	logger       *slog.Logger
	cookieSecure bool

	store store.Store

	SignupService        *service.SignupService
	SessionService       *service.SessionService
	VerificationService  *service.VerificationService
	PasswordResetService *service.PasswordResetService
	RolesService         *service.RolesService
	FederationService    *service.FederationService // Optional: nil when no providers configured
}

func NewRouter(
	buildVersion string,
	st store.Store,
	logger *slog.Logger,
	guard *httpx.Guard,
	cookieSecure bool,
) *Router {
	r := &Router{
		Mux:          http.NewServeMux(),
		buildVersion: buildVersion,
		startTime:    time.Now(),
		logger:       logger,
		cookieSecure: cookieSecure,
		store:        st,
	}

	// Set default middleware chain. The route guard runs before handlers and
	// redirects page routes on bare cookie presence; API routes pass through.
	r.middlewares = []httpx.Middleware{
		slogx.HTTPMiddleware(r.logger),
		guard.Middleware(hasSessionCookie),
	}

	return r
}

func (r *Router) ApplyRoutes() {
	r.registerSignup()
	r.registerSessions()
	r.registerVerification()
	r.registerPasswordReset()
	r.registerIdentity()
	r.registerUsers()
	r.registerSystem()
}

// ServeHTTP implements http.Handler for Router and applies the global
// middleware chain.
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	httpx.Chain(r.Mux, r.middlewares...).ServeHTTP(w, req)
}

func (r *Router) registerSignup() {
	h := &SignupHandler{SignupService: r.SignupService}

	// POST /signup - strict rate limit by IP (public account creation)
	r.Mux.Handle("POST /v1/signup",
		httpx.Chain(h,
			httpx.RateLimitByIP(httpx.StrictLimit),
		),
	)
}

func (r *Router) registerSessions() {
	loginHandler := &LoginHandler{
		SessionService: r.SessionService,
		CookieSecure:   r.cookieSecure,
	}
	logoutHandler := &LogoutHandler{
		SessionService: r.SessionService,
		CookieSecure:   r.cookieSecure,
	}

	// POST /login - strict rate limit by IP + email form field to slow
	// per-account brute force
	r.Mux.Handle("POST /v1/login",
		httpx.Chain(loginHandler,
			httpx.RateLimitByIPAndFormField(httpx.StrictLimit, "email"),
		),
	)

	// POST /logout - moderate rate limit
	r.Mux.Handle("POST /v1/logout",
		httpx.Chain(logoutHandler,
			httpx.RateLimitByIP(httpx.ModerateLimit),
		),
	)
}

func (r *Router) registerVerification() {
	verifyHandler := &VerifyEmailHandler{
		VerificationService: r.VerificationService,
		CookieSecure:        r.cookieSecure,
	}
	resendHandler := &ResendVerificationHandler{VerificationService: r.VerificationService}

	// GET /verify-email - moderate rate limit (emailed link, single use)
	r.Mux.Handle("GET /v1/verify-email",
		httpx.Chain(verifyHandler,
			httpx.RateLimitByIP(httpx.ModerateLimit),
		),
	)

	// POST /verify-email/resend - strict rate limit (sends mail)
	r.Mux.Handle("POST /v1/verify-email/resend",
		httpx.Chain(resendHandler,
			httpx.RateLimitByIPAndFormField(httpx.StrictLimit, "email"),
		),
	)
}

func (r *Router) registerPasswordReset() {
	h := &PasswordResetHandler{PasswordResetService: r.PasswordResetService}

	// POST /password-reset/request - strict rate limit (sends mail)
	r.Mux.Handle("POST /v1/password-reset/request",
		httpx.Chain(http.HandlerFunc(h.HandleRequest),
			httpx.RateLimitByIPAndFormField(httpx.StrictLimit, "email"),
		),
	)

	// POST /password-reset/finalize - strict rate limit (token guessing)
	r.Mux.Handle("POST /v1/password-reset/finalize",
		httpx.Chain(http.HandlerFunc(h.HandleFinalize),
			httpx.RateLimitByIP(httpx.StrictLimit),
		),
	)
}

func (r *Router) registerIdentity() {
	if r.FederationService == nil {
		return
	}
	h := &IdentityHandler{
		FederationService: r.FederationService,
		CookieSecure:      r.cookieSecure,
	}

	// POST /identity/{provider} - strict rate limit (authentication attempts)
	r.Mux.Handle("POST /v1/identity/{provider}",
		httpx.Chain(h,
			httpx.RateLimitByIP(httpx.StrictLimit),
		),
	)
}

func (r *Router) registerUsers() {
	userinfoHandler := &UserInfoHandler{Store: r.store}
	rolesHandler := &RolesHandler{RolesService: r.RolesService}

	// GET /userinfo - authenticated, lenient rate limit by user
	r.Mux.Handle("GET /v1/userinfo",
		httpx.Chain(userinfoHandler,
			r.sessionMiddleware(),
			httpx.RateLimitByUser(httpx.LenientLimit),
		),
	)

	// POST /users/{id}/role - admin mutation, moderate rate limit by user
	r.Mux.Handle("POST /v1/users/{id}/role",
		httpx.Chain(http.HandlerFunc(rolesHandler.HandleSetRole),
			r.sessionMiddleware(),
			httpx.RateLimitByUser(httpx.ModerateLimit),
		),
	)

	// GET /users - admin read, moderate rate limit by user
	r.Mux.Handle("GET /v1/users",
		httpx.Chain(http.HandlerFunc(rolesHandler.HandleListUsers),
			r.sessionMiddleware(),
			httpx.RateLimitByUser(httpx.ModerateLimit),
		),
	)
}

func (r *Router) registerSystem() {
	// Health check endpoints - lenient rate limits (monitoring systems poll)
	r.Mux.Handle("GET /livez",
		httpx.Chain(LivezHandler(r.startTime, r.buildVersion),
			httpx.RateLimitByIP(httpx.LenientLimit),
		),
	)
	r.Mux.Handle("GET /readyz",
		httpx.Chain(ReadyzHandler(r.startTime, r.buildVersion, r.store),
			httpx.RateLimitByIP(httpx.LenientLimit),
		),
	)
}
