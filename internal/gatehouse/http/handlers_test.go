package http

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/fennelworks/gatehouse/internal/gatehouse/domain"
	"github.com/fennelworks/gatehouse/internal/gatehouse/policy"
	"github.com/fennelworks/gatehouse/internal/gatehouse/service"
	"github.com/fennelworks/gatehouse/internal/gatehouse/store/drivers/sqlite"
	"github.com/fennelworks/gatehouse/pkg/cryptox"
	"github.com/fennelworks/gatehouse/pkg/httpx"
	"github.com/fennelworks/gatehouse/pkg/mailx"
)

type testAPI struct {
	server *httptest.Server
	mailer *recordingMailer
	signup *service.SignupService
}

type recordingMailer struct {
	mu   sync.Mutex
	sent []mailx.Message
}

func (m *recordingMailer) Send(_ context.Context, _, _ string, msg mailx.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, msg)
	return nil
}

func (m *recordingMailer) lastToken(t *testing.T) string {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	require.NotEmpty(t, m.sent, "no mail was sent")
	u, err := url.Parse(m.sent[len(m.sent)-1].Link)
	require.NoError(t, err)
	token := u.Query().Get("token")
	require.NotEmpty(t, token)
	return token
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()

	cryptox.SetPepperPath(filepath.Join(t.TempDir(), "pepper"))

	st, err := sqlite.NewStore(":memory:")
	require.NoError(t, err)
	require.NoError(t, st.ApplyMigrations())
	t.Cleanup(func() { _ = st.Close() })

	mailer := &recordingMailer{}
	sessions := &service.SessionService{Store: st}
	verification := &service.VerificationService{
		Store:      st,
		Mailer:     mailer,
		Sessions:   sessions,
		BaseURL:    "http://localhost:8080",
		AutoSignIn: true,
	}
	authorize := &service.AuthorizeService{
		Sessions:    sessions,
		Permissions: domain.NewPermissions(),
	}
	signup := &service.SignupService{
		Store:        st,
		Verification: verification,
		Policy:       policy.Policy{},
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	guard := httpx.NewGuard(httpx.RouteConfig{
		Protected:   []string{"/profile", "/admin/dashboard"},
		AuthOnly:    []string{"/auth"},
		LoginPath:   "/auth/login",
		LandingPath: "/profile",
	})

	router := NewRouter("test", st, logger, guard, false)
	router.SignupService = signup
	router.SessionService = sessions
	router.VerificationService = verification
	router.PasswordResetService = &service.PasswordResetService{
		Store:        st,
		Verification: verification,
		Sessions:     sessions,
	}
	router.RolesService = &service.RolesService{Store: st, Authorize: authorize}
	router.ApplyRoutes()

	server := httptest.NewServer(router)
	t.Cleanup(server.Close)

	return &testAPI{server: server, mailer: mailer, signup: signup}
}

// client returns an http client with a cookie jar and redirects disabled so
// tests can assert on 303 responses directly.
func (a *testAPI) client(t *testing.T) *http.Client {
	t.Helper()
	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	return &http.Client{
		Jar: jar,
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
}

func (a *testAPI) postForm(t *testing.T, c *http.Client, path string, form url.Values) *http.Response {
	t.Helper()
	req, err := http.NewRequest(http.MethodPost, a.server.URL+path, strings.NewReader(form.Encode()))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	resp, err := c.Do(req)
	require.NoError(t, err)
	return resp
}

func (a *testAPI) get(t *testing.T, c *http.Client, path string) *http.Response {
	t.Helper()
	resp, err := c.Get(a.server.URL + path)
	require.NoError(t, err)
	return resp
}

func decodeJSON[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	defer resp.Body.Close()
	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

// signupAndVerify drives a user through signup and email verification over
// the real endpoints. The client ends up holding a session cookie from the
// auto sign-in.
func (a *testAPI) signupAndVerify(t *testing.T, c *http.Client, email, name, password string) SignupResponse {
	t.Helper()

	resp := a.postForm(t, c, "/v1/signup", url.Values{
		"email":    {email},
		"name":     {name},
		"password": {password},
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	created := decodeJSON[SignupResponse](t, resp)

	verifyResp := a.get(t, c, "/v1/verify-email?token="+url.QueryEscape(a.mailer.lastToken(t)))
	require.Equal(t, http.StatusOK, verifyResp.StatusCode)
	verifyResp.Body.Close()

	return created
}

func TestSignupEndpoint(t *testing.T) {
	api := newTestAPI(t)
	c := api.client(t)

	t.Run("success", func(t *testing.T) {
		resp := api.postForm(t, c, "/v1/signup", url.Values{
			"email":    {"jane@gmail.com"},
			"name":     {"jane doe"},
			"password": {"hunter22"},
		})
		require.Equal(t, http.StatusCreated, resp.StatusCode)

		body := decodeJSON[SignupResponse](t, resp)
		require.Equal(t, "jane@gmail.com", body.Email)
		require.Equal(t, "Jane Doe", body.Name)
		require.Equal(t, "USER", body.Role)
		require.False(t, body.Verified)
		require.True(t, body.VerificationSent)
	})

	t.Run("ineligible domain", func(t *testing.T) {
		resp := api.postForm(t, c, "/v1/signup", url.Values{
			"email":    {"jane@corp.example.net"},
			"name":     {"Jane"},
			"password": {"hunter22"},
		})
		require.Equal(t, http.StatusBadRequest, resp.StatusCode)
		body := decodeJSON[httpx.ErrorResponse](t, resp)
		require.Equal(t, "ineligible_domain", body.Error)
	})

	t.Run("duplicate email", func(t *testing.T) {
		resp := api.postForm(t, c, "/v1/signup", url.Values{
			"email":    {"jane@gmail.com"},
			"name":     {"Jane Again"},
			"password": {"hunter22"},
		})
		require.Equal(t, http.StatusConflict, resp.StatusCode)
		body := decodeJSON[httpx.ErrorResponse](t, resp)
		require.Equal(t, "email_taken", body.Error)
	})

	t.Run("missing fields", func(t *testing.T) {
		resp := api.postForm(t, c, "/v1/signup", url.Values{"email": {"x@gmail.com"}})
		require.Equal(t, http.StatusBadRequest, resp.StatusCode)
		resp.Body.Close()
	})
}

func TestLoginAndLogoutEndpoints(t *testing.T) {
	api := newTestAPI(t)
	c := api.client(t)

	api.signupAndVerify(t, c, "sam@gmail.com", "Sam", "hunter22")

	t.Run("unverified account cannot log in", func(t *testing.T) {
		fresh := api.client(t)
		resp := api.postForm(t, fresh, "/v1/signup", url.Values{
			"email":    {"pend@gmail.com"},
			"name":     {"Pending"},
			"password": {"hunter22"},
		})
		require.Equal(t, http.StatusCreated, resp.StatusCode)
		resp.Body.Close()

		resp = api.postForm(t, fresh, "/v1/login", url.Values{
			"email":    {"pend@gmail.com"},
			"password": {"hunter22"},
		})
		require.Equal(t, http.StatusForbidden, resp.StatusCode)
		body := decodeJSON[httpx.ErrorResponse](t, resp)
		require.Equal(t, "email_not_verified", body.Error)
	})

	t.Run("wrong password", func(t *testing.T) {
		resp := api.postForm(t, c, "/v1/login", url.Values{
			"email":    {"sam@gmail.com"},
			"password": {"wrong"},
		})
		require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
		body := decodeJSON[httpx.ErrorResponse](t, resp)
		require.Equal(t, "invalid_credentials", body.Error)
	})

	t.Run("login sets session cookie", func(t *testing.T) {
		resp := api.postForm(t, c, "/v1/login", url.Values{
			"email":    {"sam@gmail.com"},
			"password": {"hunter22"},
		})
		require.Equal(t, http.StatusOK, resp.StatusCode)

		var sessionCookie *http.Cookie
		for _, ck := range resp.Cookies() {
			if ck.Name == SessionCookieName {
				sessionCookie = ck
			}
		}
		require.NotNil(t, sessionCookie)
		require.True(t, sessionCookie.HttpOnly)
		require.Equal(t, http.SameSiteLaxMode, sessionCookie.SameSite)
		resp.Body.Close()

		info := api.get(t, c, "/v1/userinfo")
		require.Equal(t, http.StatusOK, info.StatusCode)
		body := decodeJSON[UserInfoResponse](t, info)
		require.Equal(t, "sam@gmail.com", body.Email)
	})

	t.Run("logout clears session", func(t *testing.T) {
		resp := api.postForm(t, c, "/v1/logout", url.Values{})
		require.Equal(t, http.StatusNoContent, resp.StatusCode)
		resp.Body.Close()

		info := api.get(t, c, "/v1/userinfo")
		require.Equal(t, http.StatusUnauthorized, info.StatusCode)
		info.Body.Close()

		// Logging out again is still a success.
		resp = api.postForm(t, c, "/v1/logout", url.Values{})
		require.Equal(t, http.StatusNoContent, resp.StatusCode)
		resp.Body.Close()
	})
}

func TestVerifyEmailEndpoint(t *testing.T) {
	api := newTestAPI(t)
	c := api.client(t)

	resp := api.postForm(t, c, "/v1/signup", url.Values{
		"email":    {"vic@gmail.com"},
		"name":     {"Vic"},
		"password": {"hunter22"},
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	resp.Body.Close()
	token := api.mailer.lastToken(t)

	t.Run("consumes token and signs in", func(t *testing.T) {
		resp := api.get(t, c, "/v1/verify-email?token="+url.QueryEscape(token))
		require.Equal(t, http.StatusOK, resp.StatusCode)
		body := decodeJSON[VerifyEmailResponse](t, resp)
		require.True(t, body.Verified)
		require.True(t, body.SignedIn)

		info := api.get(t, c, "/v1/userinfo")
		require.Equal(t, http.StatusOK, info.StatusCode)
		info.Body.Close()
	})

	t.Run("second use is rejected", func(t *testing.T) {
		resp := api.get(t, c, "/v1/verify-email?token="+url.QueryEscape(token))
		require.Equal(t, http.StatusBadRequest, resp.StatusCode)
		body := decodeJSON[httpx.ErrorResponse](t, resp)
		require.Equal(t, "token_invalid", body.Error)
	})

	t.Run("missing token", func(t *testing.T) {
		resp := api.get(t, c, "/v1/verify-email")
		require.Equal(t, http.StatusBadRequest, resp.StatusCode)
		resp.Body.Close()
	})
}

func TestPasswordResetEndpoints(t *testing.T) {
	api := newTestAPI(t)
	c := api.client(t)

	api.signupAndVerify(t, c, "rex@gmail.com", "Rex", "old-pass-1")

	resp := api.postForm(t, c, "/v1/password-reset/request", url.Values{"email": {"rex@gmail.com"}})
	require.Equal(t, http.StatusAccepted, resp.StatusCode)
	resp.Body.Close()
	token := api.mailer.lastToken(t)

	resp = api.postForm(t, c, "/v1/password-reset/finalize", url.Values{
		"token":        {token},
		"new_password": {"new-pass-1"},
	})
	require.Equal(t, http.StatusNoContent, resp.StatusCode)
	resp.Body.Close()

	// Old password rejected, new accepted.
	resp = api.postForm(t, c, "/v1/login", url.Values{
		"email":    {"rex@gmail.com"},
		"password": {"old-pass-1"},
	})
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	resp.Body.Close()

	resp = api.postForm(t, c, "/v1/login", url.Values{
		"email":    {"rex@gmail.com"},
		"password": {"new-pass-1"},
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	// Unknown email still reports accepted.
	resp = api.postForm(t, c, "/v1/password-reset/request", url.Values{"email": {"ghost@gmail.com"}})
	require.Equal(t, http.StatusAccepted, resp.StatusCode)
	resp.Body.Close()
}

func TestAdminEndpoints(t *testing.T) {
	api := newTestAPI(t)
	api.signup.AdminEmails = []string{"admin@gmail.com"}

	adminClient := api.client(t)
	api.signupAndVerify(t, adminClient, "admin@gmail.com", "Admin", "hunter22")

	userClient := api.client(t)
	target := api.signupAndVerify(t, userClient, "user@gmail.com", "User", "hunter22")

	t.Run("regular user is forbidden", func(t *testing.T) {
		resp := api.postForm(t, userClient, "/v1/users/"+target.UserID+"/role", url.Values{"role": {"ADMIN"}})
		require.Equal(t, http.StatusForbidden, resp.StatusCode)
		body := decodeJSON[httpx.ErrorResponse](t, resp)
		require.Equal(t, "forbidden", body.Error)

		list := api.get(t, userClient, "/v1/users")
		require.Equal(t, http.StatusForbidden, list.StatusCode)
		list.Body.Close()
	})

	t.Run("unauthenticated is rejected", func(t *testing.T) {
		anon := api.client(t)
		resp := api.postForm(t, anon, "/v1/users/"+target.UserID+"/role", url.Values{"role": {"ADMIN"}})
		require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
		resp.Body.Close()
	})

	t.Run("admin promotes a user", func(t *testing.T) {
		resp := api.postForm(t, adminClient, "/v1/users/"+target.UserID+"/role", url.Values{"role": {"ADMIN"}})
		require.Equal(t, http.StatusOK, resp.StatusCode)
		body := decodeJSON[SetRoleResponse](t, resp)
		require.Equal(t, "ADMIN", body.Role)
	})

	t.Run("unknown role", func(t *testing.T) {
		resp := api.postForm(t, adminClient, "/v1/users/"+target.UserID+"/role", url.Values{"role": {"ROOT"}})
		require.Equal(t, http.StatusBadRequest, resp.StatusCode)
		resp.Body.Close()
	})

	t.Run("admin lists users", func(t *testing.T) {
		resp := api.get(t, adminClient, "/v1/users")
		require.Equal(t, http.StatusOK, resp.StatusCode)
		body := decodeJSON[ListUsersResponse](t, resp)
		require.Len(t, body.Users, 2)
	})
}

func TestRouteGuard(t *testing.T) {
	api := newTestAPI(t)

	t.Run("protected path without session redirects to login", func(t *testing.T) {
		anon := api.client(t)
		resp := api.get(t, anon, "/admin/dashboard")
		require.Equal(t, http.StatusSeeOther, resp.StatusCode)
		require.Equal(t, "/auth/login", resp.Header.Get("Location"))
		resp.Body.Close()
	})

	t.Run("auth-only path with session redirects to landing", func(t *testing.T) {
		c := api.client(t)
		api.signupAndVerify(t, c, "guard@gmail.com", "Guard", "hunter22")

		resp := api.get(t, c, "/auth/login")
		require.Equal(t, http.StatusSeeOther, resp.StatusCode)
		require.Equal(t, "/profile", resp.Header.Get("Location"))
		resp.Body.Close()
	})

	t.Run("api paths pass through", func(t *testing.T) {
		anon := api.client(t)
		resp := api.get(t, anon, "/livez")
		require.Equal(t, http.StatusOK, resp.StatusCode)
		resp.Body.Close()
	})
}

func TestHealthEndpoints(t *testing.T) {
	api := newTestAPI(t)
	c := api.client(t)

	resp := api.get(t, c, "/livez")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body := decodeJSON[HealthResponse](t, resp)
	require.Equal(t, "ok", body.Status)

	resp = api.get(t, c, "/readyz")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	ready := decodeJSON[HealthResponse](t, resp)
	require.Equal(t, "ok", ready.Status)
	require.NotNil(t, ready.Checks)
	require.Equal(t, "ok", ready.Checks.Database)
}
