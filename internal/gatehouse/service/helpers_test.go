package service

import (
	"context"
	"errors"
	"net/url"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/fennelworks/gatehouse/internal/gatehouse/domain"
	"github.com/fennelworks/gatehouse/internal/gatehouse/policy"
	"github.com/fennelworks/gatehouse/internal/gatehouse/store"
	"github.com/fennelworks/gatehouse/internal/gatehouse/store/drivers/sqlite"
	"github.com/fennelworks/gatehouse/pkg/cryptox"
	"github.com/fennelworks/gatehouse/pkg/mailx"
)

// testEnv wires the service layer against an in-memory sqlite store and a
// capturing mailer, mirroring the production assembly in app.
type testEnv struct {
	store        store.Store
	mailer       *captureMailer
	sessions     *SessionService
	verification *VerificationService
	signup       *SignupService
	authorize    *AuthorizeService
	roles        *RolesService
	reset        *PasswordResetService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	cryptox.SetPepperPath(filepath.Join(t.TempDir(), "pepper"))

	st, err := sqlite.NewStore(":memory:")
	require.NoError(t, err)
	require.NoError(t, st.ApplyMigrations())
	t.Cleanup(func() { _ = st.Close() })

	mailer := &captureMailer{}
	sessions := &SessionService{Store: st}
	verification := &VerificationService{
		Store:      st,
		Mailer:     mailer,
		Sessions:   sessions,
		BaseURL:    "http://localhost:8080",
		AutoSignIn: true,
	}
	authorize := &AuthorizeService{
		Sessions:    sessions,
		Permissions: domain.NewPermissions(),
	}

	return &testEnv{
		store:        st,
		mailer:       mailer,
		sessions:     sessions,
		verification: verification,
		signup: &SignupService{
			Store:        st,
			Verification: verification,
			Policy:       policy.Policy{},
		},
		authorize: authorize,
		roles: &RolesService{
			Store:     st,
			Authorize: authorize,
		},
		reset: &PasswordResetService{
			Store:        st,
			Verification: verification,
			Sessions:     sessions,
		},
	}
}

// mustSignup registers a user through the real signup path.
func (e *testEnv) mustSignup(t *testing.T, email, name, password string) domain.User {
	t.Helper()
	res, err := e.signup.Signup(context.Background(), email, name, password)
	require.NoError(t, err)
	return res.User
}

// mustVerifiedUser registers a user and consumes the emailed verification
// token so the account can log in.
func (e *testEnv) mustVerifiedUser(t *testing.T, email, name, password string) domain.User {
	t.Helper()
	_ = e.mustSignup(t, email, name, password)
	verified, _, err := e.verification.VerifyEmail(context.Background(), e.mailer.lastToken(t))
	require.NoError(t, err)
	return verified
}

// captureMailer records outgoing mail instead of sending it. With fail set,
// every Send errors.
type captureMailer struct {
	mu   sync.Mutex
	sent []sentMail
	fail bool
}

type sentMail struct {
	To      string
	Subject string
	Msg     mailx.Message
}

func (m *captureMailer) Send(_ context.Context, to, subject string, msg mailx.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail {
		return errors.New("smtp unavailable")
	}
	m.sent = append(m.sent, sentMail{To: to, Subject: subject, Msg: msg})
	return nil
}

func (m *captureMailer) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sent)
}

// lastToken extracts the raw token from the link of the most recent mail.
func (m *captureMailer) lastToken(t *testing.T) string {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	require.NotEmpty(t, m.sent, "no mail was sent")

	u, err := url.Parse(m.sent[len(m.sent)-1].Msg.Link)
	require.NoError(t, err)
	token := u.Query().Get("token")
	require.NotEmpty(t, token)
	return token
}
