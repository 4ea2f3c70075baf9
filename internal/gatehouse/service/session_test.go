package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/fennelworks/gatehouse/internal/gatehouse/domain"
	"github.com/fennelworks/gatehouse/pkg/cryptox"
	"github.com/fennelworks/gatehouse/pkg/idx"
)

func TestLoginIssuesSession(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	user := env.mustVerifiedUser(t, "login@gmail.com", "Login", "hunter22")

	session, raw, got, err := env.sessions.Login(ctx, "Login@Gmail.com", "hunter22")
	require.NoError(t, err)
	require.Equal(t, user.ID, got.ID)
	require.NotEmpty(t, raw)
	require.NotEqual(t, raw, session.TokenHash)

	// Fixed absolute expiry, ~30 days out.
	require.WithinDuration(t, time.Now().Add(DefaultSessionTTL), session.ExpiresAt, time.Minute)

	_, resolved, err := env.sessions.Validate(ctx, raw)
	require.NoError(t, err)
	require.Equal(t, user.ID, resolved.ID)
}

func TestLoginRejectsUnverifiedEmail(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	env.mustSignup(t, "pending@gmail.com", "Pending", "hunter22")

	_, raw, _, err := env.sessions.Login(ctx, "pending@gmail.com", "hunter22")
	require.ErrorIs(t, err, ErrEmailNotVerified)
	require.Empty(t, raw)
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	env.mustVerifiedUser(t, "victim@gmail.com", "Victim", "hunter22")

	// Wrong password and unknown account fail identically.
	_, _, _, err := env.sessions.Login(ctx, "victim@gmail.com", "wrong-pass")
	require.ErrorIs(t, err, ErrInvalidCredentials)

	_, _, _, err = env.sessions.Login(ctx, "nobody@gmail.com", "hunter22")
	require.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestValidateFailsClosed(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	t.Run("empty token", func(t *testing.T) {
		_, _, err := env.sessions.Validate(ctx, "")
		require.ErrorIs(t, err, ErrNoSession)
	})

	t.Run("unknown token", func(t *testing.T) {
		raw, err := cryptox.GenerateToken(cryptox.TokenSize256)
		require.NoError(t, err)
		_, _, err = env.sessions.Validate(ctx, raw)
		require.ErrorIs(t, err, ErrNoSession)
	})

	t.Run("expired session", func(t *testing.T) {
		user := env.mustVerifiedUser(t, "expired@gmail.com", "Expired", "hunter22")

		raw, err := cryptox.GenerateToken(cryptox.TokenSize256)
		require.NoError(t, err)
		require.NoError(t, env.store.Sessions().CreateSession(ctx, domain.Session{
			ID:        idx.New().String(),
			UserID:    user.ID,
			TokenHash: cryptox.FingerprintToken(raw),
			ExpiresAt: time.Now().Add(-time.Minute),
		}))

		_, _, err = env.sessions.Validate(ctx, raw)
		require.ErrorIs(t, err, ErrNoSession)
	})
}

func TestRevokeIsIdempotent(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	env.mustVerifiedUser(t, "revoke@gmail.com", "Revoke", "hunter22")
	_, raw, _, err := env.sessions.Login(ctx, "revoke@gmail.com", "hunter22")
	require.NoError(t, err)

	require.NoError(t, env.sessions.Revoke(ctx, raw))

	_, _, err = env.sessions.Validate(ctx, raw)
	require.ErrorIs(t, err, ErrNoSession)

	// Second revoke of the same token, and revoke of garbage, both succeed.
	require.NoError(t, env.sessions.Revoke(ctx, raw))
	require.NoError(t, env.sessions.Revoke(ctx, "never-issued"))
	require.NoError(t, env.sessions.Revoke(ctx, ""))
}

func TestRevokeAllDropsEverySession(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	user := env.mustVerifiedUser(t, "multi@gmail.com", "Multi", "hunter22")

	_, raw1, _, err := env.sessions.Login(ctx, "multi@gmail.com", "hunter22")
	require.NoError(t, err)
	_, raw2, _, err := env.sessions.Login(ctx, "multi@gmail.com", "hunter22")
	require.NoError(t, err)

	require.NoError(t, env.sessions.RevokeAll(ctx, user.ID))

	_, _, err = env.sessions.Validate(ctx, raw1)
	require.ErrorIs(t, err, ErrNoSession)
	_, _, err = env.sessions.Validate(ctx, raw2)
	require.ErrorIs(t, err, ErrNoSession)
}
