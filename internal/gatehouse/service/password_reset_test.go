package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPasswordResetFlow(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	env.mustVerifiedUser(t, "reset@gmail.com", "Reset", "old-pass-1")

	// Hold an active session to prove the reset revokes it.
	_, sessionToken, _, err := env.sessions.Login(ctx, "reset@gmail.com", "old-pass-1")
	require.NoError(t, err)

	require.NoError(t, env.reset.Request(ctx, "reset@gmail.com"))
	resetToken := env.mailer.lastToken(t)

	require.NoError(t, env.reset.Finalize(ctx, resetToken, "new-pass-1"))

	// Old password dead, new one live.
	_, _, _, err = env.sessions.Login(ctx, "reset@gmail.com", "old-pass-1")
	require.ErrorIs(t, err, ErrInvalidCredentials)
	_, _, _, err = env.sessions.Login(ctx, "reset@gmail.com", "new-pass-1")
	require.NoError(t, err)

	// Every pre-reset session is revoked.
	_, _, err = env.sessions.Validate(ctx, sessionToken)
	require.ErrorIs(t, err, ErrNoSession)
}

func TestPasswordResetTokenIsSingleUse(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	env.mustVerifiedUser(t, "once.reset@gmail.com", "Once", "old-pass-1")
	require.NoError(t, env.reset.Request(ctx, "once.reset@gmail.com"))
	token := env.mailer.lastToken(t)

	require.NoError(t, env.reset.Finalize(ctx, token, "new-pass-1"))
	require.ErrorIs(t, env.reset.Finalize(ctx, token, "other-pass"), ErrTokenInvalid)
}

func TestPasswordResetRejectsWeakReplacement(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	env.mustVerifiedUser(t, "weak@gmail.com", "Weak", "old-pass-1")
	require.NoError(t, env.reset.Request(ctx, "weak@gmail.com"))
	token := env.mailer.lastToken(t)

	require.ErrorIs(t, env.reset.Finalize(ctx, token, "12345"), ErrWeakPassword)

	// The weak attempt did not consume the token.
	require.NoError(t, env.reset.Finalize(ctx, token, "new-pass-1"))
}

func TestPasswordResetDoesNotLeakAccountExistence(t *testing.T) {
	env := newTestEnv(t)

	require.NoError(t, env.reset.Request(context.Background(), "ghost@gmail.com"))
	require.Zero(t, env.mailer.count())
}

func TestPasswordResetSurvivesMailerFailure(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	env.mustVerifiedUser(t, "nomail@gmail.com", "Nomail", "old-pass-1")
	env.mailer.fail = true

	// Still reports success; the token exists server-side.
	require.NoError(t, env.reset.Request(ctx, "nomail@gmail.com"))
}
