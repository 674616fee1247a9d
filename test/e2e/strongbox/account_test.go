package strongbox_test

import (
	"regexp"
	"testing"

	"github.com/aussiebroadwan/strongbox/pkg/vaultsdk"
	"github.com/stretchr/testify/require"
)

var resetPattern = regexp.MustCompile(`password: (\S+)`)

func TestRegisterLoginLogout(t *testing.T) {
	v := setupVault(t)
	ctx := t.Context()

	sess := v.signUp(t, "alice@example.com", "Alice")
	require.Equal(t, "alice@example.com", sess.User().Email)

	status, err := sess.VerifyAuth(ctx)
	require.NoError(t, err)
	require.True(t, status.Authenticated)

	require.NoError(t, sess.Logout(ctx))

	status, err = v.client.VerifyAuth(ctx, sess.AccessToken())
	require.NoError(t, err)
	require.False(t, status.Authenticated, "token must die with the session")
}

func TestDuplicateRegistration(t *testing.T) {
	v := setupVault(t)

	_, err := v.client.Register(t.Context(), "bob@example.com", userPassword, "Bob")
	require.NoError(t, err)

	_, err = v.client.Register(t.Context(), "BOB@example.com", userPassword, "Bob again")
	require.ErrorIs(t, err, vaultsdk.ErrConflict)
}

func TestWrongPasswordAndCode(t *testing.T) {
	v := setupVault(t)
	ctx := t.Context()

	_, err := v.client.Register(ctx, "carol@example.com", userPassword, "Carol")
	require.NoError(t, err)

	_, err = v.client.Login(ctx, "carol@example.com", "wrong password")
	require.ErrorIs(t, err, vaultsdk.ErrInvalidCredentials)

	_, err = v.client.Login(ctx, "nobody@example.com", userPassword)
	require.ErrorIs(t, err, vaultsdk.ErrInvalidCredentials, "unknown users look like wrong passwords")

	seen := len(v.mails(t, "carol@example.com", codePattern))
	_, err = v.client.Login(ctx, "carol@example.com", userPassword)
	require.NoError(t, err)
	code := v.nextMail(t, "carol@example.com", codePattern, seen)

	wrong := "000000"
	if code == wrong {
		wrong = "999999"
	}
	_, err = v.client.VerifyOTP(ctx, "carol@example.com", wrong)
	require.ErrorIs(t, err, vaultsdk.ErrOtpInvalid)

	_, err = v.client.VerifyOTP(ctx, "carol@example.com", code)
	require.NoError(t, err)
}

func TestPasswordReset(t *testing.T) {
	v := setupVault(t)
	ctx := t.Context()

	_, err := v.client.Register(ctx, "dave@example.com", userPassword, "Dave")
	require.NoError(t, err)

	require.NoError(t, v.client.ForgotPassword(ctx, "dave@example.com"))
	require.NoError(t, v.client.ForgotPassword(ctx, "ghost@example.com"), "unknown emails are not revealed")

	token := v.nextMail(t, "dave@example.com", resetPattern, 0)
	require.NoError(t, v.client.ResetPassword(ctx, token, "a brand new password"))

	_, err = v.client.Login(ctx, "dave@example.com", userPassword)
	require.ErrorIs(t, err, vaultsdk.ErrInvalidCredentials)

	v.signIn(t, "dave@example.com", "a brand new password")
}
