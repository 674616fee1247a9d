package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/aussiebroadwan/strongbox/internal/strongbox/domain"
	"github.com/stretchr/testify/require"
)

func wrongCode(code string) string {
	if code == "000000" {
		return "111111"
	}
	return "000000"
}

func TestLogin(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	h := newHarness(t)
	id := h.register(t, "alice@example.com")

	t.Run("wrong password opens nothing", func(t *testing.T) {
		_, err := h.sessions.BeginLogin(ctx, "alice@example.com", "not the password")
		require.ErrorIs(t, err, ErrInvalidCredentials)
		h.mail.Wait()
		require.Zero(t, h.outbox.count())
	})

	t.Run("password then code", func(t *testing.T) {
		sess := h.login(t, "alice@example.com")
		require.NotEmpty(t, sess.AccessToken)
		require.NotEmpty(t, sess.CSRFToken)
		require.Equal(t, id.UserID, sess.User.ID)

		got, err := h.sessions.Validate(ctx, sess.AccessToken)
		require.NoError(t, err)
		require.Equal(t, id.UserID, got.UserID)
		require.Equal(t, "alice@example.com", got.Email)
		require.NotEmpty(t, got.SessionID)

		claims, err := h.sessions.ValidateToken(ctx, sess.AccessToken)
		require.NoError(t, err)
		require.Equal(t, []string{"pwd", "otp"}, claims.AMR)
	})

	t.Run("code by email", func(t *testing.T) {
		_, err := h.sessions.BeginLogin(ctx, "Alice@Example.com", testPassword)
		require.NoError(t, err)

		sess, err := h.sessions.CompleteLoginByEmail(ctx, "alice@example.com", h.otpFor(t, "alice@example.com"))
		require.NoError(t, err)
		require.Equal(t, id.UserID, sess.User.ID)
	})

	t.Run("every login uses a fresh counter", func(t *testing.T) {
		a, err := h.sessions.BeginLogin(ctx, "alice@example.com", testPassword)
		require.NoError(t, err)
		b, err := h.sessions.BeginLogin(ctx, "alice@example.com", testPassword)
		require.NoError(t, err)

		sa, err := h.store.Sessions().GetSession(ctx, a.SessionID)
		require.NoError(t, err)
		sb, err := h.store.Sessions().GetSession(ctx, b.SessionID)
		require.NoError(t, err)
		require.Less(t, sa.OTPCounter, sb.OTPCounter)
	})

	t.Run("unknown pending reference", func(t *testing.T) {
		_, err := h.sessions.CompleteLogin(ctx, "01HZZZZZZZZZZZZZZZZZZZZZZZ", "123456")
		require.ErrorIs(t, err, ErrOtpInvalid)
	})
}

func TestOTPSingleUse(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	h := newHarness(t)
	h.register(t, "bob@example.com")

	pending, err := h.sessions.BeginLogin(ctx, "bob@example.com", testPassword)
	require.NoError(t, err)
	code := h.otpFor(t, "bob@example.com")

	_, err = h.sessions.CompleteLogin(ctx, pending.SessionID, code)
	require.NoError(t, err)

	_, err = h.sessions.CompleteLogin(ctx, pending.SessionID, code)
	require.ErrorIs(t, err, ErrOtpInvalid)
}

func TestOTPConcurrentSubmissions(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	h := newHarness(t)
	h.register(t, "carol@example.com")

	pending, err := h.sessions.BeginLogin(ctx, "carol@example.com", testPassword)
	require.NoError(t, err)
	code := h.otpFor(t, "carol@example.com")

	const n = 6
	var (
		wg   sync.WaitGroup
		errs = make([]error, n)
	)
	for i := range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, errs[i] = h.sessions.CompleteLogin(ctx, pending.SessionID, code)
		}()
	}
	wg.Wait()

	wins := 0
	for _, err := range errs {
		if err == nil {
			wins++
			continue
		}
		require.ErrorIs(t, err, ErrOtpInvalid)
	}
	require.Equal(t, 1, wins)
}

func TestOTPAttemptBudget(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	h := newHarness(t)
	h.register(t, "dave@example.com")

	pending, err := h.sessions.BeginLogin(ctx, "dave@example.com", testPassword)
	require.NoError(t, err)
	code := h.otpFor(t, "dave@example.com")
	bad := wrongCode(code)

	for i := 1; i < MaxOTPAttempts; i++ {
		_, err := h.sessions.CompleteLogin(ctx, pending.SessionID, bad)
		require.ErrorIs(t, err, ErrOtpInvalid, "attempt %d", i)
	}

	_, err = h.sessions.CompleteLogin(ctx, pending.SessionID, bad)
	require.ErrorIs(t, err, ErrOtpExpired)

	// The right code no longer helps; login restarts from the password.
	_, err = h.sessions.CompleteLogin(ctx, pending.SessionID, code)
	require.ErrorIs(t, err, ErrOtpInvalid)

	sess, err := h.store.Sessions().GetSession(ctx, pending.SessionID)
	require.NoError(t, err)
	require.Equal(t, domain.SessionExpired, sess.State)

	h.login(t, "dave@example.com")
}

func TestOTPExpiry(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	h := newHarness(t)
	h.register(t, "erin@example.com")

	pending, err := h.sessions.BeginLogin(ctx, "erin@example.com", testPassword)
	require.NoError(t, err)
	code := h.otpFor(t, "erin@example.com")

	h.advance(DefaultOTPTTL + time.Second)

	_, err = h.sessions.CompleteLogin(ctx, pending.SessionID, code)
	require.ErrorIs(t, err, ErrOtpExpired)

	_, err = h.sessions.CompleteLogin(ctx, pending.SessionID, code)
	require.ErrorIs(t, err, ErrOtpInvalid)
}

func TestSessionLifecycle(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("logout ends the session", func(t *testing.T) {
		h := newHarness(t)
		h.register(t, "frank@example.com")
		sess := h.login(t, "frank@example.com")

		require.NoError(t, h.sessions.EndSession(ctx, sess.AccessToken))

		_, err := h.sessions.Validate(ctx, sess.AccessToken)
		require.ErrorIs(t, err, ErrUnauthenticated)
		require.ErrorIs(t, h.sessions.EndSession(ctx, sess.AccessToken), ErrUnauthenticated)
	})

	t.Run("session expires", func(t *testing.T) {
		h := newHarness(t)
		h.register(t, "gina@example.com")
		sess := h.login(t, "gina@example.com")

		h.advance(31 * time.Minute)
		_, err := h.sessions.Validate(ctx, sess.AccessToken)
		require.ErrorIs(t, err, ErrUnauthenticated)
	})

	t.Run("garbage token", func(t *testing.T) {
		h := newHarness(t)
		_, err := h.sessions.Validate(ctx, "not.a.token")
		require.ErrorIs(t, err, ErrUnauthenticated)
	})

	t.Run("csrf token is bound to the session", func(t *testing.T) {
		h := newHarness(t)
		h.register(t, "hank@example.com")
		a := h.login(t, "hank@example.com")
		b := h.login(t, "hank@example.com")

		ida, err := h.sessions.Validate(ctx, a.AccessToken)
		require.NoError(t, err)

		require.NoError(t, h.sessions.CheckCSRF(ctx, ida.SessionID, a.CSRFToken))
		require.ErrorIs(t, h.sessions.CheckCSRF(ctx, ida.SessionID, b.CSRFToken), ErrCSRFInvalid)
		require.ErrorIs(t, h.sessions.CheckCSRF(ctx, ida.SessionID, ""), ErrCSRFInvalid)
		require.ErrorIs(t, h.sessions.CheckCSRF(ctx, "missing", a.CSRFToken), ErrCSRFInvalid)
	})
}
