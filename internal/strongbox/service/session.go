package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/aussiebroadwan/strongbox/internal/strongbox/domain"
	vaultmail "github.com/aussiebroadwan/strongbox/internal/strongbox/mail"
	"github.com/aussiebroadwan/strongbox/internal/strongbox/store"
	"github.com/aussiebroadwan/strongbox/pkg/cryptox"
	"github.com/aussiebroadwan/strongbox/pkg/idx"
	"github.com/aussiebroadwan/strongbox/pkg/jwtx"
	"github.com/aussiebroadwan/strongbox/pkg/slogx"
	"github.com/pquerna/otp"
	"github.com/pquerna/otp/hotp"
)

const (
	// MaxOTPAttempts is the number of wrong codes a pending login tolerates.
	MaxOTPAttempts = 5

	DefaultOTPTTL = 10 * time.Minute
)

// AMR values stamped on every access token.
var sessionAMR = []string{"pwd", "otp"}

var otpOpts = hotp.ValidateOpts{Digits: otp.DigitsSix, Algorithm: otp.AlgorithmSHA1}

// TokenSigner signs access token claims. *jwtx.KeyManager implements it.
type TokenSigner interface {
	Sign(claims jwtx.Claims) (string, error)
}

// PendingLogin is the result of a correct password.
type PendingLogin struct {
	SessionID string
	ExpiresAt time.Time
}

// AuthenticatedSession is the result of a correct code.
type AuthenticatedSession struct {
	AccessToken string
	CSRFToken   string
	ExpiresAt   time.Time
	User        domain.User
}

// SessionService drives the login state machine:
// pending_otp -> authenticated -> expired.
type SessionService struct {
	Store       store.Store
	Credentials *CredentialService
	Mail        *vaultmail.Dispatcher

	Signer   TokenSigner
	Verifier jwtx.Verifier
	Issuer   string

	AccessTTL time.Duration
	OTPTTL    time.Duration

	Now func() time.Time
}

// BeginLogin checks the password, opens a pending session and mails a code.
func (s *SessionService) BeginLogin(ctx context.Context, email, password string) (PendingLogin, error) {
	l := slogx.FromContext(ctx)

	u, err := s.Credentials.Authenticate(ctx, email, password)
	if err != nil {
		if errors.Is(err, ErrInvalidCredentials) {
			l.Info("login rejected")
		}
		return PendingLogin{}, err
	}

	// 1. Reserve a fresh HOTP counter so every code is new
	counter, err := s.Store.Users().NextOTPCounter(ctx, u.ID)
	if err != nil {
		return PendingLogin{}, fmt.Errorf("failed to advance otp counter: %w", err)
	}

	code, err := hotp.GenerateCodeCustom(u.OTPSecret, counter, otpOpts)
	if err != nil {
		return PendingLogin{}, fmt.Errorf("failed to generate otp: %w", err)
	}

	// 2. Open the pending session
	now := clock(s.Now).now()
	ttl := s.otpTTL()
	sess := domain.Session{
		ID:           idx.NewAt(now).String(),
		UserID:       u.ID,
		State:        domain.SessionPendingOTP,
		OTPCounter:   counter,
		OTPExpiresAt: now.Add(ttl),
		ExpiresAt:    now.Add(ttl),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.Store.Sessions().CreateSession(ctx, sess); err != nil {
		return PendingLogin{}, fmt.Errorf("failed to create session: %w", err)
	}

	// 3. Hand the code to the mailer without waiting on it
	s.Mail.Dispatch(ctx, vaultmail.OTPMessage(u.Email, code, ttl))

	l.Info("login pending otp", slog.String("user_id", u.ID), slog.String("session_id", sess.ID))
	return PendingLogin{SessionID: sess.ID, ExpiresAt: sess.OTPExpiresAt}, nil
}

// CompleteLoginByEmail resolves the newest pending session of email.
func (s *SessionService) CompleteLoginByEmail(ctx context.Context, email, code string) (AuthenticatedSession, error) {
	u, err := s.Store.Users().GetUserByEmail(ctx, NormalizeEmail(email))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return AuthenticatedSession{}, ErrOtpInvalid
		}
		return AuthenticatedSession{}, err
	}

	sess, err := s.Store.Sessions().GetLatestPendingSession(ctx, u.ID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return AuthenticatedSession{}, ErrOtpInvalid
		}
		return AuthenticatedSession{}, err
	}
	return s.completeLogin(ctx, sess, u, code)
}

// CompleteLogin checks code against the pending session pendingRef. A code
// works once: the state flip is conditional, so a replay finds nothing
// pending and fails with ErrOtpInvalid.
func (s *SessionService) CompleteLogin(ctx context.Context, pendingRef, code string) (AuthenticatedSession, error) {
	sess, err := s.Store.Sessions().GetSession(ctx, pendingRef)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return AuthenticatedSession{}, ErrOtpInvalid
		}
		return AuthenticatedSession{}, err
	}

	u, err := s.Store.Users().GetUserByID(ctx, sess.UserID)
	if err != nil {
		return AuthenticatedSession{}, fmt.Errorf("failed to load user: %w", err)
	}
	return s.completeLogin(ctx, sess, u, code)
}

func (s *SessionService) completeLogin(ctx context.Context, sess domain.Session, u domain.User, code string) (AuthenticatedSession, error) {
	l := slogx.FromContext(ctx).With(slog.String("session_id", sess.ID))
	now := clock(s.Now).now()

	// 1. Only pending sessions accept codes
	if sess.State != domain.SessionPendingOTP {
		return AuthenticatedSession{}, ErrOtpInvalid
	}

	// 2. Lazy expiry of the code and of the attempt budget
	if !now.Before(sess.OTPExpiresAt) || sess.OTPAttempts >= MaxOTPAttempts {
		if err := s.Store.Sessions().ExpireSession(ctx, sess.ID, now); err != nil {
			return AuthenticatedSession{}, err
		}
		l.Info("otp expired")
		return AuthenticatedSession{}, ErrOtpExpired
	}

	// 3. Check the code
	valid, err := hotp.ValidateCustom(code, sess.OTPCounter, u.OTPSecret, otpOpts)
	if err != nil || !valid {
		updated, err := s.Store.Sessions().IncrementOTPAttempts(ctx, sess.ID, now)
		if err != nil {
			if errors.Is(err, store.ErrConflict) {
				return AuthenticatedSession{}, ErrOtpInvalid
			}
			return AuthenticatedSession{}, err
		}
		if updated.OTPAttempts >= MaxOTPAttempts {
			if err := s.Store.Sessions().ExpireSession(ctx, sess.ID, now); err != nil {
				return AuthenticatedSession{}, err
			}
			l.Warn("otp attempts exhausted", slog.String("user_id", u.ID))
			return AuthenticatedSession{}, ErrOtpExpired
		}
		l.Info("otp rejected", slog.Int("attempts", updated.OTPAttempts))
		return AuthenticatedSession{}, ErrOtpInvalid
	}

	// 4. Mint the access and anti-forgery tokens
	claims := jwtx.NewAccessClaims(jwtx.AccessClaimsParams{
		Subject: u.ID,
		SID:     sess.ID,
		Email:   u.Email,
		Name:    u.Name,
		AMR:     sessionAMR,
		TTL:     s.accessTTL(),
		Issuer:  s.Issuer,
		Now:     now,
	})
	accessToken, err := s.Signer.Sign(claims)
	if err != nil {
		return AuthenticatedSession{}, fmt.Errorf("failed to sign access token: %w", err)
	}
	csrfToken, err := cryptox.GenerateToken(cryptox.TokenSize128)
	if err != nil {
		return AuthenticatedSession{}, err
	}
	expiresAt := claims.ExpiresAt.Time.UTC()

	// 5. Flip the session; losing this race means the code was already used
	err = s.Store.Sessions().MarkAuthenticated(ctx, sess.ID,
		cryptox.FingerprintToken(accessToken),
		cryptox.FingerprintToken(csrfToken),
		expiresAt, now,
	)
	if err != nil {
		if errors.Is(err, store.ErrConflict) {
			return AuthenticatedSession{}, ErrOtpInvalid
		}
		return AuthenticatedSession{}, err
	}

	l.Info("login completed", slog.String("user_id", u.ID))
	return AuthenticatedSession{
		AccessToken: accessToken,
		CSRFToken:   csrfToken,
		ExpiresAt:   expiresAt,
		User:        u,
	}, nil
}

// ValidateToken verifies the token and the live session bound to it.
func (s *SessionService) ValidateToken(ctx context.Context, token string) (jwtx.Claims, error) {
	claims, err := s.Verifier.Verify(token)
	if err != nil {
		return jwtx.Claims{}, fmt.Errorf("%w: %v", ErrUnauthenticated, err)
	}
	if claims.SID == "" || !slices.Contains(claims.AMR, "otp") {
		return jwtx.Claims{}, ErrUnauthenticated
	}

	sess, err := s.Store.Sessions().GetSession(ctx, claims.SID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return jwtx.Claims{}, ErrUnauthenticated
		}
		return jwtx.Claims{}, err
	}

	now := clock(s.Now).now()
	if !sess.IsLive(now) || sess.UserID != claims.Subject || !cryptox.MatchesFingerprint(token, sess.TokenFingerprint) {
		return jwtx.Claims{}, ErrUnauthenticated
	}
	return claims, nil
}

// Validate returns the identity behind an access token. It never writes.
func (s *SessionService) Validate(ctx context.Context, token string) (domain.Identity, error) {
	claims, err := s.ValidateToken(ctx, token)
	if err != nil {
		return domain.Identity{}, err
	}
	return domain.Identity{
		UserID:    claims.Subject,
		Email:     claims.Email,
		Name:      claims.Name,
		SessionID: claims.SID,
	}, nil
}

// CheckCSRF matches the anti-forgery token against the session's fingerprint.
func (s *SessionService) CheckCSRF(ctx context.Context, sessionID, token string) error {
	sess, err := s.Store.Sessions().GetSession(ctx, sessionID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrCSRFInvalid
		}
		return err
	}
	if !cryptox.MatchesFingerprint(token, sess.CSRFFingerprint) {
		return ErrCSRFInvalid
	}
	return nil
}

// EndSession expires the session behind token immediately.
func (s *SessionService) EndSession(ctx context.Context, token string) error {
	claims, err := s.ValidateToken(ctx, token)
	if err != nil {
		return err
	}
	if err := s.Store.Sessions().ExpireSession(ctx, claims.SID, clock(s.Now).now()); err != nil {
		return fmt.Errorf("failed to expire session: %w", err)
	}
	slogx.FromContext(ctx).Info("session ended", slog.String("session_id", claims.SID))
	return nil
}

func (s *SessionService) otpTTL() time.Duration {
	if s.OTPTTL <= 0 {
		return DefaultOTPTTL
	}
	return s.OTPTTL
}

func (s *SessionService) accessTTL() time.Duration {
	if s.AccessTTL <= 0 {
		return jwtx.DefaultAccessTokenTTL
	}
	return s.AccessTTL
}
