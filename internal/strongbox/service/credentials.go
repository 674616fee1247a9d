package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/aussiebroadwan/strongbox/internal/strongbox/domain"
	vaultmail "github.com/aussiebroadwan/strongbox/internal/strongbox/mail"
	"github.com/aussiebroadwan/strongbox/internal/strongbox/store"
	"github.com/aussiebroadwan/strongbox/pkg/cryptox"
	"github.com/aussiebroadwan/strongbox/pkg/idx"
	"github.com/aussiebroadwan/strongbox/pkg/slogx"
	"github.com/pquerna/otp/hotp"
)

const (
	MinPasswordLength = 8
	MaxPasswordLength = 1024
	MaxNameLength     = 200

	DefaultResetTTL = 10 * time.Minute

	otpSecretSize = 20 // 160 bits
)

var (
	dummyHashOnce sync.Once
	dummyHash     string
)

// CredentialService owns accounts: registration, password checks and the
// password reset flow.
type CredentialService struct {
	Store  store.Store
	Mail   *vaultmail.Dispatcher
	Issuer string // shown as the OTP key issuer

	ResetTTL time.Duration
	ResetURL string // optional front-end page the reset token is appended to

	Now func() time.Time
}

// NormalizeEmail trims and lowercases an address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// ValidateEmail normalizes email and checks it is a bare address.
func ValidateEmail(email string) (string, error) {
	email = NormalizeEmail(email)
	if email == "" {
		return "", fmt.Errorf("%w: email is required", ErrInvalidRequest)
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", fmt.Errorf("%w: email is not a valid address", ErrInvalidRequest)
	}
	return email, nil
}

func validatePassword(password string) error {
	n := utf8.RuneCountInString(password)
	if n < MinPasswordLength {
		return fmt.Errorf("%w: password must be at least %d characters", ErrInvalidRequest, MinPasswordLength)
	}
	if n > MaxPasswordLength {
		return fmt.Errorf("%w: password is too long", ErrInvalidRequest)
	}
	return nil
}

// Register creates an account with a fresh OTP secret.
func (s *CredentialService) Register(ctx context.Context, email, password, name string) (domain.User, error) {
	email, err := ValidateEmail(email)
	if err != nil {
		return domain.User{}, err
	}
	if err := validatePassword(password); err != nil {
		return domain.User{}, err
	}
	name = strings.TrimSpace(name)
	if utf8.RuneCountInString(name) > MaxNameLength {
		return domain.User{}, fmt.Errorf("%w: name is too long", ErrInvalidRequest)
	}

	hash, err := cryptox.HashPassword(password)
	if err != nil {
		return domain.User{}, fmt.Errorf("failed to hash password: %w", err)
	}

	key, err := hotp.Generate(hotp.GenerateOpts{
		Issuer:      s.issuer(),
		AccountName: email,
		SecretSize:  otpSecretSize,
	})
	if err != nil {
		return domain.User{}, fmt.Errorf("failed to generate OTP secret: %w", err)
	}

	now := clock(s.Now).now()
	u := domain.User{
		ID:           idx.New().String(),
		Email:        email,
		Name:         name,
		PasswordHash: hash,
		OTPSecret:    key.Secret(),
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.Store.Users().CreateUser(ctx, u); err != nil {
		if errors.Is(err, store.ErrAlreadyExists) {
			return domain.User{}, ErrEmailTaken
		}
		return domain.User{}, fmt.Errorf("failed to create user: %w", err)
	}

	slogx.FromContext(ctx).Info("user registered", slog.String("user_id", u.ID))
	return u, nil
}

// Authenticate checks email and password. Unknown accounts still pay for a
// hash verification so the two failures take the same time.
func (s *CredentialService) Authenticate(ctx context.Context, email, password string) (domain.User, error) {
	email = NormalizeEmail(email)
	if email == "" || password == "" {
		return domain.User{}, ErrInvalidCredentials
	}

	u, err := s.Store.Users().GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			_ = cryptox.VerifyPassword(password, getDummyHash())
			return domain.User{}, ErrInvalidCredentials
		}
		return domain.User{}, fmt.Errorf("failed to load user: %w", err)
	}

	if err := cryptox.VerifyPassword(password, u.PasswordHash); err != nil {
		return domain.User{}, ErrInvalidCredentials
	}
	return u, nil
}

// GetUser loads the stored profile of user id.
func (s *CredentialService) GetUser(ctx context.Context, id string) (domain.User, error) {
	u, err := s.Store.Users().GetUserByID(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return domain.User{}, ErrNotFound
	}
	return u, err
}

// ForgotPassword mails a reset token if the account exists. It reports
// success either way.
func (s *CredentialService) ForgotPassword(ctx context.Context, email string) error {
	l := slogx.FromContext(ctx)
	email = NormalizeEmail(email)
	if email == "" {
		return fmt.Errorf("%w: email is required", ErrInvalidRequest)
	}

	u, err := s.Store.Users().GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			l.Info("password reset requested for unknown email")
			return nil
		}
		return fmt.Errorf("failed to load user: %w", err)
	}

	token, err := cryptox.GenerateToken(cryptox.TokenSize256)
	if err != nil {
		return err
	}

	now := clock(s.Now).now()
	ttl := s.resetTTL()
	reset := domain.PasswordReset{
		ID:        idx.New().String(),
		UserID:    u.ID,
		TokenHash: cryptox.FingerprintToken(token),
		ExpiresAt: now.Add(ttl),
		CreatedAt: now,
	}
	if err := s.Store.PasswordResets().CreatePasswordReset(ctx, reset); err != nil {
		return fmt.Errorf("failed to store reset token: %w", err)
	}

	s.Mail.Dispatch(ctx, vaultmail.PasswordResetMessage(u.Email, token, s.ResetURL, ttl))
	l.Info("password reset issued", slog.String("user_id", u.ID))
	return nil
}

// ResetPassword consumes token, sets the new password and signs the user out
// everywhere.
func (s *CredentialService) ResetPassword(ctx context.Context, token, newPassword string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return ErrInvalidResetToken
	}
	if err := validatePassword(newPassword); err != nil {
		return err
	}

	hash, err := cryptox.HashPassword(newPassword)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	now := clock(s.Now).now()
	var userID string

	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		// 1. Look up the token by fingerprint
		reset, err := tx.PasswordResets().GetPasswordResetByHash(ctx, cryptox.FingerprintToken(token))
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return ErrInvalidResetToken
			}
			return err
		}
		if reset.UsedAt != nil || !now.Before(reset.ExpiresAt) {
			return ErrInvalidResetToken
		}

		// 2. Consume it
		if err := tx.PasswordResets().MarkPasswordResetUsed(ctx, reset.ID, now); err != nil {
			if errors.Is(err, store.ErrConflict) {
				return ErrInvalidResetToken
			}
			return err
		}

		// 3. Replace the hash and end every session
		if err := tx.Users().UpdatePasswordHash(ctx, reset.UserID, hash, now); err != nil {
			return err
		}
		if _, err := tx.Sessions().ExpireUserSessions(ctx, reset.UserID, now); err != nil {
			return err
		}

		userID = reset.UserID
		return nil
	})
	if err != nil {
		return err
	}

	slogx.FromContext(ctx).Info("password reset completed", slog.String("user_id", userID))
	return nil
}

func (s *CredentialService) issuer() string {
	if s.Issuer == "" {
		return "strongbox"
	}
	return s.Issuer
}

func (s *CredentialService) resetTTL() time.Duration {
	if s.ResetTTL <= 0 {
		return DefaultResetTTL
	}
	return s.ResetTTL
}

func getDummyHash() string {
	dummyHashOnce.Do(func() {
		dummyHash, _ = cryptox.HashPassword("strongbox-dummy-password")
	})
	return dummyHash
}
