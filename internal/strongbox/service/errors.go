package service

import (
	"errors"
	"time"
)

var (
	ErrInvalidRequest     = errors.New("invalid_request")
	ErrInvalidCredentials = errors.New("invalid_credentials")
	ErrEmailTaken         = errors.New("email already registered")
	ErrInvalidResetToken  = errors.New("reset token is invalid or expired")

	ErrOtpInvalid      = errors.New("otp_invalid")
	ErrOtpExpired      = errors.New("otp_expired")
	ErrUnauthenticated = errors.New("unauthenticated")
	ErrCSRFInvalid     = errors.New("csrf_invalid")

	ErrNotFound    = errors.New("not_found")
	ErrForbidden   = errors.New("forbidden")
	ErrLinkExpired = errors.New("link_expired")
	ErrConflict    = errors.New("conflict")

	// ErrDecryptionFailed covers a wrong password, a damaged envelope and
	// tampered ciphertext alike.
	ErrDecryptionFailed = errors.New("decryption_failed")

	// ErrPasswordRequired is returned to a non-owner who sent no password.
	ErrPasswordRequired = errors.New("password_required")

	ErrPayloadTooLarge    = errors.New("payload_too_large")
	ErrStorageUnavailable = errors.New("storage_unavailable")
)

// clock lets tests pin time.
type clock func() time.Time

func (c clock) now() time.Time {
	if c == nil {
		return time.Now().UTC()
	}
	return c().UTC()
}
