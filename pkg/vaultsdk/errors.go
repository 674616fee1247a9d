package vaultsdk

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/aussiebroadwan/strongbox/pkg/httpx"
)

// Stable error codes carried in the "error" field of every error body.
const (
	ErrorCodeInvalidRequest     = "invalid_request"
	ErrorCodeInvalidCredentials = "invalid_credentials"
	ErrorCodeOtpInvalid         = "otp_invalid"
	ErrorCodeOtpExpired         = "otp_expired"
	ErrorCodeUnauthenticated    = "unauthenticated"
	ErrorCodeForbidden          = "forbidden"
	ErrorCodeCSRFInvalid        = "csrf_invalid"
	ErrorCodeDecryptionFailed   = "decryption_failed"
	ErrorCodePasswordRequired   = "password_required"
	ErrorCodeNotFound           = "not_found"
	ErrorCodeLinkExpired        = "link_expired"
	ErrorCodeConflict           = "conflict"
	ErrorCodePayloadTooLarge    = "payload_too_large"
	ErrorCodeRateLimited        = "rate_limit_exceeded"
	ErrorCodeStorageUnavailable = "storage_unavailable"
	ErrorCodeServerError        = "server_error"
)

// APIError is an error response from the vault. The server writes these and
// the client parses them back, so both sides share one type.
type APIError struct {
	StatusCode  int    `json:"-"`
	Code        string `json:"error"`
	Description string `json:"error_description"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Description)
}

// Is matches on the error code, so a parsed error matches the predefined
// value regardless of its description.
func (e *APIError) Is(target error) bool {
	t, ok := target.(*APIError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// WriteError writes e as the response.
func (e *APIError) WriteError(w http.ResponseWriter) {
	httpx.WriteError(w, e.StatusCode, e.Code, e.Description)
}

// WithDescription returns a copy of e carrying desc.
func (e *APIError) WithDescription(desc string) *APIError {
	cp := *e
	cp.Description = desc
	return &cp
}

var (
	ErrInvalidRequest = &APIError{
		StatusCode:  http.StatusBadRequest,
		Code:        ErrorCodeInvalidRequest,
		Description: "the request is malformed or missing required parameters",
	}
	ErrInvalidCredentials = &APIError{
		StatusCode:  http.StatusUnauthorized,
		Code:        ErrorCodeInvalidCredentials,
		Description: "invalid email or password",
	}
	ErrOtpInvalid = &APIError{
		StatusCode:  http.StatusUnauthorized,
		Code:        ErrorCodeOtpInvalid,
		Description: "the code is invalid or has already been used",
	}
	ErrOtpExpired = &APIError{
		StatusCode:  http.StatusUnauthorized,
		Code:        ErrorCodeOtpExpired,
		Description: "the code has expired, sign in again",
	}
	ErrUnauthenticated = &APIError{
		StatusCode:  http.StatusUnauthorized,
		Code:        ErrorCodeUnauthenticated,
		Description: "authentication required",
	}
	ErrForbidden = &APIError{
		StatusCode:  http.StatusForbidden,
		Code:        ErrorCodeForbidden,
		Description: "you do not have permission to do that",
	}
	ErrCSRFInvalid = &APIError{
		StatusCode:  http.StatusForbidden,
		Code:        ErrorCodeCSRFInvalid,
		Description: "missing or invalid anti-forgery token",
	}
	ErrDecryptionFailed = &APIError{
		StatusCode:  http.StatusForbidden,
		Code:        ErrorCodeDecryptionFailed,
		Description: "wrong password or the file could not be decrypted",
	}
	ErrPasswordRequired = &APIError{
		StatusCode:  http.StatusForbidden,
		Code:        ErrorCodePasswordRequired,
		Description: "a password is required to open this file",
	}
	ErrNotFound = &APIError{
		StatusCode:  http.StatusNotFound,
		Code:        ErrorCodeNotFound,
		Description: "not found",
	}
	ErrLinkExpired = &APIError{
		StatusCode:  http.StatusGone,
		Code:        ErrorCodeLinkExpired,
		Description: "this share link has expired",
	}
	ErrConflict = &APIError{
		StatusCode:  http.StatusConflict,
		Code:        ErrorCodeConflict,
		Description: "the resource already exists or was changed concurrently",
	}
	ErrPayloadTooLarge = &APIError{
		StatusCode:  http.StatusRequestEntityTooLarge,
		Code:        ErrorCodePayloadTooLarge,
		Description: "the upload exceeds the maximum size",
	}
	ErrRateLimited = &APIError{
		StatusCode:  http.StatusTooManyRequests,
		Code:        ErrorCodeRateLimited,
		Description: "too many requests",
	}
	ErrStorageUnavailable = &APIError{
		StatusCode:  http.StatusServiceUnavailable,
		Code:        ErrorCodeStorageUnavailable,
		Description: "file storage is temporarily unavailable",
	}
	ErrServerError = &APIError{
		StatusCode:  http.StatusInternalServerError,
		Code:        ErrorCodeServerError,
		Description: "internal server error",
	}
)

// parseErrorResponse turns a non-2xx response into an *APIError.
func parseErrorResponse(resp *http.Response, body []byte) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	var eb httpx.ErrorBody
	if err := json.Unmarshal(body, &eb); err == nil && eb.Error != "" {
		return &APIError{
			StatusCode:  resp.StatusCode,
			Code:        eb.Error,
			Description: eb.ErrorDescription,
		}
	}

	return &APIError{
		StatusCode:  resp.StatusCode,
		Code:        ErrorCodeServerError,
		Description: fmt.Sprintf("HTTP %d: %s", resp.StatusCode, http.StatusText(resp.StatusCode)),
	}
}
