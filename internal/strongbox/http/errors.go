package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/aussiebroadwan/strongbox/internal/strongbox/service"
	"github.com/aussiebroadwan/strongbox/pkg/slogx"
	"github.com/aussiebroadwan/strongbox/pkg/vaultsdk"
)

// maxJSONBody bounds every JSON request body.
const maxJSONBody = 64 << 10

var errorTable = []struct {
	err error
	api *vaultsdk.APIError
}{
	{service.ErrInvalidRequest, vaultsdk.ErrInvalidRequest},
	{service.ErrInvalidResetToken, vaultsdk.ErrInvalidRequest.WithDescription("reset token is invalid or expired")},
	{service.ErrInvalidCredentials, vaultsdk.ErrInvalidCredentials},
	{service.ErrEmailTaken, vaultsdk.ErrConflict.WithDescription("email already registered")},
	{service.ErrOtpInvalid, vaultsdk.ErrOtpInvalid},
	{service.ErrOtpExpired, vaultsdk.ErrOtpExpired},
	{service.ErrUnauthenticated, vaultsdk.ErrUnauthenticated},
	{service.ErrCSRFInvalid, vaultsdk.ErrCSRFInvalid},
	{service.ErrNotFound, vaultsdk.ErrNotFound},
	{service.ErrForbidden, vaultsdk.ErrForbidden},
	{service.ErrLinkExpired, vaultsdk.ErrLinkExpired},
	{service.ErrConflict, vaultsdk.ErrConflict},
	{service.ErrDecryptionFailed, vaultsdk.ErrDecryptionFailed},
	{service.ErrPasswordRequired, vaultsdk.ErrPasswordRequired},
	{service.ErrPayloadTooLarge, vaultsdk.ErrPayloadTooLarge},
	{service.ErrStorageUnavailable, vaultsdk.ErrStorageUnavailable},
}

// writeServiceError translates a service error into its API error. Anything
// unrecognised is logged and reported as server_error.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	for _, e := range errorTable {
		if !errors.Is(err, e.err) {
			continue
		}
		api := e.api
		if e.err == service.ErrInvalidRequest {
			if desc := strings.TrimPrefix(err.Error(), service.ErrInvalidRequest.Error()+": "); desc != err.Error() {
				api = api.WithDescription(desc)
			}
		}
		api.WriteError(w)
		return
	}

	slogx.FromContext(r.Context()).Error("request failed", "err", err)
	vaultsdk.ErrServerError.WriteError(w)
}

// decodeJSON reads a bounded JSON body into v. It writes the error response
// itself and reports whether the handler should continue.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	if r.Body == nil {
		vaultsdk.ErrInvalidRequest.WithDescription("request body is required").WriteError(w)
		return false
	}
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxJSONBody)).Decode(v); err != nil {
		slogx.FromContext(r.Context()).Debug("failed to parse request", "err", err)
		vaultsdk.ErrInvalidRequest.WithDescription("invalid JSON body").WriteError(w)
		return false
	}
	return true
}

// filePassword reads the password used to unlock a file body, preferring
// the header so it stays out of URLs where possible.
func filePassword(r *http.Request) string {
	if p := r.Header.Get(vaultsdk.PasswordHeader); p != "" {
		return p
	}
	return r.URL.Query().Get("password")
}
