package httpx

import (
	"context"
	"crypto/subtle"
	"net/http"
	"time"

	"github.com/aussiebroadwan/strongbox/pkg/slogx"
)

const CSRFHeader = "X-CSRF-Token"

// CSRFChecker confirms a presented anti-forgery token belongs to a session.
type CSRFChecker interface {
	CheckCSRF(ctx context.Context, sessionID, token string) error
}

// CSRFMiddleware requires the X-CSRF-Token header on every unsafe method and
// checks it against the token issued to the authenticated session. When the
// cookie named cookieName is present the header must also equal it
// (double-submit). Must run after AuthnMiddleware.
func CSRFMiddleware(checker CSRFChecker, cookieName string) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if isSafeMethod(r.Method) {
				next.ServeHTTP(w, r)
				return
			}

			ctx := r.Context()
			header := r.Header.Get(CSRFHeader)
			if header == "" {
				WriteError(w, http.StatusForbidden, "csrf_invalid", "missing anti-forgery token")
				return
			}
			if cookie, err := r.Cookie(cookieName); err == nil &&
				subtle.ConstantTimeCompare([]byte(header), []byte(cookie.Value)) != 1 {
				WriteError(w, http.StatusForbidden, "csrf_invalid", "anti-forgery token does not match cookie")
				return
			}

			claims, ok := ClaimsFromContext(ctx)
			if !ok {
				writeBearerError(w, "missing access token")
				return
			}
			if err := checker.CheckCSRF(ctx, claims.SID, header); err != nil {
				slogx.FromContext(ctx).Warn("csrf token not bound to session", "session_id", claims.SID)
				WriteError(w, http.StatusForbidden, "csrf_invalid", "anti-forgery token does not match session")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func isSafeMethod(m string) bool {
	switch m {
	case http.MethodGet, http.MethodHead, http.MethodOptions:
		return true
	}
	return false
}

// CookieOptions controls attributes shared by the session cookies.
type CookieOptions struct {
	Secure   bool
	SameSite http.SameSite
	Path     string
}

// SetCookie writes a cookie that expires at expires. httpOnly hides it from
// scripts; the anti-forgery cookie must stay readable.
func SetCookie(w http.ResponseWriter, opts CookieOptions, name, value string, expires time.Time, httpOnly bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     cookiePath(opts),
		Expires:  expires,
		MaxAge:   max(int(time.Until(expires).Seconds()), 1),
		HttpOnly: httpOnly,
		Secure:   opts.Secure,
		SameSite: cookieSameSite(opts),
	})
}

// ClearCookie expires a cookie immediately.
func ClearCookie(w http.ResponseWriter, opts CookieOptions, name string, httpOnly bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     cookiePath(opts),
		MaxAge:   -1,
		Expires:  time.Unix(0, 0),
		HttpOnly: httpOnly,
		Secure:   opts.Secure,
		SameSite: cookieSameSite(opts),
	})
}

func cookiePath(o CookieOptions) string {
	if o.Path == "" {
		return "/"
	}
	return o.Path
}

func cookieSameSite(o CookieOptions) http.SameSite {
	if o.SameSite == 0 {
		return http.SameSiteStrictMode
	}
	return o.SameSite
}
