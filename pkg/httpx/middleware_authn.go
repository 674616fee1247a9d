package httpx

import (
	"context"
	"net/http"
	"strings"

	"github.com/aussiebroadwan/strongbox/pkg/jwtx"
	"github.com/aussiebroadwan/strongbox/pkg/slogx"
)

// TokenValidator checks an access token and the session it belongs to.
type TokenValidator interface {
	Validate(ctx context.Context, token string) (jwtx.Claims, error)
}

// TokenValidatorFunc adapts a function to TokenValidator.
type TokenValidatorFunc func(ctx context.Context, token string) (jwtx.Claims, error)

func (f TokenValidatorFunc) Validate(ctx context.Context, token string) (jwtx.Claims, error) {
	return f(ctx, token)
}

// AuthnMiddleware authenticates the request with a bearer token, falling
// back to the session cookie named cookieName when no Authorization header
// is sent.
func AuthnMiddleware(v TokenValidator, cookieName string) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			log := slogx.FromContext(ctx)

			raw, ok := ExtractToken(r, cookieName)
			if !ok {
				writeBearerError(w, "missing access token")
				return
			}

			claims, err := v.Validate(ctx, raw)
			if err != nil {
				log.Debug("access token rejected", "err", err)
				writeBearerError(w, "access token is invalid or the session has ended")
				return
			}

			next.ServeHTTP(w, r.WithContext(contextWithAuth(ctx, raw, claims)))
		})
	}
}

// RequireAMR rejects authenticated requests whose token does not list every
// given authentication method.
func RequireAMR(methods ...string) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, ok := ClaimsFromContext(r.Context())
			if !ok {
				writeBearerError(w, "missing access token")
				return
			}
			for _, m := range methods {
				if !claims.HasMethod(m) {
					WriteError(w, http.StatusForbidden, "forbidden",
						"session has not completed "+m+" verification")
					return
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

// ExtractToken returns the bearer token, or the value of the cookie named
// cookieName when no Authorization header is present.
func ExtractToken(r *http.Request, cookieName string) (string, bool) {
	if authz := r.Header.Get("Authorization"); authz != "" {
		scheme, token, found := strings.Cut(authz, " ")
		if !found || !strings.EqualFold(scheme, "Bearer") {
			return "", false
		}
		token = strings.TrimSpace(token)
		return token, token != ""
	}

	if cookieName == "" {
		return "", false
	}
	c, err := r.Cookie(cookieName)
	if err != nil || c.Value == "" {
		return "", false
	}
	return c.Value, true
}

// RFC 6750 style challenge with a JSON body.
func writeBearerError(w http.ResponseWriter, desc string) {
	w.Header().Set("WWW-Authenticate", `Bearer error="invalid_token", error_description="`+desc+`"`)
	WriteError(w, http.StatusUnauthorized, "unauthenticated", desc)
}
