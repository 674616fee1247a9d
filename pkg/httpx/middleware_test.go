package httpx_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/aussiebroadwan/strongbox/pkg/httpx"
	"github.com/aussiebroadwan/strongbox/pkg/jwtx"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

const sessionCookie = "strongbox_session"
const csrfCookie = "strongbox_csrf"

func TestChain_Order(t *testing.T) {
	var order []string
	mark := func(name string) httpx.Middleware {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				order = append(order, name)
				next.ServeHTTP(w, r)
			})
		}
	}

	h := httpx.Chain(okHandler, mark("a"), mark("b"), mark("c"))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, []string{"a", "b", "c"}, order)
}

var validator = httpx.TokenValidatorFunc(func(_ context.Context, token string) (jwtx.Claims, error) {
	if token != "good" {
		return jwtx.Claims{}, errors.New("bad token")
	}
	return jwtx.Claims{
		RegisteredClaims: jwt.RegisteredClaims{Subject: "user-1"},
		SID:              "sess-1",
		AMR:              []string{"pwd", "otp"},
	}, nil
})

func whoami(t *testing.T) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, ok := httpx.UserIDFromContext(r.Context())
		require.True(t, ok)
		require.Equal(t, "good", httpx.AccessTokenFromContext(r.Context()))
		_, _ = w.Write([]byte(id))
	})
}

func TestAuthnMiddleware(t *testing.T) {
	tests := []struct {
		name   string
		setup  func(*http.Request)
		status int
	}{
		{"bearer header", func(r *http.Request) { r.Header.Set("Authorization", "Bearer good") }, http.StatusOK},
		{"lowercase scheme", func(r *http.Request) { r.Header.Set("Authorization", "bearer good") }, http.StatusOK},
		{"session cookie", func(r *http.Request) { r.AddCookie(&http.Cookie{Name: sessionCookie, Value: "good"}) }, http.StatusOK},
		{"missing", func(r *http.Request) {}, http.StatusUnauthorized},
		{"wrong scheme", func(r *http.Request) { r.Header.Set("Authorization", "Basic good") }, http.StatusUnauthorized},
		{"rejected token", func(r *http.Request) { r.Header.Set("Authorization", "Bearer bad") }, http.StatusUnauthorized},
		{"header wins over cookie", func(r *http.Request) {
			r.Header.Set("Authorization", "Bearer bad")
			r.AddCookie(&http.Cookie{Name: sessionCookie, Value: "good"})
		}, http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := httpx.AuthnMiddleware(validator, sessionCookie)(whoami(t))
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			tt.setup(req)
			rec := httptest.NewRecorder()

			h.ServeHTTP(rec, req)
			require.Equal(t, tt.status, rec.Code)
			if tt.status == http.StatusOK {
				require.Equal(t, "user-1", rec.Body.String())
			} else {
				require.Contains(t, rec.Header().Get("WWW-Authenticate"), "invalid_token")
				require.Contains(t, rec.Body.String(), `"error":"unauthenticated"`)
			}
		})
	}
}

func TestRequireAMR(t *testing.T) {
	h := httpx.Chain(okHandler,
		httpx.AuthnMiddleware(validator, sessionCookie),
		httpx.RequireAMR("otp"),
	)
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer good")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	h = httpx.Chain(okHandler,
		httpx.AuthnMiddleware(validator, sessionCookie),
		httpx.RequireAMR("hwk"),
	)
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusForbidden, rec.Code)
}

type csrfChecker map[string]string

func (c csrfChecker) CheckCSRF(_ context.Context, sid, token string) error {
	if c[sid] != token {
		return errors.New("mismatch")
	}
	return nil
}

func TestCSRFMiddleware(t *testing.T) {
	checker := csrfChecker{"sess-1": "csrf-abc"}
	h := httpx.Chain(okHandler,
		httpx.AuthnMiddleware(validator, sessionCookie),
		httpx.CSRFMiddleware(checker, csrfCookie),
	)

	cookieReq := func(method, header, cookie string) *http.Request {
		req := httptest.NewRequest(method, "/", nil)
		req.AddCookie(&http.Cookie{Name: sessionCookie, Value: "good"})
		if cookie != "" {
			req.AddCookie(&http.Cookie{Name: csrfCookie, Value: cookie})
		}
		if header != "" {
			req.Header.Set(httpx.CSRFHeader, header)
		}
		return req
	}

	tests := []struct {
		name   string
		req    *http.Request
		status int
	}{
		{"safe method skips check", cookieReq(http.MethodGet, "", ""), http.StatusOK},
		{"matching double submit", cookieReq(http.MethodPost, "csrf-abc", "csrf-abc"), http.StatusOK},
		{"missing header", cookieReq(http.MethodPost, "", "csrf-abc"), http.StatusForbidden},
		{"header alone bound to session", cookieReq(http.MethodPost, "csrf-abc", ""), http.StatusOK},
		{"header alone not bound to session", cookieReq(http.MethodPost, "csrf-xyz", ""), http.StatusForbidden},
		{"header differs from cookie", cookieReq(http.MethodPost, "csrf-abc", "csrf-xyz"), http.StatusForbidden},
		{"pair not bound to session", cookieReq(http.MethodDelete, "csrf-xyz", "csrf-xyz"), http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, tt.req)
			require.Equal(t, tt.status, rec.Code)
		})
	}

	bearerReq := func(header string) *http.Request {
		req := httptest.NewRequest(http.MethodPost, "/", nil)
		req.Header.Set("Authorization", "Bearer good")
		if header != "" {
			req.Header.Set(httpx.CSRFHeader, header)
		}
		return req
	}

	t.Run("bearer without header is rejected", func(t *testing.T) {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, bearerReq(""))
		require.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("bearer with session token", func(t *testing.T) {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, bearerReq("csrf-abc"))
		require.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("bearer with foreign token", func(t *testing.T) {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, bearerReq("csrf-xyz"))
		require.Equal(t, http.StatusForbidden, rec.Code)
	})
}

func TestSetAndClearCookie(t *testing.T) {
	rec := httptest.NewRecorder()
	opts := httpx.CookieOptions{Secure: true}

	httpx.SetCookie(rec, opts, csrfCookie, "v", timeIn(60), false)
	httpx.ClearCookie(rec, opts, sessionCookie, true)

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 2)

	require.Equal(t, csrfCookie, cookies[0].Name)
	require.False(t, cookies[0].HttpOnly)
	require.True(t, cookies[0].Secure)
	require.Equal(t, http.SameSiteStrictMode, cookies[0].SameSite)
	require.Equal(t, "/", cookies[0].Path)

	require.Equal(t, sessionCookie, cookies[1].Name)
	require.True(t, cookies[1].HttpOnly)
	require.Equal(t, -1, cookies[1].MaxAge)
}

func timeIn(seconds int) time.Time { return time.Now().Add(time.Duration(seconds) * time.Second) }
