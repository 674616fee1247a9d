package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/aussiebroadwan/strongbox/pkg/httpx"
	"github.com/aussiebroadwan/strongbox/pkg/slogx"
	"github.com/aussiebroadwan/strongbox/pkg/vaultsdk"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAccountFlow(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	u, err := env.client.Register(ctx, "Alice@Example.com", testPassword, "Alice")
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", u.Email)
	assert.NotEmpty(t, u.ID)

	_, err = env.client.Register(ctx, "alice@example.com", testPassword, "Again")
	assert.ErrorIs(t, err, vaultsdk.ErrConflict)

	_, err = env.client.Login(ctx, "alice@example.com", "not the password")
	assert.ErrorIs(t, err, vaultsdk.ErrInvalidCredentials)

	sess := env.signIn(t, "alice@example.com")
	assert.Equal(t, "alice@example.com", sess.User().Email)
	assert.NotEmpty(t, sess.CSRFToken())

	status, err := sess.VerifyAuth(ctx)
	require.NoError(t, err)
	assert.True(t, status.Authenticated)
	require.NotNil(t, status.User)
	assert.Equal(t, u.ID, status.User.ID)

	require.NoError(t, sess.Logout(ctx))

	status, err = env.client.VerifyAuth(ctx, sess.AccessToken())
	require.NoError(t, err)
	assert.False(t, status.Authenticated)

	_, err = sess.ListFiles(ctx)
	assert.ErrorIs(t, err, vaultsdk.ErrUnauthenticated)
}

func TestVerifyOTPErrors(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.client.Register(ctx, "bob@example.com", testPassword, "Bob")
	require.NoError(t, err)

	_, err = env.client.VerifyOTP(ctx, "bob@example.com", "123456")
	assert.ErrorIs(t, err, vaultsdk.ErrOtpInvalid, "no sign-in is pending")

	login, err := env.client.Login(ctx, "bob@example.com", testPassword)
	require.NoError(t, err)
	require.NotEmpty(t, login.PendingID)
	assert.Equal(t, "OTP sent", login.Message)

	code := env.code(t, "bob@example.com")
	wrong := "000000"
	if code == wrong {
		wrong = "111111"
	}
	_, err = env.client.VerifyPendingOTP(ctx, login.PendingID, wrong)
	assert.ErrorIs(t, err, vaultsdk.ErrOtpInvalid)

	sess, err := env.client.VerifyPendingOTP(ctx, login.PendingID, code)
	require.NoError(t, err)
	assert.Equal(t, "bob@example.com", sess.User().Email)

	_, err = env.client.VerifyPendingOTP(ctx, login.PendingID, code)
	assert.Error(t, err, "a code is single use")
}

func TestFileLifecycle(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	alice := env.signUp(t, "alice@example.com")
	bob := env.signUp(t, "bob@example.com")

	data := []byte("quarterly numbers")
	up, err := alice.Upload(ctx, "report.txt", "text/plain", data, "file-secret")
	require.NoError(t, err)
	require.NotEmpty(t, up.FileID)

	t.Run("owner needs no password", func(t *testing.T) {
		got, contentType, err := alice.Download(ctx, up.FileID, "")
		require.NoError(t, err)
		assert.Equal(t, data, got)
		assert.Equal(t, "text/plain", contentType)
	})

	t.Run("stranger sees not found", func(t *testing.T) {
		_, _, err := bob.Download(ctx, up.FileID, "file-secret")
		assert.ErrorIs(t, err, vaultsdk.ErrNotFound)
	})

	require.NoError(t, alice.Share(ctx, up.FileID, "bob@example.com", "view"))

	t.Run("view grant", func(t *testing.T) {
		got, _, err := bob.View(ctx, up.FileID, "file-secret")
		require.NoError(t, err)
		assert.Equal(t, data, got)

		_, _, err = bob.Download(ctx, up.FileID, "file-secret")
		assert.ErrorIs(t, err, vaultsdk.ErrForbidden)

		_, _, err = bob.View(ctx, up.FileID, "")
		assert.ErrorIs(t, err, vaultsdk.ErrPasswordRequired)

		_, _, err = bob.View(ctx, up.FileID, "wrong")
		assert.ErrorIs(t, err, vaultsdk.ErrDecryptionFailed)
	})

	t.Run("bob cannot manage", func(t *testing.T) {
		err := bob.Share(ctx, up.FileID, "carol@example.com", "view")
		assert.ErrorIs(t, err, vaultsdk.ErrForbidden)
	})

	t.Run("listing", func(t *testing.T) {
		owned, err := alice.ListFiles(ctx)
		require.NoError(t, err)
		require.Len(t, owned.OwnedFiles, 1)
		assert.Equal(t, up.FileID, owned.OwnedFiles[0].ID)
		assert.Equal(t, int64(len(data)), owned.OwnedFiles[0].FileSize)
		require.Len(t, owned.OwnedFiles[0].Grants, 1)
		assert.Equal(t, "view", owned.OwnedFiles[0].Grants[0].Permission)

		shared, err := bob.ListFiles(ctx)
		require.NoError(t, err)
		assert.Empty(t, shared.OwnedFiles)
		require.Len(t, shared.SharedFiles, 1)
		assert.Equal(t, "alice@example.com", shared.SharedFiles[0].Owner.Email)
	})

	require.NoError(t, alice.Revoke(ctx, up.FileID, "bob@example.com"))
	_, _, err = bob.View(ctx, up.FileID, "file-secret")
	assert.ErrorIs(t, err, vaultsdk.ErrNotFound)

	require.NoError(t, alice.Delete(ctx, up.FileID))
	_, _, err = alice.Download(ctx, up.FileID, "")
	assert.ErrorIs(t, err, vaultsdk.ErrNotFound)
	assert.Equal(t, 0, env.blobs.Len())
}

func TestShareLinks(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	alice := env.signUp(t, "alice@example.com")
	data := []byte("holiday photos")
	up, err := alice.Upload(ctx, "photos.zip", "application/zip", data, "file-secret")
	require.NoError(t, err)

	t.Run("password link", func(t *testing.T) {
		link, err := alice.CreateLink(ctx, up.FileID, vaultsdk.CreateLinkRequest{ExpiryHours: 24})
		require.NoError(t, err)
		assert.True(t, link.RequirePassword)
		assert.True(t, strings.HasSuffix(link.ShareLink, "/v1/shared/"+link.Token))

		meta, err := env.client.SharedMetadata(ctx, link.Token)
		require.NoError(t, err)
		assert.Equal(t, "photos.zip", meta.FileName)
		assert.Equal(t, "alice@example.com", meta.Owner)
		assert.True(t, meta.RequiresPassword)

		_, _, err = env.client.SharedDownload(ctx, link.Token, "")
		assert.ErrorIs(t, err, vaultsdk.ErrPasswordRequired)

		_, _, err = env.client.SharedDownload(ctx, link.Token, "wrong")
		assert.ErrorIs(t, err, vaultsdk.ErrDecryptionFailed)

		got, contentType, err := env.client.SharedDownload(ctx, link.Token, "file-secret")
		require.NoError(t, err)
		assert.Equal(t, data, got)
		assert.Equal(t, "application/zip", contentType)

		require.NoError(t, alice.ExpireLink(ctx, link.Token))
		_, err = env.client.SharedMetadata(ctx, link.Token)
		assert.ErrorIs(t, err, vaultsdk.ErrLinkExpired)
	})

	t.Run("open link", func(t *testing.T) {
		open := false
		link, err := alice.CreateLink(ctx, up.FileID, vaultsdk.CreateLinkRequest{
			ExpiryHours:     1,
			RequirePassword: &open,
		})
		require.NoError(t, err)
		assert.False(t, link.RequirePassword)

		got, _, err := env.client.SharedDownload(ctx, link.Token, "")
		require.NoError(t, err)
		assert.Equal(t, data, got)
	})

	t.Run("bad expiry", func(t *testing.T) {
		_, err := alice.CreateLink(ctx, up.FileID, vaultsdk.CreateLinkRequest{ExpiryHours: -1})
		assert.ErrorIs(t, err, vaultsdk.ErrInvalidRequest)
	})

	t.Run("unknown token", func(t *testing.T) {
		_, err := env.client.SharedMetadata(ctx, "no-such-token")
		assert.ErrorIs(t, err, vaultsdk.ErrNotFound)
	})

	t.Run("links die with the file", func(t *testing.T) {
		open := false
		link, err := alice.CreateLink(ctx, up.FileID, vaultsdk.CreateLinkRequest{ExpiryHours: 1, RequirePassword: &open})
		require.NoError(t, err)
		require.NoError(t, alice.Delete(ctx, up.FileID))

		_, err = env.client.SharedMetadata(ctx, link.Token)
		assert.ErrorIs(t, err, vaultsdk.ErrNotFound)
	})
}

func TestInlineContentIsSandboxed(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	alice := env.signUp(t, "alice@example.com")

	fetch := func(fileID, disposition string) *http.Response {
		req, err := http.NewRequest(http.MethodGet, env.srv.URL+"/v1/download-file/"+fileID+"?disposition="+disposition, nil)
		require.NoError(t, err)
		req.Header.Set("Authorization", "Bearer "+alice.AccessToken())
		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		resp.Body.Close()
		require.Equal(t, http.StatusOK, resp.StatusCode)
		return resp
	}

	tests := []struct {
		name        string
		fileName    string
		contentType string
		disposition string
		wantType    string
		wantCD      string
	}{
		{"html falls back to attachment", "evil.html", "text/html", "inline", "application/octet-stream", "attachment; filename=evil.html"},
		{"svg falls back to attachment", "logo.svg", "image/svg+xml", "inline", "application/octet-stream", "attachment; filename=logo.svg"},
		{"png renders inline", "cat.png", "image/png", "inline", "image/png", "inline; filename=cat.png"},
		{"html attachment", "page.html", "text/html", "attachment", "text/html", "attachment; filename=page.html"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			up, err := alice.Upload(ctx, tt.fileName, tt.contentType, []byte("<script>alert(1)</script>"), "file-secret")
			require.NoError(t, err)

			resp := fetch(up.FileID, tt.disposition)
			assert.Equal(t, tt.wantType, resp.Header.Get("Content-Type"))
			assert.Equal(t, tt.wantCD, resp.Header.Get("Content-Disposition"))
			assert.Equal(t, "sandbox; default-src 'none'", resp.Header.Get("Content-Security-Policy"))
			assert.Equal(t, "nosniff", resp.Header.Get("X-Content-Type-Options"))
		})
	}
}

func TestShareTokensStayOutOfLogs(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	alice := env.signUp(t, "alice@example.com")
	up, err := alice.Upload(ctx, "notes.txt", "text/plain", []byte("quiet"), "file-secret")
	require.NoError(t, err)

	open := false
	link, err := alice.CreateLink(ctx, up.FileID, vaultsdk.CreateLinkRequest{ExpiryHours: 1, RequirePassword: &open})
	require.NoError(t, err)

	_, err = env.client.SharedMetadata(ctx, link.Token)
	require.NoError(t, err)
	require.NoError(t, alice.ExpireLink(ctx, link.Token))

	redactedExpire := `"path":"/v1/expire-link/` + slogx.RedactedSegment + `"`
	require.Eventually(t, func() bool {
		return strings.Contains(env.logs.String(), redactedExpire)
	}, time.Second, 10*time.Millisecond)

	logs := env.logs.String()
	assert.Contains(t, logs, `"path":"/v1/shared/`+slogx.RedactedSegment+`"`)
	assert.NotContains(t, logs, link.Token)
}

func TestCookieSessionRequiresCSRF(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.client.Register(ctx, "carol@example.com", testPassword, "Carol")
	require.NoError(t, err)
	_, err = env.client.Login(ctx, "carol@example.com", testPassword)
	require.NoError(t, err)

	body, err := json.Marshal(vaultsdk.VerifyOTPRequest{
		Email: "carol@example.com",
		OTP:   env.code(t, "carol@example.com"),
	})
	require.NoError(t, err)
	resp, err := http.Post(env.srv.URL+"/v1/verify-otp", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	cookies := map[string]*http.Cookie{}
	for _, c := range resp.Cookies() {
		cookies[c.Name] = c
	}
	session, csrf := cookies[SessionCookie], cookies[CSRFCookie]
	require.NotNil(t, session)
	require.NotNil(t, csrf)
	assert.True(t, session.HttpOnly)
	assert.False(t, csrf.HttpOnly)

	logout := func(csrfHeader string) *http.Response {
		req, err := http.NewRequest(http.MethodPost, env.srv.URL+"/v1/logout", nil)
		require.NoError(t, err)
		req.AddCookie(session)
		req.AddCookie(csrf)
		if csrfHeader != "" {
			req.Header.Set(httpx.CSRFHeader, csrfHeader)
		}
		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		t.Cleanup(func() { resp.Body.Close() })
		return resp
	}

	assert.Equal(t, http.StatusForbidden, logout("").StatusCode)
	assert.Equal(t, http.StatusForbidden, logout("forged").StatusCode)

	// Reads only need the cookie.
	req, err := http.NewRequest(http.MethodGet, env.srv.URL+"/v1/list-files", nil)
	require.NoError(t, err)
	req.AddCookie(session)
	list, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	list.Body.Close()
	assert.Equal(t, http.StatusOK, list.StatusCode)

	assert.Equal(t, http.StatusOK, logout(csrf.Value).StatusCode)
}

func TestBearerSessionRequiresCSRF(t *testing.T) {
	env := newTestEnv(t)
	alice := env.signUp(t, "alice@example.com")

	logout := func(csrfHeader string) int {
		req, err := http.NewRequest(http.MethodPost, env.srv.URL+"/v1/logout", nil)
		require.NoError(t, err)
		req.Header.Set("Authorization", "Bearer "+alice.AccessToken())
		if csrfHeader != "" {
			req.Header.Set(httpx.CSRFHeader, csrfHeader)
		}
		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		resp.Body.Close()
		return resp.StatusCode
	}

	assert.Equal(t, http.StatusForbidden, logout(""))
	assert.Equal(t, http.StatusForbidden, logout("forged"))
	assert.Equal(t, http.StatusOK, logout(alice.CSRFToken()))
}

func TestUploadTooLarge(t *testing.T) {
	env := newTestEnv(t, func(r *Router) {
		r.Vault.MaxUploadBytes = 16
	})
	ctx := context.Background()

	alice := env.signUp(t, "alice@example.com")
	_, err := alice.Upload(ctx, "big.bin", "application/octet-stream", bytes.Repeat([]byte("x"), 64), "file-secret")
	assert.ErrorIs(t, err, vaultsdk.ErrPayloadTooLarge)
}

func TestUploadRequiresFilePart(t *testing.T) {
	env := newTestEnv(t)
	alice := env.signUp(t, "alice@example.com")

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	require.NoError(t, mw.WriteField("password", "file-secret"))
	require.NoError(t, mw.Close())

	req, err := http.NewRequest(http.MethodPost, env.srv.URL+"/v1/upload-file", &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+alice.AccessToken())
	req.Header.Set(httpx.CSRFHeader, alice.CSRFToken())

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	var apiErr vaultsdk.APIError
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&apiErr))
	assert.Equal(t, vaultsdk.ErrorCodeInvalidRequest, apiErr.Code)
}

func TestRegisterRateLimited(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	var limited error
	for i := range 6 {
		_, err := env.client.Register(ctx, "user"+string(rune('a'+i))+"@example.com", testPassword, "User")
		if err != nil {
			limited = err
		}
	}
	require.Error(t, limited)
	assert.True(t, errors.Is(limited, vaultsdk.ErrRateLimited))
}

func TestSystemEndpoints(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	live, err := env.client.Livez(ctx)
	require.NoError(t, err)
	assert.Equal(t, "ok", live.Status)

	ready, err := env.client.Readyz(ctx)
	require.NoError(t, err)
	assert.Equal(t, "ok", ready.Status)
	assert.Equal(t, "ok", ready.Checks["database"])
	assert.Equal(t, "ok", ready.Checks["blobs"])

	jwks, err := env.client.JWKS(ctx)
	require.NoError(t, err)
	assert.NotEmpty(t, jwks.Keys)

	resp, err := http.Get(env.srv.URL + "/swagger/doc.json")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	doc, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(doc), "/v1/upload-file")
}

func TestCORSPreflight(t *testing.T) {
	env := newTestEnv(t, func(r *Router) {
		r.AllowedOrigins = []string{"https://vault.example.com"}
	})

	req, err := http.NewRequest(http.MethodOptions, env.srv.URL+"/v1/list-files", nil)
	require.NoError(t, err)
	req.Header.Set("Origin", "https://vault.example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodGet)

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, "https://vault.example.com", resp.Header.Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", resp.Header.Get("Access-Control-Allow-Credentials"))
}
