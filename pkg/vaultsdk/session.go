package vaultsdk

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"sync"
	"time"
)

// Session is a signed-in user. It sends the access token as a bearer header
// and the anti-forgery token on every state-changing call.
type Session struct {
	client *Client

	mu          sync.RWMutex
	accessToken string
	csrfToken   string
	expiresAt   time.Time
	user        User
}

func newSession(c *Client, resp *SessionResponse) *Session {
	return &Session{
		client:      c,
		accessToken: resp.AccessToken,
		csrfToken:   resp.CSRFToken,
		expiresAt:   resp.ExpiresAt,
		user:        resp.User,
	}
}

// NewSessionFromTokens rebuilds a Session from tokens kept elsewhere.
func (c *Client) NewSessionFromTokens(accessToken, csrfToken string) *Session {
	return &Session{client: c, accessToken: accessToken, csrfToken: csrfToken}
}

func (s *Session) AccessToken() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.accessToken
}

func (s *Session) CSRFToken() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.csrfToken
}

func (s *Session) User() User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.user
}

func (s *Session) ExpiresAt() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.expiresAt
}

func (s *Session) headers() map[string]string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return map[string]string{
		"Authorization": "Bearer " + s.accessToken,
		"X-CSRF-Token":  s.csrfToken,
	}
}

func (s *Session) VerifyAuth(ctx context.Context) (*VerifyAuthResponse, error) {
	return s.client.VerifyAuth(ctx, s.AccessToken())
}

// Logout ends the session on the server. The Session is unusable after.
func (s *Session) Logout(ctx context.Context) error {
	return s.client.doJSON(ctx, http.MethodPost, "/v1/logout", nil, nil, http.StatusOK, s.headers())
}

// Upload encrypts data under password on the server and returns its id.
func (s *Session) Upload(ctx context.Context, fileName, contentType string, data []byte, password string) (*UploadResponse, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	if err := mw.WriteField("password", password); err != nil {
		return nil, err
	}
	h := make(map[string][]string)
	h["Content-Disposition"] = []string{fmt.Sprintf(`form-data; name="file"; filename=%q`, fileName)}
	if contentType != "" {
		h["Content-Type"] = []string{contentType}
	}
	part, err := mw.CreatePart(h)
	if err != nil {
		return nil, err
	}
	if _, err := part.Write(data); err != nil {
		return nil, err
	}
	if err := mw.Close(); err != nil {
		return nil, err
	}

	headers := s.headers()
	headers["Content-Type"] = mw.FormDataContentType()

	resp, err := s.client.do(ctx, http.MethodPost, "/v1/upload-file", &buf, headers)
	if err != nil {
		return nil, err
	}
	var out UploadResponse
	if err := decodeJSON(resp, &out, http.StatusCreated); err != nil {
		return nil, err
	}
	return &out, nil
}

// Download returns the plaintext and its content type. Owners may pass an
// empty password.
func (s *Session) Download(ctx context.Context, fileID, password string) ([]byte, string, error) {
	return s.fetch(ctx, fileID, password, "attachment")
}

// View is Download for holders of a view grant.
func (s *Session) View(ctx context.Context, fileID, password string) ([]byte, string, error) {
	return s.fetch(ctx, fileID, password, "inline")
}

func (s *Session) fetch(ctx context.Context, fileID, password, disposition string) ([]byte, string, error) {
	headers := s.headers()
	if password != "" {
		headers[PasswordHeader] = password
	}
	resp, err := s.client.do(ctx, http.MethodGet,
		"/v1/download-file/"+url.PathEscape(fileID)+"?disposition="+disposition, nil, headers)
	if err != nil {
		return nil, "", err
	}
	return readBinary(resp)
}

func (s *Session) ListFiles(ctx context.Context) (*ListFilesResponse, error) {
	var out ListFilesResponse
	if err := s.client.doJSON(ctx, http.MethodGet, "/v1/list-files", nil, &out, http.StatusOK, s.headers()); err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *Session) Share(ctx context.Context, fileID, email, permission string) error {
	return s.client.doJSON(ctx, http.MethodPost, "/v1/share-file/"+url.PathEscape(fileID),
		ShareRequest{Email: email, Permission: permission}, nil, http.StatusOK, s.headers())
}

func (s *Session) Revoke(ctx context.Context, fileID, email string) error {
	return s.client.doJSON(ctx, http.MethodPost, "/v1/revoke-access/"+url.PathEscape(fileID),
		RevokeRequest{Email: email}, nil, http.StatusOK, s.headers())
}

func (s *Session) CreateLink(ctx context.Context, fileID string, req CreateLinkRequest) (*CreateLinkResponse, error) {
	var out CreateLinkResponse
	err := s.client.doJSON(ctx, http.MethodPost, "/v1/create-share-link/"+url.PathEscape(fileID),
		req, &out, http.StatusCreated, s.headers())
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *Session) ExpireLink(ctx context.Context, token string) error {
	return s.client.doJSON(ctx, http.MethodPost, "/v1/expire-link/"+url.PathEscape(token),
		nil, nil, http.StatusOK, s.headers())
}

func (s *Session) Delete(ctx context.Context, fileID string) error {
	resp, err := s.client.do(ctx, http.MethodDelete, "/v1/delete-file/"+url.PathEscape(fileID), nil, s.headers())
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNoContent {
		raw, _ := io.ReadAll(resp.Body)
		return parseErrorResponse(resp, raw)
	}
	return nil
}
