package vaultsdk

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/aussiebroadwan/strongbox/pkg/jwtx"
)

// Client talks to a vault for operations that need no session.
type Client struct {
	BaseURL    string
	HTTPClient *http.Client
}

func NewClient(baseURL string) *Client {
	return &Client{
		BaseURL:    strings.TrimSuffix(baseURL, "/"),
		HTTPClient: &http.Client{Timeout: 30 * time.Second},
	}
}

func (c *Client) Register(ctx context.Context, email, password, name string) (*User, error) {
	var out User
	err := c.doJSON(ctx, http.MethodPost, "/v1/register",
		RegisterRequest{Email: email, Password: password, Name: name}, &out, http.StatusCreated, nil)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// Login checks the password and triggers a one-time code.
func (c *Client) Login(ctx context.Context, email, password string) (*LoginResponse, error) {
	var out LoginResponse
	err := c.doJSON(ctx, http.MethodPost, "/v1/login",
		LoginRequest{Email: email, Password: password}, &out, http.StatusOK, nil)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// VerifyOTP completes sign-in and returns an authenticated Session.
func (c *Client) VerifyOTP(ctx context.Context, email, code string) (*Session, error) {
	return c.verifyOTP(ctx, VerifyOTPRequest{Email: email, OTP: code})
}

// VerifyPendingOTP completes the sign-in identified by pendingID.
func (c *Client) VerifyPendingOTP(ctx context.Context, pendingID, code string) (*Session, error) {
	return c.verifyOTP(ctx, VerifyOTPRequest{PendingID: pendingID, OTP: code})
}

func (c *Client) verifyOTP(ctx context.Context, req VerifyOTPRequest) (*Session, error) {
	var out SessionResponse
	if err := c.doJSON(ctx, http.MethodPost, "/v1/verify-otp", req, &out, http.StatusOK, nil); err != nil {
		return nil, err
	}
	return newSession(c, &out), nil
}

func (c *Client) ForgotPassword(ctx context.Context, email string) error {
	return c.doJSON(ctx, http.MethodPost, "/v1/forgot-password",
		ForgotPasswordRequest{Email: email}, nil, http.StatusOK, nil)
}

func (c *Client) ResetPassword(ctx context.Context, token, newPassword string) error {
	return c.doJSON(ctx, http.MethodPost, "/v1/reset-password",
		ResetPasswordRequest{Token: token, NewPassword: newPassword}, nil, http.StatusOK, nil)
}

// VerifyAuth checks an arbitrary token without building a Session.
func (c *Client) VerifyAuth(ctx context.Context, accessToken string) (*VerifyAuthResponse, error) {
	var headers map[string]string
	if accessToken != "" {
		headers = map[string]string{"Authorization": "Bearer " + accessToken}
	}
	var out VerifyAuthResponse
	if err := c.doJSON(ctx, http.MethodGet, "/v1/verify-auth", nil, &out, http.StatusOK, headers); err != nil {
		return nil, err
	}
	return &out, nil
}

// SharedMetadata describes the file behind a share link.
func (c *Client) SharedMetadata(ctx context.Context, token string) (*LinkMetadata, error) {
	var out LinkMetadata
	if err := c.doJSON(ctx, http.MethodGet, "/v1/shared/"+url.PathEscape(token), nil, &out, http.StatusOK, nil); err != nil {
		return nil, err
	}
	return &out, nil
}

// SharedDownload fetches the bytes behind a share link. Links that require
// no password still need password == "".
func (c *Client) SharedDownload(ctx context.Context, token, password string) ([]byte, string, error) {
	var headers map[string]string
	if password != "" {
		headers = map[string]string{PasswordHeader: password}
	}
	resp, err := c.do(ctx, http.MethodGet, "/v1/shared/"+url.PathEscape(token)+"?download=1", nil, headers)
	if err != nil {
		return nil, "", err
	}
	return readBinary(resp)
}

func (c *Client) Livez(ctx context.Context) (*HealthResponse, error) {
	var out HealthResponse
	if err := c.doJSON(ctx, http.MethodGet, "/livez", nil, &out, http.StatusOK, nil); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Readyz(ctx context.Context) (*HealthResponse, error) {
	var out HealthResponse
	if err := c.doJSON(ctx, http.MethodGet, "/readyz", nil, &out, http.StatusOK, nil); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) JWKS(ctx context.Context) (*jwtx.JWKS, error) {
	var out jwtx.JWKS
	if err := c.doJSON(ctx, http.MethodGet, "/.well-known/jwks.json", nil, &out, http.StatusOK, nil); err != nil {
		return nil, err
	}
	return &out, nil
}
