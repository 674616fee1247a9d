package vaultsdk

import "time"

// PasswordHeader carries the password that unlocks a file body on download
// and share link requests. The password query parameter is also accepted.
const PasswordHeader = "X-File-Password"

// ============================================================================
// Account
// ============================================================================

type RegisterRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
}

type User struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// MessageResponse is the body of operations that only acknowledge.
type MessageResponse struct {
	Message string `json:"message"`
}

// LoginResponse acknowledges that a code was sent. PendingID identifies the
// pending sign-in and may be passed back to verify-otp instead of the email.
type LoginResponse struct {
	Message   string `json:"message"`
	PendingID string `json:"pending_id"`
}

type VerifyOTPRequest struct {
	Email     string `json:"email,omitempty"`
	PendingID string `json:"pending_id,omitempty"`
	OTP       string `json:"otp"`
}

// SessionResponse is returned by verify-otp. The access token is also set as
// an HttpOnly cookie and the CSRF token as a readable cookie.
type SessionResponse struct {
	AccessToken string    `json:"access_token"`
	TokenType   string    `json:"token_type"`
	ExpiresIn   int       `json:"expires_in"`
	ExpiresAt   time.Time `json:"expires_at"`
	CSRFToken   string    `json:"csrf_token"`
	User        User      `json:"user"`
}

type VerifyAuthResponse struct {
	Authenticated bool  `json:"authenticated"`
	User          *User `json:"user,omitempty"`
}

type ForgotPasswordRequest struct {
	Email string `json:"email"`
}

type ResetPasswordRequest struct {
	Token       string `json:"token"`
	NewPassword string `json:"new_password"`
}

// ============================================================================
// Files
// ============================================================================

type UploadResponse struct {
	FileID string `json:"file_id"`
}

type Grant struct {
	Email      string    `json:"email"`
	Permission string    `json:"permission"`
	UpdatedAt  time.Time `json:"updated_at"`
}

type Link struct {
	ShareLink       string    `json:"share_link"`
	Token           string    `json:"token"`
	RequirePassword bool      `json:"require_password"`
	ExpiresAt       time.Time `json:"expires_at"`
	Active          bool      `json:"active"`
}

type OwnedFile struct {
	ID          string    `json:"id"`
	FileName    string    `json:"file_name"`
	FileSize    int64     `json:"file_size"`
	ContentType string    `json:"content_type"`
	UploadedAt  time.Time `json:"uploaded_at"`
	Grants      []Grant   `json:"shared_with"`
	Links       []Link    `json:"share_links"`
}

type SharedFile struct {
	ID          string    `json:"id"`
	FileName    string    `json:"file_name"`
	FileSize    int64     `json:"file_size"`
	ContentType string    `json:"content_type"`
	UploadedAt  time.Time `json:"uploaded_at"`
	Owner       User      `json:"owner"`
	Permission  string    `json:"permission"`
}

type ListFilesResponse struct {
	OwnedFiles  []OwnedFile  `json:"owned_files"`
	SharedFiles []SharedFile `json:"shared_files"`
}

type ShareRequest struct {
	Email      string `json:"email"`
	Permission string `json:"permission"`
}

type RevokeRequest struct {
	Email string `json:"email"`
}

type CreateLinkRequest struct {
	ExpiryHours int `json:"expiry_hours"`

	// RequirePassword defaults to true when omitted.
	RequirePassword *bool `json:"require_password,omitempty"`
}

type CreateLinkResponse struct {
	ShareLink       string    `json:"share_link"`
	Token           string    `json:"token"`
	ExpiresAt       time.Time `json:"expires_at"`
	RequirePassword bool      `json:"require_password"`
}

// LinkMetadata is what an anonymous caller sees before supplying a password.
type LinkMetadata struct {
	FileName         string    `json:"file_name"`
	FileSize         int64     `json:"file_size"`
	ContentType      string    `json:"content_type"`
	Owner            string    `json:"owner"`
	ExpiresAt        time.Time `json:"expires_at"`
	RequiresPassword bool      `json:"requires_password"`
}

// ============================================================================
// System
// ============================================================================

type HealthResponse struct {
	Status  string            `json:"status"`
	Version string            `json:"version,omitempty"`
	Uptime  string            `json:"uptime,omitempty"`
	Checks  map[string]string `json:"checks,omitempty"`
}
