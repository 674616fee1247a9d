package domain

import (
	"strings"
	"time"
)

// Action is what a caller wants to do with a file.
type Action string

const (
	ActionView     Action = "view"
	ActionDownload Action = "download"
	ActionManage   Action = "manage"
)

// Permission is what a ShareGrant delegates. Manage is never delegated.
type Permission string

const (
	PermissionView     Permission = "view"
	PermissionDownload Permission = "download"
)

// ParsePermission accepts "view" or "download" in any case.
func ParsePermission(s string) (Permission, bool) {
	switch p := Permission(strings.ToLower(strings.TrimSpace(s))); p {
	case PermissionView, PermissionDownload:
		return p, true
	}
	return "", false
}

// Allows reports whether p covers action. Download implies View.
func (p Permission) Allows(a Action) bool {
	switch a {
	case ActionView:
		return p == PermissionView || p == PermissionDownload
	case ActionDownload:
		return p == PermissionDownload
	}
	return false
}

type ShareGrant struct {
	FileID     string
	Email      string // lowercased
	Permission Permission
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

type ShareLink struct {
	ID          string
	FileID      string
	TokenHash   string // SHA-256 fingerprint, used for lookup
	TokenSealed []byte // token sealed under the master key, for the owner's listing

	RequirePassword bool

	// Set only for password-free links: HKDF(token, LinkSalt) wraps the
	// data key. Cleared when the link is deactivated.
	LinkSalt       []byte
	LinkWrappedKey []byte

	ExpiresAt     time.Time
	Active        bool
	DeactivatedAt *time.Time
	CreatedAt     time.Time
}

// Usable reports whether the link still grants access at now.
func (l *ShareLink) Usable(now time.Time) bool {
	return l.Active && now.Before(l.ExpiresAt)
}

// SharedFile is a file someone else owns that the caller holds a grant on.
type SharedFile struct {
	File       File
	OwnerEmail string
	OwnerName  string
	Permission Permission
}
