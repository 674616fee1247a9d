package store

import (
	"context"
	"errors"
	"time"

	"github.com/aussiebroadwan/strongbox/internal/strongbox/domain"
)

var (
	ErrNotFound      = errors.New("store: not found")
	ErrAlreadyExists = errors.New("store: already exists")

	// ErrConflict reports a conditional update that matched no row because
	// another writer got there first.
	ErrConflict = errors.New("store: conflict")
)

// Store is the root data access interface. It exposes sub-repositories so a
// transaction-scoped Store (Tx) can hand out the same repos bound to the
// transaction.
type Store interface {
	Users() Users
	Sessions() Sessions
	PasswordResets() PasswordResets
	Files() Files
	ShareGrants() ShareGrants
	ShareLinks() ShareLinks
	BlobTombstones() BlobTombstones
	SigningKeys() SigningKeys

	ApplyMigrations() error

	// Tx starts a read/write transaction. The caller MUST Commit or Rollback.
	Tx(ctx context.Context) (Tx, error)

	// WithTx runs fn in a transaction, committing if fn returns nil and
	// rolling back otherwise. Nested transactions are not supported.
	WithTx(ctx context.Context, fn func(tx Tx) error) error

	Close() error
	Ping(ctx context.Context) error
}

// Tx is a transactional store.
type Tx interface {
	Store
	Commit() error
	Rollback() error
}

type Users interface {
	// CreateUser returns ErrAlreadyExists if the email is taken.
	CreateUser(ctx context.Context, u domain.User) error
	GetUserByID(ctx context.Context, id string) (domain.User, error)
	GetUserByEmail(ctx context.Context, email string) (domain.User, error)
	UpdatePasswordHash(ctx context.Context, userID, hash string, now time.Time) error

	// NextOTPCounter atomically increments and returns the user's HOTP counter.
	NextOTPCounter(ctx context.Context, userID string) (uint64, error)
}

type Sessions interface {
	CreateSession(ctx context.Context, s domain.Session) error
	GetSession(ctx context.Context, id string) (domain.Session, error)

	// GetLatestPendingSession returns the newest pending_otp session of a user.
	GetLatestPendingSession(ctx context.Context, userID string) (domain.Session, error)

	// IncrementOTPAttempts bumps the attempt counter of a pending session and
	// returns the updated row. ErrConflict if the session is no longer pending.
	IncrementOTPAttempts(ctx context.Context, id string, now time.Time) (domain.Session, error)

	// MarkAuthenticated flips pending_otp to authenticated. ErrConflict if
	// the session was not pending, which makes a code usable exactly once.
	MarkAuthenticated(ctx context.Context, id, tokenFP, csrfFP string, expiresAt, now time.Time) error

	ExpireSession(ctx context.Context, id string, now time.Time) error
	ExpireUserSessions(ctx context.Context, userID string, now time.Time) (int64, error)

	// ExpireStaleSessions moves pending sessions past their code expiry and
	// authenticated sessions past their expiry to expired.
	ExpireStaleSessions(ctx context.Context, now time.Time) (int64, error)

	// DeleteExpiredSessionsBefore removes expired sessions untouched since cutoff.
	DeleteExpiredSessionsBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

type PasswordResets interface {
	CreatePasswordReset(ctx context.Context, r domain.PasswordReset) error
	GetPasswordResetByHash(ctx context.Context, tokenHash string) (domain.PasswordReset, error)

	// MarkPasswordResetUsed consumes the token. ErrConflict if already used.
	MarkPasswordResetUsed(ctx context.Context, id string, now time.Time) error

	DeleteExpiredPasswordResets(ctx context.Context, now time.Time) (int64, error)
}

type Files interface {
	CreateFile(ctx context.Context, f domain.File) error
	GetFile(ctx context.Context, id string) (domain.File, error)
	ListFilesByOwner(ctx context.Context, ownerID string) ([]domain.File, error)

	// ListFilesSharedWith returns files granted to email, with their owner.
	ListFilesSharedWith(ctx context.Context, email string) ([]domain.SharedFile, error)

	// BumpVersion increments the file's version if it still equals expected.
	// ErrConflict if it does not (or the file is gone).
	BumpVersion(ctx context.Context, id string, expected int64) error

	DeleteFile(ctx context.Context, id string) error
}

type ShareGrants interface {
	// UpsertGrant creates the grant or updates its permission.
	UpsertGrant(ctx context.Context, g domain.ShareGrant) error
	GetGrant(ctx context.Context, fileID, email string) (domain.ShareGrant, error)

	// DeleteGrant is a no-op for a missing grant.
	DeleteGrant(ctx context.Context, fileID, email string) error
	ListGrantsByFile(ctx context.Context, fileID string) ([]domain.ShareGrant, error)
	DeleteGrantsByFile(ctx context.Context, fileID string) error
}

type ShareLinks interface {
	CreateLink(ctx context.Context, l domain.ShareLink) error
	GetLinkByTokenHash(ctx context.Context, tokenHash string) (domain.ShareLink, error)
	ListLinksByFile(ctx context.Context, fileID string) ([]domain.ShareLink, error)

	// DeactivateLink clears the active flag and any link key wrap.
	DeactivateLink(ctx context.Context, id string, now time.Time) error
	DeleteLinksByFile(ctx context.Context, fileID string) error

	DeactivateExpiredLinks(ctx context.Context, now time.Time) (int64, error)
	DeleteInactiveLinksBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

type BlobTombstones interface {
	CreateTombstone(ctx context.Context, blobKey string, now time.Time) error
	ListTombstones(ctx context.Context, limit int) ([]domain.BlobTombstone, error)
	RecordTombstoneAttempt(ctx context.Context, blobKey string) error
	DeleteTombstone(ctx context.Context, blobKey string) error
}

type SigningKeys interface {
	CreateSigningKey(ctx context.Context, key domain.SigningKey) error

	// ListActiveSigningKeys returns keys expiring after now, newest first.
	ListActiveSigningKeys(ctx context.Context, now time.Time) ([]domain.SigningKey, error)
	DeleteExpiredSigningKeys(ctx context.Context, now time.Time) (int64, error)
}
