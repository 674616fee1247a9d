package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/aussiebroadwan/strongbox/internal/strongbox/domain"
	"github.com/aussiebroadwan/strongbox/internal/strongbox/store"
	"github.com/aussiebroadwan/strongbox/pkg/cryptox"
	"github.com/aussiebroadwan/strongbox/pkg/idx"
	"github.com/aussiebroadwan/strongbox/pkg/slogx"
	"github.com/cenkalti/backoff/v4"
)

const (
	DefaultLinkMaxHours = 720

	// mutationRetries bounds how often a ledger write is replayed after
	// losing a version race.
	mutationRetries = 5
)

// Access is the outcome of a successful authorization.
type Access struct {
	File       domain.File
	Owner      bool
	Permission domain.Permission // empty for the owner
}

// CreatedLink carries the only copy of the token the caller ever sees in
// the clear, apart from the owner's listing.
type CreatedLink struct {
	Link  domain.ShareLink
	Token string
}

type OwnedFile struct {
	File   domain.File
	Grants []domain.ShareGrant
	Links  []LiveLink
}

type LiveLink struct {
	Link  domain.ShareLink
	Token string
}

type Listing struct {
	Owned  []OwnedFile
	Shared []domain.SharedFile
}

// LedgerService decides who may do what with a file and records grants and
// share links. Every mutation bumps the file's version inside the same
// transaction, so concurrent writers on one file serialize.
type LedgerService struct {
	Store    store.Store
	Envelope *EnvelopeEngine

	LinkMaxHours int

	// NewBackOff overrides the retry schedule for version conflicts.
	NewBackOff func() backoff.BackOff

	Now func() time.Time
}

// Authorize checks requester may perform action on fileID. A non-owner with
// no grant gets ErrNotFound, exactly as if the file did not exist.
func (s *LedgerService) Authorize(ctx context.Context, fileID string, requester domain.Identity, action domain.Action) (Access, error) {
	return authorize(ctx, s.Store, fileID, requester, action)
}

func authorize(ctx context.Context, q store.Store, fileID string, requester domain.Identity, action domain.Action) (Access, error) {
	if _, err := idx.Parse(fileID); err != nil {
		return Access{}, ErrNotFound
	}

	f, err := q.Files().GetFile(ctx, fileID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return Access{}, ErrNotFound
		}
		return Access{}, err
	}

	if f.OwnerID == requester.UserID {
		return Access{File: f, Owner: true}, nil
	}

	g, err := q.ShareGrants().GetGrant(ctx, fileID, NormalizeEmail(requester.Email))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return Access{}, ErrNotFound
		}
		return Access{}, err
	}
	if !g.Permission.Allows(action) {
		return Access{}, ErrForbidden
	}
	return Access{File: f, Permission: g.Permission}, nil
}

// AuthorizeByLink resolves a link token to its file. A link found past its
// expiry is deactivated on the spot.
func (s *LedgerService) AuthorizeByLink(ctx context.Context, token string) (domain.ShareLink, domain.File, error) {
	if token == "" {
		return domain.ShareLink{}, domain.File{}, ErrNotFound
	}

	l, err := s.Store.ShareLinks().GetLinkByTokenHash(ctx, cryptox.FingerprintToken(token))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.ShareLink{}, domain.File{}, ErrNotFound
		}
		return domain.ShareLink{}, domain.File{}, err
	}

	now := clock(s.Now).now()
	if !l.Active {
		return domain.ShareLink{}, domain.File{}, ErrLinkExpired
	}
	if !now.Before(l.ExpiresAt) {
		if err := s.Store.ShareLinks().DeactivateLink(ctx, l.ID, now); err != nil {
			slogx.FromContext(ctx).Warn("failed to deactivate expired link",
				slog.String("link_id", l.ID), slog.String("error", err.Error()))
		}
		return domain.ShareLink{}, domain.File{}, ErrLinkExpired
	}

	f, err := s.Store.Files().GetFile(ctx, l.FileID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.ShareLink{}, domain.File{}, ErrNotFound
		}
		return domain.ShareLink{}, domain.File{}, err
	}
	return l, f, nil
}

// Grant gives email permission on fileID, or changes an existing grant.
func (s *LedgerService) Grant(ctx context.Context, fileID string, owner domain.Identity, email, permission string) error {
	email, err := ValidateEmail(email)
	if err != nil {
		return err
	}
	perm, ok := domain.ParsePermission(permission)
	if !ok {
		return fmt.Errorf("%w: permission must be view or download", ErrInvalidRequest)
	}
	if email == NormalizeEmail(owner.Email) {
		return fmt.Errorf("%w: cannot share a file with its owner", ErrInvalidRequest)
	}

	err = s.mutate(ctx, fileID, owner, func(tx store.Tx, f domain.File, now time.Time) error {
		return tx.ShareGrants().UpsertGrant(ctx, domain.ShareGrant{
			FileID:     f.ID,
			Email:      email,
			Permission: perm,
			CreatedAt:  now,
			UpdatedAt:  now,
		})
	})
	if err != nil {
		return err
	}

	slogx.FromContext(ctx).Info("grant upserted",
		slog.String("file_id", fileID), slog.String("permission", string(perm)))
	return nil
}

// Revoke removes email's grant. Revoking a missing grant is not an error.
func (s *LedgerService) Revoke(ctx context.Context, fileID string, owner domain.Identity, email string) error {
	email = NormalizeEmail(email)
	if email == "" {
		return fmt.Errorf("%w: email is required", ErrInvalidRequest)
	}

	err := s.mutate(ctx, fileID, owner, func(tx store.Tx, f domain.File, _ time.Time) error {
		return tx.ShareGrants().DeleteGrant(ctx, f.ID, email)
	})
	if err != nil {
		return err
	}

	slogx.FromContext(ctx).Info("grant revoked", slog.String("file_id", fileID))
	return nil
}

// CreateLink mints a share link valid for expiryHours. Zero hours yields a
// link that is already expired.
func (s *LedgerService) CreateLink(ctx context.Context, fileID string, owner domain.Identity, expiryHours int, requirePassword bool) (CreatedLink, error) {
	if expiryHours < 0 || expiryHours > s.linkMaxHours() {
		return CreatedLink{}, fmt.Errorf("%w: expiry_hours must be between 0 and %d", ErrInvalidRequest, s.linkMaxHours())
	}

	token, err := cryptox.GenerateToken(cryptox.TokenSize256)
	if err != nil {
		return CreatedLink{}, err
	}

	var created domain.ShareLink
	err = s.mutate(ctx, fileID, owner, func(tx store.Tx, f domain.File, now time.Time) error {
		sealed, err := cryptox.SealWithMasterKey([]byte(token), linkTokenAAD(f.ID))
		if err != nil {
			return fmt.Errorf("seal link token: %w", err)
		}

		l := domain.ShareLink{
			ID:              idx.NewAt(now).String(),
			FileID:          f.ID,
			TokenHash:       cryptox.FingerprintToken(token),
			TokenSealed:     sealed,
			RequirePassword: requirePassword,
			ExpiresAt:       now.Add(time.Duration(expiryHours) * time.Hour),
			Active:          true,
			CreatedAt:       now,
		}
		if !requirePassword {
			if l.LinkSalt, l.LinkWrappedKey, err = s.Envelope.WrapForLink(f, token); err != nil {
				return fmt.Errorf("wrap for link: %w", err)
			}
		}

		if err := tx.ShareLinks().CreateLink(ctx, l); err != nil {
			return err
		}
		created = l
		return nil
	})
	if err != nil {
		return CreatedLink{}, err
	}

	slogx.FromContext(ctx).Info("share link created",
		slog.String("file_id", fileID), slog.String("link_id", created.ID), slog.Int("expiry_hours", expiryHours))
	return CreatedLink{Link: created, Token: token}, nil
}

// ExpireLink deactivates the link behind token. The caller must own its file.
func (s *LedgerService) ExpireLink(ctx context.Context, token string, owner domain.Identity) error {
	l, err := s.Store.ShareLinks().GetLinkByTokenHash(ctx, cryptox.FingerprintToken(token))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrNotFound
		}
		return err
	}

	err = s.mutate(ctx, l.FileID, owner, func(tx store.Tx, _ domain.File, now time.Time) error {
		return tx.ShareLinks().DeactivateLink(ctx, l.ID, now)
	})
	if err != nil {
		return err
	}

	slogx.FromContext(ctx).Info("share link expired", slog.String("link_id", l.ID))
	return nil
}

// DeleteFile removes the file's grants, links and row and leaves a tombstone
// for its blob, all in one transaction. It returns the deleted file.
func (s *LedgerService) DeleteFile(ctx context.Context, fileID string, owner domain.Identity) (domain.File, error) {
	var deleted domain.File
	err := s.mutate(ctx, fileID, owner, func(tx store.Tx, f domain.File, now time.Time) error {
		if err := tx.ShareGrants().DeleteGrantsByFile(ctx, f.ID); err != nil {
			return err
		}
		if err := tx.ShareLinks().DeleteLinksByFile(ctx, f.ID); err != nil {
			return err
		}
		if err := tx.Files().DeleteFile(ctx, f.ID); err != nil {
			return err
		}
		if err := tx.BlobTombstones().CreateTombstone(ctx, f.BlobKey, now); err != nil {
			return err
		}
		deleted = f
		return nil
	})
	return deleted, err
}

// List returns the caller's files with their grants and live links, and the
// files others have granted to the caller's email.
func (s *LedgerService) List(ctx context.Context, caller domain.Identity) (Listing, error) {
	now := clock(s.Now).now()

	files, err := s.Store.Files().ListFilesByOwner(ctx, caller.UserID)
	if err != nil {
		return Listing{}, fmt.Errorf("failed to list owned files: %w", err)
	}

	owned := make([]OwnedFile, 0, len(files))
	for _, f := range files {
		grants, err := s.Store.ShareGrants().ListGrantsByFile(ctx, f.ID)
		if err != nil {
			return Listing{}, err
		}
		links, err := s.Store.ShareLinks().ListLinksByFile(ctx, f.ID)
		if err != nil {
			return Listing{}, err
		}

		live := make([]LiveLink, 0, len(links))
		for _, l := range links {
			if !l.Usable(now) {
				continue
			}
			token, err := cryptox.OpenWithMasterKey(l.TokenSealed, linkTokenAAD(f.ID))
			if err != nil {
				slogx.FromContext(ctx).Warn("failed to open link token", slog.String("link_id", l.ID))
				continue
			}
			live = append(live, LiveLink{Link: l, Token: string(token)})
		}

		owned = append(owned, OwnedFile{File: f, Grants: grants, Links: live})
	}

	shared, err := s.Store.Files().ListFilesSharedWith(ctx, NormalizeEmail(caller.Email))
	if err != nil {
		return Listing{}, fmt.Errorf("failed to list shared files: %w", err)
	}

	return Listing{Owned: owned, Shared: shared}, nil
}

// mutate runs fn in a transaction after claiming the file's current version.
// Only the owner may mutate. A lost version race replays the whole
// transaction with backoff.
func (s *LedgerService) mutate(ctx context.Context, fileID string, owner domain.Identity, fn func(tx store.Tx, f domain.File, now time.Time) error) error {
	op := func() error {
		err := s.Store.WithTx(ctx, func(tx store.Tx) error {
			access, err := authorize(ctx, tx, fileID, owner, domain.ActionManage)
			if err != nil {
				return err
			}
			if err := tx.Files().BumpVersion(ctx, access.File.ID, access.File.Version); err != nil {
				return err
			}
			return fn(tx, access.File, clock(s.Now).now())
		})
		if err == nil || errors.Is(err, store.ErrConflict) {
			return err
		}
		return backoff.Permanent(err)
	}

	err := backoff.Retry(op, backoff.WithContext(s.backOff(), ctx))
	if errors.Is(err, store.ErrConflict) {
		slogx.FromContext(ctx).Warn("ledger mutation lost version race", slog.String("file_id", fileID))
		return ErrConflict
	}
	return err
}

func (s *LedgerService) backOff() backoff.BackOff {
	if s.NewBackOff != nil {
		return s.NewBackOff()
	}
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 10 * time.Millisecond
	b.MaxInterval = 200 * time.Millisecond
	b.MaxElapsedTime = 2 * time.Second
	return backoff.WithMaxRetries(b, mutationRetries)
}

func (s *LedgerService) linkMaxHours() int {
	if s.LinkMaxHours <= 0 {
		return DefaultLinkMaxHours
	}
	return s.LinkMaxHours
}

func linkTokenAAD(fileID string) []byte {
	return []byte("strongbox/link-token/" + fileID)
}
