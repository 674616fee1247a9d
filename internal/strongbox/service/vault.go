package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/aussiebroadwan/strongbox/internal/strongbox/blob"
	"github.com/aussiebroadwan/strongbox/internal/strongbox/domain"
	"github.com/aussiebroadwan/strongbox/internal/strongbox/store"
	"github.com/aussiebroadwan/strongbox/pkg/idx"
	"github.com/aussiebroadwan/strongbox/pkg/slogx"
	"github.com/cenkalti/backoff/v4"
)

const (
	DefaultMaxUploadBytes = 50 << 20
	DefaultBlobRetries    = 3

	maxFileNameLength = 255
)

// Upload is one file handed to the vault.
type Upload struct {
	FileName    string
	ContentType string
	Password    string
	Body        io.Reader
}

// Content is a decrypted file body and the metadata describing it.
type Content struct {
	File domain.File
	Data []byte
}

// LinkInfo is what an anonymous link holder may learn before unlocking.
type LinkInfo struct {
	File       domain.File
	Link       domain.ShareLink
	OwnerEmail string
	OwnerName  string
}

// VaultService composes the envelope engine, the ledger and the blob store
// into the file operations the API exposes.
type VaultService struct {
	Store    store.Store
	Blobs    blob.Store
	Envelope *EnvelopeEngine
	Ledger   *LedgerService

	MaxUploadBytes int64
	BlobRetries    int

	Now func() time.Time
}

// Upload encrypts and stores a new file owned by owner.
func (s *VaultService) Upload(ctx context.Context, owner domain.Identity, up Upload) (domain.File, error) {
	l := slogx.FromContext(ctx)

	name := strings.TrimSpace(up.FileName)
	if name == "" || len(name) > maxFileNameLength {
		return domain.File{}, fmt.Errorf("%w: a file name of at most %d bytes is required", ErrInvalidRequest, maxFileNameLength)
	}
	if up.Password == "" {
		return domain.File{}, fmt.Errorf("%w: password is required", ErrInvalidRequest)
	}
	if up.Body == nil {
		return domain.File{}, fmt.Errorf("%w: file is required", ErrInvalidRequest)
	}

	plaintext, err := io.ReadAll(io.LimitReader(up.Body, s.maxUploadBytes()+1))
	if err != nil {
		return domain.File{}, fmt.Errorf("%w: failed to read upload", ErrInvalidRequest)
	}
	if int64(len(plaintext)) > s.maxUploadBytes() {
		return domain.File{}, ErrPayloadTooLarge
	}

	contentType := up.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	now := clock(s.Now).now()
	f := domain.File{
		ID:          idx.NewAt(now).String(),
		OwnerID:     owner.UserID,
		Name:        name,
		Size:        int64(len(plaintext)),
		ContentType: contentType,
		BlobKey:     blob.NewKey(owner.UserID),
		Version:     1,
		UploadedAt:  now,
	}

	// 1. Seal
	env, ciphertext, err := s.Envelope.EncryptUpload(f.ID, f.OwnerID, plaintext, up.Password)
	if err != nil {
		return domain.File{}, err
	}
	f.Envelope = env

	// 2. Write the blob
	if err := s.putBlob(ctx, f.BlobKey, ciphertext); err != nil {
		l.Error("blob write failed", slog.String("file_id", f.ID), slog.String("error", err.Error()))
		return domain.File{}, ErrStorageUnavailable
	}

	// 3. Record metadata, or take the blob back
	if err := s.Store.Files().CreateFile(ctx, f); err != nil {
		if derr := s.Blobs.Delete(context.WithoutCancel(ctx), f.BlobKey); derr != nil {
			l.Error("failed to remove blob after metadata failure",
				slog.String("blob_key", f.BlobKey), slog.String("error", derr.Error()))
		}
		return domain.File{}, fmt.Errorf("failed to record file: %w", err)
	}

	l.Info("file uploaded", slog.String("file_id", f.ID), slog.Int64("size", f.Size))
	return f, nil
}

// Download returns the plaintext of fileID for requester. action is
// ActionView for inline display and ActionDownload for attachments.
func (s *VaultService) Download(ctx context.Context, fileID string, requester domain.Identity, password string, action domain.Action) (Content, error) {
	access, err := s.Ledger.Authorize(ctx, fileID, requester, action)
	if err != nil {
		return Content{}, err
	}
	if !access.Owner && password == "" {
		return Content{}, ErrPasswordRequired
	}

	ciphertext, err := s.getBlob(ctx, access.File)
	if err != nil {
		return Content{}, err
	}

	plaintext, err := s.Envelope.Decrypt(access.File, ciphertext, requester.UserID, password)
	if err != nil {
		slogx.FromContext(ctx).Info("decryption rejected", slog.String("file_id", fileID))
		return Content{}, err
	}
	return Content{File: access.File, Data: plaintext}, nil
}

// LinkMetadata describes the file behind a share link without unlocking it.
func (s *VaultService) LinkMetadata(ctx context.Context, token string) (LinkInfo, error) {
	link, f, err := s.Ledger.AuthorizeByLink(ctx, token)
	if err != nil {
		return LinkInfo{}, err
	}

	owner, err := s.Store.Users().GetUserByID(ctx, f.OwnerID)
	if err != nil {
		return LinkInfo{}, fmt.Errorf("failed to load file owner: %w", err)
	}
	return LinkInfo{File: f, Link: link, OwnerEmail: owner.Email, OwnerName: owner.Name}, nil
}

// DownloadByLink unlocks the file behind a share link. A password always
// goes through the password wrap; without one only a password-free link
// opens.
func (s *VaultService) DownloadByLink(ctx context.Context, token, password string) (Content, error) {
	link, f, err := s.Ledger.AuthorizeByLink(ctx, token)
	if err != nil {
		return Content{}, err
	}
	if password == "" && (link.RequirePassword || len(link.LinkWrappedKey) == 0) {
		return Content{}, ErrPasswordRequired
	}

	ciphertext, err := s.getBlob(ctx, f)
	if err != nil {
		return Content{}, err
	}

	var plaintext []byte
	if password != "" {
		plaintext, err = s.Envelope.DecryptWithPassword(f, ciphertext, password)
	} else {
		plaintext, err = s.Envelope.DecryptWithLink(f, ciphertext, link, token)
	}
	if err != nil {
		slogx.FromContext(ctx).Info("link decryption rejected", slog.String("link_id", link.ID))
		return Content{}, err
	}
	return Content{File: f, Data: plaintext}, nil
}

// List returns the caller's owned and shared files.
func (s *VaultService) List(ctx context.Context, caller domain.Identity) (Listing, error) {
	return s.Ledger.List(ctx, caller)
}

// Delete removes fileID and everything pointing at it. The blob goes last;
// if that fails its tombstone stays for housekeeping.
func (s *VaultService) Delete(ctx context.Context, fileID string, owner domain.Identity) error {
	f, err := s.Ledger.DeleteFile(ctx, fileID, owner)
	if err != nil {
		return err
	}

	s.reapBlob(context.WithoutCancel(ctx), f.BlobKey)
	slogx.FromContext(ctx).Info("file deleted", slog.String("file_id", f.ID))
	return nil
}

// PurgeTombstones retries blob deletes left behind by earlier file deletes.
// It returns how many blobs were reaped.
func (s *VaultService) PurgeTombstones(ctx context.Context, limit int) (int, error) {
	tombs, err := s.Store.BlobTombstones().ListTombstones(ctx, limit)
	if err != nil {
		return 0, err
	}

	reaped := 0
	for _, t := range tombs {
		if s.reapBlob(ctx, t.BlobKey) {
			reaped++
		}
	}
	return reaped, nil
}

// Ready reports whether the blob store is reachable.
func (s *VaultService) Ready(ctx context.Context) error {
	return s.Blobs.Ping(ctx)
}

func (s *VaultService) reapBlob(ctx context.Context, key string) bool {
	l := slogx.FromContext(ctx)

	if err := s.Blobs.Delete(ctx, key); err != nil {
		l.Warn("blob delete failed, tombstone kept", slog.String("blob_key", key), slog.String("error", err.Error()))
		if err := s.Store.BlobTombstones().RecordTombstoneAttempt(ctx, key); err != nil {
			l.Error("failed to record tombstone attempt", slog.String("error", err.Error()))
		}
		return false
	}
	if err := s.Store.BlobTombstones().DeleteTombstone(ctx, key); err != nil {
		l.Error("failed to clear tombstone", slog.String("blob_key", key), slog.String("error", err.Error()))
		return false
	}
	return true
}

func (s *VaultService) putBlob(ctx context.Context, key string, data []byte) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 50 * time.Millisecond
	b.MaxElapsedTime = 10 * time.Second

	op := func() error {
		err := s.Blobs.Put(ctx, key, data)
		if errors.Is(err, blob.ErrInvalidKey) {
			return backoff.Permanent(err)
		}
		return err
	}
	return backoff.Retry(op, backoff.WithContext(backoff.WithMaxRetries(b, uint64(s.blobRetries())), ctx))
}

func (s *VaultService) getBlob(ctx context.Context, f domain.File) ([]byte, error) {
	data, err := s.Blobs.Get(ctx, f.BlobKey)
	if err != nil {
		if errors.Is(err, blob.ErrNotFound) {
			slogx.FromContext(ctx).Error("file blob missing", slog.String("file_id", f.ID))
			return nil, ErrNotFound
		}
		return nil, ErrStorageUnavailable
	}
	return data, nil
}

// UploadLimit is the largest accepted plaintext, in bytes.
func (s *VaultService) UploadLimit() int64 {
	return s.maxUploadBytes()
}

func (s *VaultService) maxUploadBytes() int64 {
	if s.MaxUploadBytes <= 0 {
		return DefaultMaxUploadBytes
	}
	return s.MaxUploadBytes
}

func (s *VaultService) blobRetries() int {
	if s.BlobRetries < 0 {
		return 0
	}
	if s.BlobRetries == 0 {
		return DefaultBlobRetries
	}
	return s.BlobRetries
}
