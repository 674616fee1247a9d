package service

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/aussiebroadwan/strongbox/internal/strongbox/domain"
	"github.com/aussiebroadwan/strongbox/pkg/idx"
	"github.com/stretchr/testify/require"
)

func TestUpload(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("stores ciphertext only", func(t *testing.T) {
		h := newHarness(t)
		alice := h.register(t, "alice@example.com")
		body := []byte("the plaintext must never reach the blob store")

		f := h.upload(t, alice, body, "p1-password")
		require.Equal(t, int64(len(body)), f.Size)
		require.Equal(t, "text/plain", f.ContentType)
		require.True(t, strings.HasPrefix(f.BlobKey, "files/"+alice.UserID+"/"))

		stored, err := h.memory.Get(ctx, f.BlobKey)
		require.NoError(t, err)
		require.False(t, bytes.Contains(stored, body))
	})

	t.Run("rejects bad input", func(t *testing.T) {
		h := newHarness(t)
		alice := h.register(t, "alice@example.com")

		_, err := h.vault.Upload(ctx, alice, Upload{FileName: " ", Password: "p1-password", Body: strings.NewReader("x")})
		require.ErrorIs(t, err, ErrInvalidRequest)
		_, err = h.vault.Upload(ctx, alice, Upload{FileName: "a.txt", Body: strings.NewReader("x")})
		require.ErrorIs(t, err, ErrInvalidRequest)
		_, err = h.vault.Upload(ctx, alice, Upload{FileName: "a.txt", Password: "p1-password"})
		require.ErrorIs(t, err, ErrInvalidRequest)
		require.Zero(t, h.memory.Len())
	})

	t.Run("size limit", func(t *testing.T) {
		h := newHarness(t)
		h.vault.MaxUploadBytes = 16
		alice := h.register(t, "alice@example.com")

		_, err := h.vault.Upload(ctx, alice, Upload{FileName: "a.bin", Password: "p1-password", Body: bytes.NewReader(make([]byte, 17))})
		require.ErrorIs(t, err, ErrPayloadTooLarge)

		f, err := h.vault.Upload(ctx, alice, Upload{FileName: "a.bin", Password: "p1-password", Body: bytes.NewReader(make([]byte, 16))})
		require.NoError(t, err)
		require.Equal(t, "application/octet-stream", f.ContentType)
	})

	t.Run("transient blob failures are retried", func(t *testing.T) {
		h := newHarness(t)
		h.blobs.failPuts = 2
		alice := h.register(t, "alice@example.com")

		h.upload(t, alice, []byte("eventually"), "p1-password")
		require.Equal(t, 1, h.memory.Len())
	})

	t.Run("blob outage", func(t *testing.T) {
		h := newHarness(t)
		h.blobs.failPuts = 100
		h.vault.BlobRetries = 1
		alice := h.register(t, "alice@example.com")

		_, err := h.vault.Upload(ctx, alice, Upload{FileName: "a.txt", Password: "p1-password", Body: strings.NewReader("x")})
		require.ErrorIs(t, err, ErrStorageUnavailable)

		files, err := h.store.Files().ListFilesByOwner(ctx, alice.UserID)
		require.NoError(t, err)
		require.Empty(t, files)
	})

	t.Run("metadata failure removes the blob", func(t *testing.T) {
		h := newHarness(t)
		ghost := domain.Identity{UserID: idx.New().String(), Email: "ghost@example.com"}

		_, err := h.vault.Upload(ctx, ghost, Upload{FileName: "a.txt", Password: "p1-password", Body: strings.NewReader("x")})
		require.Error(t, err)
		require.Zero(t, h.memory.Len())
	})
}

func TestDownload(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	h := newHarness(t)

	alice := h.register(t, "alice@example.com")
	bob := h.register(t, "bob@example.com")
	mallory := h.register(t, "mallory@example.com")

	body := []byte("for bob's eyes")
	f := h.upload(t, alice, body, "p1-password")

	t.Run("owner needs no password", func(t *testing.T) {
		got, err := h.vault.Download(ctx, f.ID, alice, "", domain.ActionDownload)
		require.NoError(t, err)
		require.Equal(t, body, got.Data)
		require.Equal(t, f.Name, got.File.Name)
	})

	t.Run("stranger gets not found even with the password", func(t *testing.T) {
		_, err := h.vault.Download(ctx, f.ID, mallory, "p1-password", domain.ActionDownload)
		require.ErrorIs(t, err, ErrNotFound)
	})

	require.NoError(t, h.ledger.Grant(ctx, f.ID, alice, "bob@example.com", "view"))

	t.Run("viewer may view but not download", func(t *testing.T) {
		got, err := h.vault.Download(ctx, f.ID, bob, "p1-password", domain.ActionView)
		require.NoError(t, err)
		require.Equal(t, body, got.Data)

		_, err = h.vault.Download(ctx, f.ID, bob, "p1-password", domain.ActionDownload)
		require.ErrorIs(t, err, ErrForbidden)
	})

	t.Run("grantee still needs the password", func(t *testing.T) {
		_, err := h.vault.Download(ctx, f.ID, bob, "", domain.ActionView)
		require.ErrorIs(t, err, ErrPasswordRequired)

		_, err = h.vault.Download(ctx, f.ID, bob, "p2-password", domain.ActionView)
		require.ErrorIs(t, err, ErrDecryptionFailed)
	})

	t.Run("upgrade to download", func(t *testing.T) {
		require.NoError(t, h.ledger.Grant(ctx, f.ID, alice, "bob@example.com", "download"))
		got, err := h.vault.Download(ctx, f.ID, bob, "p1-password", domain.ActionDownload)
		require.NoError(t, err)
		require.Equal(t, body, got.Data)
	})

	t.Run("revoked grantee loses access", func(t *testing.T) {
		require.NoError(t, h.ledger.Revoke(ctx, f.ID, alice, "bob@example.com"))
		_, err := h.vault.Download(ctx, f.ID, bob, "p1-password", domain.ActionView)
		require.ErrorIs(t, err, ErrNotFound)
	})
}

func TestDownloadByLink(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	h := newHarness(t)

	alice := h.register(t, "alice@example.com")
	body := []byte("linked content")
	f := h.upload(t, alice, body, "p1-password")

	t.Run("metadata", func(t *testing.T) {
		created, err := h.ledger.CreateLink(ctx, f.ID, alice, 24, true)
		require.NoError(t, err)

		info, err := h.vault.LinkMetadata(ctx, created.Token)
		require.NoError(t, err)
		require.Equal(t, f.Name, info.File.Name)
		require.Equal(t, f.Size, info.File.Size)
		require.Equal(t, "alice@example.com", info.OwnerEmail)
		require.True(t, info.Link.RequirePassword)
	})

	t.Run("password link", func(t *testing.T) {
		created, err := h.ledger.CreateLink(ctx, f.ID, alice, 24, true)
		require.NoError(t, err)

		_, err = h.vault.DownloadByLink(ctx, created.Token, "")
		require.ErrorIs(t, err, ErrPasswordRequired)
		_, err = h.vault.DownloadByLink(ctx, created.Token, "p2-password")
		require.ErrorIs(t, err, ErrDecryptionFailed)

		got, err := h.vault.DownloadByLink(ctx, created.Token, "p1-password")
		require.NoError(t, err)
		require.Equal(t, body, got.Data)
	})

	t.Run("password-free link", func(t *testing.T) {
		created, err := h.ledger.CreateLink(ctx, f.ID, alice, 24, false)
		require.NoError(t, err)

		got, err := h.vault.DownloadByLink(ctx, created.Token, "")
		require.NoError(t, err)
		require.Equal(t, body, got.Data)

		require.NoError(t, h.ledger.ExpireLink(ctx, created.Token, alice))
		_, err = h.vault.DownloadByLink(ctx, created.Token, "")
		require.ErrorIs(t, err, ErrLinkExpired)
	})

	t.Run("born expired", func(t *testing.T) {
		created, err := h.ledger.CreateLink(ctx, f.ID, alice, 0, true)
		require.NoError(t, err)
		_, err = h.vault.DownloadByLink(ctx, created.Token, "p1-password")
		require.ErrorIs(t, err, ErrLinkExpired)
		_, err = h.vault.LinkMetadata(ctx, created.Token)
		require.ErrorIs(t, err, ErrLinkExpired)
	})
}

func TestDelete(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("removes everything", func(t *testing.T) {
		h := newHarness(t)
		alice := h.register(t, "alice@example.com")
		bob := h.register(t, "bob@example.com")

		f := h.upload(t, alice, []byte("gone soon"), "p1-password")
		require.NoError(t, h.ledger.Grant(ctx, f.ID, alice, "bob@example.com", "download"))
		link, err := h.ledger.CreateLink(ctx, f.ID, alice, 24, false)
		require.NoError(t, err)

		require.ErrorIs(t, h.vault.Delete(ctx, f.ID, bob), ErrForbidden)
		require.NoError(t, h.vault.Delete(ctx, f.ID, alice))

		require.Zero(t, h.memory.Len())
		_, err = h.vault.Download(ctx, f.ID, alice, "", domain.ActionDownload)
		require.ErrorIs(t, err, ErrNotFound)
		_, _, err = h.ledger.AuthorizeByLink(ctx, link.Token)
		require.ErrorIs(t, err, ErrNotFound)

		tombs, err := h.store.BlobTombstones().ListTombstones(ctx, 10)
		require.NoError(t, err)
		require.Empty(t, tombs)

		require.ErrorIs(t, h.vault.Delete(ctx, f.ID, alice), ErrNotFound)
	})

	t.Run("failed blob delete leaves a tombstone", func(t *testing.T) {
		h := newHarness(t)
		alice := h.register(t, "alice@example.com")
		f := h.upload(t, alice, []byte("sticky"), "p1-password")

		h.blobs.setFailDeletes(true)
		require.NoError(t, h.vault.Delete(ctx, f.ID, alice))
		require.Equal(t, 1, h.memory.Len())

		tombs, err := h.store.BlobTombstones().ListTombstones(ctx, 10)
		require.NoError(t, err)
		require.Len(t, tombs, 1)
		require.Equal(t, f.BlobKey, tombs[0].BlobKey)
		require.Equal(t, 1, tombs[0].Attempts)

		h.blobs.setFailDeletes(false)
		n, err := h.vault.PurgeTombstones(ctx, 10)
		require.NoError(t, err)
		require.Equal(t, 1, n)
		require.Zero(t, h.memory.Len())
	})
}
