package strongbox_test

import (
	"testing"

	"github.com/aussiebroadwan/strongbox/pkg/vaultsdk"
	"github.com/stretchr/testify/require"
)

func TestShareLinkLifecycle(t *testing.T) {
	v := setupVault(t)
	ctx := t.Context()

	alice := v.signUp(t, "alice@example.com", "Alice")
	payload := []byte("link me")
	up, err := alice.Upload(ctx, "link.txt", "text/plain", payload, filePassword)
	require.NoError(t, err)

	link, err := alice.CreateLink(ctx, up.FileID, vaultsdk.CreateLinkRequest{ExpiryHours: 2})
	require.NoError(t, err)
	require.True(t, link.RequirePassword)

	meta, err := v.client.SharedMetadata(ctx, link.Token)
	require.NoError(t, err)
	require.Equal(t, "link.txt", meta.FileName)
	require.Equal(t, int64(len(payload)), meta.FileSize)

	_, _, err = v.client.SharedDownload(ctx, link.Token, "")
	require.ErrorIs(t, err, vaultsdk.ErrPasswordRequired)

	got, _, err := v.client.SharedDownload(ctx, link.Token, filePassword)
	require.NoError(t, err)
	require.Equal(t, payload, got)

	list, err := alice.ListFiles(ctx)
	require.NoError(t, err)
	require.Len(t, list.OwnedFiles, 1)
	require.Len(t, list.OwnedFiles[0].Links, 1)
	require.Equal(t, link.Token, list.OwnedFiles[0].Links[0].Token)

	require.NoError(t, alice.ExpireLink(ctx, link.Token))
	_, err = v.client.SharedMetadata(ctx, link.Token)
	require.ErrorIs(t, err, vaultsdk.ErrLinkExpired)

	open := false
	public, err := alice.CreateLink(ctx, up.FileID, vaultsdk.CreateLinkRequest{ExpiryHours: 1, RequirePassword: &open})
	require.NoError(t, err)
	got, _, err = v.client.SharedDownload(ctx, public.Token, "")
	require.NoError(t, err)
	require.Equal(t, payload, got)
}

func TestZeroHourLinkIsExpired(t *testing.T) {
	v := setupVault(t)
	ctx := t.Context()

	alice := v.signUp(t, "alice@example.com", "Alice")
	up, err := alice.Upload(ctx, "gone.txt", "text/plain", []byte("x"), filePassword)
	require.NoError(t, err)

	link, err := alice.CreateLink(ctx, up.FileID, vaultsdk.CreateLinkRequest{ExpiryHours: 0})
	require.NoError(t, err)

	_, err = v.client.SharedMetadata(ctx, link.Token)
	require.ErrorIs(t, err, vaultsdk.ErrLinkExpired)
}
