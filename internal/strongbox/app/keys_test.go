package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/aussiebroadwan/strongbox/internal/strongbox/store/drivers/sqlite"
	"github.com/aussiebroadwan/strongbox/pkg/jwtx"
	"github.com/stretchr/testify/require"
)

func TestInitSigningKeys(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	ctx := context.Background()

	t.Run("ephemeral", func(t *testing.T) {
		km, err := InitSigningKeys(ctx, Config{Issuer: "strongbox-test", NumKeys: 2}, nil, logger)
		require.NoError(t, err)
		require.Equal(t, 2, km.NumSigners())
	})

	t.Run("persistent keys survive a restart", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "strongbox.db")
		st, err := sqlite.NewStore(fmt.Sprintf("file:%s?_pragma=foreign_keys(1)&_time_format=sqlite", path))
		require.NoError(t, err)
		t.Cleanup(func() { _ = st.Close() })
		require.NoError(t, st.ApplyMigrations())

		cfg := Config{Issuer: "strongbox-test", KeyStorageMode: "persistent", NumKeys: 1}

		first, err := InitSigningKeys(ctx, cfg, st, logger)
		require.NoError(t, err)
		token, err := first.Sign(jwtx.NewAccessClaims(jwtx.AccessClaimsParams{
			Subject: "user-1",
			SID:     "session-1",
			AMR:     []string{"pwd", "otp"},
			Issuer:  "strongbox-test",
			Now:     time.Now(),
		}))
		require.NoError(t, err)

		second, err := InitSigningKeys(ctx, cfg, st, logger)
		require.NoError(t, err)
		claims, err := second.Verifier.Verify(token)
		require.NoError(t, err)
		require.Equal(t, "user-1", claims.Subject)
	})

	t.Run("unknown mode", func(t *testing.T) {
		_, err := InitSigningKeys(ctx, Config{Issuer: "strongbox-test", KeyStorageMode: "vault"}, nil, logger)
		require.Error(t, err)
	})
}
