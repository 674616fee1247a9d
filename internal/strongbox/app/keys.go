package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/aussiebroadwan/strongbox/internal/strongbox/store"
	"github.com/aussiebroadwan/strongbox/pkg/cryptox"
	"github.com/aussiebroadwan/strongbox/pkg/jwtx"
)

// InitSigningKeys creates the KeyManager that signs session tokens.
//
// Storage modes:
//   - "ephemeral": keys live in memory only. Every session ends when the
//     process restarts.
//   - "persistent": keys are sealed under the master key and kept in the
//     database, so sessions survive restarts. Expired keys are removed by
//     housekeeping.
func InitSigningKeys(ctx context.Context, cfg Config, db store.Store, logger *slog.Logger) (*jwtx.KeyManager, error) {
	var (
		keyManager *jwtx.KeyManager
		err        error
	)

	switch cfg.KeyStorageMode {
	case "persistent":
		logger.Info("initializing persistent key manager",
			"num_keys", cfg.NumKeys,
			"lifetime", cfg.KeyLifetime,
		)

		keyManager, err = jwtx.NewPersistentKeyManager(ctx, jwtx.PersistentKeyManagerOptions{
			Store:    store.NewKeyStoreAdapter(db),
			Issuer:   cfg.Issuer,
			NumKeys:  cfg.NumKeys,
			Lifetime: cfg.KeyLifetime,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to initialize persistent key manager: %w", err)
		}

		logger.Info("persistent signing keys loaded",
			"num_keys", keyManager.NumSigners(),
			"issuer", cfg.Issuer,
		)

	case "ephemeral", "":
		keyManager, err = jwtx.NewEphemeralKeyManager(jwtx.KeyManagerOptions{
			Issuer:  cfg.Issuer,
			NumKeys: cfg.NumKeys,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to initialize ephemeral key manager: %w", err)
		}

		logger.Info("generated ephemeral signing keys",
			"num_keys", keyManager.NumSigners(),
			"issuer", cfg.Issuer,
		)
		logger.Warn("sessions from before this start are no longer valid")

	default:
		return nil, fmt.Errorf("unknown key storage mode %q", cfg.KeyStorageMode)
	}

	return keyManager, nil
}

// initMasterKey points cryptox at the configured key material and loads it,
// so a missing key file fails the start rather than the first upload.
func initMasterKey(cfg Config, logger *slog.Logger) error {
	if cfg.MasterKeyPath != "" {
		cryptox.SetMasterKeyPath(cfg.MasterKeyPath)
		logger.Info("master key path configured", "path", cfg.MasterKeyPath)
	}

	ephemeral, err := cryptox.MasterKeyIsEphemeral()
	if err != nil {
		return fmt.Errorf("failed to load master key: %w", err)
	}
	if ephemeral {
		logger.Warn("no master key configured; owner access and share links will not survive a restart",
			"env", cryptox.MasterKeyEnv)
	}
	return nil
}
