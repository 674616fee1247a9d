package store

import (
	"context"
	"time"

	"github.com/aussiebroadwan/strongbox/internal/strongbox/domain"
	"github.com/aussiebroadwan/strongbox/pkg/jwtx"
)

// KeyStoreAdapter lets jwtx load and persist signing keys through a Store
// without jwtx depending on the domain package.
type KeyStoreAdapter struct {
	store Store
}

func NewKeyStoreAdapter(s Store) *KeyStoreAdapter {
	return &KeyStoreAdapter{store: s}
}

func (a *KeyStoreAdapter) ListActiveSigningKeys(ctx context.Context, now time.Time) ([]jwtx.SigningKeyRecord, error) {
	keys, err := a.store.SigningKeys().ListActiveSigningKeys(ctx, now)
	if err != nil {
		return nil, err
	}

	records := make([]jwtx.SigningKeyRecord, len(keys))
	for i, k := range keys {
		records[i] = jwtx.SigningKeyRecord{
			ID:                  k.ID,
			Kid:                 k.Kid,
			Algorithm:           k.Algorithm,
			PrivateKeyEncrypted: k.PrivateKeyEncrypted,
			CreatedAt:           k.CreatedAt,
			ExpiresAt:           k.ExpiresAt,
		}
	}
	return records, nil
}

func (a *KeyStoreAdapter) CreateSigningKey(ctx context.Context, r jwtx.SigningKeyRecord) error {
	return a.store.SigningKeys().CreateSigningKey(ctx, domain.SigningKey{
		ID:                  r.ID,
		Kid:                 r.Kid,
		Algorithm:           r.Algorithm,
		PrivateKeyEncrypted: r.PrivateKeyEncrypted,
		CreatedAt:           r.CreatedAt,
		ExpiresAt:           r.ExpiresAt,
	})
}
