package jwtx

import (
	"context"
	"fmt"
	"time"

	"github.com/aussiebroadwan/strongbox/pkg/cryptox"
	"github.com/aussiebroadwan/strongbox/pkg/idx"
)

// SigningKeyRecord is a signing key as persisted by the store. The private
// key is sealed under the vault master key with the kid as associated data.
type SigningKeyRecord struct {
	ID                  string
	Kid                 string
	Algorithm           string
	PrivateKeyEncrypted []byte
	CreatedAt           time.Time
	ExpiresAt           time.Time
}

// KeyStore is the slice of the store the persistent key manager needs.
type KeyStore interface {
	// ListActiveSigningKeys returns keys whose ExpiresAt is after now.
	ListActiveSigningKeys(ctx context.Context, now time.Time) ([]SigningKeyRecord, error)
	CreateSigningKey(ctx context.Context, key SigningKeyRecord) error
}

// PersistentKeyManagerOptions configures a KeyManager backed by a KeyStore.
type PersistentKeyManagerOptions struct {
	Store    KeyStore
	Issuer   string
	Audience []string

	// NumKeys is the target number of active keys, default 3.
	NumKeys int

	// Lifetime is how long a newly generated key stays active, default 90 days.
	Lifetime time.Duration
}

// NewPersistentKeyManager loads the active keys from the store and tops them
// up to NumKeys, so tokens survive a restart.
func NewPersistentKeyManager(ctx context.Context, opts PersistentKeyManagerOptions) (*KeyManager, error) {
	if opts.Store == nil {
		return nil, fmt.Errorf("jwtx: Store is required for persistent key manager")
	}
	if opts.Issuer == "" {
		return nil, fmt.Errorf("jwtx: Issuer is required")
	}
	if opts.Lifetime <= 0 {
		opts.Lifetime = 90 * 24 * time.Hour
	}
	target := clampNumKeys(opts.NumKeys)
	now := time.Now().UTC()

	// 1. Load and unseal whatever is still active.
	records, err := opts.Store.ListActiveSigningKeys(ctx, now)
	if err != nil {
		return nil, fmt.Errorf("jwtx: failed to load keys from database: %w", err)
	}

	keyset := NewKeySet()
	signers := make([]Signer, 0, target)

	for _, rec := range records {
		if rec.Algorithm != AlgorithmEdDSA {
			continue
		}
		pemData, err := cryptox.OpenWithMasterKey(rec.PrivateKeyEncrypted, []byte(rec.Kid))
		if err != nil {
			return nil, fmt.Errorf("jwtx: failed to decrypt key %s: %w", rec.Kid, err)
		}
		signer, err := NewSignerEdDSA(rec.Kid, pemData)
		cryptox.Wipe(pemData)
		if err != nil {
			return nil, fmt.Errorf("jwtx: failed to create signer for key %s: %w", rec.Kid, err)
		}
		if err := keyset.AddSigner(signer); err != nil {
			return nil, fmt.Errorf("jwtx: failed to add key %s to keyset: %w", rec.Kid, err)
		}
		signers = append(signers, signer)
	}

	// 2. Generate and persist keys until the target is reached.
	for len(signers) < target {
		kid, err := generateRandomKeyID()
		if err != nil {
			return nil, fmt.Errorf("jwtx: failed to generate key ID: %w", err)
		}

		signer, pemData, err := GenerateSignerEdDSA(kid)
		if err != nil {
			return nil, fmt.Errorf("jwtx: failed to generate new key: %w", err)
		}

		sealed, err := cryptox.SealWithMasterKey(pemData, []byte(kid))
		cryptox.Wipe(pemData)
		if err != nil {
			return nil, fmt.Errorf("jwtx: failed to encrypt new key: %w", err)
		}

		if err := opts.Store.CreateSigningKey(ctx, SigningKeyRecord{
			ID:                  idx.New().String(),
			Kid:                 kid,
			Algorithm:           AlgorithmEdDSA,
			PrivateKeyEncrypted: sealed,
			CreatedAt:           now,
			ExpiresAt:           now.Add(opts.Lifetime),
		}); err != nil {
			return nil, fmt.Errorf("jwtx: failed to store new key: %w", err)
		}

		if err := keyset.AddSigner(signer); err != nil {
			return nil, fmt.Errorf("jwtx: failed to add new key to keyset: %w", err)
		}
		signers = append(signers, signer)
	}

	return &KeyManager{
		Verifier: NewVerifierEdDSA(keyset, opts.Issuer, opts.Audience),
		KeySet:   keyset,
		signers:  signers,
	}, nil
}
