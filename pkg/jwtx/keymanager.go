package jwtx

import (
	"fmt"
	"math/rand/v2"
	"sync"

	"github.com/aussiebroadwan/strongbox/pkg/cryptox"
)

// AlgorithmEdDSA is the only signing algorithm issued.
const AlgorithmEdDSA = "EdDSA"

// KeyManager owns the signing keys of one instance together with the
// verifier and KeySet built from them. Signing picks one of the active keys
// at random.
type KeyManager struct {
	Verifier Verifier
	KeySet   *KeySet

	signers []Signer
	mu      sync.RWMutex
}

// KeyManagerOptions configures an ephemeral KeyManager.
type KeyManagerOptions struct {
	Issuer string

	// Audience is validated on verify. Empty means no audience check.
	Audience []string

	// NumKeys is clamped to [1, 10], default 3.
	NumKeys int
}

// NewEphemeralKeyManager creates a KeyManager whose keys only exist in
// memory. Every token becomes invalid when the process restarts.
func NewEphemeralKeyManager(opts KeyManagerOptions) (*KeyManager, error) {
	if opts.Issuer == "" {
		return nil, fmt.Errorf("jwtx: Issuer is required")
	}

	keyset := NewKeySet()
	signers := make([]Signer, 0, clampNumKeys(opts.NumKeys))

	for i := range clampNumKeys(opts.NumKeys) {
		kid, err := generateRandomKeyID()
		if err != nil {
			return nil, fmt.Errorf("jwtx: failed to generate key ID: %w", err)
		}

		signer, pemData, err := GenerateSignerEdDSA(kid)
		cryptox.Wipe(pemData)
		if err != nil {
			return nil, fmt.Errorf("jwtx: failed to generate signer %d: %w", i+1, err)
		}

		if err := keyset.AddSigner(signer); err != nil {
			return nil, fmt.Errorf("jwtx: failed to add signer %d to keyset: %w", i+1, err)
		}
		signers = append(signers, signer)
	}

	return &KeyManager{
		Verifier: NewVerifierEdDSA(keyset, opts.Issuer, opts.Audience),
		KeySet:   keyset,
		signers:  signers,
	}, nil
}

// IsReady returns true if the KeyManager has valid keys loaded.
func (km *KeyManager) IsReady() bool {
	return km.KeySet.IsReady()
}

// GetSigner returns a randomly selected active signer.
func (km *KeyManager) GetSigner() Signer {
	km.mu.RLock()
	defer km.mu.RUnlock()

	switch len(km.signers) {
	case 0:
		return nil
	case 1:
		return km.signers[0]
	}
	return km.signers[rand.IntN(len(km.signers))]
}

// NumSigners returns the number of active signing keys.
func (km *KeyManager) NumSigners() int {
	km.mu.RLock()
	defer km.mu.RUnlock()
	return len(km.signers)
}

// Sign signs claims with one of the active keys.
func (km *KeyManager) Sign(claims Claims) (string, error) {
	s := km.GetSigner()
	if s == nil {
		return "", fmt.Errorf("jwtx: no active signing key")
	}
	return s.Sign(claims)
}

func clampNumKeys(n int) int {
	switch {
	case n <= 0:
		return 3
	case n > 10:
		return 10
	}
	return n
}

// generateRandomKeyID returns "strongbox-" followed by a 128-bit token.
func generateRandomKeyID() (string, error) {
	token, err := cryptox.GenerateToken(cryptox.TokenSize128)
	if err != nil {
		return "", fmt.Errorf("failed to generate random key ID: %w", err)
	}
	return "strongbox-" + token, nil
}
