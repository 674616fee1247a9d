package domain

import "time"

// SigningKey is an Ed25519 JWT signing key with its private half sealed
// under the vault master key.
type SigningKey struct {
	ID                  string
	Kid                 string
	Algorithm           string
	PrivateKeyEncrypted []byte
	CreatedAt           time.Time
	ExpiresAt           time.Time
}
