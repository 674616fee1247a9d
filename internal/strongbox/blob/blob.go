// Package blob is the opaque byte store behind the vault. It only ever sees
// ciphertext; keys and plaintext never reach a driver.
package blob

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
)

var (
	ErrNotFound   = errors.New("blob: not found")
	ErrInvalidKey = errors.New("blob: invalid key")
)

// Store persists sealed file bodies under caller-chosen keys.
type Store interface {
	Put(ctx context.Context, key string, data []byte) error
	Get(ctx context.Context, key string) ([]byte, error)

	// Delete is a no-op for a missing key.
	Delete(ctx context.Context, key string) error
	Ping(ctx context.Context) error
}

// NewKey returns a fresh object key scoped to ownerID.
func NewKey(ownerID string) string {
	return "files/" + ownerID + "/" + uuid.NewString()
}

// validateKey rejects keys that could escape the store's namespace.
func validateKey(key string) error {
	if key == "" || strings.HasPrefix(key, "/") || strings.Contains(key, "\\") {
		return ErrInvalidKey
	}
	for _, part := range strings.Split(key, "/") {
		if part == "" || part == "." || part == ".." {
			return ErrInvalidKey
		}
	}
	return nil
}
