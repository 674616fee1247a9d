package cryptox

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"errors"
	"fmt"

	"golang.org/x/crypto/argon2"
)

const (
	DataKeySize = 32 // AES-256
	SaltSize    = 16
)

// ErrOpen is the only error an authenticated decryption reports, whatever
// the cause (wrong key, tampered bytes, truncated input).
var ErrOpen = errors.New("cryptox: message authentication failed")

// KDFParams are the Argon2id work factors used to turn a file password into
// a key-encryption key. They are stored next to each envelope.
type KDFParams struct {
	Memory      uint32 // KiB
	Iterations  uint32
	Parallelism uint8
}

// DefaultKDFParams: 64 MiB, one pass, four lanes.
var DefaultKDFParams = KDFParams{Memory: 64 * 1024, Iterations: 1, Parallelism: 4}

// Validate bounds the work factor so a stored or configured value can never
// make a derivation unbounded.
func (p KDFParams) Validate() error {
	switch {
	case p.Memory < 8*1024 || p.Memory > 1024*1024:
		return fmt.Errorf("cryptox: kdf memory %d KiB out of range [8192, 1048576]", p.Memory)
	case p.Iterations < 1 || p.Iterations > 10:
		return fmt.Errorf("cryptox: kdf iterations %d out of range [1, 10]", p.Iterations)
	case p.Parallelism < 1 || p.Parallelism > 16:
		return fmt.Errorf("cryptox: kdf parallelism %d out of range [1, 16]", p.Parallelism)
	}
	return nil
}

// RandomBytes returns n bytes from crypto/rand.
func RandomBytes(n int) ([]byte, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return nil, fmt.Errorf("cryptox: read random: %w", err)
	}
	return b, nil
}

// NewDataKey returns a fresh random AES-256 key.
func NewDataKey() ([]byte, error) { return RandomBytes(DataKeySize) }

// NewSalt returns a fresh random salt.
func NewSalt() ([]byte, error) { return RandomBytes(SaltSize) }

// DerivePasswordKey stretches password with Argon2id. No pepper is mixed in:
// file passwords must keep working if the account pepper is rotated.
func DerivePasswordKey(password string, salt []byte, p KDFParams) ([]byte, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if len(salt) < SaltSize {
		return nil, errors.New("cryptox: salt too short")
	}
	return argon2.IDKey([]byte(password), salt, p.Iterations, p.Memory, p.Parallelism, DataKeySize), nil
}

// Seal encrypts plaintext under key with AES-GCM and a fresh nonce. aad is
// authenticated but not encrypted.
func Seal(key, plaintext, aad []byte) (nonce, ciphertext []byte, err error) {
	gcm, err := newGCM(key)
	if err != nil {
		return nil, nil, err
	}

	nonce, err = RandomBytes(gcm.NonceSize())
	if err != nil {
		return nil, nil, err
	}
	return nonce, gcm.Seal(nil, nonce, plaintext, aad), nil
}

// Open decrypts and authenticates ciphertext. Any failure is ErrOpen.
func Open(key, nonce, ciphertext, aad []byte) ([]byte, error) {
	gcm, err := newGCM(key)
	if err != nil {
		return nil, ErrOpen
	}
	if len(nonce) != gcm.NonceSize() {
		return nil, ErrOpen
	}

	plaintext, err := gcm.Open(nil, nonce, ciphertext, aad)
	if err != nil {
		return nil, ErrOpen
	}
	return plaintext, nil
}

// WrapKey seals secret under kek and returns nonce || ciphertext || tag.
func WrapKey(kek, secret, aad []byte) ([]byte, error) {
	nonce, ct, err := Seal(kek, secret, aad)
	if err != nil {
		return nil, err
	}
	return append(nonce, ct...), nil
}

// UnwrapKey reverses WrapKey. Any failure is ErrOpen.
func UnwrapKey(kek, wrapped, aad []byte) ([]byte, error) {
	gcm, err := newGCM(kek)
	if err != nil {
		return nil, ErrOpen
	}

	ns := gcm.NonceSize()
	if len(wrapped) < ns+gcm.Overhead() {
		return nil, ErrOpen
	}
	return Open(kek, wrapped[:ns], wrapped[ns:], aad)
}

// Wipe zeroes key material in place.
func Wipe(b []byte) { clear(b) }

func newGCM(key []byte) (cipher.AEAD, error) {
	if len(key) != DataKeySize {
		return nil, fmt.Errorf("cryptox: key must be %d bytes, got %d", DataKeySize, len(key))
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("cryptox: new cipher: %w", err)
	}
	return cipher.NewGCM(block)
}
