package cryptox

import (
	"crypto/rand"
	"crypto/sha256"
	"fmt"
	"io"
	"os"
	"sync"

	"golang.org/x/crypto/hkdf"
)

// MasterKeyEnv names the environment variable holding master key material.
const MasterKeyEnv = "VAULT_MASTER_KEY"

var (
	masterKeyOnce sync.Once
	masterKey     []byte
	masterKeyErr  error
	masterKeyPath string
	masterKeyTemp bool
)

// SetMasterKeyPath configures a file to read master key material from. It
// must be called before the first seal, open or derive.
func SetMasterKeyPath(path string) {
	masterKeyPath = path
}

// loadMasterKey resolves key material from, in order, the configured file,
// VAULT_MASTER_KEY, or a random ephemeral value. The material is hashed down
// to 32 bytes.
func loadMasterKey() ([]byte, bool, error) {
	var material []byte
	ephemeral := false

	switch {
	case masterKeyPath != "":
		data, err := os.ReadFile(masterKeyPath)
		if err != nil {
			return nil, false, fmt.Errorf("failed to read master key file: %w", err)
		}
		material = data
	case os.Getenv(MasterKeyEnv) != "":
		material = []byte(os.Getenv(MasterKeyEnv))
	default:
		material = make([]byte, 32)
		if _, err := rand.Read(material); err != nil {
			return nil, false, fmt.Errorf("failed to generate ephemeral master key: %w", err)
		}
		ephemeral = true
	}

	sum := sha256.Sum256(material)
	return sum[:], ephemeral, nil
}

func getMasterKey() ([]byte, error) {
	masterKeyOnce.Do(func() {
		masterKey, masterKeyTemp, masterKeyErr = loadMasterKey()
	})
	return masterKey, masterKeyErr
}

// MasterKeyIsEphemeral loads the master key if needed and reports whether it
// was generated for this process only. Anything sealed under an ephemeral
// key is unreadable after a restart.
func MasterKeyIsEphemeral() (bool, error) {
	if _, err := getMasterKey(); err != nil {
		return false, err
	}
	return masterKeyTemp, nil
}

// SealWithMasterKey encrypts data under the master key. Output is
// nonce || ciphertext || tag.
func SealWithMasterKey(data, aad []byte) ([]byte, error) {
	key, err := getMasterKey()
	if err != nil {
		return nil, fmt.Errorf("failed to get master key: %w", err)
	}
	return WrapKey(key, data, aad)
}

// OpenWithMasterKey reverses SealWithMasterKey.
func OpenWithMasterKey(sealed, aad []byte) ([]byte, error) {
	key, err := getMasterKey()
	if err != nil {
		return nil, fmt.Errorf("failed to get master key: %w", err)
	}
	return UnwrapKey(key, sealed, aad)
}

// DeriveMasterSubkey derives a 32-byte key from the master key with
// HKDF-SHA256. info scopes the key (for example to one account) and salt
// makes each derivation unique.
func DeriveMasterSubkey(info string, salt []byte) ([]byte, error) {
	key, err := getMasterKey()
	if err != nil {
		return nil, fmt.Errorf("failed to get master key: %w", err)
	}
	return hkdfKey(key, salt, info)
}

// DeriveTokenKey derives a 32-byte key from a bearer token, for wraps that
// only a holder of the token can open.
func DeriveTokenKey(token string, salt []byte, info string) ([]byte, error) {
	return hkdfKey([]byte(token), salt, info)
}

func hkdfKey(secret, salt []byte, info string) ([]byte, error) {
	out := make([]byte, DataKeySize)
	if _, err := io.ReadFull(hkdf.New(sha256.New, secret, salt, []byte(info)), out); err != nil {
		return nil, fmt.Errorf("hkdf: %w", err)
	}
	return out, nil
}

// ResetMasterKeyForTesting drops the cached master key. Tests only.
func ResetMasterKeyForTesting() {
	masterKeyOnce = sync.Once{}
	masterKey = nil
	masterKeyErr = nil
	masterKeyTemp = false
}
