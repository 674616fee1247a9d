package service

import (
	"fmt"

	"github.com/aussiebroadwan/strongbox/internal/strongbox/domain"
	"github.com/aussiebroadwan/strongbox/pkg/cryptox"
)

const (
	ownerKeyInfo = "strongbox/owner/"
	linkKeyInfo  = "strongbox/link"
)

// EnvelopeEngine encrypts file bodies under a random data key and wraps that
// key for each unlock path: the upload password, the owner's account and,
// optionally, a share link token. Key buffers never outlive a call.
type EnvelopeEngine struct {
	KDF cryptox.KDFParams
}

func (e *EnvelopeEngine) kdf() cryptox.KDFParams {
	if e.KDF == (cryptox.KDFParams{}) {
		return cryptox.DefaultKDFParams
	}
	return e.KDF
}

// EncryptUpload seals plaintext for file fileID owned by ownerID and returns
// the envelope to persist alongside the ciphertext.
func (e *EnvelopeEngine) EncryptUpload(fileID, ownerID string, plaintext []byte, password string) (domain.Envelope, []byte, error) {
	if password == "" {
		return domain.Envelope{}, nil, fmt.Errorf("%w: password is required", ErrInvalidRequest)
	}
	params := e.kdf()
	aad := []byte(fileID)

	// 1. Random data key, content sealed under it
	dataKey, err := cryptox.NewDataKey()
	if err != nil {
		return domain.Envelope{}, nil, err
	}
	defer cryptox.Wipe(dataKey)

	nonce, ciphertext, err := cryptox.Seal(dataKey, plaintext, aad)
	if err != nil {
		return domain.Envelope{}, nil, fmt.Errorf("seal content: %w", err)
	}

	// 2. Password wrap
	pwSalt, err := cryptox.NewSalt()
	if err != nil {
		return domain.Envelope{}, nil, err
	}
	pwKey, err := cryptox.DerivePasswordKey(password, pwSalt, params)
	if err != nil {
		return domain.Envelope{}, nil, err
	}
	defer cryptox.Wipe(pwKey)

	pwWrapped, err := cryptox.WrapKey(pwKey, dataKey, aad)
	if err != nil {
		return domain.Envelope{}, nil, fmt.Errorf("wrap under password: %w", err)
	}

	// 3. Owner wrap, with its own salt
	ownerSalt, err := cryptox.NewSalt()
	if err != nil {
		return domain.Envelope{}, nil, err
	}
	ownerKey, err := cryptox.DeriveMasterSubkey(ownerKeyInfo+ownerID, ownerSalt)
	if err != nil {
		return domain.Envelope{}, nil, err
	}
	defer cryptox.Wipe(ownerKey)

	ownerWrapped, err := cryptox.WrapKey(ownerKey, dataKey, aad)
	if err != nil {
		return domain.Envelope{}, nil, fmt.Errorf("wrap under owner key: %w", err)
	}

	return domain.Envelope{
		ContentNonce:       nonce,
		PasswordSalt:       pwSalt,
		PasswordWrappedKey: pwWrapped,
		KDFMemory:          params.Memory,
		KDFIterations:      params.Iterations,
		KDFParallelism:     params.Parallelism,
		OwnerSalt:          ownerSalt,
		OwnerWrappedKey:    ownerWrapped,
	}, ciphertext, nil
}

// Decrypt opens ciphertext for requesterID. The owner goes through the
// owner wrap and the password is ignored; anyone else must supply it.
func (e *EnvelopeEngine) Decrypt(f domain.File, ciphertext []byte, requesterID, password string) ([]byte, error) {
	var (
		dataKey []byte
		err     error
	)
	switch {
	case requesterID != "" && requesterID == f.OwnerID:
		dataKey, err = e.unwrapOwner(f)
	case password == "":
		return nil, ErrPasswordRequired
	default:
		dataKey, err = e.unwrapPassword(f, password)
	}
	if err != nil {
		return nil, err
	}
	defer cryptox.Wipe(dataKey)

	return openContent(f, dataKey, ciphertext)
}

// DecryptWithPassword opens ciphertext through the password wrap only.
func (e *EnvelopeEngine) DecryptWithPassword(f domain.File, ciphertext []byte, password string) ([]byte, error) {
	return e.Decrypt(f, ciphertext, "", password)
}

// WrapForLink wraps f's data key under a key derived from a link token. The
// data key is recovered through the owner path.
func (e *EnvelopeEngine) WrapForLink(f domain.File, token string) (salt, wrapped []byte, err error) {
	dataKey, err := e.unwrapOwner(f)
	if err != nil {
		return nil, nil, err
	}
	defer cryptox.Wipe(dataKey)

	salt, err = cryptox.NewSalt()
	if err != nil {
		return nil, nil, err
	}
	linkKey, err := cryptox.DeriveTokenKey(token, salt, linkKeyInfo)
	if err != nil {
		return nil, nil, err
	}
	defer cryptox.Wipe(linkKey)

	wrapped, err = cryptox.WrapKey(linkKey, dataKey, []byte(f.ID))
	if err != nil {
		return nil, nil, err
	}
	return salt, wrapped, nil
}

// DecryptWithLink opens ciphertext through a password-free link's wrap.
func (e *EnvelopeEngine) DecryptWithLink(f domain.File, ciphertext []byte, l domain.ShareLink, token string) ([]byte, error) {
	if len(l.LinkWrappedKey) == 0 {
		return nil, ErrPasswordRequired
	}
	linkKey, err := cryptox.DeriveTokenKey(token, l.LinkSalt, linkKeyInfo)
	if err != nil {
		return nil, ErrDecryptionFailed
	}
	defer cryptox.Wipe(linkKey)

	dataKey, err := cryptox.UnwrapKey(linkKey, l.LinkWrappedKey, []byte(f.ID))
	if err != nil {
		return nil, ErrDecryptionFailed
	}
	defer cryptox.Wipe(dataKey)

	return openContent(f, dataKey, ciphertext)
}

func (e *EnvelopeEngine) unwrapOwner(f domain.File) ([]byte, error) {
	ownerKey, err := cryptox.DeriveMasterSubkey(ownerKeyInfo+f.OwnerID, f.Envelope.OwnerSalt)
	if err != nil {
		return nil, ErrDecryptionFailed
	}
	defer cryptox.Wipe(ownerKey)

	dataKey, err := cryptox.UnwrapKey(ownerKey, f.Envelope.OwnerWrappedKey, []byte(f.ID))
	if err != nil {
		return nil, ErrDecryptionFailed
	}
	return dataKey, nil
}

func (e *EnvelopeEngine) unwrapPassword(f domain.File, password string) ([]byte, error) {
	params := cryptox.KDFParams{
		Memory:      f.Envelope.KDFMemory,
		Iterations:  f.Envelope.KDFIterations,
		Parallelism: f.Envelope.KDFParallelism,
	}
	pwKey, err := cryptox.DerivePasswordKey(password, f.Envelope.PasswordSalt, params)
	if err != nil {
		return nil, ErrDecryptionFailed
	}
	defer cryptox.Wipe(pwKey)

	dataKey, err := cryptox.UnwrapKey(pwKey, f.Envelope.PasswordWrappedKey, []byte(f.ID))
	if err != nil {
		return nil, ErrDecryptionFailed
	}
	return dataKey, nil
}

func openContent(f domain.File, dataKey, ciphertext []byte) ([]byte, error) {
	plaintext, err := cryptox.Open(dataKey, f.Envelope.ContentNonce, ciphertext, []byte(f.ID))
	if err != nil {
		return nil, ErrDecryptionFailed
	}
	return plaintext, nil
}
