package jwtx

import (
	"crypto/ed25519"
	"crypto/rand"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

const pemTypePrivateKey = "PRIVATE KEY"

// Signer signs session tokens under one key id.
type Signer interface {
	Alg() string
	KID() string
	Sign(Claims) (string, error)
	PublicJWK() JWK
	Validate() error
}

// EdDSASigner signs with an Ed25519 key.
type EdDSASigner struct {
	kid  string
	priv ed25519.PrivateKey
}

// GenerateSignerEdDSA creates a signer over a fresh key. The PKCS8 PEM it
// returns is what a persistent key manager seals and stores; callers should
// wipe it once stored.
func GenerateSignerEdDSA(kid string) (*EdDSASigner, []byte, error) {
	_, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, nil, fmt.Errorf("jwtx: generate Ed25519 key: %w", err)
	}

	der, err := x509.MarshalPKCS8PrivateKey(priv)
	if err != nil {
		return nil, nil, fmt.Errorf("jwtx: marshal PKCS8: %w", err)
	}
	encoded := pem.EncodeToMemory(&pem.Block{Type: pemTypePrivateKey, Bytes: der})
	clear(der)

	return &EdDSASigner{kid: kid, priv: priv}, encoded, nil
}

// NewSignerEdDSA restores a signer from the PKCS8 PEM produced by
// GenerateSignerEdDSA.
func NewSignerEdDSA(kid string, pemKey []byte) (*EdDSASigner, error) {
	block, _ := pem.Decode(pemKey)
	switch {
	case block == nil:
		return nil, errors.New("jwtx: signing key is not PEM")
	case block.Type != pemTypePrivateKey:
		return nil, fmt.Errorf("jwtx: signing key is %q, want PKCS8 %q", block.Type, pemTypePrivateKey)
	}

	parsed, err := x509.ParsePKCS8PrivateKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("jwtx: parse PKCS8: %w", err)
	}
	priv, ok := parsed.(ed25519.PrivateKey)
	if !ok {
		return nil, fmt.Errorf("jwtx: signing key is %T, want Ed25519", parsed)
	}

	return &EdDSASigner{kid: kid, priv: priv}, nil
}

func (s *EdDSASigner) Alg() string { return jwt.SigningMethodEdDSA.Alg() }
func (s *EdDSASigner) KID() string { return s.kid }

func (s *EdDSASigner) Sign(claims Claims) (string, error) {
	t := jwt.NewWithClaims(jwt.SigningMethodEdDSA, claims)
	t.Header["kid"] = s.kid
	return t.SignedString(s.priv)
}

func (s *EdDSASigner) PublicJWK() JWK {
	return NewEd25519JWK(s.kid, "sig", s.Alg(), s.priv.Public().(ed25519.PublicKey))
}

func (s *EdDSASigner) Validate() error {
	if len(s.priv) != ed25519.PrivateKeySize {
		return fmt.Errorf("jwtx: Ed25519 key %q has %d bytes, want %d", s.kid, len(s.priv), ed25519.PrivateKeySize)
	}
	return nil
}
