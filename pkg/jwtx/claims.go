package jwtx

import (
	"crypto/rand"
	"encoding/base64"
	"slices"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// DefaultAccessTokenTTL is how long a session access token stays valid when
// the service does not configure its own lifetime.
const DefaultAccessTokenTTL = 30 * time.Minute

// Claims are the access-token claims issued once a session has cleared both
// the password and the one-time code.
type Claims struct {
	jwt.RegisteredClaims

	// Session ID. The token is only honoured while this session is live.
	SID string `json:"sid,omitempty"`

	// Authentication Methods Reference, e.g. ["pwd","otp"].
	AMR []string `json:"amr,omitempty"`

	Email string `json:"email,omitempty"`
	Name  string `json:"name,omitempty"`
}

// AccessClaimsParams groups the inputs of NewAccessClaims.
type AccessClaimsParams struct {
	Subject  string
	SID      string
	Email    string
	Name     string
	AMR      []string
	TTL      time.Duration
	Issuer   string
	Audience []string
	Now      time.Time
}

// NewAccessClaims builds minimally-correct claims.
func NewAccessClaims(p AccessClaimsParams) Claims {
	if p.TTL <= 0 {
		p.TTL = DefaultAccessTokenTTL
	}
	return Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    p.Issuer,
			Subject:   p.Subject,
			Audience:  jwt.ClaimStrings(p.Audience),
			IssuedAt:  jwt.NewNumericDate(p.Now),
			NotBefore: jwt.NewNumericDate(p.Now),
			ExpiresAt: jwt.NewNumericDate(p.Now.Add(p.TTL)),
			ID:        NewJTI(),
		},
		SID:   p.SID,
		AMR:   p.AMR,
		Email: p.Email,
		Name:  p.Name,
	}
}

// NewJTI returns a URL-safe random identifier for the "jti" claim.
func NewJTI() string {
	var b [20]byte
	_, _ = rand.Read(b[:])
	return base64.RawURLEncoding.EncodeToString(b[:])
}

// ValidateIssuer checks if the issuer matches expected value.
func (c *Claims) ValidateIssuer(expected string) error {
	if expected == "" {
		return nil
	}
	if c.Issuer != expected {
		return ErrIssuer
	}
	return nil
}

// ValidateAudience checks if at least one expected audience is present.
func (c *Claims) ValidateAudience(expected []string) error {
	if len(expected) == 0 {
		return nil
	}
	for _, want := range expected {
		if slices.Contains(c.Audience, want) {
			return nil
		}
	}
	return ErrAudience
}

// HasMethod reports whether amr lists the given authentication method.
func (c *Claims) HasMethod(method string) bool {
	return slices.Contains(c.AMR, method)
}
