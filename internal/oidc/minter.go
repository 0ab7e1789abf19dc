// Package oidc mints RS256 id tokens and serves discovery and JWKS.
package oidc

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	identity "sigil/internal/identity/models"
	id "sigil/pkg/domain"
)

// IDTokenTTL is how long a minted id token is valid.
const IDTokenTTL = time.Hour

type IDTokenClaims struct {
	AuthTime          int64    `json:"auth_time"`
	Nonce             string   `json:"nonce,omitempty"`
	Name              string   `json:"name"`
	PreferredUsername string   `json:"preferred_username"`
	Email             string   `json:"email"`
	EmailVerified     bool     `json:"email_verified"`
	Groups            []string `json:"groups"`
	Roles             []string `json:"roles"`
	jwt.RegisteredClaims
}

// MintInput is everything that goes into one id token. Sub is the pairwise
// subject from the user's authorization record for the client.
type MintInput struct {
	User     *identity.User
	ClientID id.ClientID
	Sub      string
	Groups   []string
	Roles    []string
	Nonce    string
}

type Minter struct {
	keys   *KeySet
	issuer string
	now    func() time.Time
}

type MinterOption func(*Minter)

func WithClock(now func() time.Time) MinterOption {
	return func(m *Minter) { m.now = now }
}

func NewMinter(keys *KeySet, issuer string, opts ...MinterOption) *Minter {
	m := &Minter{keys: keys, issuer: issuer, now: time.Now}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *Minter) Issuer() string { return m.issuer }

func (m *Minter) Keys() *KeySet { return m.keys }

// Mint signs an id token with the newest key.
func (m *Minter) Mint(in MintInput) (string, error) {
	iat := m.now().Truncate(time.Second)
	groups, roles := in.Groups, in.Roles
	if groups == nil {
		groups = []string{}
	}
	if roles == nil {
		roles = []string{}
	}
	claims := IDTokenClaims{
		AuthTime:          iat.Unix(),
		Nonce:             in.Nonce,
		Name:              in.User.Name,
		PreferredUsername: in.User.Username,
		Email:             in.User.Email,
		EmailVerified:     true,
		Groups:            groups,
		Roles:             roles,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    m.issuer,
			Subject:   in.Sub,
			Audience:  jwt.ClaimStrings{in.ClientID.String()},
			IssuedAt:  jwt.NewNumericDate(iat),
			ExpiresAt: jwt.NewNumericDate(iat.Add(IDTokenTTL)),
		},
	}
	kid, key := m.keys.Signing()
	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	token.Header["kid"] = kid
	signed, err := token.SignedString(key)
	if err != nil {
		return "", fmt.Errorf("sign id token: %w", err)
	}
	return signed, nil
}
