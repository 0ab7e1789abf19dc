package jwttoken

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Purpose selects the signing key. A token minted for one purpose never
// verifies under another.
type Purpose string

const (
	PurposeRegistration          Purpose = "registration"
	PurposeRegistrationChallenge Purpose = "registration-challenge"
	PurposeLoginChallenge        Purpose = "login-challenge"
	PurposeAccess                Purpose = "access"
	PurposeRefresh               Purpose = "refresh"
)

// Purposes lists every purpose a Codec needs a key for.
var Purposes = []Purpose{
	PurposeRegistration,
	PurposeRegistrationChallenge,
	PurposeLoginChallenge,
	PurposeAccess,
	PurposeRefresh,
}

const (
	RegistrationTTL = 24 * time.Hour
	ChallengeTTL    = 330 * time.Second
	AccessTTL       = time.Hour
)

// ErrInvalidToken covers every decode failure: bad signature, wrong purpose,
// malformed input and expiry.
var ErrInvalidToken = errors.New("invalid token")

// Codec signs and verifies HS256 tokens with one key per purpose.
type Codec struct {
	keys          map[Purpose][]byte
	now           func() time.Time
	refreshMaxAge time.Duration
}

type Option func(*Codec)

func WithClock(now func() time.Time) Option {
	return func(c *Codec) { c.now = now }
}

// WithRefreshMaxAge stamps refresh tokens with an absolute expiry. Zero
// leaves them without one.
func WithRefreshMaxAge(d time.Duration) Option {
	return func(c *Codec) { c.refreshMaxAge = d }
}

func NewCodec(keys map[Purpose][]byte, opts ...Option) (*Codec, error) {
	c := &Codec{keys: make(map[Purpose][]byte, len(Purposes)), now: time.Now}
	for _, p := range Purposes {
		key := keys[p]
		if len(key) == 0 {
			return nil, fmt.Errorf("missing signing key for purpose %q", p)
		}
		c.keys[p] = key
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Lifetime is how long a freshly stamped token of purpose stays valid. Zero
// means no expiry.
func (c *Codec) Lifetime(purpose Purpose) time.Duration {
	switch purpose {
	case PurposeRegistration:
		return RegistrationTTL
	case PurposeRegistrationChallenge, PurposeLoginChallenge:
		return ChallengeTTL
	case PurposeAccess:
		return AccessTTL
	case PurposeRefresh:
		return c.refreshMaxAge
	default:
		return 0
	}
}

// Stamp returns registered claims with iat set to now and exp set from the
// purpose lifetime.
func (c *Codec) Stamp(purpose Purpose) jwt.RegisteredClaims {
	now := c.now().Truncate(time.Second)
	rc := jwt.RegisteredClaims{IssuedAt: jwt.NewNumericDate(now)}
	if ttl := c.Lifetime(purpose); ttl > 0 {
		rc.ExpiresAt = jwt.NewNumericDate(now.Add(ttl))
	}
	return rc
}

func (c *Codec) Now() time.Time {
	return c.now()
}

func (c *Codec) Encode(purpose Purpose, claims jwt.Claims) (string, error) {
	key, ok := c.keys[purpose]
	if !ok {
		return "", fmt.Errorf("unknown token purpose %q", purpose)
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(key)
	if err != nil {
		return "", fmt.Errorf("sign %s token: %w", purpose, err)
	}
	return signed, nil
}

// Decode verifies token under the purpose key and fills claims. Every
// purpose except refresh requires an exp claim.
func (c *Codec) Decode(purpose Purpose, token string, claims jwt.Claims) error {
	key, ok := c.keys[purpose]
	if !ok {
		return ErrInvalidToken
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(c.now),
	}
	if purpose != PurposeRefresh {
		opts = append(opts, jwt.WithExpirationRequired())
	}

	parsed, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return key, nil
	}, opts...)
	if err != nil || !parsed.Valid {
		return ErrInvalidToken
	}
	return nil
}
