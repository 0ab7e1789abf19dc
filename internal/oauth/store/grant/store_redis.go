package grant

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"sigil/internal/auth/secrets"
	"sigil/internal/oauth/models"
	"sigil/internal/platform/metrics"
	"sigil/pkg/platform/sentinel"
)

// Kind selects the key prefix and lifetime of a grant.
type Kind string

const (
	KindCode         Kind = "oauth_code"
	KindAccessToken  Kind = "oauth_access_token"
	KindRefreshToken Kind = "oauth_refresh_token"
)

const (
	CodeTTL         = 300 * time.Second
	AccessTokenTTL  = time.Hour
	RefreshTokenTTL = 14 * 24 * time.Hour

	keyLength = 64
)

func (k Kind) TTL() time.Duration {
	switch k {
	case KindCode:
		return CodeTTL
	case KindAccessToken:
		return AccessTokenTTL
	case KindRefreshToken:
		return RefreshTokenTTL
	default:
		return 0
	}
}

func (k Kind) key(token string) string {
	return string(k) + ":" + token
}

// RedisStore keeps grants as JSON under a random 64 character key. Expiry
// is left to Redis.
type RedisStore struct {
	client         redis.Cmdable
	singleUseCodes bool
	metrics        *metrics.Metrics
}

type Option func(*RedisStore)

// WithSingleUseCodes makes Redeem delete the code as it reads it.
func WithSingleUseCodes(enabled bool) Option {
	return func(s *RedisStore) { s.singleUseCodes = enabled }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *RedisStore) { s.metrics = m }
}

func NewRedis(client redis.Cmdable, opts ...Option) *RedisStore {
	s := &RedisStore{client: client, singleUseCodes: true}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Save stores g and returns the token that names it.
func (s *RedisStore) Save(ctx context.Context, kind Kind, g models.Grant) (string, error) {
	defer s.observe("save", time.Now())

	ttl := kind.TTL()
	if ttl == 0 {
		return "", fmt.Errorf("unknown grant kind %q", kind)
	}
	value, err := json.Marshal(g)
	if err != nil {
		return "", fmt.Errorf("encode grant: %w", err)
	}
	token, err := secrets.Alphanumeric(keyLength)
	if err != nil {
		return "", err
	}
	if err := s.client.Set(ctx, kind.key(token), value, ttl).Err(); err != nil {
		return "", fmt.Errorf("save %s: %w", kind, err)
	}
	s.metrics.IncrementArtifact(string(kind))
	return token, nil
}

// Lookup reads a grant without consuming it. Missing or expired grants
// return sentinel.ErrNotFound.
func (s *RedisStore) Lookup(ctx context.Context, kind Kind, token string) (*models.Grant, error) {
	defer s.observe("lookup", time.Now())
	return decode(s.client.Get(ctx, kind.key(token)))
}

// Redeem reads an authorization code. With single-use codes enabled the
// read and the delete are one GETDEL, so concurrent redemptions of the same
// code cannot both succeed.
func (s *RedisStore) Redeem(ctx context.Context, code string) (*models.Grant, error) {
	defer s.observe("redeem", time.Now())
	if s.singleUseCodes {
		return decode(s.client.GetDel(ctx, KindCode.key(code)))
	}
	return decode(s.client.Get(ctx, KindCode.key(code)))
}

func decode(cmd *redis.StringCmd) (*models.Grant, error) {
	raw, err := cmd.Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("read grant: %w", err)
	}
	var g models.Grant
	if err := json.Unmarshal(raw, &g); err != nil {
		return nil, fmt.Errorf("decode grant: %w", err)
	}
	return &g, nil
}

func (s *RedisStore) observe(op string, start time.Time) {
	s.metrics.ObserveGrantStore(op, time.Since(start))
}
