package secrets

import (
	"context"
	"fmt"
	"runtime"
	"time"

	"golang.org/x/sync/semaphore"

	"sigil/internal/platform/metrics"
)

// Hasher runs the expensive hash operations on a bounded pool so a burst of
// logins cannot pin every CPU. Callers wait on the semaphore and give up when
// their context ends.
type Hasher struct {
	sem     *semaphore.Weighted
	params  Argon2Params
	metrics *metrics.Metrics
}

type HasherOption func(*Hasher)

func WithMetrics(m *metrics.Metrics) HasherOption {
	return func(h *Hasher) {
		h.metrics = m
	}
}

func WithArgon2Params(p Argon2Params) HasherOption {
	return func(h *Hasher) {
		h.params = p
	}
}

// NewHasher allows workers concurrent hash operations. Zero or less means
// GOMAXPROCS.
func NewHasher(workers int, opts ...HasherOption) *Hasher {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	h := &Hasher{sem: semaphore.NewWeighted(int64(workers)), params: DefaultArgon2Params}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// NewSecret generates a fresh secret and its argon2id hash.
func (h *Hasher) NewSecret(ctx context.Context) (raw, hash string, err error) {
	raw, err = Generate()
	if err != nil {
		return "", "", err
	}
	hash, err = h.Hash(ctx, raw)
	if err != nil {
		return "", "", err
	}
	return raw, hash, nil
}

func (h *Hasher) Hash(ctx context.Context, secret string) (string, error) {
	var out string
	err := h.run(ctx, func() error {
		var err error
		out, err = hashArgon2(secret, h.params)
		return err
	})
	return out, err
}

// Verify returns ErrMismatch when secret does not match the PHC string.
func (h *Hasher) Verify(ctx context.Context, secret, phc string) error {
	return h.run(ctx, func() error {
		return verifyArgon2(secret, phc)
	})
}

// VerifyClientSecret is the pooled form of the package-level bcrypt check.
func (h *Hasher) VerifyClientSecret(ctx context.Context, secret, hash string) error {
	return h.run(ctx, func() error {
		return VerifyClientSecret(secret, hash)
	})
}

// HashClientSecret is the pooled form of the package-level bcrypt hash.
func (h *Hasher) HashClientSecret(ctx context.Context, secret string) (string, error) {
	var out string
	err := h.run(ctx, func() error {
		var err error
		out, err = HashClientSecret(secret)
		return err
	})
	return out, err
}

func (h *Hasher) run(ctx context.Context, fn func() error) error {
	waitStart := time.Now()
	if err := h.sem.Acquire(ctx, 1); err != nil {
		return fmt.Errorf("wait for hash worker: %w", err)
	}
	defer h.sem.Release(1)
	h.metrics.ObserveHashWait(time.Since(waitStart))

	start := time.Now()
	err := fn()
	h.metrics.ObserveHashDuration(time.Since(start))
	return err
}
