package secrets

import (
	"context"
	"regexp"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sigil/internal/platform/metrics"
)

// cheap keeps the argon2 tests fast.
var cheap = Argon2Params{Memory: 64, Time: 1, Threads: 1, SaltLen: 16, KeyLen: 32}

func TestGenerate(t *testing.T) {
	alnum := regexp.MustCompile(`^[A-Za-z0-9]{64}$`)
	seen := make(map[string]struct{})
	for range 50 {
		s, err := Generate()
		require.NoError(t, err)
		assert.Regexp(t, alnum, s)
		seen[s] = struct{}{}
	}
	assert.Len(t, seen, 50)
}

func TestClientSecretRoundTrip(t *testing.T) {
	hash, err := HashClientSecret("s3cret")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(hash, "$2a$"))

	assert.NoError(t, VerifyClientSecret("s3cret", hash))
	assert.ErrorIs(t, VerifyClientSecret("wrong", hash), ErrMismatch)

	_, err = HashClientSecret("")
	assert.Error(t, err)
}

func TestArgon2PHC(t *testing.T) {
	phc, err := hashArgon2("refresh-secret", cheap)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(phc, "$argon2id$v=19$m=64,t=1,p=1$"), phc)

	assert.NoError(t, verifyArgon2("refresh-secret", phc))
	assert.ErrorIs(t, verifyArgon2("other-secret", phc), ErrMismatch)

	for _, bad := range []string{"", "$argon2i$v=19$m=64,t=1,p=1$c2FsdA$a2V5", "$argon2id$v=19$garbage$c2FsdA$a2V5", "plain"} {
		assert.ErrorIs(t, verifyArgon2("refresh-secret", bad), errMalformedPHC, bad)
	}
}

func TestHasher(t *testing.T) {
	ctx := context.Background()
	m := metrics.New(prometheus.NewRegistry())
	h := NewHasher(2, WithArgon2Params(cheap), WithMetrics(m))

	raw, hash, err := h.NewSecret(ctx)
	require.NoError(t, err)
	assert.Len(t, raw, SecretLength)
	assert.NoError(t, h.Verify(ctx, raw, hash))

	rotated, rotatedHash, err := h.NewSecret(ctx)
	require.NoError(t, err)
	assert.NotEqual(t, raw, rotated)
	assert.ErrorIs(t, h.Verify(ctx, raw, rotatedHash), ErrMismatch)
}

func TestHasherBoundsConcurrency(t *testing.T) {
	h := NewHasher(1, WithArgon2Params(cheap))

	var (
		mu      sync.Mutex
		running int
		peak    int
		wg      sync.WaitGroup
	)
	for range 4 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = h.run(context.Background(), func() error {
				mu.Lock()
				running++
				peak = max(peak, running)
				mu.Unlock()
				time.Sleep(5 * time.Millisecond)
				mu.Lock()
				running--
				mu.Unlock()
				return nil
			})
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, peak)
}

func TestHasherHonorsCancellation(t *testing.T) {
	h := NewHasher(1, WithArgon2Params(cheap))
	release := make(chan struct{})
	started := make(chan struct{})
	go func() {
		_ = h.run(context.Background(), func() error {
			close(started)
			<-release
			return nil
		})
	}()
	<-started

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := h.Hash(ctx, "x")
	assert.ErrorIs(t, err, context.Canceled)
	close(release)
}
