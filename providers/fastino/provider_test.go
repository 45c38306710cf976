package fastino

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/BaSui01/agentfoundry/providers"
	"github.com/BaSui01/agentfoundry/types"
)

func newProvider(cfg providers.FastinoConfig) *Provider {
	return NewProvider(cfg, zap.NewNop())
}

func TestRouting(t *testing.T) {
	p := newProvider(providers.FastinoConfig{})
	ctx := context.Background()

	arch, err := p.Generate(ctx, "Design the architecture for: a task tracker", providers.GenerateOptions{})
	require.NoError(t, err)
	assert.Contains(t, arch, "Components:")
	assert.Greater(t, len(arch), 100)

	code, err := p.Generate(ctx, "Implement the following in go: a task tracker", providers.GenerateOptions{})
	require.NoError(t, err)
	assert.Contains(t, code, "package main")
	assert.Contains(t, code, "func ")

	critique, err := p.Generate(ctx, "Review the following go code for: a task tracker", providers.GenerateOptions{})
	require.NoError(t, err)
	assert.Contains(t, critique, "- ")
	assert.Greater(t, len(critique), 50)

	generic, err := p.Generate(ctx, "Summarize yesterday's standup", providers.GenerateOptions{})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(generic, "Completed: "))
}

func TestRoutingPrefixBeatsEmbeddedKeywords(t *testing.T) {
	p := newProvider(providers.FastinoConfig{})

	// A review prompt whose description mentions "design" still routes
	// to the critique response.
	prompt := "Review the following go code for: Design a REST API\n\npackage main\n"
	out, err := p.Generate(context.Background(), prompt, providers.GenerateOptions{})
	require.NoError(t, err)
	assert.Equal(t, cannedCritique, out)

	// Keyword fallback for free-form prompts.
	out, err = p.Generate(context.Background(), "please critique this essay", providers.GenerateOptions{})
	require.NoError(t, err)
	assert.Equal(t, cannedCritique, out)
}

func TestCannedProgramCarriesFixableIssue(t *testing.T) {
	// The generated sample references fmt without importing it, leaving
	// the healing provider something real to repair.
	assert.Contains(t, cannedProgram, "fmt.Println")
	assert.NotContains(t, cannedProgram, "import")

	nonBlank := 0
	for _, line := range strings.Split(cannedProgram, "\n") {
		if strings.TrimSpace(line) != "" {
			nonBlank++
		}
	}
	assert.Greater(t, nonBlank, 10)
}

func TestCacheKey(t *testing.T) {
	key := cacheKey("abc", providers.GenerateOptions{MaxTokens: 100, Temperature: 0.7})
	assert.Equal(t, "abc_100_0.7", key)

	long := strings.Repeat("x", 60)
	key = cacheKey(long, providers.GenerateOptions{MaxTokens: 1, Temperature: 0})
	assert.Equal(t, strings.Repeat("x", 50)+"_1_0", key)
}

func TestGenerateCaches(t *testing.T) {
	p := newProvider(providers.FastinoConfig{CacheSize: 4})
	ctx := context.Background()
	opts := providers.GenerateOptions{MaxTokens: 256, Temperature: 0.7}

	first, err := p.Generate(ctx, "Design the architecture for: a queue", opts)
	require.NoError(t, err)
	second, err := p.Generate(ctx, "Design the architecture for: a queue", opts)
	require.NoError(t, err)
	assert.Equal(t, first, second)

	stats := p.Stats()
	assert.Equal(t, int64(2), stats.Requests)
	assert.Equal(t, int64(1), stats.CacheHits)
	assert.Equal(t, 1, stats.CacheSize)
	assert.Greater(t, stats.Tokens, int64(0))

	// Different options mean a different cache entry.
	_, err = p.Generate(ctx, "Design the architecture for: a queue", providers.GenerateOptions{MaxTokens: 256, Temperature: 0.2})
	require.NoError(t, err)
	assert.Equal(t, int64(1), p.Stats().CacheHits)
	assert.Equal(t, 2, p.Stats().CacheSize)
}

func TestCacheEvictsOldestFirst(t *testing.T) {
	p := newProvider(providers.FastinoConfig{CacheSize: 2})
	ctx := context.Background()

	for _, prompt := range []string{"prompt a", "prompt b", "prompt c"} {
		_, err := p.Generate(ctx, prompt, providers.GenerateOptions{})
		require.NoError(t, err)
	}
	assert.Equal(t, 2, p.Stats().CacheSize)

	// "prompt a" was evicted, "prompt c" was not.
	_, err := p.Generate(ctx, "prompt a", providers.GenerateOptions{})
	require.NoError(t, err)
	assert.Equal(t, int64(0), p.Stats().CacheHits)

	_, err = p.Generate(ctx, "prompt c", providers.GenerateOptions{})
	require.NoError(t, err)
	assert.Equal(t, int64(1), p.Stats().CacheHits)
}

func TestCacheDisabled(t *testing.T) {
	p := newProvider(providers.FastinoConfig{})
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := p.Generate(ctx, "same prompt", providers.GenerateOptions{})
		require.NoError(t, err)
	}
	stats := p.Stats()
	assert.Equal(t, int64(3), stats.Requests)
	assert.Zero(t, stats.CacheHits)
	assert.Zero(t, stats.CacheSize)
}

func TestRateLimiterHonorsContext(t *testing.T) {
	p := newProvider(providers.FastinoConfig{RateLimit: 0.001, RateBurst: 1})

	// The burst token covers the first call.
	_, err := p.Generate(context.Background(), "first", providers.GenerateOptions{})
	require.NoError(t, err)

	// The second call would wait ~17 minutes; a short deadline rejects
	// it immediately.
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err = p.Generate(ctx, "second", providers.GenerateOptions{})
	require.Error(t, err)
}

type stubBackend struct {
	calls int
	out   string
	err   error
}

func (s *stubBackend) Generate(context.Context, string, providers.GenerateOptions) (string, error) {
	s.calls++
	if s.err != nil {
		return "", s.err
	}
	return s.out, nil
}

func TestBackendDelegation(t *testing.T) {
	backend := &stubBackend{out: "backend says hi"}
	p := newProvider(providers.FastinoConfig{CacheSize: 4}).WithBackend(backend)
	ctx := context.Background()

	out, err := p.Generate(ctx, "Design the architecture for: anything", providers.GenerateOptions{})
	require.NoError(t, err)
	assert.Equal(t, "backend says hi", out)

	// The cache sits in front of the backend.
	_, err = p.Generate(ctx, "Design the architecture for: anything", providers.GenerateOptions{})
	require.NoError(t, err)
	assert.Equal(t, 1, backend.calls)
}

func TestBackendErrorMapped(t *testing.T) {
	backend := &stubBackend{err: errors.New("upstream 503")}
	p := newProvider(providers.FastinoConfig{}).WithBackend(backend)

	_, err := p.Generate(context.Background(), "anything", providers.GenerateOptions{})
	require.Error(t, err)
	assert.True(t, types.IsCode(err, types.ErrProviderUnavailable))
	assert.True(t, types.IsRetryable(err))

	var perr *types.Error
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, "fastino", perr.Provider)
}

func TestDefaults(t *testing.T) {
	p := newProvider(providers.FastinoConfig{})
	assert.Equal(t, "fastino", p.Name())
	assert.Equal(t, "fastino-base", p.Model())
}
