package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Belphemur/ShowTracker/internal/config"
	"github.com/Belphemur/ShowTracker/internal/models"
	"github.com/Belphemur/ShowTracker/internal/shows"
	"github.com/Belphemur/ShowTracker/internal/store"
)

func newMemoryRepository(t *testing.T) (store.Store, shows.Repository) {
	t.Helper()
	st, err := store.New("memory", store.ProviderConfig{})
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	return st, shows.NewRepository(st)
}

var testSeeds = []config.ShowSeed{
	{Name: "Lost", EpisodesSeen: 5},
	{Name: "Dark", EpisodesSeen: 12},
}

func TestPrepareShows_SeedsEmptyStore(t *testing.T) {
	t.Parallel()
	st, repo := newMemoryRepository(t)
	ctx := context.Background()

	require.NoError(t, prepareShows(ctx, st, repo, true, testSeeds))

	all, err := repo.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []models.Show{
		{ID: 1, Name: "Lost", EpisodesSeen: 5},
		{ID: 2, Name: "Dark", EpisodesSeen: 12},
	}, all)
}

func TestPrepareShows_SkipsSeedWhenAlreadyWritten(t *testing.T) {
	t.Parallel()
	st, repo := newMemoryRepository(t)
	ctx := context.Background()

	_, err := repo.Create(ctx, "Fargo", 1)
	require.NoError(t, err)
	require.NoError(t, repo.Delete(ctx, 1))

	require.NoError(t, prepareShows(ctx, st, repo, false, testSeeds))

	all, err := repo.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, all, "a collection that was written to must not be re-seeded")
}

func TestPrepareShows_ResetRestartsIDs(t *testing.T) {
	t.Parallel()
	st, repo := newMemoryRepository(t)
	ctx := context.Background()

	_, err := repo.Create(ctx, "Fargo", 1)
	require.NoError(t, err)

	require.NoError(t, prepareShows(ctx, st, repo, true, nil))

	last, err := repo.LastID(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, last)
}

func TestPrepareShows_InvalidSeed(t *testing.T) {
	t.Parallel()
	st, repo := newMemoryRepository(t)

	err := prepareShows(context.Background(), st, repo, false, []config.ShowSeed{{Name: ""}})
	assert.Error(t, err)
}

func TestNewLimiter(t *testing.T) {
	t.Parallel()

	cfg := &config.Config{}
	limiter, err := newLimiter(cfg)
	require.NoError(t, err)
	assert.Nil(t, limiter, "a zero limit disables rate limiting")

	cfg.RateLimit.Provider = "memory"
	cfg.RateLimit.Limit = 10
	cfg.RateLimit.Window = "1m"
	limiter, err = newLimiter(cfg)
	require.NoError(t, err)
	require.NotNil(t, limiter)
	assert.NoError(t, limiter.Close())
}

func TestRateLimitRedis(t *testing.T) {
	t.Parallel()

	cfg := &config.Config{}
	cfg.Store.Redis = config.RedisConfig{Address: "store:6379", Password: "secret", DB: 2, KeyPrefix: "showtracker:"}
	cfg.RateLimit.Redis = config.RedisConfig{KeyPrefix: "showtracker:ratelimit:"}

	got := rateLimitRedis(cfg)
	assert.Equal(t, config.RedisConfig{Address: "store:6379", Password: "secret", DB: 2, KeyPrefix: "showtracker:ratelimit:"}, got)

	cfg.RateLimit.Redis = config.RedisConfig{Address: "limits:6379", DB: 1, KeyPrefix: "rl:"}
	got = rateLimitRedis(cfg)
	assert.Equal(t, cfg.RateLimit.Redis, got)
}

func TestRateLimitRedis_LoadedDefaultsReuseStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("store:\n  redis:\n    address: valkey:6379\n"), 0o600))
	cfg, err := config.LoadConfig(path)
	require.NoError(t, err)

	got := rateLimitRedis(cfg)
	assert.Equal(t, "valkey:6379", got.Address)
	assert.Equal(t, cfg.RateLimit.Redis.KeyPrefix, got.KeyPrefix)
}

func TestStoreConfig(t *testing.T) {
	t.Parallel()

	cfg := &config.Config{}
	cfg.Store.Redis.Address = "localhost:6379"
	cfg.Store.Redis.KeyPrefix = "test:"
	cfg.Store.Retry.MaxRetries = 2
	cfg.Store.Retry.Backoff = "100ms"

	pc := storeConfig(cfg, config.GetLogger())
	assert.Equal(t, "localhost:6379", pc.RedisAddress)
	assert.Equal(t, "test:", pc.KeyPrefix)
	assert.Equal(t, 2, pc.MaxRetries)
	assert.Equal(t, "100ms", pc.RetryBackoff.String())
	assert.Equal(t, metricsGroup, pc.Group)
	assert.Equal(t, []string{shows.Collection}, pc.Collections)
}

func TestPrintShows(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, printShows(&buf, []models.Show{{ID: 1, Name: "Lost", EpisodesSeen: 5}}))

	out := buf.String()
	assert.Contains(t, out, "EPISODES SEEN")
	assert.Contains(t, out, "Lost")
}

func TestParseShowID(t *testing.T) {
	t.Parallel()

	id, err := parseShowID("12")
	require.NoError(t, err)
	assert.Equal(t, 12, id)

	_, err = parseShowID("twelve")
	assert.Error(t, err)
}
