package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ghuser/inventorystorage/pkg/config"
)

func newTestConfig(url string) *config.Config {
	return &config.Config{
		RedisURL: url,
	}
}

func TestNewRedisClient_InvalidURL(t *testing.T) {
	_, err := NewRedisClient(newTestConfig("not-a-valid-url"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse redis URL")
}

func TestNewRedisClient_UnreachableHost(t *testing.T) {
	_, err := NewRedisClient(newTestConfig("redis://localhost:19999"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ping redis")
}

func TestRedisOptions_PoolSettings(t *testing.T) {
	cfg := newTestConfig("redis://localhost:6379/2")
	cfg.RedisPoolSize = 25
	cfg.RedisMinIdleConns = 4
	cfg.RedisOpTimeout = 500 * time.Millisecond

	opts, err := redisOptions(cfg)
	require.NoError(t, err)

	assert.Equal(t, 2, opts.DB)
	assert.Equal(t, 25, opts.PoolSize)
	assert.Equal(t, 4, opts.MinIdleConns)
	assert.Equal(t, 500*time.Millisecond, opts.ReadTimeout)
	assert.Equal(t, 500*time.Millisecond, opts.WriteTimeout)
	assert.Equal(t, 1500*time.Millisecond, opts.PoolTimeout)
}

func TestRedisOptions_ZeroKeepsDefaults(t *testing.T) {
	opts, err := redisOptions(newTestConfig("redis://localhost:6379"))
	require.NoError(t, err)

	assert.Zero(t, opts.PoolSize)
	assert.Zero(t, opts.ReadTimeout)
	assert.Equal(t, 3, opts.MaxRetries)
}

func TestRedisClient_Lifecycle(t *testing.T) {
	mr := miniredis.RunT(t)

	rc, err := NewRedisClient(newTestConfig("redis://" + mr.Addr()))
	require.NoError(t, err)
	require.NotNil(t, rc.Client())

	require.NoError(t, rc.Ping(context.Background()))

	mr.Close()
	assert.Error(t, rc.Ping(context.Background()))

	require.NoError(t, rc.Close())
}

func TestRedisClient_CloseZeroValue(t *testing.T) {
	var rc RedisClient
	assert.NoError(t, rc.Close())
}
