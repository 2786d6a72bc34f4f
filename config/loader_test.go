package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 10, cfg.Engine.MaxConcurrentCalls)
	assert.Equal(t, "memory", cfg.Cache.Backend)
	assert.Equal(t, 30*time.Second, cfg.Cache.AvailabilityTTL)
	assert.Equal(t, 5*time.Minute, cfg.Cache.InfoTTL)
	assert.Equal(t, 3, cfg.Retry.MaxAttempts)
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := NewLoader().WithConfigPath("/nonexistent/engine.yaml").Load()
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig().Engine.MaxConcurrentCalls, cfg.Engine.MaxConcurrentCalls)
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "engine.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
engine:
  max_concurrent_calls: 25
  call_timeout: 10s
cache:
  backend: redis
  default_ttl: 90s
redis:
  addr: redis.internal:6379
log:
  level: debug
`), 0o644))

	cfg, err := NewLoader().WithConfigPath(path).Load()
	require.NoError(t, err)
	assert.Equal(t, 25, cfg.Engine.MaxConcurrentCalls)
	assert.Equal(t, 10*time.Second, cfg.Engine.CallTimeout)
	assert.Equal(t, "redis", cfg.Cache.Backend)
	assert.Equal(t, 90*time.Second, cfg.Cache.DefaultTTL)
	assert.Equal(t, "redis.internal:6379", cfg.Redis.Addr)
	assert.Equal(t, "debug", cfg.Log.Level)

	// untouched sections keep their defaults
	assert.Equal(t, 3, cfg.Retry.MaxAttempts)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("ENGINE_ENGINE_MAX_CONCURRENT_CALLS", "42")
	t.Setenv("ENGINE_CACHE_ENABLED", "false")
	t.Setenv("ENGINE_RETRY_INITIAL_DELAY", "250ms")

	cfg, err := NewLoader().Load()
	require.NoError(t, err)
	assert.Equal(t, 42, cfg.Engine.MaxConcurrentCalls)
	assert.False(t, cfg.Cache.Enabled)
	assert.Equal(t, 250*time.Millisecond, cfg.Retry.InitialDelay)
}

func TestLoadRejectsInvalidConfig(t *testing.T) {
	t.Setenv("ENGINE_ENGINE_MAX_CONCURRENT_CALLS", "0")
	_, err := NewLoader().Load()
	assert.Error(t, err)
}

func TestLoadMalformedYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "engine.yaml")
	require.NoError(t, os.WriteFile(path, []byte("engine: [not a map"), 0o644))
	_, err := NewLoader().WithConfigPath(path).Load()
	assert.Error(t, err)
}

func TestCustomValidator(t *testing.T) {
	called := false
	_, err := NewLoader().WithValidator(func(c *Config) error {
		called = true
		return nil
	}).Load()
	require.NoError(t, err)
	assert.True(t, called)
}

func TestValidateErrors(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Cache.Backend = "memcached"
	cfg.Retry.Multiplier = 0.5
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "memcached")
	assert.Contains(t, err.Error(), "multiplier")
}

func TestBuildLogger(t *testing.T) {
	logger, err := BuildLogger(LogConfig{Level: "debug", Format: "console"})
	require.NoError(t, err)
	require.NotNil(t, logger)

	_, err = BuildLogger(LogConfig{Level: "verbose"})
	assert.Error(t, err)
}
