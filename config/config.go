// Package config loads engine configuration from defaults, an optional
// YAML file and environment variable overrides, in that order.
package config

import (
	"fmt"
	"strings"
	"time"
)

// Config is the complete engine configuration.
type Config struct {
	// Engine holds execution limits and defaults.
	Engine EngineConfig `yaml:"engine" env:"ENGINE"`

	// Cache configures the function result cache.
	Cache CacheConfig `yaml:"cache" env:"CACHE"`

	// Retry configures the default step retry policy.
	Retry RetryConfig `yaml:"retry" env:"RETRY"`

	// Redis configures the shared result cache backend.
	Redis RedisConfig `yaml:"redis" env:"REDIS"`

	// Catalog points at the YAML function catalog, if any.
	Catalog CatalogConfig `yaml:"catalog" env:"CATALOG"`

	// Log configures structured logging.
	Log LogConfig `yaml:"log" env:"LOG"`
}

// EngineConfig holds execution limits and defaults.
type EngineConfig struct {
	// Maximum number of function calls executing at once.
	MaxConcurrentCalls int `yaml:"max_concurrent_calls" env:"MAX_CONCURRENT_CALLS"`
	// Timeout applied to a single function call.
	CallTimeout time.Duration `yaml:"call_timeout" env:"CALL_TIMEOUT"`
	// Timeout applied to a whole execution plan.
	PlanTimeout time.Duration `yaml:"plan_timeout" env:"PLAN_TIMEOUT"`
	// Per-function rate limit in calls per second. Zero disables it.
	RateLimit float64 `yaml:"rate_limit" env:"RATE_LIMIT"`
}

// CacheConfig configures the function result cache.
type CacheConfig struct {
	// Enabled toggles result caching.
	Enabled bool `yaml:"enabled" env:"ENABLED"`
	// Backend is "memory" or "redis".
	Backend string `yaml:"backend" env:"BACKEND"`
	// Maximum entries held by the memory backend.
	MaxEntries int `yaml:"max_entries" env:"MAX_ENTRIES"`
	// How often expired entries are swept.
	SweepInterval time.Duration `yaml:"sweep_interval" env:"SWEEP_INTERVAL"`
	// TTL for availability and check results.
	AvailabilityTTL time.Duration `yaml:"availability_ttl" env:"AVAILABILITY_TTL"`
	// TTL for informational results.
	InfoTTL time.Duration `yaml:"info_ttl" env:"INFO_TTL"`
	// TTL for everything else.
	DefaultTTL time.Duration `yaml:"default_ttl" env:"DEFAULT_TTL"`
}

// RetryConfig configures the default step retry policy.
type RetryConfig struct {
	MaxAttempts  int           `yaml:"max_attempts" env:"MAX_ATTEMPTS"`
	InitialDelay time.Duration `yaml:"initial_delay" env:"INITIAL_DELAY"`
	MaxDelay     time.Duration `yaml:"max_delay" env:"MAX_DELAY"`
	Multiplier   float64       `yaml:"multiplier" env:"MULTIPLIER"`
	Jitter       bool          `yaml:"jitter" env:"JITTER"`
}

// RedisConfig configures the shared result cache backend.
type RedisConfig struct {
	Addr      string `yaml:"addr" env:"ADDR"`
	Password  string `yaml:"password" env:"PASSWORD"`
	DB        int    `yaml:"db" env:"DB"`
	KeyPrefix string `yaml:"key_prefix" env:"KEY_PREFIX"`
	PoolSize  int    `yaml:"pool_size" env:"POOL_SIZE"`
}

// CatalogConfig points at the YAML function catalog.
type CatalogConfig struct {
	Path string `yaml:"path" env:"PATH"`
}

// LogConfig configures structured logging.
type LogConfig struct {
	// Level is one of debug, info, warn, error.
	Level string `yaml:"level" env:"LEVEL"`
	// Format is json or console.
	Format string `yaml:"format" env:"FORMAT"`
	// EnableCaller annotates entries with the caller location.
	EnableCaller bool `yaml:"enable_caller" env:"ENABLE_CALLER"`
}

// Validate checks the configuration for obvious mistakes.
func (c *Config) Validate() error {
	var errs []string

	if c.Engine.MaxConcurrentCalls <= 0 {
		errs = append(errs, "max_concurrent_calls must be positive")
	}
	if c.Cache.Backend != "memory" && c.Cache.Backend != "redis" {
		errs = append(errs, fmt.Sprintf("unknown cache backend %q", c.Cache.Backend))
	}
	if c.Retry.MaxAttempts <= 0 {
		errs = append(errs, "retry max_attempts must be positive")
	}
	if c.Retry.Multiplier < 1 {
		errs = append(errs, "retry multiplier must be at least 1")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation errors: %s", strings.Join(errs, "; "))
	}
	return nil
}
