package config

import "time"

// DefaultConfig returns the configuration used when no file or
// environment overrides are present.
func DefaultConfig() *Config {
	return &Config{
		Engine: EngineConfig{
			MaxConcurrentCalls: 10,
			CallTimeout:        30 * time.Second,
			PlanTimeout:        2 * time.Minute,
		},
		Cache: CacheConfig{
			Enabled:         true,
			Backend:         "memory",
			MaxEntries:      10000,
			SweepInterval:   time.Minute,
			AvailabilityTTL: 30 * time.Second,
			InfoTTL:         5 * time.Minute,
			DefaultTTL:      time.Minute,
		},
		Retry: RetryConfig{
			MaxAttempts:  3,
			InitialDelay: time.Second,
			MaxDelay:     30 * time.Second,
			Multiplier:   2.0,
		},
		Redis: RedisConfig{
			Addr:      "localhost:6379",
			KeyPrefix: "engine:result:",
			PoolSize:  10,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
	}
}
