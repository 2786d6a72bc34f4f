package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/agendo/engine/types"
)

// RedisConfig configures the redis-backed result cache.
type RedisConfig struct {
	Addr      string `yaml:"addr" json:"addr"`
	Password  string `yaml:"password" json:"password"`
	DB        int    `yaml:"db" json:"db"`
	KeyPrefix string `yaml:"key_prefix" json:"key_prefix"`
	PoolSize  int    `yaml:"pool_size" json:"pool_size"`
}

// DefaultRedisConfig returns sensible defaults.
func DefaultRedisConfig() RedisConfig {
	return RedisConfig{
		Addr:      "localhost:6379",
		KeyPrefix: "engine:result:",
		PoolSize:  10,
	}
}

// RedisStore shares cached results across processes. Expiry is delegated
// to redis TTLs, so Sweep is a no-op. Cache errors degrade to misses;
// they are logged, never propagated.
type RedisStore struct {
	client *redis.Client
	prefix string
	logger *zap.Logger
	hits   atomic.Int64
	misses atomic.Int64
}

// NewRedisStore connects to redis and verifies the connection.
func NewRedisStore(cfg RedisConfig, logger *zap.Logger) (*RedisStore, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: cfg.PoolSize,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	logger.Info("redis result cache initialized", zap.String("addr", cfg.Addr))
	return &RedisStore{
		client: client,
		prefix: cfg.KeyPrefix,
		logger: logger.With(zap.String("component", "result_cache")),
	}, nil
}

// Get implements Store.
func (s *RedisStore) Get(ctx context.Context, key string) (*types.FunctionResult, bool) {
	payload, err := s.client.Get(ctx, s.prefix+key).Bytes()
	if err == redis.Nil {
		s.misses.Add(1)
		return nil, false
	}
	if err != nil {
		s.logger.Error("cache get failed", zap.Error(err))
		s.misses.Add(1)
		return nil, false
	}

	var result types.FunctionResult
	if err := json.Unmarshal(payload, &result); err != nil {
		s.logger.Error("cache entry corrupt", zap.Error(err))
		s.misses.Add(1)
		return nil, false
	}
	s.hits.Add(1)
	return &result, true
}

// Set implements Store.
func (s *RedisStore) Set(ctx context.Context, key string, result *types.FunctionResult, ttl time.Duration) {
	payload, err := json.Marshal(result)
	if err != nil {
		s.logger.Error("cache entry marshal failed", zap.Error(err))
		return
	}
	if err := s.client.Set(ctx, s.prefix+key, payload, ttl).Err(); err != nil {
		s.logger.Error("cache set failed", zap.Error(err))
	}
}

// Sweep implements Store. Redis expires keys natively.
func (s *RedisStore) Sweep(context.Context) int {
	return 0
}

// Stats implements Store.
func (s *RedisStore) Stats() Stats {
	return Stats{
		Hits:   s.hits.Load(),
		Misses: s.misses.Load(),
	}
}

// Close implements Store.
func (s *RedisStore) Close() error {
	return s.client.Close()
}
