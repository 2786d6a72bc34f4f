package cache

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/agendo/engine/types"
)

type memoryEntry struct {
	result    *types.FunctionResult
	createdAt time.Time
	expiresAt time.Time
	hitCount  int
}

// MemoryStore is the default in-process result cache. Expired entries
// are dropped lazily on read and in bulk by Sweep; when the store is at
// capacity the oldest entry is evicted.
type MemoryStore struct {
	mu         sync.RWMutex
	entries    map[string]*memoryEntry
	maxEntries int
	stats      Stats
	logger     *zap.Logger
}

// NewMemoryStore creates a memory store holding at most maxEntries
// results. A non-positive maxEntries falls back to 10000.
func NewMemoryStore(maxEntries int, logger *zap.Logger) *MemoryStore {
	if maxEntries <= 0 {
		maxEntries = 10000
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MemoryStore{
		entries:    make(map[string]*memoryEntry),
		maxEntries: maxEntries,
		logger:     logger.With(zap.String("component", "result_cache")),
	}
}

// Get implements Store. Reading an expired entry purges it.
func (s *MemoryStore) Get(_ context.Context, key string) (*types.FunctionResult, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.entries[key]
	if !ok {
		s.stats.Misses++
		return nil, false
	}
	if time.Now().After(entry.expiresAt) {
		delete(s.entries, key)
		s.stats.Misses++
		s.stats.Size = len(s.entries)
		return nil, false
	}

	entry.hitCount++
	s.stats.Hits++
	return entry.result, true
}

// Set implements Store.
func (s *MemoryStore) Set(_ context.Context, key string, result *types.FunctionResult, ttl time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.entries) >= s.maxEntries {
		s.evictOldest()
	}
	now := time.Now()
	s.entries[key] = &memoryEntry{
		result:    result,
		createdAt: now,
		expiresAt: now.Add(ttl),
	}
	s.stats.Size = len(s.entries)
}

// Sweep implements Store, dropping every expired entry.
func (s *MemoryStore) Sweep(_ context.Context) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	swept := 0
	for key, entry := range s.entries {
		if now.After(entry.expiresAt) {
			delete(s.entries, key)
			swept++
		}
	}
	s.stats.Size = len(s.entries)
	if swept > 0 {
		s.logger.Debug("swept expired cache entries", zap.Int("count", swept))
	}
	return swept
}

// Stats implements Store.
func (s *MemoryStore) Stats() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.stats
}

// Close implements Store.
func (s *MemoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = make(map[string]*memoryEntry)
	s.stats.Size = 0
	return nil
}

// evictOldest removes the entry with the earliest creation time. Caller
// holds the write lock.
func (s *MemoryStore) evictOldest() {
	var oldestKey string
	var oldestTime time.Time
	for key, entry := range s.entries {
		if oldestKey == "" || entry.createdAt.Before(oldestTime) {
			oldestKey = key
			oldestTime = entry.createdAt
		}
	}
	if oldestKey != "" {
		delete(s.entries, oldestKey)
		s.stats.Evictions++
	}
}
