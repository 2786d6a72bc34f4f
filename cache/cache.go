// Package cache provides the result-cache stores used by the engine
// facade: an in-memory store for single-process deployments and a
// Redis-backed store for sharing results across processes.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/agendo/engine/types"
)

// Store caches function results under content-addressed keys.
type Store interface {
	// Get returns the cached result for a key, or false on a miss.
	// Expired entries count as misses.
	Get(ctx context.Context, key string) (*types.FunctionResult, bool)
	// Set stores a result with the given time-to-live.
	Set(ctx context.Context, key string, result *types.FunctionResult, ttl time.Duration)
	// Sweep removes expired entries and returns how many were dropped.
	Sweep(ctx context.Context) int
	// Stats returns hit/miss counters.
	Stats() Stats
	// Close releases the store's resources.
	Close() error
}

// Stats tracks cache performance.
type Stats struct {
	Hits      int64 `json:"hits"`
	Misses    int64 `json:"misses"`
	Evictions int64 `json:"evictions"`
	Size      int   `json:"size"`
}

// Key builds the content-addressed cache key for a call: a sha256 over
// the function name, normalized arguments, tenant and domain. Arguments
// are round-tripped through encoding/json so key ordering differences
// between semantically equal payloads collapse to one key.
func Key(function string, arguments json.RawMessage, tenantID, domain string) string {
	normalized := arguments
	var decoded any
	if err := json.Unmarshal(arguments, &decoded); err == nil {
		if reencoded, err := json.Marshal(decoded); err == nil {
			normalized = reencoded
		}
	}
	sum := sha256.Sum256(fmt.Appendf(nil, "%s:%s:%s:%s", function, normalized, tenantID, domain))
	return hex.EncodeToString(sum[:])
}
