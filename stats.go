package engine

import (
	"sync"

	"github.com/agendo/engine/cache"
	"github.com/agendo/engine/registry"
)

// Stats is a point-in-time snapshot of engine activity.
type Stats struct {
	TotalCalls         int64            `json:"total_calls"`
	SuccessfulCalls    int64            `json:"successful_calls"`
	FailedCalls        int64            `json:"failed_calls"`
	ActiveCalls        int64            `json:"active_calls"`
	CacheHits          int64            `json:"cache_hits"`
	WorkflowExecutions int64            `json:"workflow_executions"`
	CallsByFunction    map[string]int64 `json:"calls_by_function"`
	Cache              cache.Stats      `json:"cache"`
	Registry           registry.Stats   `json:"registry"`
}

// callStats tracks call counters under one mutex. Snapshot reads copy
// the per-function map so callers never share internal state.
type callStats struct {
	mu                 sync.Mutex
	totalCalls         int64
	successfulCalls    int64
	failedCalls        int64
	activeCalls        int64
	workflowExecutions int64
	byFunction         map[string]int64
	cacheHits          int64
}

func newCallStats() *callStats {
	return &callStats{byFunction: make(map[string]int64)}
}

func (s *callStats) callStarted(function string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.activeCalls++
	s.totalCalls++
	s.byFunction[function]++
}

func (s *callStats) callFinished() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.activeCalls--
}

func (s *callStats) callCompleted(success bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if success {
		s.successfulCalls++
	} else {
		s.failedCalls++
	}
}

// record counts a call made on behalf of a plan step, where callStarted
// never ran.
func (s *callStats) record(function string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.totalCalls++
	s.byFunction[function]++
}

func (s *callStats) cacheHit() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cacheHits++
}

func (s *callStats) workflowExecuted() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.workflowExecutions++
}

func (s *callStats) snapshot() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()

	byFunction := make(map[string]int64, len(s.byFunction))
	for name, count := range s.byFunction {
		byFunction[name] = count
	}
	return Stats{
		TotalCalls:         s.totalCalls,
		SuccessfulCalls:    s.successfulCalls,
		FailedCalls:        s.failedCalls,
		ActiveCalls:        s.activeCalls,
		CacheHits:          s.cacheHits,
		WorkflowExecutions: s.workflowExecutions,
		CallsByFunction:    byFunction,
	}
}

// RegistryStats returns a snapshot of the function catalog.
func (e *Engine) RegistryStats() registry.Stats {
	return e.registry.Stats()
}

// Stats returns a snapshot of call, cache and registry counters.
func (e *Engine) Stats() Stats {
	stats := e.stats.snapshot()
	if e.cache != nil {
		stats.Cache = e.cache.Stats()
	}
	stats.Registry = e.registry.Stats()
	return stats
}
