package registry

import "github.com/agendo/engine/types"

// Stats summarizes the registry's contents.
type Stats struct {
	TotalFunctions int                    `json:"total_functions"`
	ByDomain       map[string]int         `json:"by_domain"`
	ByCategory     map[types.Category]int `json:"by_category"`
	Deprecated     int                    `json:"deprecated"`
}

// Stats returns a snapshot of the registry's contents.
func (r *Registry) Stats() Stats {
	r.mu.RLock()
	defer r.mu.RUnlock()

	stats := Stats{
		TotalFunctions: len(r.functions),
		ByDomain:       make(map[string]int, len(r.byDomain)),
		ByCategory:     make(map[types.Category]int, len(r.byCategory)),
	}
	for domain, ids := range r.byDomain {
		stats.ByDomain[domain] = len(ids)
	}
	for category, ids := range r.byCategory {
		stats.ByCategory[category] = len(ids)
	}
	for _, fn := range r.functions {
		if fn.Metadata.Deprecated {
			stats.Deprecated++
		}
	}
	return stats
}
