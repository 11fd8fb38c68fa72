// Package stats implements the process-wide Statistics counter from spec §3/§5:
// mutated on every LLM call, every retrieval, every turn, with writes serialised
// and reads returning a coherent snapshot sampled under one lock.
package stats

import (
	"sync"

	"go-llama/internal/searchtypes"
)

// Counter is a goroutine-safe process-wide statistics accumulator.
type Counter struct {
	mu sync.Mutex
	s  searchtypes.Stats
}

// New returns a zeroed Counter, intended to be constructed once at startup and
// shared across all turns.
func New() *Counter {
	return &Counter{}
}

// IncSearch records one search-intent turn with its wall-clock duration.
func (c *Counter) IncSearch(seconds float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.s.SearchCount++
	c.s.TotalSearchTime += seconds
}

// IncLLMCall records one LLM call (chat or json_chat), any intent, whether or
// not it succeeded.
func (c *Counter) IncLLMCall() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.s.LLMCalls++
}

// IncCacheHit records a cache hit in the LLM response cache.
func (c *Counter) IncCacheHit() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.s.CacheHits++
}

// IncVectorSearch records one vector-store RPC (any strategy, any attempt).
func (c *Counter) IncVectorSearch() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.s.VectorSearches++
}

// IncCasual records one casual-request turn.
func (c *Counter) IncCasual() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.s.CasualCount++
}

// Snapshot returns a coherent copy of all counters sampled at the same instant.
func (c *Counter) Snapshot() searchtypes.Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.s
}
