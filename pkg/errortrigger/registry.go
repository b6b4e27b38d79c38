package errortrigger

import (
	"sort"
	"sync"
)

// GlobalSource is the registry key shared by all sources of a global binding.
const GlobalSource = "*"

// AggregatorRegistry maps keys to aggregators, creating them on first use.
// Aggregators live as long as the registry.
type AggregatorRegistry struct {
	cfg TriggerConfig

	mu          sync.RWMutex
	aggregators map[string]*WindowAggregator
}

// NewAggregatorRegistry returns a registry whose aggregators use cfg.
func NewAggregatorRegistry(cfg TriggerConfig) *AggregatorRegistry {
	return &AggregatorRegistry{
		cfg:         cfg,
		aggregators: make(map[string]*WindowAggregator),
	}
}

// Get returns the aggregator for key, creating it if needed.
func (r *AggregatorRegistry) Get(key string) *WindowAggregator {
	r.mu.RLock()
	agg, ok := r.aggregators[key]
	r.mu.RUnlock()
	if ok {
		return agg
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if agg, ok := r.aggregators[key]; ok {
		return agg
	}
	agg = NewWindowAggregator(r.cfg)
	r.aggregators[key] = agg
	return agg
}

// Lookup returns the aggregator for key without creating one.
func (r *AggregatorRegistry) Lookup(key string) (*WindowAggregator, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	agg, ok := r.aggregators[key]
	return agg, ok
}

// States returns a snapshot of every aggregator, ordered by key.
func (r *AggregatorRegistry) States() []AggregatorState {
	r.mu.RLock()
	keys := make([]string, 0, len(r.aggregators))
	aggs := make(map[string]*WindowAggregator, len(r.aggregators))
	for k, agg := range r.aggregators {
		keys = append(keys, k)
		aggs[k] = agg
	}
	r.mu.RUnlock()

	sort.Strings(keys)
	states := make([]AggregatorState, 0, len(keys))
	for _, k := range keys {
		states = append(states, aggs[k].State(k))
	}
	return states
}
