package errortrigger

import (
	"sort"
	"sync"
	"time"
)

// FireDecision is the outcome of recording one failure.
type FireDecision struct {
	// Fired is set when the threshold was reached by this event.
	Fired bool
	// Events holds the qualifying failures in time order when Fired is set.
	Events []FailureEvent
	// Throttled is set when the fire happened within the throttle period of
	// the previous delivered fire and must not reach the handler.
	Throttled bool
}

// AggregatorState is a point-in-time view of an aggregator.
type AggregatorState struct {
	Key       string
	Retained  int
	Oldest    time.Time
	Newest    time.Time
	Fires     int
	Throttled int
	LastFired time.Time
}

// WindowAggregator counts failures for one key and decides when the
// configured threshold is crossed. It is safe for concurrent use.
type WindowAggregator struct {
	cfg TriggerConfig

	mu        sync.Mutex
	events    []FailureEvent
	fires     int
	throttled int
	lastFired time.Time
}

// NewWindowAggregator returns an empty aggregator.
func NewWindowAggregator(cfg TriggerConfig) *WindowAggregator {
	return &WindowAggregator{cfg: cfg}
}

// Record adds ev to the retained failures. When the retained count reaches
// the threshold the whole batch is returned and the aggregator starts over.
func (a *WindowAggregator) Record(ev FailureEvent) FireDecision {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.insert(ev)
	if a.cfg.Window > 0 {
		a.trim()
	}
	if len(a.events) < a.cfg.threshold() {
		return FireDecision{}
	}

	batch := a.events
	a.events = nil
	a.fires++

	decision := FireDecision{Fired: true, Events: batch}
	newest := batch[len(batch)-1].Timestamp
	if a.cfg.Throttle > 0 && !a.lastFired.IsZero() && newest.Sub(a.lastFired) < a.cfg.Throttle {
		decision.Throttled = true
		a.throttled++
		return decision
	}
	a.lastFired = newest
	return decision
}

// insert appends ev, keeping the retained events ordered by timestamp when a
// failure arrives late.
func (a *WindowAggregator) insert(ev FailureEvent) {
	n := len(a.events)
	if n == 0 || !ev.Timestamp.Before(a.events[n-1].Timestamp) {
		a.events = append(a.events, ev)
		return
	}
	i := sort.Search(n, func(i int) bool {
		return a.events[i].Timestamp.After(ev.Timestamp)
	})
	a.events = append(a.events, FailureEvent{})
	copy(a.events[i+1:], a.events[i:])
	a.events[i] = ev
}

// trim drops retained events older than the window, measured from the newest
// retained event.
func (a *WindowAggregator) trim() {
	cutoff := a.events[len(a.events)-1].Timestamp.Add(-a.cfg.Window)
	i := sort.Search(len(a.events), func(i int) bool {
		return !a.events[i].Timestamp.Before(cutoff)
	})
	if i == 0 {
		return
	}
	a.events = append(a.events[:0], a.events[i:]...)
}

// Len returns the number of retained failures.
func (a *WindowAggregator) Len() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.events)
}

// State returns a snapshot of the aggregator labelled with key.
func (a *WindowAggregator) State(key string) AggregatorState {
	a.mu.Lock()
	defer a.mu.Unlock()

	st := AggregatorState{
		Key:       key,
		Retained:  len(a.events),
		Fires:     a.fires,
		Throttled: a.throttled,
		LastFired: a.lastFired,
	}
	if n := len(a.events); n > 0 {
		st.Oldest = a.events[0].Timestamp
		st.Newest = a.events[n-1].Timestamp
	}
	return st
}
