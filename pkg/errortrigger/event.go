// Package errortrigger aggregates function failures and invokes a handler
// when a configured number of failures has been observed.
//
// A host reports every failed invocation to a Dispatcher. Each Binding owns
// an AggregatorRegistry of WindowAggregators (one global aggregator, or one
// per function) that decides when enough failures have accumulated. On a
// fire the dispatcher hands a TraceFilter with the qualifying failures to
// the binding's Handler.
package errortrigger

import (
	"errors"
	"time"
)

// FailureEvent records one failed invocation of a monitored function.
type FailureEvent struct {
	Timestamp time.Time
	SourceID  string // qualified function name
	Err       error
}

// NewFailureEvent builds a FailureEvent. The source must be non-empty and
// err must be non-nil.
func NewFailureEvent(sourceID string, ts time.Time, err error) (FailureEvent, error) {
	ev := FailureEvent{
		Timestamp: ts,
		SourceID:  sourceID,
		Err:       err,
	}
	return ev, ev.Validate()
}

// Validate reports whether the event carries everything an aggregator needs.
func (e FailureEvent) Validate() error {
	if e.SourceID == "" {
		return errors.New("failure event source is required")
	}
	if e.Err == nil {
		return errors.New("failure event error is required")
	}
	if e.Timestamp.IsZero() {
		return errors.New("failure event timestamp is required")
	}
	return nil
}
