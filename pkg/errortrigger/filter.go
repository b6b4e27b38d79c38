package errortrigger

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrEmptyFilter means a fire was attempted without any failures. It points
// at corrupted aggregator state and the fire is aborted.
var ErrEmptyFilter = errors.New("trace filter requires at least one failure")

// TraceFilter is handed to a Handler when a binding fires.
type TraceFilter struct {
	Message string
	Traces  []FailureEvent // time order
}

// NewTraceFilter copies traces into a new filter.
func NewTraceFilter(message string, traces []FailureEvent) (TraceFilter, error) {
	if len(traces) == 0 {
		return TraceFilter{}, ErrEmptyFilter
	}
	return TraceFilter{
		Message: message,
		Traces:  append([]FailureEvent(nil), traces...),
	}, nil
}

// Details returns the message followed by up to limit failures, one per line.
func (f TraceFilter) Details(limit int) string {
	var b strings.Builder
	b.WriteString(f.Message)

	shown := f.Traces
	if limit >= 0 && len(shown) > limit {
		shown = shown[:limit]
	}
	for _, ev := range shown {
		fmt.Fprintf(&b, "\n%s %s: %v", ev.Timestamp.UTC().Format(time.RFC3339), ev.SourceID, ev.Err)
	}
	if rest := len(f.Traces) - len(shown); rest > 0 {
		fmt.Fprintf(&b, "\n... and %d more", rest)
	}
	return b.String()
}
