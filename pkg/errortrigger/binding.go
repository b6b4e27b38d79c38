package errortrigger

import (
	"context"
	"errors"
	"fmt"
)

// Scope selects which failures a binding watches and how they are grouped.
type Scope string

const (
	// ScopeGlobal aggregates failures of every source together.
	ScopeGlobal Scope = "global"
	// ScopeFunction watches a single function.
	ScopeFunction Scope = "function"
	// ScopePerSource keeps a separate aggregator for every source.
	ScopePerSource Scope = "per-source"
)

// Policy names the message a binding reports when it fires.
type Policy int

const (
	// PolicyAllErrors fires on every failure of any source.
	PolicyAllErrors Policy = iota
	// PolicySlidingWindow fires when Threshold failures fall within Window.
	PolicySlidingWindow
	// PolicyFunction reports the failing function by name.
	PolicyFunction
)

func (p Policy) String() string {
	switch p {
	case PolicySlidingWindow:
		return "sliding-window"
	case PolicyFunction:
		return "function"
	default:
		return "all-errors"
	}
}

// AllErrorsMessage is the message of a global binding without a window.
const AllErrorsMessage = "WebJob failure detected."

// Handler receives the filter of a fired binding. Errors are returned to
// whoever reported the failure.
type Handler func(ctx context.Context, filter TraceFilter) error

// Binding ties a trigger configuration to a handler.
type Binding struct {
	Name     string
	Scope    Scope
	Function string // ScopeFunction only
	Config   TriggerConfig
	Handler  Handler
}

// Validate checks the binding is complete and its configuration is sane.
func (b Binding) Validate() error {
	if b.Name == "" {
		return &ConfigurationError{Field: "name", Reason: "is required"}
	}
	if err := b.Config.Validate(); err != nil {
		var cerr *ConfigurationError
		if errors.As(err, &cerr) {
			cerr.Binding = b.Name
		}
		return err
	}
	switch b.Scope {
	case ScopeGlobal, ScopePerSource:
	case ScopeFunction:
		if b.Function == "" {
			return &ConfigurationError{Binding: b.Name, Field: "function", Reason: "is required for function scope"}
		}
	default:
		return &ConfigurationError{Binding: b.Name, Field: "scope", Reason: fmt.Sprintf("unknown scope %q", b.Scope)}
	}
	if b.Handler == nil {
		return &ConfigurationError{Binding: b.Name, Field: "handler", Reason: "is required"}
	}
	return nil
}

// Policy reports which message the binding produces.
func (b Binding) Policy() Policy {
	switch {
	case b.Scope != ScopeGlobal:
		return PolicyFunction
	case b.Config.Window > 0:
		return PolicySlidingWindow
	default:
		return PolicyAllErrors
	}
}

// key maps a source to the registry key of this binding. ok is false when
// the binding does not watch source.
func (b Binding) key(source string) (key string, ok bool) {
	switch b.Scope {
	case ScopeGlobal:
		return GlobalSource, true
	case ScopeFunction:
		return b.Function, source == b.Function
	default:
		return source, true
	}
}

func (b Binding) message(key string) string {
	switch b.Policy() {
	case PolicySlidingWindow:
		return fmt.Sprintf("%d events at level 'Error' or lower have occurred within time window %s.",
			b.Config.threshold(), FormatWindow(b.Config.Window))
	case PolicyFunction:
		return fmt.Sprintf("Function '%s' failed.", key)
	default:
		return AllErrorsMessage
	}
}
