package errortrigger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// Observer is told about everything the dispatcher does. Implementations
// must be safe for concurrent use.
type Observer interface {
	Received(ev FailureEvent)
	Fired(binding string, filter TraceFilter)
	Throttled(binding string, filter TraceFilter)
	HandlerFailed(binding string, err error)
}

// NopObserver ignores all notifications.
type NopObserver struct{}

func (NopObserver) Received(FailureEvent)         {}
func (NopObserver) Fired(string, TraceFilter)     {}
func (NopObserver) Throttled(string, TraceFilter) {}
func (NopObserver) HandlerFailed(string, error)   {}

// Options configures a Dispatcher. Nil fields get defaults.
type Options struct {
	Logger   *slog.Logger
	Observer Observer
}

// BindingState is a point-in-time view of one binding and its aggregators.
type BindingState struct {
	Name        string
	Scope       Scope
	Function    string
	Policy      Policy
	Threshold   int
	Window      time.Duration
	Throttle    time.Duration
	Aggregators []AggregatorState
}

type boundTrigger struct {
	Binding
	registry *AggregatorRegistry
}

// Dispatcher routes failures to the aggregators of every interested binding
// and calls the handlers of the bindings that fire.
type Dispatcher struct {
	logger   *slog.Logger
	observer Observer
	bindings []*boundTrigger
}

type firing struct {
	trigger *boundTrigger
	filter  TraceFilter
}

// NewDispatcher validates the bindings and returns a dispatcher for them.
// Binding names must be unique.
func NewDispatcher(bindings []Binding, opts Options) (*Dispatcher, error) {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Observer == nil {
		opts.Observer = NopObserver{}
	}

	d := &Dispatcher{
		logger:   opts.Logger,
		observer: opts.Observer,
	}
	seen := make(map[string]bool, len(bindings))
	for _, b := range bindings {
		if err := b.Validate(); err != nil {
			return nil, err
		}
		if seen[b.Name] {
			return nil, &ConfigurationError{Binding: b.Name, Field: "name", Reason: "is not unique"}
		}
		seen[b.Name] = true
		d.bindings = append(d.bindings, &boundTrigger{
			Binding:  b,
			registry: NewAggregatorRegistry(b.Config),
		})
	}
	return d, nil
}

// Notify reports a failed invocation of source.
func (d *Dispatcher) Notify(ctx context.Context, source string, ts time.Time, err error) error {
	ev, verr := NewFailureEvent(source, ts, err)
	if verr != nil {
		return verr
	}
	return d.OnFailure(ctx, ev)
}

// OnFailure records ev with every binding watching its source, then calls
// the handlers of the bindings that fired. Handlers run after the aggregator
// state has been reset; their errors are joined and returned.
func (d *Dispatcher) OnFailure(ctx context.Context, ev FailureEvent) error {
	if err := ev.Validate(); err != nil {
		return err
	}
	d.observer.Received(ev)

	var (
		fired []firing
		errs  []error
	)
	for _, t := range d.bindings {
		key, ok := t.key(ev.SourceID)
		if !ok {
			continue
		}
		decision := t.registry.Get(key).Record(ev)
		if !decision.Fired {
			d.logger.Debug("failure recorded", "binding", t.Name, "source", ev.SourceID, "key", key)
			continue
		}

		filter, err := NewTraceFilter(t.message(key), decision.Events)
		if err != nil {
			d.logger.Error("aborting fire", "binding", t.Name, "key", key, "err", err)
			errs = append(errs, fmt.Errorf("binding %s: %w", t.Name, err))
			continue
		}
		if decision.Throttled {
			d.observer.Throttled(t.Name, filter)
			d.logger.Debug("fire throttled", "binding", t.Name, "key", key, "traces", len(filter.Traces), "throttle", t.Config.Throttle)
			continue
		}
		fired = append(fired, firing{trigger: t, filter: filter})
	}

	for _, f := range fired {
		d.observer.Fired(f.trigger.Name, f.filter)
		d.logger.Info("error trigger fired", "binding", f.trigger.Name, "traces", len(f.filter.Traces), "message", f.filter.Message)
		if err := f.trigger.Handler(ctx, f.filter); err != nil {
			d.observer.HandlerFailed(f.trigger.Name, err)
			errs = append(errs, fmt.Errorf("binding %s handler: %w", f.trigger.Name, err))
		}
	}
	return errors.Join(errs...)
}

// Snapshot returns the state of every binding in configuration order.
func (d *Dispatcher) Snapshot() []BindingState {
	out := make([]BindingState, 0, len(d.bindings))
	for _, t := range d.bindings {
		out = append(out, BindingState{
			Name:        t.Name,
			Scope:       t.Scope,
			Function:    t.Function,
			Policy:      t.Policy(),
			Threshold:   t.Config.threshold(),
			Window:      t.Config.Window,
			Throttle:    t.Config.Throttle,
			Aggregators: t.registry.States(),
		})
	}
	return out
}
