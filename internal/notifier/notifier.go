package notifier

import (
	"context"
	"log/slog"

	"github.com/venkytv/nats-errortrigger/pkg/errortrigger"
)

// Notifier delivers the filter of a fired binding to downstream channels.
type Notifier interface {
	Notify(ctx context.Context, binding string, filter errortrigger.TraceFilter) error
}

// Handler adapts n into the handler of the named binding.
func Handler(n Notifier, binding string) errortrigger.Handler {
	return func(ctx context.Context, filter errortrigger.TraceFilter) error {
		return n.Notify(ctx, binding, filter)
	}
}

// Nop is a no-op notifier useful in tests.
type Nop struct{}

func (Nop) Notify(_ context.Context, _ string, _ errortrigger.TraceFilter) error { return nil }

// Log writes fired filters to a logger.
type Log struct {
	Logger *slog.Logger
}

func (l Log) Notify(ctx context.Context, binding string, filter errortrigger.TraceFilter) error {
	logger := l.Logger
	if logger == nil {
		logger = slog.Default()
	}
	sources := make([]string, 0, len(filter.Traces))
	for _, ev := range filter.Traces {
		sources = append(sources, ev.SourceID)
	}
	logger.WarnContext(ctx, filter.Message, "binding", binding, "traces", len(filter.Traces), "sources", sources)
	return nil
}
