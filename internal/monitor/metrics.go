package monitor

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/venkytv/nats-errortrigger/pkg/errortrigger"
)

// Metrics exports dispatcher activity to Prometheus. It is an
// errortrigger.Observer.
type Metrics struct {
	failures      *prometheus.CounterVec
	fires         *prometheus.CounterVec
	throttled     *prometheus.CounterVec
	handlerErrors *prometheus.CounterVec
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "errortrigger",
			Name:      "failures_total",
			Help:      "Failures received per source",
		}, []string{"source"}),
		fires: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "errortrigger",
			Name:      "fires_total",
			Help:      "Handler invocations per binding",
		}, []string{"binding"}),
		throttled: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "errortrigger",
			Name:      "throttled_total",
			Help:      "Fires suppressed by the binding throttle",
		}, []string{"binding"}),
		handlerErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "errortrigger",
			Name:      "handler_errors_total",
			Help:      "Handler invocations that returned an error",
		}, []string{"binding"}),
	}
	if reg == nil {
		return m
	}
	m.failures = register(reg, m.failures)
	m.fires = register(reg, m.fires)
	m.throttled = register(reg, m.throttled)
	m.handlerErrors = register(reg, m.handlerErrors)
	return m
}

func register(reg prometheus.Registerer, c *prometheus.CounterVec) *prometheus.CounterVec {
	if err := reg.Register(c); err != nil {
		var already prometheus.AlreadyRegisteredError
		if errors.As(err, &already) {
			if existing, ok := already.ExistingCollector.(*prometheus.CounterVec); ok {
				return existing
			}
		}
	}
	return c
}

func (m *Metrics) Received(ev errortrigger.FailureEvent) {
	m.failures.WithLabelValues(ev.SourceID).Inc()
}

func (m *Metrics) Fired(binding string, _ errortrigger.TraceFilter) {
	m.fires.WithLabelValues(binding).Inc()
}

func (m *Metrics) Throttled(binding string, _ errortrigger.TraceFilter) {
	m.throttled.WithLabelValues(binding).Inc()
}

func (m *Metrics) HandlerFailed(binding string, _ error) {
	m.handlerErrors.WithLabelValues(binding).Inc()
}
