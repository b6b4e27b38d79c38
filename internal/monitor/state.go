package monitor

import (
	"time"

	"github.com/venkytv/nats-errortrigger/pkg/errortrigger"
)

// Status is the document served on the status endpoint.
type Status struct {
	ObservedAt time.Time       `json:"observed_at"`
	Bindings   []BindingStatus `json:"bindings"`
}

type BindingStatus struct {
	Name        string             `json:"name"`
	Scope       string             `json:"scope"`
	Function    string             `json:"function,omitempty"`
	Policy      string             `json:"policy"`
	Threshold   int                `json:"threshold"`
	Window      string             `json:"window,omitempty"`
	Throttle    string             `json:"throttle,omitempty"`
	Aggregators []AggregatorStatus `json:"aggregators"`
}

type AggregatorStatus struct {
	Key       string     `json:"key"`
	Retained  int        `json:"retained"`
	Oldest    *time.Time `json:"oldest,omitempty"`
	Newest    *time.Time `json:"newest,omitempty"`
	Fires     int        `json:"fires"`
	Throttled int        `json:"throttled,omitempty"`
	LastFired *time.Time `json:"last_fired,omitempty"`
}

func (m *Monitor) snapshot(now time.Time) Status {
	states := m.dispatcher.Snapshot()
	out := Status{
		ObservedAt: now,
		Bindings:   make([]BindingStatus, 0, len(states)),
	}
	for _, st := range states {
		b := BindingStatus{
			Name:        st.Name,
			Scope:       string(st.Scope),
			Function:    st.Function,
			Policy:      st.Policy.String(),
			Threshold:   st.Threshold,
			Aggregators: make([]AggregatorStatus, 0, len(st.Aggregators)),
		}
		if st.Window > 0 {
			b.Window = errortrigger.FormatWindow(st.Window)
		}
		if st.Throttle > 0 {
			b.Throttle = errortrigger.FormatWindow(st.Throttle)
		}
		for _, agg := range st.Aggregators {
			b.Aggregators = append(b.Aggregators, AggregatorStatus{
				Key:       agg.Key,
				Retained:  agg.Retained,
				Oldest:    timeOrNil(agg.Oldest),
				Newest:    timeOrNil(agg.Newest),
				Fires:     agg.Fires,
				Throttled: agg.Throttled,
				LastFired: timeOrNil(agg.LastFired),
			})
		}
		out.Bindings = append(out.Bindings, b)
	}
	return out
}

func timeOrNil(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
