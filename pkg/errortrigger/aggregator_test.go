package errortrigger

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var base = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func failureAt(source string, offset time.Duration) FailureEvent {
	return FailureEvent{
		Timestamp: base.Add(offset),
		SourceID:  source,
		Err:       errors.New("Kaboom!"),
	}
}

func TestRecordFiresInBatchesOfThreshold(t *testing.T) {
	agg := NewWindowAggregator(TriggerConfig{Threshold: 3})

	var batches [][]FailureEvent
	for i := 0; i < 10; i++ {
		d := agg.Record(failureAt("Throw", time.Duration(i)*time.Second))
		if d.Fired {
			batches = append(batches, d.Events)
			assert.Zero(t, agg.Len(), "nothing retained after a fire")
		}
	}

	require.Len(t, batches, 3)
	for i, batch := range batches {
		require.Len(t, batch, 3)
		assert.Equal(t, base.Add(time.Duration(i*3)*time.Second), batch[0].Timestamp)
	}
	assert.Equal(t, 1, agg.Len())
}

func TestRecordUnsetThresholdFiresOnEveryFailure(t *testing.T) {
	agg := NewWindowAggregator(TriggerConfig{})

	for i := 0; i < 5; i++ {
		d := agg.Record(failureAt("Throw", time.Duration(i)*time.Minute))
		require.True(t, d.Fired)
		require.Len(t, d.Events, 1)
		assert.Equal(t, base.Add(time.Duration(i)*time.Minute), d.Events[0].Timestamp)
	}
	assert.Equal(t, 5, agg.State("k").Fires)
}

func TestRecordWithoutWindowNeverExpires(t *testing.T) {
	agg := NewWindowAggregator(TriggerConfig{Threshold: 2})

	assert.False(t, agg.Record(failureAt("Throw", 0)).Fired)
	d := agg.Record(failureAt("Throw", 30*24*time.Hour))
	require.True(t, d.Fired)
	assert.Len(t, d.Events, 2)
}

func TestRecordTrimsFailuresOutsideWindow(t *testing.T) {
	agg := NewWindowAggregator(TriggerConfig{Window: 5 * time.Minute, Threshold: 3})

	assert.False(t, agg.Record(failureAt("Throw", 0)).Fired)
	assert.False(t, agg.Record(failureAt("Throw", time.Minute)).Fired)
	assert.False(t, agg.Record(failureAt("Throw", 7*time.Minute)).Fired)
	assert.Equal(t, 1, agg.Len(), "failures older than the window are dropped")

	assert.False(t, agg.Record(failureAt("Throw", 8*time.Minute)).Fired)
	d := agg.Record(failureAt("Throw", 9*time.Minute))
	require.True(t, d.Fired)
	require.Len(t, d.Events, 3)

	firedAt := d.Events[len(d.Events)-1].Timestamp
	for _, ev := range d.Events {
		assert.False(t, ev.Timestamp.Before(firedAt.Add(-5*time.Minute)), "event %s outside window", ev.Timestamp)
		assert.False(t, ev.Timestamp.After(firedAt))
	}
}

func TestRecordKeepsFailureOnWindowBoundary(t *testing.T) {
	agg := NewWindowAggregator(TriggerConfig{Window: 5 * time.Minute, Threshold: 2})

	agg.Record(failureAt("Throw", 0))
	d := agg.Record(failureAt("Throw", 5*time.Minute))
	require.True(t, d.Fired)
	assert.Len(t, d.Events, 2)
}

func TestRecordAfterFireBehavesLikeFreshAggregator(t *testing.T) {
	cfg := TriggerConfig{Window: time.Minute, Threshold: 2}
	used := NewWindowAggregator(cfg)
	used.Record(failureAt("Throw", 0))
	require.True(t, used.Record(failureAt("Throw", time.Second)).Fired)

	fresh := NewWindowAggregator(cfg)
	for i := 0; i < 4; i++ {
		ev := failureAt("Throw", time.Duration(10+i)*time.Second)
		got, want := used.Record(ev), fresh.Record(ev)
		assert.Equal(t, want.Fired, got.Fired, "record %d", i)
		assert.Equal(t, want.Events, got.Events, "record %d", i)
	}
}

func TestRecordOrdersLateFailures(t *testing.T) {
	agg := NewWindowAggregator(TriggerConfig{Threshold: 3})

	agg.Record(failureAt("Throw", 2*time.Minute))
	agg.Record(failureAt("Throw", 0))
	d := agg.Record(failureAt("Throw", time.Minute))
	require.True(t, d.Fired)
	require.Len(t, d.Events, 3)
	for i, ev := range d.Events {
		assert.Equal(t, base.Add(time.Duration(i)*time.Minute), ev.Timestamp)
	}
}

func TestRecordDropsLateFailureOutsideWindow(t *testing.T) {
	agg := NewWindowAggregator(TriggerConfig{Window: 5 * time.Minute, Threshold: 5})

	agg.Record(failureAt("Throw", 10*time.Minute))
	agg.Record(failureAt("Throw", 0))
	assert.Equal(t, 1, agg.Len())

	st := agg.State("Throw")
	assert.Equal(t, base.Add(10*time.Minute), st.Oldest)
	assert.Equal(t, base.Add(10*time.Minute), st.Newest)
}

func TestRecordThrottlesFiresWithinThrottlePeriod(t *testing.T) {
	agg := NewWindowAggregator(TriggerConfig{Throttle: time.Hour})

	first := agg.Record(failureAt("Throw", 0))
	require.True(t, first.Fired)
	assert.False(t, first.Throttled)

	second := agg.Record(failureAt("Throw", 10*time.Minute))
	require.True(t, second.Fired)
	assert.True(t, second.Throttled)
	assert.Zero(t, agg.Len(), "throttled fires still reset")

	third := agg.Record(failureAt("Throw", 61*time.Minute))
	require.True(t, third.Fired)
	assert.False(t, third.Throttled)

	st := agg.State("Throw")
	assert.Equal(t, 3, st.Fires)
	assert.Equal(t, 1, st.Throttled)
	assert.Equal(t, base.Add(61*time.Minute), st.LastFired)
}

func TestAggregatorState(t *testing.T) {
	agg := NewWindowAggregator(TriggerConfig{Threshold: 10})
	for i := 0; i < 3; i++ {
		agg.Record(failureAt(fmt.Sprintf("fn-%d", i), time.Duration(i)*time.Second))
	}

	st := agg.State("*")
	assert.Equal(t, AggregatorState{
		Key:      "*",
		Retained: 3,
		Oldest:   base,
		Newest:   base.Add(2 * time.Second),
	}, st)
}
