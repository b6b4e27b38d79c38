package monitor

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/venkytv/nats-errortrigger/pkg/errortrigger"
)

func TestStatusEndpointServesSnapshot(t *testing.T) {
	c := &captured{}
	m, _ := newTestMonitor(t, errortrigger.Binding{
		Name:    "all-errors",
		Scope:   errortrigger.ScopeGlobal,
		Handler: c.handle,
	})
	require.NoError(t, m.dispatcher.Notify(context.Background(), "Program.Throw", base, assert.AnError))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	w := httptest.NewRecorder()
	m.router().ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

	var status Status
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &status))
	require.Len(t, status.Bindings, 1)
	assert.Equal(t, "all-errors", status.Bindings[0].Policy)
	assert.Equal(t, 1, status.Bindings[0].Threshold)
	require.Len(t, status.Bindings[0].Aggregators, 1)
	assert.Equal(t, 1, status.Bindings[0].Aggregators[0].Fires)
	require.NotNil(t, status.Bindings[0].Aggregators[0].LastFired)
	assert.True(t, status.Bindings[0].Aggregators[0].LastFired.Equal(base))
}

func TestMetricsEndpointExportsCounters(t *testing.T) {
	c := &captured{}
	m, _ := newTestMonitor(t, errortrigger.Binding{
		Name:    "all-errors",
		Scope:   errortrigger.ScopeGlobal,
		Handler: c.handle,
	})
	require.NoError(t, m.dispatcher.Notify(context.Background(), "Program.Throw", base, assert.AnError))

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	w := httptest.NewRecorder()
	m.router().ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `errortrigger_failures_total{source="Program.Throw"} 1`)
	assert.Contains(t, w.Body.String(), `errortrigger_fires_total{binding="all-errors"} 1`)
}

func TestHealthzAndMethodRouting(t *testing.T) {
	m, _ := newTestMonitor(t)

	w := httptest.NewRecorder()
	m.router().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	m.router().ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
}
