package service

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"EmergencyMap-App/internal/domain/model"
)

func TestConnectivityMonitor_EmitsOnlyOnTransitions(t *testing.T) {
	bus := NewEventBus()
	events := recordEvents(bus)
	monitor := NewConnectivityMonitor(bus, zaptest.NewLogger(t), "")

	assert.False(t, monitor.IsOffline())

	monitor.SetOnline(true)
	monitor.SetOnline(false)
	monitor.SetOnline(false)
	monitor.SetOnline(true)

	changes := events.ofKind(model.EventConnectionChanged)
	require.Len(t, changes, 2)
	assert.False(t, changes[0].(model.ConnectionChanged).Online)
	assert.True(t, changes[1].(model.ConnectionChanged).Online)
	assert.False(t, monitor.IsOffline())
}

func TestConnectivityMonitor_Probe(t *testing.T) {
	var status atomic.Int32
	status.Store(http.StatusOK)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(int(status.Load()))
	}))

	monitor := NewConnectivityMonitor(NewEventBus(), zaptest.NewLogger(t), server.URL)
	monitor.client = server.Client()

	assert.True(t, monitor.Probe(context.Background()))

	status.Store(http.StatusServiceUnavailable)
	assert.False(t, monitor.Probe(context.Background()))
	assert.True(t, monitor.IsOffline())

	server.Close()
	assert.False(t, monitor.Probe(context.Background()))
}
