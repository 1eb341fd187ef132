package network

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"downpour/app/config"
	"downpour/app/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *logger.Logger {
	return logger.New(config.LogConfig{Level: "error", Format: "text", Output: "stdout"})
}

func newTestMonitor(t *testing.T, endpoints []string) *Monitor {
	t.Helper()
	return NewMonitor(config.NetworkConfig{
		ProbeEndpoints:       endpoints,
		ProbeTimeoutSeconds:  2,
		CheckIntervalSeconds: 60,
	}, testLogger())
}

func TestVerifyReachableEndpoint(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	m := newTestMonitor(t, []string{srv.URL})
	defer m.Stop()

	assert.True(t, m.Verify(context.Background()))

	status := m.Status()
	assert.True(t, status.IsConnected)
	assert.NotEmpty(t, status.EffectiveType)
	assert.False(t, status.LastChecked.IsZero())
}

func TestVerifyFallsThroughToNextEndpoint(t *testing.T) {
	var good atomic.Int32
	bad := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer bad.Close()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		good.Add(1)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	m := newTestMonitor(t, []string{bad.URL, srv.URL})
	defer m.Stop()

	assert.True(t, m.Verify(context.Background()))
	assert.Equal(t, int32(1), good.Load(), "second endpoint answered the probe")
}

func TestVerifyAllEndpointsFail(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	srv.Close() // probes get connection refused

	m := newTestMonitor(t, []string{srv.URL, srv.URL})
	defer m.Stop()

	assert.False(t, m.Verify(context.Background()))
	assert.False(t, m.Status().IsConnected)
}

func TestOfflineToOnlineTriggersReverify(t *testing.T) {
	var probes atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		probes.Add(1)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	m := newTestMonitor(t, []string{srv.URL})
	defer m.Stop()

	m.SetOnline(false)
	assert.False(t, m.Status().IsConnected, "going offline clears connected")
	assert.False(t, m.Status().IsOnline)

	m.SetOnline(true)
	require.Eventually(t, func() bool {
		return probes.Load() >= 1 && m.Status().IsConnected
	}, 2*time.Second, 10*time.Millisecond, "online transition re-verifies")
}

func TestDegradedIsDerived(t *testing.T) {
	tests := []struct {
		name   string
		status Status
		want   bool
	}{
		{"fast link", Status{IsOnline: true, IsConnected: true, EffectiveType: "4g"}, false},
		{"slow link", Status{IsOnline: true, IsConnected: true, EffectiveType: "2g"}, true},
		{"slowest link", Status{IsOnline: true, IsConnected: true, EffectiveType: "slow-2g"}, true},
		{"slow but unreachable", Status{IsOnline: true, IsConnected: false, EffectiveType: "2g"}, false},
		{"slow but offline", Status{IsOnline: false, IsConnected: false, EffectiveType: "2g"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.status.Degraded())
		})
	}
}

func TestOnChangeNotification(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	m := newTestMonitor(t, []string{srv.URL})
	defer m.Stop()

	changes := make(chan Status, 4)
	m.SetOnChange(func(s Status) { changes <- s })

	m.Verify(context.Background())

	select {
	case s := <-changes:
		assert.True(t, s.IsConnected)
	case <-time.After(time.Second):
		t.Fatal("expected a change notification")
	}
}
