package probe

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProbeSuccess(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	prober := NewHTTPProber(server.URL, 2*time.Second, false)
	outcome := prober.Probe(context.Background())

	assert.True(t, outcome.Success)
	assert.Equal(t, http.StatusOK, outcome.StatusCode)
	require.NotNil(t, outcome.LatencyMs)
	assert.Greater(t, *outcome.LatencyMs, float64(0))
}

func TestProbeNon2xxIsFailure(t *testing.T) {
	tests := []struct {
		name string
		code int
	}{
		{"server error", http.StatusInternalServerError},
		{"service unavailable", http.StatusServiceUnavailable},
		{"not found is not success", http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.code)
			}))
			defer server.Close()

			outcome := NewHTTPProber(server.URL, 2*time.Second, false).Probe(context.Background())
			assert.False(t, outcome.Success)
			assert.Nil(t, outcome.LatencyMs)
			assert.Equal(t, tt.code, outcome.StatusCode)
			assert.NotEmpty(t, outcome.Reason)
		})
	}
}

func TestProbeTimeoutIsFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer server.Close()

	outcome := NewHTTPProber(server.URL, 20*time.Millisecond, false).Probe(context.Background())
	assert.False(t, outcome.Success)
	assert.Nil(t, outcome.LatencyMs)
	assert.NotEmpty(t, outcome.Reason)
}

func TestProbeConnectionErrorIsFailure(t *testing.T) {
	// closed server, connection refused
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	outcome := NewHTTPProber(url, time.Second, false).Probe(context.Background())
	assert.False(t, outcome.Success)
	assert.NotEmpty(t, outcome.Reason)
}
