package app

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/storelens/reviewgateway/internal/config"
	"github.com/storelens/reviewgateway/internal/source/appstore"
	"github.com/storelens/reviewgateway/internal/source/asomarket"
	"github.com/storelens/reviewgateway/pkg/logger"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg, err := config.Load()
	require.NoError(t, err)
	cfg.ServiceName = "reviewgw-app-test"
	return cfg
}

func TestNewSource_SelectsConfiguredSource(t *testing.T) {
	cfg := testConfig(t)

	src, breaker := NewSource(cfg, logger.Discard())
	assert.Equal(t, appstore.Name, src.Name())
	assert.NotNil(t, breaker)

	cfg.ReviewSource = config.SourceASOMarket
	cfg.CircuitBreakerEnabled = false
	src, breaker = NewSource(cfg, logger.Discard())
	assert.Equal(t, asomarket.Name, src.Name())
	assert.Nil(t, breaker)
}

func TestApp_ServesHealthAndReadiness(t *testing.T) {
	application, err := NewApp(testConfig(t), logger.Discard())
	require.NoError(t, err)
	t.Cleanup(func() { _ = application.Shutdown() })

	assert.Equal(t, appstore.Name, application.Service().SourceName())

	rr := httptest.NewRecorder()
	application.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, rr.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Equal(t, "healthy", body["status"])
	assert.Equal(t, "reviewgw-app-test", body["service"])

	rr = httptest.NewRecorder()
	application.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Equal(t, "up", body["status"])
}

func TestApp_RunStopsOnCancel(t *testing.T) {
	cfg := testConfig(t)
	cfg.HTTPPort = 38471

	application, err := NewApp(cfg, logger.Discard())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- application.Run(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestHandlerTimeout_CoversEveryBatchWave(t *testing.T) {
	tests := []struct {
		name        string
		concurrency int
		timeoutMS   int
		want        time.Duration
	}{
		{"default five per wave", 5, 10000, 51 * time.Second},
		{"one at a time", 1, 100, 2100 * time.Millisecond + time.Second},
		{"whole batch at once", 20, 1000, 3 * time.Second},
		{"more workers than apps", 50, 1000, 3 * time.Second},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig(t)
			cfg.BatchConcurrency = tt.concurrency
			cfg.RequestTimeoutMS = tt.timeoutMS
			assert.Equal(t, tt.want, HandlerTimeout(cfg))
		})
	}
}
