package source

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/storelens/reviewgateway/internal/domain"
	"github.com/storelens/reviewgateway/pkg/httpclient"
	"github.com/storelens/reviewgateway/pkg/logger"
)

func TestGetJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "secret", r.Header.Get("X-API-Key"))
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	body, err := GetJSON(context.Background(), httpclient.New(httpclient.DefaultConfig("test")), "test",
		srv.URL, http.Header{"X-API-Key": []string{"secret"}})

	require.NoError(t, err)
	assert.JSONEq(t, `{"ok":true}`, string(body))
}

func TestGetJSON_StatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	_, err := GetJSON(context.Background(), httpclient.New(httpclient.DefaultConfig("test")), "test", srv.URL, nil)

	var ue *domain.UpstreamError
	require.ErrorAs(t, err, &ue)
	assert.Equal(t, http.StatusTooManyRequests, ue.Status)
	assert.Equal(t, "test", ue.Source)
}

func TestGetJSON_CircuitBreaker(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	cbCfg := httpclient.DefaultCircuitBreakerConfig("source-test")
	cbCfg.MinRequests = 2
	cbCfg.Timeout = time.Minute
	doer := httpclient.NewCircuitBreakerClient(httpclient.New(httpclient.DefaultConfig("source-test")), cbCfg, logger.Discard())

	for i := 0; i < 2; i++ {
		_, err := GetJSON(context.Background(), doer, "test", srv.URL, nil)
		var ue *domain.UpstreamError
		require.ErrorAs(t, err, &ue)
		assert.Equal(t, http.StatusServiceUnavailable, ue.Status)
	}

	_, err := GetJSON(context.Background(), doer, "test", srv.URL, nil)
	var ue *domain.UpstreamError
	require.ErrorAs(t, err, &ue)
	assert.Equal(t, "circuit breaker is open", ue.Reason)
	assert.ErrorIs(t, err, httpclient.ErrCircuitOpen)
	assert.Equal(t, int32(2), calls.Load())
}

func TestFetchBoth(t *testing.T) {
	meta := &domain.AppMetadata{AppID: "1", Name: "App"}

	t.Run("both succeed", func(t *testing.T) {
		m, reviews, err := FetchBoth(context.Background(),
			func(context.Context) (*domain.AppMetadata, error) { return meta, nil },
			func(context.Context) []domain.Review { return []domain.Review{{ID: "1_x_0"}} },
		)
		require.NoError(t, err)
		assert.Same(t, meta, m)
		assert.Len(t, reviews, 1)
	})

	t.Run("nil reviews become empty", func(t *testing.T) {
		_, reviews, err := FetchBoth(context.Background(),
			func(context.Context) (*domain.AppMetadata, error) { return meta, nil },
			func(context.Context) []domain.Review { return nil },
		)
		require.NoError(t, err)
		assert.NotNil(t, reviews)
	})

	t.Run("metadata failure cancels reviews", func(t *testing.T) {
		upstream := &domain.UpstreamError{Source: "x", Status: 500, Reason: "boom"}
		_, _, err := FetchBoth(context.Background(),
			func(context.Context) (*domain.AppMetadata, error) { return nil, upstream },
			func(ctx context.Context) []domain.Review {
				<-ctx.Done()
				return nil
			},
		)
		require.Error(t, err)
		assert.True(t, errors.Is(err, upstream))
		assert.Contains(t, err.Error(), "fetch metadata")
	})
}
