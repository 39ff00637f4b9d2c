// Package source defines the contract every upstream review source fulfils,
// plus the HTTP and concurrency plumbing the concrete sources share.
package source

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"golang.org/x/sync/errgroup"

	"github.com/storelens/reviewgateway/internal/domain"
	"github.com/storelens/reviewgateway/pkg/httpclient"
)

// Client fetches app metadata and reviews from one upstream.
type Client interface {
	// Name identifies the source in review ids, logs and metrics.
	Name() string

	// FetchMetadata returns the app's metadata or a *domain.UpstreamError.
	FetchMetadata(ctx context.Context, appID, country string) (*domain.AppMetadata, error)

	// FetchReviews returns at most limit reviews, most recent first. Upstream
	// failures are logged and yield an empty list; it never fails.
	FetchReviews(ctx context.Context, appID string, limit int, country string) []domain.Review

	// FetchBoth fetches metadata and reviews concurrently. Only a metadata
	// failure is returned.
	FetchBoth(ctx context.Context, appID string, limit int, country string) (*domain.AppMetadata, []domain.Review, error)
}

var fetchTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "review_source_fetch_total",
		Help: "Upstream fetches by source, operation and outcome",
	},
	[]string{"source", "operation", "outcome"},
)

// Operations recorded by ObserveFetch.
const (
	OpMetadata = "metadata"
	OpReviews  = "reviews"
)

// ObserveFetch counts one upstream fetch.
func ObserveFetch(source, operation string, err error) {
	outcome := "success"
	if err != nil {
		outcome = "failure"
	}
	fetchTotal.WithLabelValues(source, operation, outcome).Inc()
}

// GetJSON performs a GET against url bounded by timeout and returns the
// decompressed body. Transport failures, non-2xx statuses and an open
// circuit are all reported as *domain.UpstreamError.
func GetJSON(ctx context.Context, doer httpclient.Doer, name, url string, header http.Header) ([]byte, error) {
	resp, err := httpclient.Get(ctx, doer, url, header)
	if err != nil {
		var statusErr *httpclient.StatusError
		if errors.As(err, &statusErr) {
			return nil, &domain.UpstreamError{Source: name, Status: statusErr.StatusCode, Reason: "unexpected status", Err: err}
		}
		reason := "request failed"
		if errors.Is(err, httpclient.ErrCircuitOpen) {
			reason = "circuit breaker is open"
		}
		return nil, &domain.UpstreamError{Source: name, Reason: reason, Err: err}
	}

	if err := httpclient.CheckResponse(resp, name); err != nil {
		return nil, &domain.UpstreamError{Source: name, Status: resp.StatusCode, Reason: "unexpected status", Err: err}
	}

	body, err := httpclient.ReadBody(resp)
	if err != nil {
		return nil, &domain.UpstreamError{Source: name, Status: resp.StatusCode, Reason: "unreadable body", Err: err}
	}
	return body, nil
}

// FetchBoth runs fetchMeta and fetchReviews concurrently. A metadata failure
// is wrapped and returned; fetchReviews is expected to absorb its own errors.
func FetchBoth(
	ctx context.Context,
	fetchMeta func(context.Context) (*domain.AppMetadata, error),
	fetchReviews func(context.Context) []domain.Review,
) (*domain.AppMetadata, []domain.Review, error) {
	var (
		meta    *domain.AppMetadata
		reviews []domain.Review
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		m, err := fetchMeta(gctx)
		if err != nil {
			return fmt.Errorf("fetch metadata: %w", err)
		}
		meta = m
		return nil
	})
	g.Go(func() error {
		reviews = fetchReviews(gctx)
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	if reviews == nil {
		reviews = []domain.Review{}
	}
	return meta, reviews, nil
}
