// Package appstore reads app metadata from the iTunes lookup API and reviews
// from the App Store customer reviews RSS feeds.
package appstore

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/storelens/reviewgateway/internal/domain"
	"github.com/storelens/reviewgateway/internal/source"
	"github.com/storelens/reviewgateway/pkg/httpclient"
	"github.com/storelens/reviewgateway/pkg/tracing"
)

// Name identifies this source in review ids, logs and metrics.
const Name = "appstore"

// Config holds the App Store endpoints and collection strategy.
type Config struct {
	LookupURL string
	RSSURL    string
	Strategy  domain.Strategy
	Timeout   time.Duration
}

// Client talks to the App Store directly.
type Client struct {
	http   httpclient.Doer
	cfg    Config
	logger *slog.Logger
	tracer trace.Tracer
	now    func() time.Time
}

var _ source.Client = (*Client)(nil)

// NewClient creates an App Store source over the given HTTP doer.
func NewClient(doer httpclient.Doer, cfg Config, logger *slog.Logger) *Client {
	cfg.LookupURL = strings.TrimRight(cfg.LookupURL, "/")
	cfg.RSSURL = strings.TrimRight(cfg.RSSURL, "/")
	if cfg.Strategy == "" {
		cfg.Strategy = domain.StrategyMultiSort
	}
	return &Client{
		http:   doer,
		cfg:    cfg,
		logger: logger.With(slog.String("source", Name)),
		tracer: tracing.Tracer("source/appstore"),
		now:    time.Now,
	}
}

// Name returns the source name.
func (c *Client) Name() string { return Name }

// FetchMetadata looks the app up in the given storefront.
func (c *Client) FetchMetadata(ctx context.Context, appID, country string) (meta *domain.AppMetadata, err error) {
	ctx, span := tracing.StartClient(ctx, c.tracer, "appstore.lookup", attribute.String("app_id", appID))
	defer func() {
		source.ObserveFetch(Name, source.OpMetadata, err)
		tracing.End(span, err)
	}()

	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	q := url.Values{}
	q.Set("id", appID)
	q.Set("country", country)
	body, err := source.GetJSON(ctx, c.http, Name, c.cfg.LookupURL+"/lookup?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}
	return decodeLookup(body, appID, c.now())
}

// FetchReviews collects reviews with the configured strategy. Failures are
// logged and never returned.
func (c *Client) FetchReviews(ctx context.Context, appID string, limit int, country string) []domain.Review {
	ctx, span := tracing.StartClient(ctx, c.tracer, "appstore.reviews",
		attribute.String("app_id", appID),
		attribute.String("strategy", string(c.cfg.Strategy)),
		attribute.Int("limit", limit),
	)
	defer span.End()

	var entries []feedEntry
	if c.cfg.Strategy == domain.StrategySingleSort {
		feed, err := c.fetchFeed(ctx, appID, country, domain.SortMostRecent)
		source.ObserveFetch(Name, source.OpReviews, err)
		if err != nil {
			c.logger.WarnContext(ctx, "failed to fetch reviews",
				slog.String("app_id", appID),
				slog.String("sort", string(domain.SortMostRecent)),
				slog.String("error", err.Error()),
			)
			return []domain.Review{}
		}
		entries = feed
	} else {
		entries = mergeFeeds(c.fetchAllFeeds(ctx, appID, country))
	}

	reviews := toReviews(entries, appID, limit)
	span.SetAttributes(attribute.Int("review_count", len(reviews)))
	return reviews
}

// FetchBoth fetches metadata and reviews concurrently.
func (c *Client) FetchBoth(ctx context.Context, appID string, limit int, country string) (*domain.AppMetadata, []domain.Review, error) {
	return source.FetchBoth(ctx,
		func(ctx context.Context) (*domain.AppMetadata, error) { return c.FetchMetadata(ctx, appID, country) },
		func(ctx context.Context) []domain.Review { return c.FetchReviews(ctx, appID, limit, country) },
	)
}

// fetchAllFeeds requests every sort order concurrently. Each slot holds the
// feed for the matching entry of domain.SortOrders; failed orders stay empty.
func (c *Client) fetchAllFeeds(ctx context.Context, appID, country string) [][]feedEntry {
	feeds := make([][]feedEntry, len(domain.SortOrders))

	var g errgroup.Group
	for i, order := range domain.SortOrders {
		g.Go(func() error {
			feed, err := c.fetchFeed(ctx, appID, country, order)
			source.ObserveFetch(Name, source.OpReviews, err)
			if err != nil {
				c.logger.WarnContext(ctx, "failed to fetch review feed, skipping",
					slog.String("app_id", appID),
					slog.String("sort", string(order)),
					slog.String("error", err.Error()),
				)
				return nil
			}
			feeds[i] = feed
			return nil
		})
	}
	_ = g.Wait()

	return feeds
}

func (c *Client) fetchFeed(ctx context.Context, appID, country string, order domain.SortOrder) ([]feedEntry, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	body, err := source.GetJSON(ctx, c.http, Name, c.feedURL(appID, country, order), nil)
	if err != nil {
		return nil, err
	}
	entries, err := decodeFeed(body)
	if err != nil {
		return nil, fmt.Errorf("decode %s feed: %w", order, err)
	}
	return entries, nil
}

func (c *Client) feedURL(appID, country string, order domain.SortOrder) string {
	return fmt.Sprintf("%s/%s/rss/customerreviews/page=1/id=%s/sortby=%s/json",
		c.cfg.RSSURL, url.PathEscape(country), url.PathEscape(appID), order)
}

func (c *Client) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.cfg.Timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, c.cfg.Timeout)
}
