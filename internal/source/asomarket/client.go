// Package asomarket reads app metadata and reviews through the ASO market
// proxy API.
package asomarket

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/tidwall/gjson"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/storelens/reviewgateway/internal/domain"
	"github.com/storelens/reviewgateway/internal/source"
	"github.com/storelens/reviewgateway/pkg/httpclient"
	"github.com/storelens/reviewgateway/pkg/httputil"
	"github.com/storelens/reviewgateway/pkg/tracing"
)

// Name identifies this source in review ids, logs and metrics.
const Name = "asomarket"

// Config holds the proxy endpoint and credentials.
type Config struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

// Client talks to the ASO market proxy.
type Client struct {
	http   httpclient.Doer
	cfg    Config
	logger *slog.Logger
	tracer trace.Tracer
	now    func() time.Time
}

var _ source.Client = (*Client)(nil)

// NewClient creates an ASO market source over the given HTTP doer.
func NewClient(doer httpclient.Doer, cfg Config, logger *slog.Logger) *Client {
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	return &Client{
		http:   doer,
		cfg:    cfg,
		logger: logger.With(slog.String("source", Name)),
		tracer: tracing.Tracer("source/asomarket"),
		now:    time.Now,
	}
}

// Name returns the source name.
func (c *Client) Name() string { return Name }

// FetchMetadata fetches the app record.
func (c *Client) FetchMetadata(ctx context.Context, appID, country string) (meta *domain.AppMetadata, err error) {
	ctx, span := tracing.StartClient(ctx, c.tracer, "asomarket.app", attribute.String("app_id", appID))
	defer func() {
		source.ObserveFetch(Name, source.OpMetadata, err)
		tracing.End(span, err)
	}()

	q := url.Values{}
	q.Set("country", country)
	body, err := c.get(ctx, fmt.Sprintf("%s/apps/%s?%s", c.cfg.BaseURL, url.PathEscape(appID), q.Encode()))
	if err != nil {
		return nil, err
	}
	return decodeApp(body, appID, c.now())
}

// FetchReviews fetches the most recent reviews. Failures are logged and
// yield an empty list.
func (c *Client) FetchReviews(ctx context.Context, appID string, limit int, country string) []domain.Review {
	ctx, span := tracing.StartClient(ctx, c.tracer, "asomarket.reviews",
		attribute.String("app_id", appID),
		attribute.Int("limit", limit),
	)

	q := url.Values{}
	q.Set("sort", "most_recent")
	q.Set("limit", strconv.Itoa(limit))
	q.Set("country", country)

	reviews, err := c.fetchReviews(ctx, fmt.Sprintf("%s/apps/%s/reviews?%s", c.cfg.BaseURL, url.PathEscape(appID), q.Encode()), appID, limit)
	source.ObserveFetch(Name, source.OpReviews, err)
	tracing.End(span, err)
	if err != nil {
		c.logger.WarnContext(ctx, "failed to fetch reviews",
			slog.String("app_id", appID),
			slog.String("error", err.Error()),
		)
		return []domain.Review{}
	}
	return reviews
}

// FetchBoth fetches metadata and reviews concurrently.
func (c *Client) FetchBoth(ctx context.Context, appID string, limit int, country string) (*domain.AppMetadata, []domain.Review, error) {
	return source.FetchBoth(ctx,
		func(ctx context.Context) (*domain.AppMetadata, error) { return c.FetchMetadata(ctx, appID, country) },
		func(ctx context.Context) []domain.Review { return c.FetchReviews(ctx, appID, limit, country) },
	)
}

func (c *Client) fetchReviews(ctx context.Context, rawURL, appID string, limit int) ([]domain.Review, error) {
	body, err := c.get(ctx, rawURL)
	if err != nil {
		return nil, err
	}
	return decodeReviews(body, appID, limit)
}

func (c *Client) get(ctx context.Context, rawURL string) ([]byte, error) {
	if c.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.cfg.Timeout)
		defer cancel()
	}

	var header http.Header
	if c.cfg.APIKey != "" {
		header = http.Header{"X-API-Key": []string{c.cfg.APIKey}}
	}
	return source.GetJSON(ctx, c.http, Name, rawURL, header)
}

func malformed(reason string) *domain.UpstreamError {
	return &domain.UpstreamError{Source: Name, Reason: reason}
}

func decodeApp(body []byte, appID string, now time.Time) (*domain.AppMetadata, error) {
	if !gjson.ValidBytes(body) {
		return nil, malformed("app response is not valid JSON")
	}
	app := gjson.GetBytes(body, "app")
	if !app.IsObject() {
		return nil, malformed("app not found")
	}

	name := app.Get("name").String()
	if name == "" {
		name = domain.UnknownAppName
	}
	return &domain.AppMetadata{
		AppID:       appID,
		Name:        name,
		Rating:      app.Get("rating").Float(),
		RatingCount: nonNegative(app.Get("rating_count").Int()),
		ReviewCount: nonNegative(app.Get("review_count").Int()),
		URL:         domain.StoreURL(appID),
		Platform:    domain.Platform,
		LastUpdated: now.UTC().Format(httputil.ISO8601),
		Screenshots: &domain.Screenshots{
			IPhone:  stringList(app.Get("screenshots.iphone")),
			IPad:    stringList(app.Get("screenshots.ipad")),
			AppleTV: stringList(app.Get("screenshots.appletv")),
		},
	}, nil
}

func decodeReviews(body []byte, appID string, limit int) ([]domain.Review, error) {
	if !gjson.ValidBytes(body) {
		return nil, malformed("reviews response is not valid JSON")
	}
	list := gjson.GetBytes(body, "reviews")
	if !list.IsArray() {
		return nil, malformed("reviews response has no reviews array")
	}

	items := list.Array()
	if len(items) > limit {
		items = items[:limit]
	}
	reviews := make([]domain.Review, 0, len(items))
	for _, r := range items {
		author := r.Get("author").String()
		if author == "" {
			author = domain.AnonymousAuthor
		}
		rating := r.Get("rating").Int()
		if rating < 1 || rating > 5 {
			rating = 0
		}
		reviews = append(reviews, domain.Review{
			ID:           domain.ReviewID(appID, Name, len(reviews)),
			Rating:       int(rating),
			Title:        r.Get("title").String(),
			Content:      r.Get("content").String(),
			Author:       author,
			Date:         r.Get("date").String(),
			HelpfulVotes: nonNegative(r.Get("helpful_votes").Int()),
			AppID:        appID,
		})
	}
	return reviews, nil
}

func nonNegative(n int64) int {
	if n < 0 {
		return 0
	}
	return int(n)
}

func stringList(v gjson.Result) []string {
	out := []string{}
	for _, s := range v.Array() {
		if str := s.String(); str != "" {
			out = append(out, str)
		}
	}
	return out
}
