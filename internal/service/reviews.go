package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/storelens/reviewgateway/internal/domain"
	"github.com/storelens/reviewgateway/internal/source"
	"github.com/storelens/reviewgateway/pkg/httputil"
	"github.com/storelens/reviewgateway/pkg/logger"
)

// ReviewService aggregates reviews for one or more apps from a source.
type ReviewService struct {
	source           source.Client
	batchConcurrency int
	logger           *slog.Logger
	now              func() time.Time
}

// NewReviewService creates a review service. batchConcurrency bounds how many
// apps of a batch are fetched at once.
func NewReviewService(src source.Client, batchConcurrency int, logger *slog.Logger) *ReviewService {
	if batchConcurrency < 1 {
		batchConcurrency = 1
	}
	return &ReviewService{
		source:           src,
		batchConcurrency: batchConcurrency,
		logger:           logger,
		now:              time.Now,
	}
}

// SourceName returns the name of the configured upstream source.
func (s *ReviewService) SourceName() string {
	return s.source.Name()
}

// GetReviews aggregates reviews for a single app. A metadata failure fails
// the request; review failures only shrink the result.
func (s *ReviewService) GetReviews(ctx context.Context, q domain.Query) (*domain.AggregationResult, error) {
	ctx = logger.WithAppID(ctx, q.AppID)

	var (
		meta    *domain.AppMetadata
		reviews []domain.Review
	)
	if q.IncludeMetadata {
		var err error
		meta, reviews, err = s.source.FetchBoth(ctx, q.AppID, q.Limit, q.Country)
		if err != nil {
			return nil, fmt.Errorf("get reviews for app %s: %w", q.AppID, err)
		}
	} else {
		reviews = s.source.FetchReviews(ctx, q.AppID, q.Limit, q.Country)
	}

	result := buildResult(q.AppID, meta, reviews, q.Limit)
	result.Timestamp = s.timestamp()

	s.logger.InfoContext(ctx, "reviews aggregated",
		slog.String("app_id", q.AppID),
		slog.String("source", s.source.Name()),
		slog.Int("review_count", result.ReviewCount),
		slog.Bool("include_metadata", q.IncludeMetadata),
	)
	return &result, nil
}

// GetBatchReviews aggregates reviews for every app in q. Apps are fetched
// concurrently and isolated from each other: a failing app yields an empty
// review list and no metadata. Results keep the order of q.AppIDs.
func (s *ReviewService) GetBatchReviews(ctx context.Context, q domain.BatchQuery) (*domain.BatchResult, error) {
	results := make([]domain.AggregationResult, len(q.AppIDs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.batchConcurrency)
	for i, appID := range q.AppIDs {
		g.Go(func() error {
			// Slots not started before the deadline stay empty.
			if gctx.Err() != nil {
				results[i] = buildResult(appID, nil, nil, q.Limit)
				return nil
			}
			results[i] = s.fetchBatchSlot(gctx, appID, q)
			return nil
		})
	}
	_ = g.Wait()
	if err := ctx.Err(); err != nil {
		s.logger.WarnContext(ctx, "batch deadline reached, returning partial results",
			slog.Int("total_apps", len(results)),
			slog.String("error", err.Error()),
		)
	}

	successful := 0
	for _, r := range results {
		if r.ReviewCount > 0 {
			successful++
		}
	}

	s.logger.InfoContext(ctx, "batch reviews aggregated",
		slog.String("source", s.source.Name()),
		slog.Int("total_apps", len(results)),
		slog.Int("successful_apps", successful),
	)

	return &domain.BatchResult{
		Results:        results,
		TotalApps:      len(results),
		SuccessfulApps: successful,
		Timestamp:      s.timestamp(),
	}, nil
}

// fetchBatchSlot fetches one app of a batch. Metadata and reviews are
// fetched independently so a metadata failure keeps the reviews.
func (s *ReviewService) fetchBatchSlot(ctx context.Context, appID string, q domain.BatchQuery) domain.AggregationResult {
	ctx = logger.WithAppID(ctx, appID)

	if !q.IncludeMetadata {
		reviews := s.source.FetchReviews(ctx, appID, q.Limit, q.Country)
		return buildResult(appID, nil, reviews, q.Limit)
	}

	var (
		meta    *domain.AppMetadata
		reviews []domain.Review
		g       errgroup.Group
	)
	g.Go(func() error {
		m, err := s.source.FetchMetadata(ctx, appID, q.Country)
		if err != nil {
			s.logger.WarnContext(ctx, "metadata unavailable for batch app",
				slog.String("app_id", appID),
				slog.String("error", err.Error()),
			)
			return nil
		}
		meta = m
		return nil
	})
	g.Go(func() error {
		reviews = s.source.FetchReviews(ctx, appID, q.Limit, q.Country)
		return nil
	})
	_ = g.Wait()

	return buildResult(appID, meta, reviews, q.Limit)
}

func buildResult(appID string, meta *domain.AppMetadata, reviews []domain.Review, limit int) domain.AggregationResult {
	if reviews == nil {
		reviews = []domain.Review{}
	}
	if len(reviews) > limit {
		reviews = reviews[:limit]
	}
	return domain.AggregationResult{
		AppID:       appID,
		Metadata:    meta,
		Reviews:     reviews,
		ReviewCount: len(reviews),
	}
}

func (s *ReviewService) timestamp() string {
	return s.now().UTC().Format(httputil.ISO8601)
}
