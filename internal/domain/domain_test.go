package domain

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	apperrors "github.com/storelens/reviewgateway/pkg/errors"
)

func TestReviewID(t *testing.T) {
	assert.Equal(t, "284882215_appstore_0", ReviewID("284882215", "appstore", 0))
	assert.Equal(t, "1_asomarket_12", ReviewID("1", "asomarket", 12))
}

func TestStoreURL(t *testing.T) {
	assert.Equal(t, "https://apps.apple.com/app/id284882215", StoreURL("284882215"))
}

func TestReview_ParsedDate(t *testing.T) {
	tests := []struct {
		date string
		want time.Time
		ok   bool
	}{
		{"2024-03-01T10:00:00-07:00", time.Date(2024, 3, 1, 17, 0, 0, 0, time.UTC), true},
		{"2024-03-01T10:00:00Z", time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC), true},
		{"2024-03-01", time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), true},
		{"yesterday", time.Time{}, false},
		{"", time.Time{}, false},
	}

	for _, tc := range tests {
		t.Run(tc.date, func(t *testing.T) {
			got, ok := Review{Date: tc.date}.ParsedDate()
			assert.Equal(t, tc.ok, ok)
			assert.True(t, tc.want.Equal(got), "got %v", got)
		})
	}
}

func TestParseStrategy(t *testing.T) {
	assert.Equal(t, StrategySingleSort, ParseStrategy("single_sort"))
	assert.Equal(t, StrategyMultiSort, ParseStrategy("multi_sort"))
	assert.Equal(t, StrategyMultiSort, ParseStrategy(""))
}

func TestUpstreamError(t *testing.T) {
	err := &UpstreamError{Source: "appstore", Status: 503, Reason: "lookup failed"}
	assert.Equal(t, "appstore upstream: status 503: lookup failed", err.Error())
	assert.ErrorIs(t, err, apperrors.ErrUpstream)

	wrapped := &UpstreamError{Source: "asomarket", Reason: "request failed", Err: context.DeadlineExceeded}
	assert.Equal(t, "asomarket upstream: request failed", wrapped.Error())
	assert.ErrorIs(t, wrapped, context.DeadlineExceeded)
	assert.True(t, apperrors.IsTimeout(wrapped))

	var ue *UpstreamError
	assert.True(t, errors.As(fmt.Errorf("fetch metadata: %w", wrapped), &ue))
	assert.Equal(t, 500, apperrors.HTTPStatus(wrapped))
}
