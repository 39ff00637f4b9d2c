package errors

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSentinelErrors_AreDistinct(t *testing.T) {
	sentinels := []error{
		ErrInvalidInput, ErrNotFound, ErrUpstream,
		ErrRateLimited, ErrInternal, ErrServiceUnavail,
	}

	for i := 0; i < len(sentinels); i++ {
		for j := i + 1; j < len(sentinels); j++ {
			assert.NotEqual(t, sentinels[i], sentinels[j],
				"sentinels %d and %d should be distinct", i, j)
		}
	}
}

func TestAppError_ErrorString_WithWrappedError(t *testing.T) {
	inner := fmt.Errorf("lookup returned 503")
	appErr := Internal("Failed to fetch reviews", inner)
	assert.Contains(t, appErr.Error(), "Internal server error")
	assert.Contains(t, appErr.Error(), "Failed to fetch reviews")
	assert.Contains(t, appErr.Error(), "lookup returned 503")
}

func TestAppError_ErrorString_WithoutWrappedError(t *testing.T) {
	appErr := &AppError{Code: "Not found", Message: "no such route"}
	assert.Equal(t, "Not found: no such route", appErr.Error())
}

func TestAppError_Unwrap(t *testing.T) {
	appErr := InvalidInput("app_id is required")
	assert.True(t, errors.Is(appErr, ErrInvalidInput))
	assert.Nil(t, (&AppError{Code: "X"}).Unwrap())
}

func TestInternal_NilErrDefaultsToSentinel(t *testing.T) {
	appErr := Internal("boom", nil)
	assert.ErrorIs(t, appErr, ErrInternal)
	assert.Equal(t, http.StatusInternalServerError, appErr.Status)
}

func TestConstructors_StatusCodes(t *testing.T) {
	tests := []struct {
		name   string
		err    *AppError
		status int
	}{
		{"invalid input", InvalidInput("bad"), http.StatusBadRequest},
		{"not found", NotFound("missing"), http.StatusNotFound},
		{"rate limited", RateLimited("slow down"), http.StatusTooManyRequests},
		{"internal", Internal("boom", errors.New("x")), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.NotNil(t, tt.err)
			assert.Equal(t, tt.status, tt.err.Status)
			assert.Equal(t, tt.status, HTTPStatus(tt.err))
		})
	}
}

func TestHTTPStatus_Sentinels(t *testing.T) {
	assert.Equal(t, http.StatusBadRequest, HTTPStatus(fmt.Errorf("parse: %w", ErrInvalidInput)))
	assert.Equal(t, http.StatusNotFound, HTTPStatus(fmt.Errorf("route: %w", ErrNotFound)))
	assert.Equal(t, http.StatusTooManyRequests, HTTPStatus(fmt.Errorf("ip: %w", ErrRateLimited)))
	assert.Equal(t, http.StatusServiceUnavailable, HTTPStatus(ErrServiceUnavail))
	assert.Equal(t, http.StatusInternalServerError, HTTPStatus(fmt.Errorf("lookup: %w", ErrUpstream)))
	assert.Equal(t, http.StatusInternalServerError, HTTPStatus(errors.New("unknown")))
}

func TestWrappedSentinel_PreservesChain(t *testing.T) {
	err := fmt.Errorf("fetch metadata: %w", ErrUpstream)
	assert.EqualError(t, err, "fetch metadata: upstream failure")
	assert.ErrorIs(t, err, ErrUpstream)
}

func TestIsTimeout(t *testing.T) {
	assert.True(t, IsTimeout(context.DeadlineExceeded))
	assert.True(t, IsTimeout(fmt.Errorf("get: %w", context.DeadlineExceeded)))
	assert.False(t, IsTimeout(errors.New("connection refused")))
	assert.False(t, IsTimeout(nil))
}
