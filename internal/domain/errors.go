package domain

import (
	"fmt"

	apperrors "github.com/storelens/reviewgateway/pkg/errors"
)

// UpstreamError reports a failed call to an upstream source: a non-2xx
// status, an empty result set, a malformed payload or a transport failure.
type UpstreamError struct {
	Source string
	Status int
	Reason string
	Err    error
}

func (e *UpstreamError) Error() string {
	if e.Status > 0 {
		return fmt.Sprintf("%s upstream: status %d: %s", e.Source, e.Status, e.Reason)
	}
	return fmt.Sprintf("%s upstream: %s", e.Source, e.Reason)
}

// Unwrap exposes both the transport cause and the ErrUpstream sentinel.
func (e *UpstreamError) Unwrap() []error {
	if e.Err != nil {
		return []error{apperrors.ErrUpstream, e.Err}
	}
	return []error{apperrors.ErrUpstream}
}
