package httpclient

import (
	"fmt"
	"io"
	"net/http"

	apperrors "github.com/storelens/reviewgateway/pkg/errors"
)

// StatusError reports a non-2xx upstream response.
type StatusError struct {
	Service    string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("%s returned status %d", e.Service, e.StatusCode)
	}
	return fmt.Sprintf("%s returned status %d: %s", e.Service, e.StatusCode, e.Body)
}

// Unwrap classifies every status error as an upstream failure.
func (e *StatusError) Unwrap() error {
	return apperrors.ErrUpstream
}

// CheckResponse returns nil for 2xx responses. Otherwise it drains up to
// 1 KiB of the body into a StatusError and closes it.
func CheckResponse(resp *http.Response, serviceName string) error {
	if IsSuccess(resp.StatusCode) {
		return nil
	}
	defer func() { _ = resp.Body.Close() }()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<10))
	return &StatusError{
		Service:    serviceName,
		StatusCode: resp.StatusCode,
		Body:       string(body),
	}
}

// IsSuccess returns true for 2xx status codes.
func IsSuccess(status int) bool {
	return status >= 200 && status < 300
}
