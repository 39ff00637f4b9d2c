package httputil

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	apperrors "github.com/storelens/reviewgateway/pkg/errors"
	"github.com/storelens/reviewgateway/pkg/logger"
	"github.com/storelens/reviewgateway/pkg/validator"
)

// ISO8601 matches the millisecond UTC form used in every response timestamp.
const ISO8601 = "2006-01-02T15:04:05.000Z07:00"

// Timestamp returns the current UTC time formatted as ISO8601.
func Timestamp() string {
	return time.Now().UTC().Format(ISO8601)
}

// ErrorResponse is the error envelope returned by every endpoint.
type ErrorResponse struct {
	Error     string `json:"error"`
	Message   string `json:"message,omitempty"`
	AppID     string `json:"app_id,omitempty"`
	Timestamp string `json:"timestamp"`
}

// WriteJSON writes a JSON response with the given status code.
// If encoding fails, the error is logged but headers are already sent so nothing can be done.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// WriteError writes the error envelope for err. Validation and application
// errors keep their message; anything else is reported as a generic 500 and
// the original error is only logged. The app_id echoed back is taken from the
// request context (see logger.WithAppID).
func WriteError(w http.ResponseWriter, r *http.Request, err error, fallback *slog.Logger) {
	l := logger.FromContext(r.Context())
	if l == slog.Default() && fallback != nil {
		l = fallback
	}
	appID := logger.AppIDFromContext(r.Context())

	var valErr *validator.ValidationError
	if errors.As(err, &valErr) {
		WriteJSON(w, http.StatusBadRequest, ErrorResponse{
			Error:     "Validation failed",
			Message:   valErr.Error(),
			AppID:     appID,
			Timestamp: Timestamp(),
		})
		return
	}

	status := apperrors.HTTPStatus(err)
	resp := ErrorResponse{
		Error:     "Internal server error",
		Message:   "An unexpected error occurred",
		AppID:     appID,
		Timestamp: Timestamp(),
	}

	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		resp.Error = appErr.Code
		resp.Message = appErr.Message
	} else if errors.Is(err, apperrors.ErrInvalidInput) {
		resp.Error = "Validation failed"
		resp.Message = err.Error()
	}

	if status >= http.StatusInternalServerError {
		l.ErrorContext(r.Context(), "request failed",
			slog.String("error", err.Error()),
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.String("app_id", appID),
		)
	}

	WriteJSON(w, status, resp)
}

// DecodeJSON reads at most maxBytes of JSON from the request body into dst.
// An empty body leaves dst untouched so that validation reports the missing
// fields instead of a decode failure.
func DecodeJSON(w http.ResponseWriter, r *http.Request, dst any, maxBytes int64) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return apperrors.InvalidInput(fmt.Sprintf("invalid request body: %v", err))
	}
	return nil
}
