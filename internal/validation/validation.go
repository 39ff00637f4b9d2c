// Package validation checks and normalizes caller-supplied review requests.
// Every function is pure; nothing here performs I/O.
package validation

import (
	"fmt"
	"math"
	"regexp"
	"strings"

	playground "github.com/go-playground/validator/v10"

	"github.com/storelens/reviewgateway/internal/domain"
	"github.com/storelens/reviewgateway/pkg/validator"
)

const (
	// MaxLimit is the largest limit a caller may request.
	MaxLimit = 200
	// MaxBatchSize is the largest number of app ids in one batch request.
	MaxBatchSize = 20
	// DefaultCountry is used when the caller does not name a storefront.
	DefaultCountry = "us"
)

// Messages reported for the custom rules.
const (
	MsgInvalidAppID = "Invalid app_id format. Must be numeric."
	MsgInvalidLimit = "Invalid limit. Must be between 1 and 200."
)

var identifierPattern = regexp.MustCompile(`^\d+$`)

func init() {
	if err := validator.RegisterRule("app_id", validAppIDField, appIDMessage); err != nil {
		panic(err)
	}
	validator.RegisterMessage("review_limit", func(playground.FieldError) string { return MsgInvalidLimit })
	validator.RegisterStructRule(limitRule, domain.ReviewsRequest{}, domain.BatchReviewsRequest{})
}

// IsValidIdentifier reports whether id is a non-empty string of decimal digits.
func IsValidIdentifier(id string) bool {
	return identifierPattern.MatchString(id)
}

// IsValidLimit reports whether n is an integer in [1, MaxLimit].
func IsValidLimit(n float64) bool {
	return n == math.Trunc(n) && n >= 1 && n <= MaxLimit
}

// ValidateSingle validates a single-app request and returns a
// *validator.ValidationError describing every violation.
func ValidateSingle(req domain.ReviewsRequest) error {
	return validator.Validate(req)
}

// ValidateBatch validates a multi-app request. Every invalid identifier is
// reported, not just the first.
func ValidateBatch(req domain.BatchReviewsRequest) error {
	return validator.Validate(req)
}

// ValidateSingleRequest returns the validation messages for req; an empty
// list means the request is valid.
func ValidateSingleRequest(req domain.ReviewsRequest) []string {
	return messages(ValidateSingle(req))
}

// ValidateBatchRequest returns the validation messages for req; an empty
// list means the request is valid.
func ValidateBatchRequest(req domain.BatchReviewsRequest) []string {
	return messages(ValidateBatch(req))
}

func messages(err error) []string {
	if err == nil {
		return nil
	}
	if ve, ok := err.(*validator.ValidationError); ok {
		return ve.Messages()
	}
	return []string{err.Error()}
}

func validAppIDField(fl playground.FieldLevel) bool {
	return IsValidIdentifier(fl.Field().String())
}

// appIDMessage names the offending entry for batch elements so callers can
// tell which identifier was rejected.
func appIDMessage(fe playground.FieldError) string {
	if strings.Contains(fe.Field(), "[") {
		return fmt.Sprintf("Invalid app_id: %v", fe.Value())
	}
	return MsgInvalidAppID
}

func limitRule(sl playground.StructLevel) {
	var limit *float64
	switch req := sl.Current().Interface().(type) {
	case domain.ReviewsRequest:
		limit = req.Limit
	case domain.BatchReviewsRequest:
		limit = req.Limit
	}
	if limit != nil && !IsValidLimit(*limit) {
		sl.ReportError(*limit, "limit", "Limit", "review_limit", "")
	}
}
