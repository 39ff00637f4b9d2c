package http

import (
	"log/slog"
	"math"
	"net/http"
	"strconv"

	"github.com/storelens/reviewgateway/internal/domain"
	"github.com/storelens/reviewgateway/internal/service"
	"github.com/storelens/reviewgateway/internal/validation"
	apperrors "github.com/storelens/reviewgateway/pkg/errors"
	"github.com/storelens/reviewgateway/pkg/httputil"
	"github.com/storelens/reviewgateway/pkg/logger"
)

// maxBodyBytes bounds POST bodies; a batch of 20 ids fits comfortably.
const maxBodyBytes = 64 << 10

// ReviewHandler handles HTTP requests for review endpoints.
type ReviewHandler struct {
	service *service.ReviewService
	limits  validation.Limits
	logger  *slog.Logger
}

// NewReviewHandler creates a new review HTTP handler.
func NewReviewHandler(svc *service.ReviewService, limits validation.Limits, logger *slog.Logger) *ReviewHandler {
	return &ReviewHandler{
		service: svc,
		limits:  limits,
		logger:  logger,
	}
}

// GetReviews handles GET /reviews?app_id=&limit=&include_metadata=&country=
func (h *ReviewHandler) GetReviews(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	req := domain.ReviewsRequest{
		AppID:           q.Get("app_id"),
		IncludeMetadata: parseBool(q.Get("include_metadata")),
		Country:         q.Get("country"),
	}
	if raw := q.Get("limit"); raw != "" {
		req.Limit = parseLimit(raw)
	}
	h.single(w, r, req)
}

// PostReviews handles POST /reviews with the same fields as a JSON body.
func (h *ReviewHandler) PostReviews(w http.ResponseWriter, r *http.Request) {
	var req domain.ReviewsRequest
	if err := httputil.DecodeJSON(w, r, &req, maxBodyBytes); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	h.single(w, r, req)
}

// PostBatchReviews handles POST /reviews/multiple.
func (h *ReviewHandler) PostBatchReviews(w http.ResponseWriter, r *http.Request) {
	var req domain.BatchReviewsRequest
	if err := httputil.DecodeJSON(w, r, &req, maxBodyBytes); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	if err := validation.ValidateBatch(req); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	query := validation.SanitizeBatch(req, h.limits)
	result, err := h.service.GetBatchReviews(r.Context(), query)
	if err != nil {
		httputil.WriteError(w, r, apperrors.Internal("Failed to fetch reviews", err), h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, result)
}

func (h *ReviewHandler) single(w http.ResponseWriter, r *http.Request, req domain.ReviewsRequest) {
	if req.AppID != "" {
		r = r.WithContext(logger.WithAppID(r.Context(), req.AppID))
	}

	if err := validation.ValidateSingle(req); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	query := validation.SanitizeSingle(req, h.limits)
	result, err := h.service.GetReviews(r.Context(), query)
	if err != nil {
		httputil.WriteError(w, r, apperrors.Internal("Failed to fetch app data", err), h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, result)
}

// parseLimit returns NaN for unparseable input so validation rejects it.
func parseLimit(raw string) *float64 {
	n, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		n = math.NaN()
	}
	return &n
}

func parseBool(raw string) bool {
	b, err := strconv.ParseBool(raw)
	return err == nil && b
}
