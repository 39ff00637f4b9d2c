package http

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/storelens/reviewgateway/internal/docs"
	gwmw "github.com/storelens/reviewgateway/internal/middleware"
	apperrors "github.com/storelens/reviewgateway/pkg/errors"
	"github.com/storelens/reviewgateway/pkg/health"
	"github.com/storelens/reviewgateway/pkg/httputil"
	"github.com/storelens/reviewgateway/pkg/middleware"
)

// RouterConfig holds the HTTP surface settings.
type RouterConfig struct {
	ServiceName        string
	AllowedOrigins     []string
	RateLimitPerMinute int
	RateLimitBurst     int
	TrustedProxies     []string
	HandlerTimeout     time.Duration
}

// NewRouter creates a chi router with all gateway routes registered. ctx
// bounds background work owned by the router, such as rate limiter cleanup.
func NewRouter(
	ctx context.Context,
	cfg RouterConfig,
	reviewHandler *ReviewHandler,
	healthHandler *health.Handler,
	docsLoader *docs.Loader,
	logger *slog.Logger,
) http.Handler {
	if cfg.HandlerTimeout <= 0 {
		cfg.HandlerTimeout = 30 * time.Second
	}

	corsCfg := middleware.DefaultCORSConfig()
	corsCfg.AllowedOrigins = cfg.AllowedOrigins
	corsCfg.PassthroughPreflight = true

	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.CORS(corsCfg))
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.RequestLogging(logger))
	r.Use(middleware.Tracing(cfg.ServiceName))
	r.Use(middleware.RequestLogger(logger))
	r.Use(middleware.PrometheusMetrics(cfg.ServiceName))
	r.Use(chimw.Compress(5))
	r.Use(chimw.Timeout(cfg.HandlerTimeout))

	r.NotFound(notFound)
	r.MethodNotAllowed(methodNotAllowed)

	// Health and metrics
	r.Get("/health", healthHandler.ServiceHandler())
	r.Get("/health/live", healthHandler.LivenessHandler())
	r.Get("/health/ready", healthHandler.ReadinessHandler())
	r.Handle("/metrics", promhttp.Handler())

	// Documentation
	r.Group(func(r chi.Router) {
		r.Use(middleware.CacheControl(300))
		r.Get("/docs", docsLoader.ServeSpec)
		r.Get("/docs/ui", docs.ServeUI)
	})

	// Review API
	r.Group(func(r chi.Router) {
		r.Use(gwmw.RateLimit(ctx, gwmw.RateLimitConfig{
			PerMinute:      cfg.RateLimitPerMinute,
			Burst:          cfg.RateLimitBurst,
			TrustedProxies: cfg.TrustedProxies,
		}, logger))
		r.Use(middleware.NoStore())
		r.Get("/reviews", reviewHandler.GetReviews)
		r.Post("/reviews", reviewHandler.PostReviews)
		r.Post("/reviews/multiple", reviewHandler.PostBatchReviews)
	})

	// Preflight
	r.Options("/health", middleware.Preflight(http.MethodGet))
	r.Options("/health/live", middleware.Preflight(http.MethodGet))
	r.Options("/health/ready", middleware.Preflight(http.MethodGet))
	r.Options("/docs", middleware.Preflight(http.MethodGet))
	r.Options("/docs/ui", middleware.Preflight(http.MethodGet))
	r.Options("/reviews", middleware.Preflight(http.MethodGet, http.MethodPost))
	r.Options("/reviews/multiple", middleware.Preflight(http.MethodPost))

	return r
}

// anyPreflight answers OPTIONS on paths without a registered route.
var anyPreflight = middleware.Preflight(http.MethodGet, http.MethodPost)

func notFound(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodOptions {
		anyPreflight(w, r)
		return
	}
	httputil.WriteError(w, r, apperrors.NotFound("Route "+r.Method+" "+r.URL.Path+" not found"), nil)
}

func methodNotAllowed(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSON(w, http.StatusMethodNotAllowed, httputil.ErrorResponse{
		Error:     "Method not allowed",
		Message:   r.Method + " is not supported on " + r.URL.Path,
		Timestamp: httputil.Timestamp(),
	})
}
