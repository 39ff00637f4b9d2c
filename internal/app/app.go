package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/sony/gobreaker/v2"

	"github.com/storelens/reviewgateway/internal/config"
	"github.com/storelens/reviewgateway/internal/docs"
	"github.com/storelens/reviewgateway/internal/domain"
	handler "github.com/storelens/reviewgateway/internal/handler/http"
	"github.com/storelens/reviewgateway/internal/service"
	"github.com/storelens/reviewgateway/internal/source"
	"github.com/storelens/reviewgateway/internal/source/appstore"
	"github.com/storelens/reviewgateway/internal/source/asomarket"
	"github.com/storelens/reviewgateway/internal/validation"
	"github.com/storelens/reviewgateway/pkg/health"
	"github.com/storelens/reviewgateway/pkg/httpclient"
	"github.com/storelens/reviewgateway/pkg/tracing"
)

// App wires together all dependencies and runs the review gateway.
type App struct {
	cfg            *config.Config
	logger         *slog.Logger
	service        *service.ReviewService
	httpServer     *http.Server
	stopBackground context.CancelFunc
	shutdownTracer func(context.Context) error
}

// NewApp creates a new application instance, initializing all dependencies.
func NewApp(cfg *config.Config, logger *slog.Logger) (*App, error) {
	shutdownTracer, err := tracing.InitTracer(context.Background(), tracing.Config{
		ServiceName:    cfg.ServiceName,
		ServiceVersion: "1.0.0",
		Environment:    cfg.Environment,
		OTLPEndpoint:   cfg.OTELEndpoint,
		SampleRate:     cfg.OTELSampleRate,
		Enabled:        cfg.OTELEnabled,
	})
	if err != nil {
		return nil, fmt.Errorf("init tracing: %w", err)
	}

	src, breaker := NewSource(cfg, logger)
	reviewService := service.NewReviewService(src, cfg.BatchConcurrency, logger)
	logger.Info("review source initialized",
		slog.String("source", src.Name()),
		slog.String("strategy", cfg.ReviewStrategy),
		slog.Bool("circuit_breaker", breaker != nil),
	)

	// Health checks. An open breaker degrades readiness without failing it.
	healthHandler := health.NewHandler(cfg.ServiceName)
	if breaker != nil {
		healthHandler.RegisterNonCritical("upstream_"+src.Name(), func(context.Context) error {
			if breaker.State() == gobreaker.StateOpen {
				return httpclient.ErrCircuitOpen
			}
			return nil
		})
	}

	reviewHandler := handler.NewReviewHandler(reviewService, validation.Limits{
		Default: cfg.DefaultReviewLimit,
		Max:     cfg.MaxReviewsPerApp,
	}, logger)

	bgCtx, stopBackground := context.WithCancel(context.Background())

	// HTTP router.
	router := handler.NewRouter(bgCtx, handler.RouterConfig{
		ServiceName:        cfg.ServiceName,
		AllowedOrigins:     cfg.CORSAllowedOrigins,
		RateLimitPerMinute: cfg.RateLimitPerMinute,
		RateLimitBurst:     cfg.RateLimitBurst,
		TrustedProxies:     cfg.TrustedProxies,
		HandlerTimeout:     HandlerTimeout(cfg),
	}, reviewHandler, healthHandler, docs.NewLoader(cfg.DocsPath), logger)

	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      HandlerTimeout(cfg) + 5*time.Second,
		IdleTimeout:       60 * time.Second,
	}

	return &App{
		cfg:            cfg,
		logger:         logger,
		service:        reviewService,
		httpServer:     httpServer,
		stopBackground: stopBackground,
		shutdownTracer: shutdownTracer,
	}, nil
}

// NewSource builds the configured review source. The returned breaker is nil
// when circuit breaking is disabled.
func NewSource(cfg *config.Config, logger *slog.Logger) (source.Client, *httpclient.CircuitBreakerClient) {
	httpCfg := httpclient.DefaultConfig(cfg.ReviewSource)
	httpCfg.Timeout = cfg.RequestTimeout()
	base := httpclient.New(httpCfg)

	var (
		doer    httpclient.Doer = base
		breaker *httpclient.CircuitBreakerClient
	)
	if cfg.CircuitBreakerEnabled {
		breaker = httpclient.NewCircuitBreakerClient(base, httpclient.DefaultCircuitBreakerConfig(cfg.ReviewSource), logger)
		doer = breaker
	}

	if cfg.ReviewSource == config.SourceASOMarket {
		return asomarket.NewClient(doer, asomarket.Config{
			BaseURL: cfg.ASOMarketURL,
			APIKey:  cfg.ASOMarketAPIKey,
			Timeout: cfg.RequestTimeout(),
		}, logger), breaker
	}
	return appstore.NewClient(doer, appstore.Config{
		LookupURL: cfg.AppStoreLookupURL,
		RSSURL:    cfg.AppStoreRSSURL,
		Strategy:  domain.ParseStrategy(cfg.ReviewStrategy),
		Timeout:   cfg.RequestTimeout(),
	}, logger), breaker
}

// HandlerTimeout bounds one HTTP request. A full batch runs in
// ceil(MaxBatchSize/BatchConcurrency) waves, each taking at most one upstream
// timeout since a slot's calls run concurrently. One extra timeout and a
// second of margin cover decoding and writing the response.
func HandlerTimeout(cfg *config.Config) time.Duration {
	concurrency := max(cfg.BatchConcurrency, 1)
	waves := (validation.MaxBatchSize + concurrency - 1) / concurrency
	return time.Duration(waves+1)*cfg.RequestTimeout() + time.Second
}

// Handler returns the HTTP handler serving the gateway routes.
func (a *App) Handler() http.Handler {
	return a.httpServer.Handler
}

// Service returns the review aggregation service.
func (a *App) Service() *service.ReviewService {
	return a.service
}

// Run starts the HTTP server, blocking until the context is canceled.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)

	go func() {
		a.logger.Info("starting HTTP server",
			slog.String("addr", a.httpServer.Addr),
		)
		if err := a.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		a.logger.Info("shutdown signal received")
	case err := <-errCh:
		_ = a.Shutdown()
		return err
	}

	return a.Shutdown()
}

// Shutdown gracefully stops all components.
func (a *App) Shutdown() error {
	a.logger.Info("shutting down application...")

	var errs []error

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := a.httpServer.Shutdown(shutdownCtx); err != nil {
		a.logger.Error("http server shutdown error", slog.String("error", err.Error()))
		errs = append(errs, err)
	}

	a.stopBackground()

	if err := a.shutdownTracer(shutdownCtx); err != nil {
		a.logger.Error("tracer shutdown error", slog.String("error", err.Error()))
		errs = append(errs, err)
	}

	a.logger.Info("application shutdown complete")
	return errors.Join(errs...)
}
