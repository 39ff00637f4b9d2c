package config

import (
	"fmt"
	"net/url"
	"time"

	"github.com/storelens/reviewgateway/internal/middleware"
	pkgconfig "github.com/storelens/reviewgateway/pkg/config"
)

// Review sources.
const (
	SourceAppStore  = "appstore"
	SourceASOMarket = "asomarket"
)

// Config holds all configuration for the review gateway.
type Config struct {
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`
	HTTPPort    int    `env:"HTTP_PORT" envDefault:"3000"`
	ServiceName string `env:"SERVICE_NAME" envDefault:"app-store-reviews-gateway"`

	// Review limits
	MaxReviewsPerApp   int `env:"MAX_REVIEWS_PER_APP" envDefault:"200"`
	DefaultReviewLimit int `env:"DEFAULT_REVIEW_LIMIT" envDefault:"50"`
	BatchConcurrency   int `env:"BATCH_CONCURRENCY" envDefault:"5"`

	// Upstreams
	RequestTimeoutMS      int    `env:"REQUEST_TIMEOUT_MS" envDefault:"10000"`
	ReviewSource          string `env:"REVIEW_SOURCE" envDefault:"appstore"`
	ReviewStrategy        string `env:"REVIEW_STRATEGY" envDefault:"multi_sort"`
	AppStoreLookupURL     string `env:"APPSTORE_LOOKUP_URL" envDefault:"https://itunes.apple.com"`
	AppStoreRSSURL        string `env:"APPSTORE_RSS_URL" envDefault:"https://itunes.apple.com"`
	ASOMarketURL          string `env:"ASO_MARKET_URL" envDefault:"https://api.asomarket.io/v1"`
	ASOMarketAPIKey       string `env:"ASO_MARKET_API_KEY"`
	CircuitBreakerEnabled bool   `env:"CIRCUIT_BREAKER_ENABLED" envDefault:"true"`

	// Rate limiting
	RateLimitPerMinute int `env:"RATE_LIMIT_REQUESTS_PER_MINUTE" envDefault:"100"`
	RateLimitBurst     int `env:"RATE_LIMIT_BURST" envDefault:"20"`
	// TrustedProxies are CIDRs or IPs whose forwarding headers are believed.
	TrustedProxies []string `env:"TRUSTED_PROXIES" envSeparator:","`

	// HTTP surface
	CORSAllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS" envDefault:"*" envSeparator:","`
	DocsPath           string   `env:"DOCS_PATH"`

	// Tracing
	OTELEnabled    bool    `env:"OTEL_ENABLED" envDefault:"false"`
	OTELEndpoint   string  `env:"OTEL_ENDPOINT" envDefault:"localhost:4318"`
	OTELSampleRate float64 `env:"OTEL_SAMPLE_RATE" envDefault:"1.0"`
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := pkgconfig.Load(cfg); err != nil {
		return nil, fmt.Errorf("load gateway config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// RequestTimeout is the bound applied to every upstream call.
func (c *Config) RequestTimeout() time.Duration {
	return time.Duration(c.RequestTimeoutMS) * time.Millisecond
}

// validate checks configuration invariants.
func (c *Config) validate() error {
	if c.HTTPPort <= 0 || c.HTTPPort > 65535 {
		return fmt.Errorf("HTTP_PORT must be between 1 and 65535, got %d", c.HTTPPort)
	}
	if c.MaxReviewsPerApp < 1 {
		return fmt.Errorf("MAX_REVIEWS_PER_APP must be positive, got %d", c.MaxReviewsPerApp)
	}
	if c.DefaultReviewLimit < 1 || c.DefaultReviewLimit > c.MaxReviewsPerApp {
		return fmt.Errorf("DEFAULT_REVIEW_LIMIT must be between 1 and %d, got %d", c.MaxReviewsPerApp, c.DefaultReviewLimit)
	}
	if c.BatchConcurrency < 1 {
		return fmt.Errorf("BATCH_CONCURRENCY must be positive, got %d", c.BatchConcurrency)
	}
	if c.RequestTimeoutMS < 1 {
		return fmt.Errorf("REQUEST_TIMEOUT_MS must be positive, got %d", c.RequestTimeoutMS)
	}
	if c.RateLimitPerMinute < 0 || c.RateLimitBurst < 0 {
		return fmt.Errorf("rate limit settings must not be negative")
	}

	for _, p := range c.TrustedProxies {
		if _, err := middleware.ParseTrustedProxy(p); err != nil {
			return fmt.Errorf("TRUSTED_PROXIES entry %q is not an IP or CIDR", p)
		}
	}

	switch c.ReviewSource {
	case SourceAppStore, SourceASOMarket:
	default:
		return fmt.Errorf("REVIEW_SOURCE must be %q or %q, got %q", SourceAppStore, SourceASOMarket, c.ReviewSource)
	}
	switch c.ReviewStrategy {
	case "single_sort", "multi_sort":
	default:
		return fmt.Errorf("REVIEW_STRATEGY must be single_sort or multi_sort, got %q", c.ReviewStrategy)
	}

	for name, raw := range map[string]string{
		"APPSTORE_LOOKUP_URL": c.AppStoreLookupURL,
		"APPSTORE_RSS_URL":    c.AppStoreRSSURL,
		"ASO_MARKET_URL":      c.ASOMarketURL,
	} {
		u, err := url.Parse(raw)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("%s must be an absolute URL, got %q", name, raw)
		}
	}
	return nil
}
