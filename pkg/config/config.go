// Package config loads the cross-reference client configuration from
// XREF_-prefixed environment variables.
package config

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/Sternrassler/quran-xref/pkg/breaker"
	"github.com/Sternrassler/quran-xref/pkg/client"
	"github.com/Sternrassler/quran-xref/pkg/logging"
	"github.com/Sternrassler/quran-xref/pkg/ratelimit"
	"github.com/Sternrassler/quran-xref/pkg/source"
	"github.com/kelseyhightower/envconfig"
)

// Prefix is the environment variable prefix.
const Prefix = "XREF"

// Config holds all application configuration.
type Config struct {
	Upstream  UpstreamConfig
	Cache     CacheConfig
	Breaker   BreakerConfig
	RateLimit RateLimitConfig
	Redis     RedisConfig
	Logging   LogConfig
}

// UpstreamConfig holds the data client configuration.
type UpstreamConfig struct {
	BaseURL     string            `envconfig:"BASE_URL" default:"http://localhost:8080"`
	Endpoint    string            `envconfig:"ENDPOINT" default:"/v1/clusters"`
	Headers     map[string]string `envconfig:"HEADERS"`
	UserAgent   string            `envconfig:"USER_AGENT" default:"quran-xref/1.0"`
	Timeout     time.Duration     `envconfig:"TIMEOUT" default:"10s"`
	MaxRetries  int               `envconfig:"MAX_RETRIES" default:"3"`
	BackoffBase time.Duration     `envconfig:"BACKOFF_BASE" default:"500ms"`
}

// CacheConfig holds adapter cache configuration.
type CacheConfig struct {
	TTL          time.Duration `envconfig:"TTL" default:"5m"`
	MaxSize      int           `envconfig:"MAX_SIZE" default:"100"`
	HonorExpires bool          `envconfig:"HONOR_EXPIRES" default:"false"`
	Coalesce     bool          `envconfig:"COALESCE" default:"false"`
}

// BreakerConfig holds circuit breaker configuration.
type BreakerConfig struct {
	Enabled             bool          `envconfig:"ENABLED" default:"true"`
	FailureThreshold    int           `envconfig:"FAILURE_THRESHOLD" default:"5"`
	ResetTimeout        time.Duration `envconfig:"RESET_TIMEOUT" default:"30s"`
	HalfOpenMaxAttempts int           `envconfig:"HALF_OPEN_MAX_ATTEMPTS" default:"1"`
}

// RateLimitConfig holds client-side pacing configuration.
type RateLimitConfig struct {
	Enabled           bool          `envconfig:"ENABLED" default:"false"`
	RequestsPerSecond float64       `envconfig:"RPS" default:"5"`
	Burst             int           `envconfig:"BURST" default:"5"`
	ThrottleDelay     time.Duration `envconfig:"THROTTLE_DELAY" default:"1s"`
}

// RedisConfig holds the optional snapshot store configuration.
// An empty Addr disables the snapshot.
type RedisConfig struct {
	Addr     string `envconfig:"ADDR"`
	Password string `envconfig:"PASSWORD"`
	DB       int    `envconfig:"DB" default:"0"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level  string `envconfig:"LEVEL" default:"info"`
	Pretty bool   `envconfig:"PRETTY" default:"false"`
}

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(Prefix, &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Default returns default configuration.
func Default() *Config {
	return &Config{
		Upstream: UpstreamConfig{
			BaseURL:     "http://localhost:8080",
			Endpoint:    "/v1/clusters",
			UserAgent:   "quran-xref/1.0",
			Timeout:     10 * time.Second,
			MaxRetries:  3,
			BackoffBase: 500 * time.Millisecond,
		},
		Cache: CacheConfig{
			TTL:     5 * time.Minute,
			MaxSize: 100,
		},
		Breaker: BreakerConfig{
			Enabled:             true,
			FailureThreshold:    5,
			ResetTimeout:        30 * time.Second,
			HalfOpenMaxAttempts: 1,
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: 5,
			Burst:             5,
			ThrottleDelay:     time.Second,
		},
		Logging: LogConfig{
			Level: "info",
		},
	}
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	u, err := url.Parse(c.Upstream.BaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("upstream base url must be an absolute http(s) url (got %q)", c.Upstream.BaseURL)
	}
	if c.Upstream.Endpoint == "" {
		return fmt.Errorf("upstream endpoint is required")
	}
	if c.Upstream.MaxRetries < 0 {
		return fmt.Errorf("upstream max_retries must be >= 0 (got %d)", c.Upstream.MaxRetries)
	}
	if c.Upstream.Timeout < 0 || c.Upstream.BackoffBase < 0 {
		return fmt.Errorf("upstream timeout and backoff must not be negative")
	}
	if c.Cache.TTL <= 0 {
		return fmt.Errorf("cache ttl must be positive (got %s)", c.Cache.TTL)
	}
	if c.Cache.MaxSize <= 0 {
		return fmt.Errorf("cache max_size must be positive (got %d)", c.Cache.MaxSize)
	}
	if c.Breaker.Enabled {
		if c.Breaker.FailureThreshold <= 0 {
			return fmt.Errorf("breaker failure_threshold must be positive (got %d)", c.Breaker.FailureThreshold)
		}
		if c.Breaker.ResetTimeout <= 0 {
			return fmt.Errorf("breaker reset_timeout must be positive (got %s)", c.Breaker.ResetTimeout)
		}
	}
	if c.RateLimit.Enabled && c.RateLimit.Burst <= 0 {
		return fmt.Errorf("rate limit burst must be positive (got %d)", c.RateLimit.Burst)
	}
	return nil
}

// ClientConfig returns the data client configuration. The rate limiter is
// left for the caller to attach.
func (c *Config) ClientConfig() client.Config {
	return client.Config{
		BaseURL:     c.Upstream.BaseURL,
		Headers:     c.Upstream.Headers,
		UserAgent:   c.Upstream.UserAgent,
		Timeout:     c.Upstream.Timeout,
		MaxRetries:  c.Upstream.MaxRetries,
		BackoffBase: c.Upstream.BackoffBase,
	}
}

// AdapterConfig returns the source adapter configuration.
func (c *Config) AdapterConfig() source.Config {
	return source.Config{
		Name:         "clusters",
		Endpoint:     c.Upstream.Endpoint,
		TTL:          c.Cache.TTL,
		MaxSize:      c.Cache.MaxSize,
		HonorExpires: c.Cache.HonorExpires,
		Coalesce:     c.Cache.Coalesce,
	}
}

// BreakerSettings returns the circuit breaker settings. Caller
// cancellation is neutral: it neither opens nor closes the circuit.
func (c *Config) BreakerSettings() breaker.Settings {
	return breaker.Settings{
		FailureThreshold:    c.Breaker.FailureThreshold,
		ResetTimeout:        c.Breaker.ResetTimeout,
		HalfOpenMaxAttempts: c.Breaker.HalfOpenMaxAttempts,
		IsNeutral:           isCancellation,
	}
}

func isCancellation(err error) bool {
	return errors.Is(err, client.ErrContextCancelled) || errors.Is(err, context.Canceled)
}

// RateLimiterConfig returns the rate limit tracker configuration.
func (c *Config) RateLimiterConfig() ratelimit.Config {
	return ratelimit.Config{
		RequestsPerSecond: c.RateLimit.RequestsPerSecond,
		Burst:             c.RateLimit.Burst,
		ThrottleDelay:     c.RateLimit.ThrottleDelay,
	}
}

// LoggingConfig returns the logger configuration.
func (c *Config) LoggingConfig() logging.Config {
	cfg := logging.DefaultConfig()
	cfg.Level = logging.LogLevel(c.Logging.Level)
	cfg.Pretty = c.Logging.Pretty
	return cfg
}
