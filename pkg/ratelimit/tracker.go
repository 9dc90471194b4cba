package ratelimit

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

// Prometheus metrics for rate limit tracking.
var (
	quotaRemaining = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "xref_upstream_quota_remaining",
		Help: "Requests remaining in the current upstream quota window",
	})

	rateLimitBlocksTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "xref_rate_limit_blocks_total",
		Help: "Total number of requests held until the upstream quota window reset",
	})

	rateLimitThrottlesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "xref_rate_limit_throttles_total",
		Help: "Total number of requests delayed because the upstream quota ran low",
	})
)

// Config holds tracker configuration.
type Config struct {
	// RequestsPerSecond is the steady request rate; <= 0 disables the token bucket
	RequestsPerSecond float64

	// Burst is the token bucket size
	Burst int

	// ThrottleDelay is the extra wait applied in the warning state
	ThrottleDelay time.Duration
}

// DefaultConfig returns a conservative configuration.
func DefaultConfig() Config {
	return Config{
		RequestsPerSecond: 5,
		Burst:             5,
		ThrottleDelay:     1 * time.Second,
	}
}

// Tracker paces outgoing requests.
type Tracker struct {
	limiter *rate.Limiter
	config  Config
	logger  zerolog.Logger
	now     func() time.Time

	mu    sync.Mutex
	state State
}

// NewTracker creates a new rate limit tracker.
func NewTracker(cfg Config, logger zerolog.Logger) *Tracker {
	limit := rate.Inf
	if cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.RequestsPerSecond)
	}
	if cfg.Burst <= 0 {
		cfg.Burst = 1
	}

	return &Tracker{
		limiter: rate.NewLimiter(limit, cfg.Burst),
		config:  cfg,
		logger:  logger,
		now:     time.Now,
	}
}

// State returns the last reported upstream quota.
func (t *Tracker) State() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// UpdateFromHeaders records the quota reported in response headers.
// Responses without quota headers leave the state untouched.
func (t *Tracker) UpdateFromHeaders(headers http.Header) error {
	remainStr := headers.Get(HeaderRemaining)
	if remainStr == "" {
		return nil
	}

	remain, err := strconv.Atoi(remainStr)
	if err != nil {
		return fmt.Errorf("parse %s header: %w", HeaderRemaining, err)
	}

	resetStr := headers.Get(HeaderReset)
	if resetStr == "" {
		return fmt.Errorf("%s header missing", HeaderReset)
	}

	resetSeconds, err := strconv.Atoi(resetStr)
	if err != nil {
		return fmt.Errorf("parse %s header: %w", HeaderReset, err)
	}

	now := t.now()
	state := State{
		Remaining:  remain,
		ResetAt:    now.Add(time.Duration(resetSeconds) * time.Second),
		LastUpdate: now,
		Known:      true,
	}

	t.mu.Lock()
	t.state = state
	t.mu.Unlock()

	quotaRemaining.Set(float64(remain))

	switch {
	case state.NeedsCriticalBlock():
		t.logger.Error().
			Int("remaining", remain).
			Time("reset_at", state.ResetAt).
			Msg("Upstream quota exhausted - requests will wait for reset")
	case state.NeedsThrottling():
		t.logger.Warn().
			Int("remaining", remain).
			Time("reset_at", state.ResetAt).
			Msg("Upstream quota low - requests will be throttled")
	default:
		t.logger.Debug().
			Int("remaining", remain).
			Time("reset_at", state.ResetAt).
			Bool("is_healthy", state.IsHealthy()).
			Msg("Upstream quota updated")
	}

	return nil
}

// Wait blocks until a request may be sent or ctx is done.
func (t *Tracker) Wait(ctx context.Context) error {
	state := t.State()

	if state.NeedsCriticalBlock() {
		if wait := state.TimeUntilReset(t.now()); wait > 0 {
			t.logger.Warn().
				Int("remaining", state.Remaining).
				Dur("wait_duration", wait).
				Msg("Upstream quota exhausted - holding request")

			rateLimitBlocksTotal.Inc()
			if err := sleep(ctx, wait); err != nil {
				return err
			}
		}
	} else if state.NeedsThrottling() && t.config.ThrottleDelay > 0 {
		t.logger.Debug().
			Int("remaining", state.Remaining).
			Msg("Upstream quota low - throttling request")

		rateLimitThrottlesTotal.Inc()
		if err := sleep(ctx, t.config.ThrottleDelay); err != nil {
			return err
		}
	}

	return t.limiter.Wait(ctx)
}

func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
