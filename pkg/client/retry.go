package client

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/rs/zerolog"
)

// RetryConfig holds the configuration for retry logic.
type RetryConfig struct {
	// MaxRetries is the number of attempts after the first one.
	// Total attempts = MaxRetries + 1.
	MaxRetries int

	// BackoffBase is the wait before the first retry. Every further retry
	// doubles it. There is no jitter and no upper bound.
	BackoffBase time.Duration
}

// DefaultRetryConfig returns the default retry configuration.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:  3,
		BackoffBase: 500 * time.Millisecond,
	}
}

// Backoff returns the wait before the given attempt: BackoffBase × 2^(attempt−1).
// The first attempt (0) does not wait. Only arithmetic overflow saturates.
func (c RetryConfig) Backoff(attempt int) time.Duration {
	if attempt < 1 || c.BackoffBase <= 0 {
		return 0
	}

	shift := attempt - 1
	if shift >= 63 || c.BackoffBase > time.Duration(math.MaxInt64>>shift) {
		return time.Duration(math.MaxInt64)
	}
	return c.BackoffBase << shift
}

// retryWithBackoff executes fn for attempt = 0..MaxRetries, strictly in
// sequence, until it succeeds or returns an error that is not retryable.
// Waiting for the backoff respects context cancellation.
func retryWithBackoff(ctx context.Context, cfg RetryConfig, logger zerolog.Logger, fn func(attempt int) error) error {
	var lastErr error

	for attempt := 0; attempt <= cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			errorClass := string(ClassOf(lastErr))
			backoff := cfg.Backoff(attempt)

			upstreamRetriesTotal.WithLabelValues(errorClass).Inc()
			upstreamRetryBackoffSeconds.WithLabelValues(errorClass).Observe(backoff.Seconds())

			logger.Debug().
				Str("error_class", errorClass).
				Int("attempt", attempt).
				Dur("backoff", backoff).
				Msg("Retrying request after backoff")

			if err := wait(ctx, backoff); err != nil {
				logger.Warn().
					Str("error_class", errorClass).
					Int("attempt", attempt).
					Msg("Context cancelled during retry backoff")
				return &TransportError{Cancelled: true, Err: err}
			}
		}

		err := fn(attempt)
		if err == nil {
			if attempt > 0 {
				logger.Info().
					Int("attempt", attempt).
					Msg("Request succeeded after retry")
			}
			return nil
		}

		lastErr = err

		if !IsRetryable(err) {
			return err
		}
	}

	errorClass := string(ClassOf(lastErr))
	upstreamRetryExhaustedTotal.WithLabelValues(errorClass).Inc()
	logger.Warn().
		Str("error_class", errorClass).
		Int("attempts", cfg.MaxRetries+1).
		Msg("Retry attempts exhausted")

	if cfg.MaxRetries == 0 {
		return lastErr
	}
	return fmt.Errorf("%w after %d attempts: %w", ErrRetryExhausted, cfg.MaxRetries+1, lastErr)
}

// wait sleeps for d or until ctx is done.
func wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
