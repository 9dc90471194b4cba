package main

import (
	"context"
	"fmt"

	"github.com/Sternrassler/quran-xref/pkg/breaker"
	"github.com/Sternrassler/quran-xref/pkg/cache"
	"github.com/Sternrassler/quran-xref/pkg/client"
	"github.com/Sternrassler/quran-xref/pkg/config"
	"github.com/Sternrassler/quran-xref/pkg/logging"
	"github.com/Sternrassler/quran-xref/pkg/ratelimit"
	"github.com/Sternrassler/quran-xref/pkg/source"
	"github.com/redis/go-redis/v9"
)

// newAdapter assembles the source adapter described by cfg. The returned
// cleanup closes the snapshot store, if any.
func newAdapter(ctx context.Context, cfg *config.Config) (*source.Adapter, func(), error) {
	logger := logging.NewLogger(logging.ComponentCLI)

	clientCfg := cfg.ClientConfig()
	if cfg.RateLimit.Enabled {
		clientCfg.RateLimiter = ratelimit.NewTracker(cfg.RateLimiterConfig(), logging.NewLogger(logging.ComponentLimiter))
	}

	c, err := client.New(clientCfg)
	if err != nil {
		return nil, nil, fmt.Errorf("create upstream client: %w", err)
	}

	var opts []source.Option
	if cfg.Breaker.Enabled {
		opts = append(opts, source.WithBreaker(breaker.New("upstream", cfg.BreakerSettings())))
	}

	cleanup := func() {}
	if cfg.Redis.Addr != "" {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})

		// Snapshot is optional; run without it when Redis is unreachable.
		if err := redisClient.Ping(ctx).Err(); err != nil {
			logger.Warn().Err(err).Str("addr", cfg.Redis.Addr).Msg("Redis unavailable, collection snapshot disabled")
			redisClient.Close()
		} else {
			opts = append(opts, source.WithSnapshot(cache.NewSnapshot(redisClient)))
			cleanup = func() { redisClient.Close() }
		}
	}

	logger.Debug().
		Str("base_url", cfg.Upstream.BaseURL).
		Bool("breaker", cfg.Breaker.Enabled).
		Bool("rate_limit", cfg.RateLimit.Enabled).
		Msg("Source adapter configured")

	return source.NewAdapter(c, cfg.AdapterConfig(), opts...), cleanup, nil
}
