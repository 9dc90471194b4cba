package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

var (
	// ErrCacheMiss indicates the requested key was not found in the snapshot store
	ErrCacheMiss = errors.New("cache miss")

	// ErrInvalidEntry indicates the stored snapshot is invalid or corrupted
	ErrInvalidEntry = errors.New("invalid cache entry")
)

// Snapshot stores JSON encoded values in Redis with a TTL.
type Snapshot struct {
	redis *redis.Client
}

// NewSnapshot creates a snapshot store with Redis backend.
func NewSnapshot(redisClient *redis.Client) *Snapshot {
	if redisClient == nil {
		panic("redis client cannot be nil")
	}
	return &Snapshot{
		redis: redisClient,
	}
}

// Get decodes the value stored under key into v.
// Returns ErrCacheMiss if the key doesn't exist or has expired.
func (s *Snapshot) Get(ctx context.Context, key Key, v any) error {
	data, err := s.redis.Get(ctx, key.String()).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			SnapshotMisses.Inc()
			return ErrCacheMiss
		}
		SnapshotErrors.WithLabelValues("get").Inc()
		return fmt.Errorf("redis get: %w", err)
	}

	if err := json.Unmarshal(data, v); err != nil {
		SnapshotErrors.WithLabelValues("get").Inc()
		return fmt.Errorf("%w: %v", ErrInvalidEntry, err)
	}

	SnapshotHits.Inc()
	return nil
}

// Set stores v under key. Redis drops the value once ttl has passed.
// A non-positive ttl stores nothing.
func (s *Snapshot) Set(ctx context.Context, key Key, v any, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}

	data, err := json.Marshal(v)
	if err != nil {
		SnapshotErrors.WithLabelValues("set").Inc()
		return fmt.Errorf("marshal snapshot: %w", err)
	}

	if err := s.redis.Set(ctx, key.String(), data, ttl).Err(); err != nil {
		SnapshotErrors.WithLabelValues("set").Inc()
		return fmt.Errorf("redis set: %w", err)
	}

	return nil
}

// Delete removes a stored snapshot.
func (s *Snapshot) Delete(ctx context.Context, key Key) error {
	if err := s.redis.Del(ctx, key.String()).Err(); err != nil {
		SnapshotErrors.WithLabelValues("delete").Inc()
		return fmt.Errorf("redis del: %w", err)
	}

	return nil
}

// TTL returns the remaining lifetime Redis reports for key.
// Returns ErrCacheMiss if the key doesn't exist.
func (s *Snapshot) TTL(ctx context.Context, key Key) (time.Duration, error) {
	ttl, err := s.redis.TTL(ctx, key.String()).Result()
	if err != nil {
		SnapshotErrors.WithLabelValues("ttl").Inc()
		return 0, fmt.Errorf("redis ttl: %w", err)
	}
	// -2: key missing, -1: no expiry
	if ttl == -2 || ttl == -2*time.Second {
		return 0, ErrCacheMiss
	}
	if ttl < 0 {
		return 0, nil
	}
	return ttl, nil
}
