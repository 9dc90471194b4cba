package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

// setupTestRedis creates a Redis client against a local instance.
func setupTestRedis(t *testing.T) *redis.Client {
	t.Helper()

	client := redis.NewClient(&redis.Options{
		Addr: "localhost:6379",
		DB:   15, // Use a separate DB for tests
	})

	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		t.Skipf("Redis not available for testing: %v", err)
	}

	if err := client.FlushDB(ctx).Err(); err != nil {
		t.Fatalf("Failed to flush test DB: %v", err)
	}

	t.Cleanup(func() {
		client.FlushDB(context.Background())
		client.Close()
	})

	return client
}

type snapshotPayload struct {
	IDs []string `json:"ids"`
}

func TestNewSnapshot_NilClientPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("NewSnapshot(nil) did not panic")
		}
	}()
	NewSnapshot(nil)
}

func TestSnapshot_RoundTrip(t *testing.T) {
	snap := NewSnapshot(setupTestRedis(t))
	ctx := context.Background()
	key := Key{Endpoint: "/v1/clusters"}

	var got snapshotPayload
	if err := snap.Get(ctx, key, &got); !errors.Is(err, ErrCacheMiss) {
		t.Fatalf("Get() on empty store error = %v, want ErrCacheMiss", err)
	}

	want := snapshotPayload{IDs: []string{"c1", "c2"}}
	if err := snap.Set(ctx, key, want, time.Minute); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	if err := snap.Get(ctx, key, &got); err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if len(got.IDs) != 2 || got.IDs[0] != "c1" {
		t.Errorf("Get() = %+v, want %+v", got, want)
	}

	ttl, err := snap.TTL(ctx, key)
	if err != nil {
		t.Fatalf("TTL() error = %v", err)
	}
	if ttl <= 0 || ttl > time.Minute {
		t.Errorf("TTL() = %v, want within (0, 1m]", ttl)
	}

	if err := snap.Delete(ctx, key); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if err := snap.Get(ctx, key, &got); !errors.Is(err, ErrCacheMiss) {
		t.Errorf("Get() after Delete error = %v, want ErrCacheMiss", err)
	}
}

func TestSnapshot_NonPositiveTTLStoresNothing(t *testing.T) {
	snap := NewSnapshot(setupTestRedis(t))
	ctx := context.Background()
	key := Key{Endpoint: "/v1/empty"}

	if err := snap.Set(ctx, key, snapshotPayload{}, 0); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	var got snapshotPayload
	if err := snap.Get(ctx, key, &got); !errors.Is(err, ErrCacheMiss) {
		t.Errorf("Get() error = %v, want ErrCacheMiss", err)
	}
}

func TestSnapshot_InvalidEntry(t *testing.T) {
	client := setupTestRedis(t)
	snap := NewSnapshot(client)
	ctx := context.Background()
	key := Key{Endpoint: "/v1/corrupt"}

	if err := client.Set(ctx, key.String(), "not json", time.Minute).Err(); err != nil {
		t.Fatalf("seed corrupt value: %v", err)
	}

	var got snapshotPayload
	if err := snap.Get(ctx, key, &got); !errors.Is(err, ErrInvalidEntry) {
		t.Errorf("Get() error = %v, want ErrInvalidEntry", err)
	}
}
