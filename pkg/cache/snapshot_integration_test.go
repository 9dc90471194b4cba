//go:build integration

package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// setupRedisContainer starts a Redis container and returns a client
func setupRedisContainer(t *testing.T) (*redis.Client, func()) {
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForLog("Ready to accept connections"),
	}

	redisContainer, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		t.Fatalf("Failed to start Redis container: %v", err)
	}

	endpoint, err := redisContainer.Endpoint(ctx, "")
	if err != nil {
		t.Fatalf("Failed to get Redis endpoint: %v", err)
	}

	client := redis.NewClient(&redis.Options{
		Addr: endpoint,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		t.Fatalf("Failed to connect to Redis: %v", err)
	}

	cleanup := func() {
		client.Close()
		redisContainer.Terminate(ctx)
	}

	return client, cleanup
}

func TestSnapshot_Integration_Expiry(t *testing.T) {
	redisClient, cleanup := setupRedisContainer(t)
	defer cleanup()

	snap := NewSnapshot(redisClient)
	ctx := context.Background()
	key := Key{Endpoint: "/v1/clusters"}

	if err := snap.Set(ctx, key, []string{"c1"}, time.Second); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	var got []string
	if err := snap.Get(ctx, key, &got); err != nil {
		t.Fatalf("Get() error = %v", err)
	}

	time.Sleep(1500 * time.Millisecond)

	if err := snap.Get(ctx, key, &got); !errors.Is(err, ErrCacheMiss) {
		t.Errorf("Get() after expiry error = %v, want ErrCacheMiss", err)
	}
}

func TestSnapshot_Integration_SharedAcrossStores(t *testing.T) {
	redisClient, cleanup := setupRedisContainer(t)
	defer cleanup()

	ctx := context.Background()
	key := Key{Endpoint: "/v1/clusters"}

	writer := NewSnapshot(redisClient)
	reader := NewSnapshot(redisClient)

	if err := writer.Set(ctx, key, map[string]int{"clusters": 3}, time.Minute); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	var got map[string]int
	if err := reader.Get(ctx, key, &got); err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got["clusters"] != 3 {
		t.Errorf("Get() = %v, want clusters=3", got)
	}
}
