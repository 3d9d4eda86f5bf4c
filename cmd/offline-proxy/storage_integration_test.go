//go:build integration

package main

import (
	"context"
	"testing"

	"github.com/Sternrassler/offline-cache-gateway/internal/config"
	"github.com/Sternrassler/offline-cache-gateway/pkg/cache"
	"github.com/Sternrassler/offline-cache-gateway/pkg/queue"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

func startRedis(t *testing.T) string {
	t.Helper()
	ctx := context.Background()

	redisC, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForLog("Ready to accept connections"),
		},
		Started: true,
	})
	if err != nil {
		t.Fatalf("Failed to start Redis container: %v", err)
	}
	t.Cleanup(func() { redisC.Terminate(ctx) })

	endpoint, err := redisC.Endpoint(ctx, "")
	if err != nil {
		t.Fatalf("Failed to get container endpoint: %v", err)
	}
	return endpoint
}

func TestStorage_Redis(t *testing.T) {
	cfg := config.Default()
	cfg.Redis.Addr = startRedis(t)

	store, q, closeStorage, err := storage(context.Background(), cfg)
	if err != nil {
		t.Fatalf("storage() error = %v", err)
	}
	defer closeStorage()

	if _, ok := store.(*cache.RedisStore); !ok {
		t.Errorf("store = %T, want *cache.RedisStore", store)
	}
	if _, ok := q.(*queue.RedisQueue); !ok {
		t.Errorf("queue = %T, want *queue.RedisQueue", q)
	}
}

func TestStorage_RedisUnreachable(t *testing.T) {
	cfg := config.Default()
	cfg.Redis.Addr = "127.0.0.1:1"

	if _, _, _, err := storage(context.Background(), cfg); err == nil {
		t.Error("storage() expected error for unreachable redis")
	}
}
