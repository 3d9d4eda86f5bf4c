//go:build integration

package gateway

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/Sternrassler/offline-cache-gateway/internal/testutil"
	"github.com/Sternrassler/offline-cache-gateway/pkg/cache"
	"github.com/Sternrassler/offline-cache-gateway/pkg/client"
	"github.com/Sternrassler/offline-cache-gateway/pkg/fetch"
	"github.com/Sternrassler/offline-cache-gateway/pkg/queue"
	"github.com/redis/go-redis/v9"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// setupRedis creates a Redis container for integration testing.
func setupRedis(t *testing.T) *redis.Client {
	t.Helper()
	ctx := context.Background()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
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

	endpoint, err := container.Endpoint(ctx, "")
	if err != nil {
		t.Fatalf("Failed to get container endpoint: %v", err)
	}

	redisClient := redis.NewClient(&redis.Options{Addr: endpoint})
	t.Cleanup(func() {
		redisClient.Close()
		container.Terminate(ctx)
	})
	return redisClient
}

// newRedisGateway builds a gateway backed by Redis, as a fresh process would.
func newRedisGateway(t *testing.T, rdb *redis.Client) *Gateway {
	t.Helper()

	store, err := cache.NewRedisStore(rdb,
		cache.BucketConfig{Name: DefaultImageBucket, MaxAge: time.Hour},
		cache.BucketConfig{Name: DefaultAPIBucket},
		cache.BucketConfig{Name: DefaultPrecacheBucket},
	)
	if err != nil {
		t.Fatalf("NewRedisStore() error = %v", err)
	}

	cfg := client.DefaultConfig("offline-gateway-integration")
	cfg.Timeout = 2 * time.Second
	httpClient, err := client.New(cfg)
	if err != nil {
		t.Fatalf("client.New() error = %v", err)
	}

	gw, err := New(DefaultConfig(httpClient, store, queue.NewRedisQueue(rdb)))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	t.Cleanup(gw.Wait)
	return gw
}

func TestIntegration_CacheSurvivesRestart(t *testing.T) {
	rdb := setupRedis(t)
	origin := testutil.NewMockOrigin()
	defer origin.Close()
	origin.SetResponse("/img/banner.webp", testutil.NewImageResponse("banner"))

	ctx := context.Background()
	req := fetch.NewRequest("GET", origin.URL()+"/img/banner.webp", "image", nil)

	if _, err := newRedisGateway(t, rdb).Handle(ctx, req); err != nil {
		t.Fatalf("Handle() error = %v", err)
	}

	origin.SetOffline(true)
	resp, err := newRedisGateway(t, rdb).Handle(ctx, req)
	if err != nil {
		t.Fatalf("Handle() after restart error = %v", err)
	}
	if string(resp.Body) != "banner" || resp.Source != fetch.SourceCache {
		t.Errorf("Handle() = %q from %s, want banner from cache", resp.Body, resp.Source)
	}
	if resp.Header.Get("Content-Type") != "image/webp" {
		t.Errorf("Content-Type = %q", resp.Header.Get("Content-Type"))
	}
}

func TestIntegration_QueuedWriteReplayedAfterRestart(t *testing.T) {
	rdb := setupRedis(t)
	origin := testutil.NewMockOrigin()
	defer origin.Close()
	origin.SetResponse("POST /api/notes", testutil.NewCreatedResponse(`{"id":7}`))

	ctx := context.Background()
	origin.SetOffline(true)

	req := fetch.NewRequest("POST", origin.URL()+"/api/notes", "", []byte(`{"text":"hi"}`))
	req.Header.Set("Content-Type", "application/json")

	_, err := newRedisGateway(t, rdb).Handle(ctx, req)
	var unavailable *UnavailableError
	if !errors.As(err, &unavailable) || !unavailable.Queued {
		t.Fatalf("Handle() error = %v, want queued UnavailableError", err)
	}

	origin.SetOffline(false)
	gw := newRedisGateway(t, rdb)
	result, err := gw.Sweep(ctx)
	if err != nil {
		t.Fatalf("Sweep() error = %v", err)
	}
	if result.Replayed != 1 {
		t.Errorf("Sweep() = %+v, want 1 replayed", result)
	}

	reqs := origin.Requests()
	if len(reqs) != 1 {
		t.Fatalf("origin requests = %d, want 1", len(reqs))
	}
	if reqs[0].Method != http.MethodPost || string(reqs[0].Body) != `{"text":"hi"}` {
		t.Errorf("replayed = %s %q", reqs[0].Method, reqs[0].Body)
	}
	if reqs[0].Header.Get("Content-Type") != "application/json" {
		t.Errorf("Content-Type = %q", reqs[0].Header.Get("Content-Type"))
	}

	if items, _ := gw.Pending(ctx); len(items) != 0 {
		t.Errorf("pending = %d, want 0", len(items))
	}
}
