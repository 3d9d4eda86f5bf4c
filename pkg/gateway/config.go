package gateway

import (
	"fmt"
	"strings"
	"time"

	"github.com/Sternrassler/offline-cache-gateway/pkg/cache"
	"github.com/Sternrassler/offline-cache-gateway/pkg/connectivity"
	"github.com/Sternrassler/offline-cache-gateway/pkg/fetch"
	"github.com/Sternrassler/offline-cache-gateway/pkg/queue"
	"github.com/rs/zerolog"
)

const (
	// DefaultAPIPrefix is the path prefix routed through stale-while-revalidate.
	DefaultAPIPrefix = "/api/"

	// DefaultRetention is how long a failed request stays in the retry queue.
	DefaultRetention = 24 * time.Hour

	// DefaultImageBucket holds cache-first image responses.
	DefaultImageBucket = "images"

	// DefaultAPIBucket holds stale-while-revalidate API responses.
	DefaultAPIBucket = "api-cache"

	// DefaultPrecacheBucket holds precached pass-through responses.
	DefaultPrecacheBucket = "precache"
)

// Config holds gateway configuration.
type Config struct {
	// Fetcher performs live network fetches (required)
	Fetcher fetch.Fetcher

	// Store holds the cache buckets (required)
	Store cache.Store

	// Queue holds failed mutating requests (required)
	Queue queue.Queue

	// Tracker reports connectivity; nil means always online
	Tracker *connectivity.Tracker

	// APIPrefix selects stale-while-revalidate requests by path
	APIPrefix string

	// Retention is the retry queue deadline relative to enqueue time
	Retention time.Duration

	// ImageBucket and APIBucket name the store buckets per policy
	ImageBucket string
	APIBucket   string

	// PrecacheBucket holds precached GET responses that no other policy
	// caches; empty disables precaching of pass-through requests
	PrecacheBucket string

	// Clock returns the current time; defaults to time.Now
	Clock func() time.Time

	// Logger for gateway events; defaults to a disabled logger
	Logger *zerolog.Logger
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig(fetcher fetch.Fetcher, store cache.Store, q queue.Queue) Config {
	return Config{
		Fetcher:        fetcher,
		Store:          store,
		Queue:          q,
		APIPrefix:      DefaultAPIPrefix,
		Retention:      DefaultRetention,
		ImageBucket:    DefaultImageBucket,
		APIBucket:      DefaultAPIBucket,
		PrecacheBucket: DefaultPrecacheBucket,
		Clock:          time.Now,
	}
}

// Validate checks the configuration.
func (c Config) Validate() error {
	if c.Fetcher == nil {
		return fmt.Errorf("fetcher is required")
	}
	if c.Store == nil {
		return fmt.Errorf("store is required")
	}
	if c.Queue == nil {
		return fmt.Errorf("queue is required")
	}
	if !strings.HasPrefix(c.APIPrefix, "/") {
		return fmt.Errorf("api prefix must start with / (got %q)", c.APIPrefix)
	}
	if c.Retention <= 0 {
		return fmt.Errorf("retention must be > 0 (got %s)", c.Retention)
	}
	if err := cache.ValidateBucketName(c.ImageBucket); err != nil {
		return fmt.Errorf("image bucket: %w", err)
	}
	if err := cache.ValidateBucketName(c.APIBucket); err != nil {
		return fmt.Errorf("api bucket: %w", err)
	}
	if c.ImageBucket == c.APIBucket {
		return fmt.Errorf("image and api bucket must differ (both %q)", c.APIBucket)
	}
	if c.PrecacheBucket != "" {
		if err := cache.ValidateBucketName(c.PrecacheBucket); err != nil {
			return fmt.Errorf("precache bucket: %w", err)
		}
		if c.PrecacheBucket == c.ImageBucket || c.PrecacheBucket == c.APIBucket {
			return fmt.Errorf("precache bucket must differ from image and api bucket (got %q)", c.PrecacheBucket)
		}
	}
	return nil
}
