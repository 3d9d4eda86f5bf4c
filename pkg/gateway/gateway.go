package gateway

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/Sternrassler/offline-cache-gateway/pkg/cache"
	"github.com/Sternrassler/offline-cache-gateway/pkg/fetch"
	"github.com/Sternrassler/offline-cache-gateway/pkg/queue"
	"github.com/rs/zerolog"
)

// Gateway routes requests through the caching policies.
type Gateway struct {
	config Config
	logger zerolog.Logger

	background sync.WaitGroup
	sweepMu    sync.Mutex
}

// liveResult is the outcome of a detached live fetch.
type liveResult struct {
	resp   *fetch.Response
	err    error
	queued bool
}

// New creates a new gateway.
func New(cfg Config) (*Gateway, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}

	logger := zerolog.Nop()
	if cfg.Logger != nil {
		logger = *cfg.Logger
	}

	return &Gateway{
		config: cfg,
		logger: logger.With().Str("component", "gateway").Logger(),
	}, nil
}

// Handle serves req according to its policy.
//
// Errors matching ErrNetworkUnavailable mean neither the cache nor the
// network could answer. Pass-through requests return the fetcher's error
// unmodified unless they were precached. A canceled ctx returns ctx.Err() while any live fetch already
// started keeps running.
func (g *Gateway) Handle(ctx context.Context, req *fetch.Request) (*fetch.Response, error) {
	if req == nil {
		return nil, fmt.Errorf("request cannot be nil")
	}

	policy := g.Classify(req)
	start := time.Now()

	var (
		resp *fetch.Response
		err  error
	)
	switch policy {
	case PolicyCacheFirst:
		resp, err = g.cacheFirst(ctx, req)
	case PolicyStaleWhileRevalidate:
		resp, err = g.staleWhileRevalidate(ctx, req)
	default:
		resp, err = g.passThrough(ctx, req)
	}

	gatewayRequestDuration.WithLabelValues(string(policy)).Observe(time.Since(start).Seconds())
	gatewayRequestsTotal.WithLabelValues(string(policy), outcome(resp, err)).Inc()
	return resp, err
}

// passThrough forwards req unmodified. A GET precached with Precache is
// answered from the precache bucket without touching the network.
func (g *Gateway) passThrough(ctx context.Context, req *fetch.Request) (*fetch.Response, error) {
	if isGet(req) && g.config.PrecacheBucket != "" {
		if entry := g.lookup(ctx, g.config.PrecacheBucket, cache.KeyFor(req)); entry != nil {
			return cache.EntryToResponse(entry), nil
		}
	}
	return g.config.Fetcher.Fetch(ctx, req)
}

// Precache fetches a GET request from the network and stores a cacheable
// response in the bucket its policy serves from: images and API data in
// their own buckets, everything else in the precache bucket.
func (g *Gateway) Precache(ctx context.Context, req *fetch.Request) (*fetch.Response, error) {
	if req == nil {
		return nil, fmt.Errorf("request cannot be nil")
	}
	if !isGet(req) {
		return nil, fmt.Errorf("cannot precache %s %s: only GET requests are cached", req.Method, req.URL)
	}

	policy := g.Classify(req)
	bucket := g.bucketFor(policy)
	if bucket == "" {
		return nil, fmt.Errorf("cannot precache %s: no precache bucket configured", req.URL)
	}

	key := cache.KeyFor(req)
	r := g.live(ctx, bucket, key, req.Clone())
	gatewayPrecachesTotal.WithLabelValues(string(policy), outcome(r.resp, r.err)).Inc()
	if r.err != nil {
		return nil, &UnavailableError{Policy: policy, Key: key, Err: r.err}
	}
	return r.resp, nil
}

// cacheFirst returns any cached entry without touching the network.
// On a miss it fetches, stores a cacheable response and returns it.
func (g *Gateway) cacheFirst(ctx context.Context, req *fetch.Request) (*fetch.Response, error) {
	bucket := g.config.ImageBucket
	key := cache.KeyFor(req)

	if entry := g.lookup(ctx, bucket, key); entry != nil {
		return cache.EntryToResponse(entry), nil
	}

	return g.await(ctx, PolicyCacheFirst, key, g.startLive(ctx, bucket, key, req))
}

// staleWhileRevalidate returns the cached entry immediately and refreshes it
// in the background. Without an entry the caller waits for the live fetch.
// Only GET requests are looked up and stored; a mutating request whose fetch
// failed with fetch.ErrUnavailable is enqueued for replay.
func (g *Gateway) staleWhileRevalidate(ctx context.Context, req *fetch.Request) (*fetch.Response, error) {
	bucket := g.config.APIBucket
	key := cache.KeyFor(req)

	var entry *cache.Entry
	if isGet(req) {
		entry = g.lookup(ctx, bucket, key)
	}

	live := g.startLive(ctx, bucket, key, req)
	if entry != nil {
		return cache.EntryToResponse(entry), nil
	}
	return g.await(ctx, PolicyStaleWhileRevalidate, key, live)
}

// startLive runs a live fetch detached from the caller's cancellation.
// The result channel is buffered so an abandoned fetch never blocks.
func (g *Gateway) startLive(ctx context.Context, bucket, key string, req *fetch.Request) <-chan liveResult {
	done := make(chan liveResult, 1)
	detached := context.WithoutCancel(ctx)
	req = req.Clone()

	g.background.Add(1)
	go func() {
		defer g.background.Done()
		done <- g.live(detached, bucket, key, req)
	}()
	return done
}

// live fetches req and applies the result to the bucket or the retry queue.
func (g *Gateway) live(ctx context.Context, bucket, key string, req *fetch.Request) liveResult {
	resp, err := g.config.Fetcher.Fetch(ctx, req)
	if err != nil {
		// Only a request that never reached the origin may be sent again.
		if !req.IsMutating() || !errors.Is(err, fetch.ErrUnavailable) {
			gatewayRevalidationsTotal.WithLabelValues("failed").Inc()
			g.logger.Debug().Err(err).Str("key", key).Str("method", req.Method).Msg("Live fetch failed")
			return liveResult{err: err}
		}

		queued := g.enqueue(ctx, req)
		if queued {
			gatewayRevalidationsTotal.WithLabelValues("queued").Inc()
		} else {
			gatewayRevalidationsTotal.WithLabelValues("failed").Inc()
		}
		return liveResult{err: err, queued: queued}
	}

	if !isGet(req) || !cache.IsCacheable(resp.Status) {
		gatewayRevalidationsTotal.WithLabelValues("not_cacheable").Inc()
		return liveResult{resp: resp}
	}

	g.store(ctx, bucket, key, resp)
	gatewayRevalidationsTotal.WithLabelValues("stored").Inc()
	return liveResult{resp: resp}
}

// await waits for a live fetch started on behalf of the caller.
func (g *Gateway) await(ctx context.Context, policy Policy, key string, live <-chan liveResult) (*fetch.Response, error) {
	select {
	case r := <-live:
		if r.err != nil {
			return nil, &UnavailableError{Policy: policy, Key: key, Queued: r.queued, Err: r.err}
		}
		return r.resp, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// lookup returns a cacheable entry or nil. Storage errors count as a miss.
func (g *Gateway) lookup(ctx context.Context, bucket, key string) *cache.Entry {
	entry, err := g.config.Store.Get(ctx, bucket, key)
	if err != nil {
		if !errors.Is(err, cache.ErrCacheMiss) {
			g.logger.Warn().Err(err).Str("bucket", bucket).Str("key", key).Msg("Cache lookup failed")
		}
		return nil
	}
	if !entry.Cacheable() {
		return nil
	}
	return entry
}

func (g *Gateway) store(ctx context.Context, bucket, key string, resp *fetch.Response) {
	entry, err := cache.EntryFromResponse(bucket, key, resp, g.config.Clock())
	if err == nil {
		err = g.config.Store.Put(ctx, entry)
	}
	if err != nil {
		g.logger.Warn().Err(err).Str("bucket", bucket).Str("key", key).Msg("Cache write failed")
	}
}

func (g *Gateway) enqueue(ctx context.Context, req *fetch.Request) bool {
	item := queue.NewItem(req, g.config.Clock(), g.config.Retention)
	if err := g.config.Queue.Enqueue(ctx, item); err != nil {
		g.logger.Error().Err(err).
			Str("method", req.Method).
			Str("url", req.URL).
			Msg("Failed to enqueue request for replay")
		return false
	}

	g.logger.Info().
		Str("id", item.ID).
		Str("method", req.Method).
		Str("url", req.URL).
		Time("deadline", item.Deadline).
		Msg("Request queued for replay")
	return true
}

// Wait blocks until all background fetches started by Handle have finished.
func (g *Gateway) Wait() {
	g.background.Wait()
}

// Online reports the tracked connectivity state. Without a tracker the
// gateway always reports online.
func (g *Gateway) Online() bool {
	if g.config.Tracker == nil {
		return true
	}
	return g.config.Tracker.Online()
}

// Pending returns the queued requests, oldest first.
func (g *Gateway) Pending(ctx context.Context) ([]queue.Item, error) {
	return g.config.Queue.List(ctx)
}

func outcome(resp *fetch.Response, err error) string {
	switch {
	case errors.Is(err, ErrNetworkUnavailable):
		return "unavailable"
	case err != nil:
		return "error"
	case resp != nil && resp.Source == fetch.SourceCache:
		return "cache"
	default:
		return "network"
	}
}
