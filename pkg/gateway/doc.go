// Package gateway implements the offline cache gateway: a request router
// that serves images cache-first, serves API reads stale-while-revalidate,
// and queues failed API writes for replay once the network returns.
//
// # Classification
//
// Every request is classified once, first match wins:
//
//  1. GET with destination "image"      -> PolicyCacheFirst, bucket "images"
//  2. path starts with the API prefix    -> PolicyStaleWhileRevalidate, bucket "api-cache"
//  3. anything else                      -> PolicyPassThrough (no caching)
//
// Pass-through GET requests stored with Precache are the exception: they
// are answered from bucket "precache" without touching the network.
//
// # Basic Usage
//
//	store, _ := cache.NewMemoryStore(
//		cache.BucketConfig{Name: "images", MaxEntries: 60},
//		cache.BucketConfig{Name: "api-cache"},
//		cache.BucketConfig{Name: "precache"},
//	)
//	gw, err := gateway.New(gateway.DefaultConfig(httpClient, store, queue.NewMemoryQueue()))
//	if err != nil {
//		return err
//	}
//
//	resp, err := gw.Handle(ctx, fetch.NewRequest("GET", "https://app.example/api/items", "", nil))
//	if errors.Is(err, gateway.ErrNetworkUnavailable) {
//		// show the offline indicator
//	}
//
// # Background work
//
// Revalidations and live fetches started by Handle run detached from the
// caller's context. They update the bucket or the retry queue even after the
// caller has returned. Wait blocks until all of them have finished.
//
// The retry queue is drained by Sweep, which a Sweeper calls on a ticker and
// whenever the connectivity tracker reports that the network came back.
// Items past their retention deadline are dropped without a replay attempt.
// Only writes that failed with fetch.ErrUnavailable are queued, so a write
// the origin already received is never sent twice.
package gateway
