// Package cache provides bucketed response storage for the offline gateway.
//
// A bucket is a named partition of entries ("images", "api-cache"). Buckets
// are independent: each carries its own eviction policy, and a write to one
// bucket never touches another. Within a bucket, entries are keyed by the
// normalized request locator and newer writes overwrite older ones.
//
// Two stores are provided:
//
//   - MemoryStore keeps one bounded W-TinyLFU cache per bucket. MaxEntries
//     and MaxAge stand in for the storage-quota pressure a browser applies.
//   - RedisStore keeps JSON entries in Redis so several processes share one
//     cache. MaxAge maps to the key TTL; everything else is left to the
//     server's maxmemory policy.
//
// Entries may disappear at any time. Callers treat a vanished entry as a
// plain miss and never as a failure.
//
// # Basic Usage
//
//	store := cache.NewMemoryStore(
//		cache.BucketConfig{Name: "images", MaxEntries: 60, MaxAge: 30 * 24 * time.Hour},
//		cache.BucketConfig{Name: "api-cache"},
//	)
//
//	entry, err := store.Get(ctx, "images", key)
//	if errors.Is(err, cache.ErrCacheMiss) {
//		// fetch from the network
//	}
//
// # Cacheability
//
// Only responses with status 200 or the opaque marker (0) are ever written.
// Put rejects anything else with ErrNotCacheable.
//
// # Metrics
//
//   - offline_cache_hits_total{bucket}
//   - offline_cache_misses_total{bucket}
//   - offline_cache_writes_total{bucket}
//   - offline_cache_rejected_total{bucket}
//   - offline_cache_errors_total{operation}
package cache
