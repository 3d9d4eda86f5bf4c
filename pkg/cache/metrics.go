package cache

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// CacheHits tracks cache hits by bucket
	CacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "offline_cache_hits_total",
			Help: "Total number of cache hits",
		},
		[]string{"bucket"},
	)

	// CacheMisses tracks cache misses by bucket
	CacheMisses = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "offline_cache_misses_total",
			Help: "Total number of cache misses",
		},
		[]string{"bucket"},
	)

	// CacheWrites tracks entries written by bucket
	CacheWrites = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "offline_cache_writes_total",
			Help: "Total number of entries written to a bucket",
		},
		[]string{"bucket"},
	)

	// CacheRejected tracks writes refused because the status is not cacheable
	CacheRejected = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "offline_cache_rejected_total",
			Help: "Total number of writes refused for a non-cacheable status",
		},
		[]string{"bucket"},
	)

	// CacheErrors tracks cache operation errors
	CacheErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "offline_cache_errors_total",
			Help: "Total number of cache operation errors",
		},
		[]string{"operation"}, // "get", "put", "delete"
	)
)
