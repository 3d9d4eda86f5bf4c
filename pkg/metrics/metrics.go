// Package metrics exposes the Prometheus metrics of the offline gateway.
// All metrics are defined in their respective packages (cache, queue, client,
// connectivity, gateway) to maintain modularity and avoid circular
// dependencies.
//
// This package provides the scrape handler and a reference of all metrics.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry is the default Prometheus registry used by the gateway.
// All metrics are automatically registered via promauto in their respective packages.
var Registry = prometheus.DefaultRegisterer

// Handler returns the scrape handler for the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Metrics Documentation
//
// Gateway Metrics (pkg/gateway):
//   - offline_gateway_requests_total{policy, outcome} (Counter): Handled requests by policy and outcome (cache, network, unavailable, error)
//   - offline_gateway_request_duration_seconds{policy} (Histogram): Time until Handle returned
//   - offline_gateway_revalidations_total{outcome} (Counter): Background live fetches (stored, not_cacheable, failed, queued)
//   - offline_gateway_replays_total{outcome} (Counter): Retry queue items processed by sweeps (replayed, failed, expired)
//
// Cache Metrics (pkg/cache):
//   - offline_cache_hits_total{bucket} (Counter): Cache hits
//   - offline_cache_misses_total{bucket} (Counter): Cache misses
//   - offline_cache_writes_total{bucket} (Counter): Entries written
//   - offline_cache_rejected_total{bucket} (Counter): Writes refused for a non-cacheable status
//   - offline_cache_errors_total{operation} (Counter): Store errors (get, put, delete)
//
// Retry Queue Metrics (pkg/queue):
//   - offline_retry_queue_depth (Gauge): Requests waiting for replay
//   - offline_retry_queue_enqueued_total (Counter): Requests enqueued
//   - offline_retry_queue_removed_total (Counter): Requests removed (replayed or expired)
//
// Fetch Metrics (pkg/client):
//   - offline_fetch_requests_total{method, status} (Counter): Live fetches by method and HTTP status
//   - offline_fetch_duration_seconds{method} (Histogram): Live fetch duration
//   - offline_fetch_errors_total{class} (Counter): Transport failures (network, timeout, canceled, body)
//
// Connectivity Metrics (pkg/connectivity):
//   - offline_network_online (Gauge): 1 when the network is reachable
//   - offline_network_transitions_total{to} (Counter): Online/offline transitions
//
// Example Prometheus Queries:
//
//   # Image Cache Hit Rate
//   sum(rate(offline_cache_hits_total{bucket="images"}[5m])) /
//   (sum(rate(offline_cache_hits_total{bucket="images"}[5m])) + sum(rate(offline_cache_misses_total{bucket="images"}[5m])))
//
//   # Requests Served While Offline
//   rate(offline_gateway_requests_total{outcome="cache"}[5m]) and on() offline_network_online == 0
//
//   # Backlog Waiting For Replay
//   offline_retry_queue_depth > 0
//
//   # Dropped Writes
//   increase(offline_gateway_replays_total{outcome="expired"}[1h])
//
//   # P95 Fetch Latency
//   histogram_quantile(0.95, rate(offline_fetch_duration_seconds_bucket[5m]))
