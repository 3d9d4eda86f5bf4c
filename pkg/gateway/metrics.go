package gateway

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	gatewayRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "offline_gateway_requests_total",
		Help: "Total requests handled by policy and outcome",
	}, []string{"policy", "outcome"}) // outcome: "cache", "network", "unavailable", "error"

	gatewayRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "offline_gateway_request_duration_seconds",
		Help:    "Time until Handle returned, by policy",
		Buckets: []float64{0.001, 0.01, 0.05, 0.1, 0.5, 1, 5},
	}, []string{"policy"})

	gatewayRevalidationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "offline_gateway_revalidations_total",
		Help: "Total background live fetches by outcome",
	}, []string{"outcome"}) // "stored", "not_cacheable", "failed", "queued"

	gatewayPrecachesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "offline_gateway_precaches_total",
		Help: "Total precache fetches by policy and outcome",
	}, []string{"policy", "outcome"}) // outcome: "network", "error"

	gatewayReplaysTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "offline_gateway_replays_total",
		Help: "Total retry queue items processed by sweeps, by outcome",
	}, []string{"outcome"}) // "replayed", "failed", "expired"
)
