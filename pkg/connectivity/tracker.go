package connectivity

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
)

// Prometheus metrics for connectivity tracking.
var (
	onlineGauge = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "offline_network_online",
		Help: "1 when the network is considered reachable, 0 otherwise",
	})

	transitionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "offline_network_transitions_total",
		Help: "Total number of connectivity transitions by direction",
	}, []string{"to"}) // "online", "offline"
)

// Tracker observes fetch outcomes and derives the connectivity state.
type Tracker struct {
	mu        sync.Mutex
	state     State
	threshold int
	now       func() time.Time
	logger    zerolog.Logger
	subs      []chan struct{}
}

// NewTracker creates a tracker that starts online.
// A threshold below 1 falls back to DefaultFailureThreshold.
func NewTracker(threshold int, logger zerolog.Logger) *Tracker {
	if threshold < 1 {
		threshold = DefaultFailureThreshold
	}
	onlineGauge.Set(1)
	return &Tracker{
		state:     State{Online: true},
		threshold: threshold,
		now:       time.Now,
		logger:    logger,
	}
}

// SetClock replaces the time source (for testing).
func (t *Tracker) SetClock(now func() time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.now = now
}

// RecordSuccess notes a completed fetch. An offline tracker goes back online
// and notifies subscribers.
func (t *Tracker) RecordSuccess() {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now()
	t.state.LastSuccess = now
	t.state.ConsecutiveFailures = 0

	if t.state.Online {
		return
	}

	offlineFor := t.state.OfflineFor(now)
	t.state.Online = true
	t.state.LastChange = now
	onlineGauge.Set(1)
	transitionsTotal.WithLabelValues("online").Inc()

	t.logger.Info().
		Dur("offline_for", offlineFor).
		Msg("Network back online")

	for _, ch := range t.subs {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

// RecordFailure notes a transport failure.
func (t *Tracker) RecordFailure(err error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now()
	t.state.LastFailure = now
	t.state.ConsecutiveFailures++

	if !t.state.Online || t.state.ConsecutiveFailures < t.threshold {
		t.logger.Debug().
			Err(err).
			Int("consecutive_failures", t.state.ConsecutiveFailures).
			Msg("Fetch failed")
		return
	}

	t.state.Online = false
	t.state.LastChange = now
	onlineGauge.Set(0)
	transitionsTotal.WithLabelValues("offline").Inc()

	t.logger.Warn().
		Err(err).
		Int("consecutive_failures", t.state.ConsecutiveFailures).
		Msg("Network offline")
}

// State returns a snapshot of the current state.
func (t *Tracker) State() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// Online reports whether the network is considered reachable.
func (t *Tracker) Online() bool {
	return t.State().Online
}

// Subscribe returns a channel that receives a signal on every offline to
// online transition. Signals are coalesced when the receiver is slow.
func (t *Tracker) Subscribe() <-chan struct{} {
	t.mu.Lock()
	defer t.mu.Unlock()

	ch := make(chan struct{}, 1)
	t.subs = append(t.subs, ch)
	return ch
}
