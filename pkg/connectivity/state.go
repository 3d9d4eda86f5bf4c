// Package connectivity tracks whether the network is reachable, based on the
// outcome of live fetches. It gives the hosting application an offline
// indicator and tells the replay worker when connectivity has returned.
package connectivity

import (
	"time"
)

// DefaultFailureThreshold is the number of consecutive transport failures
// after which the network is considered offline.
const DefaultFailureThreshold = 1

// State represents the current connectivity state.
type State struct {
	// Online is false once consecutive failures reach the threshold.
	Online bool `json:"online"`

	// ConsecutiveFailures counts transport failures since the last success.
	ConsecutiveFailures int `json:"consecutive_failures"`

	// LastSuccess is when a fetch last completed.
	LastSuccess time.Time `json:"last_success"`

	// LastFailure is when a fetch last failed at the transport level.
	LastFailure time.Time `json:"last_failure"`

	// LastChange is when Online last flipped.
	LastChange time.Time `json:"last_change"`
}

// OfflineFor returns how long the network has been offline at now.
// Returns 0 while online.
func (s State) OfflineFor(now time.Time) time.Duration {
	if s.Online || s.LastChange.IsZero() {
		return 0
	}
	d := now.Sub(s.LastChange)
	if d < 0 {
		return 0
	}
	return d
}
