// Package queue holds mutating requests that failed while offline until they
// can be replayed.
//
// The queue is FIFO by enqueue time. Every item is removed exactly once:
// either after a successful replay or after its retention deadline has
// passed. Remove reports which caller actually removed an item so a replay
// loop can tell whether it won a race with another sweep.
package queue

import (
	"time"

	"github.com/Sternrassler/offline-cache-gateway/pkg/fetch"
	"github.com/google/uuid"
)

// Item is a queued request awaiting replay.
type Item struct {
	// ID is a time-ordered UUIDv7
	ID string `json:"id"`

	// Request is the original request, replayed verbatim
	Request *fetch.Request `json:"request"`

	// EnqueuedAt is when the request was queued
	EnqueuedAt time.Time `json:"enqueued_at"`

	// Deadline is when the item is discarded if still unsent
	Deadline time.Time `json:"deadline"`
}

// NewItem creates an item for req that is retained for retention after now.
func NewItem(req *fetch.Request, now time.Time, retention time.Duration) Item {
	return Item{
		ID:         uuid.Must(uuid.NewV7()).String(),
		Request:    req.Clone(),
		EnqueuedAt: now,
		Deadline:   now.Add(retention),
	}
}

// Expired reports whether the retention deadline has passed at now.
func (i Item) Expired(now time.Time) bool {
	return now.After(i.Deadline)
}
