package queue

import (
	"context"
	"errors"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ErrInvalidItem indicates an item without an ID or request
	ErrInvalidItem = errors.New("invalid queue item")
)

var (
	queueDepth = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "offline_retry_queue_depth",
		Help: "Number of requests waiting for replay",
	})

	queueEnqueuedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "offline_retry_queue_enqueued_total",
		Help: "Total number of requests enqueued for replay",
	})

	queueRemovedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "offline_retry_queue_removed_total",
		Help: "Total number of requests removed from the retry queue",
	})
)

// Queue is a FIFO of requests awaiting replay.
type Queue interface {
	// Enqueue appends an item.
	Enqueue(ctx context.Context, item Item) error

	// List returns all items ordered by enqueue time, oldest first.
	List(ctx context.Context) ([]Item, error)

	// Remove deletes the item with id and reports whether this call removed it.
	Remove(ctx context.Context, id string) (bool, error)

	// Len returns the number of queued items.
	Len(ctx context.Context) (int, error)
}

func validate(item Item) error {
	if item.ID == "" {
		return errors.Join(ErrInvalidItem, errors.New("empty id"))
	}
	if item.Request == nil {
		return errors.Join(ErrInvalidItem, errors.New("nil request"))
	}
	return nil
}
