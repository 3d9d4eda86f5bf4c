package queue

import (
	"context"
	"sort"
	"sync"
)

// MemoryQueue is an in-process Queue.
type MemoryQueue struct {
	mu    sync.Mutex
	items []Item
}

// Verify interface implementation
var _ Queue = (*MemoryQueue)(nil)

// NewMemoryQueue creates an empty in-memory queue.
func NewMemoryQueue() *MemoryQueue {
	return &MemoryQueue{}
}

// Enqueue appends an item, keeping the queue ordered by enqueue time.
func (q *MemoryQueue) Enqueue(_ context.Context, item Item) error {
	if err := validate(item); err != nil {
		return err
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	// Insert after every item enqueued at or before this one so equal
	// timestamps keep arrival order.
	i := sort.Search(len(q.items), func(i int) bool {
		return q.items[i].EnqueuedAt.After(item.EnqueuedAt)
	})
	q.items = append(q.items, Item{})
	copy(q.items[i+1:], q.items[i:])
	q.items[i] = item

	queueEnqueuedTotal.Inc()
	queueDepth.Set(float64(len(q.items)))
	return nil
}

// List returns a snapshot of the queue, oldest first.
func (q *MemoryQueue) List(_ context.Context) ([]Item, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	out := make([]Item, len(q.items))
	copy(out, q.items)
	return out, nil
}

// Remove deletes an item by ID.
func (q *MemoryQueue) Remove(_ context.Context, id string) (bool, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	for i, item := range q.items {
		if item.ID == id {
			q.items = append(q.items[:i], q.items[i+1:]...)
			queueRemovedTotal.Inc()
			queueDepth.Set(float64(len(q.items)))
			return true, nil
		}
	}
	return false, nil
}

// Len returns the number of queued items.
func (q *MemoryQueue) Len(_ context.Context) (int, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items), nil
}
