package cache

import (
	"context"
	"fmt"

	"github.com/maypok86/otter/v2"
)

// MemoryStore is an in-process Store with one W-TinyLFU cache per bucket.
type MemoryStore struct {
	buckets map[string]*otter.Cache[string, *Entry]
}

// Verify interface implementation
var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates a memory store with the given buckets.
func NewMemoryStore(buckets ...BucketConfig) (*MemoryStore, error) {
	if len(buckets) == 0 {
		return nil, fmt.Errorf("at least one bucket is required")
	}

	m := &MemoryStore{buckets: make(map[string]*otter.Cache[string, *Entry], len(buckets))}
	for _, b := range buckets {
		if err := b.Validate(); err != nil {
			return nil, err
		}
		if _, dup := m.buckets[b.Name]; dup {
			return nil, fmt.Errorf("duplicate bucket %q", b.Name)
		}

		opts := &otter.Options[string, *Entry]{
			MaximumSize: b.MaxEntries,
		}
		if b.MaxAge > 0 {
			opts.ExpiryCalculator = otter.ExpiryWriting[string, *Entry](b.MaxAge)
		}

		c, err := otter.New[string, *Entry](opts)
		if err != nil {
			return nil, fmt.Errorf("create bucket %s: %w", b.Name, err)
		}
		m.buckets[b.Name] = c
	}
	return m, nil
}

// Get retrieves an entry from a bucket.
func (m *MemoryStore) Get(_ context.Context, bucket, key string) (*Entry, error) {
	c, ok := m.buckets[bucket]
	if !ok {
		CacheErrors.WithLabelValues("get").Inc()
		return nil, fmt.Errorf("%w: %s", ErrUnknownBucket, bucket)
	}

	e, ok := c.GetIfPresent(key)
	if !ok {
		CacheMisses.WithLabelValues(bucket).Inc()
		return nil, ErrCacheMiss
	}

	CacheHits.WithLabelValues(bucket).Inc()
	out := *e
	return &out, nil
}

// Put stores an entry, replacing any previous entry for the same key.
func (m *MemoryStore) Put(_ context.Context, entry *Entry) error {
	if err := checkPut(entry); err != nil {
		return err
	}

	c, ok := m.buckets[entry.Bucket]
	if !ok {
		CacheErrors.WithLabelValues("put").Inc()
		return fmt.Errorf("%w: %s", ErrUnknownBucket, entry.Bucket)
	}

	stored := *entry
	c.Set(entry.Key, &stored)
	CacheWrites.WithLabelValues(entry.Bucket).Inc()
	return nil
}

// Delete removes an entry from a bucket.
func (m *MemoryStore) Delete(_ context.Context, bucket, key string) error {
	c, ok := m.buckets[bucket]
	if !ok {
		CacheErrors.WithLabelValues("delete").Inc()
		return fmt.Errorf("%w: %s", ErrUnknownBucket, bucket)
	}
	c.Invalidate(key)
	return nil
}

// Purge removes every entry of a bucket.
func (m *MemoryStore) Purge(bucket string) {
	if c, ok := m.buckets[bucket]; ok {
		c.InvalidateAll()
	}
}
