package cache

import (
	"context"
	"errors"
	"fmt"
	"time"
)

var (
	// ErrCacheMiss indicates the requested key was not found in the bucket
	ErrCacheMiss = errors.New("cache miss")

	// ErrInvalidEntry indicates the stored entry is invalid or corrupted
	ErrInvalidEntry = errors.New("invalid cache entry")

	// ErrNotCacheable indicates a write of a response whose status is not allow-listed
	ErrNotCacheable = errors.New("response status not cacheable")

	// ErrUnknownBucket indicates an operation on a bucket the store was not configured with
	ErrUnknownBucket = errors.New("unknown cache bucket")
)

// Store is a key-value store partitioned by bucket.
// Implementations must be safe for concurrent use. Writes are last-write-wins
// per key; entries may be evicted at any time.
type Store interface {
	// Get returns the entry stored under key in bucket, or ErrCacheMiss.
	Get(ctx context.Context, bucket, key string) (*Entry, error)

	// Put stores entry in entry.Bucket, replacing any previous entry for entry.Key.
	// Entries with a non-cacheable status are refused with ErrNotCacheable.
	Put(ctx context.Context, entry *Entry) error

	// Delete removes an entry. Deleting a missing entry is not an error.
	Delete(ctx context.Context, bucket, key string) error
}

// BucketConfig is the eviction policy of one bucket.
type BucketConfig struct {
	// Name identifies the bucket (e.g. "images")
	Name string `yaml:"name"`

	// MaxEntries bounds the number of entries; 0 means unbounded.
	MaxEntries int `yaml:"max_entries"`

	// MaxAge evicts entries older than this; 0 means entries never age out.
	MaxAge time.Duration `yaml:"max_age"`
}

// Validate checks the bucket configuration.
func (c BucketConfig) Validate() error {
	if err := ValidateBucketName(c.Name); err != nil {
		return err
	}
	if c.MaxEntries < 0 {
		return fmt.Errorf("bucket %s: max_entries must be >= 0 (got %d)", c.Name, c.MaxEntries)
	}
	if c.MaxAge < 0 {
		return fmt.Errorf("bucket %s: max_age must be >= 0 (got %s)", c.Name, c.MaxAge)
	}
	return nil
}

// checkPut validates an entry before it is written and records the refusal metric.
func checkPut(entry *Entry) error {
	if entry == nil {
		return fmt.Errorf("cache entry cannot be nil")
	}
	if entry.Key == "" {
		return fmt.Errorf("%w: empty key", ErrInvalidEntry)
	}
	if !entry.Cacheable() {
		CacheRejected.WithLabelValues(entry.Bucket).Inc()
		return fmt.Errorf("%w: status %d", ErrNotCacheable, entry.StatusCode)
	}
	return nil
}
