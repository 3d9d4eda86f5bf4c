package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// RedisStore handles bucket storage with a Redis backend.
type RedisStore struct {
	redis   *redis.Client
	buckets map[string]BucketConfig
}

// Verify interface implementation
var _ Store = (*RedisStore)(nil)

// NewRedisStore creates a Redis-backed store with the given buckets.
func NewRedisStore(redisClient *redis.Client, buckets ...BucketConfig) (*RedisStore, error) {
	if redisClient == nil {
		panic("redis client cannot be nil")
	}
	if len(buckets) == 0 {
		return nil, fmt.Errorf("at least one bucket is required")
	}

	s := &RedisStore{
		redis:   redisClient,
		buckets: make(map[string]BucketConfig, len(buckets)),
	}
	for _, b := range buckets {
		if err := b.Validate(); err != nil {
			return nil, err
		}
		if _, dup := s.buckets[b.Name]; dup {
			return nil, fmt.Errorf("duplicate bucket %q", b.Name)
		}
		s.buckets[b.Name] = b
	}
	return s, nil
}

// Get retrieves an entry by bucket and key.
// Returns ErrCacheMiss if the key doesn't exist or was evicted.
func (s *RedisStore) Get(ctx context.Context, bucket, key string) (*Entry, error) {
	if _, ok := s.buckets[bucket]; !ok {
		CacheErrors.WithLabelValues("get").Inc()
		return nil, fmt.Errorf("%w: %s", ErrUnknownBucket, bucket)
	}

	data, err := s.redis.Get(ctx, StorageKey(bucket, key)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			CacheMisses.WithLabelValues(bucket).Inc()
			return nil, ErrCacheMiss
		}
		CacheErrors.WithLabelValues("get").Inc()
		return nil, fmt.Errorf("redis get: %w", err)
	}

	var entry Entry
	if err := json.Unmarshal(data, &entry); err != nil {
		CacheErrors.WithLabelValues("get").Inc()
		return nil, fmt.Errorf("%w: %v", ErrInvalidEntry, err)
	}

	CacheHits.WithLabelValues(bucket).Inc()
	return &entry, nil
}

// Put stores an entry with the bucket's MaxAge as TTL (no TTL when zero).
func (s *RedisStore) Put(ctx context.Context, entry *Entry) error {
	if err := checkPut(entry); err != nil {
		return err
	}

	cfg, ok := s.buckets[entry.Bucket]
	if !ok {
		CacheErrors.WithLabelValues("put").Inc()
		return fmt.Errorf("%w: %s", ErrUnknownBucket, entry.Bucket)
	}

	data, err := json.Marshal(entry)
	if err != nil {
		CacheErrors.WithLabelValues("put").Inc()
		return fmt.Errorf("marshal cache entry: %w", err)
	}

	if err := s.redis.Set(ctx, StorageKey(entry.Bucket, entry.Key), data, cfg.MaxAge).Err(); err != nil {
		CacheErrors.WithLabelValues("put").Inc()
		return fmt.Errorf("redis set: %w", err)
	}

	CacheWrites.WithLabelValues(entry.Bucket).Inc()
	return nil
}

// Delete removes an entry.
func (s *RedisStore) Delete(ctx context.Context, bucket, key string) error {
	if err := s.redis.Del(ctx, StorageKey(bucket, key)).Err(); err != nil {
		CacheErrors.WithLabelValues("delete").Inc()
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}
