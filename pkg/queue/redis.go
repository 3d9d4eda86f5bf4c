package queue

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// Redis keys for queue storage.
const (
	// RedisKeyOrder is a sorted set of item IDs scored by enqueue time (ms)
	RedisKeyOrder = "offline:queue:order"

	// RedisKeyItems is a hash of item ID to JSON item
	RedisKeyItems = "offline:queue:items"
)

// RedisQueue is a Queue shared through Redis.
type RedisQueue struct {
	redis *redis.Client
}

// Verify interface implementation
var _ Queue = (*RedisQueue)(nil)

// NewRedisQueue creates a Redis-backed queue.
func NewRedisQueue(redisClient *redis.Client) *RedisQueue {
	if redisClient == nil {
		panic("redis client cannot be nil")
	}
	return &RedisQueue{redis: redisClient}
}

// Enqueue stores the item and its position atomically.
func (q *RedisQueue) Enqueue(ctx context.Context, item Item) error {
	if err := validate(item); err != nil {
		return err
	}

	data, err := json.Marshal(item)
	if err != nil {
		return fmt.Errorf("marshal queue item: %w", err)
	}

	var card *redis.IntCmd
	_, err = q.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, RedisKeyItems, item.ID, data)
		pipe.ZAdd(ctx, RedisKeyOrder, redis.Z{
			Score:  float64(item.EnqueuedAt.UnixMilli()),
			Member: item.ID,
		})
		card = pipe.ZCard(ctx, RedisKeyOrder)
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis enqueue: %w", err)
	}

	queueEnqueuedTotal.Inc()
	queueDepth.Set(float64(card.Val()))
	return nil
}

// List returns all items, oldest first. Items whose payload vanished are
// skipped and their position is dropped from the order set.
func (q *RedisQueue) List(ctx context.Context) ([]Item, error) {
	ids, err := q.redis.ZRange(ctx, RedisKeyOrder, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("redis zrange: %w", err)
	}
	if len(ids) == 0 {
		queueDepth.Set(0)
		return nil, nil
	}

	values, err := q.redis.HMGet(ctx, RedisKeyItems, ids...).Result()
	if err != nil {
		return nil, fmt.Errorf("redis hmget: %w", err)
	}

	var orphans []interface{}
	items := make([]Item, 0, len(values))
	for i, v := range values {
		raw, ok := v.(string)
		if !ok {
			orphans = append(orphans, ids[i])
			continue
		}
		var item Item
		if err := json.Unmarshal([]byte(raw), &item); err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrInvalidItem, ids[i], err)
		}
		items = append(items, item)
	}

	if len(orphans) == 0 {
		queueDepth.Set(float64(len(ids)))
		return items, nil
	}
	if err := q.dropOrphans(ctx, orphans); err != nil {
		return nil, err
	}
	return items, nil
}

// dropOrphans removes order entries without a payload. A concurrent Remove
// may already have dropped some of them, which ZREM tolerates.
func (q *RedisQueue) dropOrphans(ctx context.Context, ids []interface{}) error {
	var card *redis.IntCmd
	_, err := q.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.ZRem(ctx, RedisKeyOrder, ids...)
		card = pipe.ZCard(ctx, RedisKeyOrder)
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis drop orphans: %w", err)
	}
	queueDepth.Set(float64(card.Val()))
	return nil
}

// Remove deletes an item and reports whether this call removed it.
func (q *RedisQueue) Remove(ctx context.Context, id string) (bool, error) {
	var zrem, card *redis.IntCmd
	_, err := q.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		zrem = pipe.ZRem(ctx, RedisKeyOrder, id)
		pipe.HDel(ctx, RedisKeyItems, id)
		card = pipe.ZCard(ctx, RedisKeyOrder)
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("redis remove: %w", err)
	}

	queueDepth.Set(float64(card.Val()))
	removed := zrem.Val() == 1
	if removed {
		queueRemovedTotal.Inc()
	}
	return removed, nil
}

// Len returns the number of queued items.
func (q *RedisQueue) Len(ctx context.Context) (int, error) {
	n, err := q.redis.ZCard(ctx, RedisKeyOrder).Result()
	if err != nil {
		return 0, fmt.Errorf("redis zcard: %w", err)
	}
	return int(n), nil
}
