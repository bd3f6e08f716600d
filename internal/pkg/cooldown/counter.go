package cooldown

import (
	"context"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/redis/go-redis/v9"
)

// Counter counts events per key inside a window that opens at the first
// event. Incr is atomic, so concurrent callers always see distinct totals.
type Counter interface {
	// Incr records one event and returns the total within the window.
	Incr(ctx context.Context, key string, window time.Duration) (int64, error)
	// Reset drops the total for key.
	Reset(ctx context.Context, key string) error
}

// RedisCounter keeps one INCR key per counter. The expiry is set only by the
// first event so later events do not extend the window.
type RedisCounter struct {
	client redis.UniversalClient
	prefix string
}

func NewRedisCounter(client redis.UniversalClient, prefix string) *RedisCounter {
	return &RedisCounter{client: client, prefix: prefix}
}

func (c *RedisCounter) Incr(ctx context.Context, key string, window time.Duration) (int64, error) {
	fk := c.prefix + key

	var total *redis.IntCmd
	_, err := c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		total = pipe.Incr(ctx, fk)
		pipe.ExpireNX(ctx, fk, max(window, time.Second))
		return nil
	})
	if err != nil {
		return 0, err
	}

	return total.Val(), nil
}

func (c *RedisCounter) Reset(ctx context.Context, key string) error {
	return c.client.Del(ctx, c.prefix+key).Err()
}

// MemoryCounter is the in-process Counter used when no shared store is
// configured or the shared one fails.
type MemoryCounter struct {
	items *cache.Cache
}

func NewMemoryCounter() *MemoryCounter {
	return &MemoryCounter{items: cache.New(cache.NoExpiration, time.Minute)}
}

func (c *MemoryCounter) Incr(_ context.Context, key string, window time.Duration) (int64, error) {
	for {
		// Add is a no-op while an unexpired total exists.
		_ = c.items.Add(key, int64(0), max(window, time.Second))

		n, err := c.items.IncrementInt64(key, 1)
		if err == nil {
			return n, nil
		}
		// the total expired between Add and IncrementInt64; open a new window
	}
}

func (c *MemoryCounter) Reset(_ context.Context, key string) error {
	c.items.Delete(key)
	return nil
}
