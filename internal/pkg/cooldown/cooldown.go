// Package cooldown throttles and counts repeated actions per key.
package cooldown

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// Limiter decides whether an action keyed by key may run now.
type Limiter interface {
	// Acquire returns true when the action may proceed and starts a new
	// window of length window. When it returns false, retryAfter is the
	// remaining wait.
	Acquire(ctx context.Context, key string, window time.Duration) (ok bool, retryAfter time.Duration, err error)
	// Release ends the window early.
	Release(ctx context.Context, key string) error
}

// Redis implements Limiter with one expiring key per action.
type Redis struct {
	client redis.UniversalClient
	prefix string
}

func NewRedis(client redis.UniversalClient, prefix string) *Redis {
	return &Redis{client: client, prefix: prefix}
}

func (r *Redis) Acquire(ctx context.Context, key string, window time.Duration) (bool, time.Duration, error) {
	fk := r.prefix + key

	ok, err := r.client.SetNX(ctx, fk, 1, window).Result()
	if err != nil {
		return false, 0, err
	}
	if ok {
		return true, 0, nil
	}

	ttl, err := r.client.PTTL(ctx, fk).Result()
	if err != nil {
		return false, 0, err
	}
	if ttl < 0 {
		// key vanished or has no expiry; report the full window
		ttl = window
	}

	return false, ttl, nil
}

func (r *Redis) Release(ctx context.Context, key string) error {
	return r.client.Del(ctx, r.prefix+key).Err()
}
