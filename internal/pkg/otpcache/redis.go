package otpcache

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sethvargo/go-retry"
	"go.uber.org/atomic"
)

// RedisConfig configures a Redis backend built by NewRedis.
type RedisConfig struct {
	// URL is a redis:// or rediss:// connection string.
	URL string
	// Password overrides the password in URL when set.
	Password string
	// DialTimeout, ReadTimeout and WriteTimeout override the client defaults.
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	// CommandMaxRetries is passed to the client as MaxRetries (-1 disables).
	CommandMaxRetries int
	// Retry bounds the eager connection attempt.
	Retry RetryPolicy
}

// Redis is a shared Backend storing JSON records under "otp:<phone>" with
// native expiry.
type Redis struct {
	client redis.UniversalClient
	retry  RetryPolicy
	owned  bool
	ready  *atomic.Bool
	closed *atomic.Bool
}

// NewRedis parses cfg.URL and builds a client. It does not contact the
// server; call Connect for the eager attempt.
func NewRedis(cfg RedisConfig) (*Redis, error) {
	opt, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, err
	}

	if cfg.Password != "" {
		opt.Password = cfg.Password
	}
	if cfg.DialTimeout > 0 {
		opt.DialTimeout = cfg.DialTimeout
	}
	if cfg.ReadTimeout > 0 {
		opt.ReadTimeout = cfg.ReadTimeout
	}
	if cfg.WriteTimeout > 0 {
		opt.WriteTimeout = cfg.WriteTimeout
	}
	if cfg.CommandMaxRetries != 0 {
		opt.MaxRetries = cfg.CommandMaxRetries
	}

	r := NewRedisFromClient(redis.NewClient(opt), cfg.Retry)
	r.owned = true

	return r, nil
}

// NewRedisFromClient wraps an existing client. The caller keeps ownership of
// the client and Close leaves it open.
func NewRedisFromClient(client redis.UniversalClient, policy RetryPolicy) *Redis {
	return &Redis{
		client: client,
		retry:  policy.withDefaults(),
		ready:  atomic.NewBool(false),
		closed: atomic.NewBool(false),
	}
}

// Name implements Backend.
func (*Redis) Name() string { return "redis" }

// Connect pings the server under the retry policy. Failures are logged and
// returned for information only; the backend stays usable and every later
// call simply fails over until the server answers.
func (r *Redis) Connect(ctx context.Context) error {
	attempt := 0
	err := retry.Do(ctx, r.retry.Backoff(), func(ctx context.Context) error {
		attempt++
		if err := r.client.Ping(ctx).Err(); err != nil {
			slog.WarnContext(ctx, "otp redis connection attempt failed", "attempt", attempt, "error", err)
			return retry.RetryableError(err)
		}
		return nil
	})
	if err != nil {
		slog.ErrorContext(ctx, "otp redis unreachable, serving from local fallback", "attempts", attempt, "error", err)
		return err
	}

	r.ready.Store(true)
	slog.InfoContext(ctx, "otp redis connected", "attempts", attempt)

	return nil
}

// Ping checks the server now and records the outcome for Ready.
func (r *Redis) Ping(ctx context.Context) error {
	err := r.client.Ping(ctx).Err()
	r.ready.Store(err == nil)
	return err
}

// Ready reports the outcome of the latest Connect or Ping.
func (r *Redis) Ready() bool {
	return r.ready.Load()
}

// Set writes the encoded record with SETEX.
func (r *Redis) Set(ctx context.Context, phone string, entry Entry) error {
	return r.client.SetEx(ctx, namespacedKey(phone), entry.Encoded, entry.TTL()).Err()
}

// Get reads and decodes the record. An expired key reads as ErrNotFound.
func (r *Redis) Get(ctx context.Context, phone string) (*Record, error) {
	raw, err := r.client.Get(ctx, namespacedKey(phone)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	var rec Record
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, errors.Join(ErrDeserialize, err)
	}

	return &rec, nil
}

// Delete removes the key; a missing key is not an error.
func (r *Redis) Delete(ctx context.Context, phone string) error {
	return r.client.Del(ctx, namespacedKey(phone)).Err()
}

// Close closes the client when this backend created it.
func (r *Redis) Close() error {
	if r.closed.Swap(true) || !r.owned {
		return nil
	}

	return r.client.Close()
}
