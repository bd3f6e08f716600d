package otpcache

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/docker/go-connections/nat"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcredis "github.com/testcontainers/testcontainers-go/modules/redis"
)

func unreachableRedis(t *testing.T) *Redis {
	t.Helper()

	r, err := NewRedis(RedisConfig{
		URL:               "redis://127.0.0.1:1/0",
		DialTimeout:       100 * time.Millisecond,
		ReadTimeout:       100 * time.Millisecond,
		WriteTimeout:      100 * time.Millisecond,
		CommandMaxRetries: -1,
		Retry:             RetryPolicy{MaxAttempts: 2, BaseDelay: 10 * time.Millisecond},
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = r.Close() })

	return r
}

func TestNewRedis_InvalidURL(t *testing.T) {
	_, err := NewRedis(RedisConfig{URL: "http://not-redis"})
	assert.Error(t, err)
}

func TestRedis_ConnectUnreachable(t *testing.T) {
	r := unreachableRedis(t)

	err := r.Connect(context.Background())

	assert.Error(t, err)
	assert.False(t, r.Ready())
}

func TestRedis_PingTracksOutage(t *testing.T) {
	r := unreachableRedis(t)
	r.ready.Store(true)

	err := r.Ping(context.Background())

	assert.Error(t, err)
	assert.False(t, r.Ready())
}

func TestRedis_UnreachableFallsBackToLocal(t *testing.T) {
	// Arrange
	ctx := context.Background()
	c := New(Config{Mode: ModeDistributed, Primary: unreachableRedis(t)})
	phone := "+15551234567"
	rec := NewRecord("123456", time.Now().Add(5*time.Minute))

	// Act & Assert
	require.NoError(t, c.Set(ctx, phone, rec))
	assert.Equal(t, 1, c.local.Len())

	got, err := c.Get(ctx, phone)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "123456", got.Code)

	require.NoError(t, c.Delete(ctx, phone))
	assert.Equal(t, 0, c.local.Len())

	require.NoError(t, c.Close())
	require.NoError(t, c.Close())
}

func TestRedis_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("integration test")
	}
	testcontainers.SkipIfProviderIsNotHealthy(t)

	ctx := context.Background()

	ctr, err := tcredis.Run(ctx, "redis:7-alpine")
	testcontainers.CleanupContainer(t, ctr)
	require.NoError(t, err)

	host, err := ctr.Host(ctx)
	require.NoError(t, err)
	port, err := ctr.MappedPort(ctx, nat.Port("6379/tcp"))
	require.NoError(t, err)

	r, err := NewRedis(RedisConfig{URL: "redis://" + host + ":" + port.Port() + "/0"})
	require.NoError(t, err)
	assert.False(t, r.Ready())

	// a server that comes up after startup is picked up by Ping
	require.NoError(t, r.Ping(ctx))
	assert.True(t, r.Ready())
	require.NoError(t, r.Connect(ctx))
	assert.True(t, r.Ready())

	c := New(Config{Mode: ModeDistributed, Primary: r})
	t.Cleanup(func() { _ = c.Close() })

	phone := "+15551234567"
	rec := Record{
		Code:      "123456",
		ExpiresAt: time.Now().Add(5 * time.Minute).UnixMilli(),
		Meta:      map[string]any{"request_id": "42"},
	}

	t.Run("StoresJSONWithTTL", func(t *testing.T) {
		require.NoError(t, c.Set(ctx, phone, rec))
		assert.Equal(t, 0, c.local.Len())

		raw, err := r.client.Get(ctx, "otp:"+phone).Bytes()
		require.NoError(t, err)
		var stored Record
		require.NoError(t, json.Unmarshal(raw, &stored))
		assert.Equal(t, rec.Code, stored.Code)

		ttl, err := r.client.TTL(ctx, "otp:"+phone).Result()
		require.NoError(t, err)
		assert.Greater(t, ttl, 290*time.Second)
		assert.LessOrEqual(t, ttl, 300*time.Second)
	})

	t.Run("RoundTrip", func(t *testing.T) {
		got, err := c.Get(ctx, phone)
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, rec.Code, got.Code)
		assert.Equal(t, rec.ExpiresAt, got.ExpiresAt)
		assert.Equal(t, "42", got.Meta["request_id"])
	})

	t.Run("DeleteIsIdempotent", func(t *testing.T) {
		require.NoError(t, c.Delete(ctx, phone))
		require.NoError(t, c.Delete(ctx, phone))

		got, err := c.Get(ctx, phone)
		assert.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("CorruptValue", func(t *testing.T) {
		require.NoError(t, r.client.Set(ctx, "otp:+15550009999", "not-json", time.Minute).Err())

		_, err := c.Get(ctx, "+15550009999")
		assert.ErrorIs(t, err, ErrDeserialize)
	})

	t.Run("ExpiredRecordVanishes", func(t *testing.T) {
		require.NoError(t, c.Set(ctx, "+15550008888", NewRecord("1", time.Now().Add(-time.Second))))

		assert.Eventually(t, func() bool {
			err := r.client.Get(ctx, "otp:+15550008888").Err()
			return err == redis.Nil
		}, 3*time.Second, 100*time.Millisecond)
	})

	// must stay last: stops the server
	t.Run("ReadyFollowsOutage", func(t *testing.T) {
		require.NoError(t, ctr.Stop(ctx, nil))

		pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		defer cancel()
		assert.Error(t, r.Ping(pingCtx))
		assert.False(t, r.Ready())
	})
}
