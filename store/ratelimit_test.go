package store

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestRedis(t *testing.T) (*redis.Client, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rc := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rc.Close() })
	return rc, mr
}

func rateLimitStores(t *testing.T) map[string]RateLimitStore {
	rc, _ := setupTestRedis(t)
	return map[string]RateLimitStore{
		"memory": NewMemoryRateLimitStore(),
		"redis":  NewRedisRateLimitStore(rc),
	}
}

func TestRateLimitStore_FixedWindow(t *testing.T) {
	for name, s := range rateLimitStores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			start := time.UnixMilli(1_700_000_000_000)
			window := 300 * time.Second

			first, err := s.Hit(ctx, "1.2.3.4", start, window)
			require.NoError(t, err)
			assert.Equal(t, int64(1), first.Count)
			assert.True(t, first.WindowResetTime.Equal(start.Add(window)))

			rec, err := s.Hit(ctx, "1.2.3.4", start.Add(10*time.Second), window)
			require.NoError(t, err)
			assert.Equal(t, int64(2), rec.Count)
			assert.True(t, rec.WindowResetTime.Equal(first.WindowResetTime))

			// the reset instant itself still belongs to the old window
			rec, err = s.Hit(ctx, "1.2.3.4", first.WindowResetTime, window)
			require.NoError(t, err)
			assert.Equal(t, int64(3), rec.Count)

			after := first.WindowResetTime.Add(time.Millisecond)
			rec, err = s.Hit(ctx, "1.2.3.4", after, window)
			require.NoError(t, err)
			assert.Equal(t, int64(1), rec.Count)
			assert.True(t, rec.WindowResetTime.Equal(after.Add(window)))

			other, err := s.Hit(ctx, "5.6.7.8", start, window)
			require.NoError(t, err)
			assert.Equal(t, int64(1), other.Count)

			require.NoError(t, s.Reset(ctx, "1.2.3.4"))
			rec, err = s.Hit(ctx, "1.2.3.4", after, window)
			require.NoError(t, err)
			assert.Equal(t, int64(1), rec.Count)
		})
	}
}

func TestMemoryRateLimitStore_Sweep(t *testing.T) {
	s := NewMemoryRateLimitStore()
	ctx := context.Background()
	now := time.Now()

	_, _ = s.Hit(ctx, "short", now, time.Second)
	_, _ = s.Hit(ctx, "long", now, time.Hour)
	require.Equal(t, 2, s.Len())

	assert.Equal(t, 1, s.Sweep(now.Add(2*time.Second)))
	assert.Equal(t, 1, s.Len())
	assert.Equal(t, 0, s.Sweep(now.Add(2*time.Second)))
}

func TestRedisRateLimitStore_KeyExpires(t *testing.T) {
	rc, mr := setupTestRedis(t)
	s := NewRedisRateLimitStore(rc)

	_, err := s.Hit(context.Background(), "1.2.3.4", time.Now(), time.Minute)
	require.NoError(t, err)
	assert.True(t, mr.Exists("rl:1.2.3.4"))

	mr.FastForward(2 * time.Minute)
	assert.False(t, mr.Exists("rl:1.2.3.4"))
}
