package limiter

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oakhaven/storefront/store"
)

func TestCheck_SixthRequestDeniedWithOriginalReset(t *testing.T) {
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	l := New(store.NewMemoryRateLimitStore()).WithClock(func() time.Time { return now })
	p := Policy{MaxAttempts: 5, Window: 300 * time.Second}
	ctx := context.Background()

	first, err := l.Check(ctx, "1.2.3.4", p)
	require.NoError(t, err)
	assert.True(t, first.Allowed)
	assert.Equal(t, 4, first.Remaining)

	for i := 2; i <= 5; i++ {
		now = now.Add(10 * time.Second)
		d, err := l.Check(ctx, "1.2.3.4", p)
		require.NoError(t, err)
		assert.True(t, d.Allowed, "request %d", i)
		assert.Equal(t, 5-i, d.Remaining)
	}

	now = now.Add(10 * time.Second)
	sixth, err := l.Check(ctx, "1.2.3.4", p)
	require.NoError(t, err)
	assert.False(t, sixth.Allowed)
	assert.Equal(t, 0, sixth.Remaining)
	assert.True(t, sixth.ResetTime.Equal(first.ResetTime))

	other, err := l.Check(ctx, "5.6.7.8", p)
	require.NoError(t, err)
	assert.True(t, other.Allowed)
}

func TestCheck_NewWindowAfterReset(t *testing.T) {
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	l := New(store.NewMemoryRateLimitStore()).WithClock(func() time.Time { return now })
	p := Policy{MaxAttempts: 1, Window: time.Minute}
	ctx := context.Background()

	d, _ := l.Check(ctx, "k", p)
	require.True(t, d.Allowed)
	d, _ = l.Check(ctx, "k", p)
	require.False(t, d.Allowed)

	now = now.Add(time.Minute + time.Millisecond)
	d, err := l.Check(ctx, "k", p)
	require.NoError(t, err)
	assert.True(t, d.Allowed)
	assert.True(t, d.ResetTime.Equal(now.Add(time.Minute)))

	require.NoError(t, l.Reset(ctx, "k"))
	d, _ = l.Check(ctx, "k", p)
	assert.True(t, d.Allowed)
}

func TestCheck_ConcurrentCallersShareOneBudget(t *testing.T) {
	l := New(store.NewMemoryRateLimitStore())
	p := Policy{MaxAttempts: 10, Window: time.Hour}
	var allowed atomic.Int32

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if d, err := l.Check(context.Background(), "shared", p); err == nil && d.Allowed {
				allowed.Add(1)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(10), allowed.Load())
}
