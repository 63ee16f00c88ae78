package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/baechuer/real-time-ressys/services/credential-service/internal/domain"
)

func newTestLimiter(t *testing.T, limit int, window time.Duration) (*FixedWindowLimiter, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	c := New(mr.Addr(), "", 0)
	t.Cleanup(func() { _ = c.Close() })
	return NewFixedWindowLimiter(c, limit, window), mr
}

func TestFixedWindowLimiter_RedisNil_Allows(t *testing.T) {
	l := NewFixedWindowLimiter(nil, 10, time.Minute)

	d, err := l.AllowFixedWindow(context.Background(), "k", 10, time.Minute)
	require.NoError(t, err)
	assert.True(t, d.Allowed, "expected allowed when redis disabled")
	assert.Equal(t, 10, d.Remaining)
}

func TestFixedWindowLimiter_LimitZero_Allows(t *testing.T) {
	l := NewFixedWindowLimiter(nil, 0, 0)

	d, _ := l.AllowFixedWindow(context.Background(), "k", 0, time.Minute)
	assert.True(t, d.Allowed, "limit=0 should allow")
	assert.Equal(t, 5, l.limit)
	assert.Equal(t, 60*time.Second, l.window)
}

func TestFixedWindowLimiter_DeniesOverLimit(t *testing.T) {
	l, _ := newTestLimiter(t, 2, time.Minute)
	ctx := context.Background()

	for i := 1; i <= 2; i++ {
		d, err := l.Allow(ctx, "login:1.2.3.4")
		require.NoError(t, err)
		assert.True(t, d.Allowed, "hit %d", i)
		assert.Equal(t, 2-i, d.Remaining)
	}

	d, err := l.Allow(ctx, "login:1.2.3.4")
	require.NoError(t, err)
	assert.False(t, d.Allowed)
	assert.Equal(t, 3, d.Count)
	assert.Greater(t, d.RetryAfter, time.Duration(0))
	assert.LessOrEqual(t, d.RetryAfter, time.Minute)

	d, err = l.Allow(ctx, "login:5.6.7.8")
	require.NoError(t, err)
	assert.True(t, d.Allowed)
}

func TestFixedWindowLimiter_NextWindowAllows(t *testing.T) {
	l, _ := newTestLimiter(t, 1, time.Minute)
	now := time.Date(2025, 1, 1, 0, 0, 10, 0, time.UTC)
	l.now = func() time.Time { return now }
	ctx := context.Background()

	d, _ := l.Allow(ctx, "k")
	assert.True(t, d.Allowed)
	d, _ = l.Allow(ctx, "k")
	assert.False(t, d.Allowed)

	now = now.Add(time.Minute)
	d, err := l.Allow(ctx, "k")
	require.NoError(t, err)
	assert.True(t, d.Allowed)
}

func TestFixedWindowLimiter_KeyExpires(t *testing.T) {
	l, mr := newTestLimiter(t, 1, time.Minute)
	ctx := context.Background()

	_, err := l.AllowFixedWindow(ctx, "rl:fixed", 1, time.Minute)
	require.NoError(t, err)
	assert.True(t, mr.Exists("rl:fixed"))

	mr.FastForward(time.Minute + time.Second)
	assert.False(t, mr.Exists("rl:fixed"))
}

func TestFixedWindowLimiter_RedisDown_CacheUnavailable(t *testing.T) {
	l, mr := newTestLimiter(t, 1, time.Minute)
	mr.Close()

	_, err := l.Allow(context.Background(), "k")
	require.Error(t, err)
	assert.True(t, domain.Is(err, domain.CodeCacheUnavailable), "got %v", err)
}
