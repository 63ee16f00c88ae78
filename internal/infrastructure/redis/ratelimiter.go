package redis

import (
	"context"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/baechuer/real-time-ressys/services/credential-service/internal/domain"
	"github.com/baechuer/real-time-ressys/services/credential-service/internal/pkg/ratelimit"
)

// Lua to ensure atomic INCR + set expire on first hit
// returns: {count, ttl_ms}
const fixedWindowScript = `
local c = redis.call("INCR", KEYS[1])
if c == 1 then
  redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
local ttl = redis.call("PTTL", KEYS[1])
return {c, ttl}
`

// FixedWindowLimiter is a rate limiter shared by every instance that talks
// to the same Redis: INCR on a per-window key that expires with the window.
type FixedWindowLimiter struct {
	rdb    *goredis.Client
	limit  int
	window time.Duration
	prefix string
	now    func() time.Time
}

var _ ratelimit.Limiter = (*FixedWindowLimiter)(nil)

func NewFixedWindowLimiter(c *Client, limit int, window time.Duration) *FixedWindowLimiter {
	if limit <= 0 {
		limit = ratelimit.DefaultLimit
	}
	if window <= 0 {
		window = ratelimit.DefaultWindow
	}
	l := &FixedWindowLimiter{
		limit:  limit,
		window: window,
		prefix: "rl",
		now:    time.Now,
	}
	if c != nil {
		l.rdb = c.rdb
	}
	return l
}

// Allow counts one hit for key in the current window bucket.
func (l *FixedWindowLimiter) Allow(ctx context.Context, key string) (ratelimit.Decision, error) {
	bucket := windowBucket(l.now(), l.window)
	return l.AllowFixedWindow(ctx, fmt.Sprintf("%s:%s:%d", l.prefix, key, bucket), l.limit, l.window)
}

// AllowFixedWindow returns whether request is allowed for given key+window.
// key should already include the window bucket.
func (l *FixedWindowLimiter) AllowFixedWindow(ctx context.Context, key string, limit int, window time.Duration) (ratelimit.Decision, error) {
	if limit <= 0 {
		return ratelimit.Decision{Allowed: true, Limit: limit, Remaining: limit}, nil
	}
	if window <= 0 {
		window = time.Minute
	}
	if l.rdb == nil {
		// Redis disabled => allow (fail-open).
		return ratelimit.Decision{Allowed: true, Limit: limit, Remaining: limit}, nil
	}

	ttlms := window.Milliseconds()
	if ttlms <= 0 {
		ttlms = 60000
	}

	res, err := l.rdb.Eval(ctx, fixedWindowScript, []string{key}, ttlms).Result()
	if err != nil {
		return ratelimit.Decision{}, domain.ErrCacheUnavailable(fmt.Errorf("ratelimit redis eval: %w", err))
	}

	arr, ok := res.([]any)
	if !ok || len(arr) != 2 {
		return ratelimit.Decision{}, domain.ErrCacheUnavailable(fmt.Errorf("ratelimit redis eval: unexpected result %T", res))
	}
	count, ok1 := arr[0].(int64)
	ttlRaw, ok2 := arr[1].(int64)
	if !ok1 || !ok2 {
		return ratelimit.Decision{}, domain.ErrCacheUnavailable(fmt.Errorf("ratelimit redis eval: unexpected element types"))
	}
	ttlGot := time.Duration(ttlRaw) * time.Millisecond

	allowed := int(count) <= limit
	d := ratelimit.Decision{
		Allowed:   allowed,
		Limit:     limit,
		Remaining: max(0, limit-int(count)),
		Count:     int(count),
		ResetAt:   l.now().Add(ttlGot),
	}

	if !allowed {
		if ttlGot > 0 {
			d.RetryAfter = ttlGot
		} else {
			d.RetryAfter = window
		}
	}
	return d, nil
}

func windowBucket(now time.Time, window time.Duration) int64 {
	sec := int64(window.Seconds())
	if sec <= 0 {
		sec = 60
	}
	return now.Unix() / sec
}
