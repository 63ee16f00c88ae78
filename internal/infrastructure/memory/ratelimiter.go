package memory

import (
	"context"
	"sync"
	"time"

	"github.com/baechuer/real-time-ressys/services/credential-service/internal/pkg/ratelimit"
)

const defaultMaxKeys = 5000

// SlidingWindowLimiter keeps the exact hit timestamps per key and allows
// at most limit hits in any trailing window. State is process-local.
type SlidingWindowLimiter struct {
	mu      sync.Mutex
	limit   int
	window  time.Duration
	hits    map[string][]time.Time
	maxKeys int
	now     func() time.Time
}

var _ ratelimit.Limiter = (*SlidingWindowLimiter)(nil)

func NewSlidingWindowLimiter(limit int, window time.Duration) *SlidingWindowLimiter {
	if limit <= 0 {
		limit = ratelimit.DefaultLimit
	}
	if window <= 0 {
		window = ratelimit.DefaultWindow
	}
	return &SlidingWindowLimiter{
		limit:   limit,
		window:  window,
		hits:    make(map[string][]time.Time),
		maxKeys: defaultMaxKeys,
		now:     time.Now,
	}
}

// WithClock replaces the wall clock.
func (l *SlidingWindowLimiter) WithClock(now func() time.Time) *SlidingWindowLimiter {
	if now != nil {
		l.now = now
	}
	return l
}

func (l *SlidingWindowLimiter) Allow(ctx context.Context, key string) (ratelimit.Decision, error) {
	now := l.now().UTC()
	threshold := now.Add(-l.window)

	l.mu.Lock()
	defer l.mu.Unlock()

	hits := l.hits[key]
	filtered := make([]time.Time, 0, len(hits)+1)
	for _, hit := range hits {
		if hit.After(threshold) {
			filtered = append(filtered, hit)
		}
	}

	if len(filtered) >= l.limit {
		retryAfter := filtered[0].Add(l.window).Sub(now)
		if retryAfter < time.Second {
			retryAfter = time.Second
		}
		l.hits[key] = filtered
		return ratelimit.Decision{
			Allowed:    false,
			Limit:      l.limit,
			Remaining:  0,
			RetryAfter: retryAfter,
			ResetAt:    filtered[0].Add(l.window),
			Count:      len(filtered),
		}, nil
	}

	filtered = append(filtered, now)
	l.hits[key] = filtered

	if len(l.hits) > l.maxKeys {
		for k, v := range l.hits {
			if len(v) == 0 || !v[len(v)-1].After(threshold) {
				delete(l.hits, k)
			}
		}
	}

	return ratelimit.Decision{
		Allowed:   true,
		Limit:     l.limit,
		Remaining: l.limit - len(filtered),
		ResetAt:   filtered[0].Add(l.window),
		Count:     len(filtered),
	}, nil
}

// Reset forgets every key.
func (l *SlidingWindowLimiter) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.hits = make(map[string][]time.Time)
}

// ResetKey forgets one key.
func (l *SlidingWindowLimiter) ResetKey(key string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.hits, key)
}
