// Package ratelimit holds the types shared by the limiter backends and the
// HTTP middleware.
package ratelimit

import (
	"context"
	"time"
)

const (
	DefaultLimit  = 5
	DefaultWindow = 60 * time.Second
)

type Decision struct {
	Allowed    bool
	Limit      int
	Remaining  int
	RetryAfter time.Duration // 0 if allowed
	ResetAt    time.Time     // window end (best-effort)
	Count      int
}

// Limiter decides whether one more hit for key fits in its window.
type Limiter interface {
	Allow(ctx context.Context, key string) (Decision, error)
}
