package ratelimit

import (
	"context"
	"time"
)

type Result struct {
	Allowed    bool
	Limit      int
	Remaining  int
	RetryAfter time.Duration
}

// Limiter answers whether one more request may pass for a key. rate is
// tokens per second, burst the bucket capacity.
type Limiter interface {
	Allow(ctx context.Context, key string, rate float64, burst int) (Result, error)
}
