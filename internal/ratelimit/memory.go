package ratelimit

import (
	"context"
	"sync"
	"time"

	"github.com/turuturu/turuturu/internal/clock"
)

// MemoryLimiter is the single-process fallback used when redis is not
// configured: a fixed window per key. It is correctness-neutral; the
// database invariants never depend on it.
type MemoryLimiter struct {
	clock clock.Clock

	mu      sync.Mutex
	windows map[string]*window
}

type window struct {
	start time.Time
	count int
}

func NewMemoryLimiter(clk clock.Clock) *MemoryLimiter {
	return &MemoryLimiter{
		clock:   clk,
		windows: make(map[string]*window),
	}
}

func (m *MemoryLimiter) Allow(ctx context.Context, key string, rate float64, burst int) (Result, error) {
	windowLen := time.Duration(float64(burst) / rate * float64(time.Second))
	if windowLen <= 0 {
		windowLen = time.Minute
	}
	now := m.clock.Now()

	m.mu.Lock()
	defer m.mu.Unlock()

	w, ok := m.windows[key]
	if !ok || now.Sub(w.start) >= windowLen {
		m.prune(now, windowLen)
		w = &window{start: now}
		m.windows[key] = w
	}

	if w.count >= burst {
		return Result{
			Allowed:    false,
			Limit:      burst,
			Remaining:  0,
			RetryAfter: w.start.Add(windowLen).Sub(now),
		}, nil
	}
	w.count++
	return Result{
		Allowed:   true,
		Limit:     burst,
		Remaining: burst - w.count,
	}, nil
}

// prune drops stale windows while the lock is held; runs on window
// rollover so the map stays bounded by active client count.
func (m *MemoryLimiter) prune(now time.Time, windowLen time.Duration) {
	for key, w := range m.windows {
		if now.Sub(w.start) >= 2*windowLen {
			delete(m.windows, key)
		}
	}
}
