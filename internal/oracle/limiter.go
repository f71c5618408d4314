package oracle

import (
	"context"
	"sync"
	"time"
)

// Limiter caps aggregate oracle calls per fixed window. Batch runs
// share one limiter across every negotiation so a directory of cases
// cannot stampede a metered endpoint.
type Limiter struct {
	mu          sync.Mutex
	max         int
	window      time.Duration
	windowStart time.Time
	count       int

	now func() time.Time // test hook
}

// NewLimiter builds a limiter allowing max calls per window.
// max <= 0 means unlimited.
func NewLimiter(max int, window time.Duration) *Limiter {
	if window <= 0 {
		window = time.Minute
	}
	return &Limiter{max: max, window: window, now: time.Now}
}

// Acquire blocks until a call slot is available or ctx is done.
func (l *Limiter) Acquire(ctx context.Context) error {
	for {
		l.mu.Lock()
		now := l.now()
		if now.Sub(l.windowStart) >= l.window {
			l.windowStart = now
			l.count = 0
		}
		if l.max <= 0 || l.count < l.max {
			l.count++
			l.mu.Unlock()
			return nil
		}
		wait := l.windowStart.Add(l.window).Sub(now)
		l.mu.Unlock()

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
	}
}

// Snapshot reports calls used in the current window and the cap.
func (l *Limiter) Snapshot() (used, max int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.now().Sub(l.windowStart) >= l.window {
		return 0, l.max
	}
	return l.count, l.max
}

// Limited wraps an oracle so every attempt first acquires a limiter slot.
type Limited struct {
	limiter *Limiter
	inner   Oracle
}

// NewLimited builds the limiting wrapper. A nil limiter passes through.
func NewLimited(limiter *Limiter, inner Oracle) *Limited {
	return &Limited{limiter: limiter, inner: inner}
}

// Invoke acquires a slot then delegates.
func (l *Limited) Invoke(ctx context.Context, p Prompt) (Reply, error) {
	if l.limiter != nil {
		if err := l.limiter.Acquire(ctx); err != nil {
			return Reply{}, err
		}
	}
	return l.inner.Invoke(ctx, p)
}
