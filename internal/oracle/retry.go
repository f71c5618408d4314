package oracle

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ppiankov/neurorouter"
)

// Retry wraps an oracle with bounded attempts and exponential backoff.
// Rate-limited attempts double the backoff a second time; permanent
// failures (no backend, exhausted script) are not retried.
type Retry struct {
	inner    Oracle
	attempts int
	backoff  time.Duration
}

// NewRetry builds the retry wrapper. attempts < 1 is coerced to 1.
func NewRetry(inner Oracle, attempts int, backoff time.Duration) *Retry {
	if attempts < 1 {
		attempts = 1
	}
	if backoff <= 0 {
		backoff = 500 * time.Millisecond
	}
	return &Retry{inner: inner, attempts: attempts, backoff: backoff}
}

// Invoke tries the inner oracle up to the attempt budget.
func (r *Retry) Invoke(ctx context.Context, p Prompt) (Reply, error) {
	var lastErr error
	delay := r.backoff

	for i := 0; i < r.attempts; i++ {
		if i > 0 {
			select {
			case <-ctx.Done():
				return Reply{}, ctx.Err()
			case <-time.After(delay):
			}
			delay *= 2
		}

		reply, err := r.inner.Invoke(ctx, p)
		if err == nil {
			return reply, nil
		}
		lastErr = err

		if errors.Is(err, ErrUnavailable) || errors.Is(err, ErrScriptExhausted) {
			return Reply{}, err
		}
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return Reply{}, err
		}
		if errors.Is(err, neurorouter.ErrRateLimited) {
			delay *= 2
		}
	}

	return Reply{}, fmt.Errorf("after %d attempts: %w", r.attempts, lastErr)
}
