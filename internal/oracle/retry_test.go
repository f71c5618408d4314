package oracle

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/ppiankov/neurorouter"
)

func flaky(failures int, text string) Oracle {
	calls := 0
	return Func(func(_ context.Context, _ Prompt) (Reply, error) {
		calls++
		if calls <= failures {
			return Reply{}, fmt.Errorf("transient failure %d", calls)
		}
		return Reply{Text: text}, nil
	})
}

func TestRetryEventuallySucceeds(t *testing.T) {
	r := NewRetry(flaky(2, "ok"), 3, time.Millisecond)

	reply, err := r.Invoke(context.Background(), Prompt{})
	if err != nil {
		t.Fatalf("expected success on third attempt: %v", err)
	}
	if reply.Text != "ok" {
		t.Errorf("got %q", reply.Text)
	}
}

func TestRetryExhaustsBudget(t *testing.T) {
	r := NewRetry(flaky(10, "never"), 3, time.Millisecond)

	_, err := r.Invoke(context.Background(), Prompt{})
	if err == nil {
		t.Fatal("expected failure after budget spent")
	}
	if !strings.Contains(err.Error(), "after 3 attempts") {
		t.Errorf("expected attempt count in error, got %v", err)
	}
}

func TestRetrySkipsPermanentErrors(t *testing.T) {
	calls := 0
	inner := Func(func(_ context.Context, _ Prompt) (Reply, error) {
		calls++
		return Reply{}, fmt.Errorf("no key: %w", ErrUnavailable)
	})

	r := NewRetry(inner, 5, time.Millisecond)
	_, err := r.Invoke(context.Background(), Prompt{})
	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
	if calls != 1 {
		t.Errorf("permanent error retried %d times", calls)
	}
}

func TestRetrySkipsExhaustedScript(t *testing.T) {
	s := NewScripted()
	r := NewRetry(s, 5, time.Millisecond)

	_, err := r.Invoke(context.Background(), Prompt{})
	if !errors.Is(err, ErrScriptExhausted) {
		t.Fatalf("expected ErrScriptExhausted, got %v", err)
	}
}

func TestRetryRateLimitedIsRetried(t *testing.T) {
	calls := 0
	inner := Func(func(_ context.Context, _ Prompt) (Reply, error) {
		calls++
		if calls == 1 {
			return Reply{}, fmt.Errorf("chat HTTP 429: %w", neurorouter.ErrRateLimited)
		}
		return Reply{Text: "after limit"}, nil
	})

	r := NewRetry(inner, 3, time.Millisecond)
	reply, err := r.Invoke(context.Background(), Prompt{})
	if err != nil {
		t.Fatalf("expected retry past rate limit: %v", err)
	}
	if reply.Text != "after limit" || calls != 2 {
		t.Errorf("got %q after %d calls", reply.Text, calls)
	}
}

func TestRetryHonorsContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	r := NewRetry(flaky(10, "never"), 3, 50*time.Millisecond)
	_, err := r.Invoke(ctx, Prompt{})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
