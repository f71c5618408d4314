// Package oracle abstracts the LLM backends that play the provider and
// reviewer roles. Backends move bytes; the engine treats every reply as
// untrusted text regardless of origin.
package oracle

import (
	"context"
	"errors"
	"sync"
)

// Prompt is one oracle invocation. Meta carries actor/level/iteration
// so otherwise identical prompts cache separately.
type Prompt struct {
	System string
	User   string
	Meta   string
}

// Reply is the raw oracle output.
type Reply struct {
	Text     string
	CacheHit bool
}

// ErrUnavailable marks a backend that cannot serve requests at all:
// missing API key, no endpoint. Distinct from transient request errors.
var ErrUnavailable = errors.New("oracle unavailable")

// ErrScriptExhausted is returned by a Scripted oracle with no turns left.
var ErrScriptExhausted = errors.New("scripted oracle: no turns left")

// Oracle produces a reply for a prompt.
type Oracle interface {
	Invoke(ctx context.Context, p Prompt) (Reply, error)
}

// Scripted replays a fixed list of replies in order. Tests and scenario
// fixtures use it for deterministic negotiations.
type Scripted struct {
	mu    sync.Mutex
	turns []string
	next  int
}

// NewScripted creates a scripted oracle from an ordered turn list.
func NewScripted(turns ...string) *Scripted {
	return &Scripted{turns: turns}
}

// Invoke returns the next scripted turn. Running past the script is a
// fixture bug surfaced as ErrScriptExhausted, never a silent repeat.
func (s *Scripted) Invoke(_ context.Context, _ Prompt) (Reply, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.next >= len(s.turns) {
		return Reply{}, ErrScriptExhausted
	}
	text := s.turns[s.next]
	s.next++
	return Reply{Text: text}, nil
}

// Remaining reports how many scripted turns are left.
func (s *Scripted) Remaining() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.turns) - s.next
}

// Func adapts a plain function to the Oracle interface.
type Func func(ctx context.Context, p Prompt) (Reply, error)

// Invoke calls f.
func (f Func) Invoke(ctx context.Context, p Prompt) (Reply, error) {
	return f(ctx, p)
}
