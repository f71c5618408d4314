package oracle

import (
	"context"
	"fmt"
	"os"

	"github.com/ppiankov/redtape/internal/redact"
)

// Redacting tokenizes PHI in prompts before they leave the box and
// detokenizes replies on the way back. The token map lives for one
// negotiation so tokens stay stable across iterations. The audit trail
// records detokenized text; redaction protects the transport only.
type Redacting struct {
	inner Oracle
	tm    *redact.TokenMap
	known []string
}

// NewRedacting wraps inner with PHI tokenization for one case. known
// carries literal values (patient names) pulled from the fixture.
func NewRedacting(inner Oracle, caseID string, known []string) *Redacting {
	return &Redacting{
		inner: inner,
		tm:    redact.NewTokenMap(caseID),
		known: known,
	}
}

// TokenMap exposes the negotiation's token map for persistence.
func (r *Redacting) TokenMap() *redact.TokenMap {
	return r.tm
}

// Invoke redacts the prompt, prepends the token legend, and scans the
// raw reply for leaked values before detokenizing it.
func (r *Redacting) Invoke(ctx context.Context, p Prompt) (Reply, error) {
	redacted := Prompt{
		System: redact.RedactKnown(p.System, r.tm, r.known),
		User:   redact.RedactKnown(p.User, r.tm, r.known),
		Meta:   p.Meta,
	}
	if legend := r.tm.Legend(); legend != "" {
		redacted.User = legend + "\n" + redacted.User
	}

	reply, err := r.inner.Invoke(ctx, redacted)
	if err != nil {
		return Reply{}, err
	}

	if leaks := redact.CheckLeaks(reply.Text, r.tm); len(leaks) > 0 {
		fmt.Fprintf(os.Stderr, "oracle: reply leaked %d redacted value(s) for case %s\n", len(leaks), r.tm.CaseID)
	}

	reply.Text = redact.Detoken(reply.Text, r.tm)
	return reply, nil
}
