package oracle

import (
	"context"
	"fmt"
	"os"
)

// Router targets a neurorouter instance. The router speaks the chat
// completions wire format and handles model selection itself, so this
// is a thin wrapper that resolves the router endpoint and defers 429
// handling to the shared retry path.
type Router struct {
	inner *OpenAI
}

// NewRouter builds a router-backed oracle. Endpoint resolution:
// explicit URL → NEUROROUTER_URL. A router handles key management
// upstream, so keyEnv is usually empty.
func NewRouter(url, keyEnv, model string, maxTokens int, temperature float64) (*Router, error) {
	if url == "" {
		url = os.Getenv("NEUROROUTER_URL")
	}
	if url == "" {
		return nil, fmt.Errorf("router backend needs an endpoint (NEUROROUTER_URL): %w", ErrUnavailable)
	}
	return &Router{inner: NewOpenAI(url, keyEnv, model, maxTokens, temperature)}, nil
}

// Invoke forwards to the router endpoint.
func (r *Router) Invoke(ctx context.Context, p Prompt) (Reply, error) {
	return r.inner.Invoke(ctx, p)
}
