package oracle

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/ppiankov/redtape/internal/config"
)

// FromConfig builds the backend for one oracle role and wraps it with
// retry. The shared limiter, the response cache, and PHI redaction are
// layered by the caller, which owns their lifecycles.
func FromConfig(ctx context.Context, oc config.Oracle, rc config.Retry) (Oracle, error) {
	var backend Oracle
	var err error

	switch oc.Backend {
	case "openai", "":
		backend = NewOpenAI(oc.BaseURL, oc.APIKeyEnv, oc.Model, oc.MaxTokens, oc.Temperature)
	case "bedrock":
		backend, err = NewBedrock(ctx, oc.Model, oc.MaxTokens, oc.Temperature)
	case "router":
		backend, err = NewRouter(oc.BaseURL, oc.APIKeyEnv, oc.Model, oc.MaxTokens, oc.Temperature)
	case "scripted":
		return nil, fmt.Errorf("scripted backend takes its turns from a scenario fixture, not config")
	default:
		return nil, fmt.Errorf("unknown oracle backend %q", oc.Backend)
	}
	if err != nil {
		return nil, err
	}

	return NewRetry(backend, rc.Attempts, time.Duration(rc.BackoffMS)*time.Millisecond), nil
}

// Endpoint reports the wire endpoint an oracle config resolves to, for
// redaction mode decisions. Bedrock has no URL and counts as remote.
func Endpoint(oc config.Oracle) string {
	switch oc.Backend {
	case "bedrock":
		return ""
	case "router":
		if oc.BaseURL != "" {
			return oc.BaseURL
		}
		return os.Getenv("NEUROROUTER_URL")
	default:
		return NewOpenAI(oc.BaseURL, oc.APIKeyEnv, oc.Model, oc.MaxTokens, oc.Temperature).URL
	}
}
