package redact

import "strings"

// Mode determines when PHI redaction is applied to oracle prompts.
type Mode string

const (
	ModeOff   Mode = "off"   // never redact
	ModeLocal Mode = "local" // redact only when the oracle endpoint is remote
	ModeCloud Mode = "cloud" // always redact
)

// IsRemote infers from the API URL whether the oracle runs off-box.
// Localhost and 127.0.0.1 are local; an empty URL means an SDK-managed
// cloud endpoint and counts as remote.
func IsRemote(apiURL string) bool {
	if apiURL == "" {
		return true
	}
	lower := strings.ToLower(apiURL)
	return !strings.Contains(lower, "localhost") && !strings.Contains(lower, "127.0.0.1")
}

// ShouldRedact resolves the configured mode against the endpoint URL.
func ShouldRedact(mode Mode, apiURL string) bool {
	switch mode {
	case ModeOff:
		return false
	case ModeCloud:
		return true
	default:
		return IsRemote(apiURL)
	}
}
