package audit

import (
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
)

// Phases group entries by which part of the negotiation produced them.
const (
	PhasePriorAuth   = "prior_auth"
	PhaseDisposition = "disposition"
)

// Actors named in entries.
const (
	ActorProvider = "provider"
	ActorPayor    = "payor"
	ActorCopilot  = "payor_copilot"
	ActorEngine   = "engine"
)

// Actions named in entries. Replay dispatches on these.
const (
	ActionSubmitRequest  = "submit_request"
	ActionCopilotDraft   = "copilot_draft"
	ActionReturnDecision = "return_decision"
	ActionResolveAction  = "resolve_action"
	ActionForceDeny      = "force_deny"
	ActionTreatDecision  = "treat_decision"
)

// StepMeta is the fixed metadata stamped on every entry. A typed struct
// keeps json.Marshal field order deterministic for reproducible hashing.
type StepMeta struct {
	Iteration  int    `json:"iteration"`
	Level      int    `json:"level"`
	PendCount  int    `json:"pend_count"`
	CacheHit   bool   `json:"cache_hit,omitempty"`
	ParseError bool   `json:"parse_error,omitempty"`
	Exclusion  bool   `json:"exclusion,omitempty"`
	ConfigHash string `json:"config_hash,omitempty"`
}

// Entry is one line in the hash-chained JSONL negotiation trail.
type Entry struct {
	Timestamp     string         `json:"ts"`
	InteractionID string         `json:"interaction_id"`
	CaseID        string         `json:"case_id"`
	Phase         string         `json:"phase"`
	Actor         string         `json:"actor"`
	Action        string         `json:"action"`
	RawInput      string         `json:"raw_input,omitempty"`
	RawOutput     string         `json:"raw_output,omitempty"`
	Parsed        map[string]any `json:"parsed,omitempty"`
	Meta          StepMeta       `json:"metadata"`
	PrevHash      string         `json:"prev_hash"`
}

// NewInteractionID builds the stable id format phase_actor_action_<8 hex>.
func NewInteractionID(phase, actor, action string) string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	return fmt.Sprintf("%s_%s_%s_%s", phase, actor, action, suffix)
}

// Sink consumes the ordered entry stream. The engine writes each step
// before mutating any state that depends on it.
type Sink interface {
	Record(Entry) error
}

// Memory is an in-process Sink for tests and the MCP adjudicate tool.
type Memory struct {
	mu      sync.Mutex
	entries []Entry
}

// NewMemory returns an empty in-memory sink.
func NewMemory() *Memory {
	return &Memory{}
}

// Record appends the entry.
func (m *Memory) Record(e Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, e)
	return nil
}

// Entries returns a copy of everything recorded so far.
func (m *Memory) Entries() []Entry {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Entry, len(m.entries))
	copy(out, m.entries)
	return out
}
