package model

import "time"

// Round captures one completed request/decision exchange.
type Round struct {
	Iteration int              `json:"iteration"`
	Level     int              `json:"level"`
	Request   *ProviderRequest `json:"request,omitempty"`
	Decision  *Decision        `json:"decision,omitempty"`
	Action    ProviderAction   `json:"action,omitempty"`
}

// Finding is one diagnostic result unlocked by an approved test.
type Finding struct {
	Test   string `json:"test"`
	Result string `json:"result"`
}

// Negotiation is the evolving state of one case review, owned by the
// engine. Ledger and friction counters live beside it in the session;
// this record holds level progression, pend accounting, and history.
type Negotiation struct {
	CaseID    string `json:"case_id"`
	SessionID string `json:"session_id"`

	Level     int `json:"level"`
	Iteration int `json:"iteration"`

	// PendCounts tracks REQUEST_INFO occurrences per level.
	PendCounts map[int]int `json:"pend_counts"`

	// Evidence accumulates findings unlocked by approved diagnostics.
	Evidence []Finding `json:"evidence,omitempty"`

	History       []Round `json:"history"`
	LevelsVisited []int   `json:"levels_visited"`

	TreatAnyway TreatDecision `json:"treat_anyway,omitempty"`

	StartedAt time.Time `json:"started_at"`
}

// NewNegotiation creates a Negotiation at level 0 with empty accounting.
func NewNegotiation(caseID, sessionID string) *Negotiation {
	return &Negotiation{
		CaseID:        caseID,
		SessionID:     sessionID,
		PendCounts:    make(map[int]int),
		LevelsVisited: []int{0},
		StartedAt:     time.Now().UTC(),
	}
}

// EscalateLevel advances the review level monotonically.
// If newLevel <= current, this is a no-op (monotonic property preserved).
func (n *Negotiation) EscalateLevel(newLevel int) {
	if newLevel > n.Level {
		n.Level = newLevel
		n.LevelsVisited = append(n.LevelsVisited, newLevel)
	}
}

// PendCount returns the REQUEST_INFO count recorded at the given level.
func (n *Negotiation) PendCount(level int) int {
	if n.PendCounts == nil {
		return 0
	}
	return n.PendCounts[level]
}

// RecordPend increments the pend counter for the given level.
func (n *Negotiation) RecordPend(level int) {
	if n.PendCounts == nil {
		n.PendCounts = make(map[int]int)
	}
	n.PendCounts[level]++
}

// AddEvidence appends a finding for use by subsequent requests.
func (n *Negotiation) AddEvidence(test, result string) {
	if test == "" || result == "" {
		return
	}
	n.Evidence = append(n.Evidence, Finding{Test: test, Result: result})
}

// CompletedTests lists the names of tests already resulted, so the
// provider is not offered the chance to order them twice.
func (n *Negotiation) CompletedTests() []string {
	var names []string
	for _, f := range n.Evidence {
		names = append(names, f.Test)
	}
	return names
}

// MaxLevel returns the highest level visited.
func (n *Negotiation) MaxLevel() int {
	max := 0
	for _, l := range n.LevelsVisited {
		if l > max {
			max = l
		}
	}
	return max
}
