// Package friction counts the administrative burden a negotiation
// generates: how many moves each side made, how many probing tests were
// ordered, and how far the dispute escalated.
package friction

// Snapshot is a read-only view of the counters.
type Snapshot struct {
	ProviderActions   int `json:"provider_actions"`
	PayorActions      int `json:"payor_actions"`
	ProbingTestsCount int `json:"probing_tests_count"`
	EscalationDepth   int `json:"escalation_depth"`
}

// Meter accumulates friction counters for one negotiation. Counters only
// move forward; the engine increments each exactly once per step.
type Meter struct {
	providerActions int
	payorActions    int
	probingTests    int
	escalationDepth int
}

// New returns a zeroed meter.
func New() *Meter {
	return &Meter{}
}

// ProviderActed records one requester move.
func (m *Meter) ProviderActed() {
	m.providerActions++
}

// PayorActed records one reviewer move.
func (m *Meter) PayorActed() {
	m.payorActions++
}

// ProbeOrdered records one diagnostic-test request.
func (m *Meter) ProbeOrdered() {
	m.probingTests++
}

// ObserveLevel raises the escalation depth to level if higher.
func (m *Meter) ObserveLevel(level int) {
	if level > m.escalationDepth {
		m.escalationDepth = level
	}
}

// Snapshot returns the current counter values.
func (m *Meter) Snapshot() Snapshot {
	return Snapshot{
		ProviderActions:   m.providerActions,
		PayorActions:      m.payorActions,
		ProbingTestsCount: m.probingTests,
		EscalationDepth:   m.escalationDepth,
	}
}
