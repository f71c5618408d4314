// Package scenario runs scripted negotiation fixtures: YAML files that
// pair case fixtures with canned provider and payer turns and the
// expected terminal state. Fixtures catch engine regressions without
// touching an LLM backend.
package scenario

// Negotiation is one scripted case within a scenario.
type Negotiation struct {
	Case          string   `yaml:"case"`
	IterationCap  int      `yaml:"iteration_cap,omitempty"`
	ProviderTurns []string `yaml:"provider_turns"`
	PayorTurns    []string `yaml:"payor_turns"`
	Expect        Expect   `yaml:"expect"`
}

// Expect is the required end state of a scripted negotiation. Pointer
// fields assert only when the fixture sets them.
type Expect struct {
	LineStatuses    []string `yaml:"line_statuses,omitempty"`
	TreatAnyway     string   `yaml:"treat_anyway,omitempty"`
	FinalLevel      *int     `yaml:"final_level,omitempty"`
	Iterations      *int     `yaml:"iterations,omitempty"`
	ProviderActions *int     `yaml:"provider_actions,omitempty"`
	PayorActions    *int     `yaml:"payor_actions,omitempty"`
	ProbingTests    *int     `yaml:"probing_tests,omitempty"`
	EscalationDepth *int     `yaml:"escalation_depth,omitempty"`
	ForcedDenial    *bool    `yaml:"forced_denial,omitempty"`
	MinAuditLines   int      `yaml:"min_audit_lines,omitempty"`
	MaxAuditLines   int      `yaml:"max_audit_lines,omitempty"`
}

// Scenario is a named collection of scripted negotiations.
type Scenario struct {
	Name    string        `yaml:"name"`
	Profile string        `yaml:"profile,omitempty"`
	Cases   []Negotiation `yaml:"cases"`
}

// CheckResult is the outcome of one scripted negotiation.
type CheckResult struct {
	Index    int      `json:"index"`
	Case     string   `json:"case"`
	Passed   bool     `json:"passed"`
	Failures []string `json:"failures,omitempty"`
}

// RunResult is the outcome of running all negotiations in one scenario file.
type RunResult struct {
	File   string        `json:"file"`
	Name   string        `json:"name"`
	Total  int           `json:"total"`
	Passed int           `json:"passed"`
	Failed int           `json:"failed"`
	Cases  []CheckResult `json:"cases"`
}
