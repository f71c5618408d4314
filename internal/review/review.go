// Package review drives one case negotiation through the multi-level
// authorization workflow: provider request, payer decision, provider
// action, escalation, until every service line is terminal or the
// iteration budget runs out.
//
// The engine keeps no state outside what it commits to the audit trail:
// every oracle invocation and derived decision is recorded before the
// counters and the ledger move, so a crash mid-negotiation leaves a
// replayable partial trail, and replaying a committed trail reproduces
// the final ledger and friction counters exactly.
package review

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ppiankov/redtape/internal/audit"
	"github.com/ppiankov/redtape/internal/casefile"
	"github.com/ppiankov/redtape/internal/exclusions"
	"github.com/ppiankov/redtape/internal/friction"
	"github.com/ppiankov/redtape/internal/ledger"
	"github.com/ppiankov/redtape/internal/levels"
	"github.com/ppiankov/redtape/internal/model"
	"github.com/ppiankov/redtape/internal/oracle"
	"github.com/ppiankov/redtape/internal/prompt"
)

// DefaultIterationCap bounds one negotiation, one iteration per level.
const DefaultIterationCap = 3

// Config wires a Session. Provider and Payor oracles are required;
// everything else has a working default.
type Config struct {
	// Table is the review level table. Nil means the built-in table.
	Table *levels.Table

	// Prompts overrides the prompt builder, e.g. to carry a posture
	// profile. Nil builds a neutral one from Table and IterationCap.
	Prompts *prompt.Builder

	// Provider answers request, action, and treat-anyway prompts.
	Provider oracle.Oracle
	// Payor answers draft and decision prompts.
	Payor oracle.Oracle

	// Audit receives the committed step stream. Nil means an in-memory
	// sink, which is only useful for tests and embedding.
	Audit audit.Sink

	// Exclusions is the benefit exclusion list screened before each
	// payer decision. Nil means the built-in list.
	Exclusions *exclusions.List

	// IterationCap bounds the negotiation; <= 0 means the default.
	IterationCap int

	// ConfigHash is stamped into every audit record for provenance.
	ConfigHash string

	// SessionID identifies this run; empty generates one.
	SessionID string
}

// Session owns one negotiation end to end: the evolving state record,
// the service line ledger, and the friction counters. Not safe for
// concurrent use; run independent cases in separate sessions.
type Session struct {
	c        *casefile.Case
	table    *levels.Table
	prompts  *prompt.Builder
	provider oracle.Oracle
	payor    oracle.Oracle
	sink     audit.Sink
	excl     *exclusions.List

	iterationCap int
	configHash   string

	neg    *model.Negotiation
	ledger *ledger.Ledger
	meter  *friction.Meter

	oracleCalls int
	cacheHits   int
	forced      bool
	ran         bool
}

// NewSession prepares a negotiation for one case.
func NewSession(c *casefile.Case, cfg Config) (*Session, error) {
	if c == nil {
		return nil, fmt.Errorf("review: case is required")
	}
	if cfg.Provider == nil || cfg.Payor == nil {
		return nil, fmt.Errorf("review: provider and payor oracles are required")
	}

	table := cfg.Table
	if table == nil {
		table = levels.Default()
	}
	iterationCap := cfg.IterationCap
	if iterationCap <= 0 {
		iterationCap = DefaultIterationCap
	}
	prompts := cfg.Prompts
	if prompts == nil {
		prompts = prompt.NewBuilder(table, iterationCap)
	}
	sink := cfg.Audit
	if sink == nil {
		sink = audit.NewMemory()
	}
	excl := cfg.Exclusions
	if excl == nil {
		excl = exclusions.NewDefault()
	}
	sessionID := cfg.SessionID
	if sessionID == "" {
		sessionID = uuid.NewString()
	}

	return &Session{
		c:            c,
		table:        table,
		prompts:      prompts,
		provider:     cfg.Provider,
		payor:        cfg.Payor,
		sink:         sink,
		excl:         excl,
		iterationCap: iterationCap,
		configHash:   cfg.ConfigHash,
		neg:          model.NewNegotiation(c.CaseID, sessionID),
		ledger:       ledger.New(),
		meter:        friction.New(),
	}, nil
}

// Result is the terminal summary of one negotiation.
type Result struct {
	CaseID        string              `json:"case_id"`
	SessionID     string              `json:"session_id"`
	Lines         []ledger.Line       `json:"lines"`
	Friction      friction.Snapshot   `json:"friction"`
	LevelsVisited []int               `json:"levels_visited"`
	PendCounts    map[int]int         `json:"pend_counts,omitempty"`
	Evidence      []model.Finding     `json:"evidence,omitempty"`
	TreatAnyway   model.TreatDecision `json:"treat_anyway,omitempty"`
	Iterations    int                 `json:"iterations"`
	ForcedDenial  bool                `json:"forced_denial,omitempty"`
	OracleCalls   int                 `json:"oracle_calls"`
	CacheHits     int                 `json:"cache_hits"`
	StartedAt     time.Time           `json:"started_at"`
	DurationMS    int64               `json:"duration_ms"`
}

// Run drives the negotiation to a terminal state. It may be called once
// per session. Oracle errors and contract violations abort the run; the
// trail keeps every step committed before the failure.
func (s *Session) Run(ctx context.Context) (*Result, error) {
	if s.ran {
		return nil, fmt.Errorf("review: session for case %s already ran", s.c.CaseID)
	}
	s.ran = true
	start := time.Now()

	for iter := 1; iter <= s.iterationCap; iter++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		s.neg.Iteration = iter

		res, err := s.iterate(ctx, iter)
		if err != nil {
			return nil, err
		}
		if res.Verdict == Terminal {
			break
		}
		if res.Verdict == Escalate {
			next := s.neg.Level + 1
			if next > levels.MaxLevel {
				return nil, fmt.Errorf("review: escalation past level %d", levels.MaxLevel)
			}
			s.neg.EscalateLevel(next)
		}
	}

	if !s.ledger.AllTerminal() {
		if err := s.forceDeny("max iterations reached"); err != nil {
			return nil, err
		}
	}

	if !s.allApproved() {
		if err := s.treatConsult(ctx); err != nil {
			return nil, err
		}
	}

	return s.result(start), nil
}

// iterate runs one full round at the current level: request, decision,
// classification, and whatever provider action the matrix calls for.
func (s *Session) iterate(ctx context.Context, iter int) (Resolution, error) {
	lvl, err := s.table.At(s.neg.Level)
	if err != nil {
		return Resolution{}, err
	}

	req, err := s.submitRequest(ctx, iter, lvl)
	if err != nil {
		return Resolution{}, err
	}

	dec, err := s.returnDecision(ctx, iter, lvl, req)
	if err != nil {
		return Resolution{}, err
	}

	res, err := Classify(dec, req.PrimaryType(), lvl, func(legal []model.ProviderAction) (model.ProviderAction, error) {
		return s.resolveAction(ctx, iter, lvl, dec, req, legal)
	})
	if err != nil {
		return Resolution{}, err
	}

	// An approved probe feeds its canned results to the next round.
	if res.Verdict == ContinueAtLevel && dec.Kind == model.OutcomeApprove {
		s.recordFindings(req)
	}

	s.neg.History = append(s.neg.History, model.Round{
		Iteration: iter,
		Level:     lvl.Index,
		Request:   req,
		Decision:  dec,
		Action:    res.Action,
	})

	return res, nil
}

func (s *Session) allApproved() bool {
	lines := s.ledger.Lines()
	if len(lines) == 0 {
		return false
	}
	for _, line := range lines {
		if line.Status != model.LineApproved {
			return false
		}
	}
	return true
}

func (s *Session) result(start time.Time) *Result {
	pends := make(map[int]int, len(s.neg.PendCounts))
	for level, n := range s.neg.PendCounts {
		pends[level] = n
	}

	return &Result{
		CaseID:        s.c.CaseID,
		SessionID:     s.neg.SessionID,
		Lines:         s.ledger.Lines(),
		Friction:      s.meter.Snapshot(),
		LevelsVisited: append([]int(nil), s.neg.LevelsVisited...),
		PendCounts:    pends,
		Evidence:      append([]model.Finding(nil), s.neg.Evidence...),
		TreatAnyway:   s.neg.TreatAnyway,
		Iterations:    s.neg.Iteration,
		ForcedDenial:  s.forced,
		OracleCalls:   s.oracleCalls,
		CacheHits:     s.cacheHits,
		StartedAt:     s.neg.StartedAt,
		DurationMS:    time.Since(start).Milliseconds(),
	}
}

// evidenceSummary renders accumulated findings for the oversight prompt.
func (s *Session) evidenceSummary() string {
	if len(s.neg.Evidence) == 0 {
		return "No diagnostic findings on file."
	}
	var b strings.Builder
	for _, f := range s.neg.Evidence {
		fmt.Fprintf(&b, "- %s: %s\n", f.Test, f.Result)
	}
	return strings.TrimSuffix(b.String(), "\n")
}

// toMap round-trips a typed payload through JSON so the audit trail
// carries the exact map shape replay will decode.
func toMap(v any) map[string]any {
	data, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return nil
	}
	return m
}
