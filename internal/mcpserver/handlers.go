package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/ppiankov/redtape/internal/audit"
	"github.com/ppiankov/redtape/internal/casefile"
	"github.com/ppiankov/redtape/internal/friction"
	"github.com/ppiankov/redtape/internal/ledger"
	"github.com/ppiankov/redtape/internal/oracle"
	"github.com/ppiankov/redtape/internal/review"
)

// AdjudicateInput defines parameters for the adjudicate_case tool.
type AdjudicateInput struct {
	Case          json.RawMessage `json:"case" jsonschema:"case fixture JSON with case_id and patient_visible_data"`
	ProviderTurns []string        `json:"provider_turns,omitempty" jsonschema:"scripted provider replies, consumed in order"`
	PayorTurns    []string        `json:"payor_turns,omitempty" jsonschema:"scripted payer replies, consumed in order"`
}

// AdjudicateOutput carries the negotiation result or the failure reason.
type AdjudicateOutput struct {
	Result   *review.Result `json:"result,omitempty"`
	AuditLog string         `json:"audit_log,omitempty"`
	Error    string         `json:"error,omitempty"`
}

// ReplayInput defines parameters for the replay_audit tool.
type ReplayInput struct {
	Path string `json:"path" jsonschema:"path to a .audit.jsonl trail"`
}

// ReplayOutput is the state rebuilt from the trail.
type ReplayOutput struct {
	CaseID        string            `json:"case_id"`
	Lines         []ledger.Line     `json:"lines"`
	Friction      friction.Snapshot `json:"friction"`
	PendCounts    map[int]int       `json:"pend_counts,omitempty"`
	LevelsVisited []int             `json:"levels_visited"`
	TreatAnyway   string            `json:"treat_anyway,omitempty"`
	Iterations    int               `json:"iterations"`
	Entries       int               `json:"entries"`
	Violations    []string          `json:"invariant_violations,omitempty"`
}

// VerifyInput defines parameters for the verify_audit tool.
type VerifyInput struct {
	Path string `json:"path" jsonschema:"path to a .audit.jsonl trail"`
}

// VerifyOutput reports the hash chain check.
type VerifyOutput struct {
	Valid     bool   `json:"valid"`
	Lines     int    `json:"lines"`
	Error     string `json:"error,omitempty"`
	ErrorLine int    `json:"error_line,omitempty"`
}

func (s *Server) handleAdjudicate(ctx context.Context, req *mcpsdk.CallToolRequest, input AdjudicateInput) (*mcpsdk.CallToolResult, AdjudicateOutput, error) {
	c, err := casefile.Parse(input.Case)
	if err != nil {
		return nil, AdjudicateOutput{}, err
	}

	eng := s.engine
	if len(input.ProviderTurns) > 0 || len(input.PayorTurns) > 0 {
		if len(input.ProviderTurns) == 0 || len(input.PayorTurns) == 0 {
			return nil, AdjudicateOutput{}, fmt.Errorf("scripted runs need both provider_turns and payor_turns")
		}
		eng.Provider = oracle.NewScripted(input.ProviderTurns...)
		eng.Payor = oracle.NewScripted(input.PayorTurns...)
		// Scripted turns never leave the process, and draft steps would
		// consume payer turns invisibly.
		eng.RedactProvider = false
		eng.RedactPayor = false
		eng.Table, err = eng.Table.WithoutDrafts()
		if err != nil {
			return nil, AdjudicateOutput{}, err
		}
	}

	res, auditPath, err := eng.Adjudicate(ctx, c)
	if err != nil {
		out := AdjudicateOutput{AuditLog: auditPath, Error: err.Error()}
		return &mcpsdk.CallToolResult{IsError: true}, out, nil
	}

	return nil, AdjudicateOutput{Result: res, AuditLog: auditPath}, nil
}

func (s *Server) handleReplay(ctx context.Context, req *mcpsdk.CallToolRequest, input ReplayInput) (*mcpsdk.CallToolResult, ReplayOutput, error) {
	entries, err := audit.ReadEntries(input.Path)
	if err != nil {
		return nil, ReplayOutput{}, err
	}

	rep, err := audit.Replay(entries, s.engine.Table)
	if err != nil {
		return nil, ReplayOutput{}, fmt.Errorf("replay %s: %w", input.Path, err)
	}

	return nil, ReplayOutput{
		CaseID:        rep.CaseID,
		Lines:         rep.Ledger.Lines(),
		Friction:      rep.Friction.Snapshot(),
		PendCounts:    rep.PendCounts,
		LevelsVisited: rep.LevelsVisited,
		TreatAnyway:   string(rep.TreatAnyway),
		Iterations:    rep.Iterations,
		Entries:       len(entries),
		Violations:    audit.CheckInvariants(entries, s.engine.Table),
	}, nil
}

func (s *Server) handleVerify(ctx context.Context, req *mcpsdk.CallToolRequest, input VerifyInput) (*mcpsdk.CallToolResult, VerifyOutput, error) {
	v := audit.Verify(input.Path)
	return nil, VerifyOutput{
		Valid:     v.Valid,
		Lines:     v.Lines,
		Error:     v.Error,
		ErrorLine: v.ErrorLine,
	}, nil
}
