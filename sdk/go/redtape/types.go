package redtape

import (
	"github.com/ppiankov/redtape/internal/audit"
	"github.com/ppiankov/redtape/internal/model"
	"github.com/ppiankov/redtape/internal/review"
)

// Line is the terminal state of one requested service.
type Line struct {
	Number             int      `json:"line_number"`
	Service            string   `json:"service_name"`
	RequestType        string   `json:"request_type"`
	Status             string   `json:"status"`
	Level              int      `json:"level"`
	Reason             string   `json:"reason,omitempty"`
	ApprovedQuantity   int      `json:"approved_quantity,omitempty"`
	ModificationType   string   `json:"modification_type,omitempty"`
	RequestedDocuments []string `json:"requested_documents,omitempty"`
	Terminal           bool     `json:"terminal"`
}

// Friction counts the administrative burden one negotiation produced.
type Friction struct {
	ProviderActions int `json:"provider_actions"`
	PayorActions    int `json:"payor_actions"`
	ProbingTests    int `json:"probing_tests"`
	EscalationDepth int `json:"escalation_depth"`
}

// Result is the outcome of one adjudicated case.
type Result struct {
	CaseID        string   `json:"case_id"`
	SessionID     string   `json:"session_id"`
	Lines         []Line   `json:"lines"`
	Friction      Friction `json:"friction"`
	LevelsVisited []int    `json:"levels_visited"`
	TreatAnyway   string   `json:"treat_anyway,omitempty"`
	Iterations    int      `json:"iterations"`
	ForcedDenial  bool     `json:"forced_denial,omitempty"`
	OracleCalls   int      `json:"oracle_calls"`
	CacheHits     int      `json:"cache_hits"`
	DurationMS    int64    `json:"duration_ms"`
	AuditTrail    string   `json:"audit_trail,omitempty"`
}

// Approved reports whether every service line ended approved. A
// modified or pended line does not count; neither does an empty case.
func (r *Result) Approved() bool {
	if len(r.Lines) == 0 {
		return false
	}
	for _, ln := range r.Lines {
		if ln.Status != string(model.LineApproved) {
			return false
		}
	}
	return true
}

// VerifyResult reports an audit trail hash chain check.
type VerifyResult struct {
	Valid     bool   `json:"valid"`
	Lines     int    `json:"lines"`
	Error     string `json:"error,omitempty"`
	ErrorLine int    `json:"error_line,omitempty"`
}

// VerifyTrail walks an audit trail and checks every entry's prev_hash
// against the SHA-256 of the previous line.
func VerifyTrail(path string) VerifyResult {
	v := audit.Verify(path)
	return VerifyResult{
		Valid:     v.Valid,
		Lines:     v.Lines,
		Error:     v.Error,
		ErrorLine: v.ErrorLine,
	}
}

// toResult maps an internal review result to the SDK surface.
func toResult(res *review.Result, trail string) *Result {
	out := &Result{
		CaseID:        res.CaseID,
		SessionID:     res.SessionID,
		LevelsVisited: res.LevelsVisited,
		TreatAnyway:   string(res.TreatAnyway),
		Iterations:    res.Iterations,
		ForcedDenial:  res.ForcedDenial,
		OracleCalls:   res.OracleCalls,
		CacheHits:     res.CacheHits,
		DurationMS:    res.DurationMS,
		AuditTrail:    trail,
		Friction: Friction{
			ProviderActions: res.Friction.ProviderActions,
			PayorActions:    res.Friction.PayorActions,
			ProbingTests:    res.Friction.ProbingTestsCount,
			EscalationDepth: res.Friction.EscalationDepth,
		},
	}
	for _, ln := range res.Lines {
		out.Lines = append(out.Lines, Line{
			Number:             ln.LineNumber,
			Service:            ln.ServiceName,
			RequestType:        string(ln.RequestType),
			Status:             string(ln.Status),
			Level:              ln.Level,
			Reason:             ln.LastReason,
			ApprovedQuantity:   ln.ApprovedQuantity,
			ModificationType:   ln.ModificationType,
			RequestedDocuments: ln.RequestedDocuments,
			Terminal:           ln.Terminal,
		})
	}
	return out
}
