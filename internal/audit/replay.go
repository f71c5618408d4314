package audit

import (
	"fmt"

	"github.com/ppiankov/redtape/internal/friction"
	"github.com/ppiankov/redtape/internal/ledger"
	"github.com/ppiankov/redtape/internal/levels"
	"github.com/ppiankov/redtape/internal/model"
)

// Replayed is the state rebuilt from a committed trail. Replaying the
// same trail always produces the same Replayed value; the engine keeps no
// state outside what it records.
type Replayed struct {
	CaseID        string
	Ledger        *ledger.Ledger
	Friction      *friction.Meter
	PendCounts    map[int]int
	LevelsVisited []int
	TreatAnyway   model.TreatDecision
	Iterations    int
}

// Replay folds an ordered entry stream into a fresh ledger and meter,
// applying the same commit rules the engine applied live. A nil table
// means the built-in review table.
func Replay(entries []Entry, table *levels.Table) (*Replayed, error) {
	if table == nil {
		table = levels.Default()
	}

	r := &Replayed{
		Ledger:     ledger.New(),
		Friction:   friction.New(),
		PendCounts: make(map[int]int),
	}

	var lastRequest *model.ProviderRequest
	var lastDecision *model.Decision
	lastLevel := -1

	for i, e := range entries {
		if r.CaseID == "" {
			r.CaseID = e.CaseID
		}

		if e.Phase == PhasePriorAuth && e.Meta.Level != lastLevel {
			r.LevelsVisited = append(r.LevelsVisited, e.Meta.Level)
			lastLevel = e.Meta.Level
		}
		if e.Meta.Iteration > r.Iterations {
			r.Iterations = e.Meta.Iteration
		}

		switch e.Action {
		case ActionSubmitRequest:
			lastRequest = model.RequestFromMap(e.Parsed)
			r.Friction.ProviderActed()
			if lastRequest.PrimaryType() == model.RequestDiagnosticTest {
				r.Friction.ProbeOrdered()
			}
			r.Friction.ObserveLevel(e.Meta.Level)

		case ActionCopilotDraft:
			// Drafts are advisory; they move no counters and no lines.

		case ActionReturnDecision:
			if lastRequest == nil {
				return nil, fmt.Errorf("audit: entry %d: decision with no preceding request", i+1)
			}
			dec := model.DecisionFromMap(e.Parsed)
			dec.Level = e.Meta.Level
			// The role label is stamped by the engine, not parsed from
			// oracle output, so recover it from the committed record.
			if role, ok := e.Parsed["reviewer_type"].(string); ok {
				dec.ReviewerRole = role
			}
			lastDecision = dec
			r.Friction.PayorActed()
			r.Friction.ObserveLevel(e.Meta.Level)

			lvl, err := table.At(e.Meta.Level)
			if err != nil {
				return nil, fmt.Errorf("audit: entry %d: %w", i+1, err)
			}

			switch dec.Kind {
			case model.OutcomeApprove:
				if err := r.Ledger.UpsertFromApproval(lastRequest, dec); err != nil {
					return nil, fmt.Errorf("audit: entry %d: %w", i+1, err)
				}
			case model.OutcomeModify, model.OutcomeDeny, model.OutcomeRequestInfo:
				if err := r.Ledger.UpsertFromNonApproval(lastRequest, dec.Kind, dec); err != nil {
					return nil, fmt.Errorf("audit: entry %d: %w", i+1, err)
				}
			default:
				return nil, fmt.Errorf("audit: entry %d: committed decision has kind %q", i+1, dec.Kind)
			}

			if lvl.Terminal {
				r.Ledger.SealOpen()
			}

		case ActionResolveAction:
			action, ok := parsedAction(e.Parsed)
			if !ok {
				return nil, fmt.Errorf("audit: entry %d: committed action is illegal", i+1)
			}
			r.Ledger.RecordAction(action)
			if lastDecision != nil && lastDecision.Kind == model.OutcomeRequestInfo && action == model.ActionContinue {
				r.PendCounts[e.Meta.Level]++
			}

		case ActionForceDeny:
			reason, _ := e.Parsed["reason"].(string)
			r.Ledger.ForceDenyOpen(reason, e.Meta.Level)

		case ActionTreatDecision:
			if s, ok := e.Parsed["decision"].(string); ok {
				switch model.TreatDecision(s) {
				case model.TreatedDespiteDenial, model.CareAbandoned:
					r.TreatAnyway = model.TreatDecision(s)
				}
			}

		default:
			return nil, fmt.Errorf("audit: entry %d: unknown action %q", i+1, e.Action)
		}
	}

	return r, nil
}

func parsedAction(m map[string]any) (model.ProviderAction, bool) {
	s, ok := m["action"].(string)
	if !ok {
		return "", false
	}
	return model.ActionFromString(s)
}

// CheckInvariants walks an entry stream and reports every violation of
// the negotiation rules: monotonic levels, bounded pends, terminal-level
// purity, single-step escalation. An intact trail returns nil.
func CheckInvariants(entries []Entry, table *levels.Table) []string {
	if table == nil {
		table = levels.Default()
	}

	var violations []string
	prevLevel := 0
	prevRequestLevel := -1
	forceDenied := false

	for i, e := range entries {
		line := i + 1

		if e.Meta.Level < 0 || e.Meta.Level > levels.MaxLevel {
			violations = append(violations, fmt.Sprintf("line %d: level %d out of range", line, e.Meta.Level))
			continue
		}
		if e.Phase == PhasePriorAuth {
			if e.Meta.Level < prevLevel {
				violations = append(violations, fmt.Sprintf("line %d: level regressed %d -> %d", line, prevLevel, e.Meta.Level))
			}
			prevLevel = e.Meta.Level
		}

		lvl, err := table.At(e.Meta.Level)
		if err != nil {
			violations = append(violations, fmt.Sprintf("line %d: %v", line, err))
			continue
		}

		switch e.Action {
		case ActionSubmitRequest:
			if prevRequestLevel >= 0 {
				if jump := e.Meta.Level - prevRequestLevel; jump != 0 && jump != 1 {
					violations = append(violations, fmt.Sprintf("line %d: escalation jumped %d levels", line, jump))
				}
			}
			prevRequestLevel = e.Meta.Level

		case ActionReturnDecision:
			if a, ok := e.Parsed["action"].(string); ok && lvl.Terminal && a == string(model.OutcomeRequestInfo) {
				violations = append(violations, fmt.Sprintf("line %d: REQUEST_INFO committed at terminal level %d", line, e.Meta.Level))
			}
			if e.Meta.PendCount > lvl.PendBudget {
				violations = append(violations, fmt.Sprintf("line %d: pend count %d exceeds budget %d at level %d", line, e.Meta.PendCount, lvl.PendBudget, e.Meta.Level))
			}

		case ActionResolveAction:
			if lvl.Terminal {
				violations = append(violations, fmt.Sprintf("line %d: provider action solicited at terminal level %d", line, e.Meta.Level))
			}
		}

		if forceDenied && e.Phase == PhasePriorAuth {
			violations = append(violations, fmt.Sprintf("line %d: review step after forced denial", line))
		}
		if e.Action == ActionForceDeny {
			forceDenied = true
		}
	}

	return violations
}
