package review

import (
	"fmt"
	"strings"

	"github.com/ppiankov/redtape/internal/levels"
	"github.com/ppiankov/redtape/internal/model"
)

// Verdict is the classifier's loop-control ruling for one committed
// decision.
type Verdict string

const (
	// ContinueAtLevel keeps the negotiation at the current level for
	// another round.
	ContinueAtLevel Verdict = "continue_at_level"
	// Escalate moves the negotiation to the next review level.
	Escalate Verdict = "escalate"
	// Terminal ends the negotiation.
	Terminal Verdict = "terminal"
)

// Resolution is the classifier's ruling plus the provider action that
// produced it, when one was solicited.
type Resolution struct {
	Verdict Verdict
	Action  model.ProviderAction
}

// Resolver obtains the provider's next move from the given legal set.
// The engine backs it with the provider oracle; tests use stubs.
// Implementations must return only actions from the legal set or an
// error; answers outside the set are contract violations, never coerced.
type Resolver func(legal []model.ProviderAction) (model.ProviderAction, error)

// LegalActions returns the provider moves permitted after an adverse
// decision at a non-terminal level. Appeal is not available after a
// pend; the provider either supplies the documents or walks away.
// APPROVE never consults the provider.
func LegalActions(kind model.OutcomeKind) []model.ProviderAction {
	switch kind {
	case model.OutcomeModify, model.OutcomeDeny:
		return []model.ProviderAction{model.ActionAppeal, model.ActionAbandon}
	case model.OutcomeRequestInfo:
		return []model.ProviderAction{model.ActionContinue, model.ActionAbandon}
	}
	return nil
}

// Coerce rewrites a REQUEST_INFO the level rules forbid into a DENY,
// marking the decision so downstream analysis can separate policy
// artifacts from genuine reviewer rulings. Returns true when the
// decision was rewritten. Runs before the decision is committed, so a
// forbidden pend never appears in the audit trail.
func Coerce(dec *model.Decision, lvl levels.Level, pendsUsed int) bool {
	if dec.Kind != model.OutcomeRequestInfo {
		return false
	}

	if lvl.Terminal {
		dec.Kind = model.OutcomeDeny
		dec.Reason = strings.TrimSpace(dec.Reason + " [COERCED: independent review cannot pend]")
		dec.Coerced = true
		dec.RequestedDocuments = nil
		return true
	}
	if !lvl.CanPend || pendsUsed >= lvl.PendBudget {
		dec.Kind = model.OutcomeDeny
		dec.Reason = "pend limit reached"
		dec.Coerced = true
		dec.RequestedDocuments = nil
		return true
	}
	return false
}

// Classify applies the decision matrix to one committed decision and
// reports how the loop proceeds:
//
//	APPROVE of treatment or level_of_care  -> Terminal (line approved)
//	APPROVE of diagnostic_test             -> ContinueAtLevel (evidence round)
//	MODIFY / DENY                          -> resolver: APPEAL -> Escalate, ABANDON -> Terminal
//	REQUEST_INFO                           -> resolver: CONTINUE -> ContinueAtLevel, ABANDON -> Terminal
//	anything at a terminal level           -> Terminal, resolver never consulted
//
// A REQUEST_INFO reaching a terminal level is an error here: Coerce must
// have rewritten it before commit.
func Classify(dec *model.Decision, reqType model.RequestType, lvl levels.Level, resolve Resolver) (Resolution, error) {
	switch dec.Kind {
	case model.OutcomeApprove:
		if reqType == model.RequestDiagnosticTest && !lvl.Terminal {
			return Resolution{Verdict: ContinueAtLevel}, nil
		}
		return Resolution{Verdict: Terminal}, nil

	case model.OutcomeModify, model.OutcomeDeny:
		if lvl.Terminal {
			return Resolution{Verdict: Terminal}, nil
		}
		act, err := resolve(LegalActions(dec.Kind))
		if err != nil {
			return Resolution{}, err
		}
		if act == model.ActionAppeal {
			return Resolution{Verdict: Escalate, Action: act}, nil
		}
		return Resolution{Verdict: Terminal, Action: act}, nil

	case model.OutcomeRequestInfo:
		if lvl.Terminal {
			return Resolution{}, fmt.Errorf("REQUEST_INFO committed at terminal level %d", lvl.Index)
		}
		act, err := resolve(LegalActions(dec.Kind))
		if err != nil {
			return Resolution{}, err
		}
		if act == model.ActionContinue {
			return Resolution{Verdict: ContinueAtLevel, Action: act}, nil
		}
		return Resolution{Verdict: Terminal, Action: act}, nil
	}

	return Resolution{}, fmt.Errorf("decision kind %q cannot be classified", dec.Kind)
}
