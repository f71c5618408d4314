package review

import (
	"context"
	"fmt"
	"strings"

	"github.com/ppiankov/redtape/internal/audit"
	"github.com/ppiankov/redtape/internal/model"
	"github.com/ppiankov/redtape/internal/parse"
)

// treatConsult asks the provider, once, whether to deliver care without
// authorization. Runs only after a terminal non-approval; no further
// review follows. Unparsable answers default to abandoning care.
func (s *Session) treatConsult(ctx context.Context) error {
	user := s.prompts.TreatDecision(s.outcomeSummary())

	lvl, err := s.table.At(s.neg.Level)
	if err != nil {
		return err
	}
	rep, err := s.invoke(ctx, s.provider, s.prompts.ProviderSystem(), user, audit.ActorProvider, audit.ActionTreatDecision, s.neg.Iteration, lvl)
	if err != nil {
		return fmt.Errorf("treat decision: %w", err)
	}

	decision := model.CareAbandoned
	parseFailed := true
	if m, perr := parse.ExtractObject(rep.Text); perr == nil {
		if raw, _ := m["decision"].(string); raw != "" {
			switch strings.ToLower(strings.TrimSpace(raw)) {
			case "treat_anyway":
				decision = model.TreatedDespiteDenial
				parseFailed = false
			case "no_treat":
				decision = model.CareAbandoned
				parseFailed = false
			}
		}
	}

	entry := audit.Entry{
		InteractionID: audit.NewInteractionID(audit.PhaseDisposition, audit.ActorProvider, audit.ActionTreatDecision),
		CaseID:        s.c.CaseID,
		Phase:         audit.PhaseDisposition,
		Actor:         audit.ActorProvider,
		Action:        audit.ActionTreatDecision,
		RawInput:      user,
		RawOutput:     rep.Text,
		Parsed:        map[string]any{"decision": string(decision)},
		Meta: audit.StepMeta{
			Iteration:  s.neg.Iteration,
			Level:      lvl.Index,
			PendCount:  s.neg.PendCount(lvl.Index),
			CacheHit:   rep.CacheHit,
			ParseError: parseFailed,
			ConfigHash: s.configHash,
		},
	}
	if err := s.sink.Record(entry); err != nil {
		return err
	}

	s.neg.TreatAnyway = decision
	return nil
}

// outcomeSummary renders the final disposition of every line for the
// treat-anyway prompt.
func (s *Session) outcomeSummary() string {
	var b strings.Builder
	for _, line := range s.ledger.Lines() {
		name := line.ServiceName
		if name == "" {
			name = "unnamed service"
		}
		fmt.Fprintf(&b, "line %d (%s) %s", line.LineNumber, name, line.Status)
		if line.LastReason != "" {
			fmt.Fprintf(&b, " - %s", line.LastReason)
		}
		b.WriteString("; ")
	}
	return strings.TrimSuffix(b.String(), "; ")
}
