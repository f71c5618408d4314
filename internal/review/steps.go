package review

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/ppiankov/redtape/internal/audit"
	"github.com/ppiankov/redtape/internal/exclusions"
	"github.com/ppiankov/redtape/internal/levels"
	"github.com/ppiankov/redtape/internal/model"
	"github.com/ppiankov/redtape/internal/oracle"
	"github.com/ppiankov/redtape/internal/parse"
)

// ErrIllegalAction marks a provider answer outside the legal set for
// the decision it follows. Never coerced: only decision kinds get
// coerced, and a resolver that cannot name a legal move means the
// oracle broke its contract or the engine has a bug.
var ErrIllegalAction = errors.New("provider action outside the legal set")

// submitRequest runs one provider turn: build the request prompt,
// invoke, parse, commit. Unparsable output substitutes the minimal
// diagnostic probe; parsable output missing type-required fields is
// fatal. The audit write commits the step before any counter moves.
func (s *Session) submitRequest(ctx context.Context, iter int, lvl levels.Level) (*model.ProviderRequest, error) {
	user := s.prompts.ProviderRequest(s.c, s.neg, iter)
	rep, err := s.invoke(ctx, s.provider, s.prompts.ProviderSystem(), user, audit.ActorProvider, audit.ActionSubmitRequest, iter, lvl)
	if err != nil {
		return nil, fmt.Errorf("provider request: %w", err)
	}

	var req *model.ProviderRequest
	if m, perr := parse.ExtractObject(rep.Text); perr == nil {
		req = model.RequestFromMap(m)
	}
	parseFailed := req == nil || len(req.RequestedServices) == 0
	if parseFailed {
		req = model.DefaultRequest()
	}
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("provider request for case %s: %w", s.c.CaseID, err)
	}

	entry := s.entry(audit.ActorProvider, audit.ActionSubmitRequest, user, rep.Text, toMap(req), iter, lvl)
	entry.Meta.CacheHit = rep.CacheHit
	entry.Meta.ParseError = parseFailed
	if err := s.sink.Record(entry); err != nil {
		return nil, err
	}

	s.meter.ProviderActed()
	if req.PrimaryType() == model.RequestDiagnosticTest {
		s.meter.ProbeOrdered()
	}
	s.meter.ObserveLevel(lvl.Index)

	return req, nil
}

// returnDecision runs one payer turn. Requests matching the benefit
// exclusion list are denied categorically without consulting the
// oracle. Levels with a draft step invoke the copilot first and have
// the oversight reviewer finalize its draft; the draft itself never
// feeds classification.
func (s *Session) returnDecision(ctx context.Context, iter int, lvl levels.Level, req *model.ProviderRequest) (*model.Decision, error) {
	if matches := s.excl.Check(req); len(matches) > 0 {
		return s.excludeDeny(iter, lvl, req, matches)
	}

	user := s.prompts.PayorReview(s.c, req, s.neg, iter)

	if lvl.DraftStep {
		draft, err := s.invoke(ctx, s.payor, s.prompts.PayorSystem(), user, audit.ActorCopilot, audit.ActionCopilotDraft, iter, lvl)
		if err != nil {
			return nil, fmt.Errorf("copilot draft: %w", err)
		}
		de := s.entry(audit.ActorCopilot, audit.ActionCopilotDraft, user, draft.Text, nil, iter, lvl)
		de.Meta.CacheHit = draft.CacheHit
		if err := s.sink.Record(de); err != nil {
			return nil, err
		}
		user = s.prompts.OversightEdit(lvl.RoleLabel, draft.Text, s.evidenceSummary())
	}

	rep, err := s.invoke(ctx, s.payor, s.prompts.PayorSystem(), user, audit.ActorPayor, audit.ActionReturnDecision, iter, lvl)
	if err != nil {
		return nil, fmt.Errorf("payor decision: %w", err)
	}

	var dec *model.Decision
	if m, perr := parse.ExtractObject(rep.Text); perr == nil {
		dec = model.DecisionFromMap(m)
	}
	parseFailed := dec == nil || dec.Kind == ""
	if parseFailed {
		dec = model.DefaultDecision("unparsable response")
	}

	Coerce(dec, lvl, s.neg.PendCount(lvl.Index))
	dec.ReviewerRole = lvl.RoleLabel
	dec.Level = lvl.Index

	entry := s.entry(audit.ActorPayor, audit.ActionReturnDecision, user, rep.Text, toMap(dec), iter, lvl)
	entry.Meta.CacheHit = rep.CacheHit
	entry.Meta.ParseError = parseFailed
	if err := s.sink.Record(entry); err != nil {
		return nil, err
	}

	return dec, s.commitDecision(dec, lvl, req)
}

// excludeDeny issues the payer's categorical denial for a request that
// matches the benefit exclusion list. No oracle call, no cost; the
// decision still flows through the normal provider action path.
func (s *Session) excludeDeny(iter int, lvl levels.Level, req *model.ProviderRequest, matches []exclusions.Match) (*model.Decision, error) {
	var rules []string
	seen := make(map[string]bool)
	for _, m := range matches {
		if !seen[m.Rule] {
			seen[m.Rule] = true
			rules = append(rules, m.Rule)
		}
	}

	dec := &model.Decision{
		Kind:         model.OutcomeDeny,
		Reason:       "benefit exclusion: " + strings.Join(rules, "; "),
		ReviewerRole: lvl.RoleLabel,
		Level:        lvl.Index,
	}

	entry := s.entry(audit.ActorPayor, audit.ActionReturnDecision, "", "", toMap(dec), iter, lvl)
	entry.Meta.Exclusion = true
	if err := s.sink.Record(entry); err != nil {
		return nil, err
	}

	return dec, s.commitDecision(dec, lvl, req)
}

// commitDecision applies the counter and ledger mutations a committed
// decision implies, exactly as replay will apply them from the trail.
func (s *Session) commitDecision(dec *model.Decision, lvl levels.Level, req *model.ProviderRequest) error {
	s.meter.PayorActed()
	s.meter.ObserveLevel(lvl.Index)

	var err error
	if dec.Kind == model.OutcomeApprove {
		err = s.ledger.UpsertFromApproval(req, dec)
	} else {
		err = s.ledger.UpsertFromNonApproval(req, dec.Kind, dec)
	}
	if err != nil {
		return fmt.Errorf("ledger: %w", err)
	}

	if lvl.Terminal {
		s.ledger.SealOpen()
	}
	return nil
}

// resolveAction asks the provider oracle to choose its next move and
// validates the answer. Illegal or unparsable answers fail the run.
func (s *Session) resolveAction(ctx context.Context, iter int, lvl levels.Level, dec *model.Decision, req *model.ProviderRequest, legal []model.ProviderAction) (model.ProviderAction, error) {
	user := s.prompts.ResolveAction(dec, req.PrimaryType(), lvl.Index, legal)
	rep, err := s.invoke(ctx, s.provider, s.prompts.ProviderSystem(), user, audit.ActorProvider, audit.ActionResolveAction, iter, lvl)
	if err != nil {
		return "", fmt.Errorf("provider action: %w", err)
	}

	act, err := parseProviderAction(rep.Text, legal)
	if err != nil {
		return "", fmt.Errorf("provider action for case %s: %w", s.c.CaseID, err)
	}

	entry := s.entry(audit.ActorProvider, audit.ActionResolveAction, user, rep.Text, map[string]any{"action": string(act)}, iter, lvl)
	entry.Meta.CacheHit = rep.CacheHit
	if err := s.sink.Record(entry); err != nil {
		return "", err
	}

	s.ledger.RecordAction(act)
	if dec.Kind == model.OutcomeRequestInfo && act == model.ActionContinue {
		s.neg.RecordPend(lvl.Index)
	}

	return act, nil
}

// parseProviderAction extracts the provider's chosen move from raw
// oracle text and checks it against the legal set.
func parseProviderAction(text string, legal []model.ProviderAction) (model.ProviderAction, error) {
	m, err := parse.ExtractObject(text)
	if err != nil {
		return "", fmt.Errorf("unparsable provider action: %w", err)
	}

	raw, _ := m["provider_action"].(string)
	if raw == "" {
		raw, _ = m["action"].(string)
	}
	act, ok := model.ActionFromString(strings.ToUpper(strings.TrimSpace(raw)))
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrIllegalAction, raw)
	}
	for _, l := range legal {
		if act == l {
			return act, nil
		}
	}
	return "", fmt.Errorf("%w: %s not allowed after this decision", ErrIllegalAction, act)
}

// forceDeny seals every open line when the iteration budget runs out
// before a genuine terminal outcome.
func (s *Session) forceDeny(reason string) error {
	lvl, err := s.table.At(s.neg.Level)
	if err != nil {
		return err
	}

	entry := s.entry(audit.ActorEngine, audit.ActionForceDeny, "", "", map[string]any{"reason": reason}, s.neg.Iteration, lvl)
	if err := s.sink.Record(entry); err != nil {
		return err
	}

	s.ledger.ForceDenyOpen(reason, lvl.Index)
	s.forced = true
	return nil
}

// recordFindings resolves approved diagnostic lines against the case
// fixture and adds the results to the negotiation's evidence. Tests the
// fixture does not pre-author come back unremarkable.
func (s *Session) recordFindings(req *model.ProviderRequest) {
	for _, svc := range req.RequestedServices {
		if svc.RequestType != model.RequestDiagnosticTest || svc.ServiceName == "" {
			continue
		}
		result, ok := s.c.FindingFor(svc.ServiceName)
		if !ok {
			result = "Result unremarkable; no abnormality documented."
		}
		s.neg.AddEvidence(svc.ServiceName, result)
	}
}

// invoke calls one oracle and tracks call and cache-hit counts. The
// metadata string keys the response cache per step, so identical prompt
// text in different slots never collides.
func (s *Session) invoke(ctx context.Context, o oracle.Oracle, system, user, actor, action string, iter int, lvl levels.Level) (oracle.Reply, error) {
	rep, err := o.Invoke(ctx, oracle.Prompt{
		System: system,
		User:   user,
		Meta:   fmt.Sprintf("%s/%s/L%d/i%d", actor, action, lvl.Index, iter),
	})
	if err != nil {
		return rep, err
	}
	s.oracleCalls++
	if rep.CacheHit {
		s.cacheHits++
	}
	return rep, nil
}

// entry builds a prior-auth trail entry with the step metadata stamped.
// The pend count recorded is the count before this step's mutations.
func (s *Session) entry(actor, action, rawIn, rawOut string, parsed map[string]any, iter int, lvl levels.Level) audit.Entry {
	return audit.Entry{
		InteractionID: audit.NewInteractionID(audit.PhasePriorAuth, actor, action),
		CaseID:        s.c.CaseID,
		Phase:         audit.PhasePriorAuth,
		Actor:         actor,
		Action:        action,
		RawInput:      rawIn,
		RawOutput:     rawOut,
		Parsed:        parsed,
		Meta: audit.StepMeta{
			Iteration:  iter,
			Level:      lvl.Index,
			PendCount:  s.neg.PendCount(lvl.Index),
			ConfigHash: s.configHash,
		},
	}
}
