package review

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/ppiankov/redtape/internal/audit"
	"github.com/ppiankov/redtape/internal/casefile"
	"github.com/ppiankov/redtape/internal/friction"
	"github.com/ppiankov/redtape/internal/levels"
	"github.com/ppiankov/redtape/internal/model"
	"github.com/ppiankov/redtape/internal/oracle"
)

func testCase() *casefile.Case {
	return &casefile.Case{
		CaseID: "case-001",
		Patient: map[string]any{
			"age":             61,
			"chief_complaint": "low back pain radiating to the left leg",
		},
		TestResultTemplates: map[string]string{
			"MRI lumbar spine": "Disc extrusion at L4-L5 with nerve root compression.",
		},
	}
}

// flatTable disables the copilot draft step so scripted payor turns map
// one to one onto decisions.
func flatTable(t *testing.T) *levels.Table {
	t.Helper()
	defs := levels.Default().All()
	for i := range defs {
		defs[i].DraftStep = false
	}
	table, err := levels.New(defs)
	if err != nil {
		t.Fatalf("flat table: %v", err)
	}
	return table
}

func newSession(t *testing.T, providerTurns, payorTurns []string, table *levels.Table) (*Session, *audit.Memory) {
	t.Helper()
	mem := audit.NewMemory()
	s, err := NewSession(testCase(), Config{
		Table:    table,
		Provider: oracle.NewScripted(providerTurns...),
		Payor:    oracle.NewScripted(payorTurns...),
		Audit:    mem,
	})
	if err != nil {
		t.Fatalf("NewSession: %v", err)
	}
	return s, mem
}

func runSession(t *testing.T, providerTurns, payorTurns []string, table *levels.Table) (*Result, *audit.Memory) {
	t.Helper()
	s, mem := newSession(t, providerTurns, payorTurns, table)
	res, err := s.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	return res, mem
}

func treatmentRequest(service string) string {
	return fmt.Sprintf(`{
  "insurer_request": {
    "diagnosis_codes": [{"icd10": "M54.16", "description": "Radiculopathy, lumbar region"}],
    "clinical_summary": "Persistent radicular pain despite six weeks of conservative therapy.",
    "requested_services": [{
      "line_number": 1,
      "request_type": "treatment",
      "service_name": %q,
      "clinical_evidence": "Positive straight leg raise at 40 degrees, progressive motor deficit.",
      "guideline_references": ["MCG A-0400"]
    }]
  }
}`, service)
}

func diagnosticRequest(test string) string {
	return fmt.Sprintf(`{
  "requested_services": [{
    "line_number": 1,
    "request_type": "diagnostic_test",
    "service_name": %q,
    "test_justification": "Six weeks of radicular pain unresponsive to conservative therapy.",
    "expected_findings": "Disc herniation with nerve root compression."
  }],
  "diagnosis_codes": [{"icd10": "M54.16"}],
  "clinical_summary": "Evaluate for surgical candidacy."
}`, test)
}

func payorDecision(status, reason string) string {
	return fmt.Sprintf(`{"action": %q, "decision_reason": %q}`, status, reason)
}

func pendDecision(reason, document string) string {
	return fmt.Sprintf(`{"action": "pending_info", "decision_reason": %q, "requested_documents": [%q]}`, reason, document)
}

func providerAnswer(action string) string {
	return fmt.Sprintf(`{"provider_action": %q, "reasoning": "balance of recovery odds against staff time"}`, action)
}

func treatAnswer(decision string) string {
	return fmt.Sprintf(`{"decision": %q, "rationale": "weighed patient risk against cost"}`, decision)
}

func actionsOf(entries []audit.Entry) []string {
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.Action
	}
	return out
}

func TestRunTreatmentApprovedFirstPass(t *testing.T) {
	res, mem := runSession(t,
		[]string{treatmentRequest("Physical therapy, 12 visits")},
		[]string{payorDecision("approved", "meets guideline criteria")},
		flatTable(t),
	)

	if len(res.Lines) != 1 {
		t.Fatalf("lines = %d, want 1", len(res.Lines))
	}
	line := res.Lines[0]
	if line.Status != model.LineApproved || !line.Terminal {
		t.Errorf("line = %+v, want terminal approval", line)
	}
	if line.Level != 0 {
		t.Errorf("line level = %d, want 0", line.Level)
	}

	want := friction.Snapshot{ProviderActions: 1, PayorActions: 1}
	if diff := cmp.Diff(want, res.Friction); diff != "" {
		t.Errorf("friction mismatch (-want +got):\n%s", diff)
	}
	if res.Iterations != 1 {
		t.Errorf("iterations = %d, want 1", res.Iterations)
	}
	if res.TreatAnyway != "" {
		t.Errorf("treat consult ran on a full approval: %q", res.TreatAnyway)
	}
	if res.OracleCalls != 2 {
		t.Errorf("oracle calls = %d, want 2", res.OracleCalls)
	}

	wantActions := []string{audit.ActionSubmitRequest, audit.ActionReturnDecision}
	if diff := cmp.Diff(wantActions, actionsOf(mem.Entries())); diff != "" {
		t.Errorf("audit actions (-want +got):\n%s", diff)
	}
}

func TestRunDenialAppealedThenAbandoned(t *testing.T) {
	res, mem := runSession(t,
		[]string{
			treatmentRequest("Lumbar discectomy"),
			providerAnswer("appeal"),
			treatmentRequest("Lumbar discectomy"),
			providerAnswer("abandon"),
			treatAnswer("no_treat"),
		},
		[]string{
			payorDecision("denied", "conservative therapy not exhausted"),
			payorDecision("denied", "record does not establish failure of conservative care"),
		},
		flatTable(t),
	)

	line := res.Lines[0]
	if line.Status != model.LineDenied || !line.Terminal {
		t.Errorf("line = %+v, want terminal denial", line)
	}
	if line.LastAction != model.ActionAbandon {
		t.Errorf("last action = %s, want %s", line.LastAction, model.ActionAbandon)
	}
	if line.Level != 1 {
		t.Errorf("line level = %d, want 1", line.Level)
	}

	want := friction.Snapshot{ProviderActions: 2, PayorActions: 2, EscalationDepth: 1}
	if diff := cmp.Diff(want, res.Friction); diff != "" {
		t.Errorf("friction (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]int{0, 1}, res.LevelsVisited); diff != "" {
		t.Errorf("levels visited (-want +got):\n%s", diff)
	}
	if res.TreatAnyway != model.CareAbandoned {
		t.Errorf("treat anyway = %q, want %q", res.TreatAnyway, model.CareAbandoned)
	}

	var decisionLevels []int
	for _, e := range mem.Entries() {
		if e.Action == audit.ActionReturnDecision {
			decisionLevels = append(decisionLevels, e.Meta.Level)
		}
	}
	if diff := cmp.Diff([]int{0, 1}, decisionLevels); diff != "" {
		t.Errorf("decision levels (-want +got):\n%s", diff)
	}
}

func TestRunPendBudgetExhaustionCoercesDeny(t *testing.T) {
	res, mem := runSession(t,
		[]string{
			treatmentRequest("Spinal fusion"),
			providerAnswer("continue"),
			treatmentRequest("Spinal fusion"),
			providerAnswer("continue"),
			treatmentRequest("Spinal fusion"),
			providerAnswer("abandon"),
			treatAnswer("no_treat"),
		},
		[]string{
			pendDecision("need operative plan", "operative plan"),
			pendDecision("need conservative therapy records", "therapy notes"),
			pendDecision("need peer-reviewed support", "guideline citations"),
		},
		flatTable(t),
	)

	if res.PendCounts[0] != 2 {
		t.Errorf("pends at level 0 = %d, want 2", res.PendCounts[0])
	}
	if res.Iterations != 3 {
		t.Errorf("iterations = %d, want 3", res.Iterations)
	}
	if res.Friction.EscalationDepth != 0 {
		t.Errorf("escalation depth = %d, want 0", res.Friction.EscalationDepth)
	}

	line := res.Lines[0]
	if line.Status != model.LineDenied || line.LastReason != "pend limit reached" {
		t.Errorf("line = %+v, want coerced denial with replaced reason", line)
	}
	if strings.Contains(line.LastReason, "COERCED") {
		t.Error("budget coercion must not carry the terminal-level marker")
	}

	var decisions []audit.Entry
	for _, e := range mem.Entries() {
		if e.Action == audit.ActionReturnDecision {
			decisions = append(decisions, e)
		}
	}
	if len(decisions) != 3 {
		t.Fatalf("decisions = %d, want 3", len(decisions))
	}
	last := decisions[2]
	if last.Parsed["action"] != string(model.OutcomeDeny) {
		t.Errorf("committed third decision = %v; the forbidden pend must never reach the trail", last.Parsed["action"])
	}
	if coerced, _ := last.Parsed["coerced"].(bool); !coerced {
		t.Error("coerced flag missing from the committed decision")
	}
	if last.Meta.PendCount != 2 {
		t.Errorf("pend count on third decision = %d, want 2", last.Meta.PendCount)
	}
}

func TestRunTerminalLevelCoercesPendToDeny(t *testing.T) {
	res, mem := runSession(t,
		[]string{
			treatmentRequest("Inpatient rehabilitation"),
			providerAnswer("appeal"),
			treatmentRequest("Inpatient rehabilitation"),
			providerAnswer("appeal"),
			treatmentRequest("Inpatient rehabilitation"),
			treatAnswer("treat_anyway"),
		},
		[]string{
			payorDecision("denied", "criteria not met"),
			payorDecision("denied", "reconsideration upholds the denial"),
			pendDecision("would like a functional assessment", "functional assessment"),
		},
		flatTable(t),
	)

	if diff := cmp.Diff([]int{0, 1, 2}, res.LevelsVisited); diff != "" {
		t.Errorf("levels visited (-want +got):\n%s", diff)
	}
	want := friction.Snapshot{ProviderActions: 3, PayorActions: 3, EscalationDepth: 2}
	if diff := cmp.Diff(want, res.Friction); diff != "" {
		t.Errorf("friction (-want +got):\n%s", diff)
	}

	line := res.Lines[0]
	if line.Status != model.LineDenied || !line.Terminal {
		t.Errorf("line = %+v, want sealed denial", line)
	}
	if !strings.Contains(line.LastReason, "COERCED") {
		t.Errorf("reason = %q, want the terminal-level coercion marker", line.LastReason)
	}
	if !strings.Contains(line.LastReason, "would like a functional assessment") {
		t.Errorf("reason = %q, want the reviewer's original reason preserved", line.LastReason)
	}
	if res.TreatAnyway != model.TreatedDespiteDenial {
		t.Errorf("treat anyway = %q, want %q", res.TreatAnyway, model.TreatedDespiteDenial)
	}

	for _, e := range mem.Entries() {
		if e.Action == audit.ActionResolveAction && e.Meta.Level == 2 {
			t.Error("provider action solicited at the terminal level")
		}
		if e.Action == audit.ActionReturnDecision && e.Meta.Level == 2 {
			if e.Parsed["action"] != string(model.OutcomeDeny) {
				t.Errorf("terminal-level committed decision = %v, want DENY", e.Parsed["action"])
			}
		}
	}
}

func TestRunApprovedProbeUnlocksEvidence(t *testing.T) {
	res, mem := runSession(t,
		[]string{
			diagnosticRequest("MRI lumbar spine"),
			treatmentRequest("Lumbar discectomy"),
		},
		[]string{
			payorDecision("approved", "imaging criteria met"),
			payorDecision("approved", "surgical criteria met"),
		},
		flatTable(t),
	)

	want := friction.Snapshot{ProviderActions: 2, PayorActions: 2, ProbingTestsCount: 1}
	if diff := cmp.Diff(want, res.Friction); diff != "" {
		t.Errorf("friction (-want +got):\n%s", diff)
	}
	if res.Iterations != 2 {
		t.Errorf("iterations = %d, want 2", res.Iterations)
	}

	if len(res.Evidence) != 1 {
		t.Fatalf("evidence = %+v, want the MRI finding", res.Evidence)
	}
	if res.Evidence[0].Test != "MRI lumbar spine" || !strings.Contains(res.Evidence[0].Result, "Disc extrusion") {
		t.Errorf("finding = %+v, want the pre-authored template", res.Evidence[0])
	}

	if len(res.Lines) != 1 {
		t.Fatalf("lines = %d, want the probe re-typed in place", len(res.Lines))
	}
	line := res.Lines[0]
	if line.Status != model.LineApproved || line.RequestType != model.RequestTreatment || !line.Terminal {
		t.Errorf("line = %+v, want terminal treatment approval", line)
	}

	var submits []audit.Entry
	for _, e := range mem.Entries() {
		if e.Action == audit.ActionSubmitRequest {
			submits = append(submits, e)
		}
	}
	if len(submits) != 2 {
		t.Fatalf("submits = %d, want 2", len(submits))
	}
	second := submits[1].RawInput
	if !strings.Contains(second, "TEST RESULTS RECEIVED") || !strings.Contains(second, "Disc extrusion") {
		t.Error("second request prompt does not carry the unlocked finding")
	}
}

func TestRunModifiedThenAbandonedKeepsModification(t *testing.T) {
	res, _ := runSession(t,
		[]string{
			treatmentRequest("Physical therapy, 24 visits"),
			providerAnswer("abandon"),
			treatAnswer("no_treat"),
		},
		[]string{`{"action": "modified", "decision_reason": "visit count reduced", "approved_quantity": 12, "modification_type": "quantity_reduction"}`},
		flatTable(t),
	)

	line := res.Lines[0]
	if line.Status != model.LineModified || !line.Terminal {
		t.Errorf("line = %+v, want terminal modification", line)
	}
	if line.ApprovedQuantity != 12 || line.ModificationType != "quantity_reduction" {
		t.Errorf("line = %+v, want the reviewer's restriction recorded", line)
	}
	if res.TreatAnyway != model.CareAbandoned {
		t.Errorf("treat anyway = %q, want %q", res.TreatAnyway, model.CareAbandoned)
	}
}

func TestRunIterationCapForcesDeny(t *testing.T) {
	res, mem := runSession(t,
		[]string{
			diagnosticRequest("MRI lumbar spine"),
			diagnosticRequest("EMG lower extremity"),
			diagnosticRequest("CT myelogram"),
			treatAnswer("no_treat"),
		},
		[]string{
			payorDecision("approved", "imaging criteria met"),
			payorDecision("approved", "electrodiagnostics reasonable"),
			payorDecision("approved", "further imaging reasonable"),
		},
		flatTable(t),
	)

	if !res.ForcedDenial {
		t.Fatal("negotiation not force-denied at the iteration cap")
	}
	line := res.Lines[0]
	if line.Status != model.LineDenied || line.LastReason != "max iterations reached" || !line.Terminal {
		t.Errorf("line = %+v, want forced denial", line)
	}
	if len(res.Evidence) != 3 {
		t.Errorf("evidence = %d findings, want 3", len(res.Evidence))
	}

	want := friction.Snapshot{ProviderActions: 3, PayorActions: 3, ProbingTestsCount: 3}
	if diff := cmp.Diff(want, res.Friction); diff != "" {
		t.Errorf("friction (-want +got):\n%s", diff)
	}

	entries := mem.Entries()
	if len(entries) < 2 {
		t.Fatalf("entries = %d", len(entries))
	}
	forced := entries[len(entries)-2]
	if forced.Action != audit.ActionForceDeny || forced.Actor != audit.ActorEngine {
		t.Errorf("penultimate entry = %s/%s, want the engine's forced denial", forced.Actor, forced.Action)
	}
	if forced.Parsed["reason"] != "max iterations reached" {
		t.Errorf("forced reason = %v", forced.Parsed["reason"])
	}
	if last := entries[len(entries)-1]; last.Action != audit.ActionTreatDecision {
		t.Errorf("final entry = %s, want the disposition consult", last.Action)
	}
	if res.TreatAnyway != model.CareAbandoned {
		t.Errorf("treat anyway = %q", res.TreatAnyway)
	}
}

func TestRunUnparsableDecisionDefaultsToDeny(t *testing.T) {
	res, mem := runSession(t,
		[]string{
			treatmentRequest("Physical therapy, 12 visits"),
			providerAnswer("abandon"),
			treatAnswer("no_treat"),
		},
		[]string{"I am unable to provide a structured determination at this time."},
		flatTable(t),
	)

	line := res.Lines[0]
	if line.Status != model.LineDenied || line.LastReason != "unparsable response" {
		t.Errorf("line = %+v, want the documented default denial", line)
	}

	var dec audit.Entry
	for _, e := range mem.Entries() {
		if e.Action == audit.ActionReturnDecision {
			dec = e
		}
	}
	if !dec.Meta.ParseError {
		t.Error("parse failure not flagged on the committed decision")
	}
	if defaulted, _ := dec.Parsed["defaulted"].(bool); !defaulted {
		t.Error("defaulted flag missing from the committed decision")
	}
}

func TestRunUnparsableRequestBecomesDiagnosticProbe(t *testing.T) {
	res, mem := runSession(t,
		[]string{
			"Chart review pending; no structured request available.",
			providerAnswer("abandon"),
			treatAnswer("no_treat"),
		},
		[]string{payorDecision("denied", "no service identified")},
		flatTable(t),
	)

	if res.Friction.ProbingTestsCount != 1 {
		t.Errorf("probing count = %d; the substituted request is a diagnostic probe", res.Friction.ProbingTestsCount)
	}

	var sub audit.Entry
	for _, e := range mem.Entries() {
		if e.Action == audit.ActionSubmitRequest {
			sub = e
		}
	}
	if !sub.Meta.ParseError {
		t.Error("parse failure not flagged on the committed request")
	}
	if defaulted, _ := sub.Parsed["defaulted"].(bool); !defaulted {
		t.Error("defaulted flag missing from the committed request")
	}
	if res.Lines[0].Status != model.LineDenied {
		t.Errorf("line = %+v", res.Lines[0])
	}
}

func TestRunRejectsRequestMissingRequiredFields(t *testing.T) {
	s, _ := newSession(t,
		[]string{`{"requested_services": [{"line_number": 1, "request_type": "treatment", "service_name": "Physical therapy"}]}`},
		nil,
		flatTable(t),
	)
	_, err := s.Run(context.Background())
	if err == nil || !strings.Contains(err.Error(), "clinical_evidence") {
		t.Fatalf("err = %v, want the missing-field contract violation", err)
	}
}

func TestRunRejectsIllegalProviderAction(t *testing.T) {
	s, _ := newSession(t,
		[]string{
			treatmentRequest("Lumbar discectomy"),
			providerAnswer("continue"),
		},
		[]string{payorDecision("denied", "criteria not met")},
		flatTable(t),
	)
	_, err := s.Run(context.Background())
	if !errors.Is(err, ErrIllegalAction) {
		t.Fatalf("err = %v, want ErrIllegalAction", err)
	}
}

func TestRunExclusionDeniesWithoutPayorOracle(t *testing.T) {
	res, mem := runSession(t,
		[]string{
			treatmentRequest("Cosmetic rhinoplasty"),
			providerAnswer("abandon"),
			treatAnswer("no_treat"),
		},
		nil,
		flatTable(t),
	)

	line := res.Lines[0]
	if line.Status != model.LineDenied {
		t.Errorf("line = %+v, want categorical denial", line)
	}
	if !strings.Contains(line.LastReason, "benefit exclusion") {
		t.Errorf("reason = %q", line.LastReason)
	}

	var dec audit.Entry
	for _, e := range mem.Entries() {
		if e.Action == audit.ActionReturnDecision {
			dec = e
		}
	}
	if !dec.Meta.Exclusion {
		t.Error("exclusion not flagged on the committed decision")
	}
	if dec.RawInput != "" || dec.RawOutput != "" {
		t.Error("categorical denial recorded raw oracle text")
	}
	if res.Friction.PayorActions != 1 {
		t.Errorf("payor actions = %d; the categorical denial still counts", res.Friction.PayorActions)
	}
	if res.OracleCalls != 3 {
		t.Errorf("oracle calls = %d, want 3 provider-side calls and none for the payor", res.OracleCalls)
	}
}

func TestRunDraftStepAuditsCopilot(t *testing.T) {
	res, mem := runSession(t,
		[]string{treatmentRequest("Physical therapy, 12 visits")},
		[]string{
			payorDecision("denied", "draft: criteria not met"),
			payorDecision("approved", "oversight corrected the draft"),
		},
		levels.Default(),
	)

	wantActions := []string{audit.ActionSubmitRequest, audit.ActionCopilotDraft, audit.ActionReturnDecision}
	if diff := cmp.Diff(wantActions, actionsOf(mem.Entries())); diff != "" {
		t.Fatalf("audit actions (-want +got):\n%s", diff)
	}

	var draft, dec audit.Entry
	for _, e := range mem.Entries() {
		switch e.Action {
		case audit.ActionCopilotDraft:
			draft = e
		case audit.ActionReturnDecision:
			dec = e
		}
	}
	if draft.Actor != audit.ActorCopilot {
		t.Errorf("draft actor = %s, want %s", draft.Actor, audit.ActorCopilot)
	}
	if draft.Parsed != nil {
		t.Errorf("draft parsed = %v; drafts are advisory and never parsed", draft.Parsed)
	}
	if !strings.Contains(dec.RawInput, "DRAFT TO REVIEW") || !strings.Contains(dec.RawInput, "draft: criteria not met") {
		t.Error("oversight prompt does not carry the copilot draft")
	}

	if res.Friction.PayorActions != 1 {
		t.Errorf("payor actions = %d; the draft must not count", res.Friction.PayorActions)
	}
	if res.Lines[0].Status != model.LineApproved {
		t.Errorf("line = %+v; the oversight ruling is the committed one", res.Lines[0])
	}
	if res.OracleCalls != 3 {
		t.Errorf("oracle calls = %d, want request, draft, and decision", res.OracleCalls)
	}
}

func TestRunReplayReproducesFinalState(t *testing.T) {
	table := flatTable(t)
	res, mem := runSession(t,
		[]string{
			treatmentRequest("Inpatient rehabilitation"),
			providerAnswer("appeal"),
			treatmentRequest("Inpatient rehabilitation"),
			providerAnswer("continue"),
			treatmentRequest("Inpatient rehabilitation"),
			providerAnswer("abandon"),
			treatAnswer("no_treat"),
		},
		[]string{
			payorDecision("denied", "criteria not met"),
			pendDecision("need functional assessment", "functional assessment"),
			payorDecision("denied", "assessment does not support medical necessity"),
		},
		table,
	)

	re, err := audit.Replay(mem.Entries(), table)
	if err != nil {
		t.Fatalf("Replay: %v", err)
	}

	if diff := cmp.Diff(res.Lines, re.Ledger.Lines()); diff != "" {
		t.Errorf("replayed lines diverge (-live +replayed):\n%s", diff)
	}
	if diff := cmp.Diff(res.Friction, re.Friction.Snapshot()); diff != "" {
		t.Errorf("replayed friction diverges (-live +replayed):\n%s", diff)
	}
	if diff := cmp.Diff(res.PendCounts, re.PendCounts); diff != "" {
		t.Errorf("replayed pend counts diverge (-live +replayed):\n%s", diff)
	}
	if diff := cmp.Diff(res.LevelsVisited, re.LevelsVisited); diff != "" {
		t.Errorf("replayed levels diverge (-live +replayed):\n%s", diff)
	}
	if re.TreatAnyway != res.TreatAnyway {
		t.Errorf("replayed treat decision = %q, want %q", re.TreatAnyway, res.TreatAnyway)
	}
	if re.Iterations != res.Iterations {
		t.Errorf("replayed iterations = %d, want %d", re.Iterations, res.Iterations)
	}

	if v := audit.CheckInvariants(mem.Entries(), table); len(v) != 0 {
		t.Errorf("invariant violations: %v", v)
	}
}

func TestRunOnlyOnce(t *testing.T) {
	s, _ := newSession(t,
		[]string{treatmentRequest("Physical therapy, 12 visits")},
		[]string{payorDecision("approved", "meets criteria")},
		flatTable(t),
	)
	if _, err := s.Run(context.Background()); err != nil {
		t.Fatalf("first run: %v", err)
	}
	if _, err := s.Run(context.Background()); err == nil {
		t.Fatal("second run accepted")
	}
}

func TestRunHonorsCancelledContext(t *testing.T) {
	s, _ := newSession(t,
		[]string{treatmentRequest("Physical therapy, 12 visits")},
		[]string{payorDecision("approved", "meets criteria")},
		flatTable(t),
	)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := s.Run(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
}

func TestNewSessionRequirements(t *testing.T) {
	if _, err := NewSession(nil, Config{Provider: oracle.NewScripted(), Payor: oracle.NewScripted()}); err == nil {
		t.Error("nil case accepted")
	}
	if _, err := NewSession(testCase(), Config{Payor: oracle.NewScripted()}); err == nil {
		t.Error("missing provider oracle accepted")
	}
	if _, err := NewSession(testCase(), Config{Provider: oracle.NewScripted()}); err == nil {
		t.Error("missing payor oracle accepted")
	}
}
