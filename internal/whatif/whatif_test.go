package whatif

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ppiankov/redtape/internal/audit"
	"github.com/ppiankov/redtape/internal/batch"
	"github.com/ppiankov/redtape/internal/casefile"
	"github.com/ppiankov/redtape/internal/oracle"
)

const caseJSON = `{"case_id": "case-001", "patient_visible_data": {"age": 61, "chief_complaint": "low back pain radiating to the left leg"}}`

const therapyRequest = `{
  "insurer_request": {
    "diagnosis_codes": [{"icd10": "M54.16", "description": "Radiculopathy, lumbar region"}],
    "clinical_summary": "Persistent radicular pain despite conservative therapy.",
    "requested_services": [{
      "line_number": 1,
      "request_type": "treatment",
      "service_name": "Physical therapy, 12 visits",
      "clinical_evidence": "Positive straight leg raise, progressive motor deficit.",
      "guideline_references": ["MCG A-0400"]
    }]
  }
}`

const acupunctureRequest = `{
  "insurer_request": {
    "diagnosis_codes": [{"icd10": "M54.16", "description": "Radiculopathy, lumbar region"}],
    "clinical_summary": "Patient requests adjunct acupuncture for radicular pain.",
    "requested_services": [{
      "line_number": 1,
      "request_type": "treatment",
      "service_name": "Acupuncture, 8 sessions",
      "clinical_evidence": "Pain refractory to NSAIDs.",
      "guideline_references": []
    }]
  }
}`

// provider answers every submit consult with the given request and every
// resolve consult with the given action.
func provider(request, action string) oracle.Oracle {
	return oracle.Func(func(_ context.Context, p oracle.Prompt) (oracle.Reply, error) {
		switch {
		case strings.Contains(p.Meta, audit.ActionSubmitRequest):
			return oracle.Reply{Text: request}, nil
		case strings.Contains(p.Meta, audit.ActionResolveAction):
			return oracle.Reply{Text: `{"provider_action": "` + action + `", "reasoning": "per protocol"}`}, nil
		default:
			return oracle.Reply{Text: `{"decision": "no_treat"}`}, nil
		}
	})
}

func approvingPayor() oracle.Oracle {
	return oracle.Func(func(_ context.Context, p oracle.Prompt) (oracle.Reply, error) {
		if strings.Contains(p.Meta, audit.ActionCopilotDraft) {
			return oracle.Reply{Text: "Draft: approve, criteria met."}, nil
		}
		return oracle.Reply{Text: `{"action": "approved", "decision_reason": "meets guideline criteria"}`}, nil
	})
}

// pendingOncePayor pends the first decision and approves the second.
func pendingOncePayor() oracle.Oracle {
	pended := false
	return oracle.Func(func(_ context.Context, p oracle.Prompt) (oracle.Reply, error) {
		if strings.Contains(p.Meta, audit.ActionCopilotDraft) {
			return oracle.Reply{Text: "Draft: hold for records."}, nil
		}
		if !pended {
			pended = true
			return oracle.Reply{Text: `{"action": "pending_info", "decision_reason": "therapy notes missing", "requested_documents": ["therapy notes"]}`}, nil
		}
		return oracle.Reply{Text: `{"action": "approved", "decision_reason": "notes support medical necessity"}`}, nil
	})
}

// runCase adjudicates the inline case and returns the trail path.
func runCase(t *testing.T, prov, payor oracle.Oracle) string {
	t.Helper()
	c, err := casefile.Parse([]byte(caseJSON))
	if err != nil {
		t.Fatalf("parse case: %v", err)
	}
	eng := batch.Engine{Provider: prov, Payor: payor, AuditDir: t.TempDir()}
	_, trail, err := eng.Adjudicate(context.Background(), c)
	if err != nil {
		t.Fatalf("adjudicate: %v", err)
	}
	return trail
}

func writeRules(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
	return path
}

const altLevelsYAML = `levels:
  - index: 0
    name: initial_determination
    role_label: UM Reviewer
    can_pend: false
    pend_budget: 0
  - index: 1
    name: internal_reconsideration
    role_label: Medical Director
    can_pend: true
    pend_budget: 2
  - index: 2
    name: independent_review
    role_label: IRE Reviewer
    terminal: true
`

func TestRunNewlyExcluded(t *testing.T) {
	trail := runCase(t, provider(therapyRequest, "abandon"), approvingPayor())
	excl := writeRules(t, "exclusions.yaml", "services:\n  - \"physical therapy*\"\n")

	res, err := Run(trail, excl, "")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if res.CaseID != "case-001" {
		t.Errorf("CaseID = %q, want case-001", res.CaseID)
	}
	if res.TotalRequests != 1 {
		t.Errorf("TotalRequests = %d, want 1", res.TotalRequests)
	}
	if len(res.Changes) != 1 || res.NewlyExcluded != 1 || res.NewlyCovered != 0 {
		t.Fatalf("changes = %d (excluded %d, covered %d), want 1/1/0",
			len(res.Changes), res.NewlyExcluded, res.NewlyCovered)
	}

	ch := res.Changes[0]
	if ch.OldExcluded || !ch.NewExcluded {
		t.Errorf("change direction = %v -> %v, want review -> excluded", ch.OldExcluded, ch.NewExcluded)
	}
	if !strings.Contains(ch.Services, "Physical therapy") {
		t.Errorf("Services = %q", ch.Services)
	}
	if len(ch.NewRules) != 1 || !strings.Contains(ch.NewRules[0], "service excluded") {
		t.Errorf("NewRules = %v", ch.NewRules)
	}
}

func TestRunNewlyCovered(t *testing.T) {
	// The default list screens acupuncture without an oracle consult; the
	// alternate list covers it, so the recorded screen flips to review.
	trail := runCase(t, provider(acupunctureRequest, "abandon"), approvingPayor())
	excl := writeRules(t, "exclusions.yaml", "services:\n  - \"cosmetic*\"\n")

	res, err := Run(trail, excl, "")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if len(res.Changes) != 1 || res.NewlyCovered != 1 || res.NewlyExcluded != 0 {
		t.Fatalf("changes = %d (excluded %d, covered %d), want 1/0/1",
			len(res.Changes), res.NewlyExcluded, res.NewlyCovered)
	}
	ch := res.Changes[0]
	if !ch.OldExcluded || ch.NewExcluded {
		t.Errorf("change direction = %v -> %v, want excluded -> review", ch.OldExcluded, ch.NewExcluded)
	}
	if !strings.Contains(ch.OldReason, "benefit exclusion") {
		t.Errorf("OldReason = %q", ch.OldReason)
	}
	if len(ch.NewRules) != 0 {
		t.Errorf("NewRules = %v, want none", ch.NewRules)
	}
}

func TestRunNoChanges(t *testing.T) {
	trail := runCase(t, provider(therapyRequest, "abandon"), approvingPayor())
	excl := writeRules(t, "exclusions.yaml", "services:\n  - \"cosmetic*\"\n")

	res, err := Run(trail, excl, "")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(res.Changes) != 0 || res.NewlyExcluded != 0 || res.NewlyCovered != 0 {
		t.Errorf("changes = %d (excluded %d, covered %d), want none",
			len(res.Changes), res.NewlyExcluded, res.NewlyCovered)
	}
}

func TestRunPendBudgetViolation(t *testing.T) {
	// One pend at level 0 is legal under the default budget but exceeds
	// the alternate table's budget of zero.
	trail := runCase(t, provider(therapyRequest, "continue"), pendingOncePayor())
	lvls := writeRules(t, "levels.yaml", altLevelsYAML)

	res, err := Run(trail, "", lvls)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if res.TotalRequests != 2 {
		t.Errorf("TotalRequests = %d, want 2", res.TotalRequests)
	}
	if len(res.Changes) != 0 {
		t.Errorf("Changes = %v, want none without an exclusion list", res.Changes)
	}
	if len(res.RuleViolations) != 1 || !strings.Contains(res.RuleViolations[0], "exceeds budget") {
		t.Fatalf("RuleViolations = %v, want one budget violation", res.RuleViolations)
	}
}

func TestRunLegalUnderAlternateTable(t *testing.T) {
	trail := runCase(t, provider(therapyRequest, "abandon"), approvingPayor())
	lvls := writeRules(t, "levels.yaml", altLevelsYAML)

	res, err := Run(trail, "", lvls)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(res.RuleViolations) != 0 {
		t.Errorf("RuleViolations = %v, want none", res.RuleViolations)
	}
}

func TestRunRequiresInput(t *testing.T) {
	trail := runCase(t, provider(therapyRequest, "abandon"), approvingPayor())

	_, err := Run(trail, "", "")
	if err == nil || !strings.Contains(err.Error(), "nothing to compare") {
		t.Fatalf("err = %v, want nothing to compare", err)
	}
}

func TestRunMissingTrail(t *testing.T) {
	excl := writeRules(t, "exclusions.yaml", "services:\n  - \"cosmetic*\"\n")
	if _, err := Run(filepath.Join(t.TempDir(), "missing.jsonl"), excl, ""); err == nil {
		t.Fatal("expected error for missing trail")
	}
}

func TestRunBadExclusionsFile(t *testing.T) {
	trail := runCase(t, provider(therapyRequest, "abandon"), approvingPayor())
	excl := writeRules(t, "exclusions.yaml", "services: {not a list}\n")

	if _, err := Run(trail, excl, ""); err == nil || !strings.Contains(err.Error(), "load exclusions") {
		t.Fatalf("err = %v, want load exclusions", err)
	}
}

func TestFormatText(t *testing.T) {
	trail := runCase(t, provider(therapyRequest, "abandon"), approvingPayor())
	excl := writeRules(t, "exclusions.yaml", "services:\n  - \"physical therapy*\"\n")

	res, err := Run(trail, excl, "")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	out := FormatText(res)
	for _, want := range []string{"CHANGED", "review -> excluded", "1 newly excluded, 0 newly covered"} {
		if !strings.Contains(out, want) {
			t.Errorf("FormatText missing %q:\n%s", want, out)
		}
	}
}

func TestFormatJSON(t *testing.T) {
	trail := runCase(t, provider(therapyRequest, "abandon"), approvingPayor())
	lvls := writeRules(t, "levels.yaml", altLevelsYAML)

	res, err := Run(trail, "", lvls)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	out, err := FormatJSON(res)
	if err != nil {
		t.Fatalf("FormatJSON: %v", err)
	}
	var decoded map[string]any
	if err := json.Unmarshal([]byte(out), &decoded); err != nil {
		t.Fatalf("output is not JSON: %v", err)
	}
	if decoded["case_id"] != "case-001" {
		t.Errorf("case_id = %v", decoded["case_id"])
	}
}
