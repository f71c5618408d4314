package cli

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ppiankov/redtape/internal/audit"
	"github.com/ppiankov/redtape/internal/batch"
	"github.com/ppiankov/redtape/internal/casefile"
	"github.com/ppiankov/redtape/internal/ledger"
	"github.com/ppiankov/redtape/internal/levels"
	"github.com/ppiankov/redtape/internal/model"
	"github.com/ppiankov/redtape/internal/oracle"
)

func init() {
	rootCmd.AddCommand(demoCmd)
}

var demoCmd = &cobra.Command{
	Use:   "demo",
	Short: "Run a scripted negotiation end to end (no API keys needed)",
	Long: `Adjudicates a canned surgical case with scripted oracles: denied at
initial determination, appealed, denied again on reconsideration, and
abandoned. Prints the negotiation timeline, then verifies that the
committed trail replays to the same outcome.`,
	RunE: runDemo,
}

const demoCase = `{"case_id": "demo-lumbar", "patient_visible_data": {"age": 58, "chief_complaint": "progressive left leg weakness with radicular pain"}}`

var demoProviderTurns = []string{
	`{"insurer_request": {"diagnosis_codes": [{"icd10": "M54.16", "description": "Radiculopathy, lumbar region"}], "clinical_summary": "Progressive motor deficit despite conservative therapy.", "requested_services": [{"line_number": 1, "request_type": "treatment", "service_name": "Lumbar discectomy", "clinical_evidence": "Disc extrusion on MRI with correlating L5 radiculopathy on EMG.", "guideline_references": ["MCG S-810"]}]}}`,
	`{"provider_action": "appeal", "reasoning": "imaging and electrodiagnostics both localize the lesion"}`,
	`{"insurer_request": {"diagnosis_codes": [{"icd10": "M54.16", "description": "Radiculopathy, lumbar region"}], "clinical_summary": "Resubmission with operative indication detail after first-level denial.", "requested_services": [{"line_number": 1, "request_type": "treatment", "service_name": "Lumbar discectomy", "clinical_evidence": "Progressive dorsiflexion weakness over three serial exams.", "guideline_references": ["MCG S-810"]}]}}`,
	`{"provider_action": "abandon", "reasoning": "two denials in, staff time now exceeds the expected benefit"}`,
	`{"decision": "no_treat", "rationale": "patient declines self-pay surgery"}`,
}

var demoPayorTurns = []string{
	`{"action": "denied", "decision_reason": "conservative therapy not exhausted"}`,
	`{"action": "denied", "decision_reason": "record does not establish failure of six weeks of supervised therapy"}`,
}

func runDemo(cmd *cobra.Command, args []string) error {
	fmt.Println("=== redtape bureaucracy demo ===")
	fmt.Println("A scripted prior-auth negotiation: no API keys, no network.")
	fmt.Println()

	tmpDir, err := os.MkdirTemp("", "redtape-demo-*")
	if err != nil {
		return fmt.Errorf("create temp dir: %w", err)
	}
	defer os.RemoveAll(tmpDir)

	c, err := casefile.Parse([]byte(demoCase))
	if err != nil {
		return err
	}

	table, err := levels.Default().WithoutDrafts()
	if err != nil {
		return err
	}
	eng := batch.Engine{
		Table:    table,
		Provider: oracle.NewScripted(demoProviderTurns...),
		Payor:    oracle.NewScripted(demoPayorTurns...),
		AuditDir: tmpDir,
	}

	res, trail, err := eng.Adjudicate(context.Background(), c)
	if err != nil {
		return fmt.Errorf("demo negotiation failed: %w", err)
	}

	entries, err := audit.ReadEntries(trail)
	if err != nil {
		return err
	}
	for _, e := range entries {
		fmt.Printf("  [i%d L%d] %-9s %-16s %s\n",
			e.Meta.Iteration, e.Meta.Level, e.Actor, e.Action, demoSummary(e))
	}
	fmt.Println()

	var statuses []string
	for _, ln := range res.Lines {
		statuses = append(statuses, strings.ToLower(string(ln.Status)))
	}
	fmt.Printf("Outcome: %s after %d levels; treat decision %s.\n",
		strings.Join(statuses, "/"), len(res.LevelsVisited), res.TreatAnyway)
	fmt.Printf("Friction: provider=%d payor=%d escalation=%d\n",
		res.Friction.ProviderActions, res.Friction.PayorActions, res.Friction.EscalationDepth)
	fmt.Println()

	// The gate: the record must verify, replay, and stay within the rules.
	failed := false

	vr := audit.Verify(trail)
	if vr.Valid {
		fmt.Printf("✓ hash chain verifies (%d entries)\n", vr.Lines)
	} else {
		fmt.Printf("✗ hash chain broken at line %d: %s\n", vr.ErrorLine, vr.Error)
		failed = true
	}

	if rep, err := audit.Replay(entries, nil); err != nil {
		fmt.Printf("✗ replay failed: %v\n", err)
		failed = true
	} else if !sameStatuses(rep.Ledger.Lines(), res.Lines) {
		fmt.Println("✗ replay reached a different outcome than the live run")
		failed = true
	} else {
		fmt.Println("✓ replay reproduces the recorded outcome")
	}

	if violations := audit.CheckInvariants(entries, nil); len(violations) == 0 {
		fmt.Println("✓ negotiation rules hold")
	} else {
		for _, v := range violations {
			fmt.Printf("✗ %s\n", v)
		}
		failed = true
	}

	fmt.Println()
	if failed {
		fmt.Println("FAIL: the trail does not stand on its own.")
		os.Exit(1)
	}

	fmt.Println("PASS: every decision is on the record and the record replays.")
	return nil
}

func demoSummary(e audit.Entry) string {
	switch e.Action {
	case audit.ActionSubmitRequest:
		req := model.RequestFromMap(e.Parsed)
		var names []string
		for _, sr := range req.RequestedServices {
			names = append(names, sr.ServiceName)
		}
		return strings.Join(names, ", ")
	case audit.ActionReturnDecision:
		kind, _ := e.Parsed["action"].(string)
		if reason, _ := e.Parsed["decision_reason"].(string); reason != "" {
			return kind + ": " + reason
		}
		return kind
	case audit.ActionResolveAction:
		a, _ := e.Parsed["action"].(string)
		return a
	case audit.ActionForceDeny:
		r, _ := e.Parsed["reason"].(string)
		return "forced denial: " + r
	case audit.ActionTreatDecision:
		d, _ := e.Parsed["decision"].(string)
		return d
	}
	return ""
}

func sameStatuses(replayed, live []ledger.Line) bool {
	if len(replayed) != len(live) {
		return false
	}
	for i := range replayed {
		if replayed[i].Status != live[i].Status {
			return false
		}
	}
	return true
}
