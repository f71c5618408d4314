package scenario

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/ppiankov/redtape/internal/audit"
	"github.com/ppiankov/redtape/internal/casefile"
	"github.com/ppiankov/redtape/internal/exclusions"
	"github.com/ppiankov/redtape/internal/levels"
	"github.com/ppiankov/redtape/internal/oracle"
	"github.com/ppiankov/redtape/internal/profile"
	"github.com/ppiankov/redtape/internal/prompt"
	"github.com/ppiankov/redtape/internal/review"
)

// Run executes every scripted negotiation in a scenario against the
// given level table and exclusion list. Cases are independent: each
// runs a fresh session with its own scripted oracles. baseDir resolves
// relative case paths.
func Run(ctx context.Context, s *Scenario, table *levels.Table, excl *exclusions.List, baseDir string) *RunResult {
	var posture *profile.Profile

	// Apply the scenario-level profile if one is named.
	if s.Profile != "" {
		p, err := profile.Load(s.Profile)
		if err == nil {
			posture = p
			if t, terr := profile.ApplyToLevels(p, table); terr == nil {
				table = t
			}
			if excl != nil {
				profile.ApplyToExclusions(p, excl)
			}
		}
	}

	result := &RunResult{
		Name:  s.Name,
		Total: len(s.Cases),
	}

	for i, n := range s.Cases {
		cr := CheckResult{
			Index:    i + 1,
			Case:     n.Case,
			Failures: runNegotiation(ctx, n, table, excl, posture, baseDir),
		}
		if len(cr.Failures) == 0 {
			cr.Passed = true
			result.Passed++
		} else {
			result.Failed++
		}
		result.Cases = append(result.Cases, cr)
	}

	return result
}

// runNegotiation drives one scripted case and returns every expectation
// that did not hold, empty on a clean pass.
func runNegotiation(ctx context.Context, n Negotiation, table *levels.Table, excl *exclusions.List, posture *profile.Profile, baseDir string) []string {
	c, err := casefile.Load(resolvePath(baseDir, n.Case))
	if err != nil {
		return []string{fmt.Sprintf("load case: %v", err)}
	}

	iterCap := n.IterationCap
	if iterCap <= 0 {
		iterCap = review.DefaultIterationCap
	}
	prompts := prompt.NewBuilder(table, iterCap)
	if posture != nil {
		prompts = prompts.WithPosture(posture.ProviderPosture, posture.PayorPosture)
	}

	provider := oracle.NewScripted(n.ProviderTurns...)
	payor := oracle.NewScripted(n.PayorTurns...)
	mem := audit.NewMemory()

	sess, err := review.NewSession(c, review.Config{
		Table:        table,
		Prompts:      prompts,
		Provider:     provider,
		Payor:        payor,
		Audit:        mem,
		Exclusions:   excl,
		IterationCap: iterCap,
	})
	if err != nil {
		return []string{fmt.Sprintf("new session: %v", err)}
	}

	res, err := sess.Run(ctx)
	if err != nil {
		return []string{fmt.Sprintf("negotiation: %v", err)}
	}

	failures := checkExpect(n.Expect, res, mem.Entries())

	// A fixture with turns left over scripted a different negotiation
	// than the one that ran.
	if left := provider.Remaining(); left > 0 {
		failures = append(failures, fmt.Sprintf("%d provider turns left unused", left))
	}
	if left := payor.Remaining(); left > 0 {
		failures = append(failures, fmt.Sprintf("%d payor turns left unused", left))
	}

	for _, v := range audit.CheckInvariants(mem.Entries(), table) {
		failures = append(failures, "invariant: "+v)
	}

	return failures
}

func checkExpect(e Expect, res *review.Result, entries []audit.Entry) []string {
	var failures []string

	if len(e.LineStatuses) > 0 {
		if len(res.Lines) != len(e.LineStatuses) {
			failures = append(failures, fmt.Sprintf("lines: got %d, want %d", len(res.Lines), len(e.LineStatuses)))
		} else {
			for i, want := range e.LineStatuses {
				if got := string(res.Lines[i].Status); got != want {
					failures = append(failures, fmt.Sprintf("line %d status: got %s, want %s", res.Lines[i].LineNumber, got, want))
				}
			}
		}
	}
	if e.TreatAnyway != "" && string(res.TreatAnyway) != e.TreatAnyway {
		failures = append(failures, fmt.Sprintf("treat_anyway: got %q, want %q", res.TreatAnyway, e.TreatAnyway))
	}
	if e.FinalLevel != nil {
		got := res.LevelsVisited[len(res.LevelsVisited)-1]
		if got != *e.FinalLevel {
			failures = append(failures, fmt.Sprintf("final level: got %d, want %d", got, *e.FinalLevel))
		}
	}
	if e.Iterations != nil && res.Iterations != *e.Iterations {
		failures = append(failures, fmt.Sprintf("iterations: got %d, want %d", res.Iterations, *e.Iterations))
	}
	if e.ProviderActions != nil && res.Friction.ProviderActions != *e.ProviderActions {
		failures = append(failures, fmt.Sprintf("provider actions: got %d, want %d", res.Friction.ProviderActions, *e.ProviderActions))
	}
	if e.PayorActions != nil && res.Friction.PayorActions != *e.PayorActions {
		failures = append(failures, fmt.Sprintf("payor actions: got %d, want %d", res.Friction.PayorActions, *e.PayorActions))
	}
	if e.ProbingTests != nil && res.Friction.ProbingTestsCount != *e.ProbingTests {
		failures = append(failures, fmt.Sprintf("probing tests: got %d, want %d", res.Friction.ProbingTestsCount, *e.ProbingTests))
	}
	if e.EscalationDepth != nil && res.Friction.EscalationDepth != *e.EscalationDepth {
		failures = append(failures, fmt.Sprintf("escalation depth: got %d, want %d", res.Friction.EscalationDepth, *e.EscalationDepth))
	}
	if e.ForcedDenial != nil && res.ForcedDenial != *e.ForcedDenial {
		failures = append(failures, fmt.Sprintf("forced denial: got %v, want %v", res.ForcedDenial, *e.ForcedDenial))
	}
	if e.MinAuditLines > 0 && len(entries) < e.MinAuditLines {
		failures = append(failures, fmt.Sprintf("audit lines: got %d, want at least %d", len(entries), e.MinAuditLines))
	}
	if e.MaxAuditLines > 0 && len(entries) > e.MaxAuditLines {
		failures = append(failures, fmt.Sprintf("audit lines: got %d, want at most %d", len(entries), e.MaxAuditLines))
	}

	return failures
}

// LoadAndRun loads a scenario YAML file and runs it against the default
// level table (draft steps disabled, so payer turns map one to one onto
// decisions) and the default exclusion list.
func LoadAndRun(ctx context.Context, path string) (*RunResult, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scenario %s: %w", path, err)
	}

	var s Scenario
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parse scenario %s: %w", path, err)
	}
	if s.Name == "" {
		return nil, fmt.Errorf("scenario %s missing name", path)
	}
	if len(s.Cases) == 0 {
		return nil, fmt.Errorf("scenario %s has no cases", path)
	}
	if s.Profile != "" {
		if _, err := profile.Load(s.Profile); err != nil {
			return nil, fmt.Errorf("scenario %s: %w", path, err)
		}
	}

	table, err := scriptableTable()
	if err != nil {
		return nil, err
	}

	result := Run(ctx, &s, table, exclusions.NewDefault(), filepath.Dir(path))
	result.File = path

	return result, nil
}

// scriptableTable is the default table with copilot draft steps turned
// off. Drafts would consume payer turns invisibly and make fixture
// scripts depend on which levels draft.
func scriptableTable() (*levels.Table, error) {
	t, err := levels.Default().WithoutDrafts()
	if err != nil {
		return nil, fmt.Errorf("build scenario level table: %w", err)
	}
	return t, nil
}

func resolvePath(baseDir, path string) string {
	if filepath.IsAbs(path) || baseDir == "" {
		return path
	}
	return filepath.Join(baseDir, path)
}
