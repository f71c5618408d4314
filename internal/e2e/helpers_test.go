//go:build e2e

// Package e2e drives the compiled redtape binary through full
// adjudications and trail forensics. Build-tagged so ordinary test runs
// skip the binary build: go test -tags e2e ./internal/e2e/
package e2e

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ppiankov/redtape/internal/audit"
	"github.com/ppiankov/redtape/internal/batch"
	"github.com/ppiankov/redtape/internal/casefile"
	"github.com/ppiankov/redtape/internal/oracle"
)

// binaryPath is the compiled redtape binary, built once in TestMain.
var binaryPath string

// repoRoot resolves fixture paths under testdata/.
var repoRoot string

func TestMain(m *testing.M) {
	repoRoot = findRepoRoot()

	tmpDir, err := os.MkdirTemp("", "e2e-bin-*")
	if err != nil {
		panic("failed to create temp dir: " + err.Error())
	}
	defer os.RemoveAll(tmpDir)

	binaryPath = filepath.Join(tmpDir, "redtape")
	cmd := exec.Command("go", "build", "-o", binaryPath, "./cmd/redtape")
	cmd.Dir = repoRoot
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		panic("failed to build redtape binary: " + err.Error())
	}

	os.Exit(m.Run())
}

// execRedtape runs the compiled binary with HOME pointed at home, so a
// developer's real ~/.redtape never leaks into a round.
// Returns stdout, stderr, and exit code.
func execRedtape(t *testing.T, home string, args ...string) (string, string, int) {
	t.Helper()
	cmd := exec.Command(binaryPath, args...)
	cmd.Env = envWithHome(home)
	var stdout, stderr strings.Builder
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	err := cmd.Run()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return stdout.String(), stderr.String(), exitErr.ExitCode()
		}
		t.Fatalf("exec failed: %v", err)
	}
	return stdout.String(), stderr.String(), 0
}

func envWithHome(home string) []string {
	env := make([]string, 0, len(os.Environ())+1)
	for _, kv := range os.Environ() {
		if strings.HasPrefix(kv, "HOME=") {
			continue
		}
		env = append(env, kv)
	}
	return append(env, "HOME="+home)
}

// verifyChain runs `redtape audit verify` and asserts the chain is valid.
func verifyChain(t *testing.T, home, trailPath string) {
	t.Helper()
	_, stderr, code := execRedtape(t, home, "audit", "verify", trailPath)
	if code != 0 {
		t.Fatalf("audit chain verification failed (exit %d): %s", code, stderr)
	}
}

// verifyChainBroken runs `redtape audit verify` and asserts it fails.
func verifyChainBroken(t *testing.T, home, trailPath string) {
	t.Helper()
	_, _, code := execRedtape(t, home, "audit", "verify", trailPath)
	if code == 0 {
		t.Fatal("expected audit chain verification to fail, but it passed")
	}
}

const e2eCaseJSON = `{
  "case_id": "e2e-lumbar",
  "patient_visible_data": {
    "age": 57,
    "chief_complaint": "chronic low back pain radiating to the right leg"
  }
}`

const e2eTherapyRequest = `{
  "insurer_request": {
    "diagnosis_codes": [{"icd10": "M54.16", "description": "Radiculopathy, lumbar region"}],
    "clinical_summary": "Six weeks of radicular pain unresponsive to NSAIDs.",
    "requested_services": [{
      "line_number": 1,
      "request_type": "treatment",
      "service_name": "Physical therapy, 12 visits",
      "clinical_evidence": "Positive straight leg raise at 40 degrees.",
      "guideline_references": ["MCG A-0400"]
    }]
  }
}`

// makeDenialTrail adjudicates a case in-process with oracles scripted to
// appeal every denial up to the terminal level, and returns the path of
// the audit trail the run wrote. The binary's forensic commands are then
// pointed at that file.
func makeDenialTrail(t *testing.T) string {
	t.Helper()

	provider := oracle.Func(func(_ context.Context, p oracle.Prompt) (oracle.Reply, error) {
		switch {
		case strings.Contains(p.Meta, audit.ActionSubmitRequest):
			return oracle.Reply{Text: e2eTherapyRequest}, nil
		case strings.Contains(p.Meta, audit.ActionResolveAction):
			return oracle.Reply{Text: `{"provider_action": "appeal", "reasoning": "criteria are met"}`}, nil
		default:
			return oracle.Reply{Text: `{"decision": "no_treat"}`}, nil
		}
	})
	payor := oracle.Func(func(_ context.Context, p oracle.Prompt) (oracle.Reply, error) {
		if strings.Contains(p.Meta, audit.ActionCopilotDraft) {
			return oracle.Reply{Text: "Draft: deny, conservative care not exhausted."}, nil
		}
		return oracle.Reply{Text: `{"action": "denied", "decision_reason": "conservative care not exhausted"}`}, nil
	})

	c, err := casefile.Parse([]byte(e2eCaseJSON))
	if err != nil {
		t.Fatalf("parse case: %v", err)
	}

	eng := batch.Engine{Provider: provider, Payor: payor, AuditDir: t.TempDir()}
	_, trail, err := eng.Adjudicate(context.Background(), c)
	if err != nil {
		t.Fatalf("adjudicate: %v", err)
	}
	return trail
}

// findRepoRoot walks up from the current directory to find go.mod.
func findRepoRoot() string {
	dir, err := os.Getwd()
	if err != nil {
		panic("getwd: " + err.Error())
	}
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			panic("could not find go.mod in any parent directory")
		}
		dir = parent
	}
}
