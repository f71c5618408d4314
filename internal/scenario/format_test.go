package scenario

import (
	"encoding/json"
	"strings"
	"testing"
)

func sampleResults() []*RunResult {
	return []*RunResult{
		{
			File: "a.yaml", Name: "clean approval", Total: 2, Passed: 2,
			Cases: []CheckResult{
				{Index: 1, Case: "case-001.json", Passed: true},
				{Index: 2, Case: "case-002.json", Passed: true},
			},
		},
		{
			File: "b.yaml", Name: "escalation", Total: 1, Failed: 1,
			Cases: []CheckResult{
				{Index: 1, Case: "case-003.json", Failures: []string{"final level: got 0, want 1"}},
			},
		},
	}
}

func TestFormatText(t *testing.T) {
	out := FormatText(sampleResults())

	for _, want := range []string{
		"Running 2 scenario files...",
		"  PASS  clean approval (2/2)",
		"  FAIL  escalation (0/1)",
		"    FAIL  case 1: case-003.json",
		"final level: got 0, want 1",
		"2 of 3 negotiations passed. 1 of 2 scenario files failed.",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestFormatTextAllPassing(t *testing.T) {
	out := FormatText(sampleResults()[:1])

	if strings.Contains(out, "FAIL") {
		t.Errorf("no FAIL lines expected:\n%s", out)
	}
	if !strings.Contains(out, "Running 1 scenario file...") {
		t.Errorf("singular header expected:\n%s", out)
	}
	if !strings.Contains(out, "2 of 2 negotiations passed.") {
		t.Errorf("summary line expected:\n%s", out)
	}
}

func TestFormatJSON(t *testing.T) {
	out, err := FormatJSON(sampleResults())
	if err != nil {
		t.Fatal(err)
	}

	var parsed []*RunResult
	if err := json.Unmarshal([]byte(out), &parsed); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}
	if len(parsed) != 2 {
		t.Fatalf("expected 2 results, got %d", len(parsed))
	}
	if parsed[1].Cases[0].Failures[0] != "final level: got 0, want 1" {
		t.Errorf("failure text lost in round trip: %+v", parsed[1].Cases[0])
	}
}
