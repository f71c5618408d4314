// Package casefile loads adjudication case fixtures from JSON.
//
// A case is the clinical scenario one negotiation runs against: what the
// provider can see, what the environment knows to be true, and canned
// results for diagnostics the payer may approve along the way.
package casefile

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Case is one adjudication fixture.
type Case struct {
	CaseID string `json:"case_id"`
	PAType string `json:"pa_type,omitempty"`

	// What the provider oracle is shown.
	Patient map[string]any `json:"patient_visible_data"`

	// Ground truth the provider never sees. Used to synthesize results
	// for approved diagnostic tests.
	Hidden map[string]any `json:"environment_hidden_data,omitempty"`

	// The service the encounter is nominally about.
	ProcedureRequest map[string]any `json:"procedure_request,omitempty"`

	Insurance map[string]any `json:"insurance_info,omitempty"`

	// Pre-authored results keyed by test name. Looked up before any
	// oracle is asked to invent one.
	TestResultTemplates map[string]string `json:"test_result_templates,omitempty"`
}

// Parse decodes one case fixture from raw JSON, for callers that carry
// the case inline instead of on disk.
func Parse(data []byte) (*Case, error) {
	var c Case
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("parse case: %w", err)
	}
	if c.CaseID == "" {
		return nil, fmt.Errorf("case missing required field 'case_id'")
	}
	return &c, nil
}

// Load reads one case fixture from a JSON file.
func Load(path string) (*Case, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read case %s: %w", path, err)
	}

	var c Case
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("parse case %s: %w", path, err)
	}
	if c.CaseID == "" {
		return nil, fmt.Errorf("case %s missing required field 'case_id'", path)
	}

	return &c, nil
}

// LoadDir reads every *.json case under dir, sorted by filename.
func LoadDir(dir string) ([]*Case, error) {
	matches, err := filepath.Glob(filepath.Join(dir, "*.json"))
	if err != nil {
		return nil, fmt.Errorf("scan case dir %s: %w", dir, err)
	}
	sort.Strings(matches)

	var cases []*Case
	for _, path := range matches {
		c, err := Load(path)
		if err != nil {
			return nil, err
		}
		cases = append(cases, c)
	}
	if len(cases) == 0 {
		return nil, fmt.Errorf("no case files under %s", dir)
	}

	return cases, nil
}

// FindingFor looks up a pre-authored result for a test name. Matching is
// case-insensitive; a template key contained in the query (or the reverse)
// counts, so "echo" finds "Echocardiogram".
func (c *Case) FindingFor(testName string) (string, bool) {
	query := strings.ToLower(strings.TrimSpace(testName))
	if query == "" {
		return "", false
	}

	normalized := make(map[string]string, len(c.TestResultTemplates))
	keys := make([]string, 0, len(c.TestResultTemplates))
	for k, v := range c.TestResultTemplates {
		nk := strings.ToLower(strings.TrimSpace(k))
		normalized[nk] = v
		keys = append(keys, nk)
	}
	sort.Strings(keys)

	if v, ok := normalized[query]; ok {
		return v, true
	}
	for _, k := range keys {
		if strings.Contains(query, k) || strings.Contains(k, query) {
			return normalized[k], true
		}
	}
	return "", false
}

// HiddenString returns one field of the environment ground truth, or
// "Unknown" when the case does not carry it.
func (c *Case) HiddenString(key string) string {
	if v, ok := c.Hidden[key].(string); ok && v != "" {
		return v
	}
	return "Unknown"
}

// PatientJSON renders the provider-visible data as indented JSON for
// inclusion in a prompt.
func (c *Case) PatientJSON() string {
	data, err := json.MarshalIndent(c.Patient, "", "  ")
	if err != nil {
		return "{}"
	}
	return string(data)
}
