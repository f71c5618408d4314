package whatif

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Change records one request whose exclusion screening flips under the
// alternate pattern list.
type Change struct {
	Iteration   int      `json:"iteration"`
	Level       int      `json:"level"`
	Services    string   `json:"services"`
	OldExcluded bool     `json:"old_excluded"`
	NewExcluded bool     `json:"new_excluded"`
	OldReason   string   `json:"old_reason,omitempty"`
	NewRules    []string `json:"new_rules,omitempty"`
}

// Result holds the complete what-if output for one trail.
type Result struct {
	TrailPath      string   `json:"trail_path"`
	CaseID         string   `json:"case_id"`
	ExclusionsPath string   `json:"exclusions_path,omitempty"`
	LevelsPath     string   `json:"levels_path,omitempty"`
	TotalRequests  int      `json:"total_requests"`
	Changes        []Change `json:"changes,omitempty"`
	NewlyExcluded  int      `json:"newly_excluded"`
	NewlyCovered   int      `json:"newly_covered"`
	RuleViolations []string `json:"rule_violations,omitempty"`
}

// FormatText renders the what-if result as human-readable text.
func FormatText(r *Result) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Replayed %d recorded requests from case %s.\n", r.TotalRequests, r.CaseID)

	if r.ExclusionsPath != "" {
		if len(r.Changes) == 0 {
			fmt.Fprintf(&b, "\nNo screening changes under %s.\n", r.ExclusionsPath)
		} else {
			b.WriteString("\n")
			for _, d := range r.Changes {
				services := d.Services
				if len(services) > 40 {
					services = services[:37] + "..."
				}
				fmt.Fprintf(&b, "  CHANGED  iter %-3d L%d  %-40s %s -> %s\n",
					d.Iteration, d.Level, services, screenWord(d.OldExcluded), screenWord(d.NewExcluded))
				for _, rule := range d.NewRules {
					fmt.Fprintf(&b, "           %s\n", rule)
				}
			}
			fmt.Fprintf(&b, "\n%d of %d requests changed. %d newly excluded, %d newly covered.\n",
				len(r.Changes), r.TotalRequests, r.NewlyExcluded, r.NewlyCovered)
		}
	}

	if r.LevelsPath != "" {
		if len(r.RuleViolations) == 0 {
			fmt.Fprintf(&b, "\nRecorded negotiation stays legal under %s.\n", r.LevelsPath)
		} else {
			fmt.Fprintf(&b, "\nViolations under %s:\n", r.LevelsPath)
			for _, v := range r.RuleViolations {
				fmt.Fprintf(&b, "  %s\n", v)
			}
		}
	}

	return b.String()
}

func screenWord(excluded bool) string {
	if excluded {
		return "excluded"
	}
	return "review"
}

// FormatJSON renders the what-if result as JSON.
func FormatJSON(r *Result) (string, error) {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal what-if result: %w", err)
	}
	return string(data), nil
}
