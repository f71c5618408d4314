// Package whatif previews rule changes against recorded negotiations.
// It replays a committed audit trail with an alternate exclusion list or
// review table and reports what would have gone differently. Recorded
// reviewer decisions are never re-evaluated; only the deterministic
// screening and the negotiation rules are.
package whatif

import (
	"fmt"
	"strings"

	"github.com/ppiankov/redtape/internal/audit"
	"github.com/ppiankov/redtape/internal/exclusions"
	"github.com/ppiankov/redtape/internal/levels"
	"github.com/ppiankov/redtape/internal/model"
)

// Run replays a trail against the alternate rule files and returns the
// diff. Either path may be empty, but not both.
func Run(trailPath, exclusionsPath, levelsPath string) (*Result, error) {
	if exclusionsPath == "" && levelsPath == "" {
		return nil, fmt.Errorf("nothing to compare: provide an exclusion list or a review table")
	}

	entries, err := audit.ReadEntries(trailPath)
	if err != nil {
		return nil, err
	}

	var list *exclusions.List
	if exclusionsPath != "" {
		if list, err = exclusions.Load(exclusionsPath); err != nil {
			return nil, fmt.Errorf("load exclusions: %w", err)
		}
	}
	var table *levels.Table
	if levelsPath != "" {
		if table, err = levels.Load(levelsPath); err != nil {
			return nil, fmt.Errorf("load review table: %w", err)
		}
	}

	res := &Result{
		TrailPath:      trailPath,
		ExclusionsPath: exclusionsPath,
		LevelsPath:     levelsPath,
	}

	// Each committed decision is paired with the request it answered, the
	// same way replay pairs them.
	var lastRequest *model.ProviderRequest
	for _, e := range entries {
		if res.CaseID == "" {
			res.CaseID = e.CaseID
		}

		switch e.Action {
		case audit.ActionSubmitRequest:
			lastRequest = model.RequestFromMap(e.Parsed)
			res.TotalRequests++

		case audit.ActionReturnDecision:
			if list == nil || lastRequest == nil {
				continue
			}
			rescreen(res, e, lastRequest, list)
			lastRequest = nil
		}
	}

	if table != nil {
		res.RuleViolations = audit.CheckInvariants(entries, table)
	}

	return res, nil
}

// rescreen compares the recorded screening outcome of one request against
// the alternate exclusion list.
func rescreen(res *Result, e audit.Entry, req *model.ProviderRequest, list *exclusions.List) {
	matches := list.Check(req)
	newExcluded := len(matches) > 0
	oldExcluded := e.Meta.Exclusion
	if newExcluded == oldExcluded {
		return
	}

	change := Change{
		Iteration:   e.Meta.Iteration,
		Level:       e.Meta.Level,
		Services:    serviceNames(req),
		OldExcluded: oldExcluded,
		NewExcluded: newExcluded,
	}
	if oldExcluded {
		change.OldReason, _ = e.Parsed["decision_reason"].(string)
	}
	seen := make(map[string]bool)
	for _, m := range matches {
		if !seen[m.Rule] {
			seen[m.Rule] = true
			change.NewRules = append(change.NewRules, m.Rule)
		}
	}

	res.Changes = append(res.Changes, change)
	if newExcluded {
		res.NewlyExcluded++
	} else {
		res.NewlyCovered++
	}
}

func serviceNames(req *model.ProviderRequest) string {
	names := make([]string, 0, len(req.RequestedServices))
	for _, sr := range req.RequestedServices {
		names = append(names, sr.ServiceName)
	}
	return strings.Join(names, ", ")
}
