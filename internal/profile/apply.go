package profile

import (
	"github.com/ppiankov/redtape/internal/exclusions"
	"github.com/ppiankov/redtape/internal/levels"
)

// ApplyToLevels returns a level table with the profile's pend budget
// applied to every pend-capable level. Returns the input table unchanged
// when the profile carries no budget override.
func ApplyToLevels(p *Profile, t *levels.Table) (*levels.Table, error) {
	if p.PendBudget == nil {
		return t, nil
	}
	return t.WithPendBudget(*p.PendBudget)
}

// ApplyToExclusions merges profile exclusions into the list. Patterns
// are only ever added; a profile cannot remove a base exclusion.
func ApplyToExclusions(p *Profile, l *exclusions.List) {
	if p.Exclusions == nil {
		return
	}
	for _, s := range p.Exclusions.Services {
		l.AddPattern("services", s)
	}
	for _, d := range p.Exclusions.Diagnoses {
		l.AddPattern("diagnoses", d)
	}
	for _, k := range p.Exclusions.Keywords {
		l.AddPattern("keywords", k)
	}
}
