package profile

import (
	"strings"
	"testing"

	"gopkg.in/yaml.v3"

	"github.com/ppiankov/redtape/internal/exclusions"
	"github.com/ppiankov/redtape/internal/levels"
)

func TestLoadBuiltinStrict(t *testing.T) {
	p, err := Load("strict")
	if err != nil {
		t.Fatalf("failed to load strict profile: %v", err)
	}
	if p.Name != "strict" {
		t.Errorf("expected name strict, got %s", p.Name)
	}
	if p.Description == "" {
		t.Error("expected non-empty description")
	}
	if p.PayorPosture == "" {
		t.Error("expected payor posture text")
	}
	if p.PendBudget == nil || *p.PendBudget != 1 {
		t.Errorf("expected pend_budget 1, got %v", p.PendBudget)
	}
}

func TestLoadBuiltinBalancedIsNeutral(t *testing.T) {
	p, err := Load("balanced")
	if err != nil {
		t.Fatalf("failed to load balanced profile: %v", err)
	}
	if p.PayorPosture != "" {
		t.Error("balanced profile should carry no posture text")
	}
	if p.PendBudget != nil {
		t.Error("balanced profile should keep the table's pend budgets")
	}
}

func TestLoadBuiltinLenient(t *testing.T) {
	p, err := Load("lenient")
	if err != nil {
		t.Fatalf("failed to load lenient profile: %v", err)
	}
	if !strings.Contains(p.PayorPosture, "benefit of the doubt") {
		t.Error("expected access-leaning posture text")
	}
	if p.PendBudget == nil || *p.PendBudget != 3 {
		t.Errorf("expected pend_budget 3, got %v", p.PendBudget)
	}
}

func TestLoadUnknownProfile(t *testing.T) {
	_, err := Load("nonexistent-profile")
	if err == nil {
		t.Error("expected error for unknown profile")
	}
}

func TestListProfiles(t *testing.T) {
	names := List()
	for _, want := range []string{"strict", "balanced", "lenient"} {
		found := false
		for _, n := range names {
			if n == want {
				found = true
				break
			}
		}
		if !found {
			t.Errorf("expected %s in profile list, got %v", want, names)
		}
	}
}

func TestApplyToLevels(t *testing.T) {
	p, err := Load("strict")
	if err != nil {
		t.Fatal(err)
	}

	table, err := ApplyToLevels(p, levels.Default())
	if err != nil {
		t.Fatalf("apply: %v", err)
	}

	for _, lvl := range table.All() {
		if lvl.CanPend && lvl.PendBudget != 1 {
			t.Errorf("level %d: expected pend budget 1, got %d", lvl.Index, lvl.PendBudget)
		}
	}
}

func TestApplyToLevelsNoOverride(t *testing.T) {
	def := levels.Default()
	table, err := ApplyToLevels(&Profile{Name: "x"}, def)
	if err != nil {
		t.Fatal(err)
	}
	if table != def {
		t.Error("expected same table pointer when no budget override")
	}
}

func TestApplyToExclusions(t *testing.T) {
	l := exclusions.NewDefault()
	p := &Profile{
		Name: "test",
		Exclusions: &exclusions.Patterns{
			Services: []string{"*hyperbaric*"},
			Keywords: []string{"pilot protocol"},
		},
	}

	ApplyToExclusions(p, l)

	if blocked, _ := l.MatchService("Hyperbaric oxygen therapy"); !blocked {
		t.Error("expected merged service pattern to exclude")
	}
	if blocked, _ := l.MatchText("enrolled in pilot protocol"); !blocked {
		t.Error("expected merged keyword to exclude")
	}
	// Defaults still present
	if blocked, _ := l.MatchService("Cosmetic rhinoplasty"); !blocked {
		t.Error("merge must be additive")
	}
}

func TestValidateProfile(t *testing.T) {
	budget := 2
	valid := &Profile{Name: "test", PendBudget: &budget}
	if err := Validate(valid); err != nil {
		t.Errorf("expected valid profile, got error: %v", err)
	}
}

func TestValidateProfileEmptyName(t *testing.T) {
	if err := Validate(&Profile{Name: ""}); err == nil {
		t.Error("expected error for empty name")
	}
}

func TestValidateProfileNegativeBudget(t *testing.T) {
	budget := -1
	if err := Validate(&Profile{Name: "test", PendBudget: &budget}); err == nil {
		t.Error("expected error for negative pend budget")
	}
}

func TestInitProfileTemplateParses(t *testing.T) {
	var p Profile
	if err := yaml.Unmarshal([]byte(InitProfile("my-payer")), &p); err != nil {
		t.Fatalf("starter template must parse: %v", err)
	}
	if p.Name != "my-payer" {
		t.Errorf("expected templated name, got %q", p.Name)
	}
	if err := Validate(&p); err != nil {
		t.Errorf("starter template must validate: %v", err)
	}
}
