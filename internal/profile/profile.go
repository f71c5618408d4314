// Package profile provides named payer posture bundles: decision-prompt
// posture text, pend budget overrides, and extra benefit exclusions.
package profile

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/ppiankov/redtape/internal/exclusions"
)

// Profile is a named, reusable payer posture. Posture strings are
// appended to the respective oracle system prompts; the pend budget,
// when set, replaces the budget of every pend-capable review level.
type Profile struct {
	Name            string               `yaml:"name"`
	Description     string               `yaml:"description"`
	ProviderPosture string               `yaml:"provider_posture"`
	PayorPosture    string               `yaml:"payor_posture"`
	PendBudget      *int                 `yaml:"pend_budget,omitempty"`
	Exclusions      *exclusions.Patterns `yaml:"exclusions,omitempty"`
}

// Load loads a profile by name. Checks built-in profiles first,
// then falls back to ~/.redtape/profiles/<name>.yaml.
func Load(name string) (*Profile, error) {
	if data, ok := builtinProfiles[name]; ok {
		var p Profile
		if err := yaml.Unmarshal(data, &p); err != nil {
			return nil, fmt.Errorf("failed to parse built-in profile %q: %w", name, err)
		}
		return &p, nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("profile %q not found (no built-in, cannot determine home dir)", name)
	}

	path := filepath.Join(home, ".redtape", "profiles", name+".yaml")
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("profile %q not found", name)
	}

	var p Profile
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("failed to parse profile %q: %w", name, err)
	}

	return &p, nil
}

// List returns sorted names of all available profiles (built-in + user).
func List() []string {
	seen := make(map[string]bool)
	for name := range builtinProfiles {
		seen[name] = true
	}

	home, err := os.UserHomeDir()
	if err == nil {
		dir := filepath.Join(home, ".redtape", "profiles")
		entries, err := os.ReadDir(dir)
		if err == nil {
			for _, e := range entries {
				if e.IsDir() {
					continue
				}
				name := e.Name()
				if ext := filepath.Ext(name); ext == ".yaml" || ext == ".yml" {
					seen[name[:len(name)-len(ext)]] = true
				}
			}
		}
	}

	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Validate checks that a profile is well-formed.
func Validate(p *Profile) error {
	if p.Name == "" {
		return fmt.Errorf("profile name is required")
	}
	if p.PendBudget != nil && *p.PendBudget < 0 {
		return fmt.Errorf("pend_budget must be >= 0, got %d", *p.PendBudget)
	}
	return nil
}
