// Package levels defines the static three-level review table the engine
// walks: initial determination, plan reconsideration, independent review.
// The table is loaded once and never mutated at runtime.
package levels

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// MaxLevel is the highest review level. Review never escalates past it.
const MaxLevel = 2

// Level holds the static configuration of one review authority.
type Level struct {
	Index             int    `yaml:"index"`
	Name              string `yaml:"name"`
	RoleLabel         string `yaml:"role_label"`
	CanPend           bool   `yaml:"can_pend"`
	Terminal          bool   `yaml:"terminal"`
	Independent       bool   `yaml:"independent"`
	SeesInternalNotes bool   `yaml:"sees_internal_notes"`
	DraftStep         bool   `yaml:"draft_step"`
	PendBudget        int    `yaml:"pend_budget"`
	ReviewStyle       string `yaml:"review_style"`
	Description       string `yaml:"description"`
}

// Table is the immutable set of review levels. Safe to share across
// concurrently running negotiations; accessors return copies.
type Table struct {
	levels [MaxLevel + 1]Level
}

// tableFile is the YAML shape for overrides.
type tableFile struct {
	Levels []Level `yaml:"levels"`
}

// Default returns the built-in review table modeled on the Medicare
// Advantage appeals workflow.
func Default() *Table {
	t := &Table{}
	t.levels = [MaxLevel + 1]Level{
		{
			Index:             0,
			Name:              "initial_determination",
			RoleLabel:         "UM Triage Reviewer (Nurse/Algorithm) - Organization Determination (42 CFR §422.566)",
			CanPend:           true,
			Terminal:          false,
			Independent:       false,
			SeesInternalNotes: true,
			DraftStep:         true,
			PendBudget:        2,
			ReviewStyle:       "checklist-driven, request info for missing required fields",
			Description:       "Initial UM review. Prioritize REQUEST_INFO when required fields are missing. Be checklist-driven. Deny if clear policy mismatch.",
		},
		{
			Index:             1,
			Name:              "internal_reconsideration",
			RoleLabel:         "Medical Director (Plan Reconsideration) - Plan Reconsideration (42 CFR §422.582)",
			CanPend:           true,
			Terminal:          false,
			Independent:       false,
			SeesInternalNotes: true,
			DraftStep:         true,
			PendBudget:        2,
			ReviewStyle:       "clinical interpretation, fresh eyes, less pend-prone",
			Description:       "Internal reconsideration by higher authority. Allow more clinical interpretation. Less likely to REQUEST_INFO if enough evidence exists. Fresh reviewer semantics.",
		},
		{
			Index:             2,
			Name:              "independent_review",
			RoleLabel:         "Independent Review Entity (IRE) - IRE Review (42 CFR §422.592)",
			CanPend:           false,
			Terminal:          true,
			Independent:       true,
			SeesInternalNotes: false,
			DraftStep:         false,
			PendBudget:        0,
			ReviewStyle:       "record-based binding decision, cite criteria explicitly",
			Description:       "Independent external review. Decide based on submitted record only. Cite criteria. No REQUEST_INFO allowed. Produces binding final disposition.",
		},
	}
	return t
}

// New builds a Table from explicit level definitions, validating the shape.
func New(defs []Level) (*Table, error) {
	if len(defs) != MaxLevel+1 {
		return nil, fmt.Errorf("review table needs exactly %d levels, got %d", MaxLevel+1, len(defs))
	}
	t := &Table{}
	for i, l := range defs {
		if l.Index != i {
			return nil, fmt.Errorf("level at position %d has index %d; indexes must be contiguous from 0", i, l.Index)
		}
		if l.CanPend && l.PendBudget < 1 {
			return nil, fmt.Errorf("level %d permits pend but has budget %d", i, l.PendBudget)
		}
		if !l.CanPend && l.PendBudget != 0 {
			return nil, fmt.Errorf("level %d forbids pend but has budget %d", i, l.PendBudget)
		}
		if i < MaxLevel && l.Terminal {
			return nil, fmt.Errorf("level %d marked terminal; only level %d may be", i, MaxLevel)
		}
		t.levels[i] = l
	}
	top := t.levels[MaxLevel]
	if !top.Terminal {
		return nil, fmt.Errorf("level %d must be terminal", MaxLevel)
	}
	if top.CanPend {
		return nil, fmt.Errorf("terminal level %d must not permit pend", MaxLevel)
	}
	return t, nil
}

// Load reads a review table from a YAML file.
// Empty path falls back to ~/.redtape/levels.yaml.
// Missing file returns the default table. Invalid YAML returns an error.
func Load(path string) (*Table, error) {
	t, _, err := LoadWithHash(path)
	return t, err
}

// LoadWithHash loads the review table and returns the SHA-256 hash of the
// raw YAML bytes, for stamping into audit metadata. When no file exists
// (defaults used), the hash is the SHA-256 of empty input.
func LoadWithHash(path string) (*Table, string, error) {
	if path == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return Default(), emptyHash(), nil
		}
		path = filepath.Join(home, ".redtape", "levels.yaml")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Default(), emptyHash(), nil
		}
		return nil, "", fmt.Errorf("failed to read review table: %w", err)
	}

	var tf tableFile
	if err := yaml.Unmarshal(data, &tf); err != nil {
		return nil, "", fmt.Errorf("failed to parse review table: %w", err)
	}

	t, err := New(tf.Levels)
	if err != nil {
		return nil, "", err
	}

	h := sha256.Sum256(data)
	return t, "sha256:" + hex.EncodeToString(h[:]), nil
}

func emptyHash() string {
	h := sha256.Sum256(nil)
	return "sha256:" + hex.EncodeToString(h[:])
}

// At returns the configuration for a level. Out-of-range levels are a
// programming error surfaced as an error, not a panic: the engine treats
// escalation past MaxLevel as a contract violation.
func (t *Table) At(level int) (Level, error) {
	if level < 0 || level > MaxLevel {
		return Level{}, fmt.Errorf("review level %d out of range [0,%d]", level, MaxLevel)
	}
	return t.levels[level], nil
}

// All returns a copy of every level in order.
func (t *Table) All() []Level {
	out := make([]Level, len(t.levels))
	copy(out, t.levels[:])
	return out
}

// WithPendBudget returns a copy of the table with every pend-capable
// level's budget replaced. Used by payer posture profiles.
func (t *Table) WithPendBudget(budget int) (*Table, error) {
	defs := t.All()
	for i := range defs {
		if defs[i].CanPend {
			defs[i].PendBudget = budget
		}
	}
	return New(defs)
}

// WithoutDrafts returns a copy of the table with every copilot draft
// step disabled. Scripted negotiations use it so payer turns map one
// to one onto decisions.
func (t *Table) WithoutDrafts() (*Table, error) {
	defs := t.All()
	for i := range defs {
		defs[i].DraftStep = false
	}
	return New(defs)
}
