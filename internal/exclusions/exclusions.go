// Package exclusions matches service requests against plan benefit
// exclusions. An excluded line is denied without consulting the review
// oracle; the denial still flows through the normal provider action path.
package exclusions

import (
	"crypto/sha256"
	"encoding/hex"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/ppiankov/redtape/internal/model"
)

// Patterns holds the raw pattern strings organized by category.
type Patterns struct {
	Services  []string `yaml:"services"`
	Diagnoses []string `yaml:"diagnoses"`
	Keywords  []string `yaml:"keywords"`
}

// Match reports one excluded service line and the rule that caught it.
type Match struct {
	LineNumber int
	Rule       string
}

// List holds compiled patterns for fast matching.
type List struct {
	servicePatterns   []*regexp.Regexp
	diagnosisPrefixes []string // ICD-10 code prefixes
	keywordPatterns   []string // substring matching (case-insensitive)
	raw               Patterns
}

// New creates a List from raw patterns, compiling service globs.
func New(p Patterns) *List {
	l := &List{raw: p}

	for _, s := range p.Services {
		re := patternToRegex(s)
		if compiled, err := regexp.Compile("(?i)" + re); err == nil {
			l.servicePatterns = append(l.servicePatterns, compiled)
		}
	}

	l.diagnosisPrefixes = p.Diagnoses
	l.keywordPatterns = p.Keywords

	return l
}

// NewDefault creates a List with the hardcoded default patterns.
func NewDefault() *List {
	return New(DefaultPatterns)
}

// Load reads an exclusion list from a YAML file. Falls back to defaults
// if the file doesn't exist.
func Load(path string) (*List, error) {
	l, _, err := LoadWithHash(path)
	return l, err
}

// LoadWithHash loads the exclusion list and returns the sha256 of the
// raw file bytes, for stamping into audit metadata.
func LoadWithHash(path string) (*List, string, error) {
	if path == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return NewDefault(), emptyHash(), nil
		}
		path = filepath.Join(home, ".redtape", "exclusions.yaml")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return NewDefault(), emptyHash(), nil
		}
		return nil, "", err
	}

	sum := sha256.Sum256(data)

	var p Patterns
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, "", err
	}

	return New(p), hex.EncodeToString(sum[:]), nil
}

// Check matches every requested service line against the exclusion list.
// A diagnosis-level match excludes all lines of the request.
func (l *List) Check(req *model.ProviderRequest) []Match {
	for _, dc := range req.DiagnosisCodes {
		if blocked, rule := l.MatchDiagnosis(dc.ICD10); blocked {
			matches := make([]Match, 0, len(req.RequestedServices))
			for _, sr := range req.RequestedServices {
				matches = append(matches, Match{LineNumber: sr.LineNumber, Rule: rule})
			}
			return matches
		}
	}

	var matches []Match
	for _, sr := range req.RequestedServices {
		if blocked, rule := l.MatchService(sr.ServiceName); blocked {
			matches = append(matches, Match{LineNumber: sr.LineNumber, Rule: rule})
			continue
		}
		if blocked, rule := l.MatchText(lineText(sr)); blocked {
			matches = append(matches, Match{LineNumber: sr.LineNumber, Rule: rule})
		}
	}
	return matches
}

// MatchService checks a service name against the service patterns.
// Returns (excluded, rule).
func (l *List) MatchService(name string) (bool, string) {
	lower := strings.ToLower(name)
	for _, re := range l.servicePatterns {
		if re.MatchString(lower) {
			return true, "service excluded from coverage: " + re.String()
		}
	}
	return false, ""
}

// MatchDiagnosis checks an ICD-10 code against the diagnosis prefixes.
func (l *List) MatchDiagnosis(code string) (bool, string) {
	upper := strings.ToUpper(strings.TrimSpace(code))
	for _, prefix := range l.diagnosisPrefixes {
		if prefix != "" && strings.HasPrefix(upper, strings.ToUpper(prefix)) {
			return true, "diagnosis excluded from coverage: " + prefix
		}
	}
	return false, ""
}

// MatchText checks free-text clinical fields for exclusion keywords.
func (l *List) MatchText(text string) (bool, string) {
	lower := strings.ToLower(text)
	for _, kw := range l.keywordPatterns {
		if kw != "" && strings.Contains(lower, strings.ToLower(kw)) {
			return true, "exclusion keyword: " + kw
		}
	}
	return false, ""
}

// AddPattern adds a pattern to the list at runtime.
func (l *List) AddPattern(category, pattern string) {
	switch category {
	case "services":
		l.raw.Services = append(l.raw.Services, pattern)
		re := patternToRegex(pattern)
		if compiled, err := regexp.Compile("(?i)" + re); err == nil {
			l.servicePatterns = append(l.servicePatterns, compiled)
		}
	case "diagnoses":
		l.raw.Diagnoses = append(l.raw.Diagnoses, pattern)
		l.diagnosisPrefixes = append(l.diagnosisPrefixes, pattern)
	case "keywords":
		l.raw.Keywords = append(l.raw.Keywords, pattern)
		l.keywordPatterns = append(l.keywordPatterns, pattern)
	}
}

// ToMap returns the raw patterns as a map for serialization.
func (l *List) ToMap() map[string]any {
	return map[string]any{
		"services":  l.raw.Services,
		"diagnoses": l.raw.Diagnoses,
		"keywords":  l.raw.Keywords,
	}
}

func lineText(sr model.ServiceRequest) string {
	return strings.Join([]string{
		sr.ClinicalEvidence, sr.TestJustification,
		sr.ExpectedFindings, sr.SeverityIndicators,
	}, " ")
}

// patternToRegex converts a simple glob-like pattern to a regex.
// Matching is unanchored, so a bare word behaves as a substring.
func patternToRegex(pattern string) string {
	escaped := regexp.QuoteMeta(pattern)
	return strings.ReplaceAll(escaped, `\*`, ".*")
}

func emptyHash() string {
	sum := sha256.Sum256(nil)
	return hex.EncodeToString(sum[:])
}
