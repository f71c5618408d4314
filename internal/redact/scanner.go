package redact

import (
	"regexp"
	"sort"
	"strings"
)

// PatternType identifies the category of protected health information.
type PatternType string

const (
	PatternMRN    PatternType = "MRN"
	PatternSSN    PatternType = "SSN"
	PatternDOB    PatternType = "DOB"
	PatternPhone  PatternType = "PHONE"
	PatternMember PatternType = "MEMBER"
	PatternEmail  PatternType = "EMAIL"
	PatternName   PatternType = "NAME"
)

// Match is a single occurrence of PHI in text.
type Match struct {
	Type  PatternType
	Value string
	Start int
	End   int
}

// Compiled patterns for PHI detection. These target the identifier forms
// that appear in case fixtures and clinical notes, not full HIPAA Safe
// Harbor coverage.
var (
	// Medical record numbers introduced by a label.
	mrnRe = regexp.MustCompile(`(?i)(?:mrn|medical record (?:number|#))[ \t:#]*([A-Z0-9][A-Z0-9\-]{4,11})`)

	// SSNs in dashed form.
	ssnRe = regexp.MustCompile(`\b(\d{3}-\d{2}-\d{4})\b`)

	// Dates of birth introduced by a label, slash or ISO form.
	dobRe = regexp.MustCompile(`(?i)(?:dob|date of birth)[ \t:]*(\d{1,2}/\d{1,2}/\d{2,4}|\d{4}-\d{2}-\d{2})`)

	// US phone numbers.
	phoneRe = regexp.MustCompile(`\b(\(\d{3}\)[ .\-]?\d{3}[.\-]\d{4}|\d{3}[.\-]\d{3}[.\-]\d{4})\b`)

	// Member/subscriber/policy ids introduced by a label.
	memberRe = regexp.MustCompile(`(?i)(?:member|subscriber|policy)[ \t]*(?:id|number|#)[ \t:#]*([A-Z0-9][A-Z0-9\-]{4,14})`)

	// Email addresses.
	emailRe = regexp.MustCompile(`\b([a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,})\b`)
)

// Scan finds all PHI patterns in text and returns deduplicated matches
// sorted by position (earliest first).
func Scan(text string) []Match {
	seen := make(map[string]bool)
	var matches []Match

	add := func(typ PatternType, value string, start int) {
		value = strings.TrimRight(value, ".,;:\"'`)}]")
		if value == "" || seen[value] {
			return
		}
		seen[value] = true
		matches = append(matches, Match{Type: typ, Value: value, Start: start, End: start + len(value)})
	}

	group := func(typ PatternType, re *regexp.Regexp) {
		for _, sub := range re.FindAllStringSubmatchIndex(text, -1) {
			if sub[2] >= 0 && sub[3] >= 0 {
				add(typ, text[sub[2]:sub[3]], sub[2])
			}
		}
	}

	group(PatternMRN, mrnRe)
	group(PatternSSN, ssnRe)
	group(PatternDOB, dobRe)
	group(PatternPhone, phoneRe)
	group(PatternMember, memberRe)
	group(PatternEmail, emailRe)

	sort.Slice(matches, func(i, j int) bool {
		return matches[i].Start < matches[j].Start
	})

	return matches
}

// ScanKnown finds literal occurrences of known identifier values, such as
// patient names pulled from the case fixture. Values shorter than three
// characters are ignored to avoid tokenizing initials and articles.
func ScanKnown(text string, known []string) []Match {
	seen := make(map[string]bool)
	var matches []Match

	for _, v := range known {
		v = strings.TrimSpace(v)
		if len(v) < 3 || seen[v] {
			continue
		}
		idx := strings.Index(text, v)
		if idx < 0 {
			continue
		}
		seen[v] = true
		matches = append(matches, Match{Type: PatternName, Value: v, Start: idx, End: idx + len(v)})
	}

	sort.Slice(matches, func(i, j int) bool {
		return matches[i].Start < matches[j].Start
	})

	return matches
}

// KnownFromPatient pulls name-like values out of a case fixture's
// patient data for literal matching.
func KnownFromPatient(patient map[string]any) []string {
	var known []string
	for key, v := range patient {
		lower := strings.ToLower(key)
		if !strings.Contains(lower, "name") {
			continue
		}
		if s, ok := v.(string); ok && strings.TrimSpace(s) != "" {
			known = append(known, strings.TrimSpace(s))
		}
	}
	sort.Strings(known)
	return known
}
