package redact

import "strings"

// Redact scans text for PHI patterns, allocates tokens in tm, and returns
// the text with all PHI values replaced by tokens. Replacements are
// greedy: longer values are replaced first so that a full "MRN-4471-22"
// is replaced before any shorter value it contains.
func Redact(text string, tm *TokenMap) string {
	return redactMatches(text, tm, Scan(text))
}

// RedactKnown is like Redact but additionally tokenizes literal known
// values (patient names from the case fixture).
func RedactKnown(text string, tm *TokenMap, known []string) string {
	matches := Scan(text)
	matches = append(matches, ScanKnown(text, known)...)
	return redactMatches(text, tm, matches)
}

func redactMatches(text string, tm *TokenMap, matches []Match) string {
	if len(matches) == 0 {
		return text
	}

	// Allocate tokens for every match.
	for _, m := range matches {
		tm.Token(m.Type, m.Value)
	}

	// Replace longest values first to avoid partial substitution.
	result := text
	for _, val := range tm.Values() {
		tok := tm.forward[val]
		result = strings.ReplaceAll(result, val, tok)
	}

	return result
}

// Detoken replaces all tokens in text with their original values.
func Detoken(text string, tm *TokenMap) string {
	result := text
	for _, tok := range tm.Tokens() {
		val, _ := tm.Resolve(tok)
		result = strings.ReplaceAll(result, tok, val)
	}
	return result
}

// CheckLeaks scans an oracle response for literal PHI values that should
// have stayed tokenized. Returns the list of leaked values. An empty
// slice means no leaks detected.
func CheckLeaks(response string, tm *TokenMap) []string {
	var leaks []string
	for _, val := range tm.Values() {
		if strings.Contains(response, val) {
			leaks = append(leaks, val)
		}
	}
	return leaks
}
