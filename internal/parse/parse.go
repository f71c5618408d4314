// Package parse extracts structured payloads from raw oracle text.
// Models wrap JSON in markdown fences, prose, and the occasional trailing
// comma; callers get either a decoded object or an error, and apply their
// own documented fallback.
package parse

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Clean strips markdown fences and leading/trailing whitespace.
func Clean(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

// Truncate shortens s for audit and error contexts.
func Truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

// ExtractObject locates and decodes the first balanced JSON object in text.
// Tries the cleaned text whole, then each balanced {...} candidate in order,
// retrying each candidate with trailing commas stripped.
func ExtractObject(text string) (map[string]any, error) {
	cleaned := Clean(text)
	if cleaned == "" {
		return nil, fmt.Errorf("empty response")
	}

	if m, err := decodeObject(cleaned); err == nil {
		return m, nil
	}

	start := 0
	for {
		open := strings.Index(cleaned[start:], "{")
		if open < 0 {
			break
		}
		open += start

		candidate, ok := balancedObject(cleaned[open:])
		if !ok {
			break
		}

		if m, err := decodeObject(candidate); err == nil {
			return m, nil
		}
		if m, err := decodeObject(stripTrailingCommas(candidate)); err == nil {
			return m, nil
		}

		start = open + 1
	}

	return nil, fmt.Errorf("no JSON object found in response: %s", Truncate(cleaned, 200))
}

func decodeObject(s string) (map[string]any, error) {
	var m map[string]any
	if err := json.Unmarshal([]byte(s), &m); err != nil {
		return nil, err
	}
	if m == nil {
		return nil, fmt.Errorf("decoded null")
	}
	return m, nil
}

// balancedObject returns the prefix of s spanning one balanced {...},
// tracking string literals and escapes so braces inside values don't count.
func balancedObject(s string) (string, bool) {
	depth := 0
	inString := false
	escaped := false

	for i := 0; i < len(s); i++ {
		c := s[i]
		if escaped {
			escaped = false
			continue
		}
		switch c {
		case '\\':
			if inString {
				escaped = true
			}
		case '"':
			inString = !inString
		case '{':
			if !inString {
				depth++
			}
		case '}':
			if !inString {
				depth--
				if depth == 0 {
					return s[:i+1], true
				}
			}
		}
	}
	return "", false
}

// stripTrailingCommas removes commas that directly precede a closing brace
// or bracket, outside string literals.
func stripTrailingCommas(s string) string {
	var b strings.Builder
	b.Grow(len(s))

	inString := false
	escaped := false

	for i := 0; i < len(s); i++ {
		c := s[i]
		if escaped {
			b.WriteByte(c)
			escaped = false
			continue
		}
		switch c {
		case '\\':
			if inString {
				escaped = true
			}
			b.WriteByte(c)
		case '"':
			inString = !inString
			b.WriteByte(c)
		case ',':
			if !inString {
				j := i + 1
				for j < len(s) && (s[j] == ' ' || s[j] == '\t' || s[j] == '\n' || s[j] == '\r') {
					j++
				}
				if j < len(s) && (s[j] == '}' || s[j] == ']') {
					continue
				}
			}
			b.WriteByte(c)
		default:
			b.WriteByte(c)
		}
	}
	return b.String()
}
