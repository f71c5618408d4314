// Package redact tokenizes protected health information in oracle
// prompts and checks replies for leaks. Redaction is transport
// protection for off-box oracles; the audit trail keeps full fidelity.
package redact

import "strings"

// DefaultPHIKeys are the fixture keys automatically masked when
// rendering patient data for display.
var DefaultPHIKeys = []string{
	"name", "patient_name", "first_name", "last_name",
	"mrn", "medical_record_number", "ssn", "social_security",
	"dob", "date_of_birth", "address", "phone", "email",
	"member_id", "subscriber_id", "policy_number",
}

// MaskValue replaces a value with "***". Numbers and bools are preserved.
func MaskValue(v any) any {
	switch v.(type) {
	case int, int64, float64, bool:
		return v
	case nil:
		return nil
	default:
		return "***"
	}
}

// RedactMap masks specified keys in a map.
func RedactMap(data map[string]any, keys []string) map[string]any {
	result := make(map[string]any, len(data))
	keySet := make(map[string]bool, len(keys))
	for _, k := range keys {
		keySet[strings.ToLower(k)] = true
	}

	for k, v := range data {
		if keySet[strings.ToLower(k)] {
			result[k] = MaskValue(v)
		} else {
			result[k] = v
		}
	}
	return result
}

// RedactAuto masks default PHI keys plus any extra keys from a map.
func RedactAuto(data map[string]any, extraKeys []string) map[string]any {
	allKeys := append([]string{}, DefaultPHIKeys...)
	allKeys = append(allKeys, extraKeys...)
	return RedactMap(data, allKeys)
}
