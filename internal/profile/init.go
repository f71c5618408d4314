package profile

import "fmt"

// InitProfile returns a commented YAML starter template for a new profile.
func InitProfile(name string) string {
	return fmt.Sprintf(`name: %s
description: Custom payer posture

# Posture text, appended to the reviewer system prompt.
payor_posture: |
  Describe how this payer applies coverage criteria.

# Posture text, appended to the provider system prompt. Usually empty
# for payer profiles; set it to model provider documentation habits.
# provider_posture: |
#   Document defensively with objective values.

# Replaces the pend budget at every pend-capable review level.
# Omit to keep the level table's own budgets.
pend_budget: 2

# Extra benefit exclusions, merged additively into the exclusion list.
# exclusions:
#   services:
#     - "*your-service-pattern*"
#   diagnoses:
#     - "Z41.1"
#   keywords:
#     - "investigational"
`, name)
}
