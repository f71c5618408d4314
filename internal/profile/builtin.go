package profile

import _ "embed"

//go:embed profiles/strict.yaml
var strictYAML []byte

//go:embed profiles/balanced.yaml
var balancedYAML []byte

//go:embed profiles/lenient.yaml
var lenientYAML []byte

// builtinProfiles maps profile names to their embedded YAML content.
var builtinProfiles = map[string][]byte{
	"strict":   strictYAML,
	"balanced": balancedYAML,
	"lenient":  lenientYAML,
}
