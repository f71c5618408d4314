package exclusions

// DefaultPatterns contains the hardcoded benefit exclusions. These are
// plan-level absolutes: no review level can approve a matching line.
var DefaultPatterns = Patterns{
	Services: []string{
		"cosmetic*",
		"*rhytidectomy*",
		"*liposuction*",
		"*hair transplant*",
		"*acupuncture*",
		"experimental*",
		"*investigational device*",
		"routine dental*",
		"*refractive eye surgery*",
		"*lasik*",
	},
	Diagnoses: []string{
		"Z41.1", // encounter for cosmetic surgery
	},
	Keywords: []string{
		"investigational",
		"not fda approved",
		"compassionate use",
		"cosmetic indication",
	},
}
