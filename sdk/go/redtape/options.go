package redtape

// Option configures a Client at creation time.
type Option func(*clientConfig)

type clientConfig struct {
	configPath   string
	profileName  string
	auditDir     string
	levelsPath   string
	cachePath    string
	iterationCap int
	redaction    string
}

// WithConfig sets the path to a run config YAML file.
func WithConfig(path string) Option {
	return func(c *clientConfig) { c.configPath = path }
}

// WithProfile sets the reviewer profile (e.g., "strict").
func WithProfile(name string) Option {
	return func(c *clientConfig) { c.profileName = name }
}

// WithAuditDir sets the directory receiving audit trails.
func WithAuditDir(dir string) Option {
	return func(c *clientConfig) { c.auditDir = dir }
}

// WithLevels sets the path to a review table YAML file.
func WithLevels(path string) Option {
	return func(c *clientConfig) { c.levelsPath = path }
}

// WithCache sets the path to the SQLite response cache.
func WithCache(path string) Option {
	return func(c *clientConfig) { c.cachePath = path }
}

// WithIterationCap overrides the review pass cap per case.
func WithIterationCap(n int) Option {
	return func(c *clientConfig) { c.iterationCap = n }
}

// WithRedaction sets the PHI redaction mode: "off", "local", or "cloud".
func WithRedaction(mode string) Option {
	return func(c *clientConfig) { c.redaction = mode }
}

// RunOption configures a single Run call.
type RunOption func(*runConfig)

type runConfig struct {
	providerTurns []string
	payorTurns    []string
}

// RunWithScript replaces both oracles with canned replies for this run.
// Turns are consumed in order; running out mid-negotiation fails the run.
func RunWithScript(providerTurns, payorTurns []string) RunOption {
	return func(r *runConfig) {
		r.providerTurns = providerTurns
		r.payorTurns = payorTurns
	}
}
