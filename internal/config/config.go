// Package config loads adjudication run configuration from YAML.
package config

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/ppiankov/redtape/internal/alert"
)

// Oracle selects and tunes one LLM backend.
type Oracle struct {
	Backend     string  `yaml:"backend"` // scripted | openai | bedrock | router
	Model       string  `yaml:"model"`
	BaseURL     string  `yaml:"base_url"`
	APIKeyEnv   string  `yaml:"api_key_env"`
	MaxTokens   int     `yaml:"max_tokens"`
	Temperature float64 `yaml:"temperature"`
}

// Retry bounds how often a failed oracle call is re-attempted.
type Retry struct {
	Attempts  int `yaml:"attempts"`
	BackoffMS int `yaml:"backoff_ms"`
}

// RateLimit caps oracle calls inside a sliding window.
type RateLimit struct {
	Requests      int `yaml:"requests"`
	WindowSeconds int `yaml:"window_seconds"`
}

// Config holds all configurable adjudication parameters.
type Config struct {
	IterationCap int            `yaml:"iteration_cap"`
	Profile      string         `yaml:"profile"`
	Redaction    string         `yaml:"redaction"` // off | local | cloud
	AuditDir     string         `yaml:"audit_dir"`
	CachePath    string         `yaml:"cache_path"`
	LevelsPath   string         `yaml:"levels_path"`
	Provider     Oracle         `yaml:"provider"`
	Payor        Oracle         `yaml:"payor"`
	Retry        Retry          `yaml:"retry"`
	RateLimit    RateLimit      `yaml:"rate_limit"`
	Alerts       []alert.Config `yaml:"alerts"`
}

// Default returns the built-in run configuration.
func Default() *Config {
	return &Config{
		IterationCap: 3,
		Profile:      "balanced",
		Redaction:    "local",
		Provider: Oracle{
			Backend:   "openai",
			Model:     "gpt-4o-mini",
			APIKeyEnv: "OPENAI_API_KEY",
			MaxTokens: 1024,
		},
		Payor: Oracle{
			Backend:   "openai",
			Model:     "gpt-4o-mini",
			APIKeyEnv: "OPENAI_API_KEY",
			MaxTokens: 1024,
		},
		Retry: Retry{
			Attempts:  3,
			BackoffMS: 500,
		},
		RateLimit: RateLimit{
			Requests:      60,
			WindowSeconds: 60,
		},
	}
}

// Load reads run configuration from a YAML file.
// Empty path falls back to ~/.redtape/config.yaml.
// Missing file returns defaults. Invalid YAML returns an error.
func Load(path string) (*Config, error) {
	cfg, _, err := LoadWithHash(path)
	return cfg, err
}

// LoadWithHash loads run configuration and returns its SHA-256 hash.
// The hash is computed over the raw YAML bytes on disk.
// When no file exists (defaults used), the hash is the SHA-256 of empty input.
func LoadWithHash(path string) (*Config, string, error) {
	if path == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return Default(), emptyHash(), nil
		}
		path = filepath.Join(home, ".redtape", "config.yaml")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Default(), emptyHash(), nil
		}
		return nil, "", fmt.Errorf("failed to read run config: %w", err)
	}

	h := sha256.Sum256(data)
	hash := "sha256:" + hex.EncodeToString(h[:])

	// Start with defaults, YAML overwrites only specified fields
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, "", fmt.Errorf("failed to parse run config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, "", err
	}

	return cfg, hash, nil
}

// Validate rejects configurations the engine cannot run with.
func (c *Config) Validate() error {
	if c.IterationCap < 1 {
		return fmt.Errorf("iteration_cap must be at least 1, got %d", c.IterationCap)
	}
	switch c.Redaction {
	case "off", "local", "cloud":
	default:
		return fmt.Errorf("redaction must be off, local or cloud, got %q", c.Redaction)
	}
	for _, o := range []struct {
		name   string
		oracle Oracle
	}{{"provider", c.Provider}, {"payor", c.Payor}} {
		switch o.oracle.Backend {
		case "scripted", "openai", "bedrock", "router":
		default:
			return fmt.Errorf("%s backend must be scripted, openai, bedrock or router, got %q", o.name, o.oracle.Backend)
		}
	}
	if c.Retry.Attempts < 1 {
		return fmt.Errorf("retry attempts must be at least 1, got %d", c.Retry.Attempts)
	}
	for i, a := range c.Alerts {
		if a.URL == "" {
			return fmt.Errorf("alert %d has no url", i)
		}
	}
	return nil
}

func emptyHash() string {
	h := sha256.Sum256(nil)
	return "sha256:" + hex.EncodeToString(h[:])
}

// DefaultConfigYAML returns a commented YAML string for redtape init.
func DefaultConfigYAML() string {
	return `# redtape run configuration
# Generated by: redtape init

# Hard cap on review passes per case. Once spent, every open
# service line is denied with reason "max iterations reached".
iteration_cap: 3

# Payer posture preset. Built-ins: strict | balanced | lenient.
# Additional presets load from ~/.redtape/profiles/<name>.yaml.
profile: balanced

# PHI handling before prompts leave the process. Redaction is
# deterministic token substitution, reversed on the way back, with a
# leak check on every response.
#   off   - never redact (scripted or trusted backends only)
#   local - redact only when the oracle endpoint is remote
#   cloud - always redact, even for localhost endpoints
redaction: local

# Where hash-chained audit trails are written. Empty means ~/.redtape/audit.
audit_dir: ""

# SQLite write-once response cache. Empty disables caching.
cache_path: ""

# Review level table override. Empty means ~/.redtape/levels.yaml,
# falling back to the built-in three-level table.
levels_path: ""

# Oracle backends for the two sides of the negotiation.
#   backend: scripted | openai | bedrock | router
provider:
  backend: openai
  model: gpt-4o-mini
  api_key_env: OPENAI_API_KEY
  max_tokens: 1024
  temperature: 0

payor:
  backend: openai
  model: gpt-4o-mini
  api_key_env: OPENAI_API_KEY
  max_tokens: 1024
  temperature: 0

# Oracle call retry and rate limiting.
retry:
  attempts: 3
  backoff_ms: 500

rate_limit:
  requests: 60
  window_seconds: 60

# Webhook alerts fired by the watch service. Events: failed, denied,
# forced_denial, abandoned. Formats: generic | slack | pagerduty.
# alerts:
#   - url: https://hooks.example.com/redtape
#     format: generic
#     events: [failed, forced_denial]
`
}
