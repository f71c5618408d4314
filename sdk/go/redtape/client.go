package redtape

import (
	"context"
	"fmt"

	"github.com/ppiankov/redtape/internal/batch"
	"github.com/ppiankov/redtape/internal/casefile"
	"github.com/ppiankov/redtape/internal/config"
	"github.com/ppiankov/redtape/internal/oracle"
)

// Client embeds the adjudication engine for in-process use. Safe for
// concurrent Run calls; negotiations share the oracle stack and cache
// but each owns its review session.
type Client struct {
	eng     batch.Engine
	cleanup func() error
}

// New creates a Client with the given options. The run config loads
// from the path set by WithConfig, falling back to ~/.redtape/config.yaml
// and then the built-in defaults.
func New(opts ...Option) (*Client, error) {
	var cc clientConfig
	for _, o := range opts {
		o(&cc)
	}

	cfg, hash, err := config.LoadWithHash(cc.configPath)
	if err != nil {
		return nil, fmt.Errorf("redtape: load config: %w", err)
	}
	if cc.profileName != "" {
		cfg.Profile = cc.profileName
	}
	if cc.auditDir != "" {
		cfg.AuditDir = cc.auditDir
	}
	if cc.levelsPath != "" {
		cfg.LevelsPath = cc.levelsPath
	}
	if cc.cachePath != "" {
		cfg.CachePath = cc.cachePath
	}
	if cc.iterationCap > 0 {
		cfg.IterationCap = cc.iterationCap
	}
	if cc.redaction != "" {
		cfg.Redaction = cc.redaction
	}

	eng, cleanup, err := batch.NewEngine(context.Background(), cfg, hash)
	if err != nil {
		return nil, fmt.Errorf("redtape: %w", err)
	}

	return &Client{eng: eng, cleanup: cleanup}, nil
}

// Close releases the response cache, when one is open.
func (c *Client) Close() error {
	if c.cleanup == nil {
		return nil
	}
	return c.cleanup()
}

// Run adjudicates one case given as raw fixture JSON.
func (c *Client) Run(ctx context.Context, caseData []byte, opts ...RunOption) (*Result, error) {
	cf, err := casefile.Parse(caseData)
	if err != nil {
		return nil, fmt.Errorf("redtape: %w", err)
	}
	return c.run(ctx, cf, opts...)
}

// RunFile adjudicates one case fixture from disk.
func (c *Client) RunFile(ctx context.Context, path string, opts ...RunOption) (*Result, error) {
	cf, err := casefile.Load(path)
	if err != nil {
		return nil, fmt.Errorf("redtape: %w", err)
	}
	return c.run(ctx, cf, opts...)
}

func (c *Client) run(ctx context.Context, cf *casefile.Case, opts ...RunOption) (*Result, error) {
	var rc runConfig
	for _, o := range opts {
		o(&rc)
	}

	eng := c.eng
	if len(rc.providerTurns) > 0 || len(rc.payorTurns) > 0 {
		if len(rc.providerTurns) == 0 || len(rc.payorTurns) == 0 {
			return nil, fmt.Errorf("redtape: scripted runs need both provider and payor turns")
		}
		eng.Provider = oracle.NewScripted(rc.providerTurns...)
		eng.Payor = oracle.NewScripted(rc.payorTurns...)
		// Scripted turns never leave the process, and draft steps would
		// consume payer turns invisibly.
		eng.RedactProvider = false
		eng.RedactPayor = false
		var err error
		eng.Table, err = eng.Table.WithoutDrafts()
		if err != nil {
			return nil, fmt.Errorf("redtape: %w", err)
		}
	}

	res, trail, err := eng.Adjudicate(ctx, cf)
	if err != nil {
		return nil, fmt.Errorf("redtape: %w", err)
	}
	return toResult(res, trail), nil
}
