package batch

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/ppiankov/redtape/internal/config"
	"github.com/ppiankov/redtape/internal/exclusions"
	"github.com/ppiankov/redtape/internal/levels"
	"github.com/ppiankov/redtape/internal/oracle"
	"github.com/ppiankov/redtape/internal/profile"
	"github.com/ppiankov/redtape/internal/prompt"
	"github.com/ppiankov/redtape/internal/redact"
)

// NewEngine assembles an Engine from run configuration: oracle backends
// wrapped with retry, a rate limiter shared by both roles, an optional
// write-once response cache, and the profile-adjusted level table,
// prompt builder, and exclusion list. The returned cleanup releases the
// cache and must be called once the engine is done.
func NewEngine(ctx context.Context, cfg *config.Config, configHash string) (Engine, func() error, error) {
	noop := func() error { return nil }

	table, err := levels.Load(cfg.LevelsPath)
	if err != nil {
		return Engine{}, noop, fmt.Errorf("load level table: %w", err)
	}
	excl, err := exclusions.Load("")
	if err != nil {
		return Engine{}, noop, fmt.Errorf("load exclusion list: %w", err)
	}

	prof, err := profile.Load(cfg.Profile)
	if err != nil {
		return Engine{}, noop, fmt.Errorf("load profile: %w", err)
	}
	table, err = profile.ApplyToLevels(prof, table)
	if err != nil {
		return Engine{}, noop, fmt.Errorf("apply profile %q: %w", prof.Name, err)
	}
	profile.ApplyToExclusions(prof, excl)

	provider, err := oracle.FromConfig(ctx, cfg.Provider, cfg.Retry)
	if err != nil {
		return Engine{}, noop, fmt.Errorf("provider oracle: %w", err)
	}
	payor, err := oracle.FromConfig(ctx, cfg.Payor, cfg.Retry)
	if err != nil {
		return Engine{}, noop, fmt.Errorf("payor oracle: %w", err)
	}

	// One limiter across both roles: the window guards the backend
	// quota, not the role.
	if cfg.RateLimit.Requests > 0 {
		lim := oracle.NewLimiter(cfg.RateLimit.Requests, time.Duration(cfg.RateLimit.WindowSeconds)*time.Second)
		provider = oracle.NewLimited(lim, provider)
		payor = oracle.NewLimited(lim, payor)
	}

	cleanup := noop
	if cfg.CachePath != "" {
		cache, err := oracle.NewCache(cfg.CachePath, provider)
		if err != nil {
			return Engine{}, noop, fmt.Errorf("open response cache: %w", err)
		}
		provider = cache
		payor = cache.WithInner(payor)
		cleanup = cache.Close
	}

	auditDir := cfg.AuditDir
	if auditDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			home = "."
		}
		auditDir = filepath.Join(home, ".redtape", "audit")
	}

	mode := redact.Mode(cfg.Redaction)
	eng := Engine{
		Table:          table,
		Prompts:        prompt.NewBuilder(table, cfg.IterationCap).WithPosture(prof.ProviderPosture, prof.PayorPosture),
		Provider:       provider,
		Payor:          payor,
		Exclusions:     excl,
		IterationCap:   cfg.IterationCap,
		ConfigHash:     configHash,
		AuditDir:       auditDir,
		RedactProvider: redact.ShouldRedact(mode, oracle.Endpoint(cfg.Provider)),
		RedactPayor:    redact.ShouldRedact(mode, oracle.Endpoint(cfg.Payor)),
	}
	return eng, cleanup, nil
}
