package batch

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/ppiankov/redtape/internal/audit"
	"github.com/ppiankov/redtape/internal/casefile"
	"github.com/ppiankov/redtape/internal/exclusions"
	"github.com/ppiankov/redtape/internal/levels"
	"github.com/ppiankov/redtape/internal/oracle"
	"github.com/ppiankov/redtape/internal/prompt"
	"github.com/ppiankov/redtape/internal/redact"
	"github.com/ppiankov/redtape/internal/review"
)

// Engine bundles the negotiation dependencies shared by every case in a
// batch: oracles, level table, prompt builder, exclusion list. Zero
// fields fall back to the review defaults. An Engine is immutable and
// safe to share across concurrent adjudications; every built-in oracle
// backend is safe for concurrent use.
type Engine struct {
	Table        *levels.Table
	Prompts      *prompt.Builder
	Provider     oracle.Oracle
	Payor        oracle.Oracle
	Exclusions   *exclusions.List
	IterationCap int
	ConfigHash   string

	// AuditDir receives one <case_id>.audit.jsonl trail per case.
	// Empty keeps trails in memory.
	AuditDir string

	// Redaction flags, resolved per role from the run config mode and
	// each backend's endpoint. A flagged role gets its prompts PHI
	// tokenized for one case at a time in Adjudicate.
	RedactProvider bool
	RedactPayor    bool
}

// Adjudicate runs one case through a fresh review session and returns
// the result plus the audit trail path, empty when AuditDir is not set.
func (e Engine) Adjudicate(ctx context.Context, c *casefile.Case) (*review.Result, string, error) {
	if c == nil {
		return nil, "", fmt.Errorf("batch: case is required")
	}
	if err := ValidateCaseID(c.CaseID); err != nil {
		return nil, "", err
	}

	provider, payor := e.Provider, e.Payor
	if e.RedactProvider || e.RedactPayor {
		known := redact.KnownFromPatient(c.Patient)
		if e.RedactProvider {
			provider = oracle.NewRedacting(provider, c.CaseID, known)
		}
		if e.RedactPayor {
			payor = oracle.NewRedacting(payor, c.CaseID, known)
		}
	}

	cfg := review.Config{
		Table:        e.Table,
		Prompts:      e.Prompts,
		Provider:     provider,
		Payor:        payor,
		Exclusions:   e.Exclusions,
		IterationCap: e.IterationCap,
		ConfigHash:   e.ConfigHash,
	}

	var auditPath string
	if e.AuditDir != "" {
		auditPath = filepath.Join(e.AuditDir, c.CaseID+".audit.jsonl")
		trail, err := audit.Open(auditPath)
		if err != nil {
			return nil, "", fmt.Errorf("open audit trail: %w", err)
		}
		defer func() { _ = trail.Close() }()
		cfg.Audit = trail
	}

	sess, err := review.NewSession(c, cfg)
	if err != nil {
		return nil, auditPath, err
	}
	res, err := sess.Run(ctx)
	if err != nil {
		return nil, auditPath, err
	}
	return res, auditPath, nil
}
