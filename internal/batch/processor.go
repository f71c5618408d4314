package batch

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ppiankov/redtape/internal/alert"
	"github.com/ppiankov/redtape/internal/casefile"
)

// ProcessorConfig holds runtime configuration for case processing.
type ProcessorConfig struct {
	Dirs   DirConfig
	Engine Engine

	// Alerts fires webhooks for outcomes worth operator attention.
	// Nil disables alerting.
	Alerts *alert.Dispatcher
}

// Processor moves one case through its lifecycle: claim from the inbox,
// adjudicate, write the outcome to the outbox.
type Processor struct {
	cfg ProcessorConfig
}

// NewProcessor creates a processor with the given configuration. An
// engine without an audit directory writes trails under the state dir.
func NewProcessor(cfg ProcessorConfig) *Processor {
	if cfg.Engine.AuditDir == "" {
		cfg.Engine.AuditDir = cfg.Dirs.AuditDir()
	}
	return &Processor{cfg: cfg}
}

// Process handles a single case file through its full lifecycle:
// read → validate → claim to processing → adjudicate → write outcome.
func (p *Processor) Process(ctx context.Context, casePath string) error {
	// Reject symlinks before reading. A link dropped into the inbox
	// could point anywhere on the filesystem.
	fi, err := os.Lstat(casePath)
	if err != nil {
		return fmt.Errorf("stat case file: %w", err)
	}
	if fi.Mode()&os.ModeSymlink != 0 {
		return fmt.Errorf("rejected symlink: %s", filepath.Base(casePath))
	}

	c, err := casefile.Load(casePath)
	if err != nil {
		// Key the failure by the inbox filename; there is no trusted
		// case ID yet. The file stays in the inbox for inspection.
		return p.finish(failedOutcome(caseStem(casePath), fmt.Sprintf("invalid case file: %v", err)))
	}

	if err := ValidateCaseID(c.CaseID); err != nil {
		return p.finish(failedOutcome(caseStem(casePath), fmt.Sprintf("invalid case ID: %v", err)))
	}

	// Claim the case. Uses moveFile to handle bind-mounted inboxes (EXDEV).
	processingPath := filepath.Join(p.cfg.Dirs.ProcessingDir(), c.CaseID+".json")
	if err := moveFile(casePath, processingPath); err != nil {
		return fmt.Errorf("claim case: %w", err)
	}

	res, auditPath, err := p.cfg.Engine.Adjudicate(ctx, c)

	out := &Outcome{
		CaseID:      c.CaseID,
		AuditLog:    auditPath,
		CompletedAt: time.Now().UTC(),
	}
	if err != nil {
		out.Status = OutcomeFailed
		out.Error = err.Error()
	} else {
		out.Status = OutcomeDone
		out.Result = res
	}

	if err := p.finish(out); err != nil {
		return err
	}

	// Clean up the processing file.
	_ = os.Remove(processingPath)
	return nil
}

// finish writes the outcome file and fires any configured alerts.
func (p *Processor) finish(out *Outcome) error {
	if err := writeOutcome(p.cfg.Dirs.Outbox, out); err != nil {
		return fmt.Errorf("write outcome: %w", err)
	}
	if p.cfg.Alerts != nil {
		for _, ev := range outcomeEvents(out) {
			p.cfg.Alerts.Dispatch(ev)
		}
	}
	return nil
}

// caseStem returns the inbox filename without its .json extension, used
// to key failure outcomes when the case itself is unusable.
func caseStem(path string) string {
	return strings.TrimSuffix(filepath.Base(path), ".json")
}
