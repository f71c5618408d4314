package batch

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/ppiankov/redtape/internal/casefile"
)

// Report summarizes a one-shot batch run.
type Report struct {
	Total      int        `json:"total"`
	Done       int        `json:"done"`
	Failed     int        `json:"failed"`
	Outcomes   []*Outcome `json:"outcomes"`
	StartedAt  time.Time  `json:"started_at"`
	DurationMS int64      `json:"duration_ms"`
}

// Run adjudicates every case file under caseDir with up to workers
// negotiations in flight, writing one outcome file per case to outDir
// (skipped when empty). A case that fails to load or adjudicate becomes
// a failed outcome; it does not stop the rest of the batch. Outcomes
// keep the sorted input order.
func Run(ctx context.Context, eng Engine, caseDir, outDir string, workers int) (*Report, error) {
	entries, err := os.ReadDir(caseDir)
	if err != nil {
		return nil, fmt.Errorf("read case dir %s: %w", caseDir, err)
	}

	var paths []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		path := filepath.Join(caseDir, e.Name())
		if isCaseFile(path) {
			paths = append(paths, path)
		}
	}
	sort.Strings(paths)
	if len(paths) == 0 {
		return nil, fmt.Errorf("no case files under %s", caseDir)
	}

	if outDir != "" {
		if err := os.MkdirAll(outDir, dirPerm); err != nil {
			return nil, fmt.Errorf("create outcome dir: %w", err)
		}
	}
	if workers <= 0 {
		workers = maxConcurrentCases
	}

	start := time.Now()
	outcomes := make([]*Outcome, len(paths))

	// Errors are captured per case in its outcome, never returned from
	// the group, so one stuck negotiation cannot cancel its siblings.
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, path := range paths {
		g.Go(func() error {
			out := adjudicateFile(gctx, eng, path)
			if outDir != "" {
				if err := writeOutcome(outDir, out); err != nil {
					fmt.Fprintf(os.Stderr, "batch: write outcome %s: %v\n", out.CaseID, err)
				}
			}
			outcomes[i] = out
			return nil
		})
	}
	_ = g.Wait()

	report := &Report{
		Total:      len(outcomes),
		Outcomes:   outcomes,
		StartedAt:  start.UTC(),
		DurationMS: time.Since(start).Milliseconds(),
	}
	for _, out := range outcomes {
		if out.Status == OutcomeDone {
			report.Done++
		} else {
			report.Failed++
		}
	}
	return report, nil
}

// adjudicateFile runs one case file to an outcome, folding load and
// negotiation failures into a failed outcome.
func adjudicateFile(ctx context.Context, eng Engine, path string) *Outcome {
	c, err := casefile.Load(path)
	if err != nil {
		return failedOutcome(caseStem(path), fmt.Sprintf("invalid case file: %v", err))
	}

	res, auditPath, err := eng.Adjudicate(ctx, c)
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
	return out
}
