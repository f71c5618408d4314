// Package batch runs case negotiations in bulk. Cases arrive as JSON
// files, either a directory handed to Run or an inbox watched by the
// Service; each case is adjudicated in its own review session and an
// outcome file is written to the outbox directory.
package batch

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/ppiankov/redtape/internal/review"
)

// Outcome is written to the outbox after a case is adjudicated.
type Outcome struct {
	CaseID      string         `json:"case_id"`
	Status      string         `json:"status"`
	Result      *review.Result `json:"result,omitempty"`
	AuditLog    string         `json:"audit_log,omitempty"`
	Error       string         `json:"error,omitempty"`
	CompletedAt time.Time      `json:"completed_at"`
}

// Outcome status values.
const (
	OutcomeDone   = "done"
	OutcomeFailed = "failed"
)

// validCaseID matches alphanumeric characters, dashes, and underscores only.
var validCaseID = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

// ValidateCaseID checks that a case ID is safe to use as a filename in
// the processing, audit, and outbox directories.
func ValidateCaseID(id string) error {
	if id == "" {
		return fmt.Errorf("case ID is required")
	}
	if strings.Contains(id, "..") {
		return fmt.Errorf("case ID must not contain '..'")
	}
	if !validCaseID.MatchString(id) {
		return fmt.Errorf("case ID contains invalid characters: only alphanumeric, dash, and underscore allowed")
	}
	return nil
}

// writeOutcome writes an outcome file to dir atomically.
func writeOutcome(dir string, o *Outcome) error {
	data, err := json.MarshalIndent(o, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal outcome: %w", err)
	}

	filename := o.CaseID + ".json"
	tmpPath := filepath.Join(dir, filename+".tmp")
	finalPath := filepath.Join(dir, filename)

	if err := os.WriteFile(tmpPath, data, 0600); err != nil {
		return fmt.Errorf("write temp: %w", err)
	}
	return os.Rename(tmpPath, finalPath)
}

// failedOutcome builds an outcome for a case that never produced a result.
func failedOutcome(caseID, errMsg string) *Outcome {
	if caseID == "" {
		caseID = fmt.Sprintf("unknown-%d", time.Now().UnixNano())
	}
	return &Outcome{
		CaseID:      caseID,
		Status:      OutcomeFailed,
		Error:       errMsg,
		CompletedAt: time.Now().UTC(),
	}
}
