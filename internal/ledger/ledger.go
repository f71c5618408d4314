// Package ledger is the single source of truth for per-line authorization
// state across one negotiation. Lines are created on first request, updated
// once per completed round, and sealed forever once a terminal outcome is
// recorded.
package ledger

import (
	"errors"
	"fmt"
	"sort"

	"github.com/ppiankov/redtape/internal/model"
)

// ErrLineTerminal is returned when a mutation targets a sealed line.
// Hitting it means the engine kept driving a finished line, which is a
// programming error, not a business condition.
var ErrLineTerminal = errors.New("service line already terminal")

// ErrNoServices is returned when a request carries no service lines.
var ErrNoServices = errors.New("request has no service lines")

// Line is the adjudication state of one billable item.
type Line struct {
	LineNumber     int                  `json:"line_number"`
	ServiceName    string               `json:"service_name"`
	RequestType    model.RequestType    `json:"request_type"`
	DiagnosisCodes []string             `json:"diagnosis_codes,omitempty"`
	Status         model.LineStatus     `json:"status"`
	Level          int                  `json:"level"`
	ReviewerRole   string               `json:"reviewer_type,omitempty"`
	LastReason     string               `json:"last_reason,omitempty"`
	LastAction     model.ProviderAction `json:"last_action,omitempty"`

	ApprovedQuantity   int      `json:"approved_quantity,omitempty"`
	ModificationType   string   `json:"modification_type,omitempty"`
	RequestedDocuments []string `json:"requested_documents,omitempty"`

	Terminal bool `json:"terminal"`
}

// Ledger tracks every service line of one negotiation. Not safe for
// concurrent use; each negotiation owns exactly one.
type Ledger struct {
	lines map[int]*Line
}

// New returns an empty ledger.
func New() *Ledger {
	return &Ledger{lines: make(map[int]*Line)}
}

// UpsertFromApproval records an APPROVE decision. Treatment and
// level-of-care lines seal as approved; diagnostic lines stay open so the
// negotiation can use the new information in a later round.
func (l *Ledger) UpsertFromApproval(req *model.ProviderRequest, dec *model.Decision) error {
	if req == nil || len(req.RequestedServices) == 0 {
		return ErrNoServices
	}

	for _, svc := range req.RequestedServices {
		line, err := l.findOrCreate(svc, req)
		if err != nil {
			return err
		}

		line.Level = dec.Level
		line.ReviewerRole = dec.ReviewerRole
		line.LastReason = dec.Reason
		applyAdjudication(line, dec)

		switch svc.RequestType {
		case model.RequestTreatment, model.RequestLevelOfCare:
			line.Status = model.LineApproved
			line.Terminal = true
		case model.RequestDiagnosticTest:
			// Probe approved; the line itself remains adjudicable.
		}
	}
	return nil
}

// UpsertFromNonApproval records an adverse decision (MODIFY, DENY, or
// REQUEST_INFO). The line takes the corresponding status but is not sealed;
// terminality waits on the resolved provider action or a forced seal.
func (l *Ledger) UpsertFromNonApproval(req *model.ProviderRequest, kind model.OutcomeKind, dec *model.Decision) error {
	if req == nil || len(req.RequestedServices) == 0 {
		return ErrNoServices
	}

	status, err := statusForOutcome(kind)
	if err != nil {
		return err
	}

	for _, svc := range req.RequestedServices {
		line, err := l.findOrCreate(svc, req)
		if err != nil {
			return err
		}

		line.Status = status
		line.Level = dec.Level
		line.ReviewerRole = dec.ReviewerRole
		line.LastReason = dec.Reason
		if kind == model.OutcomeRequestInfo {
			line.RequestedDocuments = dec.RequestedDocuments
		}
		applyAdjudication(line, dec)
	}
	return nil
}

// RecordAction stamps the provider's resolved action on every open line.
// ABANDON additionally seals them; CONTINUE and APPEAL leave them open.
func (l *Ledger) RecordAction(action model.ProviderAction) {
	for _, line := range l.lines {
		if line.Terminal {
			continue
		}
		line.LastAction = action
		if action == model.ActionAbandon {
			line.Terminal = true
		}
	}
}

// SealOpen marks every open line terminal without changing its status.
// Used when level rules end the negotiation with no provider consult.
func (l *Ledger) SealOpen() {
	for _, line := range l.lines {
		line.Terminal = true
	}
}

// ForceDenyOpen denies and seals every open line. Used when the iteration
// budget runs out before a genuine terminal outcome.
func (l *Ledger) ForceDenyOpen(reason string, level int) {
	for _, line := range l.lines {
		if line.Terminal {
			continue
		}
		line.Status = model.LineDenied
		line.LastReason = reason
		line.Level = level
		line.Terminal = true
	}
}

// AllTerminal reports whether every line has been sealed. An empty ledger
// is not terminal: a negotiation with no recorded lines is not finished.
func (l *Ledger) AllTerminal() bool {
	if len(l.lines) == 0 {
		return false
	}
	for _, line := range l.lines {
		if !line.Terminal {
			return false
		}
	}
	return true
}

// Line returns a copy of the numbered line.
func (l *Ledger) Line(n int) (Line, bool) {
	line, ok := l.lines[n]
	if !ok {
		return Line{}, false
	}
	return *line, true
}

// Lines returns copies of all lines ordered by line number.
func (l *Ledger) Lines() []Line {
	out := make([]Line, 0, len(l.lines))
	for _, line := range l.lines {
		out = append(out, *line)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].LineNumber < out[j].LineNumber })
	return out
}

// Len returns the number of tracked lines.
func (l *Ledger) Len() int {
	return len(l.lines)
}

func (l *Ledger) findOrCreate(svc model.ServiceRequest, req *model.ProviderRequest) (*Line, error) {
	n := svc.LineNumber
	if n <= 0 {
		return nil, fmt.Errorf("service %q: line number %d invalid", svc.ServiceName, n)
	}

	if line, ok := l.lines[n]; ok {
		if line.Terminal {
			return nil, fmt.Errorf("line %d: %w", n, ErrLineTerminal)
		}
		// Re-requests may retype the line (an approved probe becomes a
		// treatment ask) and refresh its descriptive fields.
		if svc.ServiceName != "" {
			line.ServiceName = svc.ServiceName
		}
		if svc.RequestType != "" {
			line.RequestType = svc.RequestType
		}
		line.DiagnosisCodes = diagnosisStrings(req)
		return line, nil
	}

	line := &Line{
		LineNumber:     n,
		ServiceName:    svc.ServiceName,
		RequestType:    svc.RequestType,
		DiagnosisCodes: diagnosisStrings(req),
		Status:         model.LineUnset,
	}
	l.lines[n] = line
	return line, nil
}

func diagnosisStrings(req *model.ProviderRequest) []string {
	if req == nil || len(req.DiagnosisCodes) == 0 {
		return nil
	}
	out := make([]string, 0, len(req.DiagnosisCodes))
	for _, dc := range req.DiagnosisCodes {
		if dc.ICD10 != "" {
			out = append(out, dc.ICD10)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func statusForOutcome(kind model.OutcomeKind) (model.LineStatus, error) {
	switch kind {
	case model.OutcomeModify:
		return model.LineModified, nil
	case model.OutcomeDeny:
		return model.LineDenied, nil
	case model.OutcomeRequestInfo:
		return model.LinePendingInfo, nil
	default:
		return "", fmt.Errorf("outcome %q is not a non-approval", kind)
	}
}

// applyAdjudication copies per-line reviewer detail onto the line when the
// decision carries one matching its number.
func applyAdjudication(line *Line, dec *model.Decision) {
	if dec.ApprovedQuantity > 0 {
		line.ApprovedQuantity = dec.ApprovedQuantity
	}
	if dec.ModificationType != "" {
		line.ModificationType = dec.ModificationType
	}
	for _, la := range dec.LineAdjudications {
		if la.LineNumber != line.LineNumber {
			continue
		}
		if la.Reason != "" {
			line.LastReason = la.Reason
		}
		if la.ApprovedQuantity > 0 {
			line.ApprovedQuantity = la.ApprovedQuantity
		}
		if la.ModificationType != "" {
			line.ModificationType = la.ModificationType
		}
		if len(la.RequestedDocuments) > 0 {
			line.RequestedDocuments = la.RequestedDocuments
		}
	}
}
