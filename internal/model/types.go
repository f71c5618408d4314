package model

import (
	"errors"
	"fmt"
	"strings"
)

// RequestType classifies what the provider is asking the payer to authorize.
type RequestType string

const (
	RequestTreatment      RequestType = "treatment"
	RequestDiagnosticTest RequestType = "diagnostic_test"
	RequestLevelOfCare    RequestType = "level_of_care"
)

// ValidRequestType reports whether s names a known request type.
func ValidRequestType(s string) bool {
	switch RequestType(s) {
	case RequestTreatment, RequestDiagnosticTest, RequestLevelOfCare:
		return true
	}
	return false
}

// OutcomeKind is the canonical classification of a reviewer decision.
type OutcomeKind string

const (
	OutcomeApprove     OutcomeKind = "APPROVE"
	OutcomeModify      OutcomeKind = "MODIFY"
	OutcomeDeny        OutcomeKind = "DENY"
	OutcomeRequestInfo OutcomeKind = "REQUEST_INFO"
)

// ProviderAction is the requester's canonical next move after a decision.
type ProviderAction string

const (
	ActionContinue ProviderAction = "CONTINUE"
	ActionAppeal   ProviderAction = "APPEAL"
	ActionAbandon  ProviderAction = "ABANDON"
)

// LineStatus is the authorization state of one service line.
type LineStatus string

const (
	LineUnset       LineStatus = "unset"
	LineApproved    LineStatus = "approved"
	LineModified    LineStatus = "modified"
	LineDenied      LineStatus = "denied"
	LinePendingInfo LineStatus = "pending_info"
)

// StatusRank maps line statuses to a comparable integer. Terminal statuses
// rank above unset so a line can never move backward.
var StatusRank = map[LineStatus]int{
	LineUnset:       0,
	LinePendingInfo: 1,
	LineModified:    2,
	LineDenied:      2,
	LineApproved:    2,
}

// TreatDecision is the provider's final choice after a terminal denial.
type TreatDecision string

const (
	TreatedDespiteDenial TreatDecision = "treated_despite_denial"
	CareAbandoned        TreatDecision = "care_abandoned"
)

// DiagnosisCode is one coded diagnosis attached to a request.
type DiagnosisCode struct {
	ICD10       string `json:"icd10"`
	Description string `json:"description,omitempty"`
}

// ServiceRequest is one requested line item parsed from provider output.
// Which fields are populated depends on RequestType.
type ServiceRequest struct {
	LineNumber  int         `json:"line_number"`
	RequestType RequestType `json:"request_type"`
	ServiceName string      `json:"service_name"`

	// treatment
	ClinicalEvidence    string   `json:"clinical_evidence,omitempty"`
	GuidelineReferences []string `json:"guideline_references,omitempty"`

	// diagnostic_test
	TestJustification string `json:"test_justification,omitempty"`
	ExpectedFindings  string `json:"expected_findings,omitempty"`

	// level_of_care
	RequestedStatus    string `json:"requested_status,omitempty"`
	AlternativeStatus  string `json:"alternative_status,omitempty"`
	SeverityIndicators string `json:"severity_indicators,omitempty"`
}

// ProviderRequest is the parsed provider submission for one review round.
type ProviderRequest struct {
	RequestedServices []ServiceRequest `json:"requested_services"`
	DiagnosisCodes    []DiagnosisCode  `json:"diagnosis_codes,omitempty"`
	ClinicalSummary   string           `json:"clinical_summary,omitempty"`

	// Defaulted marks a request substituted after a parse failure.
	Defaulted bool `json:"defaulted,omitempty"`
}

// PrimaryType returns the request type of the first line, or the default.
func (pr *ProviderRequest) PrimaryType() RequestType {
	if len(pr.RequestedServices) == 0 {
		return RequestDiagnosticTest
	}
	return pr.RequestedServices[0].RequestType
}

// Validate enforces the per-type required fields of the case input
// contract. A request that parses but omits a required field is an
// upstream contract violation, not recoverable noise.
func (sr *ServiceRequest) Validate() error {
	if !ValidRequestType(string(sr.RequestType)) {
		return errors.New("requested_service missing required field 'request_type'")
	}
	switch sr.RequestType {
	case RequestDiagnosticTest:
		if sr.ServiceName == "" {
			return errors.New("requested_service missing required field 'service_name'")
		}
		if sr.TestJustification == "" {
			return errors.New("requested_service missing required field 'test_justification'")
		}
		if sr.ExpectedFindings == "" {
			return errors.New("requested_service missing required field 'expected_findings'")
		}
	case RequestTreatment:
		if sr.ServiceName == "" {
			return errors.New("requested_service missing required field 'service_name'")
		}
		if sr.ClinicalEvidence == "" {
			return errors.New("requested_service missing required field 'clinical_evidence'")
		}
		if len(sr.GuidelineReferences) == 0 {
			return errors.New("requested_service missing required field 'guideline_references'")
		}
	case RequestLevelOfCare:
		if sr.RequestedStatus == "" {
			return errors.New("requested_service missing required field 'requested_status'")
		}
		if sr.AlternativeStatus == "" {
			return errors.New("requested_service missing required field 'alternative_status'")
		}
		if sr.SeverityIndicators == "" {
			return errors.New("requested_service missing required field 'severity_indicators'")
		}
	}
	return nil
}

// Validate checks the whole submission. Defaulted requests are engine
// substitutes and are not held to the case input contract.
func (pr *ProviderRequest) Validate() error {
	if pr.Defaulted {
		return nil
	}
	if len(pr.RequestedServices) == 0 {
		return errors.New("provider_request missing required field 'requested_services'")
	}
	for _, sr := range pr.RequestedServices {
		if err := sr.Validate(); err != nil {
			return fmt.Errorf("line %d: %w", sr.LineNumber, err)
		}
	}
	return nil
}

// DefaultRequest returns the minimal substitute used when provider output
// cannot be parsed. A diagnostic probe with an empty service keeps the
// negotiation machine-checkable without inventing clinical content.
func DefaultRequest() *ProviderRequest {
	return &ProviderRequest{
		RequestedServices: []ServiceRequest{{
			LineNumber:  1,
			RequestType: RequestDiagnosticTest,
		}},
		Defaulted: true,
	}
}

// LineAdjudication is the reviewer's per-line ruling inside a Decision.
type LineAdjudication struct {
	LineNumber         int         `json:"line_number"`
	Status             OutcomeKind `json:"adjudication_status"`
	Reason             string      `json:"decision_reason,omitempty"`
	ApprovedQuantity   int         `json:"approved_quantity,omitempty"`
	ModificationType   string      `json:"modification_type,omitempty"`
	RequestedDocuments []string    `json:"requested_documents,omitempty"`
}

// Decision is the parsed reviewer ruling for one round.
type Decision struct {
	Kind               OutcomeKind        `json:"action"`
	Reason             string             `json:"decision_reason"`
	LineAdjudications  []LineAdjudication `json:"line_adjudications,omitempty"`
	ApprovedQuantity   int                `json:"approved_quantity,omitempty"`
	ModificationType   string             `json:"modification_type,omitempty"`
	AlternativeService string             `json:"alternative_service,omitempty"`
	RequestedDocuments []string           `json:"requested_documents,omitempty"`

	// Stamped by the engine, not parsed from oracle output.
	ReviewerRole string `json:"reviewer_type,omitempty"`
	Level        int    `json:"level"`

	// Defaulted marks a decision substituted after a parse failure.
	// Coerced marks a decision rewritten by a budget or terminal-level rule.
	Defaulted bool `json:"defaulted,omitempty"`
	Coerced   bool `json:"coerced,omitempty"`
}

// DefaultDecision returns the substitute used when reviewer output cannot
// be parsed.
func DefaultDecision(reason string) *Decision {
	return &Decision{
		Kind:      OutcomeDeny,
		Reason:    reason,
		Defaulted: true,
	}
}

// RequestFromMap builds a ProviderRequest from a raw decoded map with
// defensive coercion. Wrongly typed fields are dropped, not errors; the
// caller decides whether the result is usable.
func RequestFromMap(m map[string]any) *ProviderRequest {
	pr := &ProviderRequest{}
	if m == nil {
		return pr
	}

	// Tolerate both a bare payload and one nested under insurer_request.
	if inner, ok := m["insurer_request"].(map[string]any); ok {
		m = inner
	}

	if s, ok := m["clinical_summary"].(string); ok {
		pr.ClinicalSummary = s
	}

	if svcs, ok := m["requested_services"].([]any); ok {
		for i, raw := range svcs {
			sm, ok := raw.(map[string]any)
			if !ok {
				continue
			}
			sr := ServiceRequest{LineNumber: i + 1}
			if n := toInt(sm["line_number"]); n > 0 {
				sr.LineNumber = n
			}
			if t, ok := sm["request_type"].(string); ok && ValidRequestType(t) {
				sr.RequestType = RequestType(t)
			}
			if s, ok := sm["service_name"].(string); ok {
				sr.ServiceName = s
			}
			if s, ok := sm["clinical_evidence"].(string); ok {
				sr.ClinicalEvidence = s
			}
			sr.GuidelineReferences = toStrings(sm["guideline_references"])
			if s, ok := sm["test_justification"].(string); ok {
				sr.TestJustification = s
			}
			if s, ok := sm["expected_findings"].(string); ok {
				sr.ExpectedFindings = s
			}
			if s, ok := sm["requested_status"].(string); ok {
				sr.RequestedStatus = s
			}
			if s, ok := sm["alternative_status"].(string); ok {
				sr.AlternativeStatus = s
			}
			if s, ok := sm["severity_indicators"].(string); ok {
				sr.SeverityIndicators = s
			}
			pr.RequestedServices = append(pr.RequestedServices, sr)
		}
	}

	if codes, ok := m["diagnosis_codes"].([]any); ok {
		for _, raw := range codes {
			cm, ok := raw.(map[string]any)
			if !ok {
				continue
			}
			var dc DiagnosisCode
			if s, ok := cm["icd10"].(string); ok {
				dc.ICD10 = s
			}
			if s, ok := cm["description"].(string); ok {
				dc.Description = s
			}
			if dc.ICD10 != "" {
				pr.DiagnosisCodes = append(pr.DiagnosisCodes, dc)
			}
		}
	}

	return pr
}

// DecisionFromMap builds a Decision from a raw decoded map with defensive
// coercion. An unrecognized action collapses to the zero Kind; the caller
// substitutes the documented default.
func DecisionFromMap(m map[string]any) *Decision {
	d := &Decision{}
	if m == nil {
		return d
	}

	if a, ok := m["action"].(string); ok {
		if kind, ok := NormalizeOutcome(a); ok {
			d.Kind = kind
		}
	} else if a, ok := m["authorization_status"].(string); ok {
		if kind, ok := NormalizeOutcome(a); ok {
			d.Kind = kind
		}
	}
	if s, ok := m["decision_reason"].(string); ok {
		d.Reason = s
	} else if s, ok := m["denial_reason"].(string); ok {
		d.Reason = s
	}
	d.ApprovedQuantity = toInt(m["approved_quantity"])
	if s, ok := m["modification_type"].(string); ok {
		d.ModificationType = s
	}
	if s, ok := m["alternative_service"].(string); ok {
		d.AlternativeService = s
	}
	d.RequestedDocuments = toStrings(m["requested_documents"])

	if adjs, ok := m["line_adjudications"].([]any); ok {
		for i, raw := range adjs {
			am, ok := raw.(map[string]any)
			if !ok {
				continue
			}
			la := LineAdjudication{LineNumber: i + 1}
			if n := toInt(am["line_number"]); n > 0 {
				la.LineNumber = n
			}
			if s, ok := am["adjudication_status"].(string); ok {
				if kind, ok := NormalizeOutcome(s); ok {
					la.Status = kind
				}
			}
			if s, ok := am["decision_reason"].(string); ok {
				la.Reason = s
			}
			la.ApprovedQuantity = toInt(am["approved_quantity"])
			if s, ok := am["modification_type"].(string); ok {
				la.ModificationType = s
			}
			la.RequestedDocuments = toStrings(am["requested_documents"])
			d.LineAdjudications = append(d.LineAdjudications, la)
		}
	}

	return d
}

// NormalizeOutcome maps a raw wire spelling of a reviewer decision to its
// canonical kind. Payer responses use lowercase adjudication vocabulary
// (approved, modified, denied, pending_info); older templates use the
// canonical names directly.
func NormalizeOutcome(s string) (OutcomeKind, bool) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "APPROVE", "APPROVED":
		return OutcomeApprove, true
	case "MODIFY", "MODIFIED", "DOWNGRADE", "DOWNGRADED", "PARTIAL":
		return OutcomeModify, true
	case "DENY", "DENIED":
		return OutcomeDeny, true
	case "REQUEST_INFO", "PENDING_INFO", "PEND":
		return OutcomeRequestInfo, true
	}
	return "", false
}

// ActionFromString maps raw oracle text naming a provider action to the
// typed constant. Returns false when the text names nothing legal anywhere;
// legality per outcome is the resolver's job.
func ActionFromString(s string) (ProviderAction, bool) {
	switch ProviderAction(s) {
	case ActionContinue, ActionAppeal, ActionAbandon:
		return ProviderAction(s), true
	}
	return "", false
}

func toInt(v any) int {
	switch n := v.(type) {
	case int:
		return n
	case float64:
		return int(n)
	case int64:
		return int(n)
	default:
		return 0
	}
}

func toStrings(v any) []string {
	items, ok := v.([]any)
	if !ok {
		return nil
	}
	var out []string
	for _, it := range items {
		if s, ok := it.(string); ok {
			out = append(out, s)
		}
	}
	return out
}
