// Package prompt assembles oracle prompts for both sides of a utilization
// review negotiation. Content here is simulation input, not engine logic:
// the engine treats every reply as untrusted text regardless of how the
// question was phrased.
package prompt

import (
	"fmt"
	"strings"

	"github.com/ppiankov/redtape/internal/casefile"
	"github.com/ppiankov/redtape/internal/levels"
	"github.com/ppiankov/redtape/internal/model"
)

const providerSystemPrompt = `You are a PROVIDER agent (hospital/clinic) in Medicare Advantage.

OPERATIONAL CONTEXT - PRE-ADJUDICATION UTILIZATION REVIEW:
- Timing: BEFORE or DURING care delivery
- Record status: EVOLVING - you can still order tests, add documentation, gather evidence
- Insurer can PEND (request more info), and you can provide it in real time
- Your goal: build sufficient clinical justification to get approval
- You can RESPOND to REQUEST_INFO by ordering tests and adding clinical notes

FINANCIAL REALITY:
- Your practice operates on thin margins
- Each write-off directly impacts profitability
- High denial rates mean more staff for admin and higher overhead
- Cash flow depends on timely authorization and payment

DOCUMENTATION BURDEN:
- Minimal: quick notes, may miss key criteria, higher denial risk
- Moderate: standard documentation, typical approval rates
- Defensive: extra time documenting, lower denials but less patient time`

const payorSystemPrompt = `You are an INSURER agent (Medicare Advantage plan) managing costs using AI systems.

OPERATIONAL CONTEXT - PRE-ADJUDICATION UTILIZATION REVIEW:
- Timing: BEFORE care begins (prospective PA) or DURING care (concurrent review)
- Record status: EVOLVING - provider can still gather evidence, order tests, add documentation
- REQUEST_INFO allows: "We need X test result before deciding" or "Clarify Y clinical finding"
- Decision semantics: medical necessity for PROCEEDING with or CONTINUING care
- Strategic consideration: pend to gather evidence vs deny to prevent unnecessary care

FINANCIAL REALITY:
- Premium revenue fixed annually
- Regulatory requirements on medical spending ratios exist
- Profit comes from managing the margin between premiums and costs

DECISION TRADE-OFFS:
- Denying saves money IF the provider does not successfully appeal
- Excessive appeals create administrative burden
- High denial rates risk regulatory scrutiny and bad publicity`

const providerActionsGuide = `PROVIDER ACTION SPACE (choose one each turn):

1. CONTINUE - strengthen record at current review level without escalating
   When: after REQUEST_INFO (pend) to provide missing documentation
   Examples: order additional tests, request an alternative test if the initial was denied, add objective values (vitals, labs, sequential measurements), provide guideline citations
   Note: micro-moves like "rewrite note" or "add citation" are all CONTINUE variants, not separate actions

2. APPEAL - escalate to next review authority (changes who reviews)
   When: after DENY or MODIFY to trigger formal reconsideration
   Examples: Level 0 to 1 (plan medical director reconsideration), Level 1 to 2 (forward to Independent Review Entity per 42 CFR 422.592)
   Success rate: most appeals ultimately succeed, but each costs staff time

3. ABANDON - exit dispute, accept alternative outcome
   When: cost exceeds expected recovery, patient care cannot wait, or denial likely irreversible
   Examples: accept observation instead of inpatient, proceed with patient paying out-of-pocket, defer elective procedure`

const payorActionsGuide = `PAYOR ACTION SPACE (choose one each turn):

1. approved - authorize coverage/service at current stage
   Note: can include restrictions like "approved for 30 days only"

2. modified - partial approval or downgrade
   Examples: reduce approved quantity, approve observation instead of inpatient
   Result: provider may APPEAL or accept the modification

3. denied - adverse determination without authorization
   Note: must carry a specific denial reason; provider may APPEAL to the next level unless already at terminal review

4. pending_info - pend decision awaiting additional documentation
   Note: NOT available at terminal review (decision must rest on the submitted record)
   Provider response: provider should CONTINUE (not APPEAL) by providing requested info at the same level`

const responseMatrix = `RESPONSE MATRIX (what each payor decision allows you to do):
- approved TREATMENT or LEVEL_OF_CARE: authorization complete, no action needed
- approved DIAGNOSTIC_TEST: results are released to you; CONTINUE at the same level using them
- modified or denied: choose APPEAL (escalate) or ABANDON (accept the outcome)
- pending_info: choose CONTINUE (supply the documentation) or ABANDON (withdraw)`

// Builder assembles prompts against one level table and iteration budget.
// Posture strings come from the active payer profile and are appended to
// the respective system prompts.
type Builder struct {
	table        *levels.Table
	iterationCap int

	providerPosture string
	payorPosture    string
}

// NewBuilder returns a Builder for the given level table and iteration cap.
func NewBuilder(table *levels.Table, iterationCap int) *Builder {
	return &Builder{table: table, iterationCap: iterationCap}
}

// WithPosture attaches profile posture text to both system prompts.
func (b *Builder) WithPosture(provider, payor string) *Builder {
	b.providerPosture = provider
	b.payorPosture = payor
	return b
}

// ProviderSystem returns the provider system prompt.
func (b *Builder) ProviderSystem() string {
	if b.providerPosture == "" {
		return providerSystemPrompt
	}
	return providerSystemPrompt + "\n\nPOSTURE:\n" + b.providerPosture
}

// PayorSystem returns the payor system prompt.
func (b *Builder) PayorSystem() string {
	if b.payorPosture == "" {
		return payorSystemPrompt
	}
	return payorSystemPrompt + "\n\nPOSTURE:\n" + b.payorPosture
}

var stageInstructions = map[int]string{
	0: "ROUND 1 - INITIAL DETERMINATION: Submit your best clinical justification based on initial presentation and any available objective data.",
	1: "ROUND 2 - INTERNAL APPEAL: You are appealing a prior adverse decision. Address the specific denial reason explicitly and provide additional clinical evidence that addresses the payor's concerns.",
	2: "ROUND 3 - FINAL INDEPENDENT REVIEW: This is your final opportunity to present evidence. Ensure all objective values (labs, vitals, imaging) are clearly documented with specific numbers. Maximize clarity and completeness.",
}

// ProviderRequest builds the user prompt asking the provider oracle for
// its next submission.
func (b *Builder) ProviderRequest(c *casefile.Case, neg *model.Negotiation, iteration int) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "ITERATION %d/%d\n\n", iteration, b.iterationCap)
	sb.WriteString(stageInstructions[neg.Level])
	sb.WriteString("\n\n")

	if len(neg.History) > 0 {
		sb.WriteString("PRIOR ITERATIONS:\n")
		for i, round := range neg.History {
			fmt.Fprintf(&sb, "\nIteration %d (level %d):\n", i+1, round.Level)
			if round.Request != nil {
				fmt.Fprintf(&sb, "  Your request: %s\n", round.Request.PrimaryType())
			}
			if round.Decision != nil {
				fmt.Fprintf(&sb, "  Payor decision: %s\n", round.Decision.Kind)
				if round.Decision.Reason != "" {
					fmt.Fprintf(&sb, "  Decision reason: %s\n", round.Decision.Reason)
				}
			}
			if round.Action != "" {
				fmt.Fprintf(&sb, "  Your action: %s\n", round.Action)
			}
		}
		sb.WriteString("\n")
	}

	if len(neg.Evidence) > 0 {
		sb.WriteString("TEST RESULTS RECEIVED:\n")
		for _, f := range neg.Evidence {
			fmt.Fprintf(&sb, "  - %s: %s\n", f.Test, f.Result)
		}
		fmt.Fprintf(&sb, "\nIMPORTANT CONSTRAINT: The tests above have been APPROVED and COMPLETED. DO NOT request them again:\n- %s\nUse these results to support your clinical decision.\n\n",
			strings.Join(neg.CompletedTests(), ", "))
	}

	fmt.Fprintf(&sb, "PATIENT INFORMATION:\n%s\n\n", c.PatientJSON())

	sb.WriteString(`CLINICAL DOCUMENTATION:
Update your clinical notes each iteration as you narrow your differential diagnosis. Notes should:
- Integrate new test results and clinical findings
- Document evolving diagnostic reasoning
- Support medical necessity for the requested service
- Follow standard H&P format (concise, pertinent findings only)

`)

	sb.WriteString(`RESPONSE FORMAT (JSON):
{
    "internal_rationale": {
        "reasoning": "<your diagnostic reasoning>",
        "differential_diagnoses": ["<diagnosis 1>", "<diagnosis 2>"]
    },
    "insurer_request": {
        "diagnosis_codes": [
            {"icd10": "<ICD-10 code>", "description": "<diagnosis description>"}
        ],
        "clinical_summary": "<narrative H&P-style documentation integrating all findings to date>",
        "requested_services": [
            {
                "line_number": <1-based line number>,
                "request_type": "diagnostic_test" or "treatment" or "level_of_care",
                "service_name": "<specific test or treatment>",

                // if diagnostic_test:
                "test_justification": "<why this test will establish diagnosis>",
                "expected_findings": "<what results would confirm or rule out diagnosis>",

                // if treatment:
                "clinical_evidence": "<objective data supporting request>",
                "guideline_references": ["<guideline 1>", "<guideline 2>"],

                // if level_of_care:
                "requested_status": "<inpatient|observation|hospital_infusion|home_infusion|ICU|floor|SNF>",
                "alternative_status": "<lower level alternative>",
                "severity_indicators": "<objective clinical indicators: vital signs, lab values, acuity scores>"
            }
        ]
    }
}`)

	return sb.String()
}

// PayorReview builds the user prompt asking the reviewer oracle for a
// decision on the submitted request.
func (b *Builder) PayorReview(c *casefile.Case, req *model.ProviderRequest, neg *model.Negotiation, iteration int) string {
	lvl, err := b.table.At(neg.Level)
	if err != nil {
		lvl, _ = b.table.At(levels.MaxLevel)
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "ITERATION %d/%d\n\n", iteration, b.iterationCap)

	fmt.Fprintf(&sb, "LEVEL %d - %s (%s):\nReviewer: %s\nMode: %s\nDecision options: %s\n%s\n\n",
		lvl.Index, strings.ToUpper(lvl.Name), lvl.RoleLabel, lvl.RoleLabel,
		lvl.ReviewStyle, decisionOptions(lvl.CanPend), lvl.Description)

	if lvl.Terminal {
		sb.WriteString("CRITICAL: This is a TERMINAL review level. You MUST issue a final approved, modified or denied decision.\npending_info is NOT available at this level.\n\n")
	}
	if lvl.Independent {
		sb.WriteString("NOTE: As an independent external reviewer, you do NOT have access to plan-internal notes.\nYour decision must be based solely on the submitted clinical record.\n\n")
	}
	if lvl.CanPend {
		fmt.Fprintf(&sb, "Pends used at this level: %d of %d.\n\n", neg.PendCount(lvl.Index), lvl.PendBudget)
	}

	sb.WriteString("PROVIDER REQUEST:\n")
	if len(req.DiagnosisCodes) > 0 {
		sb.WriteString("Diagnosis Codes:\n")
		for _, dc := range req.DiagnosisCodes {
			fmt.Fprintf(&sb, "  - %s: %s\n", dc.ICD10, dc.Description)
		}
	}
	for _, sr := range req.RequestedServices {
		sb.WriteString(serviceSummary(sr))
	}
	if req.ClinicalSummary != "" {
		fmt.Fprintf(&sb, "\nClinical Notes:\n%s\n", req.ClinicalSummary)
	} else {
		sb.WriteString("\nClinical Notes:\nno clinical notes provided\n")
	}

	fmt.Fprintf(&sb, "\nPATIENT CONTEXT:\n%s\n\n", c.PatientJSON())

	sb.WriteString("TASK: Review the pre-adjudication utilization review request and issue a coverage decision based on medical necessity and coverage criteria.\n\n")
	sb.WriteString(payorActionsGuide)
	sb.WriteString("\n\n")

	fmt.Fprintf(&sb, `RESPONSE FORMAT (JSON):
{
    "action": %s,
    "line_adjudications": [
        {
            "line_number": <1-based index into requested_services>,
            "adjudication_status": %s,
            "decision_reason": "<reason for this line's decision>",
            "approved_quantity": <if modified: approved quantity>,
            "modification_type": "<if modified: quantity_reduction or code_downgrade>"%s
        }
    ],
    "decision_reason": "<overall reason for decision>",
    "downgrade_alternative": "<if modified: describe approved alternative>",
    "criteria_used": "<guidelines or policies applied>",
    "reviewer_type": %q,
    "level": %d
}`,
		quotedOptions(lvl.CanPend), quotedOptions(lvl.CanPend),
		requestedDocsLine(lvl.CanPend), lvl.RoleLabel, lvl.Index)

	return sb.String()
}

// ResolveAction builds the prompt asking the provider oracle to pick its
// next move after an adverse or pending decision.
func (b *Builder) ResolveAction(dec *model.Decision, requestType model.RequestType, level int, legal []model.ProviderAction) string {
	names := make([]string, len(legal))
	for i, a := range legal {
		names[i] = string(a)
	}

	reason := ""
	if dec.Reason != "" {
		reason = fmt.Sprintf("Denial/Pend Reason: %s\n", dec.Reason)
	}

	return fmt.Sprintf(`PROVIDER ACTION DECISION

You just received a payor decision. You must choose your next action.

PAYOR DECISION: %s
Request Type: %s
Current Review Level: %d
%s
%s

%s

IMPORTANT: Based on the payor decision and request type above, the ONLY valid actions are: %s.

TASK: Choose your action and explain your reasoning.

RESPONSE FORMAT (JSON):
{
    "provider_action": %s,
    "reasoning": "<brief explanation of why you chose this action>"
}

Return ONLY valid JSON.`,
		dec.Kind, requestType, level, reason,
		responseMatrix, providerActionsGuide,
		strings.Join(names, ", "), quotedList(names))
}

// TreatDecision builds the prompt asking the provider whether to deliver
// care after authorization was finally refused.
func (b *Builder) TreatDecision(outcomeSummary string) string {
	return fmt.Sprintf(`TREATMENT DECISION AFTER FINAL DENIAL

Authorization was not obtained: %s

You must now decide whether to treat the patient anyway.

- treat_anyway: deliver the service without authorization. You risk nonpayment
  (out-of-pocket billing, charity care, or hoping for retroactive approval).
- no_treat: do not deliver the service. You risk patient harm and potential
  liability for abandonment of care.

TASK: Weigh clinical need, financial risk, and legal obligations.

RESPONSE FORMAT (JSON):
{
    "decision": "treat_anyway" or "no_treat",
    "rationale": "<explain your reasoning>"
}

Return ONLY valid JSON.`, outcomeSummary)
}

// OversightEdit builds the prompt for the human-equivalent review pass
// over an AI copilot draft.
func (b *Builder) OversightEdit(role, draft, evidenceSummary string) string {
	return fmt.Sprintf(`You are the responsible %s reviewer checking an AI-generated draft before it is submitted.

Check key facts against the evidence, fix contradictions, and add missing critical items. Keep the draft's JSON structure intact. If the draft is acceptable, return it unchanged.

EVIDENCE:
%s

DRAFT TO REVIEW:
%s

Return ONLY the final JSON, no commentary.`, role, evidenceSummary, draft)
}

func serviceSummary(sr model.ServiceRequest) string {
	switch sr.RequestType {
	case model.RequestDiagnosticTest:
		return fmt.Sprintf(`
DIAGNOSTIC TEST REVIEW REQUEST (line %d):
Test: %s
Justification: %s
Expected Findings: %s
`, sr.LineNumber, sr.ServiceName, sr.TestJustification, sr.ExpectedFindings)
	case model.RequestLevelOfCare:
		return fmt.Sprintf(`
LEVEL OF CARE REVIEW REQUEST (line %d):
Requested Status: %s
Alternative Status: %s
Severity Indicators: %s
`, sr.LineNumber, sr.RequestedStatus, sr.AlternativeStatus, sr.SeverityIndicators)
	default:
		return fmt.Sprintf(`
TREATMENT REVIEW REQUEST (line %d):
Treatment: %s
Clinical Evidence: %s
Guidelines: %s
`, sr.LineNumber, sr.ServiceName, sr.ClinicalEvidence, strings.Join(sr.GuidelineReferences, ", "))
	}
}

func decisionOptions(canPend bool) string {
	if canPend {
		return "approved | modified | denied | pending_info"
	}
	return "approved | modified | denied"
}

func quotedOptions(canPend bool) string {
	return quotedList(strings.Split(decisionOptions(canPend), " | "))
}

func quotedList(items []string) string {
	quoted := make([]string, len(items))
	for i, s := range items {
		quoted[i] = fmt.Sprintf("%q", s)
	}
	return strings.Join(quoted, " or ")
}

func requestedDocsLine(canPend bool) string {
	if !canPend {
		return ""
	}
	return `,
            "requested_documents": ["<doc1>", "<doc2>"]  // if pending_info`
}
