package audit

import (
	"strings"
	"testing"

	"github.com/ppiankov/redtape/internal/model"
)

func requestEntry(iter, level int, requestType, service string) Entry {
	return Entry{
		CaseID: "case-replay",
		Phase:  PhasePriorAuth,
		Actor:  ActorProvider,
		Action: ActionSubmitRequest,
		Parsed: map[string]any{
			"requested_services": []any{
				map[string]any{
					"line_number":  float64(1),
					"request_type": requestType,
					"service_name": service,
				},
			},
		},
		Meta: StepMeta{Iteration: iter, Level: level},
	}
}

func decisionEntry(iter, level int, kind, reason string, pendCount int) Entry {
	return Entry{
		CaseID: "case-replay",
		Phase:  PhasePriorAuth,
		Actor:  ActorPayor,
		Action: ActionReturnDecision,
		Parsed: map[string]any{"action": kind, "decision_reason": reason},
		Meta:   StepMeta{Iteration: iter, Level: level, PendCount: pendCount},
	}
}

func actionEntry(iter, level int, action string) Entry {
	return Entry{
		CaseID: "case-replay",
		Phase:  PhasePriorAuth,
		Actor:  ActorProvider,
		Action: ActionResolveAction,
		Parsed: map[string]any{"action": action},
		Meta:   StepMeta{Iteration: iter, Level: level},
	}
}

func TestReplayApprovalFlow(t *testing.T) {
	entries := []Entry{
		requestEntry(1, 0, "treatment", "MRI lumbar spine"),
		decisionEntry(1, 0, "APPROVE", "meets criteria", 0),
	}

	r, err := Replay(entries, nil)
	if err != nil {
		t.Fatalf("Replay: %v", err)
	}

	if !r.Ledger.AllTerminal() {
		t.Error("ledger not terminal after approval")
	}
	line, _ := r.Ledger.Line(1)
	if line.Status != model.LineApproved {
		t.Errorf("status = %q", line.Status)
	}
	s := r.Friction.Snapshot()
	if s.ProviderActions != 1 || s.PayorActions != 1 || s.EscalationDepth != 0 {
		t.Errorf("friction = %+v", s)
	}
}

func TestReplayEscalationFlow(t *testing.T) {
	entries := []Entry{
		requestEntry(1, 0, "treatment", "PT"),
		decisionEntry(1, 0, "DENY", "insufficient evidence", 0),
		actionEntry(1, 0, "APPEAL"),
		requestEntry(2, 1, "treatment", "PT"),
		decisionEntry(2, 1, "DENY", "still insufficient", 0),
		actionEntry(2, 1, "ABANDON"),
	}

	r, err := Replay(entries, nil)
	if err != nil {
		t.Fatalf("Replay: %v", err)
	}

	line, _ := r.Ledger.Line(1)
	if line.Status != model.LineDenied || !line.Terminal {
		t.Errorf("line = %+v", line)
	}
	s := r.Friction.Snapshot()
	if s.ProviderActions != 2 || s.PayorActions != 2 || s.EscalationDepth != 1 {
		t.Errorf("friction = %+v", s)
	}
	if len(r.LevelsVisited) != 2 || r.LevelsVisited[1] != 1 {
		t.Errorf("levels visited = %v", r.LevelsVisited)
	}
}

func TestReplayPendAccounting(t *testing.T) {
	entries := []Entry{
		requestEntry(1, 0, "treatment", "PT"),
		decisionEntry(1, 0, "REQUEST_INFO", "need operative note", 0),
		actionEntry(1, 0, "CONTINUE"),
		requestEntry(2, 0, "treatment", "PT"),
		decisionEntry(2, 0, "REQUEST_INFO", "need imaging", 1),
		actionEntry(2, 0, "CONTINUE"),
	}

	r, err := Replay(entries, nil)
	if err != nil {
		t.Fatalf("Replay: %v", err)
	}
	if r.PendCounts[0] != 2 {
		t.Errorf("pend count = %d, want 2", r.PendCounts[0])
	}
	if r.Ledger.AllTerminal() {
		t.Error("pended line should remain open")
	}
}

func TestReplayForceDeny(t *testing.T) {
	entries := []Entry{
		requestEntry(1, 1, "treatment", "PT"),
		decisionEntry(1, 1, "REQUEST_INFO", "need more", 0),
		actionEntry(1, 1, "CONTINUE"),
		{
			CaseID: "case-replay",
			Phase:  PhasePriorAuth,
			Actor:  ActorEngine,
			Action: ActionForceDeny,
			Parsed: map[string]any{"reason": "max iterations reached"},
			Meta:   StepMeta{Iteration: 3, Level: 1},
		},
	}

	r, err := Replay(entries, nil)
	if err != nil {
		t.Fatalf("Replay: %v", err)
	}
	line, _ := r.Ledger.Line(1)
	if line.Status != model.LineDenied || line.LastReason != "max iterations reached" {
		t.Errorf("line = %+v", line)
	}
	if !r.Ledger.AllTerminal() {
		t.Error("force deny left lines open")
	}
}

func TestReplayTreatDecision(t *testing.T) {
	entries := []Entry{
		requestEntry(1, 0, "treatment", "PT"),
		decisionEntry(1, 0, "DENY", "no", 0),
		actionEntry(1, 0, "ABANDON"),
		{
			CaseID: "case-replay",
			Phase:  PhaseDisposition,
			Actor:  ActorProvider,
			Action: ActionTreatDecision,
			Parsed: map[string]any{"decision": "treated_despite_denial"},
			Meta:   StepMeta{Iteration: 1, Level: 0},
		},
	}
	r, err := Replay(entries, nil)
	if err != nil {
		t.Fatalf("Replay: %v", err)
	}
	if r.TreatAnyway != model.TreatedDespiteDenial {
		t.Errorf("treat anyway = %q", r.TreatAnyway)
	}
}

func TestReplayRejectsOrphanDecision(t *testing.T) {
	entries := []Entry{decisionEntry(1, 0, "DENY", "no", 0)}
	if _, err := Replay(entries, nil); err == nil {
		t.Error("decision without request accepted")
	}
}

func TestReplayTerminalLevelSeals(t *testing.T) {
	entries := []Entry{
		requestEntry(1, 2, "treatment", "PT"),
		decisionEntry(1, 2, "DENY", "record does not support", 0),
	}
	r, err := Replay(entries, nil)
	if err != nil {
		t.Fatalf("Replay: %v", err)
	}
	if !r.Ledger.AllTerminal() {
		t.Error("terminal-level decision left lines open")
	}
}

func TestCheckInvariantsCleanTrail(t *testing.T) {
	entries := []Entry{
		requestEntry(1, 0, "treatment", "PT"),
		decisionEntry(1, 0, "DENY", "no", 0),
		actionEntry(1, 0, "APPEAL"),
		requestEntry(2, 1, "treatment", "PT"),
		decisionEntry(2, 1, "APPROVE", "granted", 0),
	}
	if v := CheckInvariants(entries, nil); len(v) != 0 {
		t.Errorf("violations on a clean trail: %v", v)
	}
}

func TestCheckInvariantsFlagsViolations(t *testing.T) {
	tests := []struct {
		name    string
		entries []Entry
		substr  string
	}{
		{
			"level regression",
			[]Entry{
				requestEntry(1, 1, "treatment", "PT"),
				requestEntry(2, 0, "treatment", "PT"),
			},
			"regressed",
		},
		{
			"level jump",
			[]Entry{
				requestEntry(1, 0, "treatment", "PT"),
				requestEntry(2, 2, "treatment", "PT"),
			},
			"jumped",
		},
		{
			"pend over budget",
			[]Entry{decisionEntry(1, 0, "REQUEST_INFO", "more", 3)},
			"exceeds budget",
		},
		{
			"request info at terminal level",
			[]Entry{
				requestEntry(1, 2, "treatment", "PT"),
				decisionEntry(1, 2, "REQUEST_INFO", "more", 0),
			},
			"REQUEST_INFO committed at terminal level",
		},
		{
			"action solicited at terminal level",
			[]Entry{actionEntry(1, 2, "ABANDON")},
			"solicited at terminal level",
		},
	}

	for _, tt := range tests {
		v := CheckInvariants(tt.entries, nil)
		found := false
		for _, msg := range v {
			if strings.Contains(msg, tt.substr) {
				found = true
			}
		}
		if !found {
			t.Errorf("%s: violations = %v, want one containing %q", tt.name, v, tt.substr)
		}
	}
}
