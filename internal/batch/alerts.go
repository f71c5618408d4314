package batch

import (
	"strings"
	"time"

	"github.com/ppiankov/redtape/internal/alert"
	"github.com/ppiankov/redtape/internal/model"
)

// outcomeEvents classifies a finished case into alert events. Engine
// failures report as "failed"; completed negotiations report "denied",
// "forced_denial", or "abandoned" as the record warrants. A forced
// denial is reported once, as forced_denial, not again as denied.
func outcomeEvents(out *Outcome) []alert.Event {
	base := alert.Event{
		Timestamp: time.Now().UTC().Format("2006-01-02T15:04:05.000Z"),
		CaseID:    out.CaseID,
		AuditLog:  out.AuditLog,
	}

	if out.Status == OutcomeFailed {
		ev := base
		ev.Type = alert.EventFailed
		ev.Reason = out.Error
		return []alert.Event{ev}
	}

	res := out.Result
	if res == nil {
		return nil
	}

	statuses := make([]string, 0, len(res.Lines))
	denied := false
	reason := ""
	for _, ln := range res.Lines {
		statuses = append(statuses, string(ln.Status))
		if ln.Status == model.LineDenied {
			denied = true
			if reason == "" {
				reason = ln.LastReason
			}
		}
	}
	base.Lines = strings.Join(statuses, "/")
	if n := len(res.LevelsVisited); n > 0 {
		base.Level = res.LevelsVisited[n-1]
	}
	base.Reason = reason

	var events []alert.Event
	switch {
	case res.ForcedDenial:
		ev := base
		ev.Type = alert.EventForcedDenial
		events = append(events, ev)
	case denied:
		ev := base
		ev.Type = alert.EventDenied
		events = append(events, ev)
	}
	if res.TreatAnyway == model.CareAbandoned {
		ev := base
		ev.Type = alert.EventAbandoned
		events = append(events, ev)
	}
	return events
}
