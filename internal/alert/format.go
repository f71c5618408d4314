package alert

import (
	"encoding/json"
	"fmt"
)

// FormatPayload builds the webhook body for the given format.
func FormatPayload(format string, event Event) ([]byte, error) {
	switch format {
	case "slack":
		return formatSlack(event)
	case "pagerduty":
		return formatPagerDuty(event)
	default:
		return formatGeneric(event)
	}
}

func formatGeneric(event Event) ([]byte, error) {
	return json.Marshal(event)
}

func formatSlack(event Event) ([]byte, error) {
	payload := map[string]any{
		"blocks": []any{
			map[string]any{
				"type": "header",
				"text": map[string]any{
					"type": "plain_text",
					"text": fmt.Sprintf("redtape: %s", event.Type),
				},
			},
			map[string]any{
				"type": "section",
				"fields": []any{
					map[string]any{"type": "mrkdwn", "text": fmt.Sprintf("*Case:* %s", event.CaseID)},
					map[string]any{"type": "mrkdwn", "text": fmt.Sprintf("*Lines:* %s", event.Lines)},
					map[string]any{"type": "mrkdwn", "text": fmt.Sprintf("*Level:* %d", event.Level)},
					map[string]any{"type": "mrkdwn", "text": fmt.Sprintf("*Reason:* %s", event.Reason)},
				},
			},
		},
	}
	return json.Marshal(payload)
}

func formatPagerDuty(event Event) ([]byte, error) {
	severity := "info"
	switch event.Type {
	case EventFailed:
		severity = "critical"
	case EventForcedDenial:
		severity = "error"
	case EventDenied, EventAbandoned:
		severity = "warning"
	}

	payload := map[string]any{
		"event_action": "trigger",
		"payload": map[string]any{
			"summary":  fmt.Sprintf("redtape %s: %s", event.Type, event.CaseID),
			"severity": severity,
			"source":   "redtape",
			"custom_details": map[string]any{
				"case_id":   event.CaseID,
				"lines":     event.Lines,
				"level":     event.Level,
				"reason":    event.Reason,
				"audit_log": event.AuditLog,
			},
		},
	}
	return json.Marshal(payload)
}
