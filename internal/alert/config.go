package alert

// Config defines a webhook alert destination.
type Config struct {
	URL     string            `yaml:"url"     json:"url"`
	Format  string            `yaml:"format"  json:"format"` // "generic", "slack", "pagerduty"
	Events  []string          `yaml:"events"  json:"events"` // ["failed", "denied", "forced_denial", "abandoned"]
	Headers map[string]string `yaml:"headers" json:"headers"`
}

// Event types fired by the watch service.
const (
	EventFailed       = "failed"
	EventDenied       = "denied"
	EventForcedDenial = "forced_denial"
	EventAbandoned    = "abandoned"
)

// Event is the payload sent to webhook endpoints.
type Event struct {
	Timestamp string `json:"timestamp"`
	CaseID    string `json:"case_id"`
	Type      string `json:"type"`
	Lines     string `json:"lines,omitempty"`
	Level     int    `json:"level"`
	Reason    string `json:"reason,omitempty"`
	AuditLog  string `json:"audit_log,omitempty"`
}
