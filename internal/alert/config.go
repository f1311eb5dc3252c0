package alert

// Config defines a webhook notification destination.
type Config struct {
	URL     string            `yaml:"url"     json:"url"`
	Format  string            `yaml:"format"  json:"format"` // "generic", "slack", "pagerduty"
	Events  []string          `yaml:"events"  json:"events"` // ["deny", "escalate", "approve"]
	Headers map[string]string `yaml:"headers" json:"headers"`
}

// Event is the payload sent to webhook endpoints after a decision.
// Amount is in minor units.
type Event struct {
	Timestamp string `json:"timestamp"`
	RequestID string `json:"request_id"`
	Recipient string `json:"recipient"`
	Amount    int64  `json:"amount"`
	Outcome   string `json:"outcome"`
	Reason    string `json:"reason"`
	Nonce     uint64 `json:"nonce,omitempty"`
	RulesHash string `json:"rules_hash"`
}
