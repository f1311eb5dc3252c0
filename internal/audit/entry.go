package audit

// Entry is one line in the hash-chained JSONL audit log: a single fund
// request and what became of it. All fields are scalars (no map[string]any)
// to guarantee deterministic json.Marshal field order for reproducible
// hashing. Amount is in minor units.
type Entry struct {
	Timestamp   string `json:"ts"`
	RequestID   string `json:"request_id"`
	Recipient   string `json:"recipient"`
	Amount      int64  `json:"amount"`
	Reason      string `json:"reason"`
	Outcome     string `json:"outcome"`
	Detail      string `json:"detail"`
	MatchedRule string `json:"matched_rule,omitempty"`
	Nonce       uint64 `json:"nonce,omitempty"`
	RulesHash   string `json:"rules_hash"`
	PrevHash    string `json:"prev_hash"`
}
