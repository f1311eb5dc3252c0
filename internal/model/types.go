package model

import "time"

// Outcome is the final verdict on a fund request.
type Outcome string

const (
	Approve  Outcome = "approve"
	Deny     Outcome = "deny"
	Escalate Outcome = "escalate"
	Errored  Outcome = "errored"
)

// Decision is the output of policy evaluation.
type Decision struct {
	Outcome     Outcome `json:"outcome"`
	Reason      string  `json:"reason"`
	MatchedRule string  `json:"matched_rule,omitempty"`
	Confidence  float64 `json:"confidence"`
}

// Request is a human-originated fund request entering the orchestrator.
type Request struct {
	ID         string `json:"id"`
	Identifier string `json:"identifier"`
	Amount     int64  `json:"amount"`
	Reason     string `json:"reason"`
}

// Intent is a proposed disbursement bound to a specific nonce and expiry,
// authorized by the agent's key. Constructed per request, never reused.
type Intent struct {
	Recipient     string    `json:"recipient"`
	Amount        int64     `json:"amount"`
	Memo          string    `json:"memo"`
	Nonce         uint64    `json:"nonce"`
	ExpiresAt     time.Time `json:"expires_at"`
	Authorization []byte    `json:"authorization"`
}

// Receipt confirms an executed disbursement.
type Receipt struct {
	Nonce     uint64    `json:"nonce"`
	Timestamp time.Time `json:"timestamp"`
}

// TransferRecord is one executed disbursement in the bounded vault history.
type TransferRecord struct {
	Nonce     uint64    `json:"nonce"`
	Recipient string    `json:"recipient"`
	Amount    int64     `json:"amount"`
	Memo      string    `json:"memo"`
	Timestamp time.Time `json:"timestamp"`
}

// Spending is a recipient's reset-aware spend snapshot used by policy rules.
// Week is approximated as Month/4 since the vault tracks day and month windows only.
type Spending struct {
	Day   int64 `json:"day"`
	Week  int64 `json:"week"`
	Month int64 `json:"month"`
}

// ForPeriod returns the spent amount for a named period ("day", "week",
// "month"). Unknown or empty periods fall back to the monthly total.
func (s Spending) ForPeriod(period string) int64 {
	switch period {
	case "day":
		return s.Day
	case "week":
		return s.Week
	default:
		return s.Month
	}
}
