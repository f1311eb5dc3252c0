package policy

import (
	"fmt"

	"github.com/toanps/agentvault/internal/model"
)

// EvaluatePool runs vault-wide rules against a request before any
// per-recipient rule is consulted. Only two rule kinds carry meaning at pool
// level: an amount cap checks the pool's rolling daily spend, and an
// escalation threshold asks for principal approval on large amounts. Other
// kinds are recipient-scoped and are skipped here.
func EvaluatePool(rules []Rule, amount, poolSpent int64) model.Decision {
	best := model.Decision{
		Outcome:    model.Approve,
		Reason:     "no pool rule objected",
		Confidence: confidenceDefault,
	}
	bestRank := rankNone

	for _, rule := range rules {
		switch rule.Kind {
		case KindAmountCap:
			if poolSpent+amount > rule.Amount && rankLimitExceeded > bestRank {
				best = model.Decision{
					Outcome: model.Deny,
					Reason: fmt.Sprintf("pool daily spend %s plus %s exceeds pool cap %s",
						formatAmount(poolSpent), formatAmount(amount), formatAmount(rule.Amount)),
					MatchedRule: rule.Text,
					Confidence:  confidenceMatched,
				}
				bestRank = rankLimitExceeded
			}
		case KindEscalation:
			if amount > rule.Amount && rankEscalate > bestRank {
				best = model.Decision{
					Outcome: model.Escalate,
					Reason: fmt.Sprintf("amount %s is above the vault-wide threshold %s, principal approval required",
						formatAmount(amount), formatAmount(rule.Amount)),
					MatchedRule: rule.Text,
					Confidence:  confidenceMatched,
				}
				bestRank = rankEscalate
			}
		}
	}

	return best
}
