package policy

import (
	"fmt"
	"strings"

	"github.com/toanps/agentvault/internal/model"
)

// Verdict precedence ranks. A higher rank always wins regardless of rule
// order: a deny can never be shadowed by an auto-approve.
const (
	rankNone = iota
	rankAutoApprove
	rankLimitExceeded
	rankRequireReason
	rankEscalate
	rankDeny
)

// Confidence levels reported on decisions.
const (
	confidenceDefault  = 0.6
	confidenceMatched  = 0.9
	confidenceApproved = 0.95
)

// minReasonLength is the shortest free-text reason accepted by require-reason
// rules.
const minReasonLength = 3

// Evaluate runs every rule against a request and combines the verdicts by
// strict precedence:
//
//	deny > escalate > require-reason-missing > limit-exceeded > auto-approve > default-approve
//
// amount is in minor units; reason is the requester's free text; spending is
// the recipient's reset-aware spend history. If no rule produces a verdict
// the request is approved with moderate confidence.
func Evaluate(rules []Rule, amount int64, reason string, spending model.Spending) model.Decision {
	best := model.Decision{
		Outcome:    model.Approve,
		Reason:     "no rule objected",
		Confidence: confidenceDefault,
	}
	bestRank := rankNone

	reqCats := ExtractCategories(reason)

	for _, rule := range rules {
		verdict, rank := applyRule(rule, amount, reason, reqCats, spending)
		if rank > bestRank {
			best = verdict
			bestRank = rank
		}
	}

	return best
}

// applyRule matches one rule against the request. rankNone means the rule
// produced no verdict.
func applyRule(rule Rule, amount int64, reason string, reqCats []string, spending model.Spending) (model.Decision, int) {
	switch rule.Kind {
	case KindAmountCap:
		if !intersects(rule.Categories, reqCats) {
			return model.Decision{}, rankNone
		}
		spent := spending.ForPeriod(rule.Period)
		if spent+amount > rule.Amount {
			return model.Decision{
				Outcome: model.Deny,
				Reason: fmt.Sprintf("would exceed %s cap of %s (spent %s this %s)",
					rule.Period, formatAmount(rule.Amount), formatAmount(spent), rule.Period),
				MatchedRule: rule.Text,
				Confidence:  confidenceMatched,
			}, rankLimitExceeded
		}

	case KindDenyCategory:
		if !categoriesOverlap(rule.Categories, reqCats) {
			return model.Decision{}, rankNone
		}
		if rule.Amount > 0 && amount <= rule.Amount {
			return model.Decision{}, rankNone
		}
		return model.Decision{
			Outcome:     model.Deny,
			Reason:      fmt.Sprintf("category blocked: %s", strings.Join(rule.Categories, ", ")),
			MatchedRule: rule.Text,
			Confidence:  confidenceMatched,
		}, rankDeny

	case KindAllowOnly:
		// An empty reason is not judged against this rule: without any text
		// there is no category signal to contradict the allowed set.
		if strings.TrimSpace(reason) == "" {
			return model.Decision{}, rankNone
		}
		if categoriesOverlap(rule.Categories, reqCats) {
			return model.Decision{}, rankNone
		}
		return model.Decision{
			Outcome:     model.Deny,
			Reason:      fmt.Sprintf("only these categories are allowed: %s", strings.Join(rule.Categories, ", ")),
			MatchedRule: rule.Text,
			Confidence:  confidenceMatched,
		}, rankDeny

	case KindAutoApprove:
		if !intersects(rule.Categories, reqCats) {
			return model.Decision{}, rankNone
		}
		return model.Decision{
			Outcome:     model.Approve,
			Reason:      "matched auto-approve rule",
			MatchedRule: rule.Text,
			Confidence:  confidenceApproved,
		}, rankAutoApprove

	case KindEscalation:
		if amount <= rule.Amount {
			return model.Decision{}, rankNone
		}
		return model.Decision{
			Outcome: model.Escalate,
			Reason: fmt.Sprintf("amount %s exceeds escalation threshold %s, principal approval required",
				formatAmount(amount), formatAmount(rule.Amount)),
			MatchedRule: rule.Text,
			Confidence:  confidenceMatched,
		}, rankEscalate

	case KindRecurring:
		// A within-budget match is an explicit approve, not merely no objection.
		if !intersects(rule.Categories, reqCats) {
			return model.Decision{}, rankNone
		}
		spent := spending.ForPeriod(rule.Period)
		if spent+amount > rule.Amount {
			return model.Decision{
				Outcome: model.Deny,
				Reason: fmt.Sprintf("recurring allowance of %s per %s exhausted (spent %s)",
					formatAmount(rule.Amount), rule.Period, formatAmount(spent)),
				MatchedRule: rule.Text,
				Confidence:  confidenceMatched,
			}, rankLimitExceeded
		}
		return model.Decision{
			Outcome:     model.Approve,
			Reason:      fmt.Sprintf("within recurring allowance of %s per %s", formatAmount(rule.Amount), rule.Period),
			MatchedRule: rule.Text,
			Confidence:  confidenceMatched,
		}, rankAutoApprove

	case KindRequireReason:
		if amount <= rule.Amount {
			return model.Decision{}, rankNone
		}
		if len(strings.TrimSpace(reason)) >= minReasonLength {
			return model.Decision{}, rankNone
		}
		return model.Decision{
			Outcome: model.Deny,
			Reason: fmt.Sprintf("requests over %s need a justification: please say what the funds are for",
				formatAmount(rule.Amount)),
			MatchedRule: rule.Text,
			Confidence:  confidenceMatched,
		}, rankRequireReason

	case KindUnrecognized:
		// Carries extracted hints but produces no verdict.
	}

	return model.Decision{}, rankNone
}

// categoriesOverlap is strict intersection: unlike intersects, an empty rule
// category set matches nothing. Deny and allow-only rules must name what they
// constrain.
func categoriesOverlap(ruleCats, reqCats []string) bool {
	if len(ruleCats) == 0 {
		return false
	}
	return intersects(ruleCats, reqCats)
}

// formatAmount renders minor units as dollars for decision reasons.
func formatAmount(cents int64) string {
	if cents%100 == 0 {
		return fmt.Sprintf("$%d", cents/100)
	}
	return fmt.Sprintf("$%d.%02d", cents/100, cents%100)
}
