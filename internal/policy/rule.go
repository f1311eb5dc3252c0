// Package policy turns human-authored free-text guardrails into typed rules
// and evaluates fund requests against them. Parsing is pure and deterministic:
// the same text always yields the same rule, and evaluation is exhaustive
// matching over the closed set of rule kinds, with no learned model and no
// runtime type inspection.
package policy

import (
	"sort"
	"strings"
)

// Kind identifies the structured interpretation of a free-text rule.
type Kind string

const (
	KindAmountCap     Kind = "amount_cap"
	KindDenyCategory  Kind = "deny_category"
	KindAllowOnly     Kind = "allow_only_category"
	KindAutoApprove   Kind = "auto_approve"
	KindEscalation    Kind = "escalation_threshold"
	KindRecurring     Kind = "recurring_allowance"
	KindRequireReason Kind = "require_reason"
	KindUnrecognized  Kind = "unrecognized"
)

// Periods a rule cap can roll over.
const (
	PeriodDay   = "day"
	PeriodWeek  = "week"
	PeriodMonth = "month"
)

// Rule is the immutable typed form of one free-text guardrail.
// Amount is in minor units (cents). Fields beyond Kind and Text are
// populated per kind; zero values mean "not set".
type Rule struct {
	Kind       Kind
	Text       string
	Amount     int64
	Period     string
	Categories []string
	DayOfMonth int
	Weekday    string
}

// categoryKeywords is the fixed dictionary for category extraction.
// A text matches a category if it contains any of that category's keywords.
var categoryKeywords = map[string][]string{
	"groceries":     {"grocery", "groceries", "food", "supermarket"},
	"household":     {"household", "cleaning", "furniture", "appliance"},
	"utilities":     {"utility", "utilities", "electricity", "electric bill", "water bill", "internet", "phone bill"},
	"education":     {"education", "school", "tuition", "textbook", "course"},
	"gaming":        {"gaming", "video game", "game purchase", "steam", "xbox", "playstation"},
	"entertainment": {"entertainment", "movie", "concert", "streaming", "netflix"},
	"medical":       {"medical", "medicine", "doctor", "pharmacy", "hospital", "dentist", "health"},
	"transport":     {"transport", "bus fare", "train", "taxi", "uber", "fuel", "gas station"},
	"salary":        {"salary", "wage", "payroll"},
	"rent":          {"rent", "lease", "housing"},
	"clothing":      {"clothing", "clothes", "shoes", "apparel"},
	"donation":      {"donation", "charity", "donate", "tithe"},
	"travel":        {"travel", "flight", "hotel", "vacation", "trip"},
}

// ExtractCategories returns the sorted set of dictionary categories whose
// keywords appear in text. Matching is case-insensitive substring containment.
func ExtractCategories(text string) []string {
	lower := strings.ToLower(text)
	var cats []string
	for cat, keywords := range categoryKeywords {
		for _, kw := range keywords {
			if strings.Contains(lower, kw) {
				cats = append(cats, cat)
				break
			}
		}
	}
	sort.Strings(cats)
	return cats
}

// intersects reports whether two category sets share an element.
// An empty rule set means "all categories" and intersects everything.
func intersects(ruleCats, reqCats []string) bool {
	if len(ruleCats) == 0 {
		return true
	}
	for _, rc := range ruleCats {
		for _, qc := range reqCats {
			if rc == qc {
				return true
			}
		}
	}
	return false
}
