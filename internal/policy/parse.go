package policy

import (
	"regexp"
	"strconv"
	"strings"
)

var (
	// dollarRe matches "$500", "$1,200.50", "$ 75".
	dollarRe = regexp.MustCompile(`\$\s*([0-9][0-9,]*(?:\.[0-9]{1,2})?)`)
	// bareAmountRe matches a standalone number when no dollar sign is present.
	bareAmountRe = regexp.MustCompile(`(?:^|\s)([0-9][0-9,]*(?:\.[0-9]{1,2})?)(?:\s|$|/)`)
	// thresholdRe captures the amount following an "over/above" style comparator.
	thresholdRe = regexp.MustCompile(`(?:over|above|more than|exceeding|exceeds|beyond)\s+\$?\s*([0-9][0-9,]*(?:\.[0-9]{1,2})?)`)
	// dayOfMonthRe captures "on the 1st", "on the 15th".
	dayOfMonthRe = regexp.MustCompile(`on the ([0-9]{1,2})(?:st|nd|rd|th)`)
)

var weekdays = []string{"monday", "tuesday", "wednesday", "thursday", "friday", "saturday", "sunday"}

// Parse classifies free text into exactly one typed Rule. Classification is
// a fixed sequence of pattern attempts; the first matching kind wins. Text
// matching no kind parses as unrecognized but still carries any amount and
// categories that could be extracted, so the evaluator can surface them.
func Parse(text string) Rule {
	lower := strings.ToLower(strings.TrimSpace(text))
	rule := Rule{Kind: KindUnrecognized, Text: text}
	if lower == "" {
		return rule
	}

	amount, hasAmount := parseAmount(lower)
	threshold, hasThreshold := parseThreshold(lower)
	period := parsePeriod(lower)
	cats := ExtractCategories(lower)

	switch {
	case isAmountCap(lower, hasAmount, period):
		rule.Kind = KindAmountCap
		rule.Amount = amount
		rule.Period = period
		rule.Categories = cats

	case isDenyCategory(lower, cats):
		rule.Kind = KindDenyCategory
		rule.Categories = cats
		if hasThreshold {
			rule.Amount = threshold
		}

	case isAllowOnly(lower, cats):
		rule.Kind = KindAllowOnly
		rule.Categories = cats

	case isAutoApprove(lower):
		rule.Kind = KindAutoApprove
		rule.Categories = cats
		if hasThreshold {
			rule.Amount = threshold
		}

	case isEscalation(lower, hasAmount):
		rule.Kind = KindEscalation
		if hasThreshold {
			rule.Amount = threshold
		} else {
			rule.Amount = amount
		}

	case isRecurring(lower, hasAmount):
		rule.Kind = KindRecurring
		rule.Amount = amount
		rule.Period = period
		if rule.Period == "" {
			rule.Period = PeriodMonth
		}
		rule.Categories = cats
		rule.DayOfMonth = parseDayOfMonth(lower)
		rule.Weekday = parseWeekday(lower)

	case isRequireReason(lower):
		rule.Kind = KindRequireReason
		if hasThreshold {
			rule.Amount = threshold
		} else {
			rule.Amount = amount
		}

	default:
		rule.Amount = amount
		rule.Categories = cats
	}

	return rule
}

// ParseAll parses every rule text, preserving order.
func ParseAll(texts []string) []Rule {
	rules := make([]Rule, 0, len(texts))
	for _, t := range texts {
		rules = append(rules, Parse(t))
	}
	return rules
}

func isAmountCap(text string, hasAmount bool, period string) bool {
	if !hasAmount || period == "" {
		return false
	}
	return containsAny(text, "max", "limit", "cap", "up to", "at most", "no more than")
}

func isDenyCategory(text string, cats []string) bool {
	if len(cats) == 0 {
		return false
	}
	return containsAny(text, "deny", "block", "never", "don't", "do not", "refuse", "reject", "not allowed", "forbidden", "no ")
}

func isAllowOnly(text string, cats []string) bool {
	if len(cats) == 0 {
		return false
	}
	return strings.Contains(text, "only")
}

func isAutoApprove(text string) bool {
	return containsAny(text, "auto-approve", "auto approve", "automatically approve", "always approve", "always allow", "pre-approved", "preapproved")
}

func isEscalation(text string, hasAmount bool) bool {
	if !hasAmount {
		return false
	}
	return containsAny(text, "approval", "ask me", "check with me", "escalate", "confirm with")
}

func isRecurring(text string, hasAmount bool) bool {
	if !hasAmount {
		return false
	}
	return containsAny(text, "allowance", "budget", "stipend")
}

func isRequireReason(text string) bool {
	if !containsAny(text, "reason", "justification", "explanation") {
		return false
	}
	return containsAny(text, "require", "must", "need", "provide", "give")
}

// parseAmount extracts the first money amount in minor units (cents).
// A dollar-prefixed amount wins; otherwise the first bare number is used.
func parseAmount(text string) (int64, bool) {
	if m := dollarRe.FindStringSubmatch(text); m != nil {
		return toCents(m[1])
	}
	if m := bareAmountRe.FindStringSubmatch(text); m != nil {
		return toCents(m[1])
	}
	return 0, false
}

// parseThreshold extracts an amount bound to an "over/above" comparator.
func parseThreshold(text string) (int64, bool) {
	if m := thresholdRe.FindStringSubmatch(text); m != nil {
		return toCents(m[1])
	}
	return 0, false
}

func parsePeriod(text string) string {
	switch {
	case containsAny(text, "per day", "a day", "daily", "/day", "each day", "every day"):
		return PeriodDay
	case containsAny(text, "per week", "a week", "weekly", "/week", "each week", "every week"):
		return PeriodWeek
	case containsAny(text, "per month", "a month", "monthly", "/month", "each month", "every month"):
		return PeriodMonth
	}
	return ""
}

func parseDayOfMonth(text string) int {
	m := dayOfMonthRe.FindStringSubmatch(text)
	if m == nil {
		return 0
	}
	day, err := strconv.Atoi(m[1])
	if err != nil || day < 1 || day > 31 {
		return 0
	}
	return day
}

func parseWeekday(text string) string {
	for _, wd := range weekdays {
		if strings.Contains(text, wd) {
			return wd
		}
	}
	return ""
}

// toCents converts a human-written amount ("1,200.50") to minor units.
func toCents(s string) (int64, bool) {
	s = strings.ReplaceAll(s, ",", "")
	whole, frac := s, ""
	if idx := strings.IndexByte(s, '.'); idx >= 0 {
		whole, frac = s[:idx], s[idx+1:]
	}
	dollars, err := strconv.ParseInt(whole, 10, 64)
	if err != nil {
		return 0, false
	}
	cents := dollars * 100
	switch len(frac) {
	case 0:
	case 1:
		n, err := strconv.ParseInt(frac, 10, 64)
		if err != nil {
			return 0, false
		}
		cents += n * 10
	default:
		n, err := strconv.ParseInt(frac[:2], 10, 64)
		if err != nil {
			return 0, false
		}
		cents += n
	}
	return cents, true
}

func containsAny(text string, subs ...string) bool {
	for _, s := range subs {
		if strings.Contains(text, s) {
			return true
		}
	}
	return false
}
