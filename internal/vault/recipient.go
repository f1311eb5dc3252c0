package vault

import (
	"time"

	"github.com/toanps/agentvault/internal/window"
)

// Recipient is one whitelisted payee. Recipients are deactivated, never
// deleted: spend history and audit references must stay resolvable.
// All amounts are in minor units.
type Recipient struct {
	ID               string    `json:"id"`
	Label            string    `json:"label"`
	Category         string    `json:"category"`
	DailyLimit       int64     `json:"daily_limit"`
	MonthlyLimit     int64     `json:"monthly_limit"`
	DailySpent       int64     `json:"daily_spent"`
	MonthlySpent     int64     `json:"monthly_spent"`
	DailyLastReset   time.Time `json:"daily_last_reset"`
	MonthlyLastReset time.Time `json:"monthly_last_reset"`
	Active           bool      `json:"active"`
	AddedAt          time.Time `json:"added_at"`
}

// effectiveDailySpent returns the daily counter as it stands at now,
// without mutating: an elapsed window reads as zero.
func (r *Recipient) effectiveDailySpent(now time.Time) int64 {
	if window.Elapsed(r.DailyLastReset, window.Day, now) {
		return 0
	}
	return r.DailySpent
}

// effectiveMonthlySpent is the monthly counterpart of effectiveDailySpent.
func (r *Recipient) effectiveMonthlySpent(now time.Time) int64 {
	if window.Elapsed(r.MonthlyLastReset, window.Month, now) {
		return 0
	}
	return r.MonthlySpent
}

// applySpend materializes elapsed window resets and adds amount to both
// counters. Only called once every check has passed.
func (r *Recipient) applySpend(amount int64, now time.Time) {
	if window.Elapsed(r.DailyLastReset, window.Day, now) {
		r.DailySpent = 0
		r.DailyLastReset = now
	}
	if window.Elapsed(r.MonthlyLastReset, window.Month, now) {
		r.MonthlySpent = 0
		r.MonthlyLastReset = now
	}
	r.DailySpent += amount
	r.MonthlySpent += amount
}

// RemainingDaily returns the reset-aware remaining daily allowance.
func (r *Recipient) RemainingDaily(now time.Time) int64 {
	return r.DailyLimit - r.effectiveDailySpent(now)
}

// RemainingMonthly returns the reset-aware remaining monthly allowance.
func (r *Recipient) RemainingMonthly(now time.Time) int64 {
	return r.MonthlyLimit - r.effectiveMonthlySpent(now)
}
