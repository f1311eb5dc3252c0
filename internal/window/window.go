// Package window computes rolling spend windows.
//
// Windows are fixed offsets from the last reset, not calendar-aligned: a reset
// at 23:59 and the next at 00:01 are two minutes apart. That is sufficient for
// a single-tenant liveness guard and keeps the arithmetic trivial; it is not a
// billing cycle. All window lengths live here so the periodization policy can
// change in one place.
package window

import "time"

const (
	// Day is the rolling daily window length.
	Day = 24 * time.Hour
	// Month is the rolling monthly window length, a fixed 30-day offset.
	Month = 30 * Day
)

// Elapsed reports whether the rolling window starting at lastReset has passed.
// A zero lastReset is treated as elapsed (counters were never armed).
func Elapsed(lastReset time.Time, length time.Duration, now time.Time) bool {
	if lastReset.IsZero() {
		return true
	}
	return now.Sub(lastReset) >= length
}

// NextReset returns the instant the window elapses.
func NextReset(lastReset time.Time, length time.Duration) time.Time {
	return lastReset.Add(length)
}

// Remaining returns the time left until the window elapses, zero if it
// already has.
func Remaining(lastReset time.Time, length time.Duration, now time.Time) time.Duration {
	if Elapsed(lastReset, length, now) {
		return 0
	}
	return lastReset.Add(length).Sub(now)
}
