package utils

import "time"

// NormalizeUTC treats zero-offset timestamps uniformly: every comparison in
// the scheduler happens in UTC regardless of how the value was stored.
func NormalizeUTC(t time.Time) time.Time {
	return t.UTC()
}

// StartOfDayUTC truncates a timestamp to UTC midnight. Used for the daily
// P&L rollover.
func StartOfDayUTC(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}

// SameDayUTC reports whether two timestamps fall on the same UTC calendar day.
func SameDayUTC(a, b time.Time) bool {
	return StartOfDayUTC(a).Equal(StartOfDayUTC(b))
}
