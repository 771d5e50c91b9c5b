// Package calendar holds the UTC instant and local-calendar helpers the ledger
// relies on: month windows, ISO weeks, quarters and month-end clamping.
package calendar

import "time"

// Instant normalizes t to UTC with millisecond precision.
func Instant(t time.Time) time.Time {
	return t.UTC().Truncate(time.Millisecond)
}

// Now returns the current instant.
func Now() time.Time {
	return Instant(time.Now())
}

// DaysIn returns the number of days in the given month.
func DaysIn(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// MonthRange returns the half-open window [start, end) covering the month.
func MonthRange(year int, month time.Month) (time.Time, time.Time) {
	start := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	return start, start.AddDate(0, 1, 0)
}

// ISOWeek returns the ISO 8601 year and week number of t.
func ISOWeek(t time.Time) (year, week int) {
	return t.UTC().ISOWeek()
}

// Quarter returns the calendar quarter (1..4) of t.
func Quarter(t time.Time) int {
	return (int(t.UTC().Month())-1)/3 + 1
}

// AddMonthsClamped moves t by n months and places it on day, clamped to the
// length of the target month. The time of day is kept.
func AddMonthsClamped(t time.Time, n, day int) time.Time {
	t = t.UTC()
	first := time.Date(t.Year(), t.Month(), 1, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), time.UTC)
	first = first.AddDate(0, n, 0)
	if last := DaysIn(first.Year(), first.Month()); day > last {
		day = last
	}
	return first.AddDate(0, 0, day-1)
}

// AddYearsClamped moves t by n years; Feb 29 becomes Feb 28 on non-leap years.
func AddYearsClamped(t time.Time, n int) time.Time {
	t = t.UTC()
	return AddMonthsClamped(t, 12*n, t.Day())
}

// ValidMonth reports whether month is in 1..12.
func ValidMonth(month int) bool {
	return month >= 1 && month <= 12
}
