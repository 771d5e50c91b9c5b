// Package recurrence computes occurrence dates for scheduled transactions
// and recurring bills.
package recurrence

import (
	"fmt"
	"time"

	"famledger/internal/calendar"
)

// Type is the recurrence frequency.
type Type string

const (
	None    Type = "none"
	Daily   Type = "daily"
	Weekly  Type = "weekly"
	Monthly Type = "monthly"
	Yearly  Type = "yearly"
)

// maxScan bounds the search in After so a malformed rule cannot spin forever.
const maxScan = 10000

// Rule describes how a schedule repeats. Weekday uses 0 = Monday ... 6 = Sunday.
type Rule struct {
	Type          Type       `json:"type" binding:"required,recurrence_type"`
	Interval      int        `json:"interval" binding:"omitempty,min=1"`
	Weekday       *int       `json:"weekday,omitempty" binding:"omitempty,min=0,max=6"`
	DayOfMonth    *int       `json:"day_of_month,omitempty" binding:"omitempty,min=1,max=31"`
	EndDate       *time.Time `json:"end_date,omitempty"`
	MaxExecutions *int       `json:"max_executions,omitempty" binding:"omitempty,min=1"`
}

// Validate checks the rule fields; a zero interval is treated as 1.
func (r Rule) Validate() error {
	switch r.Type {
	case None, Daily, Weekly, Monthly, Yearly:
	default:
		return fmt.Errorf("unknown recurrence type %q", r.Type)
	}
	if r.Interval < 0 {
		return fmt.Errorf("interval must be at least 1")
	}
	if r.Weekday != nil && (*r.Weekday < 0 || *r.Weekday > 6) {
		return fmt.Errorf("weekday must be within 0..6")
	}
	if r.DayOfMonth != nil && (*r.DayOfMonth < 1 || *r.DayOfMonth > 31) {
		return fmt.Errorf("day_of_month must be within 1..31")
	}
	if r.MaxExecutions != nil && *r.MaxExecutions < 1 {
		return fmt.Errorf("max_executions must be at least 1")
	}
	return nil
}

func (r Rule) interval() int {
	if r.Interval < 1 {
		return 1
	}
	return r.Interval
}

// NextDate returns occurrence k (k >= 1) of the rule anchored at base.
// It reports false when the rule has no such occurrence.
func (r Rule) NextDate(base time.Time, k int) (time.Time, bool) {
	if k < 1 {
		return time.Time{}, false
	}
	base = base.UTC()
	step := r.interval()

	switch r.Type {
	case None:
		return base, k == 1
	case Daily:
		return base.AddDate(0, 0, k*step), true
	case Weekly:
		target := base.Weekday()
		if r.Weekday != nil {
			target = time.Weekday((*r.Weekday + 1) % 7)
		}
		shift := (int(target) - int(base.Weekday()) + 7) % 7
		return base.AddDate(0, 0, shift+7*(k-1)*step), true
	case Monthly:
		day := base.Day()
		if r.DayOfMonth != nil {
			day = *r.DayOfMonth
		}
		// The first occurrence is the first matching day on or after base.
		offset := 0
		if calendar.AddMonthsClamped(base, 0, day).Before(base) {
			offset = 1
		}
		return calendar.AddMonthsClamped(base, offset+(k-1)*step, day), true
	case Yearly:
		return calendar.AddYearsClamped(base, (k-1)*step), true
	default:
		return time.Time{}, false
	}
}

// Within reports whether occurrence k at date falls inside the rule's limits.
func (r Rule) Within(date time.Time, k int) bool {
	if r.MaxExecutions != nil && k > *r.MaxExecutions {
		return false
	}
	if r.EndDate != nil && date.After(*r.EndDate) {
		return false
	}
	return true
}

// After returns the first occurrence strictly later than after, together with
// its index. It reports false when the rule is exhausted before that point.
func (r Rule) After(base, after time.Time, from int) (time.Time, int, bool) {
	if from < 1 {
		from = 1
	}
	for k := from; k < from+maxScan; k++ {
		d, ok := r.NextDate(base, k)
		if !ok || !r.Within(d, k) {
			return time.Time{}, 0, false
		}
		if d.After(after) {
			return d, k, true
		}
	}
	return time.Time{}, 0, false
}
