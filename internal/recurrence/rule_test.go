package recurrence

import (
	"testing"
	"time"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func intPtr(v int) *int { return &v }

func TestNextDateMonthlyClamp(t *testing.T) {
	rule := Rule{Type: Monthly, Interval: 1, DayOfMonth: intPtr(31)}
	start := day(2024, 1, 31)
	want := []time.Time{day(2024, 1, 31), day(2024, 2, 29), day(2024, 3, 31), day(2024, 4, 30), day(2024, 5, 31)}

	for i, w := range want {
		got, ok := rule.NextDate(start, i+1)
		if !ok {
			t.Fatalf("occurrence %d: expected a date", i+1)
		}
		if !got.Equal(w) {
			t.Errorf("occurrence %d: expected %s, got %s", i+1, w.Format(time.DateOnly), got.Format(time.DateOnly))
		}
	}
}

func TestNextDate(t *testing.T) {
	tests := []struct {
		name string
		rule Rule
		base time.Time
		k    int
		want time.Time
	}{
		{"daily_first", Rule{Type: Daily, Interval: 1}, day(2024, 3, 1), 1, day(2024, 3, 2)},
		{"daily_interval", Rule{Type: Daily, Interval: 3}, day(2024, 3, 1), 2, day(2024, 3, 7)},
		// 2024-03-06 is a Wednesday; weekday 4 is Friday.
		{"weekly_moves_forward", Rule{Type: Weekly, Interval: 1, Weekday: intPtr(4)}, day(2024, 3, 6), 1, day(2024, 3, 8)},
		{"weekly_same_day", Rule{Type: Weekly, Interval: 1, Weekday: intPtr(2)}, day(2024, 3, 6), 1, day(2024, 3, 6)},
		{"weekly_sunday", Rule{Type: Weekly, Interval: 1, Weekday: intPtr(6)}, day(2024, 3, 6), 1, day(2024, 3, 10)},
		{"biweekly_third", Rule{Type: Weekly, Interval: 2, Weekday: intPtr(0)}, day(2024, 3, 6), 3, day(2024, 4, 8)},
		{"weekly_default_weekday", Rule{Type: Weekly}, day(2024, 3, 6), 2, day(2024, 3, 13)},
		{"monthly_default_day", Rule{Type: Monthly, Interval: 1}, day(2024, 1, 15), 3, day(2024, 3, 15)},
		{"quarterly", Rule{Type: Monthly, Interval: 3, DayOfMonth: intPtr(30)}, day(2023, 11, 30), 2, day(2024, 2, 29)},
		{"monthly_earlier_day_starts_next_month", Rule{Type: Monthly, Interval: 1, DayOfMonth: intPtr(5)}, day(2024, 1, 10), 1, day(2024, 2, 5)},
		{"monthly_earlier_day_second", Rule{Type: Monthly, Interval: 1, DayOfMonth: intPtr(5)}, day(2024, 1, 10), 2, day(2024, 3, 5)},
		{"monthly_later_day_same_month", Rule{Type: Monthly, Interval: 1, DayOfMonth: intPtr(20)}, day(2024, 1, 10), 1, day(2024, 1, 20)},
		{"yearly_leap_to_non_leap", Rule{Type: Yearly, Interval: 1}, day(2024, 2, 29), 2, day(2025, 2, 28)},
		{"yearly_back_to_leap", Rule{Type: Yearly, Interval: 1}, day(2024, 2, 29), 5, day(2028, 2, 29)},
		{"none_single", Rule{Type: None}, day(2024, 3, 1), 1, day(2024, 3, 1)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := tt.rule.NextDate(tt.base, tt.k)
			if !ok {
				t.Fatal("expected a date")
			}
			if !got.Equal(tt.want) {
				t.Errorf("expected %s, got %s", tt.want.Format(time.DateOnly), got.Format(time.DateOnly))
			}
		})
	}

	t.Run("none_has_no_second_occurrence", func(t *testing.T) {
		if _, ok := (Rule{Type: None}).NextDate(day(2024, 3, 1), 2); ok {
			t.Error("expected no second occurrence")
		}
	})

	t.Run("index_starts_at_one", func(t *testing.T) {
		if _, ok := (Rule{Type: Daily}).NextDate(day(2024, 3, 1), 0); ok {
			t.Error("expected k=0 to be rejected")
		}
	})
}

func TestWithin(t *testing.T) {
	end := day(2024, 3, 31)
	rule := Rule{Type: Monthly, EndDate: &end, MaxExecutions: intPtr(3)}

	if !rule.Within(day(2024, 3, 31), 3) {
		t.Error("end date is inclusive")
	}
	if rule.Within(day(2024, 4, 1), 2) {
		t.Error("expected date past end to be outside")
	}
	if rule.Within(day(2024, 2, 1), 4) {
		t.Error("expected index past max executions to be outside")
	}
}

func TestAfter(t *testing.T) {
	rule := Rule{Type: Monthly, Interval: 1, DayOfMonth: intPtr(31)}
	base := day(2024, 1, 31)

	got, k, ok := rule.After(base, day(2024, 1, 31), 1)
	if !ok || k != 2 || !got.Equal(day(2024, 2, 29)) {
		t.Errorf("expected 2024-02-29 (k=2), got %s (k=%d, ok=%v)", got.Format(time.DateOnly), k, ok)
	}

	got, k, ok = rule.After(base, day(2024, 2, 29), k)
	if !ok || k != 3 || !got.Equal(day(2024, 3, 31)) {
		t.Errorf("expected 2024-03-31 (k=3), got %s (k=%d, ok=%v)", got.Format(time.DateOnly), k, ok)
	}

	end := day(2024, 2, 15)
	limited := Rule{Type: Monthly, EndDate: &end}
	if _, _, ok := limited.After(base, base, 1); ok {
		t.Error("expected exhausted rule")
	}
}

func TestValidate(t *testing.T) {
	valid := []Rule{
		{Type: Monthly, Interval: 1, DayOfMonth: intPtr(31)},
		{Type: Weekly, Weekday: intPtr(6)},
		{Type: None},
	}
	for _, r := range valid {
		if err := r.Validate(); err != nil {
			t.Errorf("expected %+v to be valid: %v", r, err)
		}
	}

	invalid := []Rule{
		{Type: "hourly"},
		{Type: Weekly, Weekday: intPtr(7)},
		{Type: Monthly, DayOfMonth: intPtr(0)},
		{Type: Daily, Interval: -1},
		{Type: Daily, MaxExecutions: intPtr(0)},
	}
	for _, r := range invalid {
		if err := r.Validate(); err == nil {
			t.Errorf("expected %+v to be rejected", r)
		}
	}
}
