package core

import (
	"testing"
	"time"
)

func TestWeekOf(t *testing.T) {
	// Wednesday 2026-01-14
	ref := time.Date(2026, 1, 14, 15, 30, 0, 0, time.UTC)

	p := WeekOf(ref, 0)
	if got := p.Start.Format("2006-01-02"); got != "2026-01-12" {
		t.Errorf("week start = %s, want 2026-01-12 (Monday)", got)
	}
	if got := p.End.Format("2006-01-02"); got != "2026-01-18" {
		t.Errorf("week end = %s, want 2026-01-18 (Sunday)", got)
	}
	if p.Type != PeriodWeekly {
		t.Errorf("type = %s", p.Type)
	}

	// A Monday stays on its own week
	monday := time.Date(2026, 1, 12, 0, 0, 0, 0, time.UTC)
	if got := WeekOf(monday, 0).Start; !got.Equal(monday) {
		t.Errorf("Monday week start = %s", got)
	}

	// Sunday belongs to the week that started six days earlier
	sunday := time.Date(2026, 1, 18, 0, 0, 0, 0, time.UTC)
	if got := WeekOf(sunday, 0).Start.Format("2006-01-02"); got != "2026-01-12" {
		t.Errorf("Sunday week start = %s", got)
	}

	last := WeekOf(ref, 1)
	if got := last.Start.Format("2006-01-02"); got != "2026-01-05" {
		t.Errorf("last week start = %s", got)
	}
}

func TestMonthOf(t *testing.T) {
	cases := []struct {
		year  int
		month time.Month
		end   string
		name  string
	}{
		{2026, time.January, "2026-01-31", "January 2026"},
		{2026, time.February, "2026-02-28", "February 2026"},
		{2024, time.February, "2024-02-29", "February 2024"},
		{2025, time.December, "2025-12-31", "December 2025"},
	}
	for _, tc := range cases {
		p := MonthOf(tc.year, tc.month)
		if got := p.End.Format("2006-01-02"); got != tc.end {
			t.Errorf("MonthOf(%d,%s) end = %s, want %s", tc.year, tc.month, got, tc.end)
		}
		if p.Name != tc.name {
			t.Errorf("MonthOf(%d,%s) name = %q", tc.year, tc.month, p.Name)
		}
	}
}

func TestQuarterOf(t *testing.T) {
	p, err := QuarterOf(2026, 4)
	if err != nil {
		t.Fatal(err)
	}
	if got := p.Start.Format("2006-01-02"); got != "2026-10-01" {
		t.Errorf("Q4 start = %s", got)
	}
	if got := p.End.Format("2006-01-02"); got != "2026-12-31" {
		t.Errorf("Q4 end = %s", got)
	}
	if p.Name != "Q4 2026" {
		t.Errorf("Q4 name = %q", p.Name)
	}

	if _, err := QuarterOf(2026, 5); err == nil {
		t.Error("quarter 5 should error")
	}
}

func TestCustomPeriod(t *testing.T) {
	start := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC)
	p, err := CustomPeriod(start, end)
	if err != nil {
		t.Fatal(err)
	}
	if p.Type != PeriodCustom {
		t.Errorf("type = %s", p.Type)
	}
	if _, err := CustomPeriod(end, start); err == nil {
		t.Error("inverted range should error")
	}
}

func TestPeriodContains(t *testing.T) {
	p := MonthOf(2026, time.January)
	cases := []struct {
		ts   time.Time
		want bool
	}{
		{time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), true},
		{time.Date(2026, 1, 31, 23, 59, 59, 0, time.UTC), true}, // end date inclusive
		{time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC), false},
		{time.Date(2025, 12, 31, 23, 59, 59, 0, time.UTC), false},
	}
	for _, tc := range cases {
		if got := p.Contains(tc.ts); got != tc.want {
			t.Errorf("Contains(%s) = %v, want %v", tc.ts, got, tc.want)
		}
	}
}

func TestPreviousWeek(t *testing.T) {
	p := WeekOf(time.Date(2026, 1, 14, 0, 0, 0, 0, time.UTC), 0)
	prev := p.PreviousWeek()
	if got := prev.Start.Format("2006-01-02"); got != "2026-01-05" {
		t.Errorf("previous week start = %s", got)
	}
	if !prev.End.AddDate(0, 0, 1).Equal(p.Start) {
		t.Error("previous week must abut current week")
	}
}
