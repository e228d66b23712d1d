package core

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

const (
	PeriodWeekly    PeriodType = "weekly"
	PeriodMonthly   PeriodType = "monthly"
	PeriodQuarterly PeriodType = "quarterly"
	PeriodCustom    PeriodType = "custom"
)

type (
	PeriodType string

	// Period is a closed date range [Start, End] that a summary covers.
	// Start and End carry date precision only (midnight UTC).
	Period struct {
		Type  PeriodType
		Name  string
		Start time.Time
		End   time.Time
	}

	// CategoryStats aggregates the transactions of one category inside a period.
	CategoryStats struct {
		Total    decimal.Decimal `json:"total"`
		Count    int             `json:"count"`
		Avg      decimal.Decimal `json:"avg"`
		Max      decimal.Decimal `json:"max"`
		Min      decimal.Decimal `json:"min"`
		IsIncome bool            `json:"is_income"`
	}

	// PeriodSummary is a precomputed aggregate over a period, replaced
	// wholesale on recomputation. At most one row exists per
	// (period type, start, end).
	PeriodSummary struct {
		ID                int64
		PeriodType        PeriodType
		PeriodName        string
		Start             time.Time
		End               time.Time
		TotalIncome       decimal.Decimal
		TotalExpenses     decimal.Decimal
		NetPosition       decimal.Decimal
		TransactionCount  int
		TopCategory       string
		TopCategoryAmount decimal.Decimal
		Breakdown         map[string]CategoryStats
		Insight           string
		CreatedAt         time.Time
	}
)

// WeekOf returns the Monday-based week containing ref, shifted back by
// weeksAgo whole weeks. Offset 0 and 1 get the friendlier This/Last names.
func WeekOf(ref time.Time, weeksAgo int) Period {
	day := time.Date(ref.Year(), ref.Month(), ref.Day(), 0, 0, 0, 0, time.UTC)
	// Monday=0 ... Sunday=6
	sinceMonday := (int(day.Weekday()) + 6) % 7
	monday := day.AddDate(0, 0, -sinceMonday-7*weeksAgo)
	sunday := monday.AddDate(0, 0, 6)

	var name string
	switch weeksAgo {
	case 0:
		name = fmt.Sprintf("This Week (%s - %s)", monday.Format("Jan 02"), sunday.Format("Jan 02"))
	case 1:
		name = fmt.Sprintf("Last Week (%s - %s)", monday.Format("Jan 02"), sunday.Format("Jan 02"))
	default:
		name = fmt.Sprintf("Week of %s", monday.Format("Jan 02, 2006"))
	}

	return Period{Type: PeriodWeekly, Name: name, Start: monday, End: sunday}
}

// MonthOf returns the calendar month period for year/month.
func MonthOf(year int, month time.Month) Period {
	start := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 1, 0).AddDate(0, 0, -1)
	return Period{
		Type:  PeriodMonthly,
		Name:  start.Format("January 2006"),
		Start: start,
		End:   end,
	}
}

// QuarterOf returns the calendar quarter period for year/quarter (1-4).
func QuarterOf(year, quarter int) (Period, error) {
	if quarter < 1 || quarter > 4 {
		return Period{}, fmt.Errorf("invalid quarter: %d", quarter)
	}
	start := time.Date(year, time.Month(3*(quarter-1)+1), 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 3, 0).AddDate(0, 0, -1)
	return Period{
		Type:  PeriodQuarterly,
		Name:  fmt.Sprintf("Q%d %d", quarter, year),
		Start: start,
		End:   end,
	}, nil
}

// CustomPeriod returns an arbitrary closed range.
func CustomPeriod(start, end time.Time) (Period, error) {
	start = time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, time.UTC)
	end = time.Date(end.Year(), end.Month(), end.Day(), 0, 0, 0, 0, time.UTC)
	if end.Before(start) {
		return Period{}, fmt.Errorf("end date %s before start date %s",
			end.Format("2006-01-02"), start.Format("2006-01-02"))
	}
	return Period{
		Type:  PeriodCustom,
		Name:  fmt.Sprintf("%s - %s", start.Format("Jan 02, 2006"), end.Format("Jan 02, 2006")),
		Start: start,
		End:   end,
	}, nil
}

// PreviousWeek returns the week immediately before a weekly period.
func (p Period) PreviousWeek() Period {
	monday := p.Start.AddDate(0, 0, -7)
	sunday := monday.AddDate(0, 0, 6)
	return Period{
		Type:  PeriodWeekly,
		Name:  fmt.Sprintf("Week of %s", monday.Format("Jan 02, 2006")),
		Start: monday,
		End:   sunday,
	}
}

// Contains reports whether t falls inside the period, both bounds inclusive.
// The end bound covers the whole final day.
func (p Period) Contains(t time.Time) bool {
	return !t.Before(p.Start) && t.Before(p.End.AddDate(0, 0, 1))
}
