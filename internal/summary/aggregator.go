// Package summary computes and stores per-period aggregates over the ledger.
package summary

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"till/internal/core"
	"till/internal/llm"
	"till/internal/storage"

	"github.com/shopspring/decimal"
)

const (
	weeklyInsightTemperature = 0.4
	weeklyInsightMaxTokens   = 400
	periodInsightMaxTokens   = 500

	defaultInsightTimeout = 60 * time.Second
)

type Aggregator struct {
	storage         *storage.SQLiteRepository
	generator       llm.Generator
	insightTimeout  time.Duration
	insightsEnabled bool
}

func NewAggregator(storage *storage.SQLiteRepository, generator llm.Generator, insightTimeout time.Duration, insightsEnabled bool) *Aggregator {
	if insightTimeout <= 0 {
		insightTimeout = defaultInsightTimeout
	}
	return &Aggregator{
		storage:         storage,
		generator:       generator,
		insightTimeout:  insightTimeout,
		insightsEnabled: insightsEnabled,
	}
}

// BuildSummary aggregates the ledger over a period and stores the result,
// replacing any summary previously stored for the same period. Returns nil
// without storing anything when the period holds no transactions; an empty
// period is an absence, not a zero-filled summary.
func (a *Aggregator) BuildSummary(ctx context.Context, period core.Period) (*core.PeriodSummary, error) {
	transactions, err := a.storage.ListByPeriod(ctx, period)
	if err != nil {
		return nil, fmt.Errorf("list transactions for %s: %w", period.Name, err)
	}

	if len(transactions) == 0 {
		slog.InfoContext(ctx, "No transactions in period, skipping summary",
			"period_type", period.Type,
			"period_name", period.Name)
		return nil, nil
	}

	s := aggregate(period, transactions)

	if a.insightsEnabled && a.generator != nil {
		s.Insight = a.generateInsight(ctx, s)
	}

	id, err := a.storage.ReplaceSummary(ctx, *s)
	if err != nil {
		return nil, fmt.Errorf("store summary for %s: %w", period.Name, err)
	}
	s.ID = id

	return s, nil
}

func aggregate(period core.Period, transactions []core.LedgerTransaction) *core.PeriodSummary {
	totalIncome := decimal.Zero
	totalExpenses := decimal.Zero
	breakdown := make(map[string]core.CategoryStats)

	for _, t := range transactions {
		if t.IsIncome {
			totalIncome = totalIncome.Add(t.Amount)
		} else {
			totalExpenses = totalExpenses.Add(t.Amount)
		}

		stats, ok := breakdown[t.Category]
		if !ok {
			stats = core.CategoryStats{
				Max:      t.Amount,
				Min:      t.Amount,
				IsIncome: t.IsIncome,
			}
		}
		stats.Total = stats.Total.Add(t.Amount)
		stats.Count++
		if t.Amount.GreaterThan(stats.Max) {
			stats.Max = t.Amount
		}
		if t.Amount.LessThan(stats.Min) {
			stats.Min = t.Amount
		}
		breakdown[t.Category] = stats
	}

	for category, stats := range breakdown {
		stats.Avg = stats.Total.DivRound(decimal.NewFromInt(int64(stats.Count)), 2)
		breakdown[category] = stats
	}

	// Top category considers spending only; income categories never compete.
	topCategory := ""
	topAmount := decimal.Zero
	for category, stats := range breakdown {
		if stats.IsIncome || core.IsIncomeCategory(category) {
			continue
		}
		if stats.Total.GreaterThan(topAmount) {
			topCategory = category
			topAmount = stats.Total
		}
	}

	return &core.PeriodSummary{
		PeriodType:        period.Type,
		PeriodName:        period.Name,
		Start:             period.Start,
		End:               period.End,
		TotalIncome:       totalIncome,
		TotalExpenses:     totalExpenses,
		NetPosition:       totalIncome.Sub(totalExpenses),
		TransactionCount:  len(transactions),
		TopCategory:       topCategory,
		TopCategoryAmount: topAmount,
		Breakdown:         breakdown,
	}
}

// generateInsight asks the model for a narrative over the aggregates. It
// never fails the summary; an unreachable model degrades to a placeholder.
func (a *Aggregator) generateInsight(ctx context.Context, s *core.PeriodSummary) string {
	ctx, cancel := context.WithTimeout(ctx, a.insightTimeout)
	defer cancel()

	var prompt string
	maxTokens := periodInsightMaxTokens
	if s.PeriodType == core.PeriodWeekly {
		prompt = a.weeklyInsightPrompt(ctx, s)
		maxTokens = weeklyInsightMaxTokens
	} else {
		prompt = periodInsightPrompt(s)
	}

	insight, err := a.generator.Generate(ctx, prompt, llm.Options{
		Temperature: weeklyInsightTemperature,
		MaxTokens:   maxTokens,
	})
	if err != nil {
		slog.WarnContext(ctx, "Insight generation failed, storing placeholder",
			"period_name", s.PeriodName,
			"error", err)
		return fmt.Sprintf("AI insights unavailable (error: %v)", err)
	}

	return insight
}

func (a *Aggregator) weeklyInsightPrompt(ctx context.Context, s *core.PeriodSummary) string {
	var b strings.Builder
	b.WriteString("You are Till, a wise financial advisor. Generate insights about this weekly financial summary.\n\n")
	fmt.Fprintf(&b, "CURRENT WEEK (%s):\n", s.PeriodName)
	fmt.Fprintf(&b, "- Total Income: $%s\n", core.FormatAmount(s.TotalIncome))
	fmt.Fprintf(&b, "- Total Expenses: $%s\n", core.FormatAmount(s.TotalExpenses))
	fmt.Fprintf(&b, "- Net Position: %s\n", formatSigned(s.NetPosition))
	fmt.Fprintf(&b, "- Transaction Count: %d\n", s.TransactionCount)

	// Comparison data comes from the previously stored week, if any.
	prevPeriod := core.Period{Type: core.PeriodWeekly, Start: s.Start, End: s.End}.PreviousWeek()
	prev, err := a.storage.GetSummary(ctx, core.PeriodWeekly, prevPeriod.Start, prevPeriod.End)
	if err != nil {
		slog.WarnContext(ctx, "Could not load previous week for comparison", "error", err)
	}
	if prev != nil {
		expenseChange := s.TotalExpenses.Sub(prev.TotalExpenses)
		incomeChange := s.TotalIncome.Sub(prev.TotalIncome)
		trend := "Similar"
		if expenseChange.Sign() > 0 {
			trend = "Higher"
		} else if expenseChange.Sign() < 0 {
			trend = "Lower"
		}
		b.WriteString("\nCOMPARED TO LAST WEEK:\n")
		fmt.Fprintf(&b, "- Expense Change: %s\n", formatSigned(expenseChange))
		fmt.Fprintf(&b, "- Income Change: %s\n", formatSigned(incomeChange))
		fmt.Fprintf(&b, "- Spending trend: %s\n", trend)
	}

	b.WriteString("\nCATEGORY BREAKDOWN:\n")
	writeBreakdown(&b, s.Breakdown, false)

	b.WriteString(`
Provide practical weekly insights in 2-3 paragraphs covering:
1. How this week compares to patterns (if comparison data available)
2. Notable spending observations - what stands out this week?
3. One actionable insight for the upcoming week

Be encouraging and focus on patterns rather than judgment. This is for personal reflection on weekly spending habits.`)

	return b.String()
}

func periodInsightPrompt(s *core.PeriodSummary) string {
	var b strings.Builder
	fmt.Fprintf(&b, "You are Till, a wise financial advisor. Generate practical insights about this %s financial summary for %s.\n\n",
		s.PeriodType, s.PeriodName)
	b.WriteString("FINANCIAL DATA:\n")
	fmt.Fprintf(&b, "- Total Income: $%s\n", core.FormatAmount(s.TotalIncome))
	fmt.Fprintf(&b, "- Total Expenses: $%s\n", core.FormatAmount(s.TotalExpenses))
	fmt.Fprintf(&b, "- Net Position: %s\n", formatSigned(s.NetPosition))
	fmt.Fprintf(&b, "- Transaction Count: %d\n", s.TransactionCount)

	b.WriteString("\nCATEGORY BREAKDOWN:\n")
	writeBreakdown(&b, s.Breakdown, true)

	b.WriteString(`
Provide practical insights in 3-4 paragraphs covering:
1. Overall financial health for this period
2. Spending pattern observations (what's normal vs unusual)
3. Category-specific insights (biggest categories, trends)
4. Actionable recommendations for next period

Be encouraging but honest. Focus on concrete observations from the data. Keep it conversational but professional - this is for personal financial records.`)

	return b.String()
}

func writeBreakdown(b *strings.Builder, breakdown map[string]core.CategoryStats, withRanges bool) {
	categories := make([]string, 0, len(breakdown))
	for category := range breakdown {
		categories = append(categories, category)
	}
	sort.Strings(categories)

	for _, category := range categories {
		stats := breakdown[category]
		kind := "spent"
		if stats.IsIncome {
			kind = "earned"
		}
		fmt.Fprintf(b, "- %s (%s): $%s (%d transactions)", category, kind, core.FormatAmount(stats.Total), stats.Count)
		if withRanges {
			fmt.Fprintf(b, " - Avg: $%s, Range: $%s-$%s",
				core.FormatAmount(stats.Avg), core.FormatAmount(stats.Min), core.FormatAmount(stats.Max))
		}
		b.WriteByte('\n')
	}
}

func formatSigned(d decimal.Decimal) string {
	if d.Sign() < 0 {
		return "-$" + core.FormatAmount(d.Neg())
	}
	return "+$" + core.FormatAmount(d)
}
