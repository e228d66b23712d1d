// Package categorizer assigns ledger categories to staged transactions
// using an LLM, validating every label against the fixed category list.
package categorizer

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"till/internal/core"
	"till/internal/llm"

	"github.com/shopspring/decimal"
)

const (
	categorizeTemperature = 0.1
	categorizeMaxTokens   = 30

	defaultTimeout = 30 * time.Second
)

type Categorizer struct {
	generator llm.Generator
	timeout   time.Duration
}

func New(generator llm.Generator, timeout time.Duration) *Categorizer {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Categorizer{generator: generator, timeout: timeout}
}

// Categorize returns a category from the fixed list for a transaction. An
// unusable model label degrades to the type-appropriate fallback category;
// only transport or endpoint failures surface as errors.
func (c *Categorizer) Categorize(ctx context.Context, description string, amount decimal.Decimal, isIncome bool) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	prompt := buildPrompt(description, amount, isIncome)
	label, err := c.generator.Generate(ctx, prompt, llm.Options{
		Temperature: categorizeTemperature,
		MaxTokens:   categorizeMaxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("categorize %q: %w", description, err)
	}

	if category := core.MatchCategory(label); category != "" {
		return category, nil
	}

	fallback := core.FallbackCategory(isIncome)
	slog.WarnContext(ctx, "Model returned unknown category, using fallback",
		"label", label,
		"fallback", fallback,
		"description", description)
	return fallback, nil
}

func buildPrompt(description string, amount decimal.Decimal, isIncome bool) string {
	transactionType := "expense"
	if isIncome {
		transactionType = "income"
	}

	var b strings.Builder
	b.WriteString("You are a helpful financial categorization assistant.\n\n")
	b.WriteString("Your job is to categorize transactions into one of these categories:\n")
	b.WriteString(strings.Join(core.Categories, ", "))
	b.WriteString("\n\n")
	fmt.Fprintf(&b, "Given this %s:\n", transactionType)
	fmt.Fprintf(&b, "- Description: %q\n", description)
	fmt.Fprintf(&b, "- Amount: $%s\n", core.FormatAmount(amount))
	fmt.Fprintf(&b, "- Type: %s\n\n", transactionType)
	b.WriteString("Return ONLY the category name, nothing else. Choose the most appropriate category from the list above.\n\n")
	b.WriteString(`Examples for expenses:
- "coffee" -> Food & Dining
- "uber ride" -> Transportation
- "moisturizer" -> Personal Care
- "gym membership" -> Health & Fitness
- "netflix subscription" -> Entertainment

Examples for income:
- "freelance project" -> Income - Freelance
- "client payment" -> Income - Freelance
- "salary" -> Income - Salary
- "bonus" -> Income - Salary
- "gift money" -> Income - Other

Category:`)

	return b.String()
}
