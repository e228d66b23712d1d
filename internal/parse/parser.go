// Package parse turns free-text financial statements into structured parse
// results. It is pure: no I/O, no clock, no lookups outside its own tables.
//
// The pipeline stages are fixed and ordered: currency extraction, correction
// detection, income/expense scoring, then amount/description extraction.
// Earlier stages always win over later ones; there is no scoring across
// extraction patterns.
package parse

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"

	"till/internal/core"
)

// Result is the transient output of Parse. Amount present implies Currency
// present. IsIncome is nil when the caller has to decide polarity, which is
// always the case for corrections.
type Result struct {
	Kind        core.MessageKind // transaction, correction or unclear
	Amount      *decimal.Decimal
	Currency    string
	Description string
	IsIncome    *bool
	Confidence  int // 0-3, how certain the income/expense heuristic is
}

// Correction triggers must be immediately followed by a decimal amount.
// "actually 12.50", "wait, make that 15".
var correctionRe = regexp.MustCompile(
	`(?:^|\s)(?:actually|wait|i meant|correction|sorry|oops|make that|change to|fix that)[,.!:]*\s+(\d+(?:[.,]\d+)?)\b`)

// "<amount> on/for <noun>" leans expense even without a spend verb.
var expenseShapeRe = regexp.MustCompile(`\d(?:[.,]\d+)?\s+(?:on|for)\s+\pL`)

// Extraction patterns, in priority order. The first one yielding a positive
// amount and a usable description wins.
var (
	// "earned 500 from client", "spent 20 on lunch"
	verbAmountDescRe = regexp.MustCompile(`^(\pL+)\s+(\d+(?:[.,]\d+)?)\s+(?:on|for|from)\s+(.+)$`)
	// "20 for lunch", "5.50 coffee"
	amountFirstRe = regexp.MustCompile(`^(\d+(?:[.,]\d+)?)\s+(.+)$`)
	// "coffee 5.50"
	descFirstRe = regexp.MustCompile(`^(.+?)\s+(\d+(?:[.,]\d+)?)$`)
	// bare amount anywhere, kept as a clarification hint
	anyAmountRe = regexp.MustCompile(`(\d+(?:[.,]\d+)?)`)
	hasLetterRe = regexp.MustCompile(`\pL`)
)

var (
	strongIncomeKeywords  = []string{"earned", "salary", "client paid", "paycheck", "got paid"}
	strongExpenseKeywords = []string{"spent", "bought", "purchased", "bill", "rent"}
	weakIncomeKeywords    = []string{"from", "received", "refund", "bonus", "deposit", "sold", "freelance"}
	weakExpenseKeywords   = []string{"paid", "cost", "fee", "subscription", "on", "for"}
)

// Parse converts raw text into a Result. It never fails: malformed input
// degrades to kind=unclear with all fields empty except the default currency.
func Parse(raw string) Result {
	cleaned, currency := extractCurrency(strings.TrimSpace(raw))
	lower := strings.ToLower(cleaned)

	// Corrections override type inference entirely. Polarity is resolved by
	// the consumer from prior context, never here.
	if m := correctionRe.FindStringSubmatch(lower); m != nil {
		if amt, err := core.ParseAmount(m[1]); err == nil {
			return Result{
				Kind:     core.KindCorrection,
				Amount:   &amt,
				Currency: currency,
			}
		}
	}

	income, confidence := scoreDirection(lower)

	amount, description, hint := extractAmountDescription(cleaned)
	if amount == nil {
		// A bare amount with no usable description is surfaced as a hint so
		// the consumer can prompt for clarification instead of dropping it.
		return Result{
			Kind:     core.KindUnclear,
			Amount:   hint,
			Currency: currency,
		}
	}

	return Result{
		Kind:        core.KindTransaction,
		Amount:      amount,
		Currency:    currency,
		Description: description,
		IsIncome:    &income,
		Confidence:  confidence,
	}
}

// scoreDirection classifies lower-cased text as income or expense with a
// confidence between 0 and 3. Strong keyword hits short-circuit; the
// "<amount> on/for <noun>" shape scores 2; weak keyword counting scores 1;
// a tie defaults to expense with confidence 0.
func scoreDirection(lower string) (income bool, confidence int) {
	strongIncome := countKeywordHits(lower, strongIncomeKeywords)
	strongExpense := countKeywordHits(lower, strongExpenseKeywords)
	if strongIncome > 0 || strongExpense > 0 {
		return strongIncome > strongExpense, 3
	}

	if expenseShapeRe.MatchString(lower) {
		return false, 2
	}

	weakIncome := countKeywordHits(lower, weakIncomeKeywords)
	weakExpense := countKeywordHits(lower, weakExpenseKeywords)
	switch {
	case weakIncome > weakExpense:
		return true, 1
	case weakExpense > weakIncome:
		return false, 1
	}
	return false, 0
}

func countKeywordHits(lower string, keywords []string) int {
	tokens := map[string]bool{}
	for _, tok := range strings.Fields(lower) {
		tokens[strings.Trim(tok, ".,!?")] = true
	}
	hits := 0
	for _, kw := range keywords {
		if strings.Contains(kw, " ") {
			if strings.Contains(lower, kw) {
				hits++
			}
		} else if tokens[kw] {
			hits++
		}
	}
	return hits
}

// extractAmountDescription tries the extraction patterns in priority order.
// When an amount is found but no pattern yields a usable description, the
// amount comes back as hint instead.
func extractAmountDescription(text string) (amount *decimal.Decimal, description string, hint *decimal.Decimal) {
	type match struct{ amount, desc string }
	candidates := []match{}

	if m := verbAmountDescRe.FindStringSubmatch(text); m != nil {
		candidates = append(candidates, match{m[2], m[3]})
	}
	if m := amountFirstRe.FindStringSubmatch(text); m != nil {
		candidates = append(candidates, match{m[1], m[2]})
	}
	if m := descFirstRe.FindStringSubmatch(text); m != nil {
		candidates = append(candidates, match{m[2], m[1]})
	}

	for _, c := range candidates {
		amt, err := core.ParseAmount(c.amount)
		if err != nil {
			continue
		}
		if hint == nil {
			a := amt
			hint = &a
		}
		desc := cleanDescription(c.desc)
		if desc == "" {
			continue
		}
		return &amt, desc, nil
	}

	if hint == nil {
		if m := anyAmountRe.FindStringSubmatch(text); m != nil {
			if amt, err := core.ParseAmount(m[1]); err == nil {
				hint = &amt
			}
		}
	}
	return nil, "", hint
}

// cleanDescription strips leading prepositions and trailing punctuation and
// rejects descriptions with no letters in them.
func cleanDescription(desc string) string {
	tokens := strings.Fields(desc)
	for len(tokens) > 0 {
		switch strings.ToLower(tokens[0]) {
		case "on", "for", "from":
			tokens = tokens[1:]
		default:
			desc = strings.TrimRight(strings.Join(tokens, " "), ".,!?")
			if !hasLetterRe.MatchString(desc) {
				return ""
			}
			return desc
		}
	}
	return ""
}
