package core

import "strings"

// Categories is the closed set shared by the categorizer and the aggregator.
// Changing it requires a coordinated migration of existing ledger rows, so it
// lives here as process-wide immutable configuration rather than as ad hoc
// string literals.
var Categories = []string{
	"Food & Dining",
	"Transportation",
	"Personal Care",
	"Health & Fitness",
	"Shopping & Retail",
	"Entertainment",
	"Bills & Utilities",
	"Professional & Work",
	"Education & Learning",
	"Travel",
	"Home & Garden",
	"Income - Freelance",
	"Income - Salary",
	"Income - Other",
	"Other",
}

const (
	CategoryOther       = "Other"
	CategoryIncomeOther = "Income - Other"
)

// IsKnownCategory reports whether name is an exact member of the closed set.
func IsKnownCategory(name string) bool {
	for _, c := range Categories {
		if c == name {
			return true
		}
	}
	return false
}

// IsIncomeCategory reports whether name is one of the reserved income categories.
func IsIncomeCategory(name string) bool {
	return strings.HasPrefix(name, "Income - ")
}

// FallbackCategory is the catch-all used when the classification service
// answers with a label outside the closed set.
func FallbackCategory(isIncome bool) string {
	if isIncome {
		return CategoryIncomeOther
	}
	return CategoryOther
}

// MatchCategory resolves a free-text label from the classification service to
// a member of the closed set. Exact match wins, then a case-insensitive
// substring match in either direction. Returns "" when nothing matches.
func MatchCategory(label string) string {
	label = strings.TrimSpace(label)
	if label == "" {
		return ""
	}
	if IsKnownCategory(label) {
		return label
	}
	lower := strings.ToLower(label)
	for _, c := range Categories {
		cl := strings.ToLower(c)
		if strings.Contains(cl, lower) || strings.Contains(lower, cl) {
			return c
		}
	}
	return ""
}
