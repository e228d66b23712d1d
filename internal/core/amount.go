// Package core holds the domain types shared by every pipeline stage.
//
// This file contains monetary amount parsing and formatting. Amounts are
// decimal.Decimal values normalized to two fractional digits; floats are
// never used for money math.
package core

import (
	"strings"

	"github.com/shopspring/decimal"
)

// ParseAmount converts a decimal string to a positive amount with half-up
// rounding on the third fractional digit.
//
// It accepts both dot (12.34) and comma (12,34) separators. Returns an error
// for invalid formats, signed values, or amounts that round to zero.
//
// Examples:
//
//	ParseAmount("12.34")  -> 12.34, nil
//	ParseAmount("12,34")  -> 12.34, nil
//	ParseAmount("12.345") -> 12.35, nil (rounds up)
func ParseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, ErrInvalidAmount
	}
	// Normalize decimal comma to dot
	s = strings.ReplaceAll(s, ",", ".")
	if strings.HasPrefix(s, "+") || strings.HasPrefix(s, "-") {
		// Only unsigned values allowed; polarity comes from classification
		return decimal.Zero, ErrInvalidAmount
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, ErrInvalidAmount
	}
	d = d.Round(2)
	if d.Sign() <= 0 {
		return decimal.Zero, ErrInvalidAmount
	}
	return d, nil
}

// FormatAmount renders an amount with exactly two fractional digits, the
// canonical form used in storage and prompts.
func FormatAmount(d decimal.Decimal) string {
	return d.StringFixed(2)
}
