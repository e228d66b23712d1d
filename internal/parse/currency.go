package parse

import "strings"

// DefaultCurrency is assumed when the text carries no currency signal.
const DefaultCurrency = "USD"

// currencySynonyms maps case-folded tokens to ISO 4217 codes. Only the first
// matching token in a message is consumed; the rest of the text is left alone.
var currencySynonyms = map[string]string{
	"dollar":  "USD",
	"dollars": "USD",
	"usd":     "USD",
	"buck":    "USD",
	"bucks":   "USD",
	"euro":    "EUR",
	"euros":   "EUR",
	"eur":     "EUR",
	"pound":   "GBP",
	"pounds":  "GBP",
	"gbp":     "GBP",
	"quid":    "GBP",
	"yen":     "JPY",
	"jpy":     "JPY",
	"rupee":   "INR",
	"rupees":  "INR",
	"inr":     "INR",
}

// extractCurrency scans whitespace-separated tokens left to right for a
// currency synonym and strips the first hit from the working text. Failing
// that, a "$" glyph means USD and is stripped. Returns the cleaned text and
// the detected (or default) currency.
func extractCurrency(text string) (string, string) {
	tokens := strings.Fields(text)
	for i, tok := range tokens {
		folded := strings.ToLower(strings.Trim(tok, ".,!?"))
		code, ok := currencySynonyms[folded]
		if !ok {
			continue
		}
		rest := make([]string, 0, len(tokens)-1)
		rest = append(rest, tokens[:i]...)
		rest = append(rest, tokens[i+1:]...)
		return strings.Join(rest, " "), code
	}
	if strings.Contains(text, "$") {
		return strings.Join(strings.Fields(strings.ReplaceAll(text, "$", " ")), " "), "USD"
	}
	return strings.Join(tokens, " "), DefaultCurrency
}
