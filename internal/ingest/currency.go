package ingest

import (
	"regexp"
	"strconv"
)

var nonNumericRe = regexp.MustCompile(`[^\d.]`)

// CleanCurrency parses a messy currency string ("£1,234.56", "GBP 5000")
// into a float, returning 0 on anything unparsable. Zero then fails the
// pipeline's value > 0 gate, which is the intended handling for junk input.
func CleanCurrency(raw string) float64 {
	clean := nonNumericRe.ReplaceAllString(raw, "")
	if clean == "" {
		return 0
	}
	v, err := strconv.ParseFloat(clean, 64)
	if err != nil {
		return 0
	}
	return v
}
