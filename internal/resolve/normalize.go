// Package resolve normalizes free-text buyer names into canonical entities
// and deduplicates contract records so that per-buyer aggregation is
// meaningful.
package resolve

import (
	"regexp"
	"strings"
)

// suffixRule rewrites one lexical variant of a corporate or public-sector
// suffix into its fixed form. The table is reference data: matching is
// word-bounded so "co." becomes "company" without touching "council".
type suffixRule struct {
	re   *regexp.Regexp
	repl string
}

var defaultSuffixRules = []suffixRule{
	{regexp.MustCompile(`\b(ltd\.?|limited)\b`), "limited"},
	{regexp.MustCompile(`\b(plc\.?)\b`), "plc"},
	{regexp.MustCompile(`\b(co\.?)\b`), "company"},
	{regexp.MustCompile(`\b(gov\.?|govt)\b`), "government"},
	{regexp.MustCompile(`\b(bc)\b`), "borough council"},
	{regexp.MustCompile(`\b(cc)\b`), "county council"},
	{regexp.MustCompile(`\b(dc)\b`), "district council"},
}

var multiSpaceRe = regexp.MustCompile(`\s{2,}`)

var punctReplacer = strings.NewReplacer(
	",", "",
	".", "",
	"'", "",
	"\"", "",
	"(", "",
	")", "",
	"&", " and ",
	"-", " ",
	"/", " ",
)

// Normalize standardizes a buyer name for matching by:
//  1. Trimming whitespace and case-folding to lower case
//  2. Stripping punctuation (ampersands become "and")
//  3. Rewriting suffix variants into fixed lexical forms (Ltd -> limited,
//     B.C. -> borough council, ...)
//  4. Collapsing multiple spaces
//
// Normalize is idempotent: a normalized name normalizes to itself.
func Normalize(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return ""
	}

	name = punctReplacer.Replace(name)

	for _, rule := range defaultSuffixRules {
		name = rule.re.ReplaceAllString(name, rule.repl)
	}

	name = multiSpaceRe.ReplaceAllString(name, " ")
	name = strings.TrimSpace(name)

	return name
}
