package parse

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/dpp-tools/invoice-audit/internal/invoice"
)

var (
	strongTotalPatterns = []*regexp.Regexp{
		regexp.MustCompile(`\btotal\s+due\b`),
		regexp.MustCompile(`\binvoice\s+total\b`),
		regexp.MustCompile(`\bgrand\s+total\b`),
		regexp.MustCompile(`\btotal\s+amount\b`),
		regexp.MustCompile(`\btotal\s+usd\b`),
		regexp.MustCompile(`\bamount\s+due\b`),
		regexp.MustCompile(`\bbalance\s+due\b`),
	}
	weakTotalPatterns = []*regexp.Regexp{
		regexp.MustCompile(`\bsub\s*-?\s*total\b`),
		regexp.MustCompile(`\bsubtotal\b`),
	}
	genericTotal = regexp.MustCompile(`\btotal\b`)

	totalExcludeWords = []string{
		"tax", "sales tax", "shipping", "freight", "handling",
		"discount", "surcharge", "deposit",
	}

	amountToken = regexp.MustCompile(`\$?\s*([0-9]{1,3}(?:,[0-9]{3})*(?:\.\d{1,2})?|[0-9]+(?:\.\d{1,2})?)`)
)

type totalCandidate struct {
	value     decimal.Decimal
	raw       string
	lineIndex int
	lookahead int
}

func amountsOnLine(line string) []totalCandidate {
	var out []totalCandidate
	for _, m := range amountToken.FindAllStringSubmatch(line, -1) {
		v, ok := invoice.ParseAmount(m[1])
		if !ok {
			continue
		}
		out = append(out, totalCandidate{value: v, raw: m[1]})
	}
	return out
}

func matchesAny(line string, patterns []*regexp.Regexp) bool {
	for _, p := range patterns {
		if p.MatchString(line) {
			return true
		}
	}
	return false
}

// ExtractTotal resolves the invoice total from labeled amount lines.
// Strong labels (total due, invoice total, amount due ...) outrank weak
// ones (subtotal); a bare "total" counts as strong unless the line also
// mentions tax, shipping or similar adjustments. When a labeled line
// carries no amount, up to two following lines are searched. Among
// candidates of the winning tier the largest value is chosen; ties go
// to the earliest line, then the shallowest lookahead.
func ExtractTotal(text string) string {
	if text == "" {
		return ""
	}

	var strong, weak []totalCandidate
	lines := strings.Split(text, "\n")
	for idx, line := range lines {
		stripped := strings.TrimSpace(line)
		if stripped == "" {
			continue
		}
		lower := strings.ToLower(stripped)

		tier := ""
		switch {
		case matchesAny(lower, strongTotalPatterns):
			tier = "strong"
		case matchesAny(lower, weakTotalPatterns):
			tier = "weak"
		case genericTotal.MatchString(lower):
			excluded := false
			for _, w := range totalExcludeWords {
				if strings.Contains(lower, w) {
					excluded = true
					break
				}
			}
			if !excluded {
				tier = "strong"
			}
		}
		if tier == "" {
			continue
		}

		amounts := amountsOnLine(stripped)
		lookahead := 0
		if len(amounts) == 0 {
			for j := idx + 1; j < len(lines) && j <= idx+2; j++ {
				next := strings.TrimSpace(lines[j])
				if next == "" {
					continue
				}
				amounts = amountsOnLine(next)
				if len(amounts) > 0 {
					lookahead = j - idx
					break
				}
			}
		}
		if len(amounts) == 0 {
			continue
		}

		for _, c := range amounts {
			c.lineIndex = idx
			c.lookahead = lookahead
			if tier == "strong" {
				strong = append(strong, c)
			} else {
				weak = append(weak, c)
			}
		}
	}

	if best := pickBestTotal(strong); best != "" {
		return best
	}
	return pickBestTotal(weak)
}

func pickBestTotal(candidates []totalCandidate) string {
	if len(candidates) == 0 {
		return ""
	}
	best := candidates[0]
	for _, c := range candidates[1:] {
		switch {
		case c.value.GreaterThan(best.value):
			best = c
		case c.value.Equal(best.value):
			if c.lineIndex < best.lineIndex ||
				(c.lineIndex == best.lineIndex && c.lookahead < best.lookahead) {
				best = c
			}
		}
	}
	return invoice.NormalizeAmount(best.raw)
}
