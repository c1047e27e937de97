// Package parse turns extracted document text into a normalized invoice
// record. Every field resolves through an ordered cascade of strategies,
// from high-confidence labeled patterns down to positional fallbacks;
// the first non-empty candidate wins.
package parse

import "regexp"

// firstMatch runs patterns in order and returns the first capture group
// of the first one that matches.
func firstMatch(text string, patterns []*regexp.Regexp) string {
	for _, p := range patterns {
		if m := p.FindStringSubmatch(text); m != nil {
			return trimField(m[1])
		}
	}
	return ""
}

func trimField(s string) string {
	start, end := 0, len(s)
	for start < end && (s[start] == ' ' || s[start] == '\t' || s[start] == '\r' || s[start] == '\n') {
		start++
	}
	for end > start && (s[end-1] == ' ' || s[end-1] == '\t' || s[end-1] == '\r' || s[end-1] == '\n') {
		end--
	}
	return s[start:end]
}

var (
	invoiceNumberPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)Invoice\s*#\s*:?\s*([A-Za-z0-9][\w\-]*\d[\w\-]*)`),
		regexp.MustCompile(`(?i)Invoice\s+Number\s*:?\s*([A-Za-z0-9][\w\-]*\d[\w\-]*)`),
		regexp.MustCompile(`(?m)^([A-Z]-\d{5,})$`),
	}

	datePatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)Invoice\s+Date\s*:?\s*(\d{1,2}/\d{1,2}/\d{2,4})`),
		regexp.MustCompile(`(?mi)^\s*Date\s*:\s*(\d{4}-\d{2}-\d{2})`),
		regexp.MustCompile(`(?mi)^\s*Date\s*:\s*(\d{1,2}/\d{1,2}/\d{2,4})`),
		regexp.MustCompile(`(?mi)^(?:[^\n]*?)\bDate\s+(\d{1,2}/\d{1,2}/\d{2,4})`),
	}

	// qualified-date labels that must not satisfy the bare "Date" pattern
	qualifiedDate = regexp.MustCompile(`(?i)(?:Due|Ship|Order|P\.?O\.?)\s+Date`)

	dueDatePatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)Due\s+Date\s*:?\s*(\d{1,2}/\d{1,2}/\d{2,4})`),
	}

	termsPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)Terms\s*:\s*(Net\s*\d+\w*(?:\s+Prox)?)`),
		regexp.MustCompile(`(?i)Terms\s+(NET\s*\d+)`),
		regexp.MustCompile(`(?i)Terms\s*:\s*(N\d+)`),
		regexp.MustCompile(`(?i)Terms\s*:\s*(Due\s+(?:on|Upon)\s+[Rr]eceipt)`),
		regexp.MustCompile(`(?i)(?:Payment\s+)?Terms\s*:\s*(Credit\s+Card[^\n]*)`),
	}

	poNumberPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)PO\s*#\s*:?\s*(\d+)`),
		regexp.MustCompile(`(?i)P\.O\.\s+Number\s+(\d+)`),
	}

	trackingPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)Tracking\s*(?:#|No\.?|Number)\s*(?:\(s\))?\s*:?\s*\n?\s*([A-Z0-9]{10,})`),
		regexp.MustCompile(`(?i)Tracking\s*#?\s*:?\s*([A-Z0-9]{10,})`),
	}

	shipMethodPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)Ship\s+(?:Method|Via)\s*:?\s*([^\n]+)`),
		regexp.MustCompile(`(?i)Via\s+([^\n]+)`),
	}

	shipDatePatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)Ship\s+Date\s*:?\s*(\d{1,2}/\d{1,2}/\d{2,4})`),
		regexp.MustCompile(`(?i)Shipped\s+(\d{1,2}/\d{1,2}/\d{2,4})`),
	}

	shippingTaxCodePatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)Shipping\s+Tax\s+Code\s+(\S+)`),
	}

	shippingTaxRatePatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)Shipping\s+Tax\s+Rate\s+(\d+)`),
	}

	subtotalPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)Sub\s*-?\s*total\s*:?\s*\$?([\d,]+\.?\d*)`),
	}

	shippingCostPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)Shipping\s+Cost\s*\([^)]+\)\s*\$?([\d,]+\.?\d*)`),
		regexp.MustCompile(`(?mi)^Drop\s+Ship\s+\d+\.?\d*\s+\d+\.?\d*\s+[\d,]+\.?\d{2}\s+([\d,]+\.?\d{2})\s*$`),
		regexp.MustCompile(`(?i)Drop\s+Ship\s+\$?([\d,]+\.?\d*)`),
		regexp.MustCompile(`(?i)FREIGHT\s+OUT\s+\$?([\d,]+\.?\d*)`),
		regexp.MustCompile(`(?i)Freight\s+\$?([\d,]+\.?\d*)`),
	}

	totalFallbackPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)(?:Total\s+USD|Total\s+Amount|Invoice\s+Total|Grand\s+Total|Total\s+Due)\s*:?\s*\$?([\d,]+\.?\d*)`),
		regexp.MustCompile(`(?mi)^\s*Total\s+\$?([\d,]+\.?\d*)`),
		regexp.MustCompile(`(?i)Amount\s+Due\s*:?\s*\$?([\d,]+\.?\d*)`),
		regexp.MustCompile(`(?i)Balance\s+Due\s+\$?([\d,]+\.?\d*)`),
	}
)

// parseDate applies the date cascade, skipping matches on lines whose
// "Date" label is qualified (Due Date, Ship Date, PO Date).
func parseDate(text string) string {
	for i, p := range datePatterns {
		if i < len(datePatterns)-1 {
			if m := p.FindStringSubmatch(text); m != nil {
				return trimField(m[1])
			}
			continue
		}
		// last pattern is the bare-label fallback; reject qualified lines
		for _, m := range p.FindAllStringSubmatch(text, -1) {
			if !qualifiedDate.MatchString(m[0]) {
				return trimField(m[1])
			}
		}
	}
	return ""
}
