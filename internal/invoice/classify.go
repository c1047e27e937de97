package invoice

import (
	"regexp"
	"strings"
)

// FreightKeywords is the fixed vocabulary that marks a row as freight or
// shipping. Freight rows are always exempt from reconciliation.
var FreightKeywords = []string{
	"freight", "shipping", "drop ship", "drop-ship", "drop ship fee",
	"freight out", "outbound freight",
}

// nonProductKeywords filters handling/surcharge artifact rows out of the
// line-item list entirely.
var nonProductKeywords = []string{
	"l.c.", "lc", "d.n.a.", "dna",
	"handling", "surcharge",
}

var wordBoundaryCache = map[string]*regexp.Regexp{}

func init() {
	for _, kw := range nonProductKeywords {
		if len(kw) <= 2 {
			wordBoundaryCache[kw] = regexp.MustCompile(`\b` + regexp.QuoteMeta(kw) + `\b`)
		}
	}
}

func combinedText(li *LineItem) string {
	return strings.ToLower(strings.TrimSpace(li.ItemNumber)) + " " +
		strings.ToLower(strings.TrimSpace(li.Description))
}

// Classify computes the independent classification flags for a line item.
// Flags are not mutually exclusive; each is its own predicate over the
// identifier and description.
func Classify(li *LineItem) {
	text := combinedText(li)
	itemNum := strings.ToLower(strings.TrimSpace(li.ItemNumber))
	desc := strings.ToLower(strings.TrimSpace(li.Description))

	for _, kw := range FreightKeywords {
		if strings.Contains(text, kw) {
			li.IsFreight = true
			break
		}
	}

	// IsDiscount may already be set by an upstream extraction rule.
	if strings.Contains(itemNum, "discount") || strings.Contains(desc, "discount") {
		li.IsDiscount = true
	}

	if itemNum == "core" || strings.HasPrefix(itemNum, "core ") ||
		strings.HasPrefix(itemNum, "core-") || strings.HasPrefix(desc, "core ") {
		li.IsCore = true
	}

	if itemNum == "e.r.e." || itemNum == "ere" ||
		strings.Contains(desc, "environmental regulation expense") {
		li.IsEnvironmentalFee = true
	}
}

// MarkFreight sets the freight flag alone, for extraction paths that classify
// rows before the full record is assembled.
func MarkFreight(li *LineItem) {
	text := combinedText(li)
	for _, kw := range FreightKeywords {
		if strings.Contains(text, kw) {
			li.IsFreight = true
			return
		}
	}
}

// IsNonProductRow reports whether a row is a handling/surcharge artifact that
// should not appear in the line-item list at all.
func IsNonProductRow(li *LineItem) bool {
	text := combinedText(li)
	for _, kw := range nonProductKeywords {
		if re, ok := wordBoundaryCache[kw]; ok {
			if re.MatchString(text) {
				return true
			}
		} else if strings.Contains(text, kw) {
			return true
		}
	}
	return false
}
