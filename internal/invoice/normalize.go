package invoice

import (
	"strings"

	"github.com/shopspring/decimal"
)

// NormalizeAmount strips currency symbols, thousands separators and
// surrounding whitespace. Idempotent: normalizing twice equals normalizing
// once.
func NormalizeAmount(raw string) string {
	s := strings.TrimSpace(raw)
	s = strings.ReplaceAll(s, "$", "")
	s = strings.ReplaceAll(s, ",", "")
	return strings.TrimSpace(s)
}

// ParseAmount parses a monetary string into a decimal. Accounting-style
// parentheses mean a negative value. Returns ok=false when the string does
// not parse; callers must distinguish that from zero.
func ParseAmount(raw string) (decimal.Decimal, bool) {
	s := NormalizeAmount(raw)
	if s == "" {
		return decimal.Zero, false
	}
	negative := false
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		negative = true
		s = strings.TrimSpace(s[1 : len(s)-1])
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, false
	}
	if negative {
		d = d.Neg()
	}
	return d, true
}

// NormalizeQuantity renders integral quantities without a fractional tail
// ("3.00" -> "3") and preserves non-integral values verbatim. Values that do
// not parse as numbers are returned unchanged.
func NormalizeQuantity(raw string) string {
	s := strings.TrimSpace(raw)
	if s == "" {
		return ""
	}
	d, err := decimal.NewFromString(strings.ReplaceAll(s, ",", ""))
	if err != nil {
		return s
	}
	if d.IsInteger() {
		return d.Truncate(0).String()
	}
	return s
}
