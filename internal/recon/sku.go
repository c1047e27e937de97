// Package recon matches parsed invoices against purchase orders in the
// fulfillment system and compares line items for agreement.
package recon

import (
	"regexp"
	"strings"

	"github.com/dpp-tools/invoice-audit/internal/vendors"
)

var (
	nonAlnumRe      = regexp.MustCompile(`[^a-z0-9]+`)
	leadingAlphaRe  = regexp.MustCompile(`^[a-z]+`)
)

// CleanPO prepares a PO token for search: trims whitespace and a
// leading "PO" prefix.
func CleanPO(po string) string {
	po = strings.TrimSpace(po)
	if len(po) >= 2 && strings.EqualFold(po[:2], "po") {
		po = strings.TrimSpace(po[2:])
	}
	return po
}

// NormalizePO reduces a PO label to its digits with leading zeros
// trimmed, so "0037305" and "37305" compare equal. An all-zero value
// normalizes to "0".
func NormalizePO(value string) string {
	var b strings.Builder
	for _, r := range value {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	digits := b.String()
	if digits == "" {
		return ""
	}
	trimmed := strings.TrimLeft(digits, "0")
	if trimmed == "" {
		return "0"
	}
	return trimmed
}

// NormalizeSKU reduces a SKU to lowercase alphanumerics. The No Limit
// vendor family prepends vendor letter prefixes (NL, EZ, EZL) on one
// side or the other, so for those vendors leading letters are dropped.
func NormalizeSKU(sku, vendorName string) string {
	s := nonAlnumRe.ReplaceAllString(strings.ToLower(strings.TrimSpace(sku)), "")
	if strings.Contains(vendors.NormalizeKey(vendorName), "nolimit") {
		s = leadingAlphaRe.ReplaceAllString(s, "")
	}
	return s
}

// SKUsMatch reports whether two normalized SKUs agree: equal, or one
// contained in the other. Containment is checked both ways, so the
// relation is symmetric.
func SKUsMatch(a, b string) bool {
	if a == "" || b == "" {
		return false
	}
	return a == b || strings.Contains(a, b) || strings.Contains(b, a)
}

// VendorsMatch applies the fuzzy vendor rule: normalized keys match
// when either contains the other.
func VendorsMatch(invoiceVendor, externalVendor string) bool {
	a := vendors.NormalizeKey(invoiceVendor)
	b := vendors.NormalizeKey(externalVendor)
	if a == "" || b == "" {
		return false
	}
	return strings.Contains(a, b) || strings.Contains(b, a)
}

var nonSKULabels = map[string]struct{}{
	"core":        {},
	"ere":         {},
	"dppdiscount": {},
	"discount":    {},
	"dropship":    {},
	"shipping":    {},
	"freight":     {},
}

// IsNonSKULabel reports whether a product/service value is a
// bookkeeping placeholder rather than a real SKU.
func IsNonSKULabel(value string) bool {
	key := nonAlnumRe.ReplaceAllString(strings.ToLower(strings.TrimSpace(value)), "")
	if key == "" {
		return false
	}
	_, ok := nonSKULabels[key]
	return ok
}
