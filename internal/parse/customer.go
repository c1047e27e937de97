package parse

import (
	"regexp"
	"strings"

	"github.com/dpp-tools/invoice-audit/internal/vendors"
)

// customerPhrases are the recipient's own business names, longest first
// so "diesel power products" wins over "dpp" inside one line.
var customerPhrases = []string{
	"diesel power products",
	"power products unlimited",
	"dpp",
}

var (
	leadingNonAlphaRe = regexp.MustCompile(`^[^A-Za-z]+`)
	dbaPrefixRe       = regexp.MustCompile(`(?i)^(diesel\s+power\s+products|diesel\s+power|power\s+products|dpp)\b\s*`)
	entityPrefixRe    = regexp.MustCompile(`(?i)^(inc\.?|llc|l\.l\.c\.|corp\.?|co\.?|company)\b[,\s]*`)
	lastToRe          = regexp.MustCompile(`(?i)(?:Dealer|Ship|Bill)?\s*To\s*:\s*(.+)$`)
	toPrefixRe        = regexp.MustCompile(`(?i)^(?:Dealer|Ship|Bill)?\s*To\s*:\s*`)
	labelOnlyRe       = regexp.MustCompile(`(?i)^(invoice|invoice\s*#|invoice\s+number|customer|bill\s*to|ship\s*to|sold\s*to)$`)
	wideGapRe         = regexp.MustCompile(`\s{2,}|\t`)
	addressTailRe     = regexp.MustCompile(`\s+\d.*$`)
	shipToPrefixRe    = regexp.MustCompile(`(?i)^(?:ship\s*to|bill\s*to)\s*:?`)

	shipToInlineRe    = regexp.MustCompile(`(?i)Ship\s*To\s*:?\s*([A-Za-z][A-Za-z0-9 &\-./,]+?)(?:\s{2,}|$)`)
	billShipHeaderRe  = regexp.MustCompile(`(?i)Bill\s+To\s+Ship\s+To`)
	shipBillHeaderRe  = regexp.MustCompile(`(?i)Ship\s+To\s+Bill\s+To`)
	shipSectionSkipRe = regexp.MustCompile(`(?i)^(shipping|ship\s+date|ship\s+via|tracking|tax|gst|po\s*#|invoice|date|terms|currency|notes)\b`)
	splitOnSectionRe  = regexp.MustCompile(`(?i)\s+(?:Bill|Sold|Customer)\s+To`)
	startsWithToRe    = regexp.MustCompile(`(?i)^(bill|ship)\s+to\b`)

	billToBlockRe   = regexp.MustCompile(`(?i)Bill\s*To\s*:?\s*(?:Ship\s*To\s*:?\s*)?\n\s*([A-Za-z][A-Za-z0-9 &\-./,]+)`)
	billToInlineRe  = regexp.MustCompile(`(?i)(?:Bill\s+)?To\s*:\s*([A-Za-z][A-Za-z0-9 &\-./]+?)(?:\s+Dealer|\s+Ship|\n)`)
	customerColonRe = regexp.MustCompile(`(?i)Customer\s*:\s*([A-Za-z][A-Za-z0-9 &\-.]+)`)
	customerIDRe    = regexp.MustCompile(`(?i)Customer\s+\d+\s+([A-Za-z][A-Za-z0-9 &\-.]+)`)
	billedToRe      = regexp.MustCompile(`(?i)(?:Billed\s+To|Invoice\s+To)[:\s]+([A-Za-z][A-Za-z0-9 &\-.]+)`)
	customerCodeRe  = regexp.MustCompile(`^[A-Z]{2,5}\d+$`)
)

// nameAfterCustomer returns the trailing contact/project name after a
// known customer phrase, with repeated DBA and entity prefixes peeled
// off.
func nameAfterCustomer(line string) string {
	if line == "" {
		return ""
	}
	lower := strings.ToLower(line)
	for _, cust := range customerPhrases {
		idx := strings.Index(lower, cust)
		if idx < 0 {
			continue
		}
		trailing := strings.TrimSpace(line[idx+len(cust):])
		trailing = strings.TrimSpace(leadingNonAlphaRe.ReplaceAllString(trailing, ""))
		trailing = strings.TrimSpace(multiSpaceRe.ReplaceAllString(trailing, " "))
		for {
			cleaned := strings.TrimSpace(dbaPrefixRe.ReplaceAllString(trailing, ""))
			cleaned = strings.TrimSpace(entityPrefixRe.ReplaceAllString(cleaned, ""))
			cleaned = strings.TrimSpace(leadingNonAlphaRe.ReplaceAllString(cleaned, ""))
			if m := lastToRe.FindStringSubmatch(cleaned); m != nil {
				cleaned = strings.TrimSpace(m[1])
			}
			if cleaned == trailing {
				break
			}
			trailing = cleaned
		}
		if trailing != "" {
			return trailing
		}
	}
	return ""
}

// contactBeforeCustomer returns a leading contact name that precedes a
// known customer phrase on the same line.
func contactBeforeCustomer(line string) string {
	if line == "" {
		return ""
	}
	lower := strings.ToLower(line)
	earliest := -1
	for _, cust := range customerPhrases {
		idx := strings.Index(lower, cust)
		if idx > 0 && (earliest < 0 || idx < earliest) {
			earliest = idx
		}
	}
	if earliest < 0 {
		return ""
	}
	candidate := strings.TrimSpace(line[:earliest])
	candidate = strings.TrimSpace(shipToPrefixRe.ReplaceAllString(candidate, ""))
	if candidate != "" && len(strings.Fields(candidate)) >= 2 {
		return candidate
	}
	return ""
}

// sanitizeCustomer strips Bill To / Ship To prefixes, label-only values
// and address tails from a raw customer candidate.
func sanitizeCustomer(candidate string) string {
	if candidate == "" {
		return ""
	}
	cleaned := strings.TrimSpace(toPrefixRe.ReplaceAllString(candidate, ""))
	if labelOnlyRe.MatchString(cleaned) {
		return ""
	}
	if m := lastToRe.FindStringSubmatch(cleaned); m != nil {
		cleaned = strings.TrimSpace(m[1])
	}
	cleaned = strings.TrimSpace(wideGapRe.Split(cleaned, 2)[0])
	cleaned = strings.TrimSpace(addressTailRe.ReplaceAllString(cleaned, ""))
	if trailing := nameAfterCustomer(cleaned); trailing != "" {
		return trailing
	}
	return cleaned
}

func isKnownCustomer(name string) bool {
	lower := strings.ToLower(strings.TrimSpace(name))
	for _, c := range vendors.KnownCustomers {
		if lower == c {
			return true
		}
	}
	return false
}

// ExtractShipToName pulls the ship-to contact used as the record's
// customer/project name.
func ExtractShipToName(text string) string {
	if text == "" {
		return ""
	}
	lines := strings.Split(text, "\n")

	for _, line := range lines {
		m := shipToInlineRe.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		name := sanitizeCustomer(strings.TrimSpace(m[1]))
		name = strings.TrimSpace(splitOnSectionRe.Split(name, 2)[0])
		if startsWithToRe.MatchString(name) {
			continue
		}
		if name != "" && !isKnownCustomer(name) {
			return name
		}
	}

	for idx, line := range lines {
		if !billShipHeaderRe.MatchString(line) {
			continue
		}
		for j := idx + 1; j < len(lines) && j < idx+6; j++ {
			candidate := strings.TrimSpace(lines[j])
			if candidate == "" {
				continue
			}
			if name := nameAfterCustomer(candidate); name != "" {
				return name
			}
		}
		for j := idx + 1; j < len(lines) && j < idx+6; j++ {
			candidate := strings.TrimSpace(lines[j])
			if candidate == "" {
				continue
			}
			if name := sanitizeCustomer(candidate); name != "" {
				return name
			}
			break
		}
	}

	for idx, line := range lines {
		if !shipBillHeaderRe.MatchString(line) {
			continue
		}
		for j := idx + 1; j < len(lines) && j < idx+6; j++ {
			candidate := strings.TrimSpace(lines[j])
			if candidate == "" {
				continue
			}
			if shipSectionSkipRe.MatchString(candidate) {
				continue
			}
			if contact := contactBeforeCustomer(candidate); contact != "" {
				return contact
			}
			if name := sanitizeCustomer(candidate); name != "" {
				return name
			}
			break
		}
	}

	for _, line := range lines {
		if name := nameAfterCustomer(line); name != "" {
			return name
		}
	}
	return ""
}

// ExtractCustomer resolves the billed-to customer name.
func ExtractCustomer(text string) string {
	if name := ExtractShipToName(text); name != "" && !isKnownCustomer(name) {
		return name
	}

	if m := billToBlockRe.FindStringSubmatch(text); m != nil {
		customer := sanitizeCustomer(strings.TrimSpace(m[1]))
		lower := strings.ToLower(customer)
		if len(customer) >= 3 && lower != "ship to" && lower != "ship to:" {
			return customer
		}
	}
	if m := billToInlineRe.FindStringSubmatch(text); m != nil {
		customer := sanitizeCustomer(strings.TrimSpace(m[1]))
		if len(customer) >= 3 && strings.ToLower(customer) != "ship to" {
			return customer
		}
	}
	if m := customerColonRe.FindStringSubmatch(text); m != nil {
		customer := sanitizeCustomer(strings.TrimSpace(m[1]))
		if len(customer) >= 3 && !customerCodeRe.MatchString(customer) {
			return customer
		}
	}
	if m := customerIDRe.FindStringSubmatch(text); m != nil {
		customer := sanitizeCustomer(strings.TrimSpace(m[1]))
		if len(customer) >= 3 {
			return customer
		}
	}
	if m := billedToRe.FindStringSubmatch(text); m != nil {
		customer := sanitizeCustomer(strings.TrimSpace(m[1]))
		if len(customer) >= 3 {
			return customer
		}
	}
	return ""
}
