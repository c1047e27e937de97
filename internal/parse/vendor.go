package parse

import (
	"path/filepath"
	"regexp"
	"strings"

	"github.com/dpp-tools/invoice-audit/internal/vendors"
)

// domainVendors maps bare web domains seen in invoice footers to the
// issuing company.
var domainVendors = map[string]string{
	"turn14":              "Turn 14 Distribution",
	"fleeceperformance":   "Fleece Performance",
	"industrialinjection": "Industrial Injection Service, Inc.",
}

var (
	remitToRe     = regexp.MustCompile(`(?i)(?:Remit|Pay)\s+To\s*:\s*([A-Za-z][A-Za-z0-9 &\-.,]+?)(?:\n|\d)`)
	paymentAddrRe = regexp.MustCompile(`(?i)Payment\s+Address\s*:\s*\n?\s*([A-Za-z][A-Za-z0-9 &\-.,]+?)(?:\n|$)`)
	domainRe      = regexp.MustCompile(`(?i)\b(?:www\.)?([A-Za-z0-9\-]+)\.(?:com|net|org)\b`)
	thankYouRe    = regexp.MustCompile(`(?i)thank\s+you\s+for\s+choosing\s+([A-Za-z][A-Za-z0-9 &\-]+?)(?:\.|$)`)
	filenameRe    = regexp.MustCompile(`(?i)from_([A-Za-z0-9_\-]+)`)
	trailingNumRe = regexp.MustCompile(`_[0-9]+$`)
	multiSpaceRe  = regexp.MustCompile(`\s+`)
	emailLocalRe  = regexp.MustCompile(`@[A-Za-z0-9\-]+\.(?:com|net|org)\b`)
)

// VendorDetector resolves the issuing company of an invoice; the vendor
// is who gets paid, never the billed customer.
type VendorDetector struct {
	table *vendors.Table
}

func NewVendorDetector(table *vendors.Table) *VendorDetector {
	if table == nil {
		table = vendors.Empty()
	}
	return &VendorDetector{table: table}
}

// Detect applies the vendor cascade:
//  1. digit-bearing address alias anywhere in the text
//  2. "Remit To" / "Pay To" lines
//  3. "Payment Address:" sections
//  4. any alias-table name appearing in the text
//  5. the letterhead scan
//  6. web domains mapped to known companies
//  7. "Thank you for choosing X"
func (d *VendorDetector) Detect(text string) string {
	if v := d.table.FindByAddressAlias(text); v != "" {
		return v
	}

	if m := remitToRe.FindStringSubmatch(text); m != nil {
		v := strings.TrimRight(strings.TrimSpace(m[1]), ",.")
		if vendors.ValidateName(v) {
			return v
		}
	}
	if m := paymentAddrRe.FindStringSubmatch(text); m != nil {
		v := strings.TrimRight(strings.TrimSpace(m[1]), ",.")
		if vendors.ValidateName(v) {
			return v
		}
	}

	if v := d.table.FindInText(text); v != "" {
		return v
	}

	if v := vendorFromLetterhead(text); v != "" {
		return v
	}

	if v := vendorFromDomain(text); v != "" {
		return v
	}

	if m := thankYouRe.FindStringSubmatch(text); m != nil {
		v := strings.TrimSpace(m[1])
		if vendors.ValidateName(v) {
			return v
		}
	}

	return ""
}

// Canonicalize maps a detected name onto its canonical table entry,
// passing unknown names through unchanged.
func (d *VendorDetector) Canonicalize(name string) string {
	return d.table.Canonicalize(name)
}

func vendorFromDomain(text string) string {
	// strip e-mail addresses so their domains don't pose as web sites
	cleaned := emailLocalRe.ReplaceAllString(text, "")
	m := domainRe.FindStringSubmatch(cleaned)
	if m == nil {
		return ""
	}
	domain := strings.ToLower(m[1])
	if v, ok := domainVendors[domain]; ok {
		return v
	}
	if len(domain) >= 4 {
		fullName := regexp.MustCompile(`(?i)(` + regexp.QuoteMeta(domain[:4]) +
			`[A-Za-z0-9 \-]+(?:Distribution|Inc\.?|LLC|Corp\.?|Ltd\.?)?)`)
		if fm := fullName.FindStringSubmatch(text); fm != nil {
			v := strings.TrimSpace(fm[1])
			if vendors.ValidateName(v) && len(v) > 3 {
				return v
			}
		}
	}
	return ""
}

// InferVendorFromFilename recovers a vendor name from a
// "...from_Vendor_Name_123.pdf" style filename when the text has none.
func InferVendorFromFilename(filename string) string {
	if filename == "" {
		return ""
	}
	base := strings.TrimSuffix(filepath.Base(filename), filepath.Ext(filename))
	m := filenameRe.FindStringSubmatch(base)
	if m == nil {
		return ""
	}
	raw := trailingNumRe.ReplaceAllString(m[1], "")
	v := strings.NewReplacer("_", " ", "-", " ").Replace(raw)
	v = strings.TrimSpace(multiSpaceRe.ReplaceAllString(v, " "))
	v = titleCase(strings.ToLower(v))
	if vendors.ValidateName(v) {
		return v
	}
	return ""
}

func titleCase(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		if w[0] >= 'a' && w[0] <= 'z' {
			words[i] = string(w[0]-('a'-'A')) + w[1:]
		}
	}
	return strings.Join(words, " ")
}

var (
	companySuffixRe = regexp.MustCompile(`(?i)(?:Inc\.?|LLC|Corp\.?|Ltd\.?|Co\.?|Enterprises|Service|Engineering|Distribution|Distributing|Performance|Motorsports|Fabrication)`)
	billToPosRe     = regexp.MustCompile(`(?i)(?:Bill|Sold|Ship)\s+To`)
	fieldLabelRe    = regexp.MustCompile(`(?i)^(?:Invoice|Date|PO|P\.O\.|Terms|Page|Customer|Phone|Fax|Tel|Tax|Ship|Due)\b`)
	streetRe        = regexp.MustCompile(`(?i)(Ave|Avenue|St|Street|Rd|Road|Blvd|Dr|Drive|Way|Ln|Lane|Ct|Court|Ste|Suite|Commerce|Main)`)
	leadingNumRe    = regexp.MustCompile(`^\d+\s+`)
	cityStateZipRe  = regexp.MustCompile(`^[A-Za-z][A-Za-z\s]+,\s*[A-Z]{2}\s+\d{5}`)
	stateZipRe      = regexp.MustCompile(`[A-Z]{2}\s+\d{5}`)
	bareCityZipRe   = regexp.MustCompile(`^[A-Za-z][A-Za-z\s]+\s+[A-Z]{2}\s+\d{5}(?:-\d{4})?$`)
	phoneishRe      = regexp.MustCompile(`^[\d()\-\s]{7,}$`)
	phoneParenRe    = regexp.MustCompile(`\(\d{3}\)\s*\d{3}[-.]\d{4}`)
	phoneDashRe     = regexp.MustCompile(`^\d{3}[-.]\d{3,4}[-.]\d{4}`)
	bareDateRe      = regexp.MustCompile(`^(?:Date\s+)?\d{1,2}/\d{1,2}/\d{2,4}$`)
	bareNumberRe    = regexp.MustCompile(`^[A-Z]?-?\d+$`)
	moneyTokenRe    = regexp.MustCompile(`\$|\d+\.\d{2}\b`)
	customerLineRe  = regexp.MustCompile(`(?i)^Customer\s*:`)
	poLineRe        = regexp.MustCompile(`(?i)^PO\s*#`)
	trailingLabelRe = regexp.MustCompile(`(?i)\s+(?:Date|Invoice|Page)\s*:?\s*\S*.*$`)
	trailingInvRe   = regexp.MustCompile(`(?i)\s+Invoice\s*$`)
	sectionHeadRe   = regexp.MustCompile(`(?i)^(?:Bill|Ship|Sold|Invoice|Date|Terms|Page|PO|Customer)\s`)
	upperLetterRe   = regexp.MustCompile(`[A-Z]`)
)

// vendorFromLetterhead scans the top of the document, above any
// Bill To / Ship To section, for a line that reads like a company name
// rather than an address, phone number, date or field label.
func vendorFromLetterhead(text string) string {
	header := text
	if loc := billToPosRe.FindStringIndex(text); loc != nil {
		header = text[:loc[0]]
	} else if len(header) > 500 {
		header = header[:500]
	}

	lines := strings.Split(header, "\n")
	if len(lines) > 10 {
		lines = lines[:10]
	}
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if len(line) < 3 {
			continue
		}
		lower := strings.ToLower(line)
		hasSuffix := companySuffixRe.MatchString(line)

		if containsNonVendorWord(lower) && !hasSuffix {
			continue
		}
		switch lower {
		case "invoice", "sales order", "credit memo", "usa":
			continue
		}
		if fieldLabelRe.MatchString(line) {
			continue
		}
		if leadingNumRe.MatchString(line) && streetRe.MatchString(line) {
			continue
		}
		if cityStateZipRe.MatchString(line) ||
			(stateZipRe.MatchString(line) && strings.Contains(line, ",") && len(line) < 40) ||
			bareCityZipRe.MatchString(line) {
			continue
		}
		if phoneishRe.MatchString(line) || phoneParenRe.MatchString(line) || phoneDashRe.MatchString(line) {
			continue
		}
		if strings.Contains(line, "@") || strings.Contains(lower, "www.") ||
			strings.Contains(lower, "http") || strings.Contains(lower, ".com") {
			continue
		}
		if bareDateRe.MatchString(line) || bareNumberRe.MatchString(line) || moneyTokenRe.MatchString(line) {
			continue
		}
		if containsKnownCustomer(lower) {
			continue
		}
		if customerLineRe.MatchString(line) || poLineRe.MatchString(line) {
			continue
		}

		if hasSuffix {
			clean := strings.TrimSpace(trailingLabelRe.ReplaceAllString(line, ""))
			clean = strings.TrimSpace(trailingInvRe.ReplaceAllString(clean, ""))
			if vendors.ValidateName(clean) {
				return clean
			}
		}

		words := strings.Fields(line)
		if len(words) >= 2 {
			capitalized := true
			sawAlpha := false
			for _, w := range words {
				r := rune(w[0])
				if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') {
					sawAlpha = true
					if r >= 'a' && r <= 'z' {
						capitalized = false
					}
				}
			}
			if !sawAlpha {
				continue
			}
			allUpper := line == strings.ToUpper(line) && upperLetterRe.MatchString(line)
			if (capitalized || allUpper) && vendors.ValidateName(line) && !sectionHeadRe.MatchString(line) {
				return line
			}
		}
	}
	return ""
}

func containsNonVendorWord(lower string) bool {
	for word := range vendors.NonVendorWords {
		if strings.Contains(lower, word) {
			return true
		}
	}
	return false
}

func containsKnownCustomer(lower string) bool {
	for _, cust := range vendors.KnownCustomers {
		if strings.Contains(lower, cust) {
			return true
		}
	}
	return false
}

var (
	sbAddrRe      = regexp.MustCompile(`(?i)(15461\s+Slover\s+Avenue\s*\n\s*Fontana\s+CA\s+\d+)`)
	billToAnchor  = regexp.MustCompile(`(?i)(?:Bill|Sold)\s+To`)
	headerAddrRe  = regexp.MustCompile(`(?i)(\d+\s+[A-Za-z][A-Za-z0-9 .]+(?:Ave|St|Rd|Blvd|Dr|Way|Ln|Ct|Ste|Suite|Commerce)[A-Za-z0-9 .,]*\n\s*[A-Za-z]+[\w ,]+\d{5})`)
	newlineJoinRe = regexp.MustCompile(`\s*\n\s*`)
)

// ExtractVendorAddress pulls a street address from the letterhead area.
func ExtractVendorAddress(text string) string {
	if m := sbAddrRe.FindStringSubmatch(text); m != nil {
		return newlineJoinRe.ReplaceAllString(strings.TrimSpace(m[1]), ", ")
	}
	header := text
	if loc := billToAnchor.FindStringIndex(text); loc != nil {
		header = text[:loc[0]]
	} else if len(header) > 500 {
		header = header[:500]
	}
	if m := headerAddrRe.FindStringSubmatch(header); m != nil {
		return newlineJoinRe.ReplaceAllString(strings.TrimSpace(m[1]), ", ")
	}
	return ""
}
