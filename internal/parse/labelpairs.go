package parse

import (
	"regexp"
	"strings"

	"github.com/dpp-tools/invoice-audit/internal/tables"
)

// pairFields holds values recovered from label-then-value layouts,
// where a row of labels is followed by a row of values.
type pairFields struct {
	InvoiceNumber string
	Date          string
	DueDate       string
	PONumber      string
	Terms         string
	SONumber      string
}

func (f *pairFields) setInvoiceNumber(v string) {
	if f.InvoiceNumber == "" {
		f.InvoiceNumber = v
	}
}
func (f *pairFields) setDate(v string) {
	if f.Date == "" {
		f.Date = v
	}
}
func (f *pairFields) setDueDate(v string) {
	if f.DueDate == "" {
		f.DueDate = v
	}
}
func (f *pairFields) setPONumber(v string) {
	if f.PONumber == "" {
		f.PONumber = v
	}
}
func (f *pairFields) setTerms(v string) {
	if f.Terms == "" {
		f.Terms = v
	}
}
func (f *pairFields) setSONumber(v string) {
	if f.SONumber == "" {
		f.SONumber = v
	}
}

var (
	dateInvoiceLabelRe = regexp.MustCompile(`(?i)^Date\s+Invoice\s*#`)
	dateInvoiceValRe   = regexp.MustCompile(`^(\d{1,2}/\d{1,2}/\d{2,4}|\d{4}-\d{2}-\d{2})\s+\S+`)
	twoTokensRe        = regexp.MustCompile(`^(\S+)\s+(\S+)`)

	invDueLabelRe = regexp.MustCompile(`(?i)^Invoice\s+Date\s+Due\s+Date`)
	invDueValRe   = regexp.MustCompile(`^\d{1,2}/\d{1,2}/\d{2,4}\s+\d{1,2}/\d{1,2}/\d{2,4}\s+\S+`)

	poDateLabelRe = regexp.MustCompile(`(?i)^PO\s+Date\s+PO\s*#`)
	poDateValRe   = regexp.MustCompile(`^\d{1,2}/\d{1,2}/\d{2,4}\s+\S+`)

	poNoTermsLabelRe = regexp.MustCompile(`(?i)^P\.?O\.?\s+No\.?\s+Terms`)
	poNoTermsValRe   = regexp.MustCompile(`^\d+\s+\S+`)

	poNumTermsLabelRe = regexp.MustCompile(`(?i)^P\.?O\.?\s+Number\s+Terms`)
	leadingDigitsRe   = regexp.MustCompile(`^\d+\b`)

	dateShipViaLabelRe = regexp.MustCompile(`(?i)^Date\s+Ship\s+Via`)
	dateShipViaValRe   = regexp.MustCompile(`^(\d{4}-\d{2}-\d{2}|\d{1,2}/\d{1,2}/\d{2,4})\s+\S+`)

	purchaseOrderLabelRe = regexp.MustCompile(`(?i)^Purchase\s+Order\s+Number`)
	customerPOLabelRe    = regexp.MustCompile(`(?i)^Customer\s+PO#`)

	soNoLabelRe = regexp.MustCompile(`(?i)^SO\s+No\.?\s+Customer\s+PO`)
	soNoValRe   = regexp.MustCompile(`^\d+\s+\d+`)
)

// extractLinePairFields scans for known label rows and reads the
// matching value row within the next few lines.
func extractLinePairFields(text string) pairFields {
	var fields pairFields
	lines := strings.Split(text, "\n")

	nextMatching := func(start int, re *regexp.Regexp) string {
		for j := 1; j <= 3; j++ {
			if start+j >= len(lines) {
				break
			}
			cand := strings.TrimSpace(lines[start+j])
			if cand == "" {
				continue
			}
			if re.MatchString(cand) {
				return cand
			}
		}
		return ""
	}

	for i, line := range lines {
		stripped := strings.TrimSpace(line)

		if dateInvoiceLabelRe.MatchString(stripped) {
			if next := nextMatching(i, dateInvoiceValRe); next != "" {
				if m := twoTokensRe.FindStringSubmatch(next); m != nil {
					fields.setDate(m[1])
					fields.setInvoiceNumber(m[2])
				}
			}
		}

		if invDueLabelRe.MatchString(stripped) {
			if next := nextMatching(i, invDueValRe); next != "" {
				parts := strings.Fields(next)
				if len(parts) >= 4 {
					fields.setDate(parts[0])
					fields.setDueDate(parts[1])
					fields.setInvoiceNumber(parts[len(parts)-1])
				}
			}
		}

		if poDateLabelRe.MatchString(stripped) {
			if next := nextMatching(i, poDateValRe); next != "" {
				parts := strings.Fields(next)
				if len(parts) >= 2 {
					fields.setPONumber(parts[1])
				}
			}
		}

		if poNoTermsLabelRe.MatchString(stripped) {
			if next := nextMatching(i, poNoTermsValRe); next != "" {
				parts := strings.Fields(next)
				if len(parts) >= 2 {
					fields.setPONumber(parts[0])
					fields.setTerms(parts[1])
				}
			}
		}

		if poNumTermsLabelRe.MatchString(stripped) {
			if next := nextMatching(i, leadingDigitsRe); next != "" {
				parts := strings.Fields(next)
				if len(parts) > 0 {
					fields.setPONumber(parts[0])
				}
			}
		}

		if dateShipViaLabelRe.MatchString(stripped) {
			if next := nextMatching(i, dateShipViaValRe); next != "" {
				parts := strings.Fields(next)
				if len(parts) > 0 {
					fields.setDate(parts[0])
				}
				if len(parts) >= 4 {
					fields.setTerms(parts[len(parts)-1])
				}
			}
		}

		if purchaseOrderLabelRe.MatchString(stripped) || customerPOLabelRe.MatchString(stripped) {
			if next := nextMatching(i, leadingDigitsRe); next != "" {
				parts := strings.Fields(next)
				if len(parts) > 0 {
					fields.setPONumber(parts[0])
				}
			}
		}

		if soNoLabelRe.MatchString(stripped) {
			if next := nextMatching(i, soNoValRe); next != "" {
				parts := strings.Fields(next)
				if len(parts) >= 2 {
					fields.setInvoiceNumber(parts[0])
					fields.setPONumber(parts[1])
				}
			}
		}
	}
	return fields
}

var startsWithDigitRe = regexp.MustCompile(`^\d`)

// extractTableFields reads label/value header tables, the kind that put
// "Date | Invoice #" in one row and the values in the next.
func extractTableFields(tbls []tables.Table) pairFields {
	var fields pairFields

	for _, t := range tbls {
		if len(t) < 2 {
			continue
		}
		for rowIdx := 0; rowIdx+1 < len(t); rowIdx++ {
			row := t[rowIdx]
			values := t[rowIdx+1]
			if len(row) == 0 || len(values) == 0 {
				continue
			}
			for colIdx, cell := range row {
				if colIdx >= len(values) {
					continue
				}
				header := strings.ToLower(strings.TrimSpace(cell))
				val := strings.TrimSpace(values[colIdx])
				if header == "" || val == "" {
					continue
				}
				switch header {
				case "invoice #", "invoice#", "invoice number":
					fields.setInvoiceNumber(val)
				case "date", "invoice date":
					if startsWithDigitRe.MatchString(val) {
						fields.setDate(val)
					}
				case "due date":
					fields.setDueDate(val)
				case "po #", "p.o. no.", "p.o. number", "po number",
					"purchase order number", "customer po", "customer po#":
					if startsWithDigitRe.MatchString(val) {
						fields.setPONumber(val)
					}
				case "terms", "payment terms":
					fields.setTerms(val)
				case "so no.", "so no", "so number":
					fields.setSONumber(val)
				}
			}
		}
	}
	return fields
}

func (f *pairFields) merge(other pairFields) {
	if other.InvoiceNumber != "" {
		f.setInvoiceNumber(other.InvoiceNumber)
	}
	if other.Date != "" {
		f.setDate(other.Date)
	}
	if other.DueDate != "" {
		f.setDueDate(other.DueDate)
	}
	if other.PONumber != "" {
		f.setPONumber(other.PONumber)
	}
	if other.Terms != "" {
		f.setTerms(other.Terms)
	}
	if other.SONumber != "" {
		f.setSONumber(other.SONumber)
	}
}
