package recon

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/dpp-tools/invoice-audit/constants"
	"github.com/dpp-tools/invoice-audit/internal/vendors"
)

// Status is the ternary outcome of validating one row.
type Status int

const (
	StatusValid Status = iota
	StatusInvalid
	StatusNotApplicable
)

func (s Status) String() string {
	switch s {
	case StatusValid:
		return "valid"
	case StatusInvalid:
		return "invalid"
	default:
		return "not_applicable"
	}
}

// ValidationResult reports one row's comparison outcome with
// human-readable reasons for every disagreeing field.
type ValidationResult struct {
	Status       Status
	FailedFields []string
}

func (r ValidationResult) OK() bool { return r.Status != StatusInvalid }

// Row is one exported invoice line as the comparator sees it.
type Row struct {
	SKU            string
	ProductService string
	Description    string
	Qty            string
	Rate           string
	Amount         string
	Vendor         string
	Category       string
}

var (
	qtyTolerance   = decimal.NewFromFloat(0.01)
	priceTolerance = decimal.NewFromFloat(0.02)
)

// Comparator validates invoice rows against a matched external record.
type Comparator struct {
	vendors *vendors.Table
}

func NewComparator(table *vendors.Table) *Comparator {
	if table == nil {
		table = vendors.Empty()
	}
	return &Comparator{vendors: table}
}

// VendorOK reports whether the invoice vendor, or any of its aliases,
// agrees with the matched record's vendor. The vendor lives on the
// bill header, so this runs once per purchase order, not per row.
func (c *Comparator) VendorOK(detail *Detail, vendor string) bool {
	vendor = strings.TrimSpace(vendor)
	if vendor == "" {
		return true
	}
	for _, candidate := range append([]string{vendor}, c.vendors.AliasesFor(vendor)...) {
		if candidate == "" {
			continue
		}
		if VendorsMatch(candidate, detail.Vendor.Name) {
			return true
		}
	}
	return false
}

// Validate compares one invoice row against the matched record's line
// items. Shipping rows, non-SKU labels and rows without an identifier
// are not applicable. A row whose SKU has no counterpart fails hard;
// otherwise quantity, unit price and amount are compared independently
// within tolerances, and parse failures on non-empty invoice values
// are reported as their own reasons. The row's vendor only steers SKU
// normalization; the vendor agreement itself is VendorOK's job.
func (c *Comparator) Validate(detail *Detail, row Row) ValidationResult {
	sku := strings.TrimSpace(row.SKU)
	if sku == "" {
		sku = strings.TrimSpace(row.ProductService)
	}

	if row.Category == constants.FreightCategory || row.Category == "Freight/Shipping" {
		return ValidationResult{Status: StatusNotApplicable}
	}
	if IsNonSKULabel(sku) {
		return ValidationResult{Status: StatusNotApplicable}
	}
	if sku == "" {
		return ValidationResult{Status: StatusNotApplicable}
	}

	var failed []string

	invoiceNorm := NormalizeSKU(sku, row.Vendor)
	var match *ExternalItem
	for i := range detail.Items {
		if SKUsMatch(invoiceNorm, NormalizeSKU(detail.Items[i].SKU, row.Vendor)) {
			match = &detail.Items[i]
			break
		}
	}
	if match == nil {
		failed = append(failed, "SKU (not found)")
		return ValidationResult{Status: StatusInvalid, FailedFields: failed}
	}

	failed = append(failed, compareNumeric("Qty", row.Qty, match.Quantity.String(), qtyTolerance)...)
	failed = append(failed, compareNumeric("Price", row.Rate, match.Price.String(), priceTolerance)...)
	failed = append(failed, compareNumeric("Amount", row.Amount, match.TotalPrice.String(), priceTolerance)...)

	if len(failed) > 0 {
		return ValidationResult{Status: StatusInvalid, FailedFields: failed}
	}
	return ValidationResult{Status: StatusValid}
}

func compareNumeric(field, invoiceVal, externalVal string, tolerance decimal.Decimal) []string {
	cleaned := strings.NewReplacer(",", "", "$", "").Replace(strings.TrimSpace(invoiceVal))
	inv, err := decimal.NewFromString(cleaned)
	if err != nil {
		if strings.TrimSpace(invoiceVal) != "" {
			return []string{fmt.Sprintf("%s (parse error)", field)}
		}
		return nil
	}
	extCleaned := strings.ReplaceAll(strings.TrimSpace(externalVal), ",", "")
	if extCleaned == "" {
		extCleaned = "0"
	}
	ext, err := decimal.NewFromString(extCleaned)
	if err != nil {
		ext = decimal.Zero
	}
	if inv.Sub(ext).Abs().GreaterThan(tolerance) {
		return []string{fmt.Sprintf("%s (invoice:%s vs external:%s)", field, inv.String(), ext.String())}
	}
	return nil
}
