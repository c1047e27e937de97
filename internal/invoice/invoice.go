// Package invoice defines the normalized record produced by parsing one
// vendor document, plus the value normalization and line-item classification
// shared by the parser, exporter, and reconciliation comparator.
package invoice

import "github.com/dpp-tools/invoice-audit/constants"

// Record is the resolved output of parsing one document. Monetary and
// quantity fields are either empty or normalized decimal strings: no currency
// symbols, no thousands separators. An empty field means "unresolved", which
// downstream consumers must treat distinctly from zero.
type Record struct {
	InvoiceNumber   string
	Vendor          string // canonical form once resolved against the alias table
	VendorAddress   string
	Customer        string
	Date            string
	DueDate         string
	Terms           string
	PONumber        string // join key for reconciliation
	TrackingNumber  string
	ShippingMethod  string
	ShipDate        string
	Subtotal        string
	ShippingCost    string
	ShippingDesc    string
	ShippingTaxCode string
	ShippingTaxRate string
	Total           string

	LineItems []LineItem

	SourceFile string
	RawText    string
}

// LineItem is one product or fee entry. The classification flags are
// independently computed predicates, not a mutually exclusive enum: a row may
// carry more than one.
type LineItem struct {
	ItemNumber  string // raw vendor SKU, may be empty
	Description string
	Quantity    string // integral values rendered without trailing ".00"
	UnitPrice   string
	Amount      string
	Units       string // defaults to constants.DefaultUnits

	IsFreight          bool
	IsDiscount         bool
	IsCore             bool
	IsEnvironmentalFee bool
}

// FilledFieldCount reports how many top-level fields were resolved, for
// status reporting. Line items, address and raw text are not counted.
func (r *Record) FilledFieldCount() int {
	fields := []string{
		r.InvoiceNumber, r.Vendor, r.Customer, r.Date, r.DueDate, r.Terms,
		r.PONumber, r.TrackingNumber, r.ShippingMethod, r.ShipDate,
		r.Subtotal, r.ShippingCost, r.Total,
	}
	n := 0
	for _, f := range fields {
		if f != "" {
			n++
		}
	}
	return n
}

// Category returns the expense category for an exported row.
func (li *LineItem) Category() string {
	if li.IsFreight {
		return constants.FreightCategory
	}
	return constants.PurchasesCategory
}

// ProductService returns the product/service label for an exported row; an
// empty string means the raw item number is used.
func (li *LineItem) ProductService() string {
	switch {
	case li.IsDiscount:
		return constants.ProductServiceDiscount
	case li.IsCore:
		return constants.ProductServiceCore
	case li.IsEnvironmentalFee:
		return constants.ProductServiceERE
	case li.IsFreight:
		return constants.ProductServiceShipping
	default:
		return ""
	}
}
