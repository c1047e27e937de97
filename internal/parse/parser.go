package parse

import (
	"log/slog"
	"regexp"

	"github.com/dpp-tools/invoice-audit/internal/invoice"
	"github.com/dpp-tools/invoice-audit/internal/tables"
	"github.com/dpp-tools/invoice-audit/internal/vendors"
)

// Parser resolves extracted document text into a normalized invoice
// record.
type Parser struct {
	vendors  *vendors.Table
	detector *VendorDetector
	logger   *slog.Logger
}

func NewParser(table *vendors.Table, logger *slog.Logger) *Parser {
	if table == nil {
		table = vendors.Empty()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Parser{
		vendors:  table,
		detector: NewVendorDetector(table),
		logger:   logger,
	}
}

var sandbKeyRe = regexp.MustCompile(`sandb`)

// isMergedTableVendor reports whether the vendor's tables stack
// continuation text in the identifier column, which needs the merged
// row expansion.
func (p *Parser) isMergedTableVendor(name string) bool {
	check := func(n string) bool {
		key := vendors.NormalizeKey(n)
		if key == "" {
			return false
		}
		return key == "sb" || key == "sbandb" || sandbKeyRe.MatchString(key)
	}
	if check(name) {
		return true
	}
	return check(p.vendors.Canonicalize(name))
}

// ExtractLineItems pulls line items table-first with text fallback and
// normalizes quantities.
func (p *Parser) ExtractLineItems(text, vendorName string) []invoice.LineItem {
	merged := p.isMergedTableVendor(vendorName)

	var items []invoice.LineItem
	for _, t := range tables.Blocks(text) {
		if items = tables.ExtractItems(t, tables.Options{MergeContinuations: merged}); len(items) > 0 {
			break
		}
	}
	if len(items) == 0 {
		items = ExtractItemsFromText(text)
	}
	for i := range items {
		items[i].Quantity = invoice.NormalizeQuantity(items[i].Quantity)
	}
	return items
}

// Parse resolves all fields of the record from text. sourceFile is kept
// for reporting and used as a vendor fallback when the text itself
// names none.
func (p *Parser) Parse(text, sourceFile string) *invoice.Record {
	tableFields := extractTableFields(tables.Blocks(text))
	fields := extractLinePairFields(text)
	fields.merge(tableFields)

	rec := &invoice.Record{
		SourceFile: sourceFile,
		RawText:    text,
	}

	rec.InvoiceNumber = firstMatch(text, invoiceNumberPatterns)
	if rec.InvoiceNumber == "" {
		rec.InvoiceNumber = fields.InvoiceNumber
	}
	if rec.InvoiceNumber == "" {
		// sales-order number stands in when the vendor invoices by SO
		rec.InvoiceNumber = fields.SONumber
	}

	rec.Vendor = p.detector.Detect(text)
	rec.VendorAddress = ExtractVendorAddress(text)
	rec.Customer = ExtractCustomer(text)

	rec.Date = parseDate(text)
	if rec.Date == "" {
		rec.Date = fields.Date
	}
	rec.DueDate = firstMatch(text, dueDatePatterns)
	if rec.DueDate == "" {
		rec.DueDate = fields.DueDate
	}
	rec.Terms = firstMatch(text, termsPatterns)
	if rec.Terms == "" {
		rec.Terms = fields.Terms
	}
	rec.PONumber = firstMatch(text, poNumberPatterns)
	if rec.PONumber == "" {
		rec.PONumber = fields.PONumber
	}

	rec.TrackingNumber = firstMatch(text, trackingPatterns)
	rec.ShippingMethod = firstMatch(text, shipMethodPatterns)
	rec.ShipDate = firstMatch(text, shipDatePatterns)
	rec.ShippingTaxCode = firstMatch(text, shippingTaxCodePatterns)
	rec.ShippingTaxRate = firstMatch(text, shippingTaxRatePatterns)
	rec.Subtotal = firstMatch(text, subtotalPatterns)

	rec.ShippingCost = firstMatch(text, shippingCostPatterns)
	if rec.ShippingCost != "" && dropShipAnyRe.MatchString(text) {
		rec.ShippingDesc = "Drop Ship"
	}

	rec.Total = ExtractTotal(text)
	if rec.Total == "" {
		rec.Total = firstMatch(text, totalFallbackPatterns)
	}

	rec.LineItems = p.ExtractLineItems(text, rec.Vendor)
	for i := range rec.LineItems {
		invoice.Classify(&rec.LineItems[i])
	}
	if rec.ShippingDesc == "" {
		for i := range rec.LineItems {
			li := &rec.LineItems[i]
			if !li.IsFreight {
				continue
			}
			switch {
			case li.Description != "":
				rec.ShippingDesc = li.Description
			case li.ItemNumber != "":
				rec.ShippingDesc = li.ItemNumber
			default:
				rec.ShippingDesc = "Freight"
			}
			break
		}
	}

	if rec.Vendor == "" {
		rec.Vendor = InferVendorFromFilename(sourceFile)
	}
	rec.Vendor = p.detector.Canonicalize(rec.Vendor)

	p.logger.Debug("parsed document",
		"file", sourceFile,
		"fields", rec.FilledFieldCount(),
		"line_items", len(rec.LineItems))
	return rec
}

