package parse

import (
	"testing"

	"github.com/dpp-tools/invoice-audit/internal/vendors"
)

const sampleInvoice = `S&B Filters
15461 Slover Avenue
Fontana CA 92337

Invoice #: IN-48213
Date: 01/15/2024
Terms: Net 30
P.O. Number 37305

Bill To:
Diesel Power Products
715 N Cedar St

Item        Qty    Unit Price    Amount
76-1015     1      389.00        389.00
FREIGHT     1      25.00         25.00

Subtotal           414.00
Total Due          414.00
`

func TestParseSampleInvoice(t *testing.T) {
	table := vendors.NewTable(
		[]string{"S&B"},
		map[string][]string{"S&B": {"S&B Filters", "15461 Slover Avenue"}},
	)
	p := NewParser(table, nil)
	rec := p.Parse(sampleInvoice, "invoice_from_sb_48213.pdf")

	if rec.Vendor != "S&B" {
		t.Errorf("Vendor = %q, want S&B", rec.Vendor)
	}
	if rec.InvoiceNumber != "IN-48213" {
		t.Errorf("InvoiceNumber = %q, want IN-48213", rec.InvoiceNumber)
	}
	if rec.PONumber != "37305" {
		t.Errorf("PONumber = %q, want 37305", rec.PONumber)
	}
	if rec.Terms != "Net 30" {
		t.Errorf("Terms = %q, want Net 30", rec.Terms)
	}
	if rec.Total != "414.00" {
		t.Errorf("Total = %q, want 414.00", rec.Total)
	}
	if len(rec.LineItems) != 2 {
		t.Fatalf("line items = %d, want 2", len(rec.LineItems))
	}
	if rec.LineItems[0].ItemNumber != "76-1015" || rec.LineItems[0].Quantity != "1" {
		t.Errorf("first item = %+v", rec.LineItems[0])
	}
	if !rec.LineItems[1].IsFreight {
		t.Error("freight row not classified")
	}
}

func TestParseVendorFallsBackToFilename(t *testing.T) {
	p := NewParser(vendors.Empty(), nil)
	rec := p.Parse("Invoice # 555\nTotal Due 10.00\n", "scan_from_Thoroughbred_Diesel_555.pdf")
	if rec.Vendor != "Thoroughbred Diesel" {
		t.Errorf("Vendor = %q, want filename fallback", rec.Vendor)
	}
}

func TestExtractLineItemsSkipsNonItemBlocks(t *testing.T) {
	// the address block is the largest table on the page but carries no
	// header; the item table further down must still be found
	text := "Remit To:               Questions:\n" +
		"DPP Billing             billing@dpp.example\n" +
		"PO Box 880              (509) 555-0144\n" +
		"Spokane WA              Mon-Fri 8-5\n" +
		"\n" +
		"Part Number    Description        Qty    U/M     Unit Price    Amount\n" +
		"76-1015        Cold Air Intake    2      Pair    150.00        300.00\n"

	p := NewParser(vendors.Empty(), nil)
	items := p.ExtractLineItems(text, "Industrial Injection")
	if len(items) != 1 {
		t.Fatalf("items = %d, want 1", len(items))
	}
	if items[0].ItemNumber != "76-1015" || items[0].Quantity != "2" {
		t.Errorf("item = %+v", items[0])
	}
	// the unit of measure only survives through the table path
	if items[0].Units != "Pair" {
		t.Errorf("Units = %q, want Pair", items[0].Units)
	}
}

func TestIsMergedTableVendor(t *testing.T) {
	table := vendors.NewTable([]string{"S&B"}, map[string][]string{"S&B": {"S&B Filters"}})
	p := NewParser(table, nil)
	tests := []struct {
		name string
		want bool
	}{
		{"S&B", true},
		{"s and b", true},
		{"S&B Filters", true},
		{"Industrial Injection", false},
		{"", false},
	}
	for _, tt := range tests {
		if got := p.isMergedTableVendor(tt.name); got != tt.want {
			t.Errorf("isMergedTableVendor(%q) = %v, want %v", tt.name, got, tt.want)
		}
	}
}
