package recon

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/dpp-tools/invoice-audit/constants"
	"github.com/dpp-tools/invoice-audit/internal/vendors"
)

func sampleDetail() *Detail {
	return &Detail{
		ID:     "a",
		Label:  "37305",
		Vendor: VendorRef{Name: "S&B Filters"},
		Items: []ExternalItem{
			{SKU: "76-1015", Quantity: json.Number("2"), Price: json.Number("150.00"), TotalPrice: json.Number("300.00")},
			{SKU: "AS-1009", Quantity: json.Number("1"), Price: json.Number("45.50"), TotalPrice: json.Number("45.50")},
		},
	}
}

func TestValidateNotApplicableRows(t *testing.T) {
	c := NewComparator(nil)
	tests := []struct {
		name string
		row  Row
	}{
		{"core placeholder", Row{ProductService: "Core"}},
		{"ere placeholder", Row{ProductService: "ERE"}},
		{"discount placeholder", Row{ProductService: "DPP Discount"}},
		{"freight category", Row{SKU: "FREIGHT", Category: constants.FreightCategory}},
		{"no identifier at all", Row{Description: "see packing slip"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := c.Validate(sampleDetail(), tt.row)
			if res.Status != StatusNotApplicable {
				t.Fatalf("status = %s, want not_applicable", res.Status)
			}
			if len(res.FailedFields) != 0 {
				t.Fatalf("failed fields = %v, want none", res.FailedFields)
			}
		})
	}
}

func TestValidateAgreementWithinTolerance(t *testing.T) {
	c := NewComparator(nil)
	res := c.Validate(sampleDetail(), Row{
		SKU:    "76-1015",
		Qty:    "2",
		Rate:   "150.01",
		Amount: "300.02",
		Vendor: "S&B",
	})
	if res.Status != StatusValid {
		t.Fatalf("status = %s (failed: %v), want valid", res.Status, res.FailedFields)
	}
}

func TestValidateQuantityMismatch(t *testing.T) {
	c := NewComparator(nil)
	res := c.Validate(sampleDetail(), Row{
		SKU:    "76-1015",
		Qty:    "3",
		Rate:   "150.00",
		Amount: "300.00",
	})
	if res.Status != StatusInvalid {
		t.Fatalf("status = %s, want invalid", res.Status)
	}
	if len(res.FailedFields) != 1 || !strings.HasPrefix(res.FailedFields[0], "Qty") {
		t.Fatalf("failed fields = %v, want a single Qty reason", res.FailedFields)
	}
}

func TestValidatePriceBeyondTolerance(t *testing.T) {
	c := NewComparator(nil)
	res := c.Validate(sampleDetail(), Row{
		SKU:    "76-1015",
		Qty:    "2",
		Rate:   "150.05",
		Amount: "300.00",
	})
	if res.Status != StatusInvalid {
		t.Fatalf("status = %s, want invalid", res.Status)
	}
	if len(res.FailedFields) != 1 || !strings.HasPrefix(res.FailedFields[0], "Price") {
		t.Fatalf("failed fields = %v, want a single Price reason", res.FailedFields)
	}
}

func TestValidateParseError(t *testing.T) {
	c := NewComparator(nil)
	res := c.Validate(sampleDetail(), Row{
		SKU:    "76-1015",
		Qty:    "two",
		Rate:   "150.00",
		Amount: "300.00",
	})
	if res.Status != StatusInvalid {
		t.Fatalf("status = %s, want invalid", res.Status)
	}
	if len(res.FailedFields) != 1 || res.FailedFields[0] != "Qty (parse error)" {
		t.Fatalf("failed fields = %v, want [Qty (parse error)]", res.FailedFields)
	}
}

func TestValidateSKUNotFound(t *testing.T) {
	c := NewComparator(nil)
	res := c.Validate(sampleDetail(), Row{SKU: "ZZ-9999", Qty: "1", Rate: "10.00", Amount: "10.00"})
	if res.Status != StatusInvalid {
		t.Fatalf("status = %s, want invalid", res.Status)
	}
	if len(res.FailedFields) != 1 || res.FailedFields[0] != "SKU (not found)" {
		t.Fatalf("failed fields = %v, want [SKU (not found)]", res.FailedFields)
	}
}

func TestVendorOK(t *testing.T) {
	c := NewComparator(vendors.NewTable(
		[]string{"S&B"},
		map[string][]string{"S&B": {"S&B Filters"}},
	))
	tests := []struct {
		name   string
		vendor string
		want   bool
	}{
		{"containment match", "S and B Filters", true},
		{"short form", "S&B", true},
		{"mismatch", "Thoroughbred Diesel", false},
		{"empty vendor passes", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := c.VendorOK(sampleDetail(), tt.vendor); got != tt.want {
				t.Fatalf("VendorOK(%q) = %v, want %v", tt.vendor, got, tt.want)
			}
		})
	}
}

func TestValidateRowVendorDoesNotFailTheRow(t *testing.T) {
	// the per-bill vendor check is VendorOK's; a row agreeing on its
	// numbers stays valid even when the bill vendor disagrees
	c := NewComparator(nil)
	res := c.Validate(sampleDetail(), Row{
		SKU:    "76-1015",
		Qty:    "2",
		Rate:   "150.00",
		Amount: "300.00",
		Vendor: "Thoroughbred Diesel",
	})
	if res.Status != StatusValid {
		t.Fatalf("status = %s (failed: %v), want valid", res.Status, res.FailedFields)
	}
}

func TestValidateSKUFallsBackToProductService(t *testing.T) {
	c := NewComparator(nil)
	res := c.Validate(sampleDetail(), Row{
		ProductService: "AS-1009",
		Qty:            "1",
		Rate:           "45.50",
		Amount:         "45.50",
	})
	if res.Status != StatusValid {
		t.Fatalf("status = %s (failed: %v), want valid", res.Status, res.FailedFields)
	}
}

func TestValidateDollarAndCommaCleanup(t *testing.T) {
	c := NewComparator(nil)
	detail := &Detail{
		Vendor: VendorRef{Name: "S&B Filters"},
		Items: []ExternalItem{
			{SKU: "KIT-1", Quantity: json.Number("1"), Price: json.Number("1200.00"), TotalPrice: json.Number("1200.00")},
		},
	}
	res := c.Validate(detail, Row{SKU: "KIT-1", Qty: "1", Rate: "$1,200.00", Amount: "$1,200.00"})
	if res.Status != StatusValid {
		t.Fatalf("status = %s (failed: %v), want valid", res.Status, res.FailedFields)
	}
}
