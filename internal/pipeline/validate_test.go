package pipeline

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/xuri/excelize/v2"

	"github.com/dpp-tools/invoice-audit/internal/export"
	"github.com/dpp-tools/invoice-audit/internal/invoice"
	"github.com/dpp-tools/invoice-audit/internal/recon"
)

func sheetRow(billNo, memo, vendor, productService, sku string) export.SheetRow {
	return export.SheetRow{Bill: export.BillRow{
		BillNo: billNo, Memo: memo, Vendor: vendor,
		ProductService: productService, SKU: sku,
	}}
}

func TestGroupByPOCarriesHeaderForward(t *testing.T) {
	rows := []export.SheetRow{
		sheetRow("IN-1", "37305", "S&B", "", "76-1015"),
		sheetRow("", "", "", "", "AS-1009"),
		sheetRow("", "", "", "Shipping", ""),
		sheetRow("", "", "", "Total Amount", ""),
		sheetRow("IN-2", "40001", "Fleece", "", "FPE-100"),
		sheetRow("", "", "", "Total Amount", ""),
	}
	groups := groupByPO(rows)
	if len(groups) != 2 {
		t.Fatalf("got %d groups, want 2", len(groups))
	}
	if groups[0].po != "37305" || groups[0].vendor != "S&B" {
		t.Errorf("group 0 = %q/%q", groups[0].po, groups[0].vendor)
	}
	if len(groups[0].rows) != 3 {
		t.Errorf("group 0 has %d rows, want 3 (total row skipped)", len(groups[0].rows))
	}
	if groups[1].po != "40001" || len(groups[1].rows) != 1 {
		t.Errorf("group 1 = %q with %d rows", groups[1].po, len(groups[1].rows))
	}
}

func TestGroupByPOLeadingOrphanRows(t *testing.T) {
	rows := []export.SheetRow{
		sheetRow("", "", "", "", "STRAY-1"),
		sheetRow("IN-1", "37305", "S&B", "", "76-1015"),
	}
	groups := groupByPO(rows)
	if len(groups) != 2 {
		t.Fatalf("got %d groups, want 2", len(groups))
	}
	if groups[0].po != "" || len(groups[0].rows) != 1 {
		t.Errorf("orphan group = %q with %d rows", groups[0].po, len(groups[0].rows))
	}
}

func TestSkusOf(t *testing.T) {
	g := &poGroup{rows: []export.SheetRow{
		sheetRow("", "", "", "", "76-1015"),
		sheetRow("", "", "", "Shipping", ""),
		sheetRow("", "", "", "", " AS-1009 "),
	}}
	skus := skusOf(g)
	if len(skus) != 2 || skus[0] != "76-1015" || skus[1] != "AS-1009" {
		t.Fatalf("skus = %v", skus)
	}
}

// reconService is a canned recon.Service used to exercise the full
// workbook round trip.
type reconService struct {
	candidates map[string][]recon.Candidate
	details    map[string]*recon.Detail
}

func (s *reconService) SearchCandidates(_ context.Context, po string) ([]recon.Candidate, error) {
	return s.candidates[po], nil
}

func (s *reconService) Details(_ context.Context, id string) (*recon.Detail, error) {
	return s.details[id], nil
}

func exportSample(t *testing.T, path string) {
	t.Helper()
	rec := &invoice.Record{
		InvoiceNumber: "IN-48213",
		Vendor:        "S&B Filters",
		PONumber:      "37305",
		Total:         "345.50",
		LineItems: []invoice.LineItem{
			{ItemNumber: "76-1015", Description: "Cold Air Intake", Quantity: "2", UnitPrice: "150.00", Amount: "300.00"},
			{ItemNumber: "AS-1009", Description: "Intake Scoop", Quantity: "1", UnitPrice: "45.50", Amount: "45.50"},
		},
	}
	if _, err := export.NewWriter(path, nil).AppendInvoice(rec); err != nil {
		t.Fatalf("AppendInvoice: %v", err)
	}
}

func TestValidatorRun(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bills.xlsx")
	exportSample(t, path)

	svc := &reconService{
		candidates: map[string][]recon.Candidate{
			"37305": {{ID: "a", Label: "37305", Vendor: recon.VendorRef{Name: "S&B Filters"}}},
		},
		details: map[string]*recon.Detail{
			"a": {
				ID: "a", Label: "37305", Vendor: recon.VendorRef{Name: "S&B Filters"},
				Items: []recon.ExternalItem{
					{SKU: "76-1015", Quantity: json.Number("2"), Price: json.Number("150.00"), TotalPrice: json.Number("300.00")},
					{SKU: "AS-1009", Quantity: json.Number("1"), Price: json.Number("40.00"), TotalPrice: json.Number("40.00")},
				},
			},
		},
	}
	v := NewValidator(recon.NewMatcher(svc, nil, nil), recon.NewComparator(nil), nil)

	summary, err := v.Run(context.Background(), path)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if summary.POs != 1 {
		t.Errorf("POs = %d, want 1", summary.POs)
	}
	// first item agrees, second disagrees on price, shipping row is NA
	if summary.Valid != 1 || summary.Invalid != 1 || summary.NA != 1 {
		t.Fatalf("summary = %+v, want 1 valid, 1 invalid, 1 na", *summary)
	}
}

func TestValidatorRunVendorMismatchFlagsHeaderRowOnly(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bills.xlsx")
	rec := &invoice.Record{
		InvoiceNumber: "IN-48213",
		Vendor:        "Thoroughbred Diesel",
		PONumber:      "37305",
		LineItems: []invoice.LineItem{
			{ItemNumber: "76-1015", Description: "Cold Air Intake", Quantity: "2", UnitPrice: "150.00"},
			{ItemNumber: "AS-1009", Description: "Intake Scoop", Quantity: "1", UnitPrice: "45.50"},
		},
	}
	if _, err := export.NewWriter(path, nil).AppendInvoice(rec); err != nil {
		t.Fatalf("AppendInvoice: %v", err)
	}

	svc := &reconService{
		candidates: map[string][]recon.Candidate{
			"37305": {{ID: "a", Label: "37305", Vendor: recon.VendorRef{Name: "S&B Filters"}}},
		},
		details: map[string]*recon.Detail{
			"a": {
				ID: "a", Label: "37305", Vendor: recon.VendorRef{Name: "S&B Filters"},
				Items: []recon.ExternalItem{
					{SKU: "76-1015", Quantity: json.Number("2"), Price: json.Number("150.00"), TotalPrice: json.Number("300.00")},
					{SKU: "AS-1009", Quantity: json.Number("1"), Price: json.Number("45.50"), TotalPrice: json.Number("45.50")},
				},
			},
		},
	}
	v := NewValidator(recon.NewMatcher(svc, nil, nil), recon.NewComparator(nil), nil)

	summary, err := v.Run(context.Background(), path)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	// vendor disagreement lands on the bill header row; the agreeing
	// item row stays valid
	if summary.Invalid != 1 || summary.Valid != 1 || summary.NA != 1 {
		t.Fatalf("summary = %+v, want 1 invalid, 1 valid, 1 na", *summary)
	}

	f, err := excelize.OpenFile(path)
	if err != nil {
		t.Fatalf("open workbook: %v", err)
	}
	defer f.Close()
	headerStatus, _ := f.GetCellValue(export.SheetName, "U2")
	headerReason, _ := f.GetCellValue(export.SheetName, "V2")
	itemStatus, _ := f.GetCellValue(export.SheetName, "U3")
	if headerStatus != "invalid" || headerReason != "Vendor" {
		t.Errorf("header row = %q/%q, want invalid/Vendor", headerStatus, headerReason)
	}
	if itemStatus != "valid" {
		t.Errorf("item row = %q, want valid", itemStatus)
	}
}

func TestValidatorRunPONotFound(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bills.xlsx")
	exportSample(t, path)

	v := NewValidator(recon.NewMatcher(&reconService{}, nil, nil), recon.NewComparator(nil), nil)

	summary, err := v.Run(context.Background(), path)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	// every row of the unmatched PO, shipping included, fails
	if summary.Invalid != 3 || summary.Valid != 0 || summary.NA != 0 {
		t.Fatalf("summary = %+v, want 3 invalid", *summary)
	}
}

func TestValidatorRunStops(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bills.xlsx")
	exportSample(t, path)

	v := NewValidator(recon.NewMatcher(&reconService{}, nil, nil), recon.NewComparator(nil), nil)
	v.ShouldContinue = func() bool { return false }

	summary, err := v.Run(context.Background(), path)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !summary.Stopped || summary.POs != 0 {
		t.Fatalf("summary = %+v, want stopped before any PO", *summary)
	}
}
