package tables

import "testing"

func TestExpandRowMultilineQuantity(t *testing.T) {
	// two stacked quantities against a single price: two items, same price
	cm := ColumnMap{ItemNumber: 0, Quantity: 1, UnitPrice: 2, Amount: 3, Description: 4, Units: noColumn}
	row := []string{"SBAF-1035\nSBAF-1036", "2\n1", "150.00", "300.00\n150.00", "Air Filter"}

	items := expandRow(row, cm)
	if len(items) != 2 {
		t.Fatalf("items = %d, want 2", len(items))
	}
	if items[0].UnitPrice != "150.00" || items[1].UnitPrice != "150.00" {
		t.Errorf("unit prices = %q, %q, want both 150.00", items[0].UnitPrice, items[1].UnitPrice)
	}
	if items[0].Quantity != "2" || items[1].Quantity != "1" {
		t.Errorf("quantities = %q, %q", items[0].Quantity, items[1].Quantity)
	}
	// single-line description broadcasts
	if items[0].Description != "Air Filter" || items[1].Description != "Air Filter" {
		t.Errorf("descriptions = %q, %q", items[0].Description, items[1].Description)
	}
}

func TestExpandRowDescriptionMergesTail(t *testing.T) {
	cm := ColumnMap{ItemNumber: 0, Quantity: 1, UnitPrice: noColumn, Amount: 2, Description: 3, Units: noColumn}
	row := []string{"A1\nA2", "1\n1", "10.00\n20.00", "first\nsecond\ncontinued text"}

	items := expandRow(row, cm)
	if len(items) != 2 {
		t.Fatalf("items = %d, want 2", len(items))
	}
	if items[0].Description != "first" {
		t.Errorf("first description = %q", items[0].Description)
	}
	if items[1].Description != "second continued text" {
		t.Errorf("second description = %q, want merged tail", items[1].Description)
	}
}

func TestExpandRowMergedCollapsesAlphaIdentifier(t *testing.T) {
	cm := ColumnMap{ItemNumber: 0, Quantity: 1, UnitPrice: 2, Amount: 3, Description: 4, Units: noColumn}
	row := []string{"Cold\nAir\nIntake", "1", "389.00", "389.00", "76-1015"}

	items := expandRowMerged(row, cm)
	if len(items) != 1 {
		t.Fatalf("items = %d, want 1 collapsed item", len(items))
	}
	if items[0].Description != "Cold Air Intake 76-1015" {
		t.Errorf("description = %q", items[0].Description)
	}
	if items[0].Amount != "389.00" {
		t.Errorf("amount = %q", items[0].Amount)
	}
}

func TestExtractItemsEndToEnd(t *testing.T) {
	tbl := Table{
		{"Item", "Qty", "Unit Price", "Amount", "Description"},
		{"SBAF-1035", "2", "150.00", "300.00", "Air Filter"},
		{"SBCA-2001", "", "", "89.00", "Intake Tube"},
		{"", "", "", "", ""},
		{"Subtotal", "", "", "389.00", ""},
	}
	items := ExtractItems(tbl, Options{})
	if len(items) != 2 {
		t.Fatalf("items = %d, want 2 (summary and blank rows skipped)", len(items))
	}
	// blank quantity inherits the previous row's
	if items[1].Quantity != "2" {
		t.Errorf("inherited quantity = %q, want 2", items[1].Quantity)
	}
}

func TestExtractItemsQuantityDefaultsToOne(t *testing.T) {
	tbl := Table{
		{"Item", "Qty", "Unit Price", "Amount"},
		{"FRT", "", "", "25.00"},
	}
	items := ExtractItems(tbl, Options{})
	if len(items) != 1 {
		t.Fatalf("items = %d, want 1", len(items))
	}
	if items[0].Quantity != "1" {
		t.Errorf("quantity = %q, want 1 (no prior quantity to inherit)", items[0].Quantity)
	}
	// unit price borrows the amount at quantity one
	if items[0].UnitPrice != "25.00" {
		t.Errorf("unit price = %q, want 25.00", items[0].UnitPrice)
	}
}

func TestExtractItemsDropsIdentifierlessAmountlessRows(t *testing.T) {
	tbl := Table{
		{"Item", "Qty", "Unit Price", "Amount"},
		{"", "see packing slip", "", ""},
		{"SBAF-1035", "1", "150.00", "150.00"},
	}
	items := ExtractItems(tbl, Options{})
	if len(items) != 1 {
		t.Fatalf("items = %d, want 1", len(items))
	}
	if items[0].ItemNumber != "SBAF-1035" {
		t.Errorf("item = %q", items[0].ItemNumber)
	}
}

func TestExtractItemsMergedContinuationRows(t *testing.T) {
	tbl := Table{
		{"Item", "Qty", "Unit Price", "Amount", "Description"},
		{"76-1015", "1", "389.00", "389.00", "Cold Air Intake"},
		{"", "", "", "", "for 2017 Powerstroke"},
	}
	items := ExtractItems(tbl, Options{MergeContinuations: true})
	if len(items) != 1 {
		t.Fatalf("items = %d, want 1", len(items))
	}
	if items[0].Description != "Cold Air Intake for 2017 Powerstroke" {
		t.Errorf("description = %q, want continuation folded in", items[0].Description)
	}
}

func TestFromLayoutText(t *testing.T) {
	text := "Item        Qty    Unit Price    Amount\n" +
		"SBAF-1035   2      150.00        300.00\n" +
		"\n" +
		"Thank you for your business\n"
	tbl := FromLayoutText(text)
	if len(tbl) != 2 {
		t.Fatalf("rows = %d, want 2", len(tbl))
	}
	if len(tbl[0]) != 4 {
		t.Fatalf("header cells = %d, want 4", len(tbl[0]))
	}
	if tbl[1][0] != "SBAF-1035" || tbl[1][3] != "300.00" {
		t.Errorf("data row = %v", tbl[1])
	}
}
