package tables

import "testing"

func TestDetectHeader(t *testing.T) {
	tbl := Table{
		{"Invoice", "12345"},
		{"Item", "Qty", "Unit Price", "Amount", "Description"},
		{"SBAF-1035", "2", "150.00", "300.00", "Cold Air Intake"},
	}
	idx, cm, ok := DetectHeader(tbl)
	if !ok {
		t.Fatal("header not detected")
	}
	if idx != 1 {
		t.Errorf("header index = %d, want 1", idx)
	}
	if cm.ItemNumber != 0 || cm.Quantity != 1 || cm.UnitPrice != 2 || cm.Amount != 3 || cm.Description != 4 {
		t.Errorf("column map = %+v", cm)
	}
}

func TestDetectHeaderRequiresTwoRoles(t *testing.T) {
	tbl := Table{
		{"Qty", "something", "else"},
		{"2", "foo", "bar"},
	}
	if _, _, ok := DetectHeader(tbl); ok {
		t.Error("a row with one recognized keyword must not be a header")
	}
}

func TestDetectHeaderBareUnitIsUnitPrice(t *testing.T) {
	// no distinct unit-price column: "Unit" takes that role
	tbl := Table{
		{"Item", "Quantity", "Unit", "Amount"},
	}
	_, cm, ok := DetectHeader(tbl)
	if !ok {
		t.Fatal("header not detected")
	}
	if cm.UnitPrice != 2 {
		t.Errorf("UnitPrice column = %d, want 2 (bare Unit)", cm.UnitPrice)
	}
	if cm.Units != noColumn {
		t.Errorf("Units column = %d, want none", cm.Units)
	}
}

func TestDetectHeaderBareUnitIsUOMWhenPricePresent(t *testing.T) {
	tbl := Table{
		{"Item", "Qty", "Unit Price", "Units", "Amount"},
	}
	_, cm, ok := DetectHeader(tbl)
	if !ok {
		t.Fatal("header not detected")
	}
	if cm.UnitPrice != 2 {
		t.Errorf("UnitPrice column = %d, want 2", cm.UnitPrice)
	}
	if cm.Units != 3 {
		t.Errorf("Units column = %d, want 3", cm.Units)
	}
}

func TestDetectHeaderTwoBareUnitColumns(t *testing.T) {
	// first bare unit column becomes unit price, the second the UOM
	tbl := Table{
		{"Item", "Qty", "Unit", "Units", "Total"},
	}
	_, cm, ok := DetectHeader(tbl)
	if !ok {
		t.Fatal("header not detected")
	}
	if cm.UnitPrice != 2 {
		t.Errorf("UnitPrice column = %d, want 2", cm.UnitPrice)
	}
	if cm.Units != 3 {
		t.Errorf("Units column = %d, want 3", cm.Units)
	}
}
