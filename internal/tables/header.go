package tables

import "strings"

// ColumnMap assigns semantic roles to column indices within a table.
type ColumnMap struct {
	ItemNumber  int
	Quantity    int
	UnitPrice   int
	Amount      int
	Description int
	Units       int
}

const noColumn = -1

func emptyColumnMap() ColumnMap {
	return ColumnMap{
		ItemNumber:  noColumn,
		Quantity:    noColumn,
		UnitPrice:   noColumn,
		Amount:      noColumn,
		Description: noColumn,
		Units:       noColumn,
	}
}

var (
	itemKeywords   = []string{"item", "part", "sku", "product", "item code", "part number"}
	qtyKeywords    = []string{"qty", "quantity", "order qty", "ship qty", "invoiced qt", "invoiced qty"}
	priceKeywords  = []string{"unit price", "price each", "rate"}
	amountKeywords = []string{"amount", "total", "total price", "ext.", "ext", "amount(net)"}
	descKeywords   = []string{"description", "desc", "product and description"}
	unitKeywords   = []string{"u/m", "um", "qty um", "price um", "unit", "units"}
)

func containsAny(header string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(header, kw) {
			return true
		}
	}
	return false
}

func matchesQty(header string) bool {
	for _, kw := range qtyKeywords {
		if kw == header || strings.Contains(header, kw) {
			return true
		}
	}
	return false
}

// DetectHeader scans rows top-down for a header row: one whose cells
// recognize at least two distinct column roles. A bare "unit"/"units"
// cell is ambiguous; it names the unit-of-measure column when a unit
// price column was already found and the unit price column otherwise.
func DetectHeader(t Table) (headerIdx int, cm ColumnMap, ok bool) {
	for rowIdx, row := range t {
		if len(row) == 0 {
			continue
		}
		cm = emptyColumnMap()
		recognized := 0
		var bareUnitCols []int

		for colIdx, cell := range row {
			header := strings.ToLower(strings.TrimSpace(cell))
			if header == "" {
				continue
			}
			switch {
			case containsAny(header, itemKeywords):
				if cm.ItemNumber == noColumn {
					cm.ItemNumber = colIdx
					recognized++
				}
			case matchesQty(header):
				if cm.Quantity == noColumn {
					cm.Quantity = colIdx
					recognized++
				}
			case containsAny(header, priceKeywords):
				if cm.UnitPrice == noColumn {
					cm.UnitPrice = colIdx
					recognized++
				}
			case containsAny(header, amountKeywords):
				if cm.Amount == noColumn {
					cm.Amount = colIdx
					recognized++
				}
			case containsAny(header, descKeywords):
				if cm.Description == noColumn {
					cm.Description = colIdx
					recognized++
				}
			case containsAny(header, unitKeywords):
				if header == "unit" || header == "units" {
					bareUnitCols = append(bareUnitCols, colIdx)
				} else if cm.Units == noColumn {
					cm.Units = colIdx
					recognized++
				}
			}
		}

		if len(bareUnitCols) > 0 {
			if cm.UnitPrice == noColumn {
				cm.UnitPrice = bareUnitCols[0]
				recognized++
				if len(bareUnitCols) > 1 && cm.Units == noColumn {
					cm.Units = bareUnitCols[1]
					recognized++
				}
			} else if cm.Units == noColumn {
				cm.Units = bareUnitCols[0]
				recognized++
			}
		}

		if recognized >= 2 {
			return rowIdx, cm, true
		}
	}
	return 0, emptyColumnMap(), false
}
