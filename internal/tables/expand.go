package tables

import (
	"regexp"
	"strings"

	"github.com/dpp-tools/invoice-audit/constants"
	"github.com/dpp-tools/invoice-audit/internal/invoice"
)

var (
	hasDigit  = regexp.MustCompile(`\d`)
	qtyCell   = regexp.MustCompile(`^\d+(\.\d+)?$`)
	alphaCell = regexp.MustCompile(`^[A-Za-z]+$`)

	summaryWords = []string{"subtotal", "total", "tax", "balance"}
)

func linesFor(row []string, idx int) []string {
	if idx == noColumn || idx >= len(row) {
		return nil
	}
	return splitCellLines(row[idx])
}

func pick(lines []string, i int) string {
	switch {
	case len(lines) == 0:
		return ""
	case len(lines) == 1:
		return lines[0]
	case i < len(lines):
		return lines[i]
	default:
		return ""
	}
}

// expandRow splits a row whose cells hold newline-separated values into
// one item per stacked value. Values distribute positionally; the
// description column splits line-for-line, broadcasts when it has a
// single line, and merges its tail into the last item when it has more
// lines than items.
func expandRow(row []string, cm ColumnMap) []invoice.LineItem {
	itemLines := linesFor(row, cm.ItemNumber)
	qtyLines := linesFor(row, cm.Quantity)
	unitLines := linesFor(row, cm.Units)
	priceLines := linesFor(row, cm.UnitPrice)
	amountLines := linesFor(row, cm.Amount)
	descLines := linesFor(row, cm.Description)

	itemCount := 1
	for _, n := range []int{len(itemLines), len(qtyLines), len(priceLines), len(amountLines)} {
		if n > itemCount {
			itemCount = n
		}
	}

	descPerItem := make([]string, itemCount)
	switch {
	case len(descLines) > itemCount:
		for i := 0; i < itemCount-1; i++ {
			descPerItem[i] = descLines[i]
		}
		descPerItem[itemCount-1] = strings.Join(descLines[itemCount-1:], " ")
	case len(descLines) == 1:
		for i := range descPerItem {
			descPerItem[i] = descLines[0]
		}
	default:
		for i := range descPerItem {
			descPerItem[i] = pick(descLines, i)
		}
	}

	items := make([]invoice.LineItem, 0, itemCount)
	for i := 0; i < itemCount; i++ {
		li := invoice.LineItem{
			ItemNumber:  cleanCell(pick(itemLines, i)),
			Quantity:    cleanCell(pick(qtyLines, i)),
			UnitPrice:   cleanPrice(pick(priceLines, i)),
			Amount:      cleanPrice(pick(amountLines, i)),
			Description: cleanCell(descPerItem[i]),
			Units:       cleanCell(pick(unitLines, i)),
		}
		if li.Units == "" {
			li.Units = constants.DefaultUnits
		}
		invoice.MarkFreight(&li)
		items = append(items, li)
	}
	return items
}

var deliveryFee = regexp.MustCompile(`(?i)\b(?:colorado|co)\b.*\bdelivery\s+fee\b`)

func isDeliveryFee(itemNumber, desc string) bool {
	return deliveryFee.MatchString(strings.ToLower(itemNumber + " " + desc))
}

func allAlpha(lines []string) bool {
	for _, line := range lines {
		if hasDigit.MatchString(line) {
			return false
		}
	}
	return true
}

// expandRowMerged handles layouts that stack free-text continuation
// lines in the identifier column. A multi-line all-letters identifier
// cell over single-line numerics collapses to one item whose
// description absorbs the identifier text; otherwise identifier lines
// beyond the numeric count merge into the final item, with delivery-fee
// tails folded into the preceding row's description.
func expandRowMerged(row []string, cm ColumnMap) []invoice.LineItem {
	itemLines := linesFor(row, cm.ItemNumber)
	qtyLines := linesFor(row, cm.Quantity)
	unitLines := linesFor(row, cm.Units)
	priceLines := linesFor(row, cm.UnitPrice)
	amountLines := linesFor(row, cm.Amount)
	descLines := linesFor(row, cm.Description)

	if len(itemLines) > 1 && allAlpha(itemLines) &&
		len(qtyLines) <= 1 && len(priceLines) <= 1 && len(amountLines) <= 1 {
		var descParts []string
		if len(itemLines) > 0 {
			descParts = append(descParts, strings.Join(itemLines, " "))
		}
		if len(descLines) > 0 {
			descParts = append(descParts, strings.Join(descLines, " "))
		}
		li := invoice.LineItem{
			Quantity:    cleanCell(pick(qtyLines, 0)),
			UnitPrice:   cleanPrice(pick(priceLines, 0)),
			Amount:      cleanPrice(pick(amountLines, 0)),
			Description: cleanCell(strings.TrimSpace(strings.Join(descParts, " "))),
			Units:       cleanCell(pick(unitLines, 0)),
		}
		if li.Units == "" {
			li.Units = constants.DefaultUnits
		}
		invoice.MarkFreight(&li)
		return []invoice.LineItem{li}
	}

	itemCount := 1
	for _, n := range []int{len(qtyLines), len(priceLines), len(amountLines)} {
		if n > itemCount {
			itemCount = n
		}
	}
	if len(itemLines) <= itemCount {
		return expandRow(row, cm)
	}

	extra := itemLines[itemCount:]
	itemLines = itemLines[:itemCount]
	for len(descLines) < itemCount {
		descLines = append(descLines, "")
	}
	tail := strings.TrimSpace(strings.Join(extra, " "))
	if tail != "" {
		last := itemCount - 1
		switch {
		case itemLines[last] != "" && !hasDigit.MatchString(itemLines[last]):
			itemLines[last] = strings.TrimSpace(itemLines[last] + " " + tail)
		case itemLines[last] == "":
			itemLines[last] = tail
		default:
			descLines[last] = strings.TrimSpace(descLines[last] + " " + tail)
		}
		if last > 0 && isDeliveryFee(itemLines[last], "") && descLines[last] != "" {
			descLines[last-1] = strings.TrimSpace(descLines[last-1] + " " + descLines[last])
			descLines[last] = ""
		}
	}

	items := make([]invoice.LineItem, 0, itemCount)
	for i := 0; i < itemCount; i++ {
		li := invoice.LineItem{Units: constants.DefaultUnits}
		if i < len(itemLines) {
			li.ItemNumber = cleanCell(itemLines[i])
		}
		if i < len(qtyLines) {
			li.Quantity = cleanCell(qtyLines[i])
		}
		if i < len(priceLines) {
			li.UnitPrice = cleanPrice(priceLines[i])
		}
		if i < len(amountLines) {
			li.Amount = cleanPrice(amountLines[i])
		}
		if i < len(descLines) {
			li.Description = cleanCell(descLines[i])
		}
		if i < len(unitLines) && cleanCell(unitLines[i]) != "" {
			li.Units = cleanCell(unitLines[i])
		}
		invoice.MarkFreight(&li)
		items = append(items, li)
	}
	return items
}

func rowHasMultiline(row []string, cm ColumnMap) bool {
	for _, idx := range []int{cm.ItemNumber, cm.Quantity, cm.UnitPrice, cm.Amount, cm.Description, cm.Units} {
		if idx == noColumn || idx >= len(row) {
			continue
		}
		if strings.Contains(row[idx], "\n") {
			return true
		}
	}
	return false
}

// findNearbyValue searches outward from colIdx for a non-empty cell
// accepted by predicate. Shifted layouts put values one or two columns
// off the mapped position.
func findNearbyValue(row []string, colIdx, maxOffset int, predicate func(string) bool, exclude map[int]bool) string {
	if len(row) == 0 || colIdx == noColumn {
		return ""
	}
	seen := map[int]bool{}
	for offset := 0; offset <= maxOffset; offset++ {
		for _, j := range []int{colIdx - offset, colIdx + offset} {
			if seen[j] {
				continue
			}
			seen[j] = true
			if j < 0 || j >= len(row) || exclude[j] {
				continue
			}
			val := strings.TrimSpace(row[j])
			if val == "" {
				continue
			}
			if predicate == nil || predicate(val) {
				return row[j]
			}
		}
	}
	return ""
}

func itemFromRow(row []string, cm ColumnMap) invoice.LineItem {
	li := invoice.LineItem{
		ItemNumber:  cleanCell(cellText(row, cm.ItemNumber)),
		Quantity:    cleanCell(cellText(row, cm.Quantity)),
		UnitPrice:   cleanPrice(cellText(row, cm.UnitPrice)),
		Amount:      cleanPrice(cellText(row, cm.Amount)),
		Description: cleanCell(cellText(row, cm.Description)),
		Units:       cleanCell(cellText(row, cm.Units)),
	}
	if li.Units == "" {
		li.Units = constants.DefaultUnits
	}

	if li.Quantity == "" && cm.Quantity != noColumn {
		exclude := map[int]bool{}
		if cm.Amount != noColumn {
			exclude[cm.Amount] = true
		}
		if cm.UnitPrice != noColumn {
			exclude[cm.UnitPrice] = true
		}
		if val := findNearbyValue(row, cm.Quantity, 2, func(v string) bool {
			return qtyCell.MatchString(strings.TrimSpace(v))
		}, exclude); val != "" {
			li.Quantity = cleanCell(val)
		}
	}
	if li.UnitPrice == "" && cm.UnitPrice != noColumn {
		if val := findNearbyValue(row, cm.UnitPrice, 2, func(v string) bool {
			return cleanPrice(v) != ""
		}, nil); val != "" {
			li.UnitPrice = cleanPrice(val)
		}
	}
	if li.Amount == "" && cm.Amount != noColumn {
		if val := findNearbyValue(row, cm.Amount, 2, func(v string) bool {
			return cleanPrice(v) != ""
		}, nil); val != "" {
			li.Amount = cleanPrice(val)
		}
	}
	if (li.Units == "" || li.Units == constants.DefaultUnits) && cm.Units != noColumn {
		if val := findNearbyValue(row, cm.Units, 2, func(v string) bool {
			return alphaCell.MatchString(strings.TrimSpace(v))
		}, nil); val != "" {
			li.Units = cleanCell(val)
		}
	}

	// Combined identifier/description cell: first line is the part
	// number, the rest describe it.
	if li.Description == "" && li.ItemNumber != "" && cm.ItemNumber != noColumn &&
		strings.Contains(cellText(row, cm.ItemNumber), "\n") {
		parts := splitCellLines(cellText(row, cm.ItemNumber))
		if len(parts) > 1 {
			li.ItemNumber = parts[0]
			li.Description = strings.Join(parts[1:], " ")
		}
	}
	if cm.Description != noColumn && cm.ItemNumber == noColumn {
		descVal := strings.TrimSpace(cellText(row, cm.Description))
		if strings.Contains(descVal, "\n") {
			parts := splitCellLines(descVal)
			li.ItemNumber = parts[0]
			li.Description = strings.Join(parts[1:], " ")
		}
	}

	invoice.MarkFreight(&li)
	return li
}

func isBlankRow(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

func isSummaryRow(row []string) bool {
	var parts []string
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			parts = append(parts, c)
		}
	}
	combined := strings.ToLower(strings.Join(parts, " "))
	for _, word := range summaryWords {
		if strings.Contains(combined, word) {
			return true
		}
	}
	return false
}

// Options tunes row expansion for vendor-specific table shapes.
type Options struct {
	// MergeContinuations turns on the merged expansion variant and
	// folds description-only continuation rows into the previous item.
	MergeContinuations bool
}

// ExtractItems walks the data rows below the detected header and
// produces logical line items. Summary rows are skipped, a row with
// neither identifier nor amount is discarded, a blank quantity inherits
// the previous row's quantity (or defaults to one when an amount is
// present), and a missing unit price borrows the amount when the
// quantity is one.
func ExtractItems(t Table, opts Options) []invoice.LineItem {
	if len(t) < 2 {
		return nil
	}
	headerIdx, cm, ok := DetectHeader(t)
	if !ok {
		return nil
	}

	var items []invoice.LineItem
	lastQty := ""
	lastDesc := ""
	for _, row := range t[headerIdx+1:] {
		if len(row) == 0 || isBlankRow(row) || isSummaryRow(row) {
			continue
		}

		var rowItems []invoice.LineItem
		if rowHasMultiline(row, cm) {
			if opts.MergeContinuations {
				rowItems = expandRowMerged(row, cm)
			} else {
				rowItems = expandRow(row, cm)
			}
		} else {
			li := itemFromRow(row, cm)
			if opts.MergeContinuations {
				hasNumbers := hasDigit.MatchString(li.ItemNumber + li.Quantity + li.UnitPrice + li.Amount)
				if li.Description != "" && !hasNumbers && lastQty != "" &&
					li.Quantity == "" && li.UnitPrice == "" && li.Amount == "" && len(items) > 0 {
					merged := li.Description
					if lastDesc != "" {
						merged = lastDesc + " " + li.Description
					}
					items[len(items)-1].Description = merged
					lastDesc = merged
					continue
				}
			}
			rowItems = []invoice.LineItem{li}
		}

		for _, li := range rowItems {
			if li.ItemNumber == "" && li.Amount == "" {
				continue
			}
			if li.Quantity == "" {
				if lastQty != "" {
					li.Quantity = lastQty
				} else if li.Amount != "" {
					li.Quantity = "1"
				}
			} else {
				lastQty = li.Quantity
			}
			if li.Description != "" {
				lastDesc = li.Description
			}
			if li.UnitPrice == "" && li.Amount != "" && (li.Quantity == "" || li.Quantity == "1") {
				li.UnitPrice = li.Amount
			}
			if invoice.IsNonProductRow(&li) {
				continue
			}
			if li.Amount != "" || li.ItemNumber != "" {
				items = append(items, li)
			}
		}
	}
	return items
}
