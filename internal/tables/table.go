// Package tables detects line-item table structure in extracted invoice
// text: header row location, column-role mapping, and expansion of
// multi-line cells into logical item rows.
package tables

import (
	"regexp"
	"strings"
)

// Table is a grid of cells. A cell may hold several newline-separated
// values when the source layout stacked items inside one visual row.
type Table [][]string

// cellRun matches one cell of a column-aligned line: words separated by
// single spaces. Runs of two or more spaces delimit cells.
var cellRun = regexp.MustCompile(`\S+(?: \S+)*`)

// colTolerance is how far a cell may start from its column's left edge
// and still count as belonging to it.
const colTolerance = 2

type span struct {
	start, end int
	text       string
}

func lineSpans(line string) []span {
	idx := cellRun.FindAllStringIndex(line, -1)
	spans := make([]span, 0, len(idx))
	for _, pos := range idx {
		spans = append(spans, span{start: pos[0], end: pos[1], text: line[pos[0]:pos[1]]})
	}
	return spans
}

type colSpan struct {
	start, end int
}

// blockBuilder accumulates one candidate table. Column extents come
// from the widest row seen and widen as data rows land in them, so
// right-aligned numbers and long descriptions still map to their
// column.
type blockBuilder struct {
	cols     []colSpan
	rows     Table
	rowSpans [][]span
}

func (b *blockBuilder) open() bool { return len(b.rows) > 0 }

func (b *blockBuilder) columnFor(c span) int {
	best, bestOverlap := -1, 0
	for i, col := range b.cols {
		lo := c.start
		if col.start > lo {
			lo = col.start
		}
		hi := c.end
		if col.end < hi {
			hi = col.end
		}
		if hi-lo > bestOverlap {
			best, bestOverlap = i, hi-lo
		}
	}
	if best >= 0 {
		return best
	}
	for i, col := range b.cols {
		d := c.start - col.start
		if d < 0 {
			d = -d
		}
		if d <= colTolerance {
			return i
		}
	}
	return -1
}

func (b *blockBuilder) widen(c span, col int) {
	if c.start < b.cols[col].start {
		b.cols[col].start = c.start
	}
	if c.end > b.cols[col].end {
		b.cols[col].end = c.end
	}
}

func (b *blockBuilder) addRow(spans []span) {
	cells := make([]string, len(spans))
	for i, c := range spans {
		cells[i] = c.text
	}
	b.rows = append(b.rows, cells)
	b.rowSpans = append(b.rowSpans, spans)

	if len(spans) > len(b.cols) {
		b.cols = make([]colSpan, len(spans))
		for i, c := range spans {
			b.cols[i] = colSpan{start: c.start, end: c.end}
		}
		return
	}
	for _, c := range spans {
		if col := b.columnFor(c); col >= 0 {
			b.widen(c, col)
		}
	}
}

// cellIndexFor returns the index of the last row's cell occupying
// template column col, or -1 when that column is empty in the row.
func (b *blockBuilder) cellIndexFor(col int) int {
	last := b.rowSpans[len(b.rowSpans)-1]
	for i, c := range last {
		if b.columnFor(c) == col {
			return i
		}
	}
	return -1
}

// tryContinuation folds spans into the previous row when every cell
// sits cleanly inside one template column that the row above also
// populates. Stacked visual rows in pdftotext -layout output arrive as
// exactly such lines; the fold reproduces the newline-joined cells a
// geometric table reader would have produced.
func (b *blockBuilder) tryContinuation(spans []span) bool {
	if !b.open() {
		return false
	}
	type target struct {
		cell int
		text string
	}
	var targets []target
	used := map[int]bool{}
	for _, c := range spans {
		if isSummaryText(c.text) {
			return false
		}
		col := b.columnFor(c)
		if col < 0 || used[col] {
			return false
		}
		// a cell reaching into the next column is prose, not a stack
		if col+1 < len(b.cols) && c.end > b.cols[col+1].start-1 {
			return false
		}
		cell := b.cellIndexFor(col)
		if cell < 0 {
			return false
		}
		used[col] = true
		targets = append(targets, target{cell: cell, text: c.text})
	}

	last := len(b.rows) - 1
	for _, tg := range targets {
		b.rows[last][tg.cell] += "\n" + tg.text
	}
	for _, c := range spans {
		if col := b.columnFor(c); col >= 0 {
			b.widen(c, col)
		}
	}
	return true
}

func (b *blockBuilder) atMargin(c span) bool {
	d := c.start - b.cols[0].start
	if d < 0 {
		d = -d
	}
	return d <= colTolerance
}

func (b *blockBuilder) flushInto(out []Table) []Table {
	if len(b.rows) >= 2 {
		out = append(out, b.rows)
	}
	b.cols, b.rows, b.rowSpans = nil, nil, nil
	return out
}

func isSummaryText(text string) bool {
	lower := strings.ToLower(text)
	for _, word := range summaryWords {
		if strings.Contains(lower, word) {
			return true
		}
	}
	return false
}

// Blocks splits column-aligned text, the shape pdftotext -layout
// produces, into candidate tables. Multi-cell lines start and extend a
// block; blank lines and lines that do not fit the block's column
// geometry end it. An indented line, or a lone fragment sitting inside
// one column, is folded into the row above it as a stacked cell.
func Blocks(text string) []Table {
	var out []Table
	var b blockBuilder

	for _, line := range strings.Split(text, "\n") {
		spans := lineSpans(line)
		if len(spans) == 0 {
			out = b.flushInto(out)
			continue
		}

		if len(spans) < 2 {
			if !b.open() || !b.tryContinuation(spans) {
				out = b.flushInto(out)
			}
			continue
		}

		if b.open() && !b.atMargin(spans[0]) && b.tryContinuation(spans) {
			continue
		}
		b.addRow(spans)
	}
	return b.flushInto(out)
}

// FromLayoutText returns the largest candidate table in text.
func FromLayoutText(text string) Table {
	var best Table
	for _, t := range Blocks(text) {
		if len(t) > len(best) {
			best = t
		}
	}
	return best
}

func cellText(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return row[idx]
}

// cleanCell trims a cell and keeps only the first line of a
// newline-separated value.
func cleanCell(value string) string {
	text := strings.TrimSpace(value)
	if i := strings.IndexByte(text, '\n'); i >= 0 {
		text = strings.TrimSpace(text[:i])
	}
	return text
}

// cleanPrice strips currency punctuation and rejects non-numeric cells.
func cleanPrice(value string) string {
	text := cleanCell(value)
	if text == "" {
		return ""
	}
	text = strings.TrimSpace(strings.NewReplacer("$", "", ",", "").Replace(text))
	if !numericCell.MatchString(text) {
		return ""
	}
	return text
}

var numericCell = regexp.MustCompile(`^-?\d+(\.\d+)?$`)

func splitCellLines(value string) []string {
	text := strings.TrimSpace(value)
	if text == "" {
		return nil
	}
	var out []string
	for _, line := range strings.Split(text, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			out = append(out, line)
		}
	}
	return out
}
