// Package export writes parsed invoices to an accounting-import
// workbook, one bill spread over several rows: a header row carrying
// the invoice fields plus the first item, one row per further item, a
// shipping row when no freight item exists, and a total summary row.
package export

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"github.com/dpp-tools/invoice-audit/constants"
	"github.com/dpp-tools/invoice-audit/internal/invoice"
)

const SheetName = "Bills"

// Headers is the import column layout, in order. The two validation
// columns at the end are filled by the reconciliation run.
var Headers = []string{
	"Bill No.",
	"*Vendor",
	"Mailing Address",
	"Terms",
	"*Bill Date",
	"Due Date",
	"Location",
	"Memo",
	"Type",
	"Category/Account",
	"Product/Service",
	"SKU",
	"Qty",
	"Rate",
	"Description",
	"Amount",
	"Billable",
	"Customer/Project",
	"Tax Rate",
	"Class",
	"Validation",
	"Failed Fields",
}

const (
	validationCol   = 21
	failedFieldsCol = 22
)

// BillRow is one flattened output row.
type BillRow struct {
	BillNo          string
	Vendor          string
	MailingAddress  string
	Terms           string
	BillDate        string
	DueDate         string
	Memo            string
	Type            string
	Category        string
	ProductService  string
	SKU             string
	Qty             string
	Rate            string
	Description     string
	Amount          string
	CustomerProject string
}

func (r BillRow) values() []any {
	return []any{
		r.BillNo, r.Vendor, r.MailingAddress, r.Terms, r.BillDate, r.DueDate,
		"", r.Memo, r.Type, r.Category, r.ProductService, r.SKU, r.Qty,
		r.Rate, r.Description, r.Amount, "", r.CustomerProject, "", "",
	}
}

// normalizeShippingLabel collapses freight descriptions onto the three
// recognized shipping product/service labels.
func normalizeShippingLabel(text string) string {
	s := strings.ToLower(text)
	switch {
	case strings.Contains(s, "drop ship") || strings.Contains(s, "dropship"):
		return "Drop Ship"
	case strings.Contains(s, "freight") || strings.Contains(s, "frieght"):
		return "Freight"
	default:
		return constants.ProductServiceShipping
	}
}

func productServiceFor(li *invoice.LineItem) string {
	if ps := li.ProductService(); ps != "" {
		if li.IsFreight && !li.IsDiscount && !li.IsCore && !li.IsEnvironmentalFee {
			label := li.Description
			if label == "" {
				label = li.ItemNumber
			}
			return normalizeShippingLabel(label)
		}
		return ps
	}
	return constants.ProductServiceInventory
}

// coreDescription joins the core charge code and its description
// without repeating the code when the description already contains it.
func coreDescription(li *invoice.LineItem) string {
	code := strings.TrimSpace(li.ItemNumber)
	desc := strings.TrimSpace(li.Description)
	switch {
	case code != "" && desc != "":
		if strings.Contains(strings.ToLower(desc), strings.ToLower(code)) {
			return desc
		}
		return strings.TrimSpace(code + " " + desc)
	case code != "":
		return code
	default:
		return desc
	}
}

func descriptionFor(li *invoice.LineItem) string {
	switch {
	case li.IsCore:
		return coreDescription(li)
	case li.IsDiscount:
		return ""
	case li.IsFreight:
		if d := strings.TrimSpace(li.Description); d != "" {
			return d
		}
		return strings.TrimSpace(li.ItemNumber)
	default:
		return li.Description
	}
}

func itemRow(li *invoice.LineItem) BillRow {
	return BillRow{
		Type:           constants.RowTypeItem,
		Category:       li.Category(),
		ProductService: productServiceFor(li),
		SKU:            strings.TrimSpace(li.ItemNumber),
		Qty:            invoice.NormalizeQuantity(li.Quantity),
		Rate:           li.UnitPrice,
		Description:    descriptionFor(li),
	}
}

// BillRows flattens one invoice record into its output rows.
func BillRows(rec *invoice.Record) []BillRow {
	var rows []BillRow

	first := BillRow{
		BillNo:          rec.InvoiceNumber,
		Vendor:          rec.Vendor,
		MailingAddress:  rec.VendorAddress,
		Terms:           rec.Terms,
		BillDate:        rec.Date,
		DueDate:         rec.DueDate,
		Memo:            rec.PONumber,
		Type:            constants.RowTypeCategory,
		CustomerProject: rec.Customer,
	}
	if len(rec.LineItems) > 0 {
		li := &rec.LineItems[0]
		item := itemRow(li)
		first.Type = item.Type
		first.Category = item.Category
		first.ProductService = item.ProductService
		first.SKU = item.SKU
		first.Qty = item.Qty
		first.Rate = item.Rate
		first.Description = item.Description
	}
	rows = append(rows, first)

	for i := 1; i < len(rec.LineItems); i++ {
		rows = append(rows, itemRow(&rec.LineItems[i]))
	}

	hasFreight := false
	for i := range rec.LineItems {
		if rec.LineItems[i].IsFreight {
			hasFreight = true
			break
		}
	}
	if !hasFreight {
		rate := "0"
		if v, ok := invoice.ParseAmount(rec.ShippingCost); ok && v.GreaterThan(decimal.Zero) {
			rate = rec.ShippingCost
		}
		desc := rec.ShippingDesc
		if desc == "" {
			desc = constants.ProductServiceShipping
		}
		rows = append(rows, BillRow{
			Type:           constants.RowTypeCategory,
			Category:       constants.FreightCategory,
			ProductService: normalizeShippingLabel(desc),
			Rate:           rate,
			Description:    desc,
		})
	}

	if rec.Total != "" {
		rows = append(rows, BillRow{
			Type:           constants.RowTypeCategory,
			ProductService: "Total Amount",
			Amount:         rec.Total,
		})
	}
	return rows
}

// Writer appends bills to one workbook file.
type Writer struct {
	path   string
	logger *slog.Logger
}

func NewWriter(path string, logger *slog.Logger) *Writer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Writer{path: path, logger: logger}
}

func (w *Writer) open() (*excelize.File, error) {
	if _, err := os.Stat(w.path); err == nil {
		f, err := excelize.OpenFile(w.path)
		if err != nil {
			return nil, fmt.Errorf("open workbook: %w", err)
		}
		return f, nil
	}

	f := excelize.NewFile()
	if _, err := f.NewSheet(SheetName); err != nil {
		return nil, err
	}
	if idx, _ := f.GetSheetIndex(SheetName); idx >= 0 {
		f.SetActiveSheet(idx)
	}
	_ = f.DeleteSheet("Sheet1")
	for i, h := range Headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(SheetName, cell, h); err != nil {
			return nil, err
		}
	}
	return f, nil
}

// AppendInvoice writes one record's rows and saves the workbook.
// It returns the number of rows written.
func (w *Writer) AppendInvoice(rec *invoice.Record) (int, error) {
	f, err := w.open()
	if err != nil {
		return 0, err
	}
	defer func() {
		if err := f.Close(); err != nil {
			w.logger.Warn("export.workbook_close_error", "path", w.path, "error", err)
		}
	}()

	existing, err := f.GetRows(SheetName)
	if err != nil {
		return 0, fmt.Errorf("read sheet: %w", err)
	}
	next := len(existing) + 1

	rows := BillRows(rec)
	for _, r := range rows {
		for col, v := range r.values() {
			cell, _ := excelize.CoordinatesToCellName(col+1, next)
			if err := f.SetCellValue(SheetName, cell, v); err != nil {
				return 0, err
			}
		}
		next++
	}

	if err := f.SaveAs(w.path); err != nil {
		return 0, fmt.Errorf("save workbook: %w", err)
	}
	w.logger.Info("export.rows_written",
		"path", w.path, "bill_no", rec.InvoiceNumber, "rows", len(rows))
	return len(rows), nil
}

// SetValidation fills the two validation columns of a previously
// written row (1-based row number).
func (w *Writer) SetValidation(rowNum int, status, failedFields string) error {
	f, err := w.open()
	if err != nil {
		return err
	}
	defer func() {
		if err := f.Close(); err != nil {
			w.logger.Warn("export.workbook_close_error", "path", w.path, "error", err)
		}
	}()

	cell, _ := excelize.CoordinatesToCellName(validationCol, rowNum)
	if err := f.SetCellValue(SheetName, cell, status); err != nil {
		return err
	}
	cell, _ = excelize.CoordinatesToCellName(failedFieldsCol, rowNum)
	if err := f.SetCellValue(SheetName, cell, failedFields); err != nil {
		return err
	}
	return f.SaveAs(w.path)
}
