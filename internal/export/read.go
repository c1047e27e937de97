package export

import (
	"fmt"
	"log/slog"

	"github.com/xuri/excelize/v2"
)

// SheetRow is a BillRow read back from the workbook together with its
// 1-based sheet row number.
type SheetRow struct {
	Num  int
	Bill BillRow
}

func cell(row []string, idx int) string {
	if idx < len(row) {
		return row[idx]
	}
	return ""
}

// ReadRows loads every data row from the workbook, skipping the header.
func ReadRows(path string, logger *slog.Logger) ([]SheetRow, error) {
	if logger == nil {
		logger = slog.Default()
	}
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer func() {
		if err := f.Close(); err != nil {
			logger.Warn("export.workbook_close_error", "path", path, "error", err)
		}
	}()

	raw, err := f.GetRows(SheetName)
	if err != nil {
		return nil, fmt.Errorf("read sheet: %w", err)
	}

	var rows []SheetRow
	for i, r := range raw {
		if i == 0 {
			continue
		}
		rows = append(rows, SheetRow{
			Num: i + 1,
			Bill: BillRow{
				BillNo:          cell(r, 0),
				Vendor:          cell(r, 1),
				MailingAddress:  cell(r, 2),
				Terms:           cell(r, 3),
				BillDate:        cell(r, 4),
				DueDate:         cell(r, 5),
				Memo:            cell(r, 7),
				Type:            cell(r, 8),
				Category:        cell(r, 9),
				ProductService:  cell(r, 10),
				SKU:             cell(r, 11),
				Qty:             cell(r, 12),
				Rate:            cell(r, 13),
				Description:     cell(r, 14),
				Amount:          cell(r, 15),
				CustomerProject: cell(r, 17),
			},
		})
	}
	return rows, nil
}

// Validation is the reconciliation outcome for one sheet row.
type Validation struct {
	Status       string
	FailedFields string
}

// ApplyValidations writes the validation columns for many rows in one
// open/save cycle. Keys are 1-based sheet row numbers.
func (w *Writer) ApplyValidations(results map[int]Validation) error {
	if len(results) == 0 {
		return nil
	}
	f, err := w.open()
	if err != nil {
		return err
	}
	defer func() {
		if err := f.Close(); err != nil {
			w.logger.Warn("export.workbook_close_error", "path", w.path, "error", err)
		}
	}()

	for rowNum, v := range results {
		c, _ := excelize.CoordinatesToCellName(validationCol, rowNum)
		if err := f.SetCellValue(SheetName, c, v.Status); err != nil {
			return err
		}
		c, _ = excelize.CoordinatesToCellName(failedFieldsCol, rowNum)
		if err := f.SetCellValue(SheetName, c, v.FailedFields); err != nil {
			return err
		}
	}
	if err := f.SaveAs(w.path); err != nil {
		return fmt.Errorf("save workbook: %w", err)
	}
	w.logger.Info("export.validations_written", "path", w.path, "rows", len(results))
	return nil
}
