package exporter

import (
	"github.com/xuri/excelize/v2"
)

// Presentation of a score sheet.
const (
	headerFill      = "CCCCCC"
	nameColumnWidth = 20
	codeColumnWidth = 12
	dateColumnWidth = 12
)

// applyPresentation styles the header row and sets column widths. It only
// touches formatting, never cell values.
func applyPresentation(f *excelize.File, sheet string, dateColumns int) error {
	style, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{headerFill}},
		Alignment: &excelize.Alignment{
			Horizontal: "center",
		},
	})
	if err != nil {
		return err
	}

	last := firstDateColumn - 1 + dateColumns
	if err := f.SetCellStyle(sheet, "A1", cellName(last, 1), style); err != nil {
		return err
	}

	if err := f.SetColWidth(sheet, "A", "A", nameColumnWidth); err != nil {
		return err
	}
	if err := f.SetColWidth(sheet, "B", "B", codeColumnWidth); err != nil {
		return err
	}
	if dateColumns == 0 {
		return nil
	}

	first, _ := excelize.ColumnNumberToName(firstDateColumn)
	end, _ := excelize.ColumnNumberToName(last)
	return f.SetColWidth(sheet, first, end, dateColumnWidth)
}
