package testutil

import (
	"testing"
	"time"

	"github.com/xuri/excelize/v2"
)

// RawRow is one entity row of a raw sheet fixture. Nil values are left blank.
type RawRow struct {
	Name   string
	Code   any
	Values []any
}

// RawSheet is a raw price or volume sheet fixture.
type RawSheet struct {
	Name  string
	Dates []any
	Rows  []RawRow
}

// WriteWorkbook saves sheets to path in the raw layout: row 1 carries the
// name/code labels and dates from column C, following rows carry entities.
func WriteWorkbook(t *testing.T, path string, sheets ...RawSheet) {
	t.Helper()

	f := excelize.NewFile()
	defer f.Close()

	for i, s := range sheets {
		if i == 0 {
			if err := f.SetSheetName("Sheet1", s.Name); err != nil {
				t.Fatalf("rename sheet: %v", err)
			}
		} else if _, err := f.NewSheet(s.Name); err != nil {
			t.Fatalf("new sheet %s: %v", s.Name, err)
		}

		header := append([]any{"종목명", "종목코드"}, s.Dates...)
		if err := f.SetSheetRow(s.Name, "A1", &header); err != nil {
			t.Fatalf("write header: %v", err)
		}

		for r, row := range s.Rows {
			values := append([]any{row.Name, row.Code}, row.Values...)
			cell, _ := excelize.CoordinatesToCellName(1, r+2)
			if err := f.SetSheetRow(s.Name, cell, &values); err != nil {
				t.Fatalf("write row %d: %v", r, err)
			}
		}
	}

	if err := f.SaveAs(path); err != nil {
		t.Fatalf("save workbook: %v", err)
	}
}

// DateHeaders returns n consecutive YYYYMMDD integers starting at start.
func DateHeaders(start time.Time, n int) []any {
	out := make([]any, n)
	for i := range out {
		d := start.AddDate(0, 0, i)
		out[i] = d.Year()*10000 + int(d.Month())*100 + d.Day()
	}
	return out
}

// Ramp returns n values base, base+step, ...
func Ramp(n int, base, step float64) []any {
	out := make([]any, n)
	for i := range out {
		out[i] = base + step*float64(i)
	}
	return out
}
