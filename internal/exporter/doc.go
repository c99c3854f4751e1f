// Package exporter persists score sheets.
//
// WorkbookStore loads a named metric sheet of a category workbook (the same
// file that holds the raw 종가 and 거래량 sheets) into a sheet.Table and
// writes it back in place. The layout is fixed: column A holds the entity name,
// column B the entity code and every following column one trading date
// (YYYYMMDD) in ascending order. The header row is bold on a grey fill.
//
// CSVWriter exports the same layout as CSV with a UTF-8 BOM so spreadsheet
// applications open the Korean headers correctly.
//
// Example usage:
//
//	store := exporter.NewWorkbookStore(logger)
//	table, err := store.LoadSheet("KR_BIO.xlsx", "s20")
//	// ... update table ...
//	err = store.SaveSheet("KR_BIO.xlsx", table, exporter.SaveOptions{Integral: true})
package exporter
