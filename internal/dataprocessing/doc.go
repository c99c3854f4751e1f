// Package dataprocessing reads the raw price and volume sheets of a category
// workbook into typed, date-sorted tables.
//
// Both sheets share one layout. Row 1 holds the name and code labels in
// columns A and B and trading dates from column C on. Every following row is
// one entity: name, code, then one reading per date column.
//
//	wb, err := dataprocessing.NewLoader(logger).Load(ctx, "KR_BIO.xlsx", domain.MarketKR)
//	if err != nil {
//	    return err
//	}
//	prices, err := wb.Table(dataprocessing.SourcePrice)
//
// Blank and unreadable cells become undefined readings. Header cells that are
// not dates are ignored, and a date repeated in the header keeps its first
// column.
package dataprocessing
