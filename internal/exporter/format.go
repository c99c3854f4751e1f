package exporter

import (
	"strconv"
)

// formatCell renders one score for CSV output. Integral scores print without
// a fraction; STD keeps its two decimals.
func formatCell(v float64, defined, integral bool) string {
	if !defined {
		return ""
	}
	if integral {
		return strconv.FormatInt(int64(v), 10)
	}
	return formatFloat(v)
}

// formatFloat formats a float64 value with exactly 2 decimal places
func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', 2, 64)
}
