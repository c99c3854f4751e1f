package scores

import (
	"math"

	"github.com/shopspring/decimal"
)

// RoundHalfUp rounds x to the nearest integer, ties away from zero.
//
// The float is first converted to its shortest round-tripping decimal form, so
// 118.5 stored as 118.49999999999999 is not what gets rounded: the digits a
// reader would see printed are. NaN and infinities are undefined.
func RoundHalfUp(x float64) (float64, bool) {
	return RoundHalfUpPlaces(x, 0)
}

// RoundHalfUpPlaces is RoundHalfUp to a fixed number of decimal places.
func RoundHalfUpPlaces(x float64, places int32) (float64, bool) {
	if math.IsNaN(x) || math.IsInf(x, 0) {
		return 0, false
	}
	d := decimal.NewFromFloat(x).Round(places)
	v, _ := d.Float64()
	// keep -0 out of the sheets
	if v == 0 {
		v = 0
	}
	return v, true
}
