package scores

import (
	"scorecli/pkg/contracts/domain"
)

// Default window sizes.
const (
	DefaultGapWindow   = 20
	DefaultQuantWindow = 60
	DefaultStdWindow   = 20
	DefaultStdMean     = 20
)

// Gap is today's price as a percentage of its mean over the last size
// contiguous observations. Any gap in the window makes it undefined.
func Gap(window domain.Series, size int) (float64, bool) {
	xs, ok := contiguous(window, size)
	if !ok {
		return 0, false
	}
	m := mean(xs)
	if m == 0 {
		return 0, true
	}
	return RoundHalfUp(100 * (xs[len(xs)-1] / m))
}

// Quant is half of today's volume as a percentage of its contiguous mean.
func Quant(window domain.Series, size int) (float64, bool) {
	xs, ok := contiguous(window, size)
	if !ok {
		return 0, false
	}
	m := mean(xs)
	if m == 0 {
		return 0, true
	}
	return RoundHalfUp(((xs[len(xs)-1] / m) * 100) / 2)
}

// StdMinIndex is the first series position where Std can be defined.
func StdMinIndex(windowStd, windowMean int) int {
	return windowStd + windowMean - 2
}

// Std compares today's rolling volatility with its own recent average.
//
// For each of the windowMean positions ending at idx it takes the population
// standard deviation of the windowStd prices ending there. The result is the
// percentage by which the last sigma exceeds the average sigma, to 2 places.
func Std(prices domain.Series, idx, windowStd, windowMean int) (float64, bool) {
	if windowStd < 1 || windowMean < 1 {
		return 0, false
	}
	if idx < StdMinIndex(windowStd, windowMean) || idx >= len(prices) {
		return 0, false
	}

	sigmas := make([]float64, 0, windowMean)
	buf := make([]float64, windowStd)
	for j := idx - windowMean + 1; j <= idx; j++ {
		start := j - windowStd + 1
		if start < 0 {
			return 0, false
		}
		for k, o := range prices[start : j+1] {
			if !o.Defined {
				return 0, false
			}
			buf[k] = o.Value
		}
		sigmas = append(sigmas, stddev(buf, 0))
	}

	today := sigmas[len(sigmas)-1]
	avg := sum(sigmas) / float64(len(sigmas))
	if avg == 0 {
		return 0, true
	}
	return RoundHalfUpPlaces((today/avg-1)*100, 2)
}

// Position is the S score: where the latest value sits between the min and
// max of the last size defined values, on a 0..100 scale.
func Position(history domain.Series, size int) (float64, bool) {
	xs, ok := lastDefined(history, size)
	if !ok {
		return 0, false
	}
	lo, hi := xs[0], xs[0]
	for _, x := range xs[1:] {
		if x < lo {
			lo = x
		}
		if x > hi {
			hi = x
		}
	}
	if hi == lo {
		return 0, true
	}
	return RoundHalfUp(100 * ((xs[len(xs)-1] - lo) / (hi - lo)))
}

// ZScore is the Z score: 50 times the sample z-score of the latest value
// among the last size defined values. Sizes below 2 have no sample deviation.
func ZScore(history domain.Series, size int) (float64, bool) {
	if size < 2 {
		return 0, false
	}
	xs, ok := lastDefined(history, size)
	if !ok {
		return 0, false
	}
	sd := stddev(xs, 1)
	if sd == 0 {
		return 0, true
	}
	z := (xs[len(xs)-1] - mean(xs)) / sd
	return RoundHalfUp(50 * z)
}
