package scores

import (
	"math"

	"scorecli/pkg/contracts/domain"
)

// pairwiseBlock is the largest run summed with eight accumulators before
// the range is split in half.
const pairwiseBlock = 128

// sum adds left to right.
func sum(xs []float64) float64 {
	var s float64
	for _, x := range xs {
		s += x
	}
	return s
}

// pairwiseSum adds in the grouping numpy uses for float64 reductions: short
// runs left to right, up to pairwiseBlock values with eight interleaved
// accumulators, longer runs split at a multiple of eight.
func pairwiseSum(xs []float64) float64 {
	n := len(xs)
	switch {
	case n < 8:
		return sum(xs)
	case n <= pairwiseBlock:
		var r [8]float64
		copy(r[:], xs[:8])
		i := 8
		for ; i < n-n%8; i += 8 {
			for j := range r {
				r[j] += xs[i+j]
			}
		}
		s := ((r[0] + r[1]) + (r[2] + r[3])) + ((r[4] + r[5]) + (r[6] + r[7]))
		for ; i < n; i++ {
			s += xs[i]
		}
		return s
	default:
		half := n / 2
		half -= half % 8
		return pairwiseSum(xs[:half]) + pairwiseSum(xs[half:])
	}
}

func mean(xs []float64) float64 {
	return pairwiseSum(xs) / float64(len(xs))
}

// stddev is the two-pass standard deviation; ddof 0 is the population form,
// ddof 1 the sample form.
func stddev(xs []float64, ddof int) float64 {
	m := mean(xs)
	sq := make([]float64, len(xs))
	for i, x := range xs {
		d := x - m
		sq[i] = d * d
	}
	return math.Sqrt(pairwiseSum(sq) / float64(len(xs)-ddof))
}

// contiguous returns the window values only when every observation is defined
// and there are exactly size of them.
func contiguous(window domain.Series, size int) ([]float64, bool) {
	if size <= 0 || len(window) < size {
		return nil, false
	}
	window = window[len(window)-size:]
	out := make([]float64, size)
	for i, o := range window {
		if !o.Defined {
			return nil, false
		}
		out[i] = o.Value
	}
	return out, true
}

// lastDefined collects the most recent size defined values, oldest first,
// skipping undefined observations anywhere in history.
func lastDefined(history domain.Series, size int) ([]float64, bool) {
	if size <= 0 {
		return nil, false
	}
	out := make([]float64, size)
	n := size
	for i := len(history) - 1; i >= 0 && n > 0; i-- {
		if history[i].Defined {
			n--
			out[n] = history[i].Value
		}
	}
	if n > 0 {
		return nil, false
	}
	return out, true
}
