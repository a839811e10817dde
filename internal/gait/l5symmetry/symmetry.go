package l5symmetry

import (
	"math"

	"github.com/banshee-data/gait.report/internal/gait"
)

// DutyFactor returns the fraction of finite samples at or below their
// median, a proxy for the stance fraction of a stride. Non-finite samples
// are ignored; NaN when none remain.
func DutyFactor(x []float64) float64 {
	med := gait.Median(x)
	if math.IsNaN(med) {
		return math.NaN()
	}
	var below, finite int
	for _, v := range x {
		if !gait.IsFinite(v) {
			continue
		}
		finite++
		if v <= med {
			below++
		}
	}
	return float64(below) / float64(finite)
}

// Index is the symmetry index 100*|a-b| / ((a+b)/2) of two duty factors.
// It is NaN when either input is non-finite or negative, or when a+b is
// zero, so a finite result is never negative.
func Index(a, b float64) float64 {
	if !gait.IsFinite(a) || !gait.IsFinite(b) || a < 0 || b < 0 || a+b == 0 {
		return math.NaN()
	}
	return 100 * math.Abs(a-b) / ((a + b) / 2)
}

// PositionIndex compares two vertical positions, which may be negative or
// straddle zero: 100*|l-r| / max(1, (|l|+|r|)/2).
func PositionIndex(l, r float64) float64 {
	if math.IsNaN(l) || math.IsNaN(r) {
		return math.NaN()
	}
	return 100 * math.Abs(l-r) / math.Max(1, (math.Abs(l)+math.Abs(r))/2)
}

// MeanFinite averages the finite values, NaN when there are none.
func MeanFinite(vals ...float64) float64 {
	var sum float64
	var n int
	for _, v := range vals {
		if gait.IsFinite(v) {
			sum += v
			n++
		}
	}
	if n == 0 {
		return math.NaN()
	}
	return sum / float64(n)
}
