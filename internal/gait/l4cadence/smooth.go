package l4cadence

import "math"

// truncate is the kernel half-width in standard deviations.
const truncate = 4.0

// GaussianKernel returns normalized Gaussian weights of radius
// int(truncate*sigma+0.5).
func GaussianKernel(sigma float64) []float64 {
	radius := int(truncate*sigma + 0.5)
	k := make([]float64, 2*radius+1)
	var sum float64
	for i := -radius; i <= radius; i++ {
		w := math.Exp(-0.5 * float64(i*i) / (sigma * sigma))
		k[i+radius] = w
		sum += w
	}
	for i := range k {
		k[i] /= sum
	}
	return k
}

// Smooth convolves x with a Gaussian of the given sigma. Samples beyond the
// edges are mirrored (d c b a | a b c d | d c b a). A non-positive sigma
// returns a copy of x.
func Smooth(x []float64, sigma float64) []float64 {
	out := make([]float64, len(x))
	if sigma <= 0 || len(x) == 0 {
		copy(out, x)
		return out
	}
	k := GaussianKernel(sigma)
	radius := len(k) / 2
	n := len(x)
	for i := range x {
		var acc float64
		for j := -radius; j <= radius; j++ {
			acc += k[j+radius] * x[reflect(i+j, n)]
		}
		out[i] = acc
	}
	return out
}

// reflect maps an out-of-range index back into [0,n) by half-sample
// symmetric mirroring.
func reflect(i, n int) int {
	if n == 1 {
		return 0
	}
	period := 2 * n
	i %= period
	if i < 0 {
		i += period
	}
	if i >= n {
		i = period - 1 - i
	}
	return i
}
