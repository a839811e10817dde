package l4cadence

import (
	"math"
	"math/cmplx"

	"gonum.org/v1/gonum/dsp/fourier"
	"gonum.org/v1/gonum/stat"
)

// Options bound the spectral search.
type Options struct {
	MinHz float64
	MaxHz float64
}

// DefaultOptions returns the 0.3-3.0 Hz band.
func DefaultOptions() Options {
	return Options{MinHz: 0.3, MaxHz: 3.0}
}

// Estimate is the dominant stride frequency and its period. Both are NaN
// when no spectral bin falls inside the band.
type Estimate struct {
	Hz          float64
	StrideTimeS float64
}

// Locomotion averages the left and right gait signals into one series.
func Locomotion(left, right []float64) []float64 {
	n := min(len(left), len(right))
	out := make([]float64, n)
	for i := 0; i < n; i++ {
		out[i] = (left[i] + right[i]) * 0.5
	}
	return out
}

// Spectrum returns the one-sided amplitude spectrum of the mean-centred
// signal sampled at fs, with bin frequencies in Hz.
func Spectrum(sig []float64, fs float64) (freqs, amps []float64) {
	if len(sig) < 2 {
		return nil, nil
	}
	mean := stat.Mean(sig, nil)
	centred := make([]float64, len(sig))
	for i, v := range sig {
		centred[i] = v - mean
	}
	fft := fourier.NewFFT(len(centred))
	coeffs := fft.Coefficients(nil, centred)
	freqs = make([]float64, len(coeffs))
	amps = make([]float64, len(coeffs))
	for i, c := range coeffs {
		freqs[i] = fft.Freq(i) * fs
		amps[i] = cmplx.Abs(c)
	}
	return freqs, amps
}

// Cadence picks the in-band bin of greatest amplitude from the locomotion
// signal built from left and right. Ties resolve to the lowest frequency.
func Cadence(left, right []float64, fs float64, opts Options) Estimate {
	nan := Estimate{Hz: math.NaN(), StrideTimeS: math.NaN()}
	if fs <= 0 {
		return nan
	}
	freqs, amps := Spectrum(Locomotion(left, right), fs)
	best := -1
	for i, f := range freqs {
		if f < opts.MinHz || f > opts.MaxHz {
			continue
		}
		if best < 0 || amps[i] > amps[best] {
			best = i
		}
	}
	if best < 0 {
		return nan
	}
	hz := freqs[best]
	est := Estimate{Hz: hz, StrideTimeS: math.NaN()}
	if hz > 0 {
		est.StrideTimeS = 1 / hz
	}
	return est
}
