package l1frames

import (
	"image"
	"math"
)

// DefaultSourceFPS is assumed when a container reports no usable rate.
const DefaultSourceFPS = 30.0

// Options control sampling.
type Options struct {
	TargetFPS    float64
	MaxDimension int
}

// DefaultOptions samples towards 12 Hz and bounds frames to 768 pixels.
func DefaultOptions() Options {
	return Options{TargetFPS: 12, MaxDimension: 768}
}

// SampledFrame is a decoded frame that survived stride selection.
type SampledFrame struct {
	// Index is the position among sampled frames, starting at zero.
	Index int
	// SourceIndex is the zero-based position in the decoded stream.
	SourceIndex int
	Width       int
	Height      int
	Gray        *image.Gray
	Color       image.Image
}

// Source is a finite, non-restartable sequence of sampled frames.
// Implementations hold decoder resources until Close.
type Source interface {
	// Next returns the next sampled frame, or io.EOF once the stream is
	// exhausted.
	Next() (*SampledFrame, error)
	// SourceFPS is the container rate, or DefaultSourceFPS.
	SourceFPS() float64
	// Stride is the decoded-frame step between samples.
	Stride() int
	Close() error
}

// Still is a single decoded frame with the clip's rate.
type Still struct {
	Image     image.Image
	SourceFPS float64
}

// Stride returns max(1, round(source/target)). Halves round to even. A
// non-positive source rate falls back to DefaultSourceFPS.
func Stride(sourceFPS, targetFPS float64) int {
	if sourceFPS <= 0 || math.IsNaN(sourceFPS) || math.IsInf(sourceFPS, 0) {
		sourceFPS = DefaultSourceFPS
	}
	if targetFPS <= 0 {
		return 1
	}
	s := int(math.RoundToEven(sourceFPS / targetFPS))
	if s < 1 {
		return 1
	}
	return s
}

// Keep reports whether the frame at zero-based sourceIndex is sampled: its
// one-based position must be a multiple of the stride.
func Keep(sourceIndex, stride int) bool {
	if stride <= 1 {
		return true
	}
	return (sourceIndex+1)%stride == 0
}

// ScaledSize returns the dimensions after shrinking so the longest side is
// at most maxDim, preserving aspect ratio. Frames already within the bound
// are returned unchanged.
func ScaledSize(w, h, maxDim int) (int, int) {
	longest := max(w, h)
	if maxDim <= 0 || longest <= maxDim {
		return w, h
	}
	scale := float64(maxDim) / float64(longest)
	sw := max(1, int(float64(w)*scale))
	sh := max(1, int(float64(h)*scale))
	return sw, sh
}
