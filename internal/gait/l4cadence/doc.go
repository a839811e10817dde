// Package l4cadence owns Layer 4 (Cadence) of the gait pipeline.
//
// Responsibilities: temporal smoothing of quadrant energy into gait
// signals, and the spectral estimate of the dominant stride frequency.
// Key types: Options, Estimate.
//
// Dependency rule: L4 may depend on L1-L3 and package gait, never on L5+.
package l4cadence
