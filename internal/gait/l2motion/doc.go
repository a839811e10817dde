// Package l2motion owns Layer 2 (Motion) of the gait pipeline.
//
// Responsibilities: adaptive background subtraction, selection of the
// subject bounding box with hysteresis, and per-frame quadrant energy.
// Key types: MotionModel, Segmenter, QuadrantEnergy, EnergySeries.
//
// The background model uses gocv (MOG2) and is compiled only with
// -tags=opencv. Hysteresis and quadrant accounting are pure Go.
//
// Dependency rule: L2 may depend on L1 and package gait, never on L3+.
package l2motion
