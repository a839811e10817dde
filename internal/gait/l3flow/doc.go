// Package l3flow owns Layer 3 (Flow) of the gait pipeline.
//
// Responsibilities: dense optical flow between consecutive sampled frames,
// the per-step median horizontal displacement inside the subject box, and
// the forward speed derived from it.
// Key types: Field, Estimator, Options.
//
// Farneback flow uses gocv and is compiled only with -tags=opencv.
//
// Dependency rule: L3 may depend on L1-L2 and package gait, never on L4+.
package l3flow
