// Package l1frames owns Layer 1 (Frames) of the gait pipeline.
//
// Responsibilities: opening a clip, temporal stride sampling towards a
// target rate, downscaling so the longest side fits a bound, and
// greyscale conversion. Frames leave this layer as stdlib images so later
// layers and their tests do not need OpenCV.
// Key types: Source, SampledFrame, Options.
//
// Decoding uses gocv and is compiled only with -tags=opencv; without the
// tag OpenVideo and GrabFrame return an ErrInput-class error.
//
// Dependency rule: L1 may depend on package gait only.
package l1frames
