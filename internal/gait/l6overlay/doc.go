// Package l6overlay owns Layer 6 (Overlay) of the gait pipeline.
//
// Responsibilities: salient corner markers on a representative frame,
// normalization of marker coordinates, and the annotated JPEG still.
// Key types: Detector, Renderer, Builder.
//
// Corner detection and drawing use gocv and are compiled only with
// -tags=opencv.
//
// Dependency rule: L6 may depend on L1-L5 and package gait.
package l6overlay
