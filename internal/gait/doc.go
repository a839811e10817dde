// Package gait holds the shared vocabulary of the gait pipeline: the
// analysis result returned to clients, the metrics it carries, overlay
// markers and the error classes every stage reports through.
//
// The processing stages live in sub-packages that mirror the order in which
// a clip flows through them:
//
//	l1frames   video decode, stride sampling, resize, greyscale
//	l2motion   background model, subject box, quadrant energy
//	l3flow     dense optical flow, forward speed
//	l4cadence  smoothing, spectral cadence
//	l5symmetry duty factor, symmetry index, score policy
//	l6overlay  corner markers, annotated still
//
// Dependency rule: a layer may import lower-numbered layers and this
// package, never a higher layer. The pipeline package composes them.
package gait
