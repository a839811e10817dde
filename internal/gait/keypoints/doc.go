// Package keypoints adapts an external pose-estimation tool. The tool is
// run as a command against a clip; it writes per-frame keypoint JSON next
// to the clip, which this package discovers and parses.
//
// Predict never returns an error. Every failure, including an unset
// command, surfaces as an Unavailable result carrying the reason, and the
// caller decides whether to fall back.
package keypoints
