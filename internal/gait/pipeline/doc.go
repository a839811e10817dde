// Package pipeline composes the gait layers into one analysis run: it
// tries the pose keypoint path when a model is configured, falls back to
// the heuristic motion path otherwise, and assembles the AnalysisResult.
//
// Each run builds its own stage state (background model, flow estimator,
// segmenter) and releases it before returning, so one Analyzer may serve
// many concurrent runs.
package pipeline
