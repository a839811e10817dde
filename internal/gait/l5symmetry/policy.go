package l5symmetry

import (
	"fmt"
	"math"

	"github.com/banshee-data/gait.report/internal/gait"
)

// Policy maps a GSA value to a score and a score to a recommendation.
// Thresholds must be strictly ascending and Levels one longer than
// Thresholds: GSA below Thresholds[i] scores Levels[i], anything at or
// above the last threshold scores the final level.
type Policy struct {
	Thresholds      []float64
	Levels          []float64
	DegenerateScore float64
	MonitorAbove    float64
}

// DefaultPolicy returns the 5/10/20 banding.
func DefaultPolicy() Policy {
	return Policy{
		Thresholds:      []float64{5, 10, 20},
		Levels:          []float64{5.0, 3.5, 2.0, 1.0},
		DegenerateScore: 0,
		MonitorAbove:    2,
	}
}

// Validate checks the band layout.
func (p Policy) Validate() error {
	if len(p.Levels) != len(p.Thresholds)+1 {
		return fmt.Errorf("score policy: %d levels for %d thresholds, want %d",
			len(p.Levels), len(p.Thresholds), len(p.Thresholds)+1)
	}
	for i := 1; i < len(p.Thresholds); i++ {
		if p.Thresholds[i] <= p.Thresholds[i-1] {
			return fmt.Errorf("score policy: thresholds must be strictly ascending, got %v", p.Thresholds)
		}
	}
	return nil
}

// Score maps gsa through the bands. Non-finite GSA yields DegenerateScore.
func (p Policy) Score(gsa float64) float64 {
	if math.IsNaN(gsa) || math.IsInf(gsa, 0) {
		return p.DegenerateScore
	}
	for i, t := range p.Thresholds {
		if gsa < t {
			return p.Levels[i]
		}
	}
	return p.Levels[len(p.Levels)-1]
}

// Recommend returns the monitor-at-home advice for scores above
// MonitorAbove and the veterinary advice otherwise.
func (p Policy) Recommend(score float64) string {
	if score > p.MonitorAbove {
		return gait.RecommendMonitor
	}
	return gait.RecommendVet
}
