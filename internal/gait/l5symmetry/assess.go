package l5symmetry

import (
	"math"

	"github.com/banshee-data/gait.report/internal/gait"
)

// Assessment is the scored outcome of a symmetry analysis.
type Assessment struct {
	// Duty is nil when the source carries no temporal quadrant signals.
	Duty           *gait.DutyFactors
	Symmetry       gait.SymmetryIndices
	GSA            float64
	Score          float64
	Recommendation string
}

// Assessor is implemented by every signal source the scorer accepts.
type Assessor interface {
	Assess(p Policy) Assessment
}

// QuadrantSignals are the smoothed left/right/top/bottom energy series.
type QuadrantSignals struct {
	Left, Right, Top, Bottom []float64
}

// Assess computes duty factors per quadrant, the left-right and top-bottom
// indices over them, and GSA as their finite mean.
func (q QuadrantSignals) Assess(p Policy) Assessment {
	duty := gait.DutyFactors{
		Left:   gait.Number(DutyFactor(q.Left)),
		Right:  gait.Number(DutyFactor(q.Right)),
		Top:    gait.Number(DutyFactor(q.Top)),
		Bottom: gait.Number(DutyFactor(q.Bottom)),
	}
	lr := Index(duty.Left.Float(), duty.Right.Float())
	tb := Index(duty.Top.Float(), duty.Bottom.Float())
	return finish(p, Assessment{
		Duty: &duty,
		Symmetry: gait.SymmetryIndices{
			LeftRight: gait.Number(lr),
			TopBottom: gait.Num(tb),
		},
		GSA: MeanFinite(lr, tb),
	})
}

// KeypointGroups are the vertical positions of keypoints on each side of a
// representative frame.
type KeypointGroups struct {
	LeftY, RightY []float64
}

// GroupKeypoints splits points at the median x: points at or left of it
// form the left group. Returns the groups and, for each input point,
// whether it was assigned left.
func GroupKeypoints(points [][2]float64) (KeypointGroups, []bool) {
	var g KeypointGroups
	left := make([]bool, len(points))
	if len(points) == 0 {
		return g, left
	}
	xs := make([]float64, len(points))
	for i, p := range points {
		xs[i] = p[0]
	}
	mid := gait.Median(xs)
	for i, p := range points {
		if p[0] <= mid {
			g.LeftY = append(g.LeftY, p[1])
			left[i] = true
		} else {
			g.RightY = append(g.RightY, p[1])
		}
	}
	return g, left
}

// Assess compares the mean vertical positions of the two groups. With
// fewer than two keypoints in total the index is undefined.
func (k KeypointGroups) Assess(p Policy) Assessment {
	si := math.NaN()
	if len(k.LeftY)+len(k.RightY) >= 2 {
		si = PositionIndex(meanOrNaN(k.LeftY), meanOrNaN(k.RightY))
	}
	return finish(p, Assessment{
		Symmetry: gait.SymmetryIndices{LeftRight: gait.Number(si)},
		GSA:      si,
	})
}

func finish(p Policy, a Assessment) Assessment {
	a.Score = p.Score(a.GSA)
	a.Recommendation = p.Recommend(a.Score)
	return a
}

func meanOrNaN(xs []float64) float64 {
	if len(xs) == 0 {
		return math.NaN()
	}
	var sum float64
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

// Footstrikes returns the times in seconds of local minima of y after a
// centred rolling mean of width win. Index i is a minimum when it equals
// the smallest smoothed value within win samples on either side; only
// indices with a full window on both sides are considered.
func Footstrikes(y []float64, fps float64, win int) []float64 {
	if win < 1 || fps <= 0 {
		return nil
	}
	sm := rollingMean(y, win)
	var out []float64
	for i := win; i < len(sm)-win; i++ {
		if math.IsNaN(sm[i]) {
			continue
		}
		lo := math.Inf(1)
		for j := i - win; j <= i+win; j++ {
			if !math.IsNaN(sm[j]) && sm[j] < lo {
				lo = sm[j]
			}
		}
		if sm[i] == lo {
			out = append(out, float64(i)/fps)
		}
	}
	return out
}

// rollingMean is a centred moving average; positions without a complete
// window are NaN.
func rollingMean(y []float64, win int) []float64 {
	out := make([]float64, len(y))
	half := win / 2
	for i := range y {
		start := i - half
		end := start + win
		if start < 0 || end > len(y) {
			out[i] = math.NaN()
			continue
		}
		var sum float64
		for _, v := range y[start:end] {
			sum += v
		}
		out[i] = sum / float64(win)
	}
	return out
}
