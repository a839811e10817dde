package gait

import "image"

// Recommendations emitted alongside the score.
const (
	RecommendMonitor = "Monitor at home"
	RecommendVet     = "Consult veterinarian for physical examination"
)

// MarkerColor is the display colour of overlay points.
const MarkerColor = "#2FB36D"

// BoundingBox is an axis-aligned pixel rectangle in resized-frame
// coordinates.
type BoundingBox struct {
	X int `json:"x"`
	Y int `json:"y"`
	W int `json:"w"`
	H int `json:"h"`
}

// BoxFromRect converts an image rectangle.
func BoxFromRect(r image.Rectangle) BoundingBox {
	r = r.Canon()
	return BoundingBox{X: r.Min.X, Y: r.Min.Y, W: r.Dx(), H: r.Dy()}
}

// Area returns w*h.
func (b BoundingBox) Area() int { return b.W * b.H }

// Rect returns the box as an image rectangle.
func (b BoundingBox) Rect() image.Rectangle {
	return image.Rect(b.X, b.Y, b.X+b.W, b.Y+b.H)
}

// OverlayPoint is a marker in normalized [0,1] frame coordinates.
type OverlayPoint struct {
	X     float64  `json:"x"`
	Y     float64  `json:"y"`
	Color string   `json:"color"`
	Label string   `json:"label,omitempty"`
	Conf  *float64 `json:"conf,omitempty"`
}

// DutyFactors holds the per-quadrant stance fraction.
type DutyFactors struct {
	Left   Number `json:"left"`
	Right  Number `json:"right"`
	Top    Number `json:"top"`
	Bottom Number `json:"bottom"`
}

// SymmetryIndices holds the pairwise symmetry indices. TopBottom is absent
// on the pose keypoint path.
type SymmetryIndices struct {
	LeftRight Number  `json:"left_right"`
	TopBottom *Number `json:"top_bottom,omitempty"`
}

// Signals are the smoothed per-quadrant energy series, one sample per
// sampled frame.
type Signals struct {
	Left   []float64 `json:"left"`
	Right  []float64 `json:"right"`
	Top    []float64 `json:"top"`
	Bottom []float64 `json:"bottom"`
}

// Len returns the number of samples per series.
func (s *Signals) Len() int {
	if s == nil {
		return 0
	}
	return len(s.Left)
}

// Metrics is the measurement block of an AnalysisResult. Optional fields
// are omitted by the pose keypoint path.
type Metrics struct {
	FPS               *Number              `json:"fps,omitempty"`
	CadenceHz         *Number              `json:"cadence_hz,omitempty"`
	StrideTimeS       *Number              `json:"stride_time_s,omitempty"`
	DutyFactor        *DutyFactors         `json:"duty_factor,omitempty"`
	SymmetryIndex     SymmetryIndices      `json:"symmetry_index"`
	GSA               Number               `json:"gsa"`
	SpeedPxS          *Number              `json:"speed_px_s,omitempty"`
	StrideLengthPxEst *Number              `json:"stride_length_px_est,omitempty"`
	Signals           *Signals             `json:"signals,omitempty"`
	Events            map[string][]float64 `json:"events,omitempty"`
}

// AnalysisResult is the outcome of analysing one clip.
type AnalysisResult struct {
	Score          float64        `json:"score"`
	Recommendation string         `json:"recommendation"`
	Metrics        Metrics        `json:"metrics"`
	OverlayPoints  []OverlayPoint `json:"overlay_points"`
	FrameJPEGB64   *string        `json:"frame_jpeg_b64"`
}
