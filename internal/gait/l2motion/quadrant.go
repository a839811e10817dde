package l2motion

import "image"

// QuadrantEnergy is the foreground fraction of each frame half. Left/right
// split at width/2, top/bottom at height/2.
type QuadrantEnergy struct {
	Left, Right, Top, Bottom float64
}

// Quadrants measures a foreground mask. Empty halves report zero.
func Quadrants(mask *image.Gray) QuadrantEnergy {
	b := mask.Bounds()
	w, h := b.Dx(), b.Dy()
	midX, midY := w/2, h/2
	var left, right, top, bottom int
	for y := 0; y < h; y++ {
		row := mask.Pix[y*mask.Stride : y*mask.Stride+w]
		for x, v := range row {
			if v == 0 {
				continue
			}
			if x < midX {
				left++
			} else {
				right++
			}
			if y < midY {
				top++
			} else {
				bottom++
			}
		}
	}
	return QuadrantEnergy{
		Left:   fraction(left, midX*h),
		Right:  fraction(right, (w-midX)*h),
		Top:    fraction(top, w*midY),
		Bottom: fraction(bottom, w*(h-midY)),
	}
}

func fraction(n, area int) float64 {
	if area <= 0 {
		return 0
	}
	return float64(n) / float64(area)
}

// EnergySeries accumulates one QuadrantEnergy per sampled frame.
type EnergySeries struct {
	Left, Right, Top, Bottom []float64
}

// Append adds a sample to every series.
func (s *EnergySeries) Append(q QuadrantEnergy) {
	s.Left = append(s.Left, q.Left)
	s.Right = append(s.Right, q.Right)
	s.Top = append(s.Top, q.Top)
	s.Bottom = append(s.Bottom, q.Bottom)
}

// Len is the number of samples.
func (s *EnergySeries) Len() int { return len(s.Left) }
