//go:build opencv
// +build opencv

package l6overlay

import (
	"fmt"
	"image"
	"image/color"

	"gocv.io/x/gocv"

	"github.com/banshee-data/gait.report/internal/gait"
)

var (
	boxColor    = color.RGBA{R: 30, G: 170, B: 240, A: 0}
	markerColor = color.RGBA{R: 0x2F, G: 0xB3, B: 0x6D, A: 0}
)

const markerRadius = 4

type cornerDetector struct {
	opts Options
}

// NewDetector returns a Shi-Tomasi corner detector.
func NewDetector(opts Options) (Detector, error) {
	return &cornerDetector{opts: opts}, nil
}

func (d *cornerDetector) Corners(gray *image.Gray) ([][2]float64, error) {
	src, err := gocv.ImageGrayToMatGray(gray)
	if err != nil {
		return nil, err
	}
	defer src.Close()

	corners := gocv.NewMat()
	defer corners.Close()
	gocv.GoodFeaturesToTrack(src, &corners, d.opts.CornerLimit(), d.opts.Quality, d.opts.MinDistance)

	out := make([][2]float64, 0, corners.Rows())
	for i := 0; i < corners.Rows(); i++ {
		v := corners.GetVecfAt(i, 0)
		if len(v) < 2 {
			continue
		}
		out = append(out, [2]float64{float64(v[0]), float64(v[1])})
	}
	return out, nil
}

type jpegRenderer struct {
	quality int
}

// NewRenderer returns a renderer that draws with OpenCV and encodes JPEG.
func NewRenderer(opts Options) (Renderer, error) {
	q := opts.JPEGQuality
	if q <= 0 || q > 100 {
		return nil, fmt.Errorf("jpeg quality must be in 1..100, got %d", q)
	}
	return &jpegRenderer{quality: q}, nil
}

func (r *jpegRenderer) Render(frame image.Image, box *gait.BoundingBox, points []gait.OverlayPoint) ([]byte, error) {
	mat, err := gocv.ImageToMatRGB(frame)
	if err != nil {
		return nil, err
	}
	defer mat.Close()

	w, h := mat.Cols(), mat.Rows()
	if box != nil {
		gocv.Rectangle(&mat, box.Rect(), boxColor, 2)
	}
	for _, p := range points {
		c := image.Pt(int(p.X*float64(w-1)+0.5), int(p.Y*float64(h-1)+0.5))
		gocv.Circle(&mat, c, markerRadius, markerColor, -1)
	}

	buf, err := gocv.IMEncodeWithParams(gocv.JPEGFileExt, mat, []int{int(gocv.IMWriteJpegQuality), r.quality})
	if err != nil {
		return nil, err
	}
	defer buf.Close()
	return append([]byte(nil), buf.GetBytes()...), nil
}
