//go:build !opencv
// +build !opencv

package l6overlay

import (
	"fmt"

	"github.com/banshee-data/gait.report/internal/gait"
)

// NewDetector is a stub when OpenCV support is disabled.
func NewDetector(opts Options) (Detector, error) {
	return nil, fmt.Errorf("%w: corner detection not enabled: rebuild with -tags=opencv", gait.ErrInput)
}

// NewRenderer is a stub when OpenCV support is disabled.
func NewRenderer(opts Options) (Renderer, error) {
	return nil, fmt.Errorf("%w: overlay rendering not enabled: rebuild with -tags=opencv", gait.ErrInput)
}
