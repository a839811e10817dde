//go:build !opencv
// +build !opencv

package l1frames

import (
	"fmt"

	"github.com/banshee-data/gait.report/internal/gait"
)

// OpenVideo is a stub when OpenCV support is disabled.
// Build with -tags=opencv to enable video decoding.
func OpenVideo(path string, opts Options) (Source, error) {
	return nil, fmt.Errorf("%w: video decoding not enabled: rebuild with -tags=opencv", gait.ErrInput)
}

// GrabFrame is a stub when OpenCV support is disabled.
func GrabFrame(path string, index int) (*Still, error) {
	return nil, fmt.Errorf("%w: video decoding not enabled: rebuild with -tags=opencv", gait.ErrInput)
}
