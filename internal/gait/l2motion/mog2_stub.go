//go:build !opencv
// +build !opencv

package l2motion

import (
	"fmt"

	"github.com/banshee-data/gait.report/internal/gait"
)

// NewMotionModel is a stub when OpenCV support is disabled.
// Build with -tags=opencv to enable background subtraction.
func NewMotionModel(opts Options) (MotionModel, error) {
	return nil, fmt.Errorf("%w: motion segmentation not enabled: rebuild with -tags=opencv", gait.ErrInput)
}
