//go:build !opencv
// +build !opencv

package l3flow

import (
	"fmt"

	"github.com/banshee-data/gait.report/internal/gait"
)

// NewField is a stub when OpenCV support is disabled.
// Build with -tags=opencv to enable optical flow.
func NewField(opts Options) (Field, error) {
	return nil, fmt.Errorf("%w: optical flow not enabled: rebuild with -tags=opencv", gait.ErrInput)
}
