//go:build !opencv
// +build !opencv

package l1frames

import (
	"errors"
	"strings"
	"testing"

	"github.com/banshee-data/gait.report/internal/gait"
)

func TestOpenVideoStub(t *testing.T) {
	_, err := OpenVideo("clip.mp4", DefaultOptions())
	if !errors.Is(err, gait.ErrInput) {
		t.Fatalf("expected ErrInput, got %v", err)
	}
	if !strings.Contains(err.Error(), "-tags=opencv") {
		t.Errorf("stub error should mention the build tag: %v", err)
	}

	if _, err := GrabFrame("clip.mp4", 0); !errors.Is(err, gait.ErrInput) {
		t.Fatalf("expected ErrInput, got %v", err)
	}
}
