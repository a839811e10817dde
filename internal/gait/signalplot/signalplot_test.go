package signalplot

import (
	"bytes"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/gait.report/internal/gait"
)

func sampleSignals() *gait.Signals {
	s := &gait.Signals{}
	for i := 0; i < 48; i++ {
		phase := 2 * math.Pi * float64(i) / 12
		s.Left = append(s.Left, 0.2+0.1*math.Sin(phase))
		s.Right = append(s.Right, 0.2+0.1*math.Sin(phase+math.Pi))
		s.Top = append(s.Top, 0.3)
		s.Bottom = append(s.Bottom, 0.1)
	}
	s.Top[3] = math.NaN()
	return s
}

var pngMagic = []byte{0x89, 'P', 'N', 'G'}

func TestWritePNG(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WritePNG(&buf, "clip", sampleSignals(), 12))
	assert.True(t, bytes.HasPrefix(buf.Bytes(), pngMagic))
}

func TestSave(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "plots")
	path, err := Save(dir, "walk", sampleSignals(), 0)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "walk_signals.png"), path)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data, pngMagic))
}

func TestEmptySignals(t *testing.T) {
	_, err := New("x", nil, 12)
	assert.ErrorIs(t, err, gait.ErrInsufficientData)
	_, err = New("x", &gait.Signals{}, 12)
	assert.ErrorIs(t, err, gait.ErrInsufficientData)
}

func TestXYsSkipsNonFinite(t *testing.T) {
	pts := xys([]float64{1, math.NaN(), math.Inf(1), 2}, 2)
	require.Len(t, pts, 2)
	assert.Equal(t, 1.5, pts[1].X)
}
