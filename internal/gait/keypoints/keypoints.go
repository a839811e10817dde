package keypoints

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/banshee-data/gait.report/internal/gait"
	"github.com/banshee-data/gait.report/internal/monitoring"
	"github.com/banshee-data/gait.report/internal/security"
)

// Status is the outcome class of a prediction.
type Status int

const (
	Available Status = iota
	Unavailable
)

func (s Status) String() string {
	if s == Available {
		return "available"
	}
	return "unavailable"
}

// Frame is one frame of keypoints for the first detected animal.
type Frame struct {
	Coordinates [][2]float64
	Confidence  []float64
}

// Prediction is the full per-frame output of the pose tool.
type Prediction struct {
	Frames []Frame
	Source string
}

// Result is either an Available prediction or an Unavailable reason.
type Result struct {
	Status     Status
	Prediction *Prediction
	Reason     string
}

func unavailable(format string, args ...any) Result {
	return Result{Status: Unavailable, Reason: fmt.Sprintf(format, args...)}
}

// Err returns nil for Available, else an ErrModelUnavailable-wrapped error.
func (r Result) Err() error {
	if r.Status == Available {
		return nil
	}
	return fmt.Errorf("%w: %s", gait.ErrModelUnavailable, r.Reason)
}

// Model predicts keypoints for a clip.
type Model interface {
	Predict(ctx context.Context, videoPath string) Result
}

// RunFunc executes a command and returns its combined output.
type RunFunc func(ctx context.Context, name string, args ...string) ([]byte, error)

func execRun(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).CombinedOutput()
}

// CommandModel runs a pose tool as a subprocess. The literal argument
// "{video}" is replaced by the clip path; with no placeholder the path is
// appended.
type CommandModel struct {
	Name    string
	Args    []string
	Timeout time.Duration
	Run     RunFunc
}

// NewCommandModel parses a whitespace-separated command line. An empty
// line yields a model that always reports Unavailable.
func NewCommandModel(commandLine string, timeout time.Duration) *CommandModel {
	fields := strings.Fields(commandLine)
	m := &CommandModel{Timeout: timeout, Run: execRun}
	if len(fields) > 0 {
		m.Name, m.Args = fields[0], fields[1:]
	}
	return m
}

// Predict runs the tool and loads the newest output JSON for the clip.
func (m *CommandModel) Predict(ctx context.Context, videoPath string) Result {
	if m == nil || m.Name == "" {
		return unavailable("pose model not configured")
	}
	if m.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, m.Timeout)
		defer cancel()
	}

	run := m.Run
	if run == nil {
		run = execRun
	}
	start := time.Now()
	out, err := run(ctx, m.Name, m.args(videoPath)...)
	if err != nil {
		return unavailable("pose model %s failed: %v: %s", m.Name, err, tail(out, 512))
	}
	monitoring.Logf("[Keypoints] %s finished in %v", m.Name, time.Since(start).Round(time.Millisecond))

	path, err := FindOutput(videoPath)
	if err != nil {
		return unavailable("%v", err)
	}
	pred, err := LoadPrediction(path)
	if err != nil {
		return unavailable("%v", err)
	}
	if len(pred.Frames) == 0 {
		return unavailable("pose output %s holds no frames", path)
	}
	return Result{Status: Available, Prediction: pred}
}

func (m *CommandModel) args(videoPath string) []string {
	args := make([]string, 0, len(m.Args)+1)
	replaced := false
	for _, a := range m.Args {
		if strings.Contains(a, "{video}") {
			a = strings.ReplaceAll(a, "{video}", videoPath)
			replaced = true
		}
		args = append(args, a)
	}
	if !replaced {
		args = append(args, videoPath)
	}
	return args
}

func tail(b []byte, n int) string {
	s := strings.TrimSpace(string(b))
	if len(s) > n {
		s = s[len(s)-n:]
	}
	return s
}

// FindOutput locates the newest JSON written for a clip: files matching
// <stem>*.json beside it or <stem>*/*.json one directory down. Ties on
// modification time prefer the longer path.
func FindOutput(videoPath string) (string, error) {
	dir := filepath.Dir(videoPath)
	stem := strings.TrimSuffix(filepath.Base(videoPath), filepath.Ext(videoPath))
	pattern := escapeGlob(stem)

	var matches []string
	for _, p := range []string{
		filepath.Join(dir, pattern+"*", "*.json"),
		filepath.Join(dir, pattern+"*.json"),
	} {
		found, err := filepath.Glob(p)
		if err != nil {
			return "", fmt.Errorf("search pose output: %w", err)
		}
		matches = append(matches, found...)
	}

	type candidate struct {
		path  string
		mtime time.Time
	}
	var cands []candidate
	for _, p := range matches {
		if security.ValidatePathWithinDirectory(p, dir) != nil {
			continue
		}
		info, err := os.Stat(p)
		if err != nil || info.IsDir() {
			continue
		}
		cands = append(cands, candidate{path: p, mtime: info.ModTime()})
	}
	if len(cands) == 0 {
		return "", fmt.Errorf("no pose output found for %s", filepath.Base(videoPath))
	}
	sort.Slice(cands, func(i, j int) bool {
		if !cands[i].mtime.Equal(cands[j].mtime) {
			return cands[i].mtime.Before(cands[j].mtime)
		}
		return len(cands[i].path) < len(cands[j].path)
	})
	return cands[len(cands)-1].path, nil
}

func escapeGlob(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `*`, `\*`, `?`, `\?`, `[`, `\[`)
	return r.Replace(s)
}

type rawFrame struct {
	Coordinates [][][2]float64 `json:"coordinates"`
	Confidence  [][]float64    `json:"confidence"`
}

// LoadPrediction parses a pose output file: a JSON array of frames, each
// with "coordinates" (per animal, per keypoint [x, y]) and optional
// "confidence". Only the first animal is kept and missing confidences
// default to 1.
func LoadPrediction(path string) (*Prediction, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read pose output: %w", err)
	}
	var raw []rawFrame
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse pose output %s: %w", filepath.Base(path), err)
	}
	pred := &Prediction{Frames: make([]Frame, len(raw)), Source: path}
	for i, rf := range raw {
		var f Frame
		if len(rf.Coordinates) > 0 {
			f.Coordinates = rf.Coordinates[0]
		}
		f.Confidence = make([]float64, len(f.Coordinates))
		for k := range f.Confidence {
			f.Confidence[k] = 1
			if len(rf.Confidence) > 0 && k < len(rf.Confidence[0]) {
				f.Confidence[k] = rf.Confidence[0][k]
			}
		}
		pred.Frames[i] = f
	}
	return pred, nil
}
