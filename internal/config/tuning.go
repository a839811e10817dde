package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// DefaultConfigPath is the path to the canonical tuning defaults file.
const DefaultConfigPath = "config/tuning.defaults.json"

// TuningConfig holds every tunable of the analysis pipeline and the job
// service. Fields are pointers so a partial file leaves the rest at their
// defaults; read values through the Get* methods.
type TuningConfig struct {
	// Sampling
	TargetFPS    *float64 `json:"target_fps,omitempty"`
	MaxDimension *int     `json:"max_dimension,omitempty"`

	// Background model and subject box
	MOG2History      *int     `json:"mog2_history,omitempty"`
	MOG2VarThreshold *float64 `json:"mog2_var_threshold,omitempty"`
	MedianKernel     *int     `json:"median_kernel,omitempty"`
	MinBBoxFraction  *float64 `json:"min_bbox_fraction,omitempty"`

	// Farneback flow
	FlowPyrScale   *float64 `json:"flow_pyr_scale,omitempty"`
	FlowLevels     *int     `json:"flow_levels,omitempty"`
	FlowWindow     *int     `json:"flow_window,omitempty"`
	FlowIterations *int     `json:"flow_iterations,omitempty"`
	FlowPolyN      *int     `json:"flow_poly_n,omitempty"`
	FlowPolySigma  *float64 `json:"flow_poly_sigma,omitempty"`

	// Signals and cadence
	SmoothingSigma *float64 `json:"smoothing_sigma,omitempty"`
	CadenceMinHz   *float64 `json:"cadence_min_hz,omitempty"`
	CadenceMaxHz   *float64 `json:"cadence_max_hz,omitempty"`
	MinFrames      *int     `json:"min_frames,omitempty"`
	IncludeSignals *bool    `json:"include_signals,omitempty"`

	// Score policy
	GSAThresholds     []float64 `json:"gsa_thresholds,omitempty"`
	ScoreLevels       []float64 `json:"score_levels,omitempty"`
	DegenerateScore   *float64  `json:"degenerate_score,omitempty"`
	MonitorAboveScore *float64  `json:"monitor_above_score,omitempty"`

	// Overlay
	MaxCorners        *int     `json:"max_corners,omitempty"`
	CornerQuality     *float64 `json:"corner_quality,omitempty"`
	CornerMinDistance *float64 `json:"corner_min_distance,omitempty"`
	JPEGQuality       *int     `json:"jpeg_quality,omitempty"`

	// Pose model
	PoseModelCommand *string `json:"pose_model_command,omitempty"`
	PoseModelTimeout *string `json:"pose_model_timeout,omitempty"` // duration string like "10m"
	FootstrikeWindow *int    `json:"footstrike_window,omitempty"`

	// Job service
	MaxUploadBytes *int64  `json:"max_upload_bytes,omitempty"`
	JobTimeout     *string `json:"job_timeout,omitempty"` // duration string like "15m"
	Workers        *int    `json:"workers,omitempty"`
	JobRetention   *string `json:"job_retention,omitempty"` // finished jobs older than this are purged; "0" keeps them
}

// EmptyTuningConfig returns a TuningConfig with all fields unset.
func EmptyTuningConfig() *TuningConfig {
	return &TuningConfig{}
}

// LoadTuningConfig loads a TuningConfig from a JSON file. The file must
// have a .json extension and be under 1MB. Fields omitted from the file
// fall back to their defaults.
func LoadTuningConfig(path string) (*TuningConfig, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := EmptyTuningConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// LoadOrDefault loads path when set. With an empty path it tries
// DefaultConfigPath and falls back to built-in defaults if that file is
// absent.
func LoadOrDefault(path string) (*TuningConfig, error) {
	if path != "" {
		return LoadTuningConfig(path)
	}
	if _, err := os.Stat(DefaultConfigPath); err == nil {
		return LoadTuningConfig(DefaultConfigPath)
	}
	return EmptyTuningConfig(), nil
}

// MustLoadDefaultConfig loads the canonical defaults from DefaultConfigPath,
// searching the current directory and its parents. Panics if the file
// cannot be loaded; intended for test setup.
func MustLoadDefaultConfig() *TuningConfig {
	candidates := []string{
		DefaultConfigPath,
		"../../" + DefaultConfigPath,          // from internal/config/
		"../../../" + DefaultConfigPath,       // from internal/gait/pipeline/
		"../../../../" + DefaultConfigPath,    // deeper packages
		"../../../../../" + DefaultConfigPath, // even deeper
	}
	for _, path := range candidates {
		if cfg, err := LoadTuningConfig(path); err == nil {
			return cfg
		}
	}
	panic("cannot find " + DefaultConfigPath + " - run tests from repository root")
}

// Bounds that configuration may not relax.
const (
	minFramesFloor    = 8
	maxCornersCeiling = 20
)

// Validate checks that the configuration values are usable.
func (c *TuningConfig) Validate() error {
	if c.TargetFPS != nil && *c.TargetFPS <= 0 {
		return fmt.Errorf("target_fps must be positive, got %f", *c.TargetFPS)
	}
	if c.MaxDimension != nil && *c.MaxDimension < 16 {
		return fmt.Errorf("max_dimension must be at least 16, got %d", *c.MaxDimension)
	}
	if c.MedianKernel != nil && (*c.MedianKernel < 1 || *c.MedianKernel%2 == 0) {
		return fmt.Errorf("median_kernel must be a positive odd number, got %d", *c.MedianKernel)
	}
	if c.MinBBoxFraction != nil && (*c.MinBBoxFraction < 0 || *c.MinBBoxFraction > 1) {
		return fmt.Errorf("min_bbox_fraction must be between 0 and 1, got %f", *c.MinBBoxFraction)
	}
	if c.FlowPyrScale != nil && (*c.FlowPyrScale <= 0 || *c.FlowPyrScale >= 1) {
		return fmt.Errorf("flow_pyr_scale must be in (0, 1), got %f", *c.FlowPyrScale)
	}
	if c.SmoothingSigma != nil && *c.SmoothingSigma < 0 {
		return fmt.Errorf("smoothing_sigma must be non-negative, got %f", *c.SmoothingSigma)
	}
	if c.GetCadenceMinHz() >= c.GetCadenceMaxHz() {
		return fmt.Errorf("cadence band is empty: %f..%f Hz", c.GetCadenceMinHz(), c.GetCadenceMaxHz())
	}
	if c.MinFrames != nil && *c.MinFrames < minFramesFloor {
		return fmt.Errorf("min_frames must be at least %d, got %d", minFramesFloor, *c.MinFrames)
	}
	if c.MaxCorners != nil && (*c.MaxCorners < 1 || *c.MaxCorners > maxCornersCeiling) {
		return fmt.Errorf("max_corners must be between 1 and %d, got %d", maxCornersCeiling, *c.MaxCorners)
	}
	thresholds, levels := c.GetGSAThresholds(), c.GetScoreLevels()
	if len(levels) != len(thresholds)+1 {
		return fmt.Errorf("score_levels needs %d entries for %d gsa_thresholds, got %d",
			len(thresholds)+1, len(thresholds), len(levels))
	}
	for i := 1; i < len(thresholds); i++ {
		if thresholds[i] <= thresholds[i-1] {
			return fmt.Errorf("gsa_thresholds must be strictly ascending, got %v", thresholds)
		}
	}
	if c.JPEGQuality != nil && (*c.JPEGQuality < 1 || *c.JPEGQuality > 100) {
		return fmt.Errorf("jpeg_quality must be between 1 and 100, got %d", *c.JPEGQuality)
	}
	if c.MaxUploadBytes != nil && *c.MaxUploadBytes <= 0 {
		return fmt.Errorf("max_upload_bytes must be positive, got %d", *c.MaxUploadBytes)
	}
	if c.Workers != nil && *c.Workers < 1 {
		return fmt.Errorf("workers must be at least 1, got %d", *c.Workers)
	}
	for name, v := range map[string]*string{
		"job_timeout":        c.JobTimeout,
		"pose_model_timeout": c.PoseModelTimeout,
		"job_retention":      c.JobRetention,
	} {
		if v != nil && *v != "" {
			d, err := time.ParseDuration(*v)
			if err != nil {
				return fmt.Errorf("invalid %s '%s': %w", name, *v, err)
			}
			if d < 0 {
				return fmt.Errorf("%s must not be negative, got %s", name, *v)
			}
		}
	}
	return nil
}

func getFloat(p *float64, def float64) float64 {
	if p == nil {
		return def
	}
	return *p
}

func getInt(p *int, def int) int {
	if p == nil {
		return def
	}
	return *p
}

func getDuration(p *string, def time.Duration) time.Duration {
	if p == nil || *p == "" {
		return def
	}
	d, err := time.ParseDuration(*p)
	if err != nil {
		return def
	}
	return d
}

// GetTargetFPS returns the sampling rate in Hz.
func (c *TuningConfig) GetTargetFPS() float64 { return getFloat(c.TargetFPS, 12) }

// GetMaxDimension returns the longest-side bound in pixels.
func (c *TuningConfig) GetMaxDimension() int { return getInt(c.MaxDimension, 768) }

func (c *TuningConfig) GetMOG2History() int          { return getInt(c.MOG2History, 300) }
func (c *TuningConfig) GetMOG2VarThreshold() float64 { return getFloat(c.MOG2VarThreshold, 25) }
func (c *TuningConfig) GetMedianKernel() int         { return getInt(c.MedianKernel, 5) }
func (c *TuningConfig) GetMinBBoxFraction() float64  { return getFloat(c.MinBBoxFraction, 0.02) }

func (c *TuningConfig) GetFlowPyrScale() float64  { return getFloat(c.FlowPyrScale, 0.5) }
func (c *TuningConfig) GetFlowLevels() int        { return getInt(c.FlowLevels, 3) }
func (c *TuningConfig) GetFlowWindow() int        { return getInt(c.FlowWindow, 25) }
func (c *TuningConfig) GetFlowIterations() int    { return getInt(c.FlowIterations, 3) }
func (c *TuningConfig) GetFlowPolyN() int         { return getInt(c.FlowPolyN, 5) }
func (c *TuningConfig) GetFlowPolySigma() float64 { return getFloat(c.FlowPolySigma, 1.2) }

func (c *TuningConfig) GetSmoothingSigma() float64 { return getFloat(c.SmoothingSigma, 2) }
func (c *TuningConfig) GetCadenceMinHz() float64   { return getFloat(c.CadenceMinHz, 0.3) }
func (c *TuningConfig) GetCadenceMaxHz() float64   { return getFloat(c.CadenceMaxHz, 3.0) }

// GetMinFrames returns the fewest sampled frames an analysis accepts.
func (c *TuningConfig) GetMinFrames() int { return getInt(c.MinFrames, 8) }

// GetIncludeSignals reports whether results carry the smoothed series.
func (c *TuningConfig) GetIncludeSignals() bool {
	if c.IncludeSignals == nil {
		return true
	}
	return *c.IncludeSignals
}

// GetGSAThresholds returns the ascending GSA band edges.
func (c *TuningConfig) GetGSAThresholds() []float64 {
	if len(c.GSAThresholds) == 0 {
		return []float64{5, 10, 20}
	}
	return c.GSAThresholds
}

// GetScoreLevels returns the score for each GSA band.
func (c *TuningConfig) GetScoreLevels() []float64 {
	if len(c.ScoreLevels) == 0 {
		return []float64{5, 3.5, 2, 1}
	}
	return c.ScoreLevels
}

func (c *TuningConfig) GetDegenerateScore() float64   { return getFloat(c.DegenerateScore, 0) }
func (c *TuningConfig) GetMonitorAboveScore() float64 { return getFloat(c.MonitorAboveScore, 2) }

func (c *TuningConfig) GetMaxCorners() int            { return getInt(c.MaxCorners, 20) }
func (c *TuningConfig) GetCornerQuality() float64     { return getFloat(c.CornerQuality, 0.01) }
func (c *TuningConfig) GetCornerMinDistance() float64 { return getFloat(c.CornerMinDistance, 18) }
func (c *TuningConfig) GetJPEGQuality() int           { return getInt(c.JPEGQuality, 85) }

// GetPoseModelCommand returns the pose model command line, empty when
// the keypoint path is disabled.
func (c *TuningConfig) GetPoseModelCommand() string {
	if c.PoseModelCommand == nil {
		return ""
	}
	return *c.PoseModelCommand
}

func (c *TuningConfig) GetPoseModelTimeout() time.Duration {
	return getDuration(c.PoseModelTimeout, 10*time.Minute)
}

func (c *TuningConfig) GetFootstrikeWindow() int { return getInt(c.FootstrikeWindow, 5) }

// GetMaxUploadBytes returns the upload size limit.
func (c *TuningConfig) GetMaxUploadBytes() int64 {
	if c.MaxUploadBytes == nil {
		return 200 << 20
	}
	return *c.MaxUploadBytes
}

// GetJobTimeout returns the per-job deadline.
func (c *TuningConfig) GetJobTimeout() time.Duration {
	return getDuration(c.JobTimeout, 15*time.Minute)
}

func (c *TuningConfig) GetWorkers() int { return getInt(c.Workers, 1) }

// GetJobRetention returns how long finished jobs are kept. Zero disables
// purging.
func (c *TuningConfig) GetJobRetention() time.Duration {
	return getDuration(c.JobRetention, 7*24*time.Hour)
}
