package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// DefaultConfigPath is the path to the canonical tuning defaults file.
// This is the single source of truth for all default tuning values.
const DefaultConfigPath = "config/tuning.defaults.json"

// TissueParams holds the per-tissue propagation parameters. Each tissue
// label in the atlas maps to one entry; fields omitted from the JSON use
// the Get* defaults.
type TissueParams struct {
	ThetaDegrees        *float64 `json:"theta_degrees,omitempty"`
	StepSizeMm          *float64 `json:"step_size_mm,omitempty"`
	MaxConsecutiveSteps *int     `json:"max_consecutive_steps,omitempty"`
	MaxRandomEnding     *float64 `json:"max_random_ending,omitempty"`
	MinDistanceStopMm   *float64 `json:"min_distance_before_stop_mm,omitempty"`
}

// GetThetaDegrees returns the aperture of the direction cone or the default.
func (p *TissueParams) GetThetaDegrees() float64 {
	if p == nil || p.ThetaDegrees == nil {
		return 45.0 // default
	}
	return *p.ThetaDegrees
}

// GetStepSizeMm returns the propagation step size or the default.
func (p *TissueParams) GetStepSizeMm() float64 {
	if p == nil || p.StepSizeMm == nil {
		return 0.5 // default
	}
	return *p.StepSizeMm
}

// GetMaxConsecutiveSteps returns the stationary-value window or the default.
func (p *TissueParams) GetMaxConsecutiveSteps() int {
	if p == nil || p.MaxConsecutiveSteps == nil {
		return 1 // default
	}
	return *p.MaxConsecutiveSteps
}

// GetMaxRandomEnding returns the random-ending probability floor used by
// nuclei continuation, or the default.
func (p *TissueParams) GetMaxRandomEnding() float64 {
	if p == nil || p.MaxRandomEnding == nil {
		return 0.5 // default
	}
	return *p.MaxRandomEnding
}

// GetMinDistanceStopMm returns the minimum escape distance before a nuclei
// continuation may terminate, or the default.
func (p *TissueParams) GetMinDistanceStopMm() float64 {
	if p == nil || p.MinDistanceStopMm == nil {
		return 2.0 // default
	}
	return *p.MinDistanceStopMm
}

// TuningConfig represents the root configuration for tracking parameters.
// The schema matches the /api/runs request body so the same JSON can be
// used for both startup configuration and per-run overrides.
type TuningConfig struct {
	// Spherical-function thresholds
	SfThreshold     *float64 `json:"sf_threshold,omitempty"`
	SfThresholdInit *float64 `json:"sf_threshold_init,omitempty"`

	// Streamline acceptance
	MinPoints       *int  `json:"min_points,omitempty"`
	MaxPoints       *int  `json:"max_points,omitempty"`
	KeepSinglePts   *bool `json:"keep_single_points,omitempty"`
	SingleDirection *bool `json:"single_direction,omitempty"`

	// Compression
	Compress         *bool    `json:"compress,omitempty"`
	CompressionError *float64 `json:"compression_error_mm,omitempty"`

	// Engine params
	Workers  *int   `json:"workers,omitempty"`
	RandSeed *int64 `json:"rand_seed,omitempty"`

	// Per-tissue params, keyed by atlas label ("0".."4")
	Tissues map[string]*TissueParams `json:"tissues,omitempty"`
}

// EmptyTuningConfig returns a TuningConfig with all fields set to nil.
// Use LoadTuningConfig to load actual values from the defaults file.
func EmptyTuningConfig() *TuningConfig {
	return &TuningConfig{}
}

// LoadTuningConfig loads a TuningConfig from a JSON file.
// The file is validated to ensure it has a .json extension and is under the
// max file size. Fields omitted from the JSON file retain their default
// values, so partial configs are safe.
func LoadTuningConfig(path string) (*TuningConfig, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024 // 1MB
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Parse JSON into empty config. The Get* methods provide fallback
	// defaults for any fields not specified in the JSON.
	cfg := EmptyTuningConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// MustLoadDefaultConfig loads the canonical tuning defaults from
// DefaultConfigPath. It searches for the file in the current directory and
// common parent directories. Panics if the file cannot be loaded, intended
// for test setup.
func MustLoadDefaultConfig() *TuningConfig {
	candidates := []string{
		DefaultConfigPath,
		"../../" + DefaultConfigPath,    // from internal/config/
		"../../../" + DefaultConfigPath, // deeper packages
		"../../../../" + DefaultConfigPath,
	}
	for _, path := range candidates {
		if cfg, err := LoadTuningConfig(path); err == nil {
			return cfg
		}
	}
	panic("cannot find " + DefaultConfigPath + " - run tests from repository root")
}

// Validate checks that the configuration values are valid.
func (c *TuningConfig) Validate() error {
	if c.SfThreshold != nil && *c.SfThreshold < 0 {
		return fmt.Errorf("sf_threshold must be non-negative, got %f", *c.SfThreshold)
	}
	if c.SfThresholdInit != nil && *c.SfThresholdInit < 0 {
		return fmt.Errorf("sf_threshold_init must be non-negative, got %f", *c.SfThresholdInit)
	}
	if c.MinPoints != nil && *c.MinPoints < 1 {
		return fmt.Errorf("min_points must be at least 1, got %d", *c.MinPoints)
	}
	if c.MaxPoints != nil && *c.MaxPoints < 1 {
		return fmt.Errorf("max_points must be at least 1, got %d", *c.MaxPoints)
	}
	if c.MinPoints != nil && c.MaxPoints != nil && *c.MinPoints > *c.MaxPoints {
		return fmt.Errorf("min_points (%d) must not exceed max_points (%d)", *c.MinPoints, *c.MaxPoints)
	}
	if c.CompressionError != nil && *c.CompressionError <= 0 {
		return fmt.Errorf("compression_error_mm must be positive, got %f", *c.CompressionError)
	}
	if c.Workers != nil && *c.Workers < 0 {
		return fmt.Errorf("workers must be non-negative, got %d", *c.Workers)
	}
	for label, p := range c.Tissues {
		if p == nil {
			continue
		}
		if p.ThetaDegrees != nil && (*p.ThetaDegrees <= 0 || *p.ThetaDegrees > 180) {
			return fmt.Errorf("tissue %s: theta_degrees must be in (0, 180], got %f", label, *p.ThetaDegrees)
		}
		if p.StepSizeMm != nil && *p.StepSizeMm <= 0 {
			return fmt.Errorf("tissue %s: step_size_mm must be positive, got %f", label, *p.StepSizeMm)
		}
		if p.MaxConsecutiveSteps != nil && *p.MaxConsecutiveSteps < 1 {
			return fmt.Errorf("tissue %s: max_consecutive_steps must be at least 1, got %d", label, *p.MaxConsecutiveSteps)
		}
		if p.MaxRandomEnding != nil && (*p.MaxRandomEnding < 0 || *p.MaxRandomEnding > 1) {
			return fmt.Errorf("tissue %s: max_random_ending must be in [0, 1], got %f", label, *p.MaxRandomEnding)
		}
	}
	return nil
}

// GetSfThreshold returns the sf_threshold value or the default.
func (c *TuningConfig) GetSfThreshold() float64 {
	if c.SfThreshold == nil {
		return 0.1 // default
	}
	return *c.SfThreshold
}

// GetSfThresholdInit returns the sf_threshold_init value or the default.
func (c *TuningConfig) GetSfThresholdInit() float64 {
	if c.SfThresholdInit == nil {
		return 0.5 // default
	}
	return *c.SfThresholdInit
}

// GetMinPoints returns the min_points value or the default.
func (c *TuningConfig) GetMinPoints() int {
	if c.MinPoints == nil {
		return 10 // default
	}
	return *c.MinPoints
}

// GetMaxPoints returns the max_points value or the default.
func (c *TuningConfig) GetMaxPoints() int {
	if c.MaxPoints == nil {
		return 1000 // default
	}
	return *c.MaxPoints
}

// GetKeepSinglePts returns the keep_single_points value or the default.
func (c *TuningConfig) GetKeepSinglePts() bool {
	if c.KeepSinglePts == nil {
		return false // default
	}
	return *c.KeepSinglePts
}

// GetSingleDirection returns the single_direction value or the default.
func (c *TuningConfig) GetSingleDirection() bool {
	if c.SingleDirection == nil {
		return false // default
	}
	return *c.SingleDirection
}

// GetCompress returns the compress value or the default.
func (c *TuningConfig) GetCompress() bool {
	if c.Compress == nil {
		return false // default
	}
	return *c.Compress
}

// GetCompressionError returns the compression_error_mm value or the default.
func (c *TuningConfig) GetCompressionError() float64 {
	if c.CompressionError == nil {
		return 0.1 // default
	}
	return *c.CompressionError
}

// GetWorkers returns the workers value or the default. Zero means one
// worker per CPU, resolved by the engine.
func (c *TuningConfig) GetWorkers() int {
	if c.Workers == nil {
		return 0 // default: engine picks GOMAXPROCS
	}
	return *c.Workers
}

// GetRandSeed returns the rand_seed value or the default.
func (c *TuningConfig) GetRandSeed() int64 {
	if c.RandSeed == nil {
		return 0 // default
	}
	return *c.RandSeed
}

// Tissue returns the per-tissue params for an atlas label, or nil when the
// label has no explicit entry (the TissueParams getters handle nil).
func (c *TuningConfig) Tissue(label string) *TissueParams {
	if c.Tissues == nil {
		return nil
	}
	return c.Tissues[label]
}
