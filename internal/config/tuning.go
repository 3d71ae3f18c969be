package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/luminance-labs/nightlift/internal/enhance"
)

// Built-in profile names.
const (
	ProfileStandard = "standard"
	ProfileNight    = "night"
	ProfileGentle   = "gentle"
)

// TuningConfig mirrors the parameter payload accepted by /api/enhance,
// so the same JSON schema serves startup files and per-request
// overrides. Every field is optional: unset fields fall back to the
// selected profile, which itself defaults to "standard".
type TuningConfig struct {
	// Profile names the base parameter set the overrides below are
	// applied on top of.
	Profile *string `json:"profile,omitempty"`

	// Pipeline params, same names and ranges as enhance.Params.
	CurveStrength           *float64 `json:"curve_strength,omitempty"`
	CurveIterations         *int     `json:"curve_iterations,omitempty"`
	LocalContrastFactor     *float64 `json:"local_contrast_factor,omitempty"`
	SaturationFactor        *float64 `json:"saturation_factor,omitempty"`
	SharpenAmount           *float64 `json:"sharpen_amount,omitempty"`
	SharpenBlend            *float64 `json:"sharpen_blend,omitempty"`
	DenoiseEdgeThreshold    *float64 `json:"denoise_edge_threshold,omitempty"`
	DenoiseBlendFloor       *float64 `json:"denoise_blend_floor,omitempty"`
	EdgeNormalization       *float64 `json:"edge_normalization,omitempty"`
	IntensityDecay          *float64 `json:"intensity_decay,omitempty"`
	ToneMapVariant          *string  `json:"tone_map_variant,omitempty"`
	ToneMapAvgThreshold     *float64 `json:"tone_map_avg_threshold,omitempty"`
	ToneMapMaxThreshold     *float64 `json:"tone_map_max_threshold,omitempty"`
	ToneMapGamma            *float64 `json:"tone_map_gamma,omitempty"`
	ToneMapTargetBrightness *float64 `json:"tone_map_target_brightness,omitempty"`
	EncodeQuality           *int     `json:"encode_quality,omitempty"`
	Workers                 *int     `json:"workers,omitempty"`

	// Service settings. The CLI ignores these; binaries let flags win
	// over the file.
	ListenAddr  *string `json:"listen_addr,omitempty"`
	DBPath      *string `json:"db_path,omitempty"`
	DataDir     *string `json:"data_dir,omitempty"`
	MaxUploadMB *int    `json:"max_upload_mb,omitempty"`
}

// Helper functions to create pointers
func ptrFloat64(v float64) *float64 { return &v }
func ptrString(v string) *string    { return &v }
func ptrInt(v int) *int             { return &v }

// EmptyTuningConfig returns a TuningConfig with all fields set to nil,
// which resolves to the standard profile.
func EmptyTuningConfig() *TuningConfig {
	return &TuningConfig{}
}

// LoadTuningConfig loads a TuningConfig from a JSON file.
// The file must have a .json extension and stay under the max file size.
// Fields omitted from the JSON keep their profile values, so partial
// configs are safe.
func LoadTuningConfig(path string) (*TuningConfig, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	// Check file size for safety (max 1MB)
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

// Validate checks that the configuration resolves to legal parameters
// and that the service settings are sane.
func (c *TuningConfig) Validate() error {
	if _, err := c.Params(); err != nil {
		return err
	}
	if c.MaxUploadMB != nil && *c.MaxUploadMB < 1 {
		return fmt.Errorf("max_upload_mb must be >= 1, got %d", *c.MaxUploadMB)
	}
	if c.ListenAddr != nil && *c.ListenAddr == "" {
		return fmt.Errorf("listen_addr must not be empty when set")
	}
	return nil
}

// Params resolves the config to a full parameter set: profile base,
// then field overrides, then a range check.
func (c *TuningConfig) Params() (enhance.Params, error) {
	p, err := ProfileParams(c.GetProfile())
	if err != nil {
		return enhance.Params{}, err
	}
	if c.CurveStrength != nil {
		p.CurveStrength = *c.CurveStrength
	}
	if c.CurveIterations != nil {
		p.CurveIterations = *c.CurveIterations
	}
	if c.LocalContrastFactor != nil {
		p.LocalContrastFactor = *c.LocalContrastFactor
	}
	if c.SaturationFactor != nil {
		p.SaturationFactor = *c.SaturationFactor
	}
	if c.SharpenAmount != nil {
		p.SharpenAmount = *c.SharpenAmount
	}
	if c.SharpenBlend != nil {
		p.SharpenBlend = *c.SharpenBlend
	}
	if c.DenoiseEdgeThreshold != nil {
		p.DenoiseEdgeThreshold = *c.DenoiseEdgeThreshold
	}
	if c.DenoiseBlendFloor != nil {
		p.DenoiseBlendFloor = *c.DenoiseBlendFloor
	}
	if c.EdgeNormalization != nil {
		p.EdgeNormalization = *c.EdgeNormalization
	}
	if c.IntensityDecay != nil {
		p.IntensityDecay = *c.IntensityDecay
	}
	if c.ToneMapVariant != nil {
		p.ToneMapVariant = enhance.ToneMapVariant(*c.ToneMapVariant)
	}
	if c.ToneMapAvgThreshold != nil {
		p.ToneMapAvgThreshold = *c.ToneMapAvgThreshold
	}
	if c.ToneMapMaxThreshold != nil {
		p.ToneMapMaxThreshold = *c.ToneMapMaxThreshold
	}
	if c.ToneMapGamma != nil {
		p.ToneMapGamma = *c.ToneMapGamma
	}
	if c.ToneMapTargetBrightness != nil {
		p.ToneMapTargetBrightness = *c.ToneMapTargetBrightness
	}
	if c.EncodeQuality != nil {
		p.EncodeQuality = *c.EncodeQuality
	}
	if c.Workers != nil {
		p.Workers = *c.Workers
	}
	if err := p.Validate(); err != nil {
		return enhance.Params{}, fmt.Errorf("invalid parameters: %w", err)
	}
	return p, nil
}

// profileTable builds the named parameter sets. A fresh map per call
// keeps callers from mutating shared state.
func profileTable() map[string]enhance.Params {
	standard := enhance.DefaultParams()

	night := enhance.DefaultParams()
	night.CurveStrength = 0.9
	night.CurveIterations = 2
	night.LocalContrastFactor = 0.25
	night.SaturationFactor = 0.3
	night.ToneMapVariant = enhance.ToneMapAdaptiveGain

	gentle := enhance.DefaultParams()
	gentle.CurveStrength = 0.6
	gentle.LocalContrastFactor = 0
	gentle.SaturationFactor = 0.15
	gentle.SharpenAmount = 0.6

	return map[string]enhance.Params{
		ProfileStandard: standard,
		ProfileNight:    night,
		ProfileGentle:   gentle,
	}
}

// Profiles returns the available profile names, sorted.
func Profiles() []string {
	table := profileTable()
	names := make([]string, 0, len(table))
	for name := range table {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ProfileParams resolves a profile name to its parameter set. The empty
// string selects the standard profile; unknown names are errors.
func ProfileParams(name string) (enhance.Params, error) {
	if name == "" {
		name = ProfileStandard
	}
	p, ok := profileTable()[name]
	if !ok {
		return enhance.Params{}, fmt.Errorf("unknown profile %q (have %v)", name, Profiles())
	}
	return p, nil
}

// GetProfile returns the profile name or the default.
func (c *TuningConfig) GetProfile() string {
	if c.Profile == nil || *c.Profile == "" {
		return ProfileStandard
	}
	return *c.Profile
}

// GetListenAddr returns the listen_addr value or the default.
func (c *TuningConfig) GetListenAddr() string {
	if c.ListenAddr == nil || *c.ListenAddr == "" {
		return ":8080"
	}
	return *c.ListenAddr
}

// GetDBPath returns the db_path value or the default.
func (c *TuningConfig) GetDBPath() string {
	if c.DBPath == nil || *c.DBPath == "" {
		return "nightlift.db"
	}
	return *c.DBPath
}

// GetDataDir returns the data_dir value or the default.
func (c *TuningConfig) GetDataDir() string {
	if c.DataDir == nil || *c.DataDir == "" {
		return "data"
	}
	return *c.DataDir
}

// GetMaxUploadBytes returns the upload cap in bytes (config is in MB).
func (c *TuningConfig) GetMaxUploadBytes() int64 {
	if c.MaxUploadMB == nil || *c.MaxUploadMB < 1 {
		return 20 << 20
	}
	return int64(*c.MaxUploadMB) << 20
}
