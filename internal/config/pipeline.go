package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/banshee-data/treevolume/internal/units"
)

// PipelineConfig is the optional JSON configuration for the treevolume
// tools. Every field is a pointer so a partial file only overrides what it
// names; the Get* methods supply defaults for the rest. Command-line flags
// take precedence over values loaded here.
type PipelineConfig struct {
	// Batch params
	Workers      *int    `json:"workers,omitempty"`
	TreeSuffix   *string `json:"tree_suffix,omitempty"`
	PointsSuffix *string `json:"points_suffix,omitempty"`
	CloudSuffix  *string `json:"cloud_suffix,omitempty"`

	// Extraction params
	ExtractorCommand *string  `json:"extractor_command,omitempty"`
	ExtractorArgs    []string `json:"extractor_args,omitempty"`
	ExtractorTimeout *string  `json:"extractor_timeout,omitempty"` // duration string like "10m"

	// Output params
	VolumeUnit    *string `json:"volume_unit,omitempty"`
	HistogramBins *int    `json:"histogram_bins,omitempty"`
	DBPath        *string `json:"db_path,omitempty"`
}

// Defaults applied by the Get* methods.
const (
	DefaultTreeSuffix       = "_raycloud_trees.txt"
	DefaultPointsSuffix     = ".txt"
	DefaultCloudSuffix      = ".ply"
	DefaultExtractorCommand = "rayextract_tree_mesh.sh"
	DefaultExtractorTimeout = 10 * time.Minute
	DefaultHistogramBins    = 20
	DefaultDBPath           = "treevolume.db"
)

// EmptyPipelineConfig returns a PipelineConfig with all fields unset.
func EmptyPipelineConfig() *PipelineConfig {
	return &PipelineConfig{}
}

// LoadPipelineConfig loads a PipelineConfig from a JSON file.
// The file must have a .json extension and be under 1MB.
func LoadPipelineConfig(path string) (*PipelineConfig, error) {
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

	cfg := EmptyPipelineConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Validate checks that the configuration values are valid.
func (c *PipelineConfig) Validate() error {
	if c.Workers != nil && *c.Workers < 0 {
		return fmt.Errorf("workers must be non-negative, got %d", *c.Workers)
	}

	for name, suffix := range map[string]*string{
		"tree_suffix":   c.TreeSuffix,
		"points_suffix": c.PointsSuffix,
		"cloud_suffix":  c.CloudSuffix,
	} {
		if suffix != nil && (*suffix == "" || strings.ContainsRune(*suffix, filepath.Separator)) {
			return fmt.Errorf("%s must be a non-empty file name suffix, got %q", name, *suffix)
		}
	}

	if c.ExtractorTimeout != nil && *c.ExtractorTimeout != "" {
		d, err := time.ParseDuration(*c.ExtractorTimeout)
		if err != nil {
			return fmt.Errorf("invalid extractor_timeout '%s': %w", *c.ExtractorTimeout, err)
		}
		if d <= 0 {
			return fmt.Errorf("extractor_timeout must be positive, got %s", d)
		}
	}

	if c.VolumeUnit != nil && !units.IsValid(*c.VolumeUnit) {
		return fmt.Errorf("volume_unit must be one of %s, got %q", units.GetValidUnitsString(), *c.VolumeUnit)
	}

	if c.HistogramBins != nil && *c.HistogramBins < 1 {
		return fmt.Errorf("histogram_bins must be at least 1, got %d", *c.HistogramBins)
	}

	return nil
}

// GetWorkers returns the worker pool size. Zero or unset means one worker
// per available CPU.
func (c *PipelineConfig) GetWorkers() int {
	if c.Workers == nil || *c.Workers == 0 {
		return runtime.NumCPU()
	}
	return *c.Workers
}

// GetTreeSuffix returns the tree_suffix value or the default.
func (c *PipelineConfig) GetTreeSuffix() string {
	if c.TreeSuffix == nil {
		return DefaultTreeSuffix
	}
	return *c.TreeSuffix
}

// GetPointsSuffix returns the points_suffix value or the default.
func (c *PipelineConfig) GetPointsSuffix() string {
	if c.PointsSuffix == nil {
		return DefaultPointsSuffix
	}
	return *c.PointsSuffix
}

// GetCloudSuffix returns the cloud_suffix value or the default.
func (c *PipelineConfig) GetCloudSuffix() string {
	if c.CloudSuffix == nil {
		return DefaultCloudSuffix
	}
	return *c.CloudSuffix
}

// GetExtractorCommand returns the extractor_command value or the default.
func (c *PipelineConfig) GetExtractorCommand() string {
	if c.ExtractorCommand == nil || *c.ExtractorCommand == "" {
		return DefaultExtractorCommand
	}
	return *c.ExtractorCommand
}

// GetExtractorTimeout parses and returns the ExtractorTimeout as a time.Duration.
func (c *PipelineConfig) GetExtractorTimeout() time.Duration {
	if c.ExtractorTimeout == nil || *c.ExtractorTimeout == "" {
		return DefaultExtractorTimeout
	}
	d, err := time.ParseDuration(*c.ExtractorTimeout)
	if err != nil || d <= 0 {
		return DefaultExtractorTimeout // default on parse error
	}
	return d
}

// GetVolumeUnit returns the volume_unit value or the default (m³).
func (c *PipelineConfig) GetVolumeUnit() string {
	if c.VolumeUnit == nil {
		return units.M3
	}
	return *c.VolumeUnit
}

// GetHistogramBins returns the histogram_bins value or the default.
func (c *PipelineConfig) GetHistogramBins() int {
	if c.HistogramBins == nil {
		return DefaultHistogramBins
	}
	return *c.HistogramBins
}

// GetDBPath returns the db_path value or the default.
func (c *PipelineConfig) GetDBPath() string {
	if c.DBPath == nil || *c.DBPath == "" {
		return DefaultDBPath
	}
	return *c.DBPath
}
