// Package config provides configuration loading and management for mrixform.
// It handles loading configuration from YAML files and provides default values.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"gopkg.in/yaml.v3"

	"mrixform/pkg/resample"
	"mrixform/pkg/volume"
)

// Config represents the application configuration loaded from YAML
type Config struct {
	// Processing parameters
	Processing struct {
		// NumCores specifies how many CPU cores the resampler may use
		NumCores int `yaml:"numCores"`
	} `yaml:"processing"`

	// Resampling parameters
	Resampling struct {
		// Interpolation is "nearest" or "trilinear"
		Interpolation string `yaml:"interpolation"`

		// Boundary is the policy used for out-of-range reads: "clamp" or "wrap"
		Boundary string `yaml:"boundary"`

		// ScalarType is the voxel type of volumes created by the CLI
		ScalarType string `yaml:"scalarType"`
	} `yaml:"resampling"`

	// Transform parameters
	Transform struct {
		// RoundTripTolerance is the largest voxel error accepted when a
		// transform is checked by mapping forward and back
		RoundTripTolerance float64 `yaml:"roundTripTolerance"`
	} `yaml:"transform"`

	// Output parameters
	Output struct {
		// Verbose controls the level of logging output
		Verbose bool `yaml:"verbose"`

		// ExtractSlices saves slices of the result along every axis
		ExtractSlices bool `yaml:"extractSlices"`

		// SlicesDir is where extracted slices are written
		SlicesDir string `yaml:"slicesDir"`

		// ProfilePlot, when set, is the PNG receiving centre line profiles
		ProfilePlot string `yaml:"profilePlot"`
	} `yaml:"output"`
}

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	cfg := &Config{}

	cfg.Processing.NumCores = runtime.NumCPU() // Use all available cores by default

	cfg.Resampling.Interpolation = resample.Nearest.String()
	cfg.Resampling.Boundary = volume.Clamp.String()
	cfg.Resampling.ScalarType = volume.UChar.String()

	cfg.Transform.RoundTripTolerance = 1e-6

	cfg.Output.Verbose = true
	cfg.Output.ExtractSlices = false
	cfg.Output.SlicesDir = "slices"

	return cfg
}

// Validate checks that every field holds a usable value
func (c *Config) Validate() error {
	if c.Processing.NumCores < 1 {
		return fmt.Errorf("processing.numCores must be positive, got %d", c.Processing.NumCores)
	}
	if _, err := c.InterpolationMode(); err != nil {
		return fmt.Errorf("resampling.interpolation: %w", err)
	}
	if _, err := c.BoundaryPolicy(); err != nil {
		return fmt.Errorf("resampling.boundary: %w", err)
	}
	if _, err := volume.ParseScalarType(c.Resampling.ScalarType); err != nil {
		return fmt.Errorf("resampling.scalarType: %w", err)
	}
	if c.Transform.RoundTripTolerance <= 0 || c.Transform.RoundTripTolerance > 1 {
		return fmt.Errorf("transform.roundTripTolerance must be in (0, 1], got %g", c.Transform.RoundTripTolerance)
	}
	return nil
}

// InterpolationMode parses Resampling.Interpolation
func (c *Config) InterpolationMode() (resample.Interpolation, error) {
	return resample.ParseInterpolation(c.Resampling.Interpolation)
}

// BoundaryPolicy parses Resampling.Boundary
func (c *Config) BoundaryPolicy() (volume.BoundaryPolicy, error) {
	return volume.ParseBoundaryPolicy(c.Resampling.Boundary)
}

// ResamplerParams builds resampler parameters from the configuration
func (c *Config) ResamplerParams() *resample.Params {
	params := &resample.Params{Workers: c.Processing.NumCores}
	if c.Output.Verbose {
		params.Progress = resample.PrintProgress
	}
	return params
}

// LoadConfig loads configuration from a YAML file
// If the file doesn't exist, it returns the default configuration
func LoadConfig(configPath string) (*Config, error) {
	cfg := DefaultConfig()

	// Check if config file exists
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return cfg, nil
	}

	// Read config file
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	// Parse YAML
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config file %s: %w", configPath, err)
	}

	return cfg, nil
}

// SaveConfig saves the configuration to a YAML file
func SaveConfig(cfg *Config, configPath string) error {
	// Create directory if it doesn't exist
	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("error creating config directory: %w", err)
	}

	// Marshal config to YAML
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("error marshaling config: %w", err)
	}

	// Write to file
	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("error writing config file: %w", err)
	}

	return nil
}

// CreateDefaultConfigFile creates a default configuration file at the specified path
func CreateDefaultConfigFile(configPath string) error {
	cfg := DefaultConfig()
	return SaveConfig(cfg, configPath)
}
