// Package config provides configuration loading and management for the
// spectral cube tools. It loads YAML files, applies SPECTRALCUBE_*
// environment overrides and provides default values.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"

	"spectralcube/internal/observability"
	"spectralcube/pkg/cube"
	"spectralcube/pkg/geometry"
	"spectralcube/pkg/grid"
	"spectralcube/pkg/lazy"
	"spectralcube/pkg/moments"
)

// Config represents the application configuration loaded from YAML
type Config struct {
	// Processing parameters
	Processing struct {
		// NumCores specifies how many goroutines evaluate chunks in parallel
		NumCores int `yaml:"numCores" env:"SPECTRALCUBE_WORKERS"`

		// AutoThreshold is the voxel count above which the auto moment
		// strategy stops materializing the whole cube
		AutoThreshold int `yaml:"autoThreshold" env:"SPECTRALCUBE_AUTO_THRESHOLD"`

		// TileSize is the transverse tile edge of ray-wise work
		TileSize int `yaml:"tileSize" env:"SPECTRALCUBE_TILE_SIZE"`

		// ChunkShape is the chunk shape, in storage order, used when a data
		// file header does not name one
		ChunkShape []int `yaml:"chunkShape" env:"SPECTRALCUBE_CHUNK_SHAPE" envSeparator:","`

		// WarnThreshold is the voxel count above which materializing an
		// array logs a warning. Zero disables it.
		WarnThreshold int `yaml:"warnThreshold" env:"SPECTRALCUBE_WARN_THRESHOLD"`
	} `yaml:"processing"`

	// Coordinate comparison parameters
	Geometry struct {
		// WCSTolerance bounds the difference between a mask transform and
		// the cube transform
		WCSTolerance float64 `yaml:"wcsTolerance" env:"SPECTRALCUBE_WCS_TOLERANCE"`

		// RotationTolerance bounds the accepted pixel grid rotation
		RotationTolerance float64 `yaml:"rotationTolerance" env:"SPECTRALCUBE_ROTATION_TOLERANCE"`
	} `yaml:"geometry"`

	// Output parameters
	Output struct {
		// LogLevel is the zerolog level name
		LogLevel string `yaml:"logLevel" env:"SPECTRALCUBE_LOG_LEVEL"`

		// Verbose controls the progress banners of the command line tools
		Verbose bool `yaml:"verbose" env:"SPECTRALCUBE_VERBOSE"`
	} `yaml:"output"`
}

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	cfg := &Config{}

	cfg.Processing.NumCores = runtime.NumCPU()
	cfg.Processing.AutoThreshold = moments.DefaultAutoThreshold
	cfg.Processing.TileSize = lazy.DefaultTileSize
	cfg.Processing.WarnThreshold = moments.DefaultAutoThreshold

	cfg.Geometry.WCSTolerance = cube.DefaultWCSTolerance
	cfg.Geometry.RotationTolerance = geometry.DefaultRotationTolerance

	cfg.Output.LogLevel = "info"
	cfg.Output.Verbose = true

	return cfg
}

// LoadConfig loads configuration from a YAML file and applies environment
// overrides. If the file doesn't exist, the defaults are used.
func LoadConfig(configPath string) (*Config, error) {
	cfg := DefaultConfig()

	if configPath != "" {
		data, err := os.ReadFile(configPath)
		switch {
		case os.IsNotExist(err):
		case err != nil:
			return nil, fmt.Errorf("error reading config file: %w", err)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("error parsing config file: %w", err)
			}
		}
	}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the tunables for values no component accepts.
func (c *Config) Validate() error {
	if n := len(c.Processing.ChunkShape); n != 0 && n != 3 {
		return fmt.Errorf("chunkShape needs 3 extents, got %d: %w", n, grid.ErrShape)
	}
	for _, n := range c.Processing.ChunkShape {
		if n <= 0 {
			return fmt.Errorf("chunkShape %v: %w", c.Processing.ChunkShape, grid.ErrShape)
		}
	}
	if c.Processing.AutoThreshold < 0 {
		return fmt.Errorf("autoThreshold %d must not be negative", c.Processing.AutoThreshold)
	}
	if c.Geometry.WCSTolerance < 0 || c.Geometry.RotationTolerance < 0 {
		return fmt.Errorf("tolerances must not be negative")
	}
	return nil
}

// ApplyLogging installs the configured log level.
func (c *Config) ApplyLogging() error {
	return observability.SetLevel(c.Output.LogLevel)
}

// Executor returns the chunk executor described by the configuration.
func (c *Config) Executor() *lazy.Executor {
	return &lazy.Executor{
		Workers:       c.Processing.NumCores,
		TileSize:      c.Processing.TileSize,
		WarnThreshold: c.Processing.WarnThreshold,
	}
}

// EngineOptions returns the moment engine options, sharing x as executor.
func (c *Config) EngineOptions(x *lazy.Executor) []moments.Option {
	return []moments.Option{
		moments.WithAutoThreshold(c.Processing.AutoThreshold),
		moments.WithExecutor(x),
	}
}

// CubeOptions returns the options handing the configured executor, moment
// engine and tolerances to cube.New.
func (c *Config) CubeOptions() []cube.Option {
	x := c.Executor()
	return []cube.Option{
		cube.WithExecutor(x),
		cube.WithEngine(moments.NewEngine(c.EngineOptions(x)...)),
		cube.WithWCSTolerance(c.Geometry.WCSTolerance),
		cube.WithGeometryOptions(geometry.RotationTolerance(c.Geometry.RotationTolerance)),
	}
}

// SaveConfig saves the configuration to a YAML file
func SaveConfig(cfg *Config, configPath string) error {
	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("error creating config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("error marshaling config: %w", err)
	}

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
