package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
)

// EnvConfigPath names the environment variable the server reads a config
// file path from.
const EnvConfigPath = "DROP_MCP_CONFIG"

// DefaultVolSurCacheSize bounds the shared volume/area memo cache.
const DefaultVolSurCacheSize = 1024

// Config is the on-disk configuration. Every field is optional; Get*
// methods fall back to defaults for fields not present in the JSON.
type Config struct {
	// Tolerances
	DeltaTol              *float64 `json:"delta_tol,omitempty"`
	GradientTol           *float64 `json:"gradient_tol,omitempty"`
	MaximumFittingSteps   *int     `json:"maximum_fitting_steps,omitempty"`
	ObjectiveTol          *float64 `json:"objective_tol,omitempty"`
	ArclengthTol          *float64 `json:"arclength_tol,omitempty"`
	MaximumArclengthSteps *int     `json:"maximum_arclength_steps,omitempty"`
	NeedleTol             *float64 `json:"needle_tol,omitempty"`
	NeedleSteps           *int     `json:"needle_steps,omitempty"`

	// Physical constants
	DeltaRho         *float64 `json:"delta_rho,omitempty"`
	Gravity          *float64 `json:"gravity,omitempty"`
	NeedleDiameterMM *float64 `json:"needle_diameter_mm,omitempty"`
	MetresPerPixel   *float64 `json:"metres_per_pixel,omitempty"`

	// Runtime
	Workers         *int `json:"workers,omitempty"`
	VolSurCacheSize *int `json:"volsur_cache_size,omitempty"`
}

// LoadConfig reads and validates a JSON config file.
func LoadConfig(path string) (*Config, error) {
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

	cfg := &Config{}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks every set field. A nil config is valid.
func (c *Config) Validate() error {
	if c == nil {
		return nil
	}
	if err := c.GetTolerances().Validate(); err != nil {
		return err
	}
	if err := c.GetPhysical().Validate(); err != nil {
		return err
	}
	if c.Workers != nil && *c.Workers < 1 {
		return fmt.Errorf("%w: workers must be at least 1, got %d", ErrInvalidConfig, *c.Workers)
	}
	if c.VolSurCacheSize != nil && *c.VolSurCacheSize < 1 {
		return fmt.Errorf("%w: volsur_cache_size must be at least 1, got %d", ErrInvalidConfig, *c.VolSurCacheSize)
	}
	return nil
}

// GetTolerances returns the configured tolerances over the defaults.
func (c *Config) GetTolerances() Tolerances {
	t := DefaultTolerances()
	if c == nil {
		return t
	}
	setFloat(&t.DeltaTol, c.DeltaTol)
	setFloat(&t.GradientTol, c.GradientTol)
	setInt(&t.MaximumFittingSteps, c.MaximumFittingSteps)
	setFloat(&t.ObjectiveTol, c.ObjectiveTol)
	setFloat(&t.ArclengthTol, c.ArclengthTol)
	setInt(&t.MaximumArclengthSteps, c.MaximumArclengthSteps)
	setFloat(&t.NeedleTol, c.NeedleTol)
	setInt(&t.NeedleSteps, c.NeedleSteps)
	return t
}

// GetPhysical returns the configured physical constants with defaults.
func (c *Config) GetPhysical() Physical {
	var p Physical
	if c != nil {
		setFloat(&p.DeltaRho, c.DeltaRho)
		setFloat(&p.Gravity, c.Gravity)
		setFloat(&p.NeedleDiameterMM, c.NeedleDiameterMM)
		setFloat(&p.MetresPerPixel, c.MetresPerPixel)
	}
	return p.WithDefaults()
}

// GetWorkers returns the batch worker count, defaulting to GOMAXPROCS.
func (c *Config) GetWorkers() int {
	if c == nil || c.Workers == nil {
		return runtime.GOMAXPROCS(0)
	}
	return *c.Workers
}

// GetVolSurCacheSize returns the volume/area cache capacity.
func (c *Config) GetVolSurCacheSize() int {
	if c == nil || c.VolSurCacheSize == nil {
		return DefaultVolSurCacheSize
	}
	return *c.VolSurCacheSize
}

// Merge returns a copy of c in which every field set in o takes precedence.
// Either side may be nil. Neither input is modified.
func (c *Config) Merge(o *Config) *Config {
	out := &Config{}
	if c != nil {
		*out = *c
	}
	if o == nil {
		return out
	}
	override(&out.DeltaTol, o.DeltaTol)
	override(&out.GradientTol, o.GradientTol)
	override(&out.MaximumFittingSteps, o.MaximumFittingSteps)
	override(&out.ObjectiveTol, o.ObjectiveTol)
	override(&out.ArclengthTol, o.ArclengthTol)
	override(&out.MaximumArclengthSteps, o.MaximumArclengthSteps)
	override(&out.NeedleTol, o.NeedleTol)
	override(&out.NeedleSteps, o.NeedleSteps)
	override(&out.DeltaRho, o.DeltaRho)
	override(&out.Gravity, o.Gravity)
	override(&out.NeedleDiameterMM, o.NeedleDiameterMM)
	override(&out.MetresPerPixel, o.MetresPerPixel)
	override(&out.Workers, o.Workers)
	override(&out.VolSurCacheSize, o.VolSurCacheSize)
	return out
}

func override[T any](dst **T, v *T) {
	if v != nil {
		*dst = v
	}
}

func setFloat(dst *float64, v *float64) {
	if v != nil {
		*dst = *v
	}
}

func setInt(dst *int, v *int) {
	if v != nil {
		*dst = *v
	}
}
