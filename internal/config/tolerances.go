package config

import (
	"errors"
	"fmt"
)

// ErrInvalidConfig is wrapped by every validation failure in this package.
var ErrInvalidConfig = errors.New("invalid configuration")

// Default tolerance values.
const (
	DefaultDeltaTol              = 1e-6
	DefaultGradientTol           = 1e-6
	DefaultMaximumFittingSteps   = 10
	DefaultObjectiveTol          = 1e-4
	DefaultArclengthTol          = 1e-6
	DefaultMaximumArclengthSteps = 10
	DefaultNeedleTol             = 1e-4
	DefaultNeedleSteps           = 20
)

// Tolerances bounds every iterative fit. A fit receives it by value and
// never changes it.
type Tolerances struct {
	DeltaTol              float64 `json:"delta_tol"`
	GradientTol           float64 `json:"gradient_tol"`
	MaximumFittingSteps   int     `json:"maximum_fitting_steps"`
	ObjectiveTol          float64 `json:"objective_tol"`
	ArclengthTol          float64 `json:"arclength_tol"`
	MaximumArclengthSteps int     `json:"maximum_arclength_steps"`
	NeedleTol             float64 `json:"needle_tol"`
	NeedleSteps           int     `json:"needle_steps"`
}

// DefaultTolerances returns the standard tolerance bundle.
func DefaultTolerances() Tolerances {
	return Tolerances{
		DeltaTol:              DefaultDeltaTol,
		GradientTol:           DefaultGradientTol,
		MaximumFittingSteps:   DefaultMaximumFittingSteps,
		ObjectiveTol:          DefaultObjectiveTol,
		ArclengthTol:          DefaultArclengthTol,
		MaximumArclengthSteps: DefaultMaximumArclengthSteps,
		NeedleTol:             DefaultNeedleTol,
		NeedleSteps:           DefaultNeedleSteps,
	}
}

// Validate rejects non-positive tolerances and step counts.
func (t Tolerances) Validate() error {
	floats := []struct {
		name string
		v    float64
	}{
		{"delta_tol", t.DeltaTol},
		{"gradient_tol", t.GradientTol},
		{"objective_tol", t.ObjectiveTol},
		{"arclength_tol", t.ArclengthTol},
		{"needle_tol", t.NeedleTol},
	}
	for _, f := range floats {
		if !(f.v > 0) {
			return fmt.Errorf("%w: %s must be positive, got %g", ErrInvalidConfig, f.name, f.v)
		}
	}
	ints := []struct {
		name string
		v    int
	}{
		{"maximum_fitting_steps", t.MaximumFittingSteps},
		{"maximum_arclength_steps", t.MaximumArclengthSteps},
		{"needle_steps", t.NeedleSteps},
	}
	for _, f := range ints {
		if f.v <= 0 {
			return fmt.Errorf("%w: %s must be positive, got %d", ErrInvalidConfig, f.name, f.v)
		}
	}
	return nil
}
