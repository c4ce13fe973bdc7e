package config

import "fmt"

// StandardGravity is the gravitational acceleration used when none is given,
// in m/s².
const StandardGravity = 9.80035

// Physical holds the experiment constants needed to turn a dimensionless
// fit into physical quantities.
type Physical struct {
	// DeltaRho is the density difference between the drop and the
	// surrounding phase in kg/m³.
	DeltaRho float64 `json:"delta_rho"`
	// Gravity in m/s².
	Gravity float64 `json:"gravity"`
	// NeedleDiameterMM is the outer needle diameter in millimetres.
	NeedleDiameterMM float64 `json:"needle_diameter_mm"`
	// MetresPerPixel converts image lengths. Zero means unknown.
	MetresPerPixel float64 `json:"metres_per_pixel"`
}

// WithDefaults fills Gravity when unset.
func (p Physical) WithDefaults() Physical {
	if p.Gravity == 0 {
		p.Gravity = StandardGravity
	}
	return p
}

// Validate checks the constants are usable for property calculation.
func (p Physical) Validate() error {
	if p.Gravity < 0 {
		return fmt.Errorf("%w: gravity must be non-negative, got %g", ErrInvalidConfig, p.Gravity)
	}
	if p.MetresPerPixel < 0 {
		return fmt.Errorf("%w: metres_per_pixel must be non-negative, got %g", ErrInvalidConfig, p.MetresPerPixel)
	}
	if p.NeedleDiameterMM < 0 {
		return fmt.Errorf("%w: needle_diameter_mm must be non-negative, got %g", ErrInvalidConfig, p.NeedleDiameterMM)
	}
	return nil
}
