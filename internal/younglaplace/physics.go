package younglaplace

import (
	"fmt"
	"math"

	"github.com/ironsheep/drop-shape-mcp/internal/config"
)

// IFT returns the interfacial tension in N/m for a density difference in
// kg/m³, gravity in m/s² and apex radius in metres.
func IFT(deltaRho, gravity, apexRadius, bond float64) float64 {
	return deltaRho * gravity * apexRadius * apexRadius / bond
}

// Volume returns the drop volume in m³ from the apex to arclength size.
func Volume(cache *VolSurCache, apexRadius, size, bond float64) (float64, error) {
	v, _, err := cache.VolumeSurface(size, bond)
	if err != nil {
		return 0, err
	}
	return v * apexRadius * apexRadius * apexRadius, nil
}

// SurfaceArea returns the drop surface area in m² from the apex to
// arclength size.
func SurfaceArea(cache *VolSurCache, apexRadius, size, bond float64) (float64, error) {
	_, a, err := cache.VolumeSurface(size, bond)
	if err != nil {
		return 0, err
	}
	return a * apexRadius * apexRadius, nil
}

// Worthington returns Δρ·g·V / (π·γ·D) for a needle of diameter D in metres.
func Worthington(deltaRho, gravity, volume, ift, needleDiameter float64) float64 {
	return deltaRho * gravity * volume / (math.Pi * ift * needleDiameter)
}

// Properties are the physical results of a pendant drop fit.
type Properties struct {
	ApexRadiusM float64 `json:"apex_radius_m"`
	IFT         float64 `json:"ift_mn_per_m"`
	Volume      float64 `json:"volume_ul"`
	SurfaceArea float64 `json:"surface_area_mm2"`
	Worthington float64 `json:"worthington,omitempty"`
	Bond        float64 `json:"bond"`
}

// ComputeProperties converts a fit into physical quantities. The volume and
// area integrate the fitted profile up to the furthest contour arclength.
// Nothing is memoised against fit; only the dimensionless integrals are cached.
func ComputeProperties(fit *FitResult, phys config.Physical, cache *VolSurCache) (*Properties, error) {
	phys = phys.WithDefaults()
	if err := phys.Validate(); err != nil {
		return nil, err
	}
	if !(phys.MetresPerPixel > 0) {
		return nil, fmt.Errorf("%w: metres_per_pixel must be set", ErrInvalidArgument)
	}
	if phys.DeltaRho == 0 {
		return nil, fmt.Errorf("%w: delta_rho must be non-zero", ErrInvalidArgument)
	}
	bond := fit.Params.Bond()
	if bond == 0 {
		return nil, fmt.Errorf("%w: bond number is zero", ErrInvalidArgument)
	}

	radius := fit.Params.Radius() * phys.MetresPerPixel
	gamma := IFT(phys.DeltaRho, phys.Gravity, radius, bond)

	size := fit.MaxArclength
	if !(size > 0) {
		size = fit.MaxS
	}
	volume, err := Volume(cache, radius, size, bond)
	if err != nil {
		return nil, err
	}
	surface, err := SurfaceArea(cache, radius, size, bond)
	if err != nil {
		return nil, err
	}

	props := &Properties{
		ApexRadiusM: radius,
		IFT:         gamma * 1e3,
		Volume:      volume * 1e9,
		SurfaceArea: surface * 1e6,
		Bond:        bond,
	}
	if phys.NeedleDiameterMM > 0 {
		props.Worthington = Worthington(phys.DeltaRho, phys.Gravity, volume, gamma, phys.NeedleDiameterMM*1e-3)
	}
	return props, nil
}
