package younglaplace

import (
	"fmt"
	"math"
	"sync"
)

// Parameter indices into Params.
const (
	ParamX0 = iota
	ParamY0
	ParamRadius
	ParamBond
	ParamRotation
	NumParams
)

// DefaultSPoints is the sample count used when none is given.
const DefaultSPoints = 200

// Params is [x0, y0, apex_radius, bond_number, rotation].
type Params [NumParams]float64

// X0 is the apex x coordinate.
func (p Params) X0() float64 { return p[ParamX0] }

// Y0 is the apex y coordinate.
func (p Params) Y0() float64 { return p[ParamY0] }

// Radius is the apex radius of curvature.
func (p Params) Radius() float64 { return p[ParamRadius] }

// Bond is the Bond number.
func (p Params) Bond() float64 { return p[ParamBond] }

// Rotation is the drop axis tilt in radians.
func (p Params) Rotation() float64 { return p[ParamRotation] }

// ParamsFromSlice validates the length of v and copies it into Params.
func ParamsFromSlice(v []float64) (Params, error) {
	var p Params
	if len(v) != NumParams {
		return p, fmt.Errorf("%w: parameter vector must have %d entries, got %d", ErrInvalidArgument, NumParams, len(v))
	}
	for i, x := range v {
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return p, fmt.Errorf("%w: parameter %d is not finite", ErrInvalidArgument, i)
		}
	}
	copy(p[:], v)
	return p, nil
}

// Snapshot is a consistent view of a DropShape.
type Snapshot struct {
	Params  Params   `json:"params"`
	MaxS    float64  `json:"max_s"`
	SPoints int      `json:"s_points"`
	Profile *Profile `json:"-"`
}

// DropShape holds the drop parameters and the theoretical profile derived
// from them. Every successful setter regenerates the profile before it
// returns, and a failed setter leaves the shape unchanged, so readers never
// see a profile that disagrees with the parameters.
//
// DropShape is safe for concurrent use.
type DropShape struct {
	mu      sync.RWMutex
	params  Params
	maxS    float64
	sPoints int
	profile *Profile
}

// NewDropShape validates the inputs and generates the initial profile.
func NewDropShape(params []float64, maxS float64, sPoints int) (*DropShape, error) {
	p, err := ParamsFromSlice(params)
	if err != nil {
		return nil, err
	}
	prof, err := Generate(p.Bond(), maxS, sPoints)
	if err != nil {
		return nil, err
	}
	return &DropShape{params: p, maxS: maxS, sPoints: sPoints, profile: prof}, nil
}

// SetParams replaces the parameter vector, which must have five entries.
func (d *DropShape) SetParams(v []float64) error {
	p, err := ParamsFromSlice(v)
	if err != nil {
		return err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.regenerate(p, d.maxS, d.sPoints)
}

// SetMaxS replaces the maximum arclength.
func (d *DropShape) SetMaxS(maxS float64) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.regenerate(d.params, maxS, d.sPoints)
}

// SetSPoints replaces the number of profile intervals.
func (d *DropShape) SetSPoints(n int) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.regenerate(d.params, d.maxS, n)
}

// regenerate must be called with mu held. Nothing is assigned unless the
// new profile was built.
func (d *DropShape) regenerate(p Params, maxS float64, sPoints int) error {
	if err := ValidateDomain(maxS, sPoints); err != nil {
		return err
	}
	prof := d.profile
	if prof == nil || prof.Bond != p.Bond() || prof.MaxS != maxS || prof.SPoints != sPoints {
		var err error
		if prof, err = Generate(p.Bond(), maxS, sPoints); err != nil {
			return err
		}
	}
	d.params, d.maxS, d.sPoints, d.profile = p, maxS, sPoints, prof
	return nil
}

// commit installs a parameter vector together with a profile already
// generated for it.
func (d *DropShape) commit(p Params, prof *Profile) {
	d.mu.Lock()
	d.params, d.maxS, d.sPoints, d.profile = p, prof.MaxS, prof.SPoints, prof
	d.mu.Unlock()
}

// Params returns the current parameters.
func (d *DropShape) Params() Params {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.params
}

// MaxS returns the current maximum arclength.
func (d *DropShape) MaxS() float64 {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.maxS
}

// SPoints returns the current number of profile intervals.
func (d *DropShape) SPoints() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.sPoints
}

// Profile returns the current profile. Profiles are never modified after
// generation, so the result may be read without locking.
func (d *DropShape) Profile() *Profile {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.profile
}

// Snapshot returns parameters and profile read under one lock.
func (d *DropShape) Snapshot() Snapshot {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return Snapshot{Params: d.params, MaxS: d.maxS, SPoints: d.sPoints, Profile: d.profile}
}
