package ode

import (
	"errors"
	"fmt"
	"math"
)

var (
	// ErrStepLimit is returned when the integrator exhausts MaxSteps.
	ErrStepLimit = errors.New("ode: step limit exceeded")
	// ErrStepUnderflow is returned when the step size collapses below
	// floating point resolution.
	ErrStepUnderflow = errors.New("ode: step size underflow")
	// ErrNonFinite is returned when the state becomes NaN or infinite.
	ErrNonFinite = errors.New("ode: non-finite state")
	// ErrBadTimes is returned for empty or non-increasing output times.
	ErrBadTimes = errors.New("ode: output times must be increasing")
)

// Func evaluates dy/dt at t into dydt. It must not retain y or dydt.
type Func func(t float64, y, dydt []float64)

// Options tune the adaptive step control. Zero fields take defaults.
type Options struct {
	RelTol      float64
	AbsTol      float64
	InitialStep float64
	MaxStep     float64
	MaxSteps    int
}

const (
	defaultRelTol   = 1e-8
	defaultAbsTol   = 1e-10
	defaultMaxSteps = 100000

	safety    = 0.9
	minFactor = 0.2
	maxFactor = 5.0
)

func (o Options) withDefaults(span float64) Options {
	if o.RelTol <= 0 {
		o.RelTol = defaultRelTol
	}
	if o.AbsTol <= 0 {
		o.AbsTol = defaultAbsTol
	}
	if o.MaxSteps <= 0 {
		o.MaxSteps = defaultMaxSteps
	}
	if o.MaxStep <= 0 {
		o.MaxStep = span
	}
	if o.InitialStep <= 0 {
		o.InitialStep = math.Min(1e-3*span, 1e-3)
	}
	return o
}

// Dormand–Prince 5(4) tableau.
var (
	dpC = [7]float64{0, 1.0 / 5, 3.0 / 10, 4.0 / 5, 8.0 / 9, 1, 1}
	dpA = [7][6]float64{
		{},
		{1.0 / 5},
		{3.0 / 40, 9.0 / 40},
		{44.0 / 45, -56.0 / 15, 32.0 / 9},
		{19372.0 / 6561, -25360.0 / 2187, 64448.0 / 6561, -212.0 / 729},
		{9017.0 / 3168, -355.0 / 33, 46732.0 / 5247, 49.0 / 176, -5103.0 / 18656},
		{35.0 / 384, 0, 500.0 / 1113, 125.0 / 192, -2187.0 / 6784, 11.0 / 84},
	}
	// difference between the 5th and 4th order weights
	dpE = [7]float64{
		71.0 / 57600, 0, -71.0 / 16695, 71.0 / 1920, -17253.0 / 339200, 22.0 / 525, -1.0 / 40,
	}
)

// Solve integrates dy/dt = f(t, y) from times[0], where y = y0, and returns
// the state at every entry of times. Row 0 is a copy of y0. Steps are
// clipped to land exactly on each requested time.
func Solve(f Func, y0 []float64, times []float64, opts Options) ([][]float64, error) {
	if len(times) == 0 {
		return nil, ErrBadTimes
	}
	for i := 1; i < len(times); i++ {
		if !(times[i] > times[i-1]) {
			return nil, fmt.Errorf("%w: times[%d]=%g after %g", ErrBadTimes, i, times[i], times[i-1])
		}
	}

	n := len(y0)
	out := make([][]float64, len(times))
	out[0] = append([]float64(nil), y0...)
	if len(times) == 1 {
		return out, nil
	}
	opts = opts.withDefaults(times[len(times)-1] - times[0])

	var k [7][]float64
	for i := range k {
		k[i] = make([]float64, n)
	}
	y := append([]float64(nil), y0...)
	tmp := make([]float64, n)
	ynew := make([]float64, n)

	t := times[0]
	h := opts.InitialStep
	f(t, y, k[0])
	steps := 0

	for idx := 1; idx < len(times); idx++ {
		target := times[idx]
		for t < target {
			if steps >= opts.MaxSteps {
				return nil, fmt.Errorf("%w: %d steps at t=%g", ErrStepLimit, steps, t)
			}
			steps++

			step := math.Min(h, opts.MaxStep)
			clipped := false
			if t+step >= target {
				step = target - t
				clipped = true
			}
			if step <= math.Abs(t)*1e-15 {
				return nil, fmt.Errorf("%w: h=%g at t=%g", ErrStepUnderflow, step, t)
			}

			for s := 1; s < 7; s++ {
				for j := 0; j < n; j++ {
					acc := y[j]
					for m := 0; m < s; m++ {
						acc += step * dpA[s][m] * k[m][j]
					}
					tmp[j] = acc
				}
				if s == 6 {
					copy(ynew, tmp)
				}
				f(t+dpC[s]*step, tmp, k[s])
			}

			errNorm := 0.0
			for j := 0; j < n; j++ {
				e := 0.0
				for m := 0; m < 7; m++ {
					e += dpE[m] * k[m][j]
				}
				e *= step
				scale := opts.AbsTol + opts.RelTol*math.Max(math.Abs(y[j]), math.Abs(ynew[j]))
				errNorm += (e / scale) * (e / scale)
			}
			errNorm = math.Sqrt(errNorm / float64(n))
			if math.IsNaN(errNorm) {
				return nil, fmt.Errorf("%w at t=%g", ErrNonFinite, t)
			}

			if errNorm <= 1 {
				if clipped {
					t = target
				} else {
					t += step
				}
				copy(y, ynew)
				k[0], k[6] = k[6], k[0]
				for _, v := range y {
					if math.IsNaN(v) || math.IsInf(v, 0) {
						return nil, fmt.Errorf("%w at t=%g", ErrNonFinite, t)
					}
				}
			}

			factor := maxFactor
			if errNorm > 0 {
				factor = math.Min(maxFactor, math.Max(minFactor, safety*math.Pow(errNorm, -0.2)))
			}
			if errNorm <= 1 && clipped {
				// a clipped step says nothing about a larger one
				h = math.Max(h, step*factor)
			} else {
				h = step * factor
			}
		}
		out[idx] = append([]float64(nil), y...)
	}
	return out, nil
}

// Linspace returns n evenly spaced values from start to stop inclusive.
func Linspace(start, stop float64, n int) []float64 {
	if n <= 0 {
		return nil
	}
	if n == 1 {
		return []float64{start}
	}
	out := make([]float64, n)
	step := (stop - start) / float64(n-1)
	for i := range out {
		out[i] = start + float64(i)*step
	}
	out[n-1] = stop
	return out
}
