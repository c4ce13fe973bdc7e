package younglaplace

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"gonum.org/v1/gonum/mat"

	"github.com/ironsheep/drop-shape-mcp/internal/config"
	"github.com/ironsheep/drop-shape-mcp/internal/geometry"
	"github.com/ironsheep/drop-shape-mcp/internal/monitoring"
)

var (
	// ErrTerminalState is returned when Fit is called on an optimizer that
	// has already run.
	ErrTerminalState = errors.New("younglaplace: optimizer already started")
	// ErrNumerical wraps faults inside the fit loop, such as a singular
	// normal matrix or a failed integration.
	ErrNumerical = errors.New("younglaplace: numerical failure")
)

// Levenberg–Marquardt gain ratio thresholds.
const (
	gainLow  = 0.25
	gainHigh = 0.75
)

// maxCondition is the largest 2-norm condition number of the damped normal
// matrix that is still inverted.
const maxCondition = 1e12

// FitResult is the outcome of a fit. It reflects the last accepted
// parameters, including when the fit was cancelled or failed.
type FitResult struct {
	State        State     `json:"state"`
	Params       Params    `json:"params"`
	Objective    float64   `json:"objective"`
	Residuals    []float64 `json:"residuals"`
	Arclengths   []float64 `json:"arclengths"`
	MaxArclength float64   `json:"max_arclength"`
	MaxS         float64   `json:"max_s"`
	Flags        StopFlags `json:"stop_flags"`
	Steps        int       `json:"steps"`
	FitTime      float64   `json:"fit_time"`
	Err          error     `json:"-"`
	Error        string    `json:"error,omitempty"`
}

// Converged reports whether a convergence criterion stopped the fit.
func (r *FitResult) Converged() bool { return r.Flags.Converged() }

// Option configures an Optimizer.
type Option func(*Optimizer)

// WithInitialParams starts the fit from p instead of InitialGuess.
func WithInitialParams(p Params) Option {
	return func(o *Optimizer) { o.initial = &p }
}

// WithMaxS sets the initial arclength domain of the theoretical profile.
func WithMaxS(maxS float64) Option {
	return func(o *Optimizer) { o.maxS = maxS }
}

// WithSPoints sets the number of profile intervals.
func WithSPoints(n int) Option {
	return func(o *Optimizer) { o.sPoints = n }
}

// WithOnParamsChanged registers a callback run after every accepted step
// with the new parameters. It runs on the fitting goroutine.
func WithOnParamsChanged(f func(Params)) Option {
	return func(o *Optimizer) { o.onChange = f }
}

// WithLogf routes per-step diagnostics to f.
func WithLogf(f func(format string, v ...interface{})) Option {
	return func(o *Optimizer) { o.logf = f }
}

// Optimizer fits the Young–Laplace profile to one pendant drop contour with
// Levenberg–Marquardt. Its lifecycle is Ready, Fitting, then one of
// Finished, Cancelled or UnexpectedException.
type Optimizer struct {
	contour []geometry.Point
	tol     config.Tolerances
	initial *Params
	maxS    float64
	sPoints int

	onChange func(Params)
	logf     func(format string, v ...interface{})

	shape     *DropShape
	state     atomic.Int32
	cancelled atomic.Bool

	mu     sync.Mutex
	result *FitResult
}

// NewOptimizer prepares a fit of contour, which must be in y-up coordinates
// with the apex as its lowest point. The contour is copied.
func NewOptimizer(contour []geometry.Point, tol config.Tolerances, opts ...Option) (*Optimizer, error) {
	if err := tol.Validate(); err != nil {
		return nil, err
	}
	if len(contour) <= NumParams {
		return nil, fmt.Errorf("%w: need more than %d contour points, got %d", ErrInvalidArgument, NumParams, len(contour))
	}
	o := &Optimizer{
		contour: append([]geometry.Point(nil), contour...),
		tol:     tol,
		sPoints: DefaultSPoints,
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.logf == nil {
		o.logf = monitoring.Logf
	}

	var params Params
	if o.initial != nil {
		params = *o.initial
	} else {
		g, err := InitialGuess(o.contour)
		if err != nil {
			return nil, err
		}
		params = g.Params
		if o.maxS == 0 {
			o.maxS = g.MaxS
		}
	}
	if o.maxS == 0 {
		o.maxS = guessMaxS(o.contour, params.Radius())
	}

	// a guessed domain may run past the neck of a strongly deformed drop
	shape, err := NewDropShape(params[:], o.maxS, o.sPoints)
	for tries := 0; err != nil && !errors.Is(err, ErrInvalidArgument) && tries < 10; tries++ {
		o.maxS *= 0.8
		shape, err = NewDropShape(params[:], o.maxS, o.sPoints)
	}
	if err != nil {
		return nil, err
	}
	o.shape = shape
	o.result = &FitResult{State: StateReady, Params: params, MaxS: o.maxS}
	return o, nil
}

// State returns the current lifecycle state.
func (o *Optimizer) State() State { return State(o.state.Load()) }

// Shape returns the drop shape the fit updates.
func (o *Optimizer) Shape() *DropShape { return o.shape }

// Cancel asks a running fit to stop at the next iteration boundary.
func (o *Optimizer) Cancel() { o.cancelled.Store(true) }

// Result returns a copy of the latest published result.
func (o *Optimizer) Result() *FitResult {
	o.mu.Lock()
	defer o.mu.Unlock()
	r := *o.result
	r.State = o.State()
	return &r
}

// Fit runs the fit to a terminal state. Non-convergence is reported through
// the result's flags. Cancellation, through Cancel or ctx, returns the last
// accepted result with a nil error.
func (o *Optimizer) Fit(ctx context.Context) (res *FitResult, err error) {
	if !o.state.CompareAndSwap(int32(StateReady), int32(StateFitting)) {
		return nil, fmt.Errorf("%w: state is %s", ErrTerminalState, o.State())
	}
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrNumerical, r)
		}
		o.mu.Lock()
		o.result.FitTime = time.Since(start).Seconds()
		if err != nil {
			o.result.Err = err
			o.result.Error = err.Error()
			o.state.Store(int32(StateUnexpectedException))
		}
		o.mu.Unlock()
		res = o.Result()
	}()

	err = o.run(ctx)
	return nil, err
}

func (o *Optimizer) run(ctx context.Context) error {
	snap := o.shape.Snapshot()
	cur, err := evaluate(o.contour, snap.Params, snap.Profile, o.tol)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrNumerical, err)
	}
	o.publish(cur, 0, 0)

	dof := float64(len(o.contour) - NumParams + 1)
	lambda, lambdaC := 0.0, 0.0

	for step := 1; ; step++ {
		if o.cancelled.Load() || ctx.Err() != nil {
			o.state.Store(int32(StateCancelled))
			return nil
		}

		var a mat.Dense
		a.Mul(cur.jac.T(), cur.jac)
		var v mat.VecDense
		v.MulVec(cur.jac.T(), mat.NewVecDense(len(cur.residuals), cur.residuals))

		var m mat.Dense
		m.CloneFrom(&a)
		for i := 0; i < NumParams; i++ {
			m.Set(i, i, a.At(i, i)*(1+lambda))
		}
		inv, err := invert(&m)
		if err != nil {
			return err
		}
		var delta mat.VecDense
		delta.MulVec(inv, &v)
		delta.ScaleVec(-1, &delta)

		trialParams := cur.params
		for i := range trialParams {
			trialParams[i] += delta.AtVec(i)
		}
		prof, err := Generate(trialParams.Bond(), nextMaxS(cur), cur.profile.SPoints)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrNumerical, err)
		}
		trial, err := evaluate(o.contour, trialParams, prof, o.tol)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrNumerical, err)
		}

		// predicted reduction δ·(-2v - Aδ)
		var ad mat.VecDense
		ad.MulVec(&a, &delta)
		dv := mat.Dot(&delta, &v)
		predicted := -2*dv - mat.Dot(&delta, &ad)
		gain := (cur.ssr - trial.ssr) / predicted

		if gain < gainLow {
			nu := clamp(2-(trial.ssr-cur.ssr)/dv, 2, 10)
			if lambda == 0 {
				maxDiag := 0.0
				for i := 0; i < NumParams; i++ {
					maxDiag = math.Max(maxDiag, math.Abs(inv.At(i, i)))
				}
				lambdaC = 1 / maxDiag
				lambda = lambdaC
				nu /= 2
			}
			lambda *= nu
		}
		if gain > gainHigh && lambda != 0 {
			lambda /= 2
			if lambda < lambdaC {
				lambda = 0
			}
		}

		var flags StopFlags
		accepted := trial.ssr < cur.ssr
		if accepted {
			rel := 0.0
			if cur.ssr > 0 {
				rel = (cur.ssr - trial.ssr) / cur.ssr
			}
			if rel < o.tol.ObjectiveTol {
				flags |= ConvergedInObjective
			}
		}
		if maxScaled(&delta, cur.params) < o.tol.DeltaTol {
			flags |= ConvergedInParameters
		}
		if mat.Norm(&v, math.Inf(1)) < o.tol.GradientTol {
			flags |= ConvergedInGradient
		}
		if step >= o.tol.MaximumFittingSteps {
			flags |= MaximumStepsExceeded
		}

		if accepted {
			cur = trial
			o.shape.commit(cur.params, cur.profile)
		}
		objective := cur.ssr / dof
		o.publish(cur, step, flags)
		o.logf("younglaplace: step %3d objective %.6g x0 %.4f y0 %.4f R %.4f Bo %.5f w %.4f° accepted=%t",
			step, objective, cur.params.X0(), cur.params.Y0(), cur.params.Radius(),
			cur.params.Bond(), cur.params.Rotation()*180/math.Pi, accepted)
		if accepted && o.onChange != nil {
			o.onChange(cur.params)
		}

		if flags != 0 {
			o.state.Store(int32(StateFinished))
			return nil
		}
	}
}

// publish replaces the visible result with the given evaluation.
func (o *Optimizer) publish(ev *evaluation, steps int, flags StopFlags) {
	dof := float64(len(o.contour) - NumParams + 1)
	r := &FitResult{
		Params:       ev.params,
		Objective:    ev.ssr / dof,
		Residuals:    append([]float64(nil), ev.residuals...),
		Arclengths:   append([]float64(nil), ev.arclengths...),
		MaxArclength: ev.maxArc,
		MaxS:         ev.profile.MaxS,
		Flags:        flags,
		Steps:        steps,
	}
	o.mu.Lock()
	o.result = r
	o.mu.Unlock()
}

// nextMaxS shrinks a profile domain that is far longer than the contour
// needs; it otherwise keeps the current one.
func nextMaxS(ev *evaluation) float64 {
	need := domainGrowth * ev.maxArc
	if need > 0 && need < 0.5*ev.profile.MaxS {
		return need
	}
	return ev.profile.MaxS
}

func invert(m *mat.Dense) (*mat.Dense, error) {
	if c := mat.Cond(m, 2); !(c <= maxCondition) {
		return nil, fmt.Errorf("%w: singular normal matrix (condition %.3g)", ErrNumerical, c)
	}
	var inv mat.Dense
	if err := inv.Inverse(m); err != nil {
		var cond mat.Condition
		if !errors.As(err, &cond) || float64(cond) > maxCondition {
			return nil, fmt.Errorf("%w: singular normal matrix: %v", ErrNumerical, err)
		}
	}
	r, c := inv.Dims()
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			if v := inv.At(i, j); math.IsNaN(v) || math.IsInf(v, 0) {
				return nil, fmt.Errorf("%w: singular normal matrix", ErrNumerical)
			}
		}
	}
	return &inv, nil
}

// maxScaled returns max |δ_i / p_i|, using |δ_i| where p_i is zero.
func maxScaled(delta *mat.VecDense, p Params) float64 {
	m := 0.0
	for i := range p {
		d := math.Abs(delta.AtVec(i))
		if p[i] != 0 {
			d /= math.Abs(p[i])
		}
		m = math.Max(m, d)
	}
	return m
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
