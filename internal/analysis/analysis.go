package analysis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/ironsheep/drop-shape-mcp/internal/config"
	"github.com/ironsheep/drop-shape-mcp/internal/contactangle"
	"github.com/ironsheep/drop-shape-mcp/internal/contour"
	"github.com/ironsheep/drop-shape-mcp/internal/geometry"
	"github.com/ironsheep/drop-shape-mcp/internal/monitoring"
	"github.com/ironsheep/drop-shape-mcp/internal/needle"
	"github.com/ironsheep/drop-shape-mcp/internal/younglaplace"
)

// ErrInvalidFrame is returned for frames that cannot be analysed at all.
var ErrInvalidFrame = errors.New("analysis: invalid frame")

// Mode selects the measurement a frame is analysed for.
type Mode string

const (
	ModePendant Mode = "pendant"
	ModeSessile Mode = "sessile"
)

// NeedleEdges are the two needle silhouette edges in image coordinates.
type NeedleEdges struct {
	Left  []geometry.Point `json:"left"`
	Right []geometry.Point `json:"right"`
}

// Frame is one drop image reduced to its contour. Points are in image
// coordinates with y increasing downwards.
type Frame struct {
	ID          string           `json:"id,omitempty"`
	Mode        Mode             `json:"mode"`
	Contour     []geometry.Point `json:"contour"`
	ImageHeight float64          `json:"image_height"`

	// Needle, when set, calibrates the pixel scale of a pendant frame.
	Needle *NeedleEdges `json:"needle,omitempty"`

	// Baseline and Methods apply to sessile frames.
	Baseline *geometry.Line        `json:"baseline,omitempty"`
	Methods  []contactangle.Method `json:"methods,omitempty"`
}

// Timings are in seconds.
type Timings struct {
	PreprocessingTime float64 `json:"preprocessing_time"`
	FitTime           float64 `json:"fit_time"`
	AnalysisTime      float64 `json:"analysis_time"`
}

// PendantResult is the Young–Laplace fit of a pendant frame. A failed fit
// sets Error and leaves the rest of the frame intact.
type PendantResult struct {
	Fit             *younglaplace.FitResult   `json:"fit,omitempty"`
	Properties      *younglaplace.Properties `json:"properties,omitempty"`
	PropertiesError string                   `json:"properties_error,omitempty"`
	Error           string                   `json:"error,omitempty"`
}

// FrameResult is everything computed for one frame. Err is set when
// preprocessing failed and nothing was fitted.
type FrameResult struct {
	ID            string                 `json:"id"`
	Mode          Mode                   `json:"mode"`
	Ordering      *contour.Result        `json:"ordering,omitempty"`
	Needle        *needle.Calibration    `json:"needle,omitempty"`
	Pendant       *PendantResult         `json:"pendant,omitempty"`
	ContactAngles []contactangle.Outcome `json:"contact_angles,omitempty"`
	Timings       Timings                `json:"timings"`
	Err           error                  `json:"-"`
	Error         string                 `json:"error,omitempty"`
}

// Failed reports whether the frame failed before fitting.
func (r *FrameResult) Failed() bool { return r.Err != nil }

// Analyzer fits batches of frames.
type Analyzer struct {
	tol      config.Tolerances
	phys     config.Physical
	workers  int
	cache    *younglaplace.VolSurCache
	ordering contour.Options
	contact  contactangle.Options
	logf     func(format string, v ...interface{})
}

// Option configures an Analyzer.
type Option func(*Analyzer)

// WithCache shares a volume and surface cache across analyzers.
func WithCache(c *younglaplace.VolSurCache) Option {
	return func(a *Analyzer) { a.cache = c }
}

// WithOrdering sets the contour ordering options.
func WithOrdering(o contour.Options) Option {
	return func(a *Analyzer) { a.ordering = o }
}

// WithContactOptions sets the contact angle fit options.
func WithContactOptions(o contactangle.Options) Option {
	return func(a *Analyzer) { a.contact = o }
}

// WithWorkers overrides the number of frames fitted at once.
func WithWorkers(n int) Option {
	return func(a *Analyzer) { a.workers = n }
}

// New builds an Analyzer from cfg, which may be nil.
func New(cfg *config.Config, opts ...Option) (*Analyzer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	a := &Analyzer{
		tol:     cfg.GetTolerances(),
		phys:    cfg.GetPhysical(),
		workers: cfg.GetWorkers(),
		logf:    monitoring.Logf,
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.cache == nil {
		cache, err := younglaplace.NewVolSurCache(cfg.GetVolSurCacheSize())
		if err != nil {
			return nil, err
		}
		a.cache = cache
	}
	if a.workers < 1 {
		a.workers = 1
	}
	return a, nil
}

// Cache returns the shared volume and surface cache.
func (a *Analyzer) Cache() *younglaplace.VolSurCache { return a.cache }

// Run analyses frames with at most the configured number in flight and
// returns results in input order. Cancelling ctx stops running fits at
// their next iteration and skips frames not yet started.
func (a *Analyzer) Run(ctx context.Context, frames []Frame) []FrameResult {
	results := make([]FrameResult, len(frames))
	var g errgroup.Group
	g.SetLimit(a.workers)
	for i := range frames {
		i := i
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				results[i] = failed(frames[i], fmt.Errorf("frame not started: %w", err))
				return nil
			}
			results[i] = a.Analyze(ctx, frames[i])
			return nil
		})
	}
	_ = g.Wait()
	return results
}

// Analyze processes a single frame.
func (a *Analyzer) Analyze(ctx context.Context, f Frame) (res FrameResult) {
	start := time.Now()
	res = FrameResult{ID: f.ID, Mode: f.Mode}
	if res.ID == "" {
		res.ID = uuid.NewString()
	}
	defer func() {
		if r := recover(); r != nil {
			res.Err = fmt.Errorf("frame %s: panic: %v", res.ID, r)
			res.Error = res.Err.Error()
		}
		res.Timings.AnalysisTime = time.Since(start).Seconds()
	}()

	fail := func(err error) FrameResult {
		res.Err = err
		res.Error = err.Error()
		a.logf("analysis: frame %s failed: %v", res.ID, err)
		return res
	}

	if f.Mode != ModePendant && f.Mode != ModeSessile {
		return fail(fmt.Errorf("%w: unknown mode %q", ErrInvalidFrame, f.Mode))
	}
	ordered, err := contour.OrderDetailed(f.Contour, a.ordering)
	if err != nil {
		return fail(fmt.Errorf("order contour: %w", err))
	}
	res.Ordering = ordered

	phys := a.phys
	if f.Needle != nil {
		cal, err := needle.Calibrate(f.Needle.Left, f.Needle.Right, a.tol)
		if err != nil {
			return fail(fmt.Errorf("calibrate needle: %w", err))
		}
		res.Needle = cal
		if phys.NeedleDiameterMM > 0 {
			phys.MetresPerPixel = cal.Scale(phys.NeedleDiameterMM)
		}
	}
	res.Timings.PreprocessingTime = time.Since(start).Seconds()

	fitStart := time.Now()
	switch f.Mode {
	case ModePendant:
		res.Pendant = a.fitPendant(ctx, ordered.Points, f.ImageHeight, phys)
	case ModeSessile:
		if f.Baseline == nil {
			return fail(fmt.Errorf("%w: sessile frame needs a baseline", ErrInvalidFrame))
		}
		res.ContactAngles = contactangle.FitAll(f.Methods, ordered.Points, *f.Baseline, a.contact)
	}
	res.Timings.FitTime = time.Since(fitStart).Seconds()
	return res
}

func (a *Analyzer) fitPendant(ctx context.Context, points []geometry.Point, height float64, phys config.Physical) *PendantResult {
	out := &PendantResult{}
	yUp := geometry.FlipY(points, height)
	opt, err := younglaplace.NewOptimizer(yUp, a.tol, younglaplace.WithLogf(a.logf))
	if err != nil {
		out.Error = err.Error()
		return out
	}
	fit, err := opt.Fit(ctx)
	out.Fit = fit
	if err != nil {
		out.Error = err.Error()
		return out
	}
	if phys.MetresPerPixel > 0 && phys.DeltaRho != 0 {
		props, err := younglaplace.ComputeProperties(fit, phys, a.cache)
		if err != nil {
			out.PropertiesError = err.Error()
		} else {
			out.Properties = props
		}
	}
	return out
}

func failed(f Frame, err error) FrameResult {
	id := f.ID
	if id == "" {
		id = uuid.NewString()
	}
	return FrameResult{ID: id, Mode: f.Mode, Err: err, Error: err.Error()}
}
