package detection

import (
	"errors"
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/ironsheep/drop-shape-mcp/internal/geometry"
)

// ErrNotFound is returned when no line of the requested kind has enough support.
var ErrNotFound = errors.New("detection: no matching line found")

// Orientation restricts which lines a Hough search votes for.
type Orientation int

const (
	// AnyOrientation votes for every line direction.
	AnyOrientation Orientation = iota
	// NearHorizontal votes for lines within MaxTiltDeg of the image x axis.
	NearHorizontal
	// NearVertical votes for lines within MaxTiltDeg of the image y axis.
	NearVertical
)

// HoughOptions controls HoughLines.
type HoughOptions struct {
	Orientation Orientation
	// MaxTiltDeg bounds the deviation from the requested orientation.
	// Zero means 10°.
	MaxTiltDeg float64
	// MinVotes is the minimum accumulator count for a peak. Zero means 20.
	MinVotes int
	// Tolerance is the perpendicular distance, in pixels, within which a
	// point counts as lying on a detected line. Zero means 2.
	Tolerance float64
	// MaxLines caps the number of lines returned. Zero means 10.
	MaxLines int
}

func (o HoughOptions) withDefaults() HoughOptions {
	if o.MaxTiltDeg <= 0 {
		o.MaxTiltDeg = 10
	}
	if o.MinVotes <= 0 {
		o.MinVotes = 20
	}
	if o.Tolerance <= 0 {
		o.Tolerance = 2
	}
	if o.MaxLines <= 0 {
		o.MaxLines = 10
	}
	return o
}

// HoughLine is a line found by the Hough transform, in normal form
// x·cos θ + y·sin θ = ρ, refined by least squares over its inliers.
type HoughLine struct {
	Rho      float64 `json:"rho"`
	ThetaDeg int     `json:"theta_deg"`
	Votes    int     `json:"votes"`

	// Line is the least-squares fit through Inliers, running from Start to End.
	Line         geometry.Line    `json:"line"`
	Start        geometry.Point   `json:"start"`
	End          geometry.Point   `json:"end"`
	Length       float64          `json:"length"`
	AngleDegrees float64          `json:"angle_degrees"`
	Inliers      []geometry.Point `json:"-"`
}

// HoughLines finds straight lines in a set of edge points.
//
// Each point votes for every (ρ, θ) line through it at 1° and 1 px
// resolution. Local maxima of the accumulator with at least MinVotes are
// taken strongest first; a peak within 3 px and 3° of an accepted line is
// treated as the same line. Lines are returned by decreasing vote count.
func HoughLines(points []geometry.Point, opts HoughOptions) []HoughLine {
	opts = opts.withDefaults()
	if len(points) == 0 {
		return nil
	}

	thetas := votingAngles(opts.Orientation, opts.MaxTiltDeg)
	cosT := make([]float64, 180)
	sinT := make([]float64, 180)
	for _, t := range thetas {
		a := float64(t) * math.Pi / 180.0
		cosT[t], sinT[t] = math.Cos(a), math.Sin(a)
	}

	var maxDist float64
	for _, p := range points {
		maxDist = math.Max(maxDist, p.Norm())
	}
	offset := int(math.Ceil(maxDist)) + 1
	numRho := 2*offset + 1

	accumulator := make([][]int, numRho)
	for i := range accumulator {
		accumulator[i] = make([]int, 180)
	}
	for _, p := range points {
		for _, t := range thetas {
			rho := p.X*cosT[t] + p.Y*sinT[t]
			accumulator[int(math.Round(rho))+offset][t]++
		}
	}

	type peak struct {
		rho, theta, votes int
	}
	peaks := make([]peak, 0)
	for r := 0; r < numRho; r++ {
		for _, t := range thetas {
			v := accumulator[r][t]
			if v < opts.MinVotes {
				continue
			}
			isMax := true
			for dr := -2; dr <= 2 && isMax; dr++ {
				for dt := -2; dt <= 2 && isMax; dt++ {
					if dr == 0 && dt == 0 {
						continue
					}
					nr, nt := r+dr, (t+dt+180)%180
					if nr >= 0 && nr < numRho && accumulator[nr][nt] > v {
						isMax = false
					}
				}
			}
			if isMax {
				peaks = append(peaks, peak{rho: r - offset, theta: t, votes: v})
			}
		}
	}
	sort.SliceStable(peaks, func(i, j int) bool {
		return peaks[i].votes > peaks[j].votes
	})

	lines := make([]HoughLine, 0)
	for _, pk := range peaks {
		if len(lines) >= opts.MaxLines {
			break
		}
		duplicate := false
		for _, l := range lines {
			if sameLine(float64(pk.rho), pk.theta, l.Rho, l.ThetaDeg) {
				duplicate = true
				break
			}
		}
		if duplicate {
			continue
		}

		line, ok := refineLine(points, float64(pk.rho), pk.theta, opts.Tolerance)
		if !ok {
			continue
		}
		line.Votes = pk.votes
		lines = append(lines, line)
	}
	return lines
}

// votingAngles lists the normal angles, in whole degrees in [0, 180), that
// an orientation votes for. A horizontal line has its normal at 90°.
func votingAngles(o Orientation, maxTilt float64) []int {
	angles := make([]int, 0, 180)
	for t := 0; t < 180; t++ {
		var gap float64
		switch o {
		case NearHorizontal:
			gap = math.Abs(float64(t) - 90)
		case NearVertical:
			gap = math.Min(float64(t), float64(180-t))
		}
		if gap <= maxTilt {
			angles = append(angles, t)
		}
	}
	return angles
}

// sameLine reports whether two normal-form lines are within 3 px and 3°.
// Across the 0°/180° wrap the normal reverses, so ρ changes sign.
func sameLine(rho1 float64, theta1 int, rho2 float64, theta2 int) bool {
	if math.Abs(float64(theta1-theta2)) > 90 {
		rho2 = -rho2
	}
	return math.Abs(rho1-rho2) <= 3 && angleGap(theta1, theta2) <= 3
}

func angleGap(a, b int) float64 {
	d := math.Abs(float64(a - b))
	return math.Min(d, 180-d)
}

// refineLine gathers the points within tol of the (rho, theta) line and
// fits them by least squares, regressing y on x for lines closer to
// horizontal and x on y otherwise.
func refineLine(points []geometry.Point, rho float64, thetaDeg int, tol float64) (HoughLine, bool) {
	a := float64(thetaDeg) * math.Pi / 180.0
	cosA, sinA := math.Cos(a), math.Sin(a)

	inliers := make([]geometry.Point, 0)
	for _, p := range points {
		if math.Abs(p.X*cosA+p.Y*sinA-rho) < tol {
			inliers = append(inliers, p)
		}
	}
	if len(inliers) < 2 {
		return HoughLine{}, false
	}

	xs, ys := geometry.XY(inliers)
	horizontal := math.Abs(sinA) >= math.Abs(cosA)

	var start, end geometry.Point
	if horizontal {
		c, m := stat.LinearRegression(xs, ys, nil, false)
		lo, hi := minMax(xs)
		start = geometry.Point{X: lo, Y: c + m*lo}
		end = geometry.Point{X: hi, Y: c + m*hi}
	} else {
		c, m := stat.LinearRegression(ys, xs, nil, false)
		lo, hi := minMax(ys)
		start = geometry.Point{X: c + m*lo, Y: lo}
		end = geometry.Point{X: c + m*hi, Y: hi}
	}

	line, err := geometry.NewLine(start, end)
	if err != nil {
		return HoughLine{}, false
	}
	return HoughLine{
		Rho:          rho,
		ThetaDeg:     thetaDeg,
		Line:         line,
		Start:        start,
		End:          end,
		Length:       start.Distance(end),
		AngleDegrees: line.Angle() * 180 / math.Pi,
		Inliers:      inliers,
	}, true
}

func minMax(v []float64) (lo, hi float64) {
	lo, hi = math.Inf(1), math.Inf(-1)
	for _, x := range v {
		lo = math.Min(lo, x)
		hi = math.Max(hi, x)
	}
	return lo, hi
}
