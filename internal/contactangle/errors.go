package contactangle

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/ironsheep/drop-shape-mcp/internal/geometry"
)

// Errors summarises point-to-curve distances.
type Errors struct {
	MAE      float64 `json:"mae"`
	MSE      float64 `json:"mse"`
	RMSE     float64 `json:"rmse"`
	MaxError float64 `json:"max_error"`
}

// Summarise reduces distances to the mean absolute, mean squared, root mean
// squared and maximum error.
func Summarise(distances []float64) Errors {
	if len(distances) == 0 {
		return Errors{}
	}
	abs := make([]float64, len(distances))
	sq := make([]float64, len(distances))
	for i, d := range distances {
		abs[i] = math.Abs(d)
		sq[i] = d * d
	}
	mse := stat.Mean(sq, nil)
	return Errors{
		MAE:      stat.Mean(abs, nil),
		MSE:      mse,
		RMSE:     math.Sqrt(mse),
		MaxError: floats.Max(abs),
	}
}

// nearestDistances returns, for each point, the distance to the closest of
// the curve samples.
func nearestDistances(points, samples []geometry.Point) []float64 {
	out := make([]float64, len(points))
	for i, p := range points {
		best := math.Inf(1)
		for _, s := range samples {
			if d := p.Distance(s); d < best {
				best = d
			}
		}
		out[i] = best
	}
	return out
}
