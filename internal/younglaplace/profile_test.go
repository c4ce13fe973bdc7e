package younglaplace

import (
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ironsheep/drop-shape-mcp/internal/geometry"
)

func TestGenerateShape(t *testing.T) {
	for _, sPoints := range []int{2, 10, 200} {
		prof, err := Generate(0.3, 3, sPoints)
		require.NoError(t, err)
		require.Len(t, prof.Rows, sPoints+1)
		assert.Len(t, prof.Rows[0], 6)
		assert.Equal(t, ProfileRow{1e-6, 0, 0, 0, 0, 0}, prof.Rows[0])
		assert.Zero(t, prof.Arclength(0))
		assert.InDelta(t, 3.0, prof.Arclength(sPoints), 1e-12)
	}
}

func TestGenerateIdempotent(t *testing.T) {
	a, err := Generate(0.42, 2.5, 150)
	require.NoError(t, err)
	b, err := Generate(0.42, 2.5, 150)
	require.NoError(t, err)
	if diff := cmp.Diff(a, b); diff != "" {
		t.Errorf("profiles differ (-first +second):\n%s", diff)
	}
}

func TestGenerateSphere(t *testing.T) {
	// Bo = 0 is a sphere of unit apex radius
	prof, err := Generate(0, 2, 40)
	require.NoError(t, err)
	for i, row := range prof.Rows {
		s := prof.Arclength(i)
		assert.InDelta(t, math.Sin(s), row[ColX], 1e-4, "x at s=%g", s)
		assert.InDelta(t, 1-math.Cos(s), row[ColY], 1e-4, "y at s=%g", s)
		assert.InDelta(t, s, row[ColPhi], 1e-4, "phi at s=%g", s)
	}
	mid := prof.At(1.025)
	assert.InDelta(t, math.Sin(1.025), mid[ColX], 1e-4)
	at := prof.At(prof.Arclength(10))
	assert.InDeltaSlice(t, prof.Rows[10][:], at[:], 1e-9)
}

func TestGenerateValidation(t *testing.T) {
	tests := []struct {
		name    string
		bond    float64
		maxS    float64
		sPoints int
	}{
		{"zero max_s", 0.1, 0, 10},
		{"negative max_s", 0.1, -1, 10},
		{"zero s_points", 0.1, 1, 0},
		{"one s_point", 0.1, 1, 1},
		{"nan bond", math.NaN(), 1, 10},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Generate(tt.bond, tt.maxS, tt.sPoints)
			assert.ErrorIs(t, err, ErrInvalidArgument)
		})
	}
}

func TestParseSPoints(t *testing.T) {
	n, err := ParseSPoints(200)
	require.NoError(t, err)
	assert.Equal(t, 200, n)

	for _, v := range []float64{10.5, 0, -4, math.Inf(1)} {
		_, err := ParseSPoints(v)
		assert.ErrorIs(t, err, ErrInvalidArgument, "value %g", v)
	}
}

func TestCurve(t *testing.T) {
	prof, err := Generate(0, math.Pi/2, 40)
	require.NoError(t, err)

	p := Params{10, 5, 2, 0, 0}
	curve := Curve(prof, p)
	require.Len(t, curve, 2*len(prof.Rows)-1)

	// A Bond-zero profile is a sphere whose centre sits one radius above the apex.
	center := geometry.Point{X: 10, Y: 7}
	for _, pt := range curve {
		assert.InDelta(t, 2, pt.Distance(center), 1e-3)
	}
	assert.InDelta(t, 10, curve[len(prof.Rows)-1].X, 1e-5, "apex in the middle")
	assert.Less(t, curve[0].X, 10.0, "path starts on the left")

	t.Run("rotation round trip", func(t *testing.T) {
		p := Params{3, -4, 1.5, 0.3, 0.4}
		for i, pt := range Curve(prof, p)[len(prof.Rows)-1:] {
			r, z := localFrame(pt, p)
			assert.InDelta(t, p.Radius()*prof.Rows[i][ColX], r, 1e-9)
			assert.InDelta(t, p.Radius()*prof.Rows[i][ColY], z, 1e-9)
		}
	})
}
