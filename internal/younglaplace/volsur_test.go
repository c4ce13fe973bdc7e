package younglaplace

import (
	"math"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ironsheep/drop-shape-mcp/internal/config"
)

func TestVolumeSurfaceHemisphere(t *testing.T) {
	vol, area, err := VolumeSurface(math.Pi/2, 0)
	require.NoError(t, err)
	assert.InEpsilon(t, 2*math.Pi/3, vol, 1e-4)
	assert.InEpsilon(t, 2*math.Pi, area, 1e-4)
}

func TestVolumeSurfaceInvalid(t *testing.T) {
	_, _, err := VolumeSurface(0, 0.1)
	assert.ErrorIs(t, err, ErrInvalidArgument)
}

func TestVolSurCache(t *testing.T) {
	cache, err := NewVolSurCache(2)
	require.NoError(t, err)

	v1, a1, err := cache.VolumeSurface(1.5, 0.2)
	require.NoError(t, err)
	v2, a2, err := cache.VolumeSurface(1.5, 0.2)
	require.NoError(t, err)
	assert.Equal(t, v1, v2)
	assert.Equal(t, a1, a2)

	hits, misses := cache.Stats()
	assert.Equal(t, int64(1), hits)
	assert.Equal(t, int64(1), misses)

	_, _, _ = cache.VolumeSurface(1.6, 0.2)
	_, _, _ = cache.VolumeSurface(1.7, 0.2)
	assert.Equal(t, 2, cache.Len())

	cache.Purge()
	assert.Zero(t, cache.Len())
	hits, misses = cache.Stats()
	assert.Zero(t, hits+misses)

	_, err = NewVolSurCache(0)
	assert.ErrorIs(t, err, ErrInvalidArgument)
}

func TestVolSurCacheNil(t *testing.T) {
	var cache *VolSurCache
	vol, _, err := cache.VolumeSurface(math.Pi/2, 0)
	require.NoError(t, err)
	assert.InEpsilon(t, 2*math.Pi/3, vol, 1e-4)
	assert.Zero(t, cache.Len())
}

func TestVolSurCacheConcurrent(t *testing.T) {
	cache, err := NewVolSurCache(16)
	require.NoError(t, err)
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, _, err := cache.VolumeSurface(1+float64(i%4)*0.1, 0.3)
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()
	assert.Equal(t, 4, cache.Len())
}

func TestPhysicalFormulas(t *testing.T) {
	assert.InDelta(t, 1000*9.8*1e-6/0.5, IFT(1000, 9.8, 1e-3, 0.5), 1e-15)
	assert.InDelta(t, 1000*9.8*2e-9/(math.Pi*0.07*1e-3), Worthington(1000, 9.8, 2e-9, 0.07, 1e-3), 1e-12)

	vol, err := Volume(nil, 2, math.Pi/2, 0)
	require.NoError(t, err)
	assert.InEpsilon(t, 8*2*math.Pi/3, vol, 1e-4)
	area, err := SurfaceArea(nil, 2, math.Pi/2, 0)
	require.NoError(t, err)
	assert.InEpsilon(t, 4*2*math.Pi, area, 1e-4)
}

func TestComputeProperties(t *testing.T) {
	fit := &FitResult{
		Params:       Params{0, 0, 100, 1e-9, 0},
		MaxArclength: math.Pi / 2,
	}
	phys := config.Physical{DeltaRho: 998, NeedleDiameterMM: 1.0, MetresPerPixel: 1e-5}

	props, err := ComputeProperties(fit, phys, nil)
	require.NoError(t, err)
	assert.InDelta(t, 1e-3, props.ApexRadiusM, 1e-15)
	assert.InEpsilon(t, 998*config.StandardGravity*1e-6/1e-9*1e3, props.IFT, 1e-9)
	assert.InEpsilon(t, 2*math.Pi/3, props.Volume, 1e-3)
	assert.InEpsilon(t, 2*math.Pi, props.SurfaceArea, 1e-3)
	assert.Positive(t, props.Worthington)

	_, err = ComputeProperties(fit, config.Physical{DeltaRho: 998}, nil)
	assert.ErrorIs(t, err, ErrInvalidArgument)
	_, err = ComputeProperties(&FitResult{Params: Params{0, 0, 1, 0, 0}}, phys, nil)
	assert.ErrorIs(t, err, ErrInvalidArgument)
}
