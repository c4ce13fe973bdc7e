package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestDefaultTolerances(t *testing.T) {
	tol := DefaultTolerances()
	assert.Equal(t, Tolerances{
		DeltaTol:              1e-6,
		GradientTol:           1e-6,
		MaximumFittingSteps:   10,
		ObjectiveTol:          1e-4,
		ArclengthTol:          1e-6,
		MaximumArclengthSteps: 10,
		NeedleTol:             1e-4,
		NeedleSteps:           20,
	}, tol)
	assert.NoError(t, tol.Validate())
}

func TestTolerancesValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Tolerances)
	}{
		{"zero delta", func(t *Tolerances) { t.DeltaTol = 0 }},
		{"negative objective", func(t *Tolerances) { t.ObjectiveTol = -1 }},
		{"zero fitting steps", func(t *Tolerances) { t.MaximumFittingSteps = 0 }},
		{"negative needle steps", func(t *Tolerances) { t.NeedleSteps = -3 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tol := DefaultTolerances()
			tt.mutate(&tol)
			assert.ErrorIs(t, tol.Validate(), ErrInvalidConfig)
		})
	}
}

func TestLoadConfig(t *testing.T) {
	path := writeConfig(t, "fit.json", `{"objective_tol": 1e-6, "needle_steps": 5, "delta_rho": 997, "workers": 2}`)
	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	tol := cfg.GetTolerances()
	assert.Equal(t, 1e-6, tol.ObjectiveTol)
	assert.Equal(t, 5, tol.NeedleSteps)
	assert.Equal(t, DefaultDeltaTol, tol.DeltaTol)

	phys := cfg.GetPhysical()
	assert.Equal(t, 997.0, phys.DeltaRho)
	assert.Equal(t, StandardGravity, phys.Gravity)
	assert.Equal(t, 2, cfg.GetWorkers())
	assert.Equal(t, DefaultVolSurCacheSize, cfg.GetVolSurCacheSize())
}

func TestLoadConfigErrors(t *testing.T) {
	_, err := LoadConfig(writeConfig(t, "fit.yaml", `{}`))
	assert.ErrorContains(t, err, ".json extension")

	_, err = LoadConfig(writeConfig(t, "bad.json", `{not json`))
	assert.ErrorContains(t, err, "parse")

	_, err = LoadConfig(writeConfig(t, "neg.json", `{"gradient_tol": -1}`))
	assert.ErrorIs(t, err, ErrInvalidConfig)

	_, err = LoadConfig(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}

func TestNilConfigDefaults(t *testing.T) {
	var cfg *Config
	assert.Equal(t, DefaultTolerances(), cfg.GetTolerances())
	assert.Equal(t, StandardGravity, cfg.GetPhysical().Gravity)
	assert.Positive(t, cfg.GetWorkers())
}

func TestMerge(t *testing.T) {
	fp := func(v float64) *float64 { return &v }
	ip := func(v int) *int { return &v }

	base := &Config{DeltaTol: fp(1e-3), Workers: ip(2), DeltaRho: fp(998)}
	over := &Config{DeltaTol: fp(1e-5), MetresPerPixel: fp(2e-6)}

	merged := base.Merge(over)
	assert.Equal(t, 1e-5, merged.GetTolerances().DeltaTol)
	assert.Equal(t, 2, merged.GetWorkers())
	phys := merged.GetPhysical()
	assert.Equal(t, 998.0, phys.DeltaRho)
	assert.Equal(t, 2e-6, phys.MetresPerPixel)

	// inputs are untouched
	assert.Equal(t, 1e-3, *base.DeltaTol)
	assert.Nil(t, base.MetresPerPixel)

	var none *Config
	assert.Equal(t, DefaultTolerances(), none.Merge(nil).GetTolerances())
	assert.Equal(t, 1e-5, none.Merge(over).GetTolerances().DeltaTol)
}
