package core

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/blackhat-astro/blackhat/core/gp"
	"github.com/blackhat-astro/blackhat/internal/contract"
	"github.com/blackhat-astro/blackhat/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSettingsFromConfig(t *testing.T) {
	assert.Equal(t, gp.DefaultSettings(), settingsFromConfig(&contract.Config{}))

	cfg := &contract.Config{
		Combine:       schema.AdditiveCombine,
		Mean:          schema.ZeroMean,
		FitTimeout:    5 * time.Second,
		MaxIterations: 10,
	}
	settings := settingsFromConfig(cfg)
	assert.Equal(t, schema.AdditiveCombine, settings.Combine)
	assert.Equal(t, schema.ZeroMean, settings.Mean)
	assert.Equal(t, 5*time.Second, settings.Timeout)
	assert.Equal(t, 10, settings.MaxIterations)
	assert.Equal(t, gp.DefaultMaxEvaluations, settings.MaxEvaluations)
}

func TestInitialGuess(t *testing.T) {
	obs := []schema.Observation{
		{Time: 0, Passband: "g", Flux: 1, FluxError: 0.1},
		{Time: 1, Passband: "g", Flux: 3, FluxError: 0.1},
	}

	guess := initialGuess(&contract.Config{}, obs)
	assert.InDelta(t, 2.0, guess.Amplitude, 1e-12) // sample variance of {1, 3}
	assert.Equal(t, contract.DefaultTimeScale, guess.TimeLengthScale)
	assert.Equal(t, contract.DefaultWavelengthScale, guess.WavelengthLengthScale)

	guess = initialGuess(&contract.Config{Amplitude: 7, TimeScale: 3, WavelengthScale: 900}, obs)
	assert.Equal(t, schema.KernelParameters{Amplitude: 7, TimeLengthScale: 3, WavelengthLengthScale: 900}, guess)
}

func TestLoadRegistry(t *testing.T) {
	reg, err := LoadRegistry(&contract.Config{})
	require.NoError(t, err)
	assert.Contains(t, reg.Passbands(), "g")

	path := filepath.Join(t.TempDir(), "passbands.yaml")
	require.NoError(t, os.WriteFile(path, []byte("ks:\n  mean: 21900\n  color: black\n  marker: x\n"), 0o644))
	reg, err = LoadRegistry(&contract.Config{PassbandsFile: path})
	require.NoError(t, err)
	assert.Equal(t, []string{"ks"}, reg.Passbands())

	_, err = LoadRegistry(&contract.Config{PassbandsFile: filepath.Join(t.TempDir(), "missing.yaml")})
	assert.Error(t, err)
}
