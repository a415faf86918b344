package core

import (
	"github.com/blackhat-astro/blackhat/core/gp"
	"github.com/blackhat-astro/blackhat/core/passband"
	"github.com/blackhat-astro/blackhat/internal/contract"
	"github.com/blackhat-astro/blackhat/schema"
)

// settingsFromConfig maps the validated configuration onto fit settings.
func settingsFromConfig(cfg *contract.Config) gp.Settings {
	settings := gp.DefaultSettings()
	if cfg.Combine != "" {
		settings.Combine = cfg.Combine
	}
	if cfg.Mean != "" {
		settings.Mean = cfg.Mean
	}
	if cfg.MaxIterations > 0 {
		settings.MaxIterations = cfg.MaxIterations
	}
	if cfg.MaxEvaluations > 0 {
		settings.MaxEvaluations = cfg.MaxEvaluations
	}
	if cfg.FitTimeout > 0 {
		settings.Timeout = cfg.FitTimeout
	}
	return settings
}

// initialGuess seeds the optimizer from the configured length scales. A positive configured
// amplitude wins over the one estimated from the flux.
func initialGuess(cfg *contract.Config, obs []schema.Observation) schema.KernelParameters {
	timeScale, wavelengthScale := cfg.TimeScale, cfg.WavelengthScale
	if !(timeScale > 0) {
		timeScale = contract.DefaultTimeScale
	}
	if !(wavelengthScale > 0) {
		wavelengthScale = contract.DefaultWavelengthScale
	}
	guess := gp.InitialGuess(obs, timeScale, wavelengthScale)
	if cfg.Amplitude > 0 {
		guess.Amplitude = cfg.Amplitude
	}
	return guess
}

// LoadRegistry returns the registry named by the configuration, or the embedded default.
func LoadRegistry(cfg *contract.Config) (*passband.Registry, error) {
	if cfg.PassbandsFile == "" {
		return passband.Default(), nil
	}
	return passband.Load(cfg.PassbandsFile)
}
