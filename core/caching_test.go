package core

import (
	"database/sql"
	"encoding/json"
	"math"
	"testing"
	"time"

	"github.com/blackhat-astro/blackhat/core/gp"
	"github.com/blackhat-astro/blackhat/internal/iocache"
	"github.com/blackhat-astro/blackhat/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func cacheObs() []schema.Observation {
	return []schema.Observation{
		{Time: 0, Passband: "g", Flux: 10, FluxError: 1, Wavelength: 4770},
		{Time: 1, Passband: "r", Flux: math.NaN(), FluxError: 1, Wavelength: 6231},
	}
}

func TestFitCacheKey(t *testing.T) {
	settings := gp.DefaultSettings()
	base := fitCacheKey(cacheObs(), schema.MeanMethod, settings)
	assert.Len(t, base, 64)
	assert.Equal(t, base, fitCacheKey(cacheObs(), schema.MeanMethod, settings), "key must be deterministic")

	// NaN payloads hash the same
	obs := cacheObs()
	obs[1].Flux = math.Float64frombits(0x7ff8000000000bad)
	assert.Equal(t, base, fitCacheKey(obs, schema.MeanMethod, settings))

	tests := []struct {
		name   string
		mutate func([]schema.Observation, *schema.WavelengthMethod, *gp.Settings)
	}{
		{"flux", func(o []schema.Observation, _ *schema.WavelengthMethod, _ *gp.Settings) { o[0].Flux = 10.5 }},
		{"flux error", func(o []schema.Observation, _ *schema.WavelengthMethod, _ *gp.Settings) { o[0].FluxError = 2 }},
		{"time", func(o []schema.Observation, _ *schema.WavelengthMethod, _ *gp.Settings) { o[1].Time = 2 }},
		{"passband", func(o []schema.Observation, _ *schema.WavelengthMethod, _ *gp.Settings) { o[0].Passband = "i" }},
		{"wavelength", func(o []schema.Observation, _ *schema.WavelengthMethod, _ *gp.Settings) { o[0].Wavelength = 4700 }},
		{"method", func(_ []schema.Observation, m *schema.WavelengthMethod, _ *gp.Settings) { *m = schema.EffectiveMethod }},
		{"combine", func(_ []schema.Observation, _ *schema.WavelengthMethod, s *gp.Settings) { s.Combine = schema.AdditiveCombine }},
		{"mean", func(_ []schema.Observation, _ *schema.WavelengthMethod, s *gp.Settings) { s.Mean = schema.ZeroMean }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			obs, method, s := cacheObs(), schema.MeanMethod, gp.DefaultSettings()
			tt.mutate(obs, &method, &s)
			assert.NotEqual(t, base, fitCacheKey(obs, method, s))
		})
	}

	// Length prefixes keep adjacent strings from colliding
	a := []schema.Observation{{Passband: "gr"}}
	b := []schema.Observation{{Passband: "g"}}
	assert.NotEqual(t, fitCacheKey(a, "x", settings), fitCacheKey(b, "xr", settings))
}

func TestLookupCachedFit(t *testing.T) {
	now := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	params := schema.KernelParameters{Amplitude: 2, TimeLengthScale: 15, WavelengthLengthScale: 4000}
	valid, err := json.Marshal(cachedFit{Params: params, LogLikelihood: -3.5})
	require.NoError(t, err)
	invalid, err := json.Marshal(cachedFit{Params: schema.KernelParameters{Amplitude: -1, TimeLengthScale: 1, WavelengthLengthScale: 1}})
	require.NoError(t, err)

	tests := []struct {
		name    string
		data    []byte
		version int
		ts      int64
		err     error
		wantHit bool
	}{
		{name: "hit", data: valid, version: currentCacheVersion, ts: now.Add(-time.Hour).Unix(), wantHit: true},
		{name: "miss", err: sql.ErrNoRows},
		{name: "old version", data: valid, version: currentCacheVersion + 1, ts: now.Unix()},
		{name: "expired", data: valid, version: currentCacheVersion, ts: now.Add(-cacheTTL - time.Hour).Unix()},
		{name: "corrupt", data: []byte("{"), version: currentCacheVersion, ts: now.Unix()},
		{name: "invalid params", data: invalid, version: currentCacheVersion, ts: now.Unix()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := &iocache.MockCacheStore{}
			store.On("Get", "k").Return(tt.data, tt.version, tt.ts, tt.err)

			fit, ok := lookupCachedFit(store, "k", now)
			assert.Equal(t, tt.wantHit, ok)
			if tt.wantHit {
				assert.Equal(t, params, fit.Params)
				assert.Equal(t, -3.5, fit.LogLikelihood)
			}
			store.AssertExpectations(t)
		})
	}

	_, ok := lookupCachedFit(nil, "k", now)
	assert.False(t, ok)
}

func TestStoreCachedFit(t *testing.T) {
	now := time.Unix(1700000000, 0)
	fit := cachedFit{Params: schema.KernelParameters{Amplitude: 1, TimeLengthScale: 2, WavelengthLengthScale: 3}, LogLikelihood: -1}

	store := &iocache.MockCacheStore{}
	store.On("Set", "k", mock.MatchedBy(func(data []byte) bool {
		var got cachedFit
		return json.Unmarshal(data, &got) == nil && got == fit
	}), currentCacheVersion, now.Unix()).Return(nil)

	storeCachedFit(store, "k", fit, now)
	store.AssertExpectations(t)

	// A failing store and a missing store are both tolerated
	failing := &iocache.MockCacheStore{}
	failing.On("Set", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(assert.AnError)
	storeCachedFit(failing, "k", fit, now)
	storeCachedFit(nil, "k", fit, now)
}
