package passband

import (
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/blackhat-astro/blackhat/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testRegistryYAML = `
g:
  mean: 4770
  effective: 4702.5
  color: green
  marker: o
r:
  mean: 6231.0
  color: red
  marker: s
`

func TestParseAndLookup(t *testing.T) {
	r, err := Parse([]byte(testRegistryYAML))
	require.NoError(t, err)

	tests := []struct {
		name     string
		passband string
		method   schema.WavelengthMethod
		want     float64
		wantErr  error
	}{
		{"integer wavelength", "g", schema.MeanMethod, 4770, nil},
		{"float wavelength", "g", schema.EffectiveMethod, 4702.5, nil},
		{"second passband", "r", schema.MeanMethod, 6231, nil},
		{"unknown method", "r", schema.WeightedMethod, 0, ErrUnknownMethod},
		{"unknown passband", "Ks", schema.MeanMethod, 0, ErrUnknownPassband},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := r.Lookup(tt.passband, tt.method)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.InDelta(t, tt.want, got, 1e-9)
		})
	}
}

func TestColorAndMarker(t *testing.T) {
	r, err := Parse([]byte(testRegistryYAML))
	require.NoError(t, err)

	color, err := r.Color("g")
	require.NoError(t, err)
	assert.Equal(t, "green", color)

	marker, err := r.Marker("r")
	require.NoError(t, err)
	assert.Equal(t, "s", marker)

	_, err = r.Color("y")
	assert.ErrorIs(t, err, ErrUnknownPassband)
	_, err = r.Marker("y")
	assert.ErrorIs(t, err, ErrUnknownPassband)
}

func TestParseRejectsBadEntries(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"non numeric wavelength", "g:\n  mean: blue\n"},
		{"negative wavelength", "g:\n  mean: -1\n"},
		{"zero wavelength", "g:\n  mean: 0\n"},
		{"no wavelengths", "g:\n  color: green\n"},
		{"not a mapping", "- g\n- r\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			assert.Error(t, err)
		})
	}
}

func TestPassbandKeysKeepCase(t *testing.T) {
	r, err := Parse([]byte("Ks:\n  mean: 21460\n"))
	require.NoError(t, err)

	_, err = r.Lookup("Ks", schema.MeanMethod)
	assert.NoError(t, err)
	_, err = r.Lookup("ks", schema.MeanMethod)
	assert.ErrorIs(t, err, ErrUnknownPassband)
}

func TestDefaultRegistry(t *testing.T) {
	r := Default()
	assert.Equal(t, []string{"g", "i", "q", "r", "u", "z"}, r.Passbands())

	g, err := r.Lookup("g", schema.MeanMethod)
	require.NoError(t, err)
	assert.InDelta(t, 4770.0, g, 1e-9)

	methods, err := r.Methods("r")
	require.NoError(t, err)
	assert.Equal(t, []schema.WavelengthMethod{schema.EffectiveMethod, schema.MeanMethod, schema.WeightedMethod}, methods)
}

func TestMarshalRoundTrip(t *testing.T) {
	orig := Default()
	data, err := orig.Marshal()
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "passbands.yaml")
	require.NoError(t, os.WriteFile(path, data, 0o644))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, orig.Passbands(), loaded.Passbands())
	for _, pb := range orig.Passbands() {
		want, _ := orig.Lookup(pb, schema.MeanMethod)
		got, err := loaded.Lookup(pb, schema.MeanMethod)
		require.NoError(t, err)
		assert.InDelta(t, want, got, 1e-9)
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestConcurrentLookups(t *testing.T) {
	r := Default()
	var wg sync.WaitGroup
	for range 32 {
		wg.Go(func() {
			for _, pb := range r.Passbands() {
				_, err := r.Lookup(pb, schema.MeanMethod)
				assert.NoError(t, err)
				_, err = r.Color(pb)
				assert.NoError(t, err)
			}
		})
	}
	wg.Wait()
}

func TestDefinitions(t *testing.T) {
	r, err := Parse([]byte(testRegistryYAML))
	require.NoError(t, err)

	defs := r.Definitions()
	require.Len(t, defs, 2)
	assert.Equal(t, "g", defs[0].Passband)
	assert.Equal(t, "green", defs[0].Color)
	assert.Equal(t, "o", defs[0].Marker)
	assert.InDelta(t, 4702.5, defs[0].Wavelengths[schema.EffectiveMethod], 1e-9)
	assert.Equal(t, "r", defs[1].Passband)

	// Returned maps are copies
	defs[0].Wavelengths[schema.MeanMethod] = 1
	wl, err := r.Lookup("g", schema.MeanMethod)
	require.NoError(t, err)
	assert.InDelta(t, 4770.0, wl, 1e-9)
}
