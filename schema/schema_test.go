package schema

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestObservationHasFlux(t *testing.T) {
	tests := []struct {
		name string
		flux float64
		want bool
	}{
		{"positive", 12.5, true},
		{"zero", 0, true},
		{"negative", -3, true},
		{"missing", math.NaN(), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Observation{Flux: tt.flux}.HasFlux())
		})
	}
}

func TestObservationIsMapped(t *testing.T) {
	assert.False(t, Observation{Passband: "g"}.IsMapped())
	assert.True(t, Observation{Passband: "g", Wavelength: 4770}.IsMapped())
}

func TestPredictionStdDev(t *testing.T) {
	assert.InDelta(t, 3.0, Prediction{Variance: 9}.StdDev(), 1e-12)
	assert.Equal(t, 0.0, Prediction{}.StdDev())
}

func TestValidEnumSets(t *testing.T) {
	assert.Len(t, ValidOutputModes, 4)
	assert.Contains(t, ValidWavelengthMethods, EffectiveMethod)
	assert.Contains(t, ValidCombineModes, AdditiveCombine)
	assert.Contains(t, ValidMeanFunctions, ZeroMean)
	assert.Contains(t, ValidDatabaseBackends, NoneBackend)
	assert.NotContains(t, ValidDatabaseBackends, DatabaseBackend("redis"))
}
