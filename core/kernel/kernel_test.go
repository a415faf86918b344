package kernel

import (
	"math"
	"testing"

	"github.com/blackhat-astro/blackhat/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

var validParams = schema.KernelParameters{Amplitude: 2, TimeLengthScale: 10, WavelengthLengthScale: 4500}

func TestBuildRejectsInvalidParameters(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(p *schema.KernelParameters)
	}{
		{"zero amplitude", func(p *schema.KernelParameters) { p.Amplitude = 0 }},
		{"negative amplitude", func(p *schema.KernelParameters) { p.Amplitude = -1 }},
		{"zero time scale", func(p *schema.KernelParameters) { p.TimeLengthScale = 0 }},
		{"negative time scale", func(p *schema.KernelParameters) { p.TimeLengthScale = -3 }},
		{"zero wavelength scale", func(p *schema.KernelParameters) { p.WavelengthLengthScale = 0 }},
		{"negative wavelength scale", func(p *schema.KernelParameters) { p.WavelengthLengthScale = -4500 }},
		{"nan amplitude", func(p *schema.KernelParameters) { p.Amplitude = math.NaN() }},
		{"infinite time scale", func(p *schema.KernelParameters) { p.TimeLengthScale = math.Inf(1) }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := validParams
			tt.mutate(&p)
			for _, mode := range []schema.CombineMode{schema.MultiplicativeCombine, schema.AdditiveCombine} {
				k, err := Build(p, mode)
				assert.ErrorIs(t, err, ErrInvalidKernelParameter)
				assert.Nil(t, k)
			}
		})
	}
}

func TestBuildUnknownCombination(t *testing.T) {
	_, err := Build(validParams, schema.CombineMode("convolved"))
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrInvalidKernelParameter)
}

func TestMatern32(t *testing.T) {
	k := NewMatern32(2)
	assert.InDelta(t, 1.0, k.Eval(0), 1e-12)

	d := 1.5
	x := math.Sqrt(3) * d / 2
	assert.InDelta(t, (1+x)*math.Exp(-x), k.Eval(d), 1e-12)
	assert.InDelta(t, k.Eval(d), k.Eval(-d), 1e-12, "kernel must be symmetric")
	assert.Less(t, k.Eval(10), k.Eval(1), "correlation must decay with distance")
}

func TestSquaredExp(t *testing.T) {
	k := NewSquaredExp(4500)
	assert.InDelta(t, 1.0, k.Eval(0), 1e-12)
	assert.InDelta(t, math.Exp(-0.5), k.Eval(4500), 1e-12)
	assert.InDelta(t, k.Eval(1461), k.Eval(-1461), 1e-12)
}

func TestProductCovariance(t *testing.T) {
	k, err := Build(validParams, schema.MultiplicativeCombine)
	require.NoError(t, err)

	a := Point{Time: 0, Wavelength: 4770}
	b := Point{Time: 3, Wavelength: 6231}

	want := validParams.Amplitude *
		NewMatern32(validParams.TimeLengthScale).Eval(3) *
		NewSquaredExp(validParams.WavelengthLengthScale).Eval(6231-4770)
	assert.InDelta(t, want, k.Eval(a, b), 1e-12)
	assert.InDelta(t, validParams.Amplitude, k.Eval(a, a), 1e-12)
	assert.InDelta(t, k.Eval(a, b), k.Eval(b, a), 1e-12)
}

func TestSumCovariance(t *testing.T) {
	k, err := Build(validParams, schema.AdditiveCombine)
	require.NoError(t, err)

	a := Point{Time: 0, Wavelength: 4770}
	assert.InDelta(t, 2*validParams.Amplitude, k.Eval(a, a), 1e-12)
}

func TestGramAndCross(t *testing.T) {
	k, err := Build(validParams, "")
	require.NoError(t, err)

	points := []Point{{0, 4770}, {1, 4770}, {0.5, 6231}}
	noise := []float64{0.5, 0.5, 0.5}

	K := Gram(k, points, noise)
	require.Equal(t, 3, K.SymmetricDim())
	for i := range points {
		assert.InDelta(t, validParams.Amplitude+0.25, K.At(i, i), 1e-12)
		for j := range points {
			assert.InDelta(t, K.At(i, j), K.At(j, i), 1e-12)
		}
	}

	var chol mat.Cholesky
	assert.True(t, chol.Factorize(K), "noisy gram matrix must be positive definite")

	v := Cross(k, points, points[1])
	assert.InDelta(t, validParams.Amplitude, v.AtVec(1), 1e-12)
	assert.InDelta(t, K.At(0, 1), v.AtVec(0), 1e-12)
}
