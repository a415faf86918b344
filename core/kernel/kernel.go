// Package kernel builds the separable time x wavelength covariance used to condition light curves.
package kernel

import (
	"errors"
	"fmt"
	"math"

	"github.com/blackhat-astro/blackhat/schema"
	"gonum.org/v1/gonum/mat"
)

// ErrInvalidKernelParameter is returned for non-finite or non-positive hyperparameters.
var ErrInvalidKernelParameter = errors.New("invalid kernel parameter")

// Point is a location in (time, wavelength) space.
type Point struct {
	Time       float64
	Wavelength float64
}

// Stationary is a one-dimensional kernel of a distance, normalized to 1 at d = 0.
type Stationary interface {
	Eval(d float64) float64
}

// Covariance is a two-dimensional covariance function.
type Covariance interface {
	Eval(a, b Point) float64
}

// Validate checks that every hyperparameter is finite and strictly positive.
func Validate(p schema.KernelParameters) error {
	if err := checkPositive("amplitude", p.Amplitude); err != nil {
		return err
	}
	if err := checkPositive("time_length_scale", p.TimeLengthScale); err != nil {
		return err
	}
	return checkPositive("wavelength_length_scale", p.WavelengthLengthScale)
}

func checkPositive(name string, v float64) error {
	if math.IsNaN(v) || math.IsInf(v, 0) || v <= 0 {
		return fmt.Errorf("%w: %s must be finite and > 0, got %v", ErrInvalidKernelParameter, name, v)
	}
	return nil
}

// Build returns the covariance for p. The default combination is multiplicative:
//
//	k((t1,l1),(t2,l2)) = amplitude * matern32(|t1-t2|) * sqexp(|l1-l2|)
func Build(p schema.KernelParameters, mode schema.CombineMode) (Covariance, error) {
	if err := Validate(p); err != nil {
		return nil, err
	}
	timeK := NewMatern32(p.TimeLengthScale)
	wvlK := NewSquaredExp(p.WavelengthLengthScale)

	switch mode {
	case schema.MultiplicativeCombine, "":
		return NewProduct(p.Amplitude, timeK, wvlK), nil
	case schema.AdditiveCombine:
		return NewSum(p.Amplitude, timeK, wvlK), nil
	default:
		return nil, fmt.Errorf("unknown kernel combination %q", mode)
	}
}

// Gram fills the covariance matrix of points, adding noise[i]^2 to the diagonal.
// noise may be nil for a noiseless matrix.
func Gram(k Covariance, points []Point, noise []float64) *mat.SymDense {
	n := len(points)
	K := mat.NewSymDense(n, nil)
	for i := range n {
		for j := i; j < n; j++ {
			K.SetSym(i, j, k.Eval(points[i], points[j]))
		}
		if noise != nil {
			K.SetSym(i, i, K.At(i, i)+noise[i]*noise[i])
		}
	}
	return K
}

// Cross returns the vector of covariances between x and every point.
func Cross(k Covariance, points []Point, x Point) *mat.VecDense {
	v := mat.NewVecDense(len(points), nil)
	for i, p := range points {
		v.SetVec(i, k.Eval(p, x))
	}
	return v
}
