package kernel

import "math"

var (
	matern32   *Matern32
	squaredExp *SquaredExp
	_          Stationary = matern32   // Check that Matern32 respects the Stationary interface.
	_          Stationary = squaredExp // Check that SquaredExp respects the Stationary interface.
)

// Matern32 is the Matern-3/2 kernel (1 + sqrt(3) d/l) exp(-sqrt(3) d/l).
type Matern32 struct {
	lambda float64
}

// NewMatern32 returns a Matern-3/2 kernel with length scale lscale.
func NewMatern32(lscale float64) *Matern32 {
	return &Matern32{lambda: math.Sqrt(3) / lscale}
}

// Eval returns the correlation at distance d.
func (k *Matern32) Eval(d float64) float64 {
	x := k.lambda * math.Abs(d)
	return (1 + x) * math.Exp(-x)
}

// SquaredExp is the squared-exponential kernel exp(-d^2 / (2 l^2)).
type SquaredExp struct {
	inv2l2 float64
}

// NewSquaredExp returns a squared-exponential kernel with length scale lscale.
func NewSquaredExp(lscale float64) *SquaredExp {
	return &SquaredExp{inv2l2: 1 / (2 * lscale * lscale)}
}

// Eval returns the correlation at distance d.
func (k *SquaredExp) Eval(d float64) float64 {
	return math.Exp(-d * d * k.inv2l2)
}
