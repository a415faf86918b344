package gp

import (
	"math"
	"slices"
)

// biweightC is the tuning constant of the biweight location estimator.
const biweightC = 6.0

// BiweightLocation returns the Tukey biweight location of values.
// Points further than c*MAD from the median get zero weight. With a zero MAD the median is returned.
func BiweightLocation(values []float64) float64 {
	if len(values) == 0 {
		return math.NaN()
	}
	m := median(values)

	dev := make([]float64, len(values))
	for i, v := range values {
		dev[i] = math.Abs(v - m)
	}
	mad := median(dev)
	if mad == 0 {
		return m
	}

	var num, den float64
	for _, v := range values {
		u := (v - m) / (biweightC * mad)
		if math.Abs(u) >= 1 {
			continue
		}
		w := (1 - u*u) * (1 - u*u)
		num += (v - m) * w
		den += w
	}
	if den == 0 {
		return m
	}
	return m + num/den
}

func median(values []float64) float64 {
	s := slices.Clone(values)
	slices.Sort(s)
	n := len(s)
	if n%2 == 1 {
		return s[n/2]
	}
	return (s[n/2-1] + s[n/2]) / 2
}
