// Package gp conditions a two-dimensional Gaussian process on multi-band light curves.
package gp

import "errors"

// Conditioning errors. Callers match them with errors.Is.
var (
	ErrOptimizationDidNotConverge = errors.New("optimization did not converge")
	ErrDegenerateCovariance       = errors.New("covariance matrix is not positive definite")
	ErrInvalidObservation         = errors.New("invalid observation")
	ErrNoObservations             = errors.New("no observations with flux to condition on")
)
