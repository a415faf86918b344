package gp

import (
	"time"

	"github.com/blackhat-astro/blackhat/schema"
	"gonum.org/v1/gonum/optimize"
)

// Default optimizer budget.
const (
	DefaultMaxIterations  = 2000
	DefaultMaxEvaluations = 20000
	DefaultTimeout        = 2 * time.Minute
)

// Settings controls how a process is built and fit.
type Settings struct {
	Combine        schema.CombineMode
	Mean           schema.MeanFunction
	MaxIterations  int
	MaxEvaluations int
	Timeout        time.Duration
}

// DefaultSettings returns the multiplicative, biweight-centered configuration.
func DefaultSettings() Settings {
	return Settings{
		Combine:        schema.MultiplicativeCombine,
		Mean:           schema.BiweightMean,
		MaxIterations:  DefaultMaxIterations,
		MaxEvaluations: DefaultMaxEvaluations,
		Timeout:        DefaultTimeout,
	}
}

func (s Settings) optimizeSettings() *optimize.Settings {
	return &optimize.Settings{
		MajorIterations: s.MaxIterations,
		FuncEvaluations: s.MaxEvaluations,
		Runtime:         s.Timeout,
		Converger: &optimize.FunctionConverge{
			Absolute:   1e-8,
			Relative:   1e-10,
			Iterations: 100,
		},
	}
}

// converged reports whether the minimizer stopped at an optimum rather than a budget limit.
func converged(status optimize.Status) bool {
	switch status {
	case optimize.Success,
		optimize.FunctionConvergence,
		optimize.FunctionThreshold,
		optimize.GradientThreshold,
		optimize.MethodConverge:
		return true
	default:
		return false
	}
}
