package gp

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/blackhat-astro/blackhat/core/kernel"
	"github.com/blackhat-astro/blackhat/schema"
	"gonum.org/v1/gonum/optimize"
	"gonum.org/v1/gonum/stat"
)

// degeneratePenalty replaces the objective where the covariance cannot be factorized,
// steering the simplex away without feeding it infinities.
const degeneratePenalty = 1e25

// Fit maximizes the marginal likelihood of obs over the kernel hyperparameters,
// starting from initial, and returns the conditioned process with the fitted parameters.
// Hyperparameters are optimized in log-space.
func Fit(ctx context.Context, obs []schema.Observation, initial schema.KernelParameters, settings Settings) (*Process, schema.KernelParameters, error) {
	if err := kernel.Validate(initial); err != nil {
		return nil, schema.KernelParameters{}, err
	}
	ts, err := newTrainingSet(obs)
	if err != nil {
		return nil, schema.KernelParameters{}, err
	}
	mu, y := ts.center(settings.Mean)

	var invalid error
	problem := optimize.Problem{
		Func: func(x []float64) float64 {
			params := fromLog(x)
			cov, err := kernel.Build(params, settings.Combine)
			if err != nil {
				if invalid == nil {
					invalid = err
				}
				return degeneratePenalty
			}
			fact, err := factorize(cov, ts.points, ts.noise, y)
			if err != nil {
				return degeneratePenalty
			}
			return -fact.logLik
		},
		Status: func() (optimize.Status, error) {
			if invalid != nil {
				return optimize.Failure, invalid
			}
			if err := ctx.Err(); err != nil {
				return optimize.Failure, err
			}
			return optimize.NotTerminated, nil
		},
	}

	res, err := optimize.Minimize(problem, toLog(initial), settings.optimizeSettings(), &optimize.NelderMead{})
	switch {
	case invalid != nil:
		return nil, schema.KernelParameters{}, fmt.Errorf("optimizer proposed invalid hyperparameters: %w", invalid)
	case ctx.Err() != nil:
		return nil, schema.KernelParameters{}, fmt.Errorf("fit cancelled: %w", ctx.Err())
	case err != nil:
		return nil, schema.KernelParameters{}, fmt.Errorf("%w: %v", ErrOptimizationDidNotConverge, err)
	case res == nil || !converged(res.Status):
		status := optimize.Failure
		iterations := 0
		if res != nil {
			status = res.Status
			iterations = res.MajorIterations
		}
		return nil, schema.KernelParameters{}, fmt.Errorf("%w: minimizer stopped with status %v after %d iterations", ErrOptimizationDidNotConverge, status, iterations)
	}

	params := fromLog(res.X)
	proc, err := condition(ts, mu, y, params, settings.Combine)
	if err != nil {
		if errors.Is(err, ErrDegenerateCovariance) {
			return nil, schema.KernelParameters{}, fmt.Errorf("at fitted parameters %+v: %w", params, err)
		}
		return nil, schema.KernelParameters{}, err
	}
	return proc, params, nil
}

// InitialGuess returns a starting point for Fit. The amplitude is the sample variance of the
// observed flux, falling back to the mean squared flux error for flat or single-point curves.
func InitialGuess(obs []schema.Observation, timeScale, wavelengthScale float64) schema.KernelParameters {
	var flux, errSq []float64
	for _, o := range obs {
		if !o.HasFlux() {
			continue
		}
		flux = append(flux, o.Flux)
		errSq = append(errSq, o.FluxError*o.FluxError)
	}

	amplitude := 0.0
	if len(flux) > 1 {
		amplitude = stat.Variance(flux, nil)
	}
	if !(amplitude > 0) && len(errSq) > 0 {
		amplitude = stat.Mean(errSq, nil)
	}
	if !(amplitude > 0) || math.IsInf(amplitude, 0) {
		amplitude = 1
	}
	return schema.KernelParameters{
		Amplitude:             amplitude,
		TimeLengthScale:       timeScale,
		WavelengthLengthScale: wavelengthScale,
	}
}

func toLog(p schema.KernelParameters) []float64 {
	return []float64{math.Log(p.Amplitude), math.Log(p.TimeLengthScale), math.Log(p.WavelengthLengthScale)}
}

func fromLog(x []float64) schema.KernelParameters {
	return schema.KernelParameters{
		Amplitude:             math.Exp(x[0]),
		TimeLengthScale:       math.Exp(x[1]),
		WavelengthLengthScale: math.Exp(x[2]),
	}
}
