package gp

import (
	"fmt"
	"math"

	"github.com/blackhat-astro/blackhat/core/kernel"
	"github.com/blackhat-astro/blackhat/core/passband"
	"github.com/blackhat-astro/blackhat/schema"
	"gonum.org/v1/gonum/mat"
)

// maxCondition bounds the condition number of an acceptable covariance matrix.
const maxCondition = 1e15

var log2Pi = math.Log(2 * math.Pi)

// trainingSet is the validated, flattened form of a light curve.
type trainingSet struct {
	points []kernel.Point
	flux   []float64
	noise  []float64
	bands  map[string]float64
}

// newTrainingSet drops observations with missing flux and validates the rest.
func newTrainingSet(obs []schema.Observation) (*trainingSet, error) {
	ts := &trainingSet{bands: make(map[string]float64)}
	for i, o := range obs {
		if !o.HasFlux() {
			continue
		}
		if !o.IsMapped() {
			return nil, fmt.Errorf("%w: observation %d in passband %q", passband.ErrMissingWavelengthMapping, i, o.Passband)
		}
		if math.IsNaN(o.Time) || math.IsInf(o.Time, 0) || math.IsInf(o.Flux, 0) {
			return nil, fmt.Errorf("%w: observation %d has non-finite time or flux", ErrInvalidObservation, i)
		}
		if math.IsNaN(o.FluxError) || math.IsInf(o.FluxError, 0) || o.FluxError <= 0 {
			return nil, fmt.Errorf("%w: observation %d has flux_error %v, must be > 0", ErrInvalidObservation, i, o.FluxError)
		}
		ts.points = append(ts.points, kernel.Point{Time: o.Time, Wavelength: o.Wavelength})
		ts.flux = append(ts.flux, o.Flux)
		ts.noise = append(ts.noise, o.FluxError)
		ts.bands[o.Passband] = o.Wavelength
	}
	if len(ts.points) == 0 {
		return nil, ErrNoObservations
	}
	return ts, nil
}

// center returns the mean offset and the centered flux.
func (ts *trainingSet) center(mean schema.MeanFunction) (float64, []float64) {
	mu := 0.0
	if mean != schema.ZeroMean {
		mu = BiweightLocation(ts.flux)
	}
	y := make([]float64, len(ts.flux))
	for i, f := range ts.flux {
		y[i] = f - mu
	}
	return mu, y
}

// factorization is the Cholesky solve of one covariance against centered flux.
type factorization struct {
	chol   mat.Cholesky
	alpha  *mat.VecDense
	logLik float64
}

// factorize builds K, checks it is numerically positive definite and solves K alpha = y.
func factorize(cov kernel.Covariance, points []kernel.Point, noise, y []float64) (*factorization, error) {
	K := kernel.Gram(cov, points, noise)

	f := &factorization{}
	if ok := f.chol.Factorize(K); !ok {
		return nil, ErrDegenerateCovariance
	}
	if c := f.chol.Cond(); math.IsInf(c, 0) || math.IsNaN(c) || c > maxCondition {
		return nil, fmt.Errorf("%w: condition number %.3g", ErrDegenerateCovariance, c)
	}

	yv := mat.NewVecDense(len(y), y)
	f.alpha = mat.NewVecDense(len(y), nil)
	if err := f.chol.SolveVecTo(f.alpha, yv); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDegenerateCovariance, err)
	}

	n := float64(len(y))
	f.logLik = -0.5*mat.Dot(yv, f.alpha) - 0.5*f.chol.LogDet() - 0.5*n*log2Pi
	return f, nil
}

// Process is a Gaussian process conditioned on a light curve. It is immutable.
type Process struct {
	params  schema.KernelParameters
	combine schema.CombineMode
	cov     kernel.Covariance
	points  []kernel.Point
	mean    float64
	bands   map[string]float64
	fact    *factorization
}

// Condition builds the posterior process for obs at fixed hyperparameters, without optimizing.
func Condition(obs []schema.Observation, params schema.KernelParameters, settings Settings) (*Process, error) {
	ts, err := newTrainingSet(obs)
	if err != nil {
		return nil, err
	}
	mu, y := ts.center(settings.Mean)
	return condition(ts, mu, y, params, settings.Combine)
}

func condition(ts *trainingSet, mu float64, y []float64, params schema.KernelParameters, combine schema.CombineMode) (*Process, error) {
	cov, err := kernel.Build(params, combine)
	if err != nil {
		return nil, err
	}
	fact, err := factorize(cov, ts.points, ts.noise, y)
	if err != nil {
		return nil, err
	}
	return &Process{
		params:  params,
		combine: combine,
		cov:     cov,
		points:  ts.points,
		mean:    mu,
		bands:   ts.bands,
		fact:    fact,
	}, nil
}

// Params returns the hyperparameters the process was conditioned with.
func (p *Process) Params() schema.KernelParameters {
	return p.params
}

// LogLikelihood returns the log marginal likelihood at the fitted hyperparameters.
func (p *Process) LogLikelihood() float64 {
	return p.fact.logLik
}

// MeanOffset returns the constant the flux was centered on.
func (p *Process) MeanOffset() float64 {
	return p.mean
}

// Len returns the number of training points.
func (p *Process) Len() int {
	return len(p.points)
}

// Predict returns the posterior mean and variance of the flux at time t in a passband
// the process was trained on.
func (p *Process) Predict(t float64, band string) (float64, float64, error) {
	wl, ok := p.bands[band]
	if !ok {
		return 0, 0, fmt.Errorf("%w: %q has no training observations", passband.ErrUnknownPassband, band)
	}
	return p.PredictWavelength(t, wl)
}

// PredictWavelength returns the posterior mean and variance at (t, wavelength).
func (p *Process) PredictWavelength(t, wavelength float64) (float64, float64, error) {
	if math.IsNaN(t) || math.IsInf(t, 0) {
		return 0, 0, fmt.Errorf("%w: query time must be finite, got %v", ErrInvalidObservation, t)
	}
	if !(wavelength > 0) || math.IsInf(wavelength, 0) {
		return 0, 0, fmt.Errorf("%w: wavelength must be > 0, got %v", ErrInvalidObservation, wavelength)
	}
	x := kernel.Point{Time: t, Wavelength: wavelength}
	ks := kernel.Cross(p.cov, p.points, x)

	mean := p.mean + mat.Dot(ks, p.fact.alpha)

	v := mat.NewVecDense(len(p.points), nil)
	if err := p.fact.chol.SolveVecTo(v, ks); err != nil {
		return 0, 0, fmt.Errorf("%w: %v", ErrDegenerateCovariance, err)
	}
	variance := p.cov.Eval(x, x) - mat.Dot(ks, v)
	if variance < 0 {
		variance = 0
	}
	return mean, variance, nil
}
