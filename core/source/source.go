// Package source holds a single astrophysical source: its observations, opaque metadata
// and the Gaussian process conditioned on them.
package source

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/blackhat-astro/blackhat/core/gp"
	"github.com/blackhat-astro/blackhat/core/passband"
	"github.com/blackhat-astro/blackhat/internal/contract"
	"github.com/blackhat-astro/blackhat/schema"
)

// Source errors.
var (
	ErrNotConditioned     = errors.New("source has no conditioned process")
	ErrAlreadyConditioned = errors.New("kernel has already been conditioned")
)

// Option configures a Source.
type Option func(*Source)

// WithMethod selects the central wavelength method used for mapping and summaries.
func WithMethod(method schema.WavelengthMethod) Option {
	return func(s *Source) { s.Method = method }
}

// WithSettings sets the kernel combination, mean function and optimizer budget for fits.
func WithSettings(settings gp.Settings) Option {
	return func(s *Source) { s.settings = settings }
}

// WithWarnFunc replaces the diagnostic sink, contract.LogWarn by default.
func WithWarnFunc(fn func(msg string, err error)) Option {
	return func(s *Source) { s.warn = fn }
}

// WithMetadata attaches the opaque metadata maps carried alongside the light curve.
func WithMetadata(metadata, telescope, classProbabilities map[string]any) Option {
	return func(s *Source) {
		s.Metadata = metadata
		s.TelescopeMetadata = telescope
		s.ClassProbabilities = classProbabilities
	}
}

// Source is one object's multi-band light curve and the process conditioned on it.
// Metadata, TelescopeMetadata and ClassProbabilities are passed through untouched.
type Source struct {
	ID                 string
	Metadata           map[string]any
	TelescopeMetadata  map[string]any
	ClassProbabilities map[string]any
	Method             schema.WavelengthMethod

	registry contract.PassbandLookup
	settings gp.Settings
	warn     func(string, error)

	mu           sync.Mutex // guards the fields below
	observations []schema.Observation
	process      *gp.Process
	params       schema.KernelParameters
}

// New returns an unconditioned Source over a copy of obs.
func New(id string, registry contract.PassbandLookup, obs []schema.Observation, opts ...Option) *Source {
	s := &Source{
		ID:           id,
		Method:       schema.MeanMethod,
		registry:     registry,
		settings:     gp.DefaultSettings(),
		warn:         contract.LogWarn,
		observations: slices.Clone(obs),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Observations returns a copy of the current observations.
func (s *Source) Observations() []schema.Observation {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.observations)
}

// PassbandSummary returns the per-passband view of the observations: the number of
// non-missing flux values, the central wavelength for the Source's method, and the plot
// color and marker. It is recomputed on every call.
func (s *Source) PassbandSummary() (map[string]schema.PassbandInfo, error) {
	s.mu.Lock()
	obs := s.observations
	s.mu.Unlock()

	summary := make(map[string]schema.PassbandInfo)
	for _, o := range obs {
		info, ok := summary[o.Passband]
		if !ok {
			var err error
			if info, err = s.describe(o.Passband); err != nil {
				return nil, err
			}
		}
		if o.HasFlux() {
			info.NObs++
		}
		summary[o.Passband] = info
	}
	return summary, nil
}

func (s *Source) describe(band string) (schema.PassbandInfo, error) {
	wl, err := s.registry.Lookup(band, s.Method)
	if err != nil {
		return schema.PassbandInfo{}, err
	}
	color, err := s.registry.Color(band)
	if err != nil {
		return schema.PassbandInfo{}, err
	}
	marker, err := s.registry.Marker(band)
	if err != nil {
		return schema.PassbandInfo{}, err
	}
	return schema.PassbandInfo{
		Passband:         band,
		WavelengthCenter: wl,
		Color:            color,
		Marker:           marker,
	}, nil
}

// MapWavelengths attaches the central wavelength of every observation's passband.
// Either every observation is mapped or none is: on failure the observations are left
// as they were and the error wraps passband.ErrMissingWavelengthMapping and its cause.
func (s *Source) MapWavelengths() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	mapped := make([]schema.Observation, len(s.observations))
	resolved := make(map[string]float64)
	for i, o := range s.observations {
		wl, ok := resolved[o.Passband]
		if !ok {
			var err error
			if wl, err = s.registry.Lookup(o.Passband, s.Method); err != nil {
				return fmt.Errorf("%w: passband %q with method %q: %w", passband.ErrMissingWavelengthMapping, o.Passband, s.Method, err)
			}
			resolved[o.Passband] = wl
		}
		o.Wavelength = wl
		mapped[i] = o
	}
	s.observations = mapped
	return nil
}

// Conditioning is the outcome of Condition. Reused is set when the cached process was
// returned instead of a new fit.
type Conditioning struct {
	Process *gp.Process
	Params  schema.KernelParameters
	Reused  bool
}

// GetOrCreate returns the conditioned process and its hyperparameters, fitting from guess
// if none exists yet. With replace the process is always refit and swapped in. Without
// replace an existing process is returned unchanged and a diagnostic is emitted.
// The cached pair only changes after a successful fit.
func (s *Source) GetOrCreate(ctx context.Context, guess schema.KernelParameters, replace bool) (*gp.Process, schema.KernelParameters, error) {
	c, err := s.Condition(ctx, guess, replace)
	if err != nil {
		return nil, schema.KernelParameters{}, err
	}
	return c.Process, c.Params, nil
}

// Condition is GetOrCreate reporting whether the process was reused, decided under the
// same lock as the fit.
func (s *Source) Condition(ctx context.Context, guess schema.KernelParameters, replace bool) (Conditioning, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.process != nil && !replace {
		s.warn("Kernel has already been conditioned", ErrAlreadyConditioned)
		return Conditioning{Process: s.process, Params: s.params, Reused: true}, nil
	}

	proc, params, err := gp.Fit(ctx, s.observations, guess, s.settings)
	if err != nil {
		return Conditioning{}, fmt.Errorf("fitting source %q: %w", s.ID, err)
	}
	s.process = proc
	s.params = params
	return Conditioning{Process: proc, Params: params}, nil
}

// Conditioned reports whether a fitted process is cached.
func (s *Source) Conditioned() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.process != nil
}

// Process returns the cached process or ErrNotConditioned.
func (s *Source) Process() (*gp.Process, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.process == nil {
		return nil, ErrNotConditioned
	}
	return s.process, nil
}

// Predict returns the posterior mean and variance at time t in a passband. The passband
// only needs to be known to the registry, not observed.
func (s *Source) Predict(t float64, band string) (schema.Prediction, error) {
	proc, err := s.Process()
	if err != nil {
		return schema.Prediction{}, err
	}
	wl, err := s.registry.Lookup(band, s.Method)
	if err != nil {
		return schema.Prediction{}, err
	}
	mean, variance, err := proc.PredictWavelength(t, wl)
	if err != nil {
		return schema.Prediction{}, err
	}
	return schema.Prediction{
		Time:       t,
		Passband:   band,
		Wavelength: wl,
		Mean:       mean,
		Variance:   variance,
	}, nil
}

// TimeSpan returns the first and last observation times with a flux value.
func (s *Source) TimeSpan() (float64, float64, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	first, last, found := 0.0, 0.0, false
	for _, o := range s.observations {
		if !o.HasFlux() {
			continue
		}
		if !found || o.Time < first {
			first = o.Time
		}
		if !found || o.Time > last {
			last = o.Time
		}
		found = true
	}
	return first, last, found
}
