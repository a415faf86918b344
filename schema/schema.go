// Package schema has the models and enums shared by all parts of blackhat.
package schema

import "math"

// Observation is a single flux measurement of a source in one passband.
// Wavelength is zero until the observation has been mapped; mapped wavelengths are always positive.
type Observation struct {
	Time       float64 `json:"time" parquet:"time"`
	Passband   string  `json:"passband" parquet:"passband"`
	Flux       float64 `json:"flux" parquet:"flux"`
	FluxError  float64 `json:"flux_error" parquet:"flux_error"`
	Wavelength float64 `json:"wavelength,omitempty" parquet:"wavelength,optional"`
}

// HasFlux reports whether the flux value is present.
func (o Observation) HasFlux() bool {
	return !math.IsNaN(o.Flux)
}

// IsMapped reports whether a central wavelength has been attached.
func (o Observation) IsMapped() bool {
	return o.Wavelength > 0
}

// PassbandInfo is the derived per-passband view of a source's observations.
type PassbandInfo struct {
	Passband         string  `json:"passband"`
	NObs             int     `json:"nobs"`
	WavelengthCenter float64 `json:"wavelength_center"`
	Color            string  `json:"color"`
	Marker           string  `json:"marker"`
}

// KernelParameters are the free hyperparameters of the 2-D covariance.
type KernelParameters struct {
	Amplitude             float64 `json:"amplitude"`
	TimeLengthScale       float64 `json:"time_length_scale"`
	WavelengthLengthScale float64 `json:"wavelength_length_scale"`
}

// Prediction is the posterior of the flux at one (time, passband) point.
type Prediction struct {
	Time       float64 `json:"time"`
	Passband   string  `json:"passband"`
	Wavelength float64 `json:"wavelength"`
	Mean       float64 `json:"mean"`
	Variance   float64 `json:"variance"`
}

// StdDev returns the posterior standard deviation.
func (p Prediction) StdDev() float64 {
	return math.Sqrt(p.Variance)
}

// FitResult summarizes one conditioned source.
type FitResult struct {
	SourceID      string                  `json:"source_id"`
	Path          string                  `json:"path,omitempty"`
	Status        FitStatus               `json:"status"`
	Params        KernelParameters        `json:"params"`
	LogLikelihood float64                 `json:"log_likelihood"`
	NObs          int                     `json:"nobs"`
	Passbands     map[string]PassbandInfo `json:"passbands"`
	WarmStart     bool                    `json:"warm_start"`
	DurationMs    int64                   `json:"duration_ms"`
	RunID         string                  `json:"run_id,omitempty"`
	Err           string                  `json:"error,omitempty"`
}

// Failed reports whether the fit returned an error.
func (r FitResult) Failed() bool {
	return r.Status == FitFailed
}

// SourceSummary is the passband view of one source, sorted by passband name.
type SourceSummary struct {
	SourceID  string         `json:"source_id"`
	Path      string         `json:"path,omitempty"`
	Passbands []PassbandInfo `json:"passbands"`
}

// SourcePredictions is the posterior light curve of one source.
type SourcePredictions struct {
	SourceID    string           `json:"source_id"`
	Params      KernelParameters `json:"params"`
	Predictions []Prediction     `json:"predictions"`
}

// PassbandDefinition is one registry entry as shown by the passband listing.
type PassbandDefinition struct {
	Passband    string                       `json:"passband"`
	Wavelengths map[WavelengthMethod]float64 `json:"wavelengths"`
	Color       string                       `json:"color"`
	Marker      string                       `json:"marker"`
}
