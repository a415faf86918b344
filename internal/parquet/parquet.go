// Package parquet provides data structures and functions for exchanging blackhat
// light curves, predictions and run history as Parquet files using
// github.com/parquet-go/parquet-go.
package parquet

import (
	"fmt"
	"io"
	"math"
	"os"
	"time"

	"github.com/blackhat-astro/blackhat/schema"
	"github.com/parquet-go/parquet-go"
)

// FitRun represents a single recorded fit of one source.
// This struct maps to the blackhat_fit_runs database table.
type FitRun struct {
	// RunID is the UUID of the run
	RunID string `parquet:"run_id,snappy"`

	// SourceID identifies the fitted source
	SourceID string `parquet:"source_id,snappy,dict"`

	// StartTime is when the fit began (stored as TIMESTAMP with nanosecond precision)
	StartTime time.Time `parquet:"start_time,snappy"`

	// EndTime is when the fit completed (nullable)
	EndTime *time.Time `parquet:"end_time,optional,snappy"`

	// RunDurationMs is the duration of the fit in milliseconds (nullable)
	RunDurationMs *int32 `parquet:"run_duration_ms,optional,snappy"`

	// NObs is the number of observations with a flux value
	NObs int32 `parquet:"n_obs,snappy"`

	// Status is running, succeeded, reused or failed
	Status string `parquet:"status,snappy,dict"`

	// Amplitude, TimeLengthScale and WavelengthLengthScale are the fitted hyperparameters (nullable)
	Amplitude             *float64 `parquet:"amplitude,optional,snappy"`
	TimeLengthScale       *float64 `parquet:"time_length_scale,optional,snappy"`
	WavelengthLengthScale *float64 `parquet:"wavelength_length_scale,optional,snappy"`

	// LogLikelihood is the marginal log-likelihood at the fitted hyperparameters (nullable)
	LogLikelihood *float64 `parquet:"log_likelihood,optional,snappy"`

	// ErrorMessage holds the failure reason (nullable)
	ErrorMessage *string `parquet:"error_message,optional,snappy"`

	// ConfigParams contains the JSON-encoded fit settings (nullable)
	ConfigParams *string `parquet:"config_params,optional,snappy"`
}

// PassbandStat is the per-passband summary recorded for a fit run.
// This struct maps to the blackhat_passband_stats database table.
type PassbandStat struct {
	RunID            string  `parquet:"run_id,snappy"`
	Passband         string  `parquet:"passband,snappy,dict"`
	NObs             int32   `parquet:"n_obs,snappy"`
	WavelengthCenter float64 `parquet:"wavelength_center,snappy"`
}

// Prediction is one posterior sample of a source's light curve.
type Prediction struct {
	SourceID   string  `parquet:"source_id,snappy,dict"`
	Time       float64 `parquet:"time,snappy"`
	Passband   string  `parquet:"passband,snappy,dict"`
	Wavelength float64 `parquet:"wavelength,snappy"`
	Mean       float64 `parquet:"mean,snappy"`
	Variance   float64 `parquet:"variance,snappy"`
	StdDev     float64 `parquet:"std_dev,snappy"`
}

// SourcePassband is one row of a source's passband summary.
type SourcePassband struct {
	SourceID         string  `parquet:"source_id,snappy,dict"`
	Passband         string  `parquet:"passband,snappy,dict"`
	NObs             int32   `parquet:"n_obs,snappy"`
	WavelengthCenter float64 `parquet:"wavelength_center,snappy"`
	Color            string  `parquet:"color,snappy,dict"`
	Marker           string  `parquet:"marker,snappy,dict"`
}

// FitResult is the outcome of fitting one source in a single invocation.
type FitResult struct {
	SourceID              string  `parquet:"source_id,snappy,dict"`
	Status                string  `parquet:"status,snappy,dict"`
	NObs                  int32   `parquet:"n_obs,snappy"`
	NPassbands            int32   `parquet:"n_passbands,snappy"`
	Amplitude             float64 `parquet:"amplitude,snappy"`
	TimeLengthScale       float64 `parquet:"time_length_scale,snappy"`
	WavelengthLengthScale float64 `parquet:"wavelength_length_scale,snappy"`
	LogLikelihood         float64 `parquet:"log_likelihood,snappy"`
	WarmStart             bool    `parquet:"warm_start,snappy"`
	DurationMs            int64   `parquet:"duration_ms,snappy"`
	RunID                 *string `parquet:"run_id,optional,snappy"`
	ErrorMessage          *string `parquet:"error_message,optional,snappy"`
}

// writeParquet writes rows to a new file at outputPath using struct schema inference.
func writeParquet[T any](data []T, outputPath string) error {
	file, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer func() { _ = file.Close() }()

	return writeRows(file, data)
}

// writeRows writes rows to w and closes the writer to flush the footer.
func writeRows[T any](w io.Writer, data []T) error {
	writer := parquet.NewGenericWriter[T](w)
	if _, err := writer.Write(data); err != nil {
		_ = writer.Close()
		return fmt.Errorf("failed to write data to parquet file: %w", err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("failed to finalize parquet file: %w", err)
	}
	return nil
}

// WriteFitRunsParquet writes a slice of FitRun structs to a Parquet file.
func WriteFitRunsParquet(data []FitRun, outputPath string) error {
	return writeParquet(data, outputPath)
}

// WritePassbandStatsParquet writes a slice of PassbandStat structs to a Parquet file.
func WritePassbandStatsParquet(data []PassbandStat, outputPath string) error {
	return writeParquet(data, outputPath)
}

// WritePredictions writes prediction rows to w.
func WritePredictions(w io.Writer, data []Prediction) error {
	return writeRows(w, data)
}

// WriteSourcePassbands writes passband summary rows to w.
func WriteSourcePassbands(w io.Writer, data []SourcePassband) error {
	return writeRows(w, data)
}

// WriteFitResults writes fit result rows to w.
func WriteFitResults(w io.Writer, data []FitResult) error {
	return writeRows(w, data)
}

// ReadObservations reads a light curve from a Parquet file with time, passband, flux and
// flux_error columns. A null flux is read as NaN.
func ReadObservations(path string) ([]schema.Observation, error) {
	rows, err := parquet.ReadFile[observationRow](path)
	if err != nil {
		return nil, fmt.Errorf("failed to read parquet file %s: %w", path, err)
	}
	obs := make([]schema.Observation, len(rows))
	for i, r := range rows {
		obs[i] = r.toObservation()
	}
	return obs, nil
}

// observationRow is the on-disk layout of a light curve.
type observationRow struct {
	Time      float64  `parquet:"time"`
	Passband  string   `parquet:"passband"`
	Flux      *float64 `parquet:"flux,optional"`
	FluxError float64  `parquet:"flux_error"`
}

func (r observationRow) toObservation() schema.Observation {
	o := schema.Observation{Time: r.Time, Passband: r.Passband, FluxError: r.FluxError, Flux: math.NaN()}
	if r.Flux != nil {
		o.Flux = *r.Flux
	}
	return o
}

// WriteObservations writes a light curve in the layout read by ReadObservations.
func WriteObservations(obs []schema.Observation, outputPath string) error {
	rows := make([]observationRow, len(obs))
	for i, o := range obs {
		rows[i] = observationRow{Time: o.Time, Passband: o.Passband, FluxError: o.FluxError}
		if o.HasFlux() {
			flux := o.Flux
			rows[i].Flux = &flux
		}
	}
	return writeParquet(rows, outputPath)
}

// ConvertFitRunRecords converts schema.FitRunRecord to FitRun for Parquet export.
func ConvertFitRunRecords(records []schema.FitRunRecord) []FitRun {
	result := make([]FitRun, len(records))
	for i, record := range records {
		result[i] = FitRun{
			RunID:                 record.RunID,
			SourceID:              record.SourceID,
			StartTime:             record.StartTime,
			EndTime:               record.EndTime,
			RunDurationMs:         record.RunDurationMs,
			NObs:                  record.NObs,
			Status:                record.Status,
			Amplitude:             record.Amplitude,
			TimeLengthScale:       record.TimeLengthScale,
			WavelengthLengthScale: record.WavelengthLengthScale,
			LogLikelihood:         record.LogLikelihood,
			ErrorMessage:          record.ErrorMessage,
			ConfigParams:          record.ConfigParams,
		}
	}
	return result
}

// ConvertPassbandStatRecords converts schema.PassbandStatRecord to PassbandStat for Parquet export.
func ConvertPassbandStatRecords(records []schema.PassbandStatRecord) []PassbandStat {
	result := make([]PassbandStat, len(records))
	for i, record := range records {
		result[i] = PassbandStat(record)
	}
	return result
}

// ConvertPredictions attaches the source ID to posterior samples for Parquet export.
func ConvertPredictions(sourceID string, preds []schema.Prediction) []Prediction {
	result := make([]Prediction, len(preds))
	for i, p := range preds {
		result[i] = Prediction{
			SourceID:   sourceID,
			Time:       p.Time,
			Passband:   p.Passband,
			Wavelength: p.Wavelength,
			Mean:       p.Mean,
			Variance:   p.Variance,
			StdDev:     p.StdDev(),
		}
	}
	return result
}

// ConvertSummaries flattens source summaries into one row per passband.
func ConvertSummaries(summaries []schema.SourceSummary) []SourcePassband {
	var result []SourcePassband
	for _, s := range summaries {
		for _, p := range s.Passbands {
			result = append(result, SourcePassband{
				SourceID:         s.SourceID,
				Passband:         p.Passband,
				NObs:             int32(p.NObs),
				WavelengthCenter: p.WavelengthCenter,
				Color:            p.Color,
				Marker:           p.Marker,
			})
		}
	}
	return result
}

// ConvertFitResults converts fit results into Parquet rows. Empty run IDs and
// error messages are stored as nulls.
func ConvertFitResults(results []schema.FitResult) []FitResult {
	result := make([]FitResult, len(results))
	for i, r := range results {
		result[i] = FitResult{
			SourceID:              r.SourceID,
			Status:                string(r.Status),
			NObs:                  int32(r.NObs),
			NPassbands:            int32(len(r.Passbands)),
			Amplitude:             r.Params.Amplitude,
			TimeLengthScale:       r.Params.TimeLengthScale,
			WavelengthLengthScale: r.Params.WavelengthLengthScale,
			LogLikelihood:         r.LogLikelihood,
			WarmStart:             r.WarmStart,
			DurationMs:            r.DurationMs,
			RunID:                 nullString(r.RunID),
			ErrorMessage:          nullString(r.Err),
		}
	}
	return result
}

func nullString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
