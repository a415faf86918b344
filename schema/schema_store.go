package schema

import "time"

// FitRunRecord represents a row from the blackhat_fit_runs table.
type FitRunRecord struct {
	RunID                 string
	SourceID              string
	StartTime             time.Time
	EndTime               *time.Time
	RunDurationMs         *int32
	NObs                  int32
	Status                string
	Amplitude             *float64
	TimeLengthScale       *float64
	WavelengthLengthScale *float64
	LogLikelihood         *float64
	ErrorMessage          *string
	ConfigParams          *string
}

// PassbandStatRecord represents a row from the blackhat_passband_stats table.
type PassbandStatRecord struct {
	RunID            string
	Passband         string
	NObs             int32
	WavelengthCenter float64
}
