// Package contract provides interfaces and shared utilities for the blackhat internal architecture.
package contract

import (
	"time"

	"github.com/blackhat-astro/blackhat/schema"
)

// PassbandLookup resolves passband names to central wavelengths and plot metadata.
// The registry in core/passband satisfies it; tests substitute a fixed table.
type PassbandLookup interface {
	// Lookup returns the central wavelength of a passband for the given method, in Angstrom.
	Lookup(passband string, method schema.WavelengthMethod) (float64, error)

	// Color returns the plot color of a passband.
	Color(passband string) (string, error)

	// Marker returns the plot marker of a passband.
	Marker(passband string) (string, error)
}

// StoreManager defines the interface for managing the persistent stores.
// This allows the storage layer to be mocked for testing.
type StoreManager interface {
	GetFitCache() CacheStore
	GetRunStore() RunStore
}

// CacheStore defines the interface for fit cache storage.
type CacheStore interface {
	Get(key string) ([]byte, int, int64, error)
	Set(key string, value []byte, version int, timestamp int64) error
	GetStatus() (schema.CacheStatus, error)
	Close() error
}

// RunStore defines the interface for tracking fit runs and their passband statistics.
type RunStore interface {
	// BeginRun creates a new fit run for a source and returns its unique ID
	BeginRun(sourceID string, startTime time.Time, configParams map[string]any) (string, error)

	// EndRun updates the run with the fit outcome
	EndRun(runID string, endTime time.Time, status schema.FitStatus, result schema.FitResult) error

	// RecordPassbandStats stores the per-passband summary used by the fit
	RecordPassbandStats(runID string, stats []schema.PassbandInfo) error

	// GetStatus returns status information about the run store
	GetStatus() (schema.RunStatus, error)

	// GetAllFitRuns returns every recorded run ordered by start time
	GetAllFitRuns() ([]schema.FitRunRecord, error)

	// GetAllPassbandStats returns every recorded passband row
	GetAllPassbandStats() ([]schema.PassbandStatRecord, error)

	// Close closes the underlying connection
	Close() error
}
