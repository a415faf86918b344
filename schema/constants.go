package schema

// Custom string types for type safety.
type (
	// OutputMode represents the format of the output.
	OutputMode string

	// WavelengthMethod names how a passband's central wavelength was computed.
	WavelengthMethod string

	// CombineMode selects how the time and wavelength kernels are joined.
	CombineMode string

	// MeanFunction selects how flux is centered before conditioning.
	MeanFunction string

	// FitStatus is the terminal state of a recorded fit run.
	FitStatus string

	// DatabaseBackend represents the database backend for caching.
	DatabaseBackend string
)

// All output modes supported.
const (
	CSVOut     OutputMode = "csv"
	TextOut    OutputMode = "text" // default
	JSONOut    OutputMode = "json"
	ParquetOut OutputMode = "parquet"
)

// All central wavelength methods supported.
const (
	MeanMethod      WavelengthMethod = "mean" // default
	WeightedMethod  WavelengthMethod = "weighted"
	EffectiveMethod WavelengthMethod = "effective"
)

// All kernel combinations supported.
const (
	MultiplicativeCombine CombineMode = "multiplicative" // default
	AdditiveCombine       CombineMode = "additive"
)

// All mean functions supported.
const (
	BiweightMean MeanFunction = "biweight" // default
	ZeroMean     MeanFunction = "zero"
)

// All fit statuses recorded by the run store.
const (
	FitRunning   FitStatus = "running"
	FitSucceeded FitStatus = "succeeded"
	FitFailed    FitStatus = "failed"
	FitReused    FitStatus = "reused"
)

// All cache backends supported.
const (
	SQLiteBackend     DatabaseBackend = "sqlite" // default
	MySQLBackend      DatabaseBackend = "mysql"
	PostgreSQLBackend DatabaseBackend = "postgresql"
	NoneBackend       DatabaseBackend = "none"
)

// ValidOutputModes lists all valid output modes.
var ValidOutputModes = map[OutputMode]struct{}{
	CSVOut:     {},
	TextOut:    {},
	JSONOut:    {},
	ParquetOut: {},
}

// ValidWavelengthMethods lists all valid central wavelength methods.
var ValidWavelengthMethods = map[WavelengthMethod]struct{}{
	MeanMethod:      {},
	WeightedMethod:  {},
	EffectiveMethod: {},
}

// ValidCombineModes lists all valid kernel combinations.
var ValidCombineModes = map[CombineMode]struct{}{
	MultiplicativeCombine: {},
	AdditiveCombine:       {},
}

// ValidMeanFunctions lists all valid mean functions.
var ValidMeanFunctions = map[MeanFunction]struct{}{
	BiweightMean: {},
	ZeroMean:     {},
}

// ValidDatabaseBackends lists all valid cache backends.
var ValidDatabaseBackends = map[DatabaseBackend]struct{}{
	SQLiteBackend:     {},
	MySQLBackend:      {},
	PostgreSQLBackend: {},
	NoneBackend:       {},
}
