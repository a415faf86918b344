package contract

import (
	"fmt"
	"math"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/blackhat-astro/blackhat/schema"
)

// Default values for configuration.
const (
	DefaultTimeScale       = 20.0   // days
	DefaultWavelengthScale = 4500.0 // Angstrom
	DefaultMaxIterations   = 2000
	DefaultMaxEvaluations  = 20000
	DefaultFitTimeout      = 2 * time.Minute
	DefaultPrecision       = 3
	MaxPrecision           = 8
	DefaultPredictPoints   = 100
	MaxPredictPoints       = 100000
)

// DefaultWorkers is the default number of concurrent workers to use.
var DefaultWorkers = runtime.GOMAXPROCS(0)

// ProfileConfig holds profiling settings.
type ProfileConfig struct {
	Enabled bool
	Prefix  string
}

// Config holds the runtime configuration for fitting and prediction.
// This struct is the "final, validated" config.
type Config struct {
	InputPaths    []string
	SourceMeta    string
	PassbandsFile string

	Method          schema.WavelengthMethod
	Combine         schema.CombineMode
	Mean            schema.MeanFunction
	Amplitude       float64 // Initial amplitude (0 = derive from the flux variance)
	TimeScale       float64
	WavelengthScale float64
	MaxIterations   int
	MaxEvaluations  int
	FitTimeout      time.Duration
	Replace         bool

	Workers    int
	Precision  int
	Output     schema.OutputMode
	OutputFile string
	Width      int // Terminal width override (0 = auto-detect)
	UseColors  bool

	PredictPassbands []string  // Empty means every observed passband
	PredictStart     *float64  // Nil means the first observation time
	PredictEnd       *float64  // Nil means the last observation time
	PredictPoints    int       // Grid size between start and end
	PredictTimes     []float64 // Explicit query times, overrides the grid

	CacheBackend   schema.DatabaseBackend
	CacheDBConnect string // Please use env var as this is plaintext

	RunsBackend   schema.DatabaseBackend
	RunsDBConnect string // Please use env var as this is plaintext
}

// ConfigRawInput holds the raw inputs from all sources (flags, env, config file).
// Viper unmarshals into this struct.
type ConfigRawInput struct {
	// This is set manually from positional args, so no tag
	InputPaths []string

	// --- Fields from rootCmd.PersistentFlags() ---
	Passbands      string `mapstructure:"passbands"`
	SourceMeta     string `mapstructure:"source-meta"`
	Method         string `mapstructure:"method"`
	KernelCombine  string `mapstructure:"kernel-combine"`
	MeanFunction   string `mapstructure:"mean-function"`
	Workers        int    `mapstructure:"workers"`
	Precision      int    `mapstructure:"precision"`
	Output         string `mapstructure:"output"`
	OutputFile     string `mapstructure:"output-file"`
	Width          int    `mapstructure:"width"`
	Color          string `mapstructure:"color"`
	CacheBackend   string `mapstructure:"cache-backend"`
	CacheDBConnect string `mapstructure:"cache-db-connect"`
	RunsBackend    string `mapstructure:"runs-backend"`
	RunsDBConnect  string `mapstructure:"runs-db-connect"`

	// --- Fields from fitCmd.Flags() and predictCmd.Flags() ---
	Amplitude       float64 `mapstructure:"amplitude"`
	TimeScale       float64 `mapstructure:"time-scale"`
	WavelengthScale float64 `mapstructure:"wavelength-scale"`
	MaxIterations   int     `mapstructure:"max-iterations"`
	MaxEvaluations  int     `mapstructure:"max-evaluations"`
	FitTimeout      string  `mapstructure:"fit-timeout"`
	Replace         bool    `mapstructure:"replace"`

	// --- Fields from predictCmd.Flags() ---
	Passband string `mapstructure:"passband"`
	Start    string `mapstructure:"start"`
	End      string `mapstructure:"end"`
	Points   int    `mapstructure:"points"`
	Times    string `mapstructure:"times"`
}

// Clone returns a deep copy of the Config struct.
func (c *Config) Clone() *Config {
	clone := *c
	if c.InputPaths != nil {
		clone.InputPaths = append([]string(nil), c.InputPaths...)
	}
	if c.PredictPassbands != nil {
		clone.PredictPassbands = append([]string(nil), c.PredictPassbands...)
	}
	if c.PredictTimes != nil {
		clone.PredictTimes = append([]float64(nil), c.PredictTimes...)
	}
	if c.PredictStart != nil {
		v := *c.PredictStart
		clone.PredictStart = &v
	}
	if c.PredictEnd != nil {
		v := *c.PredictEnd
		clone.PredictEnd = &v
	}
	return &clone
}

// ConfigParams returns the fit settings recorded alongside each run.
func (c *Config) ConfigParams() map[string]any {
	return map[string]any{
		"method":           string(c.Method),
		"kernel_combine":   string(c.Combine),
		"mean_function":    string(c.Mean),
		"amplitude":        c.Amplitude,
		"time_scale":       c.TimeScale,
		"wavelength_scale": c.WavelengthScale,
		"max_iterations":   c.MaxIterations,
		"max_evaluations":  c.MaxEvaluations,
		"fit_timeout":      c.FitTimeout.String(),
		"replace":          c.Replace,
	}
}

// ProcessAndValidate performs all parsing and validation on the raw inputs
// and updates the final Config struct.
func ProcessAndValidate(cfg *Config, input *ConfigRawInput) error {
	if err := validateSimpleInputs(cfg, input); err != nil {
		return err
	}
	if err := processFitSettings(cfg, input); err != nil {
		return err
	}
	if err := processPredictMode(cfg, input); err != nil {
		return err
	}
	return nil
}

// ValidateDatabaseConnectionString validates the format of database connection strings
// for MySQL and PostgreSQL backends.
func ValidateDatabaseConnectionString(backend schema.DatabaseBackend, connStr string) error {
	switch backend {
	case schema.SQLiteBackend, schema.NoneBackend:
		return nil
	case schema.MySQLBackend:
		if connStr == "" {
			return fmt.Errorf("a connection string is required when using %s backend", backend)
		}
		if !strings.Contains(connStr, "@tcp(") {
			return fmt.Errorf("MySQL connection string must contain '@tcp(' for host:port specification")
		}
		if !strings.Contains(connStr, "/") {
			return fmt.Errorf("MySQL connection string must contain '/' followed by database name")
		}
	case schema.PostgreSQLBackend:
		if connStr == "" {
			return fmt.Errorf("a connection string is required when using %s backend", backend)
		}
		if !strings.Contains(connStr, "host=") {
			return fmt.Errorf("PostgreSQL connection string must contain 'host=' parameter")
		}
		if !strings.Contains(connStr, "dbname=") {
			return fmt.Errorf("PostgreSQL connection string must contain 'dbname=' parameter")
		}
	}
	return nil
}

// validateBackendConfigs validates cache and run store backend configurations.
func validateBackendConfigs(cfg *Config, input *ConfigRawInput) error {
	// --- Cache Backend Validation ---
	cfg.CacheBackend = schema.DatabaseBackend(strings.ToLower(input.CacheBackend))
	if _, ok := schema.ValidDatabaseBackends[cfg.CacheBackend]; !ok {
		return fmt.Errorf("invalid cache backend '%s'. must be sqlite, mysql, postgresql, none", input.CacheBackend)
	}
	cfg.CacheDBConnect = input.CacheDBConnect
	if err := ValidateDatabaseConnectionString(cfg.CacheBackend, cfg.CacheDBConnect); err != nil {
		return fmt.Errorf("cache-db-connect: %w", err)
	}

	// --- Run Store Backend Validation ---
	cfg.RunsBackend = schema.DatabaseBackend(strings.ToLower(input.RunsBackend))
	if cfg.RunsBackend == "" {
		return nil
	}
	if _, ok := schema.ValidDatabaseBackends[cfg.RunsBackend]; !ok {
		return fmt.Errorf("invalid runs backend '%s'. must be sqlite, mysql, postgresql, none", input.RunsBackend)
	}
	cfg.RunsDBConnect = input.RunsDBConnect
	if err := ValidateDatabaseConnectionString(cfg.RunsBackend, cfg.RunsDBConnect); err != nil {
		return fmt.Errorf("runs-db-connect: %w", err)
	}

	// Cache and run store must not share one SQLite file
	if cfg.CacheBackend == schema.SQLiteBackend && cfg.RunsBackend == schema.SQLiteBackend {
		cacheDBPath := cfg.CacheDBConnect
		if cacheDBPath == "" {
			cacheDBPath = GetCacheDBFilePath()
		}
		runsDBPath := cfg.RunsDBConnect
		if runsDBPath == "" {
			runsDBPath = GetRunsDBFilePath()
		}
		if cacheDBPath == runsDBPath {
			return fmt.Errorf("cache and run storage must use different SQLite database files. Both resolve to %q", cacheDBPath)
		}
	}
	return nil
}

// validateSimpleInputs processes and validates the output and runtime fields.
func validateSimpleInputs(cfg *Config, input *ConfigRawInput) error {
	cfg.InputPaths = input.InputPaths
	cfg.SourceMeta = strings.TrimSpace(input.SourceMeta)
	cfg.PassbandsFile = strings.TrimSpace(input.Passbands)
	cfg.OutputFile = input.OutputFile
	cfg.Width = input.Width
	cfg.Replace = input.Replace

	colors, err := ParseBoolString(input.Color)
	if err != nil {
		return fmt.Errorf("invalid --color value: %w", err)
	}
	cfg.UseColors = colors

	if input.Workers <= 0 {
		return fmt.Errorf("workers must be greater than 0 (received %d)", input.Workers)
	}
	cfg.Workers = input.Workers

	if input.Precision < 1 || input.Precision > MaxPrecision {
		return fmt.Errorf("precision must be between 1 and %d (received %d)", MaxPrecision, input.Precision)
	}
	cfg.Precision = input.Precision

	cfg.Output = schema.OutputMode(strings.ToLower(input.Output))
	if _, ok := schema.ValidOutputModes[cfg.Output]; !ok {
		return fmt.Errorf("invalid output format '%s'. must be text, csv, json, parquet", input.Output)
	}
	if cfg.Output == schema.ParquetOut && cfg.OutputFile == "" {
		return fmt.Errorf("--output-file is required for parquet output")
	}

	return validateBackendConfigs(cfg, input)
}

// processFitSettings handles the kernel and optimizer settings.
func processFitSettings(cfg *Config, input *ConfigRawInput) error {
	cfg.Method = schema.WavelengthMethod(strings.ToLower(input.Method))
	if _, ok := schema.ValidWavelengthMethods[cfg.Method]; !ok {
		return fmt.Errorf("invalid method '%s'. must be mean, weighted, effective", input.Method)
	}

	cfg.Combine = schema.CombineMode(strings.ToLower(input.KernelCombine))
	if _, ok := schema.ValidCombineModes[cfg.Combine]; !ok {
		return fmt.Errorf("invalid kernel combination '%s'. must be multiplicative, additive", input.KernelCombine)
	}

	cfg.Mean = schema.MeanFunction(strings.ToLower(input.MeanFunction))
	if _, ok := schema.ValidMeanFunctions[cfg.Mean]; !ok {
		return fmt.Errorf("invalid mean function '%s'. must be biweight, zero", input.MeanFunction)
	}

	if input.Amplitude < 0 {
		return fmt.Errorf("amplitude must be 0 (auto) or positive (received %g)", input.Amplitude)
	}
	cfg.Amplitude = input.Amplitude

	if !(input.TimeScale > 0) {
		return fmt.Errorf("time-scale must be positive (received %g)", input.TimeScale)
	}
	cfg.TimeScale = input.TimeScale

	if !(input.WavelengthScale > 0) {
		return fmt.Errorf("wavelength-scale must be positive (received %g)", input.WavelengthScale)
	}
	cfg.WavelengthScale = input.WavelengthScale

	if input.MaxIterations <= 0 {
		return fmt.Errorf("max-iterations must be greater than 0 (received %d)", input.MaxIterations)
	}
	cfg.MaxIterations = input.MaxIterations

	if input.MaxEvaluations <= 0 {
		return fmt.Errorf("max-evaluations must be greater than 0 (received %d)", input.MaxEvaluations)
	}
	cfg.MaxEvaluations = input.MaxEvaluations

	cfg.FitTimeout = DefaultFitTimeout
	if input.FitTimeout != "" {
		d, err := time.ParseDuration(input.FitTimeout)
		if err != nil {
			return fmt.Errorf("invalid fit-timeout '%s': %w", input.FitTimeout, err)
		}
		if d <= 0 {
			return fmt.Errorf("fit-timeout must be positive (received %s)", d)
		}
		cfg.FitTimeout = d
	}
	return nil
}

// processPredictMode handles the query grid for the predict command.
func processPredictMode(cfg *Config, input *ConfigRawInput) error {
	cfg.PredictPassbands = splitList(input.Passband)

	start, err := parseOptionalFloat("start", input.Start)
	if err != nil {
		return err
	}
	end, err := parseOptionalFloat("end", input.End)
	if err != nil {
		return err
	}
	if start != nil && end != nil && *start > *end {
		return fmt.Errorf("start time (%g) cannot be after end time (%g)", *start, *end)
	}
	cfg.PredictStart = start
	cfg.PredictEnd = end

	if input.Points < 0 || input.Points > MaxPredictPoints {
		return fmt.Errorf("points must be between 1 and %d (received %d)", MaxPredictPoints, input.Points)
	}
	cfg.PredictPoints = input.Points
	if cfg.PredictPoints == 0 {
		cfg.PredictPoints = DefaultPredictPoints
	}

	cfg.PredictTimes = nil
	for _, s := range splitList(input.Times) {
		v, err := parseFiniteFloat("times", s)
		if err != nil {
			return err
		}
		cfg.PredictTimes = append(cfg.PredictTimes, v)
	}
	return nil
}

// RevalidatePredict applies prediction query overrides to an already validated config,
// as the MCP tools do per call.
func RevalidatePredict(cfg *Config, passband, start, end string, points int, times string) error {
	return processPredictMode(cfg, &ConfigRawInput{
		Passband: passband,
		Start:    start,
		End:      end,
		Points:   points,
		Times:    times,
	})
}

// RevalidateFitSettings applies wavelength method, kernel combination and mean function
// overrides. Empty values keep the current setting.
func RevalidateFitSettings(cfg *Config, method, combine, mean string) error {
	input := &ConfigRawInput{
		Method:          string(cfg.Method),
		KernelCombine:   string(cfg.Combine),
		MeanFunction:    string(cfg.Mean),
		Amplitude:       cfg.Amplitude,
		TimeScale:       cfg.TimeScale,
		WavelengthScale: cfg.WavelengthScale,
		MaxIterations:   cfg.MaxIterations,
		MaxEvaluations:  cfg.MaxEvaluations,
		FitTimeout:      cfg.FitTimeout.String(),
	}
	if method != "" {
		input.Method = method
	}
	if combine != "" {
		input.KernelCombine = combine
	}
	if mean != "" {
		input.MeanFunction = mean
	}
	return processFitSettings(cfg, input)
}

// ProcessProfilingConfig handles the profiling flag and sets up profiling configuration.
func ProcessProfilingConfig(profile *ProfileConfig, profilePrefix string) error {
	if profilePrefix != "" {
		profile.Enabled = true
		profile.Prefix = profilePrefix
	}
	return nil
}

func parseOptionalFloat(name, s string) (*float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	v, err := parseFiniteFloat(name, s)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

// parseFiniteFloat parses a query time, rejecting NaN and infinities.
func parseFiniteFloat(name, s string) (float64, error) {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid --%s value '%s': %w", name, s, err)
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("invalid --%s value '%s': must be finite", name, s)
	}
	return v, nil
}

// splitList splits a comma-separated flag value, dropping blanks.
func splitList(s string) []string {
	var out []string
	for part := range strings.SplitSeq(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
