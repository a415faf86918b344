// Package cmd defines the command-line interface for blackhat.
package cmd

import (
	"github.com/blackhat-astro/blackhat/internal/contract"
	"github.com/blackhat-astro/blackhat/schema"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func init() {
	// Call initConfig on Cobra's initialization
	cobra.OnInitialize(initConfig)

	// Add primary subcommands to the root command
	rootCmd.AddCommand(passbandsCmd)
	rootCmd.AddCommand(summaryCmd)
	rootCmd.AddCommand(fitCmd)
	rootCmd.AddCommand(predictCmd)
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(cacheCmd)
	rootCmd.AddCommand(runsCmd)
	rootCmd.AddCommand(mcpCmd)

	// Add the passbands subcommands to the parent passbands command
	passbandsCmd.AddCommand(passbandsListCmd)
	passbandsCmd.AddCommand(passbandsInitCmd)

	// Add the cache subcommands to the parent cache command
	cacheCmd.AddCommand(cacheClearCmd)
	cacheCmd.AddCommand(cacheStatusCmd)

	// Add the runs subcommands to the parent runs command
	runsCmd.AddCommand(runsClearCmd)
	runsCmd.AddCommand(runsStatusCmd)
	runsCmd.AddCommand(runsExportCmd)
	runsCmd.AddCommand(runsMigrateCmd)

	// Bind all persistent flags of rootCmd to Viper
	rootCmd.PersistentFlags().String("passbands", "", "Path to a YAML passband registry (default: built-in registry)")
	rootCmd.PersistentFlags().String("source-meta", "", "Path to a YAML source metadata file for a single input")
	rootCmd.PersistentFlags().String("method", string(schema.MeanMethod), "Central wavelength method: mean or weighted or effective")
	rootCmd.PersistentFlags().String("kernel-combine", string(schema.MultiplicativeCombine), "Kernel combination: multiplicative or additive")
	rootCmd.PersistentFlags().String("mean-function", string(schema.BiweightMean), "Mean function: biweight or zero")
	rootCmd.PersistentFlags().Int("workers", contract.DefaultWorkers, "Number of concurrent workers")
	rootCmd.PersistentFlags().Int("precision", contract.DefaultPrecision, "Decimal precision for numeric columns")
	rootCmd.PersistentFlags().String("output", string(schema.TextOut), "Output format: text or csv or json or parquet")
	rootCmd.PersistentFlags().String("output-file", "", "Optional path to write output to")
	rootCmd.PersistentFlags().Int("width", 0, "Terminal width override (0 = auto-detect)")
	rootCmd.PersistentFlags().String("color", "yes", "Enable colored labels in output (yes/no/true/false/1/0)")
	rootCmd.PersistentFlags().String("cache-backend", string(schema.SQLiteBackend), "Fit cache backend: sqlite or mysql or postgresql or none")
	rootCmd.PersistentFlags().String("cache-db-connect", "", "Database connection string for mysql/postgresql (e.g., user:pass@tcp(host:port)/dbname)")
	rootCmd.PersistentFlags().String("runs-backend", "", "Run tracking backend: sqlite or mysql or postgresql or none")
	rootCmd.PersistentFlags().String("runs-db-connect", "", "Database connection string for run tracking (must differ from cache-db-connect)")
	rootCmd.PersistentFlags().String("profile", "", "Enable profiling and write profiles to files with this prefix")
	rootCmd.PersistentFlags().String("config", "", "Path to config file")
	if err := viper.BindPFlags(rootCmd.PersistentFlags()); err != nil {
		contract.LogFatal("Error binding root flags", err)
	}

	// Fit and predict share the hyperparameter and optimizer flags; they are bound
	// to Viper in validateConfig for whichever command runs.
	addFitFlags(fitCmd)
	addFitFlags(predictCmd)

	predictCmd.Flags().String("passband", "", "Comma-separated passbands to predict (default: every observed passband)")
	predictCmd.Flags().String("start", "", "First query time (default: first observation)")
	predictCmd.Flags().String("end", "", "Last query time (default: last observation)")
	predictCmd.Flags().Int("points", contract.DefaultPredictPoints, "Number of evenly spaced query times")
	predictCmd.Flags().String("times", "", "Comma-separated query times, overrides the grid")

	passbandsInitCmd.Flags().Bool("force", false, "Overwrite an existing registry file")

	// Bind all flags of runsMigrateCmd to Viper
	runsMigrateCmd.Flags().Int("target-version", -1, "Target migration version (-1 means latest, 0 means rollback to initial state)")
	if err := viper.BindPFlags(runsMigrateCmd.Flags()); err != nil {
		contract.LogFatal("Error binding runs migrate flags", err)
	}
}

func addFitFlags(c *cobra.Command) {
	c.Flags().Float64("amplitude", 0, "Initial kernel amplitude (0 = derive from the flux variance)")
	c.Flags().Float64("time-scale", contract.DefaultTimeScale, "Initial time length scale in days")
	c.Flags().Float64("wavelength-scale", contract.DefaultWavelengthScale, "Initial wavelength length scale in Angstrom")
	c.Flags().Int("max-iterations", contract.DefaultMaxIterations, "Optimizer iteration limit per fit")
	c.Flags().Int("max-evaluations", contract.DefaultMaxEvaluations, "Optimizer likelihood evaluation limit per fit")
	c.Flags().String("fit-timeout", contract.DefaultFitTimeout.String(), "Wall-clock limit per fit")
	c.Flags().Bool("replace", false, "Refit sources that already have a conditioned process")
}
