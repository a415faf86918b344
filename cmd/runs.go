package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/blackhat-astro/blackhat/internal/contract"
	"github.com/blackhat-astro/blackhat/internal/iocache"
	"github.com/blackhat-astro/blackhat/schema"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// runsBackendFromViper reads and validates the run store settings.
func runsBackendFromViper() (schema.DatabaseBackend, string, error) {
	if err := loadConfigFile(); err != nil {
		return "", "", err
	}

	backendStr := viper.GetString("runs-backend")
	connStr := viper.GetString("runs-db-connect")

	// Handle empty backend as NoneBackend
	backend := schema.NoneBackend
	if backendStr != "" {
		backend = schema.DatabaseBackend(backendStr)
	}
	if err := contract.ValidateDatabaseConnectionString(backend, connStr); err != nil {
		return "", "", err
	}
	return backend, connStr, nil
}

// runsSetup loads minimal configuration needed for run store operations.
func runsSetup() error {
	backend, connStr, err := runsBackendFromViper()
	if err != nil {
		return err
	}

	// No fit cache for runs commands
	if err := iocache.InitStores("", "", backend, connStr); err != nil {
		return fmt.Errorf("failed to initialize run store: %w", err)
	}

	cfg.RunsBackend = backend
	cfg.RunsDBConnect = connStr
	cfg.OutputFile = viper.GetString("output-file")
	return nil
}

// runsSetupWrapper wraps runsSetup to provide PreRunE for runs commands.
func runsSetupWrapper(_ *cobra.Command, _ []string) error {
	return runsSetup()
}

// runsMigrateSetup loads the run store settings without opening the store,
// so migrations can run on a fresh database.
func runsMigrateSetup(_ *cobra.Command, _ []string) error {
	backend, connStr, err := runsBackendFromViper()
	if err != nil {
		return err
	}
	if backend == schema.SQLiteBackend && connStr == "" {
		connStr = contract.GetRunsDBFilePath()
	}
	cfg.RunsBackend = backend
	cfg.RunsDBConnect = connStr
	return nil
}

// runsCmd focused on fit run history.
//
// Note: Runs subcommands use minimal initialization (runsSetup) instead of
// the full sharedSetup used by fit commands.
var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "Manage fit run tracking and exports",
	Long: `Manage the history of fit runs.

When --runs-backend is set, every fit records:
- Run metadata (source, timestamps, fit settings, status)
- Fitted hyperparameters and log likelihood
- Per-passband observation counts and central wavelengths

Supported backends: SQLite, MySQL, PostgreSQL, or None (disabled, default)

Subcommands:
  status  - Show run tracking statistics
  export  - Export runs to Parquet for analytics
  clear   - Remove all run history
  migrate - Run database schema migrations

Examples:
  # Check tracking status
  blackhat runs status --runs-backend sqlite

  # Export for analysis in pandas/DuckDB
  blackhat runs export --runs-backend sqlite --output-file runs`,
}

// runsClearCmd clears the run history.
var runsClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove all fit run history",
	Long: `Delete all stored fit runs and passband statistics.

WARNING: This action cannot be undone. Consider exporting data first.

Examples:
  blackhat runs export --runs-backend sqlite --output-file backup
  blackhat runs clear --runs-backend sqlite`,
	PreRunE: runsSetupWrapper,
	Run: func(_ *cobra.Command, _ []string) {
		iocache.CloseStores()
		if err := iocache.ClearRuns(cfg.RunsBackend, runsDBPath(), cfg.RunsDBConnect); err != nil {
			contract.LogFatal("Failed to clear run history", err)
		}
		fmt.Println("Run history cleared successfully.")
	},
}

// runsStatusCmd shows run store status.
var runsStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Display run tracking statistics and connection details",
	Long: `Show detailed information about fit run tracking.

Displays:
- Backend type and connection status
- Total and failed runs
- Last and oldest run timestamps
- Number of distinct sources fitted
- Table sizes

Examples:
  blackhat runs status --runs-backend sqlite`,
	PreRunE: runsSetupWrapper,
	Run: func(_ *cobra.Command, _ []string) {
		store := iocache.Manager.GetRunStore()
		if store == nil {
			contract.LogFatal("Failed to get run status", errors.New("run tracking is disabled; set --runs-backend"))
		}
		status, err := store.GetStatus()
		if err != nil {
			contract.LogFatal("Failed to get run status", err)
		}
		iocache.PrintRunStatus(os.Stdout, status)
	},
}

// runsExportCmd exports run history to Parquet files.
var runsExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export fit runs to Parquet for BI tools and analytics",
	Long: `Export all stored fit runs to Parquet format.

Exports two datasets:
- Fit runs - one row per fit with hyperparameters and status
- Passband statistics - observation counts and wavelengths per run

Requires: --output-file parameter, used as the prefix of both files

Examples:
  blackhat runs export --runs-backend sqlite --output-file runs
  duckdb -c "SELECT * FROM read_parquet('runs.fit_runs.parquet') LIMIT 10"`,
	PreRunE: runsSetupWrapper,
	Run: func(_ *cobra.Command, _ []string) {
		if err := iocache.ExecuteRunsExport(os.Stdout, iocache.Manager.GetRunStore(), cfg.OutputFile); err != nil {
			contract.LogFatal("Failed to export run history", err)
		}
	},
}

// runsMigrateCmd runs database migrations for the run store.
var runsMigrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Run database schema migrations (upgrades/downgrades)",
	Long: `Manage database schema versions for the run store.

By default, migrates to the latest version. Use --target-version for specific versions.

Examples:
  # Migrate to latest version (default)
  blackhat runs migrate --runs-backend sqlite

  # Rollback to initial state
  blackhat runs migrate --runs-backend sqlite --target-version 0`,
	PreRunE: runsMigrateSetup,
	Run: func(_ *cobra.Command, _ []string) {
		targetVersion := viper.GetInt("target-version")
		if err := iocache.MigrateRuns(cfg.RunsBackend, cfg.RunsDBConnect, targetVersion); err != nil {
			contract.LogFatal("Failed to run migrations", err)
		}
	},
}

// runsDBPath resolves the SQLite file for the run store.
func runsDBPath() string {
	if cfg.RunsDBConnect != "" {
		return cfg.RunsDBConnect
	}
	return contract.GetRunsDBFilePath()
}
