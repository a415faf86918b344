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

// cacheSetup loads minimal configuration needed for cache operations.
// This is used by commands that need cache access without full shared setup.
func cacheSetup() error {
	if err := loadConfigFile(); err != nil {
		return err
	}

	backend := schema.DatabaseBackend(viper.GetString("cache-backend"))
	connStr := viper.GetString("cache-db-connect")

	if err := contract.ValidateDatabaseConnectionString(backend, connStr); err != nil {
		return err
	}

	// No run tracking for cache commands
	if err := iocache.InitStores(backend, connStr, "", ""); err != nil {
		return fmt.Errorf("failed to initialize cache: %w", err)
	}

	cfg.CacheBackend = backend
	cfg.CacheDBConnect = connStr
	return nil
}

// cacheSetupWrapper wraps cacheSetup to provide PreRunE for cache commands.
func cacheSetupWrapper(_ *cobra.Command, _ []string) error {
	return cacheSetup()
}

// cacheCmd focused on fit cache management.
//
// Note: Cache subcommands use minimal initialization (cacheSetup) instead of
// the full sharedSetup used by fit commands. No light curves are loaded and
// fit settings are not validated.
var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Manage the fit cache (warm starts for repeated fits)",
	Long: `Manage the cache of fitted hyperparameters.

Each successful fit is stored under a hash of the observations and fit
settings. Refitting the same data starts the optimizer from the stored
hyperparameters, which usually converges in a few iterations.

Supported backends: SQLite (default), MySQL, PostgreSQL, or None (disabled)

Subcommands:
  status - Show cache statistics and connection info
  clear  - Remove all cached fits

Examples:
  # Check cache status
  blackhat cache status

  # Clear cache after changing the passband registry
  blackhat cache clear`,
}

// cacheClearCmd clears the cache.
var cacheClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove all cached fits",
	Long: `Delete all cached hyperparameters from the configured backend.

For SQLite: Deletes the database file
For MySQL/PostgreSQL: Drops the cache table

Examples:
  # Clear SQLite cache (default)
  blackhat cache clear

  # Clear MySQL cache (set connection string via env variable)
  BLACKHAT_CACHE_BACKEND=mysql BLACKHAT_CACHE_DB_CONNECT="..." blackhat cache clear`,
	PreRunE: cacheSetupWrapper,
	Run: func(_ *cobra.Command, _ []string) {
		// Release the SQLite file before removing it
		iocache.CloseStores()
		if err := iocache.ClearCache(cfg.CacheBackend, cacheDBPath(), cfg.CacheDBConnect); err != nil {
			contract.LogFatal("Failed to clear cache", err)
		}
		fmt.Println("Cache cleared successfully.")
	},
}

// cacheStatusCmd shows cache status.
var cacheStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Display cache statistics and connection details",
	Long: `Show detailed information about the fit cache.

Displays:
- Backend type and connection status
- Total number of cached fits
- Last and oldest cache entry timestamps
- Cache database size

Examples:
  # Check cache status
  blackhat cache status`,
	PreRunE: cacheSetupWrapper,
	Run: func(_ *cobra.Command, _ []string) {
		store := iocache.Manager.GetFitCache()
		if store == nil {
			contract.LogFatal("Failed to get cache status", errors.New("fit cache is not configured"))
		}
		status, err := store.GetStatus()
		if err != nil {
			contract.LogFatal("Failed to get cache status", err)
		}
		iocache.PrintCacheStatus(os.Stdout, status)
	},
}

// cacheDBPath resolves the SQLite file for the fit cache.
func cacheDBPath() string {
	if cfg.CacheDBConnect != "" {
		return cfg.CacheDBConnect
	}
	return contract.GetCacheDBFilePath()
}
