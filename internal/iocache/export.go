package iocache

import (
	"errors"
	"fmt"
	"io"

	"github.com/blackhat-astro/blackhat/internal/contract"
	"github.com/blackhat-astro/blackhat/internal/parquet"
)

// ExecuteRunsExport writes the recorded fit runs and passband statistics to two Parquet
// files named after outputFile.
func ExecuteRunsExport(w io.Writer, store contract.RunStore, outputFile string) error {
	if outputFile == "" {
		return errors.New("--output-file is required for export command")
	}
	if store == nil {
		return errors.New("run tracking is disabled; set --runs-backend to export")
	}

	status, err := store.GetStatus()
	if err != nil {
		return fmt.Errorf("failed to get run status: %w", err)
	}
	if status.TotalRuns == 0 {
		return errors.New("no fit runs found to export")
	}

	_, _ = fmt.Fprintf(w, "Exporting data from %s backend...\n", status.Backend)
	_, _ = fmt.Fprintf(w, "Total fit runs: %d\n", status.TotalRuns)
	_, _ = fmt.Fprintf(w, "Total passband records: %d\n", status.TableSizes[passbandStatsTable])

	fitRuns, err := store.GetAllFitRuns()
	if err != nil {
		return fmt.Errorf("failed to retrieve fit runs: %w", err)
	}
	passbandStats, err := store.GetAllPassbandStats()
	if err != nil {
		return fmt.Errorf("failed to retrieve passband stats: %w", err)
	}

	parquetFitRuns := parquet.ConvertFitRunRecords(fitRuns)
	parquetPassbandStats := parquet.ConvertPassbandStatRecords(passbandStats)

	fitRunsFile := outputFile + ".fit_runs.parquet"
	if err := parquet.WriteFitRunsParquet(parquetFitRuns, fitRunsFile); err != nil {
		return fmt.Errorf("failed to write fit runs: %w", err)
	}
	_, _ = fmt.Fprintf(w, "Exported %d fit runs to: %s\n", len(parquetFitRuns), fitRunsFile)

	passbandStatsFile := outputFile + ".passband_stats.parquet"
	if err := parquet.WritePassbandStatsParquet(parquetPassbandStats, passbandStatsFile); err != nil {
		return fmt.Errorf("failed to write passband stats: %w", err)
	}
	_, _ = fmt.Fprintf(w, "Exported %d passband records to: %s\n", len(parquetPassbandStats), passbandStatsFile)

	return nil
}
