package outwriter

import (
	"encoding/csv"
	"fmt"
	"io"
	"maps"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/blackhat-astro/blackhat/internal/contract"
	"github.com/blackhat-astro/blackhat/internal/parquet"
	"github.com/blackhat-astro/blackhat/schema"
	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"
)

// PrintFitResults outputs the fit results, dispatching based on the output format configured.
func PrintFitResults(results []schema.FitResult, cfg *contract.Config, duration time.Duration) error {
	fmtFloat, fmtFlux := createFormatters(cfg.Precision)

	switch cfg.Output {
	case schema.JSONOut:
		if err := writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeJSON(w, results)
		}, "Wrote JSON"); err != nil {
			return fmt.Errorf("error writing JSON output: %w", err)
		}
	case schema.CSVOut:
		if err := writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeFitResultsCSV(w, results, fmtFloat, fmtFlux)
		}, "Wrote CSV"); err != nil {
			return fmt.Errorf("error writing CSV output: %w", err)
		}
	case schema.ParquetOut:
		if err := writeParquetWithFile(cfg.OutputFile, func(w io.Writer) error {
			return parquet.WriteFitResults(w, parquet.ConvertFitResults(results))
		}); err != nil {
			return fmt.Errorf("error writing Parquet output: %w", err)
		}
	default:
		return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeFitResultsTable(w, results, cfg, fmtFloat, fmtFlux, duration)
		}, "Wrote table")
	}
	return nil
}

// writeFitResultsTable generates and writes the human-readable table.
func writeFitResultsTable(w io.Writer, results []schema.FitResult, cfg *contract.Config, fmtFloat, fmtFlux func(float64) string, duration time.Duration) error {
	table := tablewriter.NewWriter(w)
	table.Header([]string{"Source", "Status", "NObs", "Bands", "Amplitude", "Time Scale", "WL Scale", "Log L", "Warm"})
	table.Configure(func(cfg *tablewriter.Config) {
		cfg.Row.Alignment.Global = tw.AlignRight
	})

	labelWidth := getMaxTableLabelWidth(cfg, 95)
	var data [][]string
	var failures []schema.FitResult
	for _, r := range results {
		status := string(r.Status)
		if cfg.UseColors {
			status = contract.GetColorStatus(r.Status)
		}
		row := []string{
			contract.TruncateLabel(r.SourceID, labelWidth),
			status,
			strconv.Itoa(r.NObs),
			formatBands(r.Passbands),
		}
		if r.Failed() {
			row = append(row, "-", "-", "-", "-", "-")
			failures = append(failures, r)
		} else {
			row = append(row,
				fmtFlux(r.Params.Amplitude),
				fmtFloat(r.Params.TimeLengthScale),
				fmtFloat(r.Params.WavelengthLengthScale),
				fmtFloat(r.LogLikelihood),
				formatYesNo(r.WarmStart),
			)
		}
		data = append(data, row)
	}

	if err := table.Bulk(data); err != nil {
		return err
	}
	if err := table.Render(); err != nil {
		return err
	}
	for _, r := range failures {
		if _, err := fmt.Fprintf(w, "❌ %s: %s\n", r.SourceID, r.Err); err != nil {
			return err
		}
	}
	if _, err := fmt.Fprintf(w, "Fitted %d sources (%d failed)\n", len(results), len(failures)); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "Fit completed in %v with %d workers. Cache backend: %s\n", duration, cfg.Workers, cfg.CacheBackend)
	return err
}

func writeFitResultsCSV(w io.Writer, results []schema.FitResult, fmtFloat, fmtFlux func(float64) string) error {
	header := []string{
		"source_id",
		"status",
		"nobs",
		"passbands",
		"amplitude",
		"time_length_scale",
		"wavelength_length_scale",
		"log_likelihood",
		"warm_start",
		"duration_ms",
		"run_id",
		"error",
	}
	return writeCSVWithHeader(w, header, func(cw *csv.Writer) error {
		for _, r := range results {
			rec := []string{
				r.SourceID,
				string(r.Status),
				strconv.Itoa(r.NObs),
				strings.Join(slices.Sorted(maps.Keys(r.Passbands)), "|"),
				fmtFlux(r.Params.Amplitude),
				fmtFloat(r.Params.TimeLengthScale),
				fmtFloat(r.Params.WavelengthLengthScale),
				fmtFloat(r.LogLikelihood),
				strconv.FormatBool(r.WarmStart),
				strconv.FormatInt(r.DurationMs, 10),
				r.RunID,
				r.Err,
			}
			if err := cw.Write(rec); err != nil {
				return err
			}
		}
		return nil
	})
}

// formatBands joins the sorted passband names with commas.
func formatBands(passbands map[string]schema.PassbandInfo) string {
	if len(passbands) == 0 {
		return "-"
	}
	return strings.Join(slices.Sorted(maps.Keys(passbands)), ",")
}

func formatYesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
