package outwriter

import (
	"encoding/csv"
	"fmt"
	"io"
	"time"

	"github.com/blackhat-astro/blackhat/internal/contract"
	"github.com/blackhat-astro/blackhat/internal/parquet"
	"github.com/blackhat-astro/blackhat/schema"
	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"
)

// PrintPredictions outputs posterior light curves in the configured format.
func PrintPredictions(preds []schema.SourcePredictions, cfg *contract.Config, duration time.Duration) error {
	fmtFloat, fmtFlux := createFormatters(cfg.Precision)

	switch cfg.Output {
	case schema.JSONOut:
		return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeJSON(w, preds)
		}, "Wrote JSON")
	case schema.CSVOut:
		return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writePredictionsCSV(w, preds, fmtFloat, fmtFlux)
		}, "Wrote CSV")
	case schema.ParquetOut:
		return writeParquetWithFile(cfg.OutputFile, func(w io.Writer) error {
			var rows []parquet.Prediction
			for _, sp := range preds {
				rows = append(rows, parquet.ConvertPredictions(sp.SourceID, sp.Predictions)...)
			}
			return parquet.WritePredictions(w, rows)
		})
	default:
		return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writePredictionsTable(w, preds, cfg, fmtFloat, fmtFlux, duration)
		}, "Wrote table")
	}
}

// writePredictionsTable prints one table per source, headed by its fitted hyperparameters.
func writePredictionsTable(w io.Writer, preds []schema.SourcePredictions, cfg *contract.Config, fmtFloat, fmtFlux func(float64) string, duration time.Duration) error {
	total := 0
	for _, sp := range preds {
		p := sp.Params
		if _, err := fmt.Fprintf(w, "✨ %s (amplitude %s, time scale %s, wavelength scale %s)\n",
			sp.SourceID, fmtFlux(p.Amplitude), fmtFloat(p.TimeLengthScale), fmtFloat(p.WavelengthLengthScale)); err != nil {
			return err
		}

		table := tablewriter.NewWriter(w)
		table.Header([]string{"Time", "Passband", "Wavelength", "Mean", "Std Dev"})
		table.Configure(func(cfg *tablewriter.Config) {
			cfg.Row.Alignment.Global = tw.AlignRight
		})

		data := make([][]string, 0, len(sp.Predictions))
		for _, pr := range sp.Predictions {
			data = append(data, []string{
				fmtFloat(pr.Time),
				pr.Passband,
				fmtFloat(pr.Wavelength),
				fmtFlux(pr.Mean),
				fmtFlux(pr.StdDev()),
			})
		}
		if err := table.Bulk(data); err != nil {
			return err
		}
		if err := table.Render(); err != nil {
			return err
		}
		total += len(sp.Predictions)
	}
	_, err := fmt.Fprintf(w, "Predicted %d points for %d sources in %v with %d workers\n", total, len(preds), duration, cfg.Workers)
	return err
}

func writePredictionsCSV(w io.Writer, preds []schema.SourcePredictions, fmtFloat, fmtFlux func(float64) string) error {
	header := []string{"source_id", "time", "passband", "wavelength", "mean", "variance", "std_dev"}
	return writeCSVWithHeader(w, header, func(cw *csv.Writer) error {
		for _, sp := range preds {
			for _, pr := range sp.Predictions {
				rec := []string{
					sp.SourceID,
					fmtFloat(pr.Time),
					pr.Passband,
					fmtFloat(pr.Wavelength),
					fmtFlux(pr.Mean),
					fmtFlux(pr.Variance),
					fmtFlux(pr.StdDev()),
				}
				if err := cw.Write(rec); err != nil {
					return err
				}
			}
		}
		return nil
	})
}
