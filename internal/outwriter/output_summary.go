package outwriter

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/blackhat-astro/blackhat/internal/contract"
	"github.com/blackhat-astro/blackhat/internal/parquet"
	"github.com/blackhat-astro/blackhat/schema"
	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"
)

// PrintSummaries outputs the passband summary of every source in the configured format.
func PrintSummaries(summaries []schema.SourceSummary, cfg *contract.Config) error {
	fmtFloat, _ := createFormatters(cfg.Precision)

	switch cfg.Output {
	case schema.JSONOut:
		return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeJSON(w, summaries)
		}, "Wrote JSON")
	case schema.CSVOut:
		return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeSummariesCSV(w, summaries, fmtFloat)
		}, "Wrote CSV")
	case schema.ParquetOut:
		return writeParquetWithFile(cfg.OutputFile, func(w io.Writer) error {
			return parquet.WriteSourcePassbands(w, parquet.ConvertSummaries(summaries))
		})
	default:
		return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeSummariesTable(w, summaries, cfg, fmtFloat)
		}, "Wrote table")
	}
}

// writeSummariesTable renders one row per (source, passband).
func writeSummariesTable(w io.Writer, summaries []schema.SourceSummary, cfg *contract.Config, fmtFloat func(float64) string) error {
	table := tablewriter.NewWriter(w)
	table.Header([]string{"Source", "Passband", "NObs", "Wavelength", "Color", "Marker"})
	table.Configure(func(cfg *tablewriter.Config) {
		cfg.Row.Alignment.Global = tw.AlignRight
	})

	labelWidth := getMaxTableLabelWidth(cfg, 50)
	var data [][]string
	totalObs := 0
	for _, s := range summaries {
		for _, p := range s.Passbands {
			band := p.Passband
			if cfg.UseColors {
				band = contract.GetColorPassband(p.Passband, p.Color)
			}
			data = append(data, []string{
				contract.TruncateLabel(s.SourceID, labelWidth),
				band,
				strconv.Itoa(p.NObs),
				fmtFloat(p.WavelengthCenter),
				p.Color,
				p.Marker,
			})
			totalObs += p.NObs
		}
	}

	if err := table.Bulk(data); err != nil {
		return err
	}
	if err := table.Render(); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "Summarized %d sources (%d passbands, %d observations with flux)\n", len(summaries), len(data), totalObs)
	return err
}

func writeSummariesCSV(w io.Writer, summaries []schema.SourceSummary, fmtFloat func(float64) string) error {
	header := []string{"source_id", "passband", "nobs", "wavelength_center", "color", "marker"}
	return writeCSVWithHeader(w, header, func(cw *csv.Writer) error {
		for _, s := range summaries {
			for _, p := range s.Passbands {
				rec := []string{
					s.SourceID,
					p.Passband,
					strconv.Itoa(p.NObs),
					fmtFloat(p.WavelengthCenter),
					p.Color,
					p.Marker,
				}
				if err := cw.Write(rec); err != nil {
					return err
				}
			}
		}
		return nil
	})
}
