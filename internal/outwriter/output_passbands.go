package outwriter

import (
	"encoding/csv"
	"fmt"
	"io"
	"maps"
	"slices"
	"strings"

	"github.com/blackhat-astro/blackhat/internal/contract"
	"github.com/blackhat-astro/blackhat/schema"
	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"
)

// PrintPassbands displays the passband registry. It needs no light curve.
func PrintPassbands(defs []schema.PassbandDefinition, cfg *contract.Config) error {
	fmtFloat, _ := createFormatters(cfg.Precision)
	methods := collectMethods(defs)

	switch cfg.Output {
	case schema.JSONOut:
		return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeJSON(w, defs)
		}, "Wrote JSON")
	case schema.CSVOut:
		return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writePassbandsCSV(w, defs, methods, fmtFloat)
		}, "Wrote CSV")
	case schema.ParquetOut:
		return fmt.Errorf("passband listing does not support %s output", cfg.Output)
	default:
		return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writePassbandsTable(w, defs, methods, cfg, fmtFloat)
		}, "Wrote table")
	}
}

// collectMethods returns every wavelength method used by any passband, sorted.
func collectMethods(defs []schema.PassbandDefinition) []schema.WavelengthMethod {
	seen := make(map[schema.WavelengthMethod]struct{})
	for _, d := range defs {
		for m := range d.Wavelengths {
			seen[m] = struct{}{}
		}
	}
	return slices.Sorted(maps.Keys(seen))
}

func writePassbandsTable(w io.Writer, defs []schema.PassbandDefinition, methods []schema.WavelengthMethod, cfg *contract.Config, fmtFloat func(float64) string) error {
	if _, err := fmt.Fprintf(w, "🌈 Passband Registry\n"); err != nil {
		return err
	}

	headers := []string{"Passband"}
	for _, m := range methods {
		headers = append(headers, displayMethod(m))
	}
	headers = append(headers, "Color", "Marker")

	table := tablewriter.NewWriter(w)
	table.Header(headers)
	table.Configure(func(cfg *tablewriter.Config) {
		cfg.Row.Alignment.Global = tw.AlignRight
	})

	var data [][]string
	for _, d := range defs {
		name := d.Passband
		if cfg.UseColors {
			name = contract.GetColorPassband(d.Passband, d.Color)
		}
		row := []string{name}
		row = append(row, wavelengthCells(d, methods, fmtFloat)...)
		row = append(row, d.Color, d.Marker)
		data = append(data, row)
	}
	if err := table.Bulk(data); err != nil {
		return err
	}
	if err := table.Render(); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "%d passbands, wavelengths in Angstrom\n", len(defs))
	return err
}

func writePassbandsCSV(w io.Writer, defs []schema.PassbandDefinition, methods []schema.WavelengthMethod, fmtFloat func(float64) string) error {
	header := []string{"passband"}
	for _, m := range methods {
		header = append(header, string(m))
	}
	header = append(header, "color", "marker")
	return writeCSVWithHeader(w, header, func(cw *csv.Writer) error {
		for _, d := range defs {
			rec := []string{d.Passband}
			rec = append(rec, wavelengthCells(d, methods, fmtFloat)...)
			rec = append(rec, d.Color, d.Marker)
			if err := cw.Write(rec); err != nil {
				return err
			}
		}
		return nil
	})
}

// displayMethod capitalizes a method name for a table header.
func displayMethod(m schema.WavelengthMethod) string {
	name := string(m)
	if name == "" {
		return name
	}
	return strings.ToUpper(name[:1]) + name[1:]
}

// wavelengthCells renders one cell per method, empty where the passband lacks it.
func wavelengthCells(d schema.PassbandDefinition, methods []schema.WavelengthMethod, fmtFloat func(float64) string) []string {
	cells := make([]string, len(methods))
	for i, m := range methods {
		if wl, ok := d.Wavelengths[m]; ok {
			cells[i] = fmtFloat(wl)
		}
	}
	return cells
}
