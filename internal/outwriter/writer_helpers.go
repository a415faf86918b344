package outwriter

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"

	"github.com/blackhat-astro/blackhat/internal/contract"
)

// errParquetNeedsFile is returned when Parquet output would go to a terminal.
var errParquetNeedsFile = errors.New("parquet output requires --output-file")

// writeWithFile opens outputFile (stdout when empty), runs writer against it and
// reports where the output went.
func writeWithFile(outputFile string, writer func(io.Writer) error, successMsg string) error {
	file, err := contract.SelectOutputFile(outputFile)
	if err != nil {
		return err
	}
	if file != os.Stdout {
		defer func() { _ = file.Close() }()
	}

	if err := writer(file); err != nil {
		return err
	}

	if file != os.Stdout {
		fmt.Fprintf(os.Stderr, "💾 %s to %s\n", successMsg, outputFile)
	}
	return nil
}

// writeParquetWithFile is writeWithFile for binary formats, which never go to stdout.
func writeParquetWithFile(outputFile string, writer func(io.Writer) error) error {
	if outputFile == "" {
		return errParquetNeedsFile
	}
	return writeWithFile(outputFile, writer, "Wrote Parquet")
}

// writeJSON encodes data with two-space indentation.
func writeJSON(w io.Writer, data any) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(data); err != nil {
		return fmt.Errorf("failed to encode JSON: %w", err)
	}
	return nil
}

// writeCSVWithHeader writes header, then lets writeRows fill in the records.
func writeCSVWithHeader(w io.Writer, header []string, writeRows func(*csv.Writer) error) error {
	csvWriter := csv.NewWriter(w)
	defer csvWriter.Flush()

	if err := csvWriter.Write(header); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}
	return writeRows(csvWriter)
}

// createFormatters returns a fixed-point formatter for times, wavelengths and scales and a
// significant-digit formatter for fluxes, which span many orders of magnitude.
// NaN and infinities are written as "nan", "inf" and "-inf".
func createFormatters(precision int) (fmtFloat, fmtFlux func(float64) string) {
	fmtFloat = func(v float64) string {
		if s, ok := nonFinite(v); ok {
			return s
		}
		return strconv.FormatFloat(v, 'f', precision, 64)
	}
	fmtFlux = func(v float64) string {
		if s, ok := nonFinite(v); ok {
			return s
		}
		return strconv.FormatFloat(v, 'g', precision+1, 64)
	}
	return fmtFloat, fmtFlux
}

func nonFinite(v float64) (string, bool) {
	switch {
	case math.IsNaN(v):
		return "nan", true
	case math.IsInf(v, 1):
		return "inf", true
	case math.IsInf(v, -1):
		return "-inf", true
	}
	return "", false
}
