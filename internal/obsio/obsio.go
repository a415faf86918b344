// Package obsio loads light curves and their source metadata from disk.
package obsio

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/blackhat-astro/blackhat/internal/parquet"
	"github.com/blackhat-astro/blackhat/schema"
	"gopkg.in/yaml.v3"
)

// Input errors.
var (
	ErrUnsupportedFormat = errors.New("unsupported observation file format")
	ErrMissingColumn     = errors.New("missing required column")
	ErrMalformedRow      = errors.New("malformed observation row")
)

// Required CSV columns.
const (
	timeColumn      = "time"
	passbandColumn  = "passband"
	fluxColumn      = "flux"
	fluxErrorColumn = "flux_error"
)

// sidecarSuffix names the metadata file stored next to an observation file.
const sidecarSuffix = ".source.yaml"

// SourceMeta is the opaque metadata carried alongside a light curve.
type SourceMeta struct {
	ID                 string         `yaml:"id"`
	Metadata           map[string]any `yaml:"metadata"`
	TelescopeMetadata  map[string]any `yaml:"telescope_metadata"`
	ClassProbabilities map[string]any `yaml:"class_probabilities"`
}

// LightCurve is one source's observations plus its metadata.
type LightCurve struct {
	Path         string
	Meta         SourceMeta
	Observations []schema.Observation
}

// Load reads an observation file and its metadata. metaPath overrides the sidecar lookup;
// when it is empty a "<name>.source.yaml" next to path is used if present. A source without
// an id is named after the observation file.
func Load(path, metaPath string) (LightCurve, error) {
	obs, err := ReadObservations(path)
	if err != nil {
		return LightCurve{}, err
	}

	if metaPath == "" {
		if candidate := SidecarPath(path); fileExists(candidate) {
			metaPath = candidate
		}
	}

	var meta SourceMeta
	if metaPath != "" {
		if meta, err = ReadSourceMeta(metaPath); err != nil {
			return LightCurve{}, err
		}
	}
	if meta.ID == "" {
		meta.ID = sourceIDFromPath(path)
	}

	return LightCurve{Path: path, Meta: meta, Observations: obs}, nil
}

// ReadObservations reads a light curve, choosing the reader by file extension.
func ReadObservations(path string) ([]schema.Observation, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("failed to open %s: %w", path, err)
		}
		defer func() { _ = f.Close() }()

		obs, err := ReadCSV(f)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		return obs, nil

	case ".parquet":
		return parquet.ReadObservations(path)

	default:
		return nil, fmt.Errorf("%w: %s (expected .csv or .parquet)", ErrUnsupportedFormat, path)
	}
}

// ReadCSV parses observations from CSV with a header row naming at least time, passband,
// flux and flux_error. Extra columns are ignored. An empty or "nan" flux is read as missing.
func ReadCSV(r io.Reader) ([]schema.Observation, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true
	reader.ReuseRecord = true

	header, err := reader.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("%w: empty file has no header", ErrMissingColumn)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}

	index := make(map[string]int, len(header))
	for i, name := range header {
		index[strings.ToLower(strings.TrimSpace(name))] = i
	}
	cols := make(map[string]int, 4)
	for _, name := range []string{timeColumn, passbandColumn, fluxColumn, fluxErrorColumn} {
		i, ok := index[name]
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrMissingColumn, name)
		}
		cols[name] = i
	}

	var obs []schema.Observation
	for line := 2; ; line++ {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read line %d: %w", line, err)
		}

		o, err := parseRecord(record, cols)
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: %w", ErrMalformedRow, line, err)
		}
		obs = append(obs, o)
	}
	return obs, nil
}

func parseRecord(record []string, cols map[string]int) (schema.Observation, error) {
	field := func(name string) string { return strings.TrimSpace(record[cols[name]]) }

	t, err := strconv.ParseFloat(field(timeColumn), 64)
	if err != nil {
		return schema.Observation{}, fmt.Errorf("time: %w", err)
	}
	band := field(passbandColumn)
	if band == "" {
		return schema.Observation{}, errors.New("passband is empty")
	}
	flux := math.NaN()
	if s := field(fluxColumn); s != "" {
		if flux, err = strconv.ParseFloat(s, 64); err != nil {
			return schema.Observation{}, fmt.Errorf("flux: %w", err)
		}
	}
	fluxErr, err := strconv.ParseFloat(field(fluxErrorColumn), 64)
	if err != nil {
		return schema.Observation{}, fmt.Errorf("flux_error: %w", err)
	}

	return schema.Observation{Time: t, Passband: band, Flux: flux, FluxError: fluxErr}, nil
}

// ReadSourceMeta reads a source metadata YAML file.
func ReadSourceMeta(path string) (SourceMeta, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return SourceMeta{}, fmt.Errorf("failed to read source metadata %s: %w", path, err)
	}
	var meta SourceMeta
	if err := yaml.Unmarshal(data, &meta); err != nil {
		return SourceMeta{}, fmt.Errorf("failed to parse source metadata %s: %w", path, err)
	}
	return meta, nil
}

// WriteSourceMeta writes meta as YAML to path.
func WriteSourceMeta(path string, meta SourceMeta) error {
	data, err := yaml.Marshal(meta)
	if err != nil {
		return fmt.Errorf("failed to encode source metadata: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

// SidecarPath returns the metadata file expected next to an observation file.
func SidecarPath(path string) string {
	return strings.TrimSuffix(path, filepath.Ext(path)) + sidecarSuffix
}

func sourceIDFromPath(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
