package obsio

import (
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/blackhat-astro/blackhat/internal/parquet"
	"github.com/blackhat-astro/blackhat/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleCSV = `time,passband,flux,flux_error,telescope
0.0,g,10.5,0.2,BG2
1.5,r,11.0,0.3,BG2
3.0,g,,0.2,BG3
4.5,r,nan,0.3,BG3
`

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestReadCSV(t *testing.T) {
	obs, err := ReadCSV(strings.NewReader(sampleCSV))
	require.NoError(t, err)
	require.Len(t, obs, 4)

	assert.Equal(t, schema.Observation{Time: 0, Passband: "g", Flux: 10.5, FluxError: 0.2}, obs[0])
	assert.Equal(t, "r", obs[1].Passband)
	assert.False(t, obs[2].HasFlux(), "empty flux is missing")
	assert.False(t, obs[3].HasFlux(), "nan flux is missing")
	assert.Equal(t, 0.3, obs[3].FluxError)
}

func TestReadCSVHeaderVariants(t *testing.T) {
	obs, err := ReadCSV(strings.NewReader("Flux_Error, Passband ,FLUX,Time\n0.1,i,5,2.5\n"))
	require.NoError(t, err)
	require.Len(t, obs, 1)
	assert.Equal(t, schema.Observation{Time: 2.5, Passband: "i", Flux: 5, FluxError: 0.1}, obs[0])
}

func TestReadCSVErrors(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr error
	}{
		{"empty file", "", ErrMissingColumn},
		{"missing flux_error column", "time,passband,flux\n1,g,2\n", ErrMissingColumn},
		{"bad time", "time,passband,flux,flux_error\nnow,g,1,0.1\n", ErrMalformedRow},
		{"bad flux", "time,passband,flux,flux_error\n1,g,bright,0.1\n", ErrMalformedRow},
		{"missing flux error value", "time,passband,flux,flux_error\n1,g,1,\n", ErrMalformedRow},
		{"empty passband", "time,passband,flux,flux_error\n1,,1,0.1\n", ErrMalformedRow},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ReadCSV(strings.NewReader(tt.input))
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}

	t.Run("ragged row", func(t *testing.T) {
		_, err := ReadCSV(strings.NewReader("time,passband,flux,flux_error\n1,g,1\n"))
		assert.Error(t, err)
	})
}

func TestReadObservationsByExtension(t *testing.T) {
	dir := t.TempDir()

	csvPath := writeFile(t, dir, "lc.CSV", sampleCSV)
	obs, err := ReadObservations(csvPath)
	require.NoError(t, err)
	assert.Len(t, obs, 4)

	parquetPath := filepath.Join(dir, "lc.parquet")
	require.NoError(t, parquet.WriteObservations(obs, parquetPath))
	fromParquet, err := ReadObservations(parquetPath)
	require.NoError(t, err)
	require.Len(t, fromParquet, 4)
	assert.Equal(t, obs[0], fromParquet[0])
	assert.True(t, math.IsNaN(fromParquet[2].Flux))

	_, err = ReadObservations(writeFile(t, dir, "lc.txt", sampleCSV))
	assert.ErrorIs(t, err, ErrUnsupportedFormat)

	_, err = ReadObservations(filepath.Join(dir, "missing.csv"))
	assert.Error(t, err)
}

func TestLoadWithSidecar(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "ZTF21abc.csv", sampleCSV)
	writeFile(t, dir, "ZTF21abc.source.yaml", `id: SN2021xyz
metadata:
  ra: 150.1
  dec: -2.2
telescope_metadata:
  site: La Silla
class_probabilities:
  SNIa: 0.8
  SNII: 0.2
`)

	lc, err := Load(path, "")
	require.NoError(t, err)
	assert.Equal(t, path, lc.Path)
	assert.Equal(t, "SN2021xyz", lc.Meta.ID)
	assert.Equal(t, 150.1, lc.Meta.Metadata["ra"])
	assert.Equal(t, "La Silla", lc.Meta.TelescopeMetadata["site"])
	assert.Equal(t, 0.8, lc.Meta.ClassProbabilities["SNIa"])
	assert.Len(t, lc.Observations, 4)
}

func TestLoadWithoutMetadata(t *testing.T) {
	path := writeFile(t, t.TempDir(), "ZTF21abc.csv", sampleCSV)

	lc, err := Load(path, "")
	require.NoError(t, err)
	assert.Equal(t, "ZTF21abc", lc.Meta.ID)
	assert.Nil(t, lc.Meta.Metadata)
}

func TestLoadExplicitMetadata(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "lc.csv", sampleCSV)
	metaPath := filepath.Join(dir, "meta.yaml")
	require.NoError(t, WriteSourceMeta(metaPath, SourceMeta{Metadata: map[string]any{"z": 0.05}}))

	lc, err := Load(path, metaPath)
	require.NoError(t, err)
	assert.Equal(t, "lc", lc.Meta.ID, "id falls back to the file name")
	assert.Equal(t, 0.05, lc.Meta.Metadata["z"])

	_, err = Load(path, filepath.Join(dir, "absent.yaml"))
	assert.Error(t, err)

	_, err = Load(path, writeFile(t, dir, "broken.yaml", "metadata: [unclosed"))
	assert.Error(t, err)
}

func TestSidecarPath(t *testing.T) {
	assert.Equal(t, filepath.Join("data", "sn.source.yaml"), SidecarPath(filepath.Join("data", "sn.csv")))
	assert.Equal(t, "sn.source.yaml", SidecarPath("sn.parquet"))
}
