package iocache

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/blackhat-astro/blackhat/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMemoryRunStore(t *testing.T) *RunStoreImpl {
	t.Helper()
	store, err := NewRunStore(schema.SQLiteBackend, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func succeededResult() schema.FitResult {
	return schema.FitResult{
		SourceID:      "SN2023abc",
		Params:        schema.KernelParameters{Amplitude: 2.5, TimeLengthScale: 15, WavelengthLengthScale: 4800},
		LogLikelihood: -31.25,
		NObs:          18,
	}
}

func TestRunStoreLifecycle(t *testing.T) {
	store := newMemoryRunStore(t)
	start := time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)

	runID, err := store.BeginRun("SN2023abc", start, map[string]any{"method": "mean", "time_scale": 20.0})
	require.NoError(t, err)
	assert.Len(t, runID, 36)

	require.NoError(t, store.RecordPassbandStats(runID, []schema.PassbandInfo{
		{Passband: "g", NObs: 10, WavelengthCenter: 4770},
		{Passband: "r", NObs: 8, WavelengthCenter: 6231},
	}))
	require.NoError(t, store.EndRun(runID, start.Add(1500*time.Millisecond), schema.FitSucceeded, succeededResult()))

	runs, err := store.GetAllFitRuns()
	require.NoError(t, err)
	require.Len(t, runs, 1)

	run := runs[0]
	assert.Equal(t, runID, run.RunID)
	assert.Equal(t, "SN2023abc", run.SourceID)
	assert.Equal(t, string(schema.FitSucceeded), run.Status)
	assert.True(t, start.Equal(run.StartTime))
	require.NotNil(t, run.EndTime)
	require.NotNil(t, run.RunDurationMs)
	assert.Equal(t, int32(1500), *run.RunDurationMs)
	assert.Equal(t, int32(18), run.NObs)
	require.NotNil(t, run.Amplitude)
	assert.Equal(t, 2.5, *run.Amplitude)
	require.NotNil(t, run.LogLikelihood)
	assert.Equal(t, -31.25, *run.LogLikelihood)
	assert.Nil(t, run.ErrorMessage)

	require.NotNil(t, run.ConfigParams)
	var params map[string]any
	require.NoError(t, json.Unmarshal([]byte(*run.ConfigParams), &params))
	assert.Equal(t, "mean", params["method"])

	stats, err := store.GetAllPassbandStats()
	require.NoError(t, err)
	require.Len(t, stats, 2)
	assert.Equal(t, "g", stats[0].Passband)
	assert.Equal(t, int32(10), stats[0].NObs)
	assert.Equal(t, 6231.0, stats[1].WavelengthCenter)
}

func TestRunStoreFailedRun(t *testing.T) {
	store := newMemoryRunStore(t)
	start := time.Now()

	runID, err := store.BeginRun("SN2023bad", start, nil)
	require.NoError(t, err)

	result := schema.FitResult{SourceID: "SN2023bad", NObs: 2, Err: "degenerate covariance"}
	require.NoError(t, store.EndRun(runID, start.Add(time.Second), schema.FitFailed, result))

	runs, err := store.GetAllFitRuns()
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, string(schema.FitFailed), runs[0].Status)
	assert.Nil(t, runs[0].Amplitude)
	assert.Nil(t, runs[0].LogLikelihood)
	require.NotNil(t, runs[0].ErrorMessage)
	assert.Equal(t, "degenerate covariance", *runs[0].ErrorMessage)
}

func TestRunStoreEndUnknownRun(t *testing.T) {
	store := newMemoryRunStore(t)
	err := store.EndRun("missing", time.Now(), schema.FitSucceeded, succeededResult())
	assert.Error(t, err)
}

func TestRunStoreGetStatus(t *testing.T) {
	store := newMemoryRunStore(t)

	status, err := store.GetStatus()
	require.NoError(t, err)
	assert.True(t, status.Connected)
	assert.Zero(t, status.TotalRuns)

	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	sources := []string{"a", "b", "a"}
	var lastID string
	for i, src := range sources {
		runID, err := store.BeginRun(src, base.Add(time.Duration(i)*time.Hour), nil)
		require.NoError(t, err)
		lastID = runID
		outcome := schema.FitSucceeded
		if i == 1 {
			outcome = schema.FitFailed
		}
		require.NoError(t, store.EndRun(runID, base.Add(time.Duration(i)*time.Hour+time.Second), outcome, schema.FitResult{}))
	}

	status, err = store.GetStatus()
	require.NoError(t, err)
	assert.Equal(t, 3, status.TotalRuns)
	assert.Equal(t, 1, status.FailedRuns)
	assert.Equal(t, 2, status.TotalSources)
	assert.Equal(t, lastID, status.LastRunID)
	assert.True(t, base.Add(2*time.Hour).Equal(status.LastRunTime))
	assert.True(t, base.Equal(status.OldestRunTime))
	assert.Equal(t, int64(3), status.TableSizes[fitRunsTable])
	assert.Equal(t, int64(0), status.TableSizes[passbandStatsTable])
}

func TestRunStoreNoneBackend(t *testing.T) {
	store, err := NewRunStore(schema.NoneBackend, "")
	require.NoError(t, err)

	runID, err := store.BeginRun("a", time.Now(), nil)
	require.NoError(t, err)
	assert.Empty(t, runID)
	assert.NoError(t, store.EndRun(runID, time.Now(), schema.FitSucceeded, schema.FitResult{}))
	assert.NoError(t, store.RecordPassbandStats(runID, []schema.PassbandInfo{{Passband: "g"}}))

	runs, err := store.GetAllFitRuns()
	assert.NoError(t, err)
	assert.Empty(t, runs)
	assert.NoError(t, store.Close())
}

func TestRunStoreBadConfigParams(t *testing.T) {
	store := newMemoryRunStore(t)
	_, err := store.BeginRun("a", time.Now(), map[string]any{"bad": make(chan int)})
	assert.Error(t, err)
}

func TestCreateRunTableQueries(t *testing.T) {
	tests := []struct {
		backend  schema.DatabaseBackend
		contains string
	}{
		{schema.SQLiteBackend, "run_id TEXT PRIMARY KEY"},
		{schema.MySQLBackend, "run_id CHAR(36) PRIMARY KEY"},
		{schema.PostgreSQLBackend, "run_id UUID PRIMARY KEY"},
	}

	for _, tt := range tests {
		t.Run(string(tt.backend), func(t *testing.T) {
			assert.Contains(t, getCreateFitRunsQuery(tt.backend), tt.contains)
			assert.Contains(t, getCreatePassbandStatsQuery(tt.backend), "PRIMARY KEY (run_id, passband)")
		})
	}
}

func TestExecuteRunsExport(t *testing.T) {
	store := newMemoryRunStore(t)
	start := time.Now()
	runID, err := store.BeginRun("SN2023abc", start, nil)
	require.NoError(t, err)
	require.NoError(t, store.RecordPassbandStats(runID, []schema.PassbandInfo{{Passband: "g", NObs: 3, WavelengthCenter: 4770}}))
	require.NoError(t, store.EndRun(runID, start.Add(time.Second), schema.FitSucceeded, succeededResult()))

	base := filepath.Join(t.TempDir(), "export")
	var out bytes.Buffer
	require.NoError(t, ExecuteRunsExport(&out, store, base))

	assert.Contains(t, out.String(), "Exported 1 fit runs")
	assert.Contains(t, out.String(), "Exported 1 passband records")
	for _, suffix := range []string{".fit_runs.parquet", ".passband_stats.parquet"} {
		_, err := os.Stat(base + suffix)
		assert.NoError(t, err)
	}
}

func TestExecuteRunsExportErrors(t *testing.T) {
	t.Run("missing output file", func(t *testing.T) {
		assert.Error(t, ExecuteRunsExport(&bytes.Buffer{}, newMemoryRunStore(t), ""))
	})

	t.Run("tracking disabled", func(t *testing.T) {
		assert.Error(t, ExecuteRunsExport(&bytes.Buffer{}, nil, "out"))
	})

	t.Run("no runs", func(t *testing.T) {
		err := ExecuteRunsExport(&bytes.Buffer{}, newMemoryRunStore(t), "out")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "no fit runs")
	})

	t.Run("status failure", func(t *testing.T) {
		store := &MockRunStore{}
		store.On("GetStatus").Return(schema.RunStatus{}, errors.New("connection refused"))

		err := ExecuteRunsExport(&bytes.Buffer{}, store, "out")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "connection refused")
		store.AssertExpectations(t)
	})
}
