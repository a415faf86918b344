package iocache

import (
	"bytes"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/blackhat-astro/blackhat/internal/contract"
	"github.com/blackhat-astro/blackhat/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// resetManager clears the global manager so each test can run InitStores again.
func resetManager(t *testing.T) {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
	initOnce = sync.Once{}
	closeOnce = sync.Once{}
	Manager = &StoreManagerImpl{}
	t.Cleanup(CloseStores)
}

func TestInitStores(t *testing.T) {
	t.Run("single setup", func(t *testing.T) {
		resetManager(t)

		require.NoError(t, InitStores(schema.SQLiteBackend, "", schema.SQLiteBackend, ""))
		assert.NotNil(t, Manager.GetFitCache())
		assert.NotNil(t, Manager.GetRunStore())

		CloseStores()

		_, err := os.Stat(contract.GetCacheDBFilePath())
		assert.NoError(t, err, "cache database file should be created")
		_, err = os.Stat(contract.GetRunsDBFilePath())
		assert.NoError(t, err, "runs database file should be created")
	})

	t.Run("idempotent setup", func(t *testing.T) {
		resetManager(t)

		for range 3 {
			assert.NoError(t, InitStores(schema.SQLiteBackend, "", "", ""))
		}
		CloseStores()
		CloseStores()
	})

	t.Run("runs tracking disabled", func(t *testing.T) {
		resetManager(t)

		require.NoError(t, InitStores(schema.SQLiteBackend, ":memory:", "", ""))
		assert.NotNil(t, Manager.GetFitCache())
		assert.Nil(t, Manager.GetRunStore())
	})

	t.Run("none backends", func(t *testing.T) {
		resetManager(t)

		require.NoError(t, InitStores(schema.NoneBackend, "", schema.NoneBackend, ""))
		status, err := Manager.GetFitCache().GetStatus()
		require.NoError(t, err)
		assert.False(t, status.Connected)

		runStatus, err := Manager.GetRunStore().GetStatus()
		require.NoError(t, err)
		assert.False(t, runStatus.Connected)
	})

	t.Run("run store failure closes cache", func(t *testing.T) {
		resetManager(t)

		err := InitStores(schema.SQLiteBackend, ":memory:", schema.DatabaseBackend("redis"), "")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "run store")
		assert.Nil(t, Manager.GetFitCache())
	})
}

func TestStoreManagerConcurrency(t *testing.T) {
	resetManager(t)
	require.NoError(t, InitStores(schema.SQLiteBackend, ":memory:", schema.SQLiteBackend, ":memory:"))

	var wg sync.WaitGroup
	for i := range 10 {
		wg.Go(func() {
			key := "concurrent_" + string(rune('a'+i))
			assert.NoError(t, Manager.GetFitCache().Set(key, []byte("v"), 1, int64(i)))
			_, _, _, err := Manager.GetFitCache().Get(key)
			assert.NoError(t, err)
		})
	}
	wg.Wait()
}

func TestClearCache(t *testing.T) {
	t.Run("SQLite backend", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "cache.db")
		store, err := NewCacheStore(fitCacheTable, schema.SQLiteBackend, path)
		require.NoError(t, err)
		require.NoError(t, store.Close())

		require.NoError(t, ClearCache(schema.SQLiteBackend, path, ""))
		_, err = os.Stat(path)
		assert.True(t, os.IsNotExist(err))
	})

	t.Run("SQLite backend non-existent file", func(t *testing.T) {
		assert.NoError(t, ClearCache(schema.SQLiteBackend, filepath.Join(t.TempDir(), "missing.db"), ""))
	})

	t.Run("NoneBackend", func(t *testing.T) {
		assert.NoError(t, ClearCache(schema.NoneBackend, "", ""))
	})

	t.Run("empty dbFilePath for SQLite", func(t *testing.T) {
		assert.Error(t, ClearCache(schema.SQLiteBackend, "", ""))
	})

	t.Run("unsupported backend", func(t *testing.T) {
		assert.Error(t, ClearRuns(schema.DatabaseBackend("redis"), "", ""))
	})
}

func TestValidateTableName(t *testing.T) {
	tests := []struct {
		name      string
		tableName string
		wantErr   bool
	}{
		{"valid simple name", "fit_cache", false},
		{"valid name with numbers", "fit_cache_2", false},
		{"valid name starting with underscore", "_fit_cache", false},
		{"valid mixed case", "FitCache_123", false},
		{"empty name", "", true},
		{"starts with number", "2fit_cache", true},
		{"contains dash", "fit-cache", true},
		{"contains space", "fit cache", true},
		{"contains dot", "fit.cache", true},
		{"sql injection attempt", "fit'; DROP TABLE users; --", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateTableName(tt.tableName)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestBackendHelpers(t *testing.T) {
	tests := []struct {
		backend     schema.DatabaseBackend
		quoted      string
		placeholder string
	}{
		{schema.SQLiteBackend, `"fit_cache"`, "?"},
		{schema.MySQLBackend, "`fit_cache`", "?"},
		{schema.PostgreSQLBackend, `"fit_cache"`, "$3"},
		{schema.NoneBackend, `"fit_cache"`, "?"},
	}

	for _, tt := range tests {
		t.Run(string(tt.backend), func(t *testing.T) {
			assert.Equal(t, tt.quoted, quoteTableName("fit_cache", tt.backend))
			assert.Equal(t, tt.placeholder, placeholder(tt.backend, 3))
		})
	}
}

func TestFormatTime(t *testing.T) {
	ts := time.Date(2024, 5, 6, 7, 8, 9, 120000000, time.FixedZone("X", 3600))

	sqlite := formatTime(ts, schema.SQLiteBackend)
	assert.Equal(t, "2024-05-06T06:08:09.120000000Z", sqlite)
	parsed, err := parseTime(sqlite.(string))
	require.NoError(t, err)
	assert.True(t, ts.Equal(parsed))

	assert.Equal(t, ts, formatTime(ts, schema.PostgreSQLBackend))
}

func TestPrintStatus(t *testing.T) {
	var buf bytes.Buffer
	PrintCacheStatus(&buf, schema.CacheStatus{Backend: "none"})
	assert.Contains(t, buf.String(), "Cache Backend: none")
	assert.NotContains(t, buf.String(), "Total Entries")

	buf.Reset()
	PrintRunStatus(&buf, schema.RunStatus{
		Backend:      "sqlite",
		Connected:    true,
		TotalRuns:    3,
		FailedRuns:   1,
		LastRunID:    "abc",
		TotalSources: 2,
		TableSizes:   map[string]int64{fitRunsTable: 3, passbandStatsTable: 6},
	})
	out := buf.String()
	assert.Contains(t, out, "Failed Runs: 1")
	assert.Contains(t, out, "Last Run ID: abc")
	assert.Contains(t, out, "Total Sources Fitted: 2")
	assert.Less(t, bytes.Index(buf.Bytes(), []byte(fitRunsTable)), bytes.Index(buf.Bytes(), []byte(passbandStatsTable)))
}
