package iocache

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/blackhat-astro/blackhat/internal/contract"
	"github.com/blackhat-astro/blackhat/schema"
	"github.com/google/uuid"
)

// Table names for run tracking.
const (
	fitRunsTable       = "blackhat_fit_runs"
	passbandStatsTable = "blackhat_passband_stats"
)

// RunStoreImpl implements the RunStore interface.
type RunStoreImpl struct {
	db      *sql.DB
	backend schema.DatabaseBackend
	newID   func() string
}

var _ contract.RunStore = &RunStoreImpl{} // Compile-time check

// NewRunStore creates a new RunStore with the specified backend.
func NewRunStore(backend schema.DatabaseBackend, connStr string) (*RunStoreImpl, error) {
	if backend == schema.NoneBackend {
		// No-op store for disabled tracking
		return &RunStoreImpl{backend: backend, newID: uuid.NewString}, nil
	}

	db, err := openDB(backend, connStr, defaultRunsPath())
	if err != nil {
		return nil, fmt.Errorf("run store: %w", err)
	}

	if err := createRunTables(db, backend); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create run tables: %w", err)
	}

	return &RunStoreImpl{db: db, backend: backend, newID: uuid.NewString}, nil
}

// createRunTables creates the run tracking tables.
func createRunTables(db *sql.DB, backend schema.DatabaseBackend) error {
	tables := []struct {
		name  string
		query string
	}{
		{fitRunsTable, getCreateFitRunsQuery(backend)},
		{passbandStatsTable, getCreatePassbandStatsQuery(backend)},
	}

	for _, table := range tables {
		if _, err := db.Exec(table.query); err != nil {
			return fmt.Errorf("failed to create table %s: %w", table.name, err)
		}
	}
	return nil
}

// getCreateFitRunsQuery returns the CREATE TABLE query for blackhat_fit_runs.
func getCreateFitRunsQuery(backend schema.DatabaseBackend) string {
	quotedTableName := quoteTableName(fitRunsTable, backend)

	switch backend {
	case schema.MySQLBackend:
		return fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				run_id CHAR(36) PRIMARY KEY,
				source_id VARCHAR(255) NOT NULL,
				start_time DATETIME(6) NOT NULL,
				end_time DATETIME(6),
				run_duration_ms INT,
				n_obs INT NOT NULL DEFAULT 0,
				status VARCHAR(20) NOT NULL,
				amplitude DOUBLE,
				time_length_scale DOUBLE,
				wavelength_length_scale DOUBLE,
				log_likelihood DOUBLE,
				error_message TEXT,
				config_params TEXT
			);
		`, quotedTableName)

	case schema.PostgreSQLBackend:
		return fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				run_id UUID PRIMARY KEY,
				source_id TEXT NOT NULL,
				start_time TIMESTAMPTZ NOT NULL,
				end_time TIMESTAMPTZ,
				run_duration_ms INT,
				n_obs INT NOT NULL DEFAULT 0,
				status TEXT NOT NULL,
				amplitude DOUBLE PRECISION,
				time_length_scale DOUBLE PRECISION,
				wavelength_length_scale DOUBLE PRECISION,
				log_likelihood DOUBLE PRECISION,
				error_message TEXT,
				config_params TEXT
			);
		`, quotedTableName)

	default: // SQLite
		return fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				run_id TEXT PRIMARY KEY,
				source_id TEXT NOT NULL,
				start_time TEXT NOT NULL,
				end_time TEXT,
				run_duration_ms INTEGER,
				n_obs INTEGER NOT NULL DEFAULT 0,
				status TEXT NOT NULL,
				amplitude REAL,
				time_length_scale REAL,
				wavelength_length_scale REAL,
				log_likelihood REAL,
				error_message TEXT,
				config_params TEXT
			);
		`, quotedTableName)
	}
}

// getCreatePassbandStatsQuery returns the CREATE TABLE query for blackhat_passband_stats.
func getCreatePassbandStatsQuery(backend schema.DatabaseBackend) string {
	quotedTableName := quoteTableName(passbandStatsTable, backend)

	switch backend {
	case schema.MySQLBackend:
		return fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				run_id CHAR(36) NOT NULL,
				passband VARCHAR(64) NOT NULL,
				n_obs INT NOT NULL,
				wavelength_center DOUBLE NOT NULL,
				PRIMARY KEY (run_id, passband)
			);
		`, quotedTableName)

	case schema.PostgreSQLBackend:
		return fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				run_id UUID NOT NULL,
				passband TEXT NOT NULL,
				n_obs INT NOT NULL,
				wavelength_center DOUBLE PRECISION NOT NULL,
				PRIMARY KEY (run_id, passband)
			);
		`, quotedTableName)

	default: // SQLite
		return fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				run_id TEXT NOT NULL,
				passband TEXT NOT NULL,
				n_obs INTEGER NOT NULL,
				wavelength_center REAL NOT NULL,
				PRIMARY KEY (run_id, passband)
			);
		`, quotedTableName)
	}
}

// placeholders returns n comma-separated bind parameters starting at 1.
func (rs *RunStoreImpl) placeholders(n int) string {
	ps := make([]string, n)
	for i := range ps {
		ps[i] = placeholder(rs.backend, i+1)
	}
	return strings.Join(ps, ", ")
}

// BeginRun creates a new fit run and returns its unique ID.
func (rs *RunStoreImpl) BeginRun(sourceID string, startTime time.Time, configParams map[string]any) (string, error) {
	if rs.db == nil {
		return "", nil
	}

	configJSON, err := json.Marshal(configParams)
	if err != nil {
		return "", fmt.Errorf("failed to marshal config params: %w", err)
	}

	runID := rs.newID()
	query := fmt.Sprintf(`INSERT INTO %s (run_id, source_id, start_time, status, config_params) VALUES (%s)`,
		quoteTableName(fitRunsTable, rs.backend), rs.placeholders(5))
	if _, err := rs.db.Exec(query, runID, sourceID, formatTime(startTime, rs.backend), string(schema.FitRunning), string(configJSON)); err != nil {
		return "", fmt.Errorf("failed to insert fit run: %w", err)
	}
	return runID, nil
}

// EndRun updates the fit run with its outcome. Hyperparameters are only stored for
// runs that produced a process.
func (rs *RunStoreImpl) EndRun(runID string, endTime time.Time, status schema.FitStatus, result schema.FitResult) error {
	if rs.db == nil {
		return nil
	}

	startTime, err := rs.startTime(runID)
	if err != nil {
		return err
	}
	durationMs := endTime.Sub(startTime).Milliseconds()

	var amplitude, timeScale, wavelengthScale, logLik, errMsg any
	if status != schema.FitFailed {
		amplitude = result.Params.Amplitude
		timeScale = result.Params.TimeLengthScale
		wavelengthScale = result.Params.WavelengthLengthScale
		logLik = result.LogLikelihood
	}
	if result.Err != "" {
		errMsg = result.Err
	}

	b := func(n int) string { return placeholder(rs.backend, n) }
	query := fmt.Sprintf(`UPDATE %s SET end_time = %s, run_duration_ms = %s, n_obs = %s, status = %s,
		amplitude = %s, time_length_scale = %s, wavelength_length_scale = %s, log_likelihood = %s, error_message = %s
		WHERE run_id = %s`,
		quoteTableName(fitRunsTable, rs.backend), b(1), b(2), b(3), b(4), b(5), b(6), b(7), b(8), b(9), b(10))

	if _, err := rs.db.Exec(query, formatTime(endTime, rs.backend), durationMs, result.NObs, string(status),
		amplitude, timeScale, wavelengthScale, logLik, errMsg, runID); err != nil {
		return fmt.Errorf("failed to update fit run: %w", err)
	}
	return nil
}

// startTime reads back the start of a run to compute its duration.
func (rs *RunStoreImpl) startTime(runID string) (time.Time, error) {
	query := fmt.Sprintf(`SELECT start_time FROM %s WHERE run_id = %s`, quoteTableName(fitRunsTable, rs.backend), placeholder(rs.backend, 1))
	row := rs.db.QueryRow(query, runID)

	if rs.backend == schema.SQLiteBackend {
		var s string
		if err := row.Scan(&s); err != nil {
			return time.Time{}, fmt.Errorf("failed to get start_time for run %s: %w", runID, err)
		}
		t, err := parseTime(s)
		if err != nil {
			return time.Time{}, fmt.Errorf("failed to parse start_time: %w", err)
		}
		return t, nil
	}

	// MySQL and PostgreSQL store as native datetime
	var t time.Time
	if err := row.Scan(&t); err != nil {
		return time.Time{}, fmt.Errorf("failed to get start_time for run %s: %w", runID, err)
	}
	return t, nil
}

// RecordPassbandStats stores the per-passband summary of a run in one transaction.
func (rs *RunStoreImpl) RecordPassbandStats(runID string, stats []schema.PassbandInfo) error {
	if rs.db == nil || len(stats) == 0 {
		return nil
	}

	tx, err := rs.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	query := fmt.Sprintf(`INSERT INTO %s (run_id, passband, n_obs, wavelength_center) VALUES (%s)`,
		quoteTableName(passbandStatsTable, rs.backend), rs.placeholders(4))
	for _, s := range stats {
		if _, err := tx.Exec(query, runID, s.Passband, s.NObs, s.WavelengthCenter); err != nil {
			return fmt.Errorf("failed to insert passband stats for %s: %w", s.Passband, err)
		}
	}
	return tx.Commit()
}

// Close closes the underlying connection.
func (rs *RunStoreImpl) Close() error {
	if rs.db != nil {
		return rs.db.Close()
	}
	return nil
}

// GetStatus returns status information about the run store.
func (rs *RunStoreImpl) GetStatus() (schema.RunStatus, error) {
	status := schema.RunStatus{
		Backend:    string(rs.backend),
		Connected:  rs.db != nil,
		TableSizes: make(map[string]int64),
	}
	if rs.db == nil {
		return status, nil
	}

	runs := quoteTableName(fitRunsTable, rs.backend)

	countQuery := fmt.Sprintf("SELECT COUNT(*), COUNT(DISTINCT source_id) FROM %s", runs)
	if err := rs.db.QueryRow(countQuery).Scan(&status.TotalRuns, &status.TotalSources); err != nil {
		return status, fmt.Errorf("failed to get total runs: %w", err)
	}

	if status.TotalRuns > 0 {
		failedQuery := fmt.Sprintf("SELECT COUNT(*) FROM %s WHERE status = %s", runs, placeholder(rs.backend, 1))
		if err := rs.db.QueryRow(failedQuery, string(schema.FitFailed)).Scan(&status.FailedRuns); err != nil {
			return status, fmt.Errorf("failed to get failed runs: %w", err)
		}

		lastQuery := fmt.Sprintf("SELECT run_id, start_time FROM %s ORDER BY start_time DESC, run_id DESC LIMIT 1", runs)
		var lastID string
		lastTime, err := rs.scanTime(rs.db.QueryRow(lastQuery), &lastID)
		if err != nil {
			return status, fmt.Errorf("failed to get last run info: %w", err)
		}
		status.LastRunID = lastID
		status.LastRunTime = lastTime

		oldestQuery := fmt.Sprintf("SELECT start_time FROM %s ORDER BY start_time ASC LIMIT 1", runs)
		if status.OldestRunTime, err = rs.scanTime(rs.db.QueryRow(oldestQuery)); err != nil {
			return status, fmt.Errorf("failed to get oldest run time: %w", err)
		}
	}

	for _, table := range []string{fitRunsTable, passbandStatsTable} {
		var count int64
		query := fmt.Sprintf("SELECT COUNT(*) FROM %s", quoteTableName(table, rs.backend))
		if err := rs.db.QueryRow(query).Scan(&count); err != nil {
			return status, fmt.Errorf("failed to get count for table %s: %w", table, err)
		}
		status.TableSizes[table] = count
	}

	return status, nil
}

// scanTime scans leading columns into dest and a trailing time column, handling the
// SQLite text representation.
func (rs *RunStoreImpl) scanTime(row *sql.Row, dest ...any) (time.Time, error) {
	if rs.backend == schema.SQLiteBackend {
		var s string
		if err := row.Scan(append(dest, &s)...); err != nil {
			return time.Time{}, err
		}
		return parseTime(s)
	}
	var t time.Time
	if err := row.Scan(append(dest, &t)...); err != nil {
		return time.Time{}, err
	}
	return t, nil
}

// GetAllFitRuns retrieves all fit runs ordered by start time.
func (rs *RunStoreImpl) GetAllFitRuns() ([]schema.FitRunRecord, error) {
	if rs.db == nil {
		return nil, nil
	}

	query := fmt.Sprintf(`SELECT run_id, source_id, start_time, end_time, run_duration_ms, n_obs, status,
		amplitude, time_length_scale, wavelength_length_scale, log_likelihood, error_message, config_params
		FROM %s ORDER BY start_time, run_id`, quoteTableName(fitRunsTable, rs.backend))

	rows, err := rs.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to query fit runs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var results []schema.FitRunRecord
	for rows.Next() {
		var record schema.FitRunRecord
		rest := []any{
			&record.RunDurationMs, &record.NObs, &record.Status,
			&record.Amplitude, &record.TimeLengthScale, &record.WavelengthLengthScale, &record.LogLikelihood,
			&record.ErrorMessage, &record.ConfigParams,
		}

		switch rs.backend {
		case schema.SQLiteBackend:
			var startTimeStr string
			var endTimeStr *string
			if err := rows.Scan(append([]any{&record.RunID, &record.SourceID, &startTimeStr, &endTimeStr}, rest...)...); err != nil {
				return nil, fmt.Errorf("failed to scan fit run: %w", err)
			}
			if record.StartTime, err = parseTime(startTimeStr); err != nil {
				return nil, fmt.Errorf("failed to parse start_time: %w", err)
			}
			if endTimeStr != nil {
				endTime, err := parseTime(*endTimeStr)
				if err != nil {
					return nil, fmt.Errorf("failed to parse end_time: %w", err)
				}
				record.EndTime = &endTime
			}
		default: // MySQL and PostgreSQL
			if err := rows.Scan(append([]any{&record.RunID, &record.SourceID, &record.StartTime, &record.EndTime}, rest...)...); err != nil {
				return nil, fmt.Errorf("failed to scan fit run: %w", err)
			}
		}

		results = append(results, record)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating fit runs: %w", err)
	}
	return results, nil
}

// GetAllPassbandStats retrieves all passband statistics.
func (rs *RunStoreImpl) GetAllPassbandStats() ([]schema.PassbandStatRecord, error) {
	if rs.db == nil {
		return nil, nil
	}

	query := fmt.Sprintf(`SELECT run_id, passband, n_obs, wavelength_center FROM %s ORDER BY run_id, passband`,
		quoteTableName(passbandStatsTable, rs.backend))

	rows, err := rs.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to query passband stats: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var results []schema.PassbandStatRecord
	for rows.Next() {
		var record schema.PassbandStatRecord
		if err := rows.Scan(&record.RunID, &record.Passband, &record.NObs, &record.WavelengthCenter); err != nil {
			return nil, fmt.Errorf("failed to scan passband stats: %w", err)
		}
		results = append(results, record)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating passband stats: %w", err)
	}
	return results, nil
}
