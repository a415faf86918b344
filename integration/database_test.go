//go:build database

package integration

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// TestBlackhatWithMySQL tests the blackhat CLI with a MySQL backend.
func TestBlackhatWithMySQL(t *testing.T) {
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "mysql:8",
		ExposedPorts: []string{"3306/tcp"},
		Env: map[string]string{
			"MYSQL_ROOT_PASSWORD": "secret123",
			"MYSQL_DATABASE":      "blackhat",
		},
		WaitingFor: wait.ForLog("port: 3306  MySQL Community Server").WithStartupTimeout(60 * time.Second),
	}
	mysqlC, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err)
	defer func() { _ = mysqlC.Terminate(ctx) }()

	host, err := mysqlC.Host(ctx)
	require.NoError(t, err)
	port, err := mysqlC.MappedPort(ctx, "3306")
	require.NoError(t, err)

	connStr := fmt.Sprintf("root:secret123@tcp(%s:%s)/blackhat?parseTime=true", host, port.Port())
	runBackendScenario(t, "mysql", connStr)
}

// TestBlackhatWithPostgres tests the blackhat CLI with a PostgreSQL backend.
func TestBlackhatWithPostgres(t *testing.T) {
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "postgres:18-alpine",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_HOST_AUTH_METHOD": "trust",
		},
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).
			WithStartupTimeout(60 * time.Second),
	}
	pgC, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err)
	defer func() { _ = pgC.Terminate(ctx) }()

	host, err := pgC.Host(ctx)
	require.NoError(t, err)
	port, err := pgC.MappedPort(ctx, "5432")
	require.NoError(t, err)

	connStr := fmt.Sprintf("host=%s port=%s user=postgres dbname=postgres", host, port.Port())
	runBackendScenario(t, "postgresql", connStr)
}

// runBackendScenario clears both stores, fits twice and checks the cache and run history.
func runBackendScenario(t *testing.T, backend, connStr string) {
	env := []string{
		"BLACKHAT_CACHE_BACKEND=" + backend,
		"BLACKHAT_CACHE_DB_CONNECT=" + connStr,
		"BLACKHAT_RUNS_BACKEND=" + backend,
		"BLACKHAT_RUNS_DB_CONNECT=" + connStr,
		"BLACKHAT_COLOR=no",
	}

	_, err := runBlackhat(t, env, "cache", "clear")
	require.NoError(t, err)
	_, err = runBlackhat(t, env, "runs", "clear")
	require.NoError(t, err)

	_, err = runBlackhat(t, env, "fit", testCurve)
	require.NoError(t, err)

	// The second fit starts from the cached hyperparameters
	out, err := runBlackhat(t, env, "fit", testCurve, "--output", "csv")
	require.NoError(t, err)
	assert.Contains(t, out, "SN2023test")
	assert.Contains(t, out, ",true,")

	out, err = runBlackhat(t, env, "cache", "status")
	require.NoError(t, err)
	assert.Contains(t, out, "Connected: true")
	assert.Contains(t, out, "Total Entries: 1")

	out, err = runBlackhat(t, env, "runs", "status")
	require.NoError(t, err)
	assert.Contains(t, out, "Total Runs: 2")
	assert.Contains(t, out, "Failed Runs: 0")
}
