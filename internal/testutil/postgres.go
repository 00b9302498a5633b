package testutil

import (
	"context"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/turtacn/scholar-etl/internal/config"
)

// StartPostgres launches a PostgreSQL 16 container and returns the database
// settings pointing at it. The container is terminated on test cleanup.
func StartPostgres(t *testing.T) config.DatabaseConfig {
	t.Helper()
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "postgres:16-alpine",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     "test",
			"POSTGRES_PASSWORD": "test",
			"POSTGRES_DB":       "scholar_test",
		},
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).
			WithStartupTimeout(60 * time.Second),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(ctx) })

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "5432")
	require.NoError(t, err)
	portNum, err := strconv.Atoi(port.Port())
	require.NoError(t, err)

	full := config.Config{Database: config.DatabaseConfig{
		Host:     host,
		Port:     portNum,
		User:     "test",
		Password: "test",
		DBName:   "scholar_test",
		SSLMode:  "disable",
	}}
	config.ApplyDefaults(&full)
	return full.Database
}

//Personal.AI order the ending
