// Package testutil provides shared test utilities and helpers for integration tests.
// It starts PostgreSQL test containers and prepares SQLite fixture databases
// for the executor, runner and server tests.
package testutil

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/cybertec-postgresql/sqlconsole/pkg/types"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

const (
	// PostgresImage is the Docker image used for PostgreSQL test containers
	PostgresImage = "docker.io/postgres:16-alpine"

	// Default test database credentials
	TestDatabase = "testdb"
	TestUsername = "testuser"
	TestPassword = "testpass"
)

// SetupPostgresContainer starts a PostgreSQL container and returns a data
// source pointing at it. The container is terminated when the test ends.
// The test is skipped in -short mode.
func SetupPostgresContainer(t *testing.T) types.DataSource {
	t.Helper()

	if testing.Short() {
		t.Skip("skipping PostgreSQL container test in short mode")
	}

	ctx := context.Background()

	pgContainer, err := postgres.Run(ctx,
		PostgresImage,
		postgres.WithDatabase(TestDatabase),
		postgres.WithUsername(TestUsername),
		postgres.WithPassword(TestPassword),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	if err != nil {
		t.Fatalf("Failed to start PostgreSQL container: %v", err)
	}
	t.Cleanup(func() {
		if err := pgContainer.Terminate(context.Background()); err != nil {
			t.Logf("Failed to terminate container: %v", err)
		}
	})

	host, err := pgContainer.Host(ctx)
	if err != nil {
		t.Fatalf("Failed to get container host: %v", err)
	}

	port, err := pgContainer.MappedPort(ctx, "5432")
	if err != nil {
		t.Fatalf("Failed to get container port: %v", err)
	}

	return types.DataSource{
		Name: "pg",
		Kind: "postgres",
		DSN: fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
			host, port.Port(), TestUsername, TestPassword, TestDatabase),
	}
}

// SQLiteDataSource returns a data source backed by a fresh SQLite file in
// the test's temporary directory.
func SQLiteDataSource(t *testing.T, name string) types.DataSource {
	t.Helper()
	return types.DataSource{
		Name: name,
		Kind: "sqlite",
		DSN:  filepath.Join(t.TempDir(), name+".db"),
	}
}
