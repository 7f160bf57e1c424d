package testutil

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/roach88/lldsync/internal/store"
)

// PostgresImage is the image used for integration tests.
const PostgresImage = "postgres:16-alpine"

var (
	pgOnce sync.Once
	pgDSN  string
	pgErr  error
)

// PostgresDSN returns the DSN of a PostgreSQL container shared by every
// test in the run. The test is skipped in -short mode or when no
// container runtime is available.
func PostgresDSN(t *testing.T) string {
	t.Helper()

	if testing.Short() {
		t.Skip("Skipping integration test in short mode (requires Docker)")
	}

	pgOnce.Do(func() {
		pgDSN, pgErr = startPostgres(context.Background())
	})
	if pgErr != nil {
		t.Skipf("PostgreSQL container unavailable: %v", pgErr)
	}
	return pgDSN
}

func startPostgres(ctx context.Context) (string, error) {
	req := testcontainers.ContainerRequest{
		Image:        PostgresImage,
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_DB":       "lldsync",
			"POSTGRES_USER":     "lldsync",
			"POSTGRES_PASSWORD": "lldsync",
		},
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).
			WithStartupTimeout(60 * time.Second),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		return "", fmt.Errorf("failed to start container: %w", err)
	}

	host, err := container.Host(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to get container host: %w", err)
	}

	port, err := container.MappedPort(ctx, "5432")
	if err != nil {
		return "", fmt.Errorf("failed to get container port: %w", err)
	}

	return fmt.Sprintf("postgres://lldsync:lldsync@%s:%s/lldsync?sslmode=disable", host, port.Port()), nil
}

// OpenPostgresStore opens a store on a freshly emptied public schema of
// the shared container.
func OpenPostgresStore(t *testing.T, opts ...store.Option) *store.Store {
	t.Helper()
	dsn := PostgresDSN(t)
	ctx := context.Background()

	db, err := sql.Open("pgx", dsn)
	if err != nil {
		t.Fatalf("open postgres: %v", err)
	}
	defer db.Close()
	if _, err := db.ExecContext(ctx, "DROP SCHEMA public CASCADE"); err != nil {
		t.Fatalf("drop schema: %v", err)
	}
	if _, err := db.ExecContext(ctx, "CREATE SCHEMA public"); err != nil {
		t.Fatalf("create schema: %v", err)
	}

	st, err := store.OpenPostgres(ctx, dsn, opts...)
	if err != nil {
		t.Fatalf("OpenPostgres() failed: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	return st
}
