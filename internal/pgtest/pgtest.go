//go:build integration

package pgtest

import (
	"context"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap/zaptest"

	"github.com/marshallshelly/pebble-ledger/internal/database"
	"github.com/marshallshelly/pebble-ledger/internal/migration"
)

// Empty starts a PostgreSQL container and returns a connection to its empty
// database. The container is terminated when the test finishes.
func Empty(t testing.TB) *database.DB {
	t.Helper()
	ctx := context.Background()

	pgContainer, err := postgres.Run(ctx,
		"postgres:alpine",
		postgres.WithDatabase("ledger"),
		postgres.WithUsername("ledger"),
		postgres.WithPassword("ledger"),
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

	connStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("Failed to get connection string: %v", err)
	}

	db, err := database.ConnectWithURL(ctx, connStr)
	if err != nil {
		t.Fatalf("Failed to connect: %v", err)
	}
	t.Cleanup(db.Close)

	return db
}

// Migrated is Empty with every embedded migration applied.
func Migrated(t testing.TB) *database.DB {
	t.Helper()

	db := Empty(t)
	if _, err := migration.Up(context.Background(), db, zaptest.NewLogger(t)); err != nil {
		t.Fatalf("Failed to migrate: %v", err)
	}
	return db
}
