// Package testutil opens a migrated Postgres pool for the contract suites.
package testutil

import (
	"context"
	"os"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"

	postgres "github.com/coregym/member-card-api/internal/adapters/postgres"
)

// DatabaseURLEnv names the variable holding the test database. Suites skip when it is unset.
const DatabaseURLEnv = "DATABASE_URL"

// OpenMigratedPool connects to the test database and applies the schema. Suites use fresh
// ids per run instead of truncating, so packages can share one database. The pool is closed
// when the test ends.
func OpenMigratedPool(t *testing.T) *pgxpool.Pool {
	t.Helper()

	url := os.Getenv(DatabaseURLEnv)
	if url == "" {
		t.Skipf("%s not set; skipping postgres tests", DatabaseURLEnv)
	}
	ctx := context.Background()
	pool, err := postgres.NewPool(ctx, url, postgres.PoolOptions{MaxConns: 4})
	if err != nil {
		t.Fatalf("open pool: %v", err)
	}
	t.Cleanup(pool.Close)

	if err := postgres.Migrate(ctx, pool); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return pool
}
