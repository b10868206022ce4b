package postgres_test

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"
	"github.com/tendant/node-rest-api/pkg/noderest/repo/postgres"
	"github.com/tendant/node-rest-api/pkg/noderest/repo/repotest"
)

// newTestRepository connects to TEST_DATABASE_URL and migrates a fresh schema.
func newTestRepository(t *testing.T) repotest.Store {
	t.Helper()

	connString := os.Getenv("TEST_DATABASE_URL")
	if connString == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	ctx := context.Background()
	schema := fmt.Sprintf("noderest_test_%d", time.Now().UnixNano())

	cfg, err := pgxpool.ParseConfig(connString)
	require.NoError(t, err)
	cfg.ConnConfig.RuntimeParams["search_path"] = schema

	admin, err := pgxpool.New(ctx, connString)
	require.NoError(t, err, "Failed to connect to test database")
	_, err = admin.Exec(ctx, "CREATE SCHEMA "+schema)
	require.NoError(t, err)

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	require.NoError(t, err)
	require.NoError(t, pool.Ping(ctx), "Failed to ping test database")

	t.Cleanup(func() {
		pool.Close()
		_, _ = admin.Exec(context.Background(), "DROP SCHEMA "+schema+" CASCADE")
		admin.Close()
	})

	repo := postgres.NewWithPool(pool)
	require.NoError(t, repo.Migrate(ctx))
	return repo
}

func TestPostgresRepository_Conformance(t *testing.T) {
	repotest.Run(t, newTestRepository)
}

func TestPostgresRepository_MigrateIsIdempotent(t *testing.T) {
	repo := newTestRepository(t).(*postgres.Repository)
	require.NoError(t, repo.Migrate(context.Background()))
}
