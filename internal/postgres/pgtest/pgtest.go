//go:build integration

// Package pgtest gives integration tests a Postgres pool on a throwaway
// schema. Set POSTGRES_TEST_DSN and run with -tags integration.
package pgtest

import (
	"context"
	"net/url"
	"os"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"

	"github.com/ariefcatur/go-bar-pos/internal/postgres"
)

const EnvDSN = "POSTGRES_TEST_DSN"

// Pool connects to a fresh schema with the POS tables applied. The schema is
// dropped when the test ends. Skips the test when EnvDSN is unset.
func Pool(t *testing.T) *pgxpool.Pool {
	t.Helper()
	dsn := os.Getenv(EnvDSN)
	if dsn == "" {
		t.Skipf("%s not set", EnvDSN)
	}
	ctx := context.Background()

	admin, err := postgres.Connect(ctx, dsn)
	require.NoError(t, err)
	schema := "pos_test_" + strings.ReplaceAll(uuid.NewString(), "-", "")
	_, err = admin.Exec(ctx, "CREATE SCHEMA "+schema)
	require.NoError(t, err)
	t.Cleanup(func() {
		_, _ = admin.Exec(context.Background(), "DROP SCHEMA "+schema+" CASCADE")
		admin.Close()
	})

	pool, err := postgres.Connect(ctx, withSearchPath(t, dsn, schema))
	require.NoError(t, err)
	t.Cleanup(pool.Close)
	require.NoError(t, postgres.EnsureSchema(ctx, pool))
	return pool
}

// withSearchPath adds search_path to a URL or keyword/value DSN.
func withSearchPath(t *testing.T, dsn, schema string) string {
	t.Helper()
	if !strings.Contains(dsn, "://") {
		return dsn + " search_path=" + schema
	}
	u, err := url.Parse(dsn)
	require.NoError(t, err)
	q := u.Query()
	q.Set("search_path", schema)
	u.RawQuery = q.Encode()
	return u.String()
}
