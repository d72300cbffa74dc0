// Package sqldbtest opens migrated SQLite stores for tests.
package sqldbtest

import (
	"context"
	"io"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"github.com/akurin/identity-server-demo/app/internal/infra/persistence/sqldb"
)

// DSN returns a fresh SQLite database path inside the test's temp dir.
func DSN(t testing.TB) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "identity.db")
}

// Open returns a migrated SQLite store closed at the end of the test.
func Open(t testing.TB) *sqldb.DB {
	t.Helper()

	db, err := sqldb.Open(context.Background(), sqldb.Options{
		Driver: sqldb.DriverSQLite,
		DSN:    DSN(t),
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	require.NoError(t, sqldb.Migrate(context.Background(), db, Logger()))
	return db
}

// Logger returns a logger that discards its output.
func Logger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}
