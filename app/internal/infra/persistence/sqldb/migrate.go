package sqldb

import (
	"context"
	"fmt"

	"github.com/pressly/goose/v3"
	"github.com/sirupsen/logrus"

	"github.com/akurin/identity-server-demo/app/internal/infra/persistence/sqldb/migrations"
)

func (db *DB) gooseDialect() (goose.Dialect, error) {
	switch db.driver {
	case DriverSQLite:
		return goose.DialectSQLite3, nil
	case DriverMySQL:
		return goose.DialectMySQL, nil
	case DriverPostgres:
		return goose.DialectPostgres, nil
	default:
		return "", fmt.Errorf("%q: %w", db.driver, ErrUnsupportedDriver)
	}
}

// Migrate applies every pending embedded migration.
func Migrate(ctx context.Context, db *DB, log logrus.FieldLogger) error {
	dialect, err := db.gooseDialect()
	if err != nil {
		return err
	}

	provider, err := goose.NewProvider(dialect, db.DB, migrations.FS)
	if err != nil {
		return fmt.Errorf("configure goose: %w", err)
	}

	results, err := provider.Up(ctx)
	if err != nil {
		return fmt.Errorf("apply migrations: %w", err)
	}
	for _, res := range results {
		log.WithFields(logrus.Fields{
			"version":  res.Source.Version,
			"duration": res.Duration,
		}).Info("migration applied")
	}
	if len(results) == 0 {
		log.Info("schema up to date")
	}
	return nil
}
