package cli

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/akurin/identity-server-demo/app/internal/config"
	"github.com/akurin/identity-server-demo/app/internal/infra/persistence/sqldb"
	"github.com/akurin/identity-server-demo/app/internal/infra/security"
	"github.com/akurin/identity-server-demo/app/internal/usecase/membership"
	"github.com/akurin/identity-server-demo/app/internal/usecase/seed"
)

func runSeed(ctx context.Context, cfg *config.Config, log *logrus.Logger) error {
	db, err := sqldb.Open(ctx, cfg.StoreOptions())
	if err != nil {
		return err
	}
	defer db.Close()
	log.WithField("driver", db.Driver()).Info("database opened")

	if err := sqldb.Migrate(ctx, db, log); err != nil {
		return err
	}

	if err := seed.NewSeeder(newMembership(db, cfg), log).EnsureSeedData(ctx); err != nil {
		return fmt.Errorf("seed: %w", err)
	}
	log.Info("done seeding database")
	return nil
}

func newMembership(db *sqldb.DB, cfg *config.Config) *membership.Service {
	return membership.NewService(
		sqldb.NewUserRepository(db),
		sqldb.NewUserRoleRepository(db),
		security.NewBcryptService(0),
		cfg.Password,
	)
}
