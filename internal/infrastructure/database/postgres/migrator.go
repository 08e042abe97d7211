package postgres

import (
	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	_ "github.com/golang-migrate/migrate/v4/source/file"

	"github.com/plasmodock/plasmodock/internal/config"
	"github.com/plasmodock/plasmodock/internal/infrastructure/monitoring/logging"
	"github.com/plasmodock/plasmodock/pkg/errors"
)

// RunMigrations applies any pending schema migrations from
// cfg.MigrationPath. An up-to-date schema is not an error.
func RunMigrations(cfg config.DatabaseConfig, log logging.Logger) error {
	if cfg.MigrationPath == "" {
		log.Warn("no migration path configured, skipping migrations")
		return nil
	}

	dsn := BuildDSN(cfg)
	// golang-migrate selects the pgx/v5 driver from this scheme.
	m, err := migrate.New("file://"+cfg.MigrationPath, "pgx5://"+dsn[len("postgres://"):])
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeDatabaseError, "initializing migrator")
	}
	defer func() {
		if srcErr, dbErr := m.Close(); srcErr != nil || dbErr != nil {
			log.Warn("closing migrator", logging.Any("source_err", srcErr), logging.Any("db_err", dbErr))
		}
	}()

	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return errors.Wrap(err, errors.ErrCodeDatabaseError, "applying migrations")
	}

	version, dirty, err := m.Version()
	if err != nil && err != migrate.ErrNilVersion {
		return errors.Wrap(err, errors.ErrCodeDatabaseError, "reading migration version")
	}
	log.Info("database schema up to date",
		logging.Any("version", version),
		logging.Bool("dirty", dirty),
	)
	return nil
}
