package cli

import (
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"

	"github.com/plasmodock/plasmodock/internal/config"
	"github.com/plasmodock/plasmodock/internal/infrastructure/database/postgres"
	"github.com/plasmodock/plasmodock/internal/infrastructure/database/postgres/repositories"
	"github.com/plasmodock/plasmodock/internal/infrastructure/monitoring/logging"
)

func openPool(cmd *cobra.Command, cfg *config.Config, logger logging.Logger) (*pgxpool.Pool, error) {
	return postgres.NewPool(cmd.Context(), cfg.Database, logger)
}

func openMacromoleculeRepo(cmd *cobra.Command, cfg *config.Config, logger logging.Logger) (*pgxpool.Pool, *repositories.MacromoleculeRepository, error) {
	pool, err := openPool(cmd, cfg, logger)
	if err != nil {
		return nil, nil, err
	}
	return pool, repositories.NewMacromoleculeRepository(pool, logger), nil
}
