package cli

import (
	"github.com/spf13/cobra"

	"github.com/plasmodock/plasmodock/internal/infrastructure/database/postgres"
)

func newMigrateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database schema migrations",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cliCtx := getCLIContext(cmd)
			if err := postgres.RunMigrations(cliCtx.Config.Database, cliCtx.Logger); err != nil {
				return err
			}
			printf("schema up to date")
			return nil
		},
	}
}
