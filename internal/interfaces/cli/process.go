package cli

import (
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/plasmodock/plasmodock/internal/application/batch"
	"github.com/plasmodock/plasmodock/internal/infrastructure/database/postgres/repositories"
	"github.com/plasmodock/plasmodock/internal/infrastructure/toolexec"
)

// newProcessCommand runs one batch docking process in the foreground.
// The process record and receptor catalog are read from the database;
// results are written back the same way a worker run would.
func newProcessCommand() *cobra.Command {
	var processID string

	cmd := &cobra.Command{
		Use:   "process",
		Short: "Run a batch docking process in the foreground",
		RunE: func(cmd *cobra.Command, _ []string) error {
			id, err := uuid.Parse(processID)
			if err != nil {
				return err
			}
			return runProcess(cmd, id)
		},
	}

	cmd.Flags().StringVar(&processID, "process-id", "", "process record to run (required)")
	cmd.MarkFlagRequired("process-id")
	return cmd
}

func runProcess(cmd *cobra.Command, id uuid.UUID) error {
	cliCtx := getCLIContext(cmd)
	cfg, logger := cliCtx.Config, cliCtx.Logger

	pool, err := openPool(cmd, cfg, logger)
	if err != nil {
		return err
	}
	defer pool.Close()

	runner := toolexec.NewExecRunner(logger)
	splitter := batch.NewSplitter(cfg.Toolchain.OpenBabel, runner, cfg.Docking.SplitTimeout, logger)
	orchestrator := batch.NewOrchestrator(
		cfg.Toolchain, runner, splitter,
		repositories.NewProcessRepository(pool, logger),
		repositories.NewMacromoleculeRepository(pool, logger),
		nil, nil,
		cfg.Docking.DockingTimeout, logger,
	)

	res, err := orchestrator.Run(cmd.Context(), id)
	if err != nil {
		return err
	}

	printf("%s", res.StatusMessage)
	printf("  pairs:     %d total, %d succeeded, %d failed",
		res.Statistics.Total, res.Statistics.Succeeded, res.Statistics.Failed)
	if res.Statistics.SkippedReceptors > 0 {
		printf("  receptors: %d skipped", res.Statistics.SkippedReceptors)
	}
	printf("  elapsed:   %s", res.Elapsed.Round(time.Second))
	return nil
}
