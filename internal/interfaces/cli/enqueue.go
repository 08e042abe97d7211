package cli

import (
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/plasmodock/plasmodock/internal/infrastructure/messaging/kafka"
)

// newEnqueueCommand publishes jobs for the worker fleet instead of
// running them in the foreground.
func newEnqueueCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "enqueue",
		Short: "Publish a job to the docking queue",
	}
	cmd.AddCommand(newEnqueuePrepareCommand(), newEnqueueProcessCommand())
	return cmd
}

func newEnqueuePrepareCommand() *cobra.Command {
	opts := &prepareOptions{}

	cmd := &cobra.Command{
		Use:   "prepare",
		Short: "Enqueue a receptor preparation job",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cliCtx := getCLIContext(cmd)

			var macroID uuid.UUID
			if opts.macromoleculeID != "" {
				id, err := uuid.Parse(opts.macromoleculeID)
				if err != nil {
					return err
				}
				macroID = id
			}

			producer := kafka.NewProducer(cliCtx.Config.Kafka, cliCtx.Logger)
			defer producer.Close()

			job := kafka.ReceptorPreparationJob{
				Workdir:          opts.workdir,
				ReceptorFilename: opts.receptor,
				GridSize:         opts.gridSize,
				GridCenter:       opts.gridCenter,
				LigandFilename:   opts.ligand,
				MacromoleculeID:  macroID,
			}
			if err := producer.EnqueueReceptorPreparation(cmd.Context(), job); err != nil {
				return err
			}
			printf("preparation job enqueued for %s", opts.receptor)
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.workdir, "workdir", "", "directory holding the receptor files (required)")
	f.StringVar(&opts.receptor, "receptor", "", "receptor PDB filename, relative to workdir (required)")
	f.StringVar(&opts.gridSize, "grid-size", "", "grid size triplet, e.g. \"60,60,60\" (required)")
	f.StringVar(&opts.gridCenter, "grid-center", "", "grid center triplet; derived from the ligand when empty")
	f.StringVar(&opts.ligand, "ligand", "", "reference ligand PDB filename for a redocking trial")
	f.StringVar(&opts.macromoleculeID, "macromolecule-id", "", "catalog record to write results back to")
	cmd.MarkFlagRequired("workdir")
	cmd.MarkFlagRequired("receptor")
	cmd.MarkFlagRequired("grid-size")

	return cmd
}

func newEnqueueProcessCommand() *cobra.Command {
	var processID string

	cmd := &cobra.Command{
		Use:   "process",
		Short: "Enqueue a batch docking process job",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cliCtx := getCLIContext(cmd)

			id, err := uuid.Parse(processID)
			if err != nil {
				return err
			}

			producer := kafka.NewProducer(cliCtx.Config.Kafka, cliCtx.Logger)
			defer producer.Close()

			if err := producer.EnqueueBatchProcess(cmd.Context(), kafka.BatchProcessJob{ProcessID: id}); err != nil {
				return err
			}
			printf("process job enqueued for %s", id)
			return nil
		},
	}

	cmd.Flags().StringVar(&processID, "process-id", "", "process record to run (required)")
	cmd.MarkFlagRequired("process-id")
	return cmd
}
