package cli

import (
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/plasmodock/plasmodock/internal/application/preparation"
	"github.com/plasmodock/plasmodock/internal/config"
	"github.com/plasmodock/plasmodock/internal/infrastructure/monitoring/logging"
	"github.com/plasmodock/plasmodock/internal/infrastructure/toolexec"
)

type prepareOptions struct {
	workdir         string
	receptor        string
	gridSize        string
	gridCenter      string
	ligand          string
	macromoleculeID string
}

// newPrepareCommand runs a receptor preparation in the foreground,
// without the queue.  Write-back to the catalog happens only when a
// macromolecule ID is given.
func newPrepareCommand() *cobra.Command {
	opts := &prepareOptions{}

	cmd := &cobra.Command{
		Use:   "prepare",
		Short: "Prepare a receptor's grid maps in the foreground",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runPrepare(cmd, opts)
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

func runPrepare(cmd *cobra.Command, opts *prepareOptions) error {
	cliCtx := getCLIContext(cmd)
	cfg, logger := cliCtx.Config, cliCtx.Logger

	var macroID uuid.UUID
	if opts.macromoleculeID != "" {
		id, err := uuid.Parse(opts.macromoleculeID)
		if err != nil {
			return err
		}
		macroID = id
	}

	job := preparation.Job{
		Workdir:          opts.workdir,
		ReceptorFilename: opts.receptor,
		GridSize:         opts.gridSize,
		GridCenter:       opts.gridCenter,
		LigandFilename:   opts.ligand,
		MacromoleculeID:  macroID,
	}

	pipeline, cleanup, err := buildPipeline(cmd, cfg, logger, macroID)
	if err != nil {
		return err
	}
	defer cleanup()

	res, err := pipeline.Prepare(cmd.Context(), job)
	if err != nil {
		return err
	}

	printf("receptor prepared")
	printf("  pdbqt:      %s", res.ReceptorPDBQT)
	printf("  field file: %s", res.FieldFile)
	printf("  search box: %s points around %s", res.Grid.SizeSpec(), res.Grid.CenterSpec())
	printf("  grids:      %d", res.GPFCount)
	if res.LigandError != "" {
		printf("  ligand:     conversion failed: %s", res.LigandError)
	}
	if res.Docking.HasPose {
		printf("  redocking:  run %d, rmsd %.2f, energy %.2f",
			res.Docking.Best.Run, res.Docking.Best.ReferenceRMSD, res.Docking.Best.BindingEnergy)
	}
	if res.RecordUpdated {
		printf("  catalog record updated")
	}
	return nil
}

// buildPipeline wires a preparation pipeline; the catalog repository is
// attached only when a write-back target exists.
func buildPipeline(cmd *cobra.Command, cfg *config.Config, logger logging.Logger, macroID uuid.UUID) (*preparation.Pipeline, func(), error) {
	runner := toolexec.NewExecRunner(logger)
	timeouts := preparation.Timeouts{
		Prepare: cfg.Docking.PrepareTimeout,
		Docking: cfg.Docking.DockingTimeout,
	}

	if macroID == uuid.Nil {
		return preparation.NewPipeline(cfg.Toolchain, runner, nil, timeouts, logger), func() {}, nil
	}

	pool, repo, err := openMacromoleculeRepo(cmd, cfg, logger)
	if err != nil {
		return nil, nil, err
	}
	return preparation.NewPipeline(cfg.Toolchain, runner, repo, timeouts, logger), pool.Close, nil
}
