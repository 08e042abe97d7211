package batch

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/plasmodock/plasmodock/internal/domain/docking"
	"github.com/plasmodock/plasmodock/internal/domain/macromolecule"
	"github.com/plasmodock/plasmodock/internal/domain/process"
	"github.com/plasmodock/plasmodock/internal/domain/structure"
	"github.com/plasmodock/plasmodock/internal/infrastructure/artifacts"
	"github.com/plasmodock/plasmodock/internal/infrastructure/monitoring/logging"
	"github.com/plasmodock/plasmodock/internal/infrastructure/monitoring/metrics"
	"github.com/plasmodock/plasmodock/internal/infrastructure/toolexec"
	"github.com/plasmodock/plasmodock/internal/toolchain"
	"github.com/plasmodock/plasmodock/pkg/errors"
)

// ArtifactStore uploads finished run artifacts to object storage.  The
// orchestrator treats every upload as best effort.
type ArtifactStore interface {
	UploadFile(ctx context.Context, processID uuid.UUID, localPath string) (string, error)
}

// Orchestrator drives one batch docking process.
type Orchestrator struct {
	tools          toolchain.Config
	runner         toolexec.Runner
	splitter       *Splitter
	processes      process.Repository
	receptors      macromolecule.Repository
	store          ArtifactStore // optional
	collector      *metrics.Collector
	dockingTimeout time.Duration
	logger         logging.Logger
}

// NewOrchestrator wires the batch dependencies.  store may be nil when
// no object storage is configured; collector may be nil in CLI runs.
func NewOrchestrator(
	tools toolchain.Config,
	runner toolexec.Runner,
	splitter *Splitter,
	processes process.Repository,
	receptors macromolecule.Repository,
	store ArtifactStore,
	collector *metrics.Collector,
	dockingTimeout time.Duration,
	logger logging.Logger,
) *Orchestrator {
	return &Orchestrator{
		tools:          tools,
		runner:         runner,
		splitter:       splitter,
		processes:      processes,
		receptors:      receptors,
		store:          store,
		collector:      collector,
		dockingTimeout: dockingTimeout,
		logger:         logger.Named("batch"),
	}
}

// Run executes the batch process.  Per-receptor and per-pair failures
// are captured into the ledger and never abort the run; only global
// preconditions fail the whole process.  The returned error is non-nil
// when the process could not run at all or its final write-back failed.
func (o *Orchestrator) Run(ctx context.Context, processID uuid.UUID) (process.Result, error) {
	start := time.Now()

	proc, err := o.processes.GetByID(ctx, processID)
	if err != nil {
		return process.Result{}, err
	}
	log := o.logger.With(logging.String("process_id", proc.ID.String()), logging.String("type", proc.Type))
	log.Info("starting batch process")

	if err := o.processes.UpdateStatus(ctx, proc.ID, process.StatusRunning, ""); err != nil {
		return process.Result{}, err
	}

	// Global preconditions; any of these fails the whole process.
	if _, err := os.Stat(o.tools.AutoDockGPU); err != nil {
		return o.fail(ctx, proc, errors.New(errors.ErrCodeToolchainMissing,
			"autodock_gpu not found at "+o.tools.AutoDockGPU))
	}
	if _, err := os.Stat(o.tools.OpenBabel); err != nil {
		return o.fail(ctx, proc, errors.New(errors.ErrCodeToolchainMissing,
			"obabel not found at "+o.tools.OpenBabel))
	}

	sdfPath := proc.LigandFile
	if !filepath.IsAbs(sdfPath) {
		sdfPath = filepath.Join(proc.Workdir, proc.LigandFile)
	}
	if _, err := os.Stat(sdfPath); err != nil {
		return o.fail(ctx, proc, errors.Newf(errors.ErrCodeInputNotFound,
			"ligand library %s not found", sdfPath))
	}

	layout, err := artifacts.NewLayout(proc.Workdir)
	if err != nil {
		return o.fail(ctx, proc, err)
	}

	ligands, err := o.splitter.Split(ctx, sdfPath, layout.LigandsDir())
	if err != nil {
		return o.fail(ctx, proc, err)
	}
	if len(ligands) == 0 {
		return o.fail(ctx, proc, errors.New(errors.ErrCodeProcessNoLigands,
			"ligand library split produced no ligands"))
	}

	macs, err := o.receptors.ListByType(ctx, proc.Type)
	if err != nil {
		// Transient storage trouble; leave the process RUNNING for the
		// redelivered attempt instead of burying it as FAILED.
		return process.Result{}, err
	}
	if len(macs) == 0 {
		return o.fail(ctx, proc, errors.Newf(errors.ErrCodeProcessNoReceptors,
			"no receptors registered for type %s", proc.Type))
	}
	log.Info("batch inputs resolved",
		logging.Int("receptors", len(macs)),
		logging.Int("ligands", len(ligands)),
	)

	var res process.Result
	for _, m := range macs {
		res.Receptors = append(res.Receptors, o.runReceptor(ctx, proc, m, ligands, layout, &res))
	}

	res.Statistics = process.Tally(res.Outcomes)
	res.Statistics.Receptors = len(macs)
	res.Statistics.Ligands = len(ligands)
	for _, r := range res.Receptors {
		if r.Status == process.ReceptorStatusError {
			res.Statistics.SkippedReceptors++
		}
	}
	res.StatusMessage = res.Statistics.StatusMessage()
	res.Elapsed = time.Since(start)

	payload, err := artifacts.ResultPayload(proc, res)
	if err != nil {
		log.Error("rendering result payload failed", logging.Err(err))
	}
	upd := process.TerminalUpdate{
		Status:        res.FinalStatus(),
		StatusMessage: res.StatusMessage,
		ResultPayload: payload,
		Elapsed:       res.Elapsed,
	}
	upd.ResultJSONPath, upd.ResultCSVPath, upd.ArchivePath = o.persistArtifacts(ctx, proc, layout, payload, res, log)

	if err := o.processes.FinishUnderLock(ctx, proc.ID, upd); err != nil {
		return res, err
	}
	log.Info("batch process finished",
		logging.String("status", string(upd.Status)),
		logging.String("summary", res.StatusMessage),
		logging.Duration("elapsed", res.Elapsed),
	)
	return res, nil
}

// runReceptor docks every ligand against one receptor.  A receptor whose
// field descriptor cannot be resolved is skipped whole: one error ledger
// row per ligand, and the batch moves on.
func (o *Orchestrator) runReceptor(
	ctx context.Context,
	proc *process.Process,
	m *macromolecule.Macromolecule,
	ligands []string,
	layout artifacts.Layout,
	res *process.Result,
) process.ReceptorReport {
	report := process.ReceptorReport{
		MacromoleculeID: m.ID,
		Rec:             m.Rec,
		Name:            m.Name,
		GridSize:        m.GridSize,
		GridCenter:      m.GridCenter,
		FieldFile:       m.FieldFilePath,
	}
	if m.Redocking {
		report.Redocking = &process.RedockingInfo{
			OriginalLigand: m.OriginalLigand,
			RedockingRMSD:  m.RedockingRMSD,
			OriginalEnergy: m.OriginalEnergy,
		}
	}

	var (
		fld string
		err error
	)
	if !m.Prepared() {
		err = errors.Newf(errors.ErrCodeInputNotFound,
			"receptor %s has no grid maps prepared", m.Rec)
	} else {
		fld, err = structure.ResolveFieldFile(m.FieldFilePath)
	}
	if err != nil {
		o.logger.Warn("receptor skipped",
			logging.String("rec", m.Rec),
			logging.Err(err),
		)
		report.Status = process.ReceptorStatusError
		report.Error = err.Error()
		report.LigandsFailed = len(ligands)
		for _, lig := range ligands {
			o.collector.PairAttempted(false)
			res.Outcomes = append(res.Outcomes, process.Outcome{
				ProcessID:   proc.ID,
				Type:        proc.Type,
				ReceptorRec: m.Rec,
				LigandFile:  filepath.Base(lig),
				Error:       "receptor error: " + err.Error(),
			})
		}
		return report
	}
	report.FieldFile = fld

	for _, lig := range ligands {
		ligReport, outcome := o.dockPair(ctx, proc, m, fld, lig, layout)
		if outcome.Failed() {
			report.LigandsFailed++
		} else {
			report.LigandsOK++
		}
		o.collector.PairAttempted(!outcome.Failed())
		report.Ligands = append(report.Ligands, ligReport)
		res.Outcomes = append(res.Outcomes, outcome)
	}
	report.Finalize()
	return report
}

// dockPair runs the engine for one receptor/ligand pair and extracts the
// best pose from the report the engine writes next to its outputs.
func (o *Orchestrator) dockPair(
	ctx context.Context,
	proc *process.Process,
	m *macromolecule.Macromolecule,
	fldPath, ligandPath string,
	layout artifacts.Layout,
) (process.LigandReport, process.Outcome) {
	ligName := filepath.Base(ligandPath)
	outcome := process.Outcome{
		ProcessID:   proc.ID,
		Type:        proc.Type,
		ReceptorRec: m.Rec,
		LigandFile:  ligName,
	}
	ligReport := process.LigandReport{Ligand: ligName}

	outPrefix := filepath.Join(layout.DLGDir(), stem(ligandPath)+"_"+m.Rec)
	started := time.Now()
	_, err := o.runner.Run(ctx, toolexec.Command{
		Path:    o.tools.AutoDockGPU,
		Args:    []string{"--ffile", fldPath, "--lfile", ligandPath, "--gbest", "1", "--resnam", outPrefix},
		Dir:     filepath.Dir(fldPath),
		Timeout: o.dockingTimeout,
		Tag:     "autodock_gpu_" + stem(ligandPath) + "_" + m.Rec,
	})
	o.collector.ToolInvoked("autodock_gpu", time.Since(started))
	if err != nil {
		return failPair(ligReport, outcome, err.Error())
	}

	reportPath := outPrefix + ".xml"
	data, err := os.ReadFile(reportPath)
	if err != nil {
		return failPair(ligReport, outcome, "docking produced no report "+filepath.Base(reportPath))
	}
	best, ok := docking.BestPose(docking.ParseReport(bytes.NewReader(data)))
	if !ok {
		return failPair(ligReport, outcome, "docking report holds no parsable run")
	}

	outcome.BestBindingEnergy = best.BindingEnergy
	outcome.BestReferenceRMSD = best.ReferenceRMSD
	outcome.BestRun = best.Run

	ligReport.Status = process.LigandStatusSuccess
	ligReport.BestBindingEnergy = best.BindingEnergy
	ligReport.BestReferenceRMSD = best.ReferenceRMSD
	ligReport.BestRun = best.Run
	ligReport.ReportPath = reportPath

	o.collectBestPoses(outPrefix, layout)
	return ligReport, outcome
}

// collectBestPoses moves the --gbest structures emitted next to the
// docking outputs into the shared results directory.  Move failures are
// cosmetic and never fail the pair.
func (o *Orchestrator) collectBestPoses(outPrefix string, layout artifacts.Layout) {
	matches, err := filepath.Glob(outPrefix + "*.pdbqt")
	if err != nil {
		return
	}
	for _, cand := range matches {
		dest := filepath.Join(layout.BestPoseDir(), filepath.Base(cand))
		if err := os.Rename(cand, dest); err != nil {
			o.logger.Debug("best-pose move failed",
				logging.String("file", filepath.Base(cand)),
				logging.Err(err),
			)
		}
	}
}

// persistArtifacts writes the JSON/CSV/zip artifacts and uploads them
// when a store is configured.  Individual artifact failures are logged
// and leave that path empty; they never change the run's outcome.
func (o *Orchestrator) persistArtifacts(
	ctx context.Context,
	proc *process.Process,
	layout artifacts.Layout,
	payload []byte,
	res process.Result,
	log logging.Logger,
) (jsonPath, csvPath, zipPath string) {
	var err error
	if payload != nil {
		if jsonPath, err = layout.WriteResultJSON(payload); err != nil {
			log.Error("writing result JSON failed", logging.Err(err))
			jsonPath = ""
		}
	}
	if csvPath, err = layout.WriteResultCSV(res.Outcomes); err != nil {
		log.Error("writing result CSV failed", logging.Err(err))
	}
	if zipPath, err = layout.Archive(); err != nil {
		log.Error("bundling run directory failed", logging.Err(err))
		zipPath = ""
	}

	if o.store != nil {
		for _, path := range []string{jsonPath, csvPath, zipPath} {
			if path == "" {
				continue
			}
			if _, err := o.store.UploadFile(ctx, proc.ID, path); err != nil {
				log.Warn("artifact upload failed",
					logging.String("artifact", filepath.Base(path)),
					logging.Err(err),
				)
			}
		}
	}
	return jsonPath, csvPath, zipPath
}

// fail marks the process FAILED with the precondition error and returns
// that error to the caller.  The row still receives an aggregate record
// so readers see the failure reason without consulting the workdir.
func (o *Orchestrator) fail(ctx context.Context, proc *process.Process, cause error) (process.Result, error) {
	payload, perr := artifacts.ResultPayload(proc, process.Result{StatusMessage: cause.Error()})
	if perr != nil {
		o.logger.Error("rendering failure payload failed", logging.Err(perr))
	}
	upd := process.TerminalUpdate{
		Status:        process.StatusFailed,
		StatusMessage: cause.Error(),
		ResultPayload: payload,
	}
	if err := o.processes.FinishUnderLock(ctx, proc.ID, upd); err != nil {
		o.logger.Error("could not mark process failed",
			logging.String("process_id", proc.ID.String()),
			logging.Err(err),
		)
	}
	return process.Result{}, cause
}

func failPair(ligReport process.LigandReport, outcome process.Outcome, msg string) (process.LigandReport, process.Outcome) {
	ligReport.Status = process.LigandStatusError
	ligReport.Error = msg
	outcome.Error = msg
	return ligReport, outcome
}

func stem(path string) string {
	base := filepath.Base(path)
	return base[:len(base)-len(filepath.Ext(base))]
}
