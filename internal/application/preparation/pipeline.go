// Package preparation implements the receptor preparation pipeline: one
// raw structure file in, a docking-ready receptor with grid maps and a
// rewritten field descriptor out, optionally validated by a single
// redocking trial against a reference ligand.
package preparation

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/plasmodock/plasmodock/internal/domain/docking"
	"github.com/plasmodock/plasmodock/internal/domain/macromolecule"
	"github.com/plasmodock/plasmodock/internal/domain/structure"
	"github.com/plasmodock/plasmodock/internal/infrastructure/monitoring/logging"
	"github.com/plasmodock/plasmodock/internal/infrastructure/toolexec"
	"github.com/plasmodock/plasmodock/internal/toolchain"
	"github.com/plasmodock/plasmodock/pkg/errors"
)

// Job describes one receptor preparation.  All filenames are relative to
// Workdir; the upload collaborator has already written the files there.
type Job struct {
	Workdir          string
	ReceptorFilename string

	// GridSize and GridCenter are textual triplets; GridCenter may be
	// empty when the reference ligand supplies the center.
	GridSize   string
	GridCenter string

	// LigandFilename is the optional reference ligand for a redocking
	// trial.
	LigandFilename string

	// MacromoleculeID links the catalog record the results are written
	// back to; uuid.Nil skips the write-back.
	MacromoleculeID uuid.UUID
}

// Result reports what one preparation produced.
type Result struct {
	ReceptorPDBQT string
	FieldFile     string
	GPFCount      int

	// Grid is the resolved search box, after any ligand-centroid
	// fallback for the center.
	Grid structure.Grid

	// LigandPDBQT is empty when no ligand was supplied or its
	// conversion failed; LigandError carries the failure in the latter
	// case without failing the receptor.
	LigandPDBQT string
	LigandError string

	Docking       docking.Outcome
	RecordUpdated bool
}

// Timeouts bound the pipeline's external invocations.
type Timeouts struct {
	Prepare time.Duration
	Docking time.Duration
}

// Pipeline wires the preparation steps together.  One Pipeline is shared
// across jobs; per-job state lives in locals only.
type Pipeline struct {
	tools    toolchain.Config
	runner   toolexec.Runner
	repo     macromolecule.Repository
	timeouts Timeouts
	logger   logging.Logger
}

// NewPipeline constructs a Pipeline.  repo may be nil when no write-back
// target exists (CLI foreground runs).
func NewPipeline(tools toolchain.Config, runner toolexec.Runner, repo macromolecule.Repository, timeouts Timeouts, logger logging.Logger) *Pipeline {
	return &Pipeline{
		tools:    tools,
		runner:   runner,
		repo:     repo,
		timeouts: timeouts,
		logger:   logger.Named("preparation"),
	}
}

// Prepare runs the full pipeline for one job.  Steps are strictly
// sequential; each depends on its predecessor having succeeded.
// Intermediate artifacts are named deterministically from the receptor
// name, so a retried job overwrites its own leftovers.
func (p *Pipeline) Prepare(ctx context.Context, job Job) (Result, error) {
	var res Result

	if err := p.tools.Validate(); err != nil {
		return res, err
	}

	receptorPDB := filepath.Join(job.Workdir, job.ReceptorFilename)
	if _, err := os.Stat(receptorPDB); err != nil {
		return res, errors.Newf(errors.ErrCodeInputNotFound,
			"receptor file %s not found", receptorPDB)
	}
	receptorName := stem(job.ReceptorFilename)

	log := p.logger.With(
		logging.String("receptor", receptorName),
		logging.String("workdir", job.Workdir),
	)
	log.Info("starting receptor preparation")

	pdbqt, err := p.convertReceptor(ctx, job, receptorName)
	if err != nil {
		return res, err
	}
	res.ReceptorPDBQT = pdbqt

	ligandPath := ""
	if job.LigandFilename != "" {
		ligandPath = filepath.Join(job.Workdir, job.LigandFilename)
	}
	grid, err := structure.ResolveGrid(job.GridSize, job.GridCenter, ligandPath)
	if err != nil {
		return res, err
	}
	res.Grid = grid
	log.Info("search box resolved",
		logging.String("size", grid.SizeSpec()),
		logging.String("center", grid.CenterSpec()),
	)

	count, err := p.generateGPFs(ctx, job.Workdir, pdbqt, grid)
	if err != nil {
		return res, err
	}
	res.GPFCount = count

	if err := p.runAutogrid(ctx, job.Workdir, count); err != nil {
		return res, err
	}

	fld, err := structure.LocateFieldFile(job.Workdir)
	if err != nil {
		return res, err
	}
	if err := RewriteFieldFile(fld, receptorName, p.tools.FLDCutoffLine); err != nil {
		return res, err
	}
	res.FieldFile = fld
	log.Info("field descriptor ready", logging.String("fld", filepath.Base(fld)))

	if job.LigandFilename != "" {
		res.LigandPDBQT, res.LigandError = p.convertLigand(ctx, job, log)
	}

	if res.LigandPDBQT != "" {
		res.Docking = p.dockingTrial(ctx, job.Workdir, fld, res.LigandPDBQT, log)
	}

	res.RecordUpdated = p.writeBack(ctx, job, res, log)

	log.Info("receptor preparation completed",
		logging.Bool("docking_ran", res.Docking.Ran),
		logging.Bool("record_updated", res.RecordUpdated),
	)
	return res, nil
}

// convertReceptor produces <receptor>.pdbqt from the raw PDB.
func (p *Pipeline) convertReceptor(ctx context.Context, job Job, receptorName string) (string, error) {
	outName := receptorName + ".pdbqt"
	_, err := p.runner.Run(ctx, toolexec.Command{
		Path:    p.tools.PythonSH,
		Args:    []string{p.tools.PrepareReceptor, "-r", job.ReceptorFilename, "-o", outName},
		Dir:     job.Workdir,
		Timeout: p.timeouts.Prepare,
		Tag:     "prepare_receptor_" + receptorName,
	})
	if err != nil {
		return "", errors.Wrap(err, errors.ErrCodeReceptorPrepFailed,
			"converting receptor "+job.ReceptorFilename)
	}
	outPath := filepath.Join(job.Workdir, outName)
	if _, err := os.Stat(outPath); err != nil {
		return "", errors.Newf(errors.ErrCodeToolOutputMissing,
			"prepare_receptor produced no %s", outName)
	}
	return outPath, nil
}

// generateGPFs writes one grid parameter file per element partition and
// prepends the shared force-field parameter reference to each.
func (p *Pipeline) generateGPFs(ctx context.Context, workdir, receptorPDBQT string, grid structure.Grid) (int, error) {
	centerParam := fmt.Sprintf("gridcenter=%s,%s,%s",
		trimFloat(grid.Center.X), trimFloat(grid.Center.Y), trimFloat(grid.Center.Z))
	sizeParam := fmt.Sprintf("npts=%d,%d,%d", grid.Size[0], grid.Size[1], grid.Size[2])

	for i, group := range ligandGroups {
		idx := i + 1
		gpfName := fmt.Sprintf("grid_%d.gpf", idx)
		_, err := p.runner.Run(ctx, toolexec.Command{
			Path: p.tools.PythonSH,
			Args: []string{
				p.tools.PrepareGPF,
				"-r", filepath.Base(receptorPDBQT),
				"-o", gpfName,
				"-p", centerParam,
				"-p", sizeParam,
				"-p", "ligand_types=" + group,
			},
			Dir:     workdir,
			Timeout: p.timeouts.Prepare,
			Tag:     fmt.Sprintf("prepare_gpf_%d", idx),
		})
		if err != nil {
			return 0, err
		}
		gpfPath := filepath.Join(workdir, gpfName)
		if err := prependParameterFile(gpfPath, p.tools.AD4Parameters); err != nil {
			return 0, err
		}
	}
	return len(ligandGroups), nil
}

func prependParameterFile(gpfPath, parametersPath string) error {
	content, err := os.ReadFile(gpfPath)
	if err != nil {
		return errors.Newf(errors.ErrCodeToolOutputMissing,
			"prepare_gpf produced no %s", filepath.Base(gpfPath))
	}
	out := "parameter_file " + parametersPath + "\n" + string(content)
	if err := os.WriteFile(gpfPath, []byte(out), 0o644); err != nil {
		return errors.Wrap(err, errors.ErrCodeInternal, "rewriting "+gpfPath)
	}
	return nil
}

// runAutogrid computes the grid maps, one invocation per partition in
// partition order.  Any failure aborts: partial map sets are unusable.
func (p *Pipeline) runAutogrid(ctx context.Context, workdir string, count int) error {
	for i := 1; i <= count; i++ {
		_, err := p.runner.Run(ctx, toolexec.Command{
			Path:    p.tools.AutoGrid,
			Args:    []string{"-p", fmt.Sprintf("grid_%d.gpf", i), "-l", fmt.Sprintf("grid_%d.glg", i)},
			Dir:     workdir,
			Timeout: p.timeouts.Prepare,
			Tag:     fmt.Sprintf("autogrid_%d", i),
		})
		if err != nil {
			return err
		}
	}
	return nil
}

// convertLigand produces the reference ligand's PDBQT.  An absent
// conversion tool or a failed conversion never fails the receptor; the
// error is reported on the result instead.
func (p *Pipeline) convertLigand(ctx context.Context, job Job, log logging.Logger) (pdbqt, ligErr string) {
	ligandPDB := filepath.Join(job.Workdir, job.LigandFilename)
	if _, err := os.Stat(ligandPDB); err != nil {
		return "", "ligand file " + job.LigandFilename + " not found"
	}
	if _, err := os.Stat(p.tools.PrepareLigand); err != nil {
		log.Warn("prepare_ligand tool absent, skipping ligand stage")
		return "", ""
	}

	ligandName := stem(job.LigandFilename)
	outName := ligandName + ".pdbqt"
	_, err := p.runner.Run(ctx, toolexec.Command{
		Path:    p.tools.PythonSH,
		Args:    []string{p.tools.PrepareLigand, "-l", job.LigandFilename, "-o", outName},
		Dir:     job.Workdir,
		Timeout: p.timeouts.Prepare,
		Tag:     "prepare_ligand_" + ligandName,
	})
	if err != nil {
		log.Warn("ligand conversion failed", logging.Err(err))
		return "", err.Error()
	}
	outPath := filepath.Join(job.Workdir, outName)
	if _, err := os.Stat(outPath); err != nil {
		return "", "prepare_ligand produced no " + outName
	}
	return outPath, ""
}

// dockingTrial runs the engine once against the fresh maps and parses
// the best pose.  Failures and missing reports degrade to "no result".
func (p *Pipeline) dockingTrial(ctx context.Context, workdir, fldPath, ligandPDBQT string, log logging.Logger) docking.Outcome {
	out, err := p.runner.Run(ctx, toolexec.Command{
		Path:    p.tools.AutoDockGPU,
		Args:    []string{"--ffile", filepath.Base(fldPath), "--lfile", filepath.Base(ligandPDBQT)},
		Dir:     workdir,
		Timeout: p.timeouts.Docking,
		Tag:     "autodock_gpu_" + stem(ligandPDBQT),
	})
	if err != nil {
		log.Warn("docking trial failed", logging.Err(err))
		return docking.Outcome{}
	}

	outcome := docking.Outcome{Ran: true}
	doc, ok := docking.ExtractReportXML(out.Stdout)
	if ok {
		// Kept beside the maps so the trial can be re-examined later.
		xmlPath := filepath.Join(workdir, "docking_result.xml")
		if err := os.WriteFile(xmlPath, []byte(doc), 0o644); err != nil {
			log.Warn("could not persist docking report", logging.Err(err))
		}
	} else {
		// Some engine builds write the report to a file instead of
		// stdout; the newest XML in the workdir is this run's.
		doc, ok = newestReportXML(workdir)
	}
	if !ok {
		// Either no poses or a tool that crashed with exit 0; the two
		// are indistinguishable from here.
		log.Warn("docking trial produced no parsable report")
		return outcome
	}
	best, ok := docking.BestPose(docking.ParseReport(strings.NewReader(doc)))
	if !ok {
		log.Warn("docking trial report holds no parsable run")
		return outcome
	}
	outcome.HasPose = true
	outcome.Best = best
	log.Info("docking trial result",
		logging.Float64("reference_rmsd", best.ReferenceRMSD),
		logging.Float64("binding_energy", best.BindingEnergy),
		logging.Int("run", best.Run),
	)
	return outcome
}

// writeBack persists the preparation output on the linked catalog
// record.  A persistence failure is logged and never invalidates the
// pipeline result.
func (p *Pipeline) writeBack(ctx context.Context, job Job, res Result, log logging.Logger) bool {
	if job.MacromoleculeID == uuid.Nil || p.repo == nil || !res.Docking.Ran {
		return false
	}
	upd := macromolecule.PreparationResult{FieldFilePath: res.FieldFile}
	if res.Docking.HasPose {
		rmsd := res.Docking.Best.ReferenceRMSD
		energy := res.Docking.Best.BindingEnergy
		upd.RedockingRMSD = &rmsd
		upd.OriginalEnergy = &energy
	}
	if err := p.repo.UpdatePreparationResult(ctx, job.MacromoleculeID, upd); err != nil {
		log.Error("macromolecule write-back failed",
			logging.String("macromolecule_id", job.MacromoleculeID.String()),
			logging.Err(err),
		)
		return false
	}
	return true
}

// newestReportXML returns the content of the most recently modified XML
// file in the workdir.  ok is false when no readable XML file exists.
func newestReportXML(workdir string) (string, bool) {
	matches, err := filepath.Glob(filepath.Join(workdir, "*.xml"))
	if err != nil {
		return "", false
	}
	var (
		newest    string
		newestMod time.Time
	)
	for _, m := range matches {
		info, err := os.Stat(m)
		if err != nil {
			continue
		}
		if newest == "" || info.ModTime().After(newestMod) {
			newest, newestMod = m, info.ModTime()
		}
	}
	if newest == "" {
		return "", false
	}
	data, err := os.ReadFile(newest)
	if err != nil {
		return "", false
	}
	return string(data), true
}

func stem(name string) string {
	base := filepath.Base(name)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

func trimFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
