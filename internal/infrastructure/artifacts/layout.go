// Package artifacts manages the on-disk shape of a docking run: the
// working-directory layout plus the result files (JSON ledger, CSV
// ledger, zip bundle) a finished run leaves behind.
package artifacts

import (
	"os"
	"path/filepath"

	"github.com/plasmodock/plasmodock/pkg/errors"
)

// Subdirectory and artifact names inside a run's working directory.
// Downstream tooling depends on these names, so they are fixed.
const (
	LigandsDirName  = "ligantes_pdbqt"
	DLGDirName      = "arquivos_dlgs"
	BestPoseDirName = "gbest_pdb"
	LogsDirName     = "logs"

	ResultJSONName = "resultado.json"
	ResultCSVName  = "resultado.csv"
)

// Layout resolves paths inside one run's working directory.
type Layout struct {
	Workdir string
}

// NewLayout creates the run subdirectories under workdir and returns the
// resolver.  Existing directories are left alone, so resuming a
// redelivered job is safe.
func NewLayout(workdir string) (Layout, error) {
	l := Layout{Workdir: workdir}
	for _, dir := range []string{l.LigandsDir(), l.DLGDir(), l.BestPoseDir(), l.LogsDir()} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return Layout{}, errors.Wrap(err, errors.ErrCodeInternal,
				"creating run directory "+dir)
		}
	}
	return l, nil
}

// LigandsDir holds the split single-molecule PDBQT ligands.
func (l Layout) LigandsDir() string { return filepath.Join(l.Workdir, LigandsDirName) }

// DLGDir holds per-pair docking logs.
func (l Layout) DLGDir() string { return filepath.Join(l.Workdir, DLGDirName) }

// BestPoseDir holds the best-pose structures docking writes out.
func (l Layout) BestPoseDir() string { return filepath.Join(l.Workdir, BestPoseDirName) }

// LogsDir holds tool output captured during the run.
func (l Layout) LogsDir() string { return filepath.Join(l.Workdir, LogsDirName) }

// ResultJSONPath is the JSON ledger location.
func (l Layout) ResultJSONPath() string { return filepath.Join(l.Workdir, ResultJSONName) }

// ResultCSVPath is the CSV ledger location.
func (l Layout) ResultCSVPath() string { return filepath.Join(l.Workdir, ResultCSVName) }

// ArchivePath is where the zip bundle of the whole run directory goes;
// it carries the run directory's own base name.
func (l Layout) ArchivePath() string {
	return filepath.Join(l.Workdir, filepath.Base(l.Workdir)+".zip")
}
