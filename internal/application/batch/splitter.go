// Package batch runs one docking process end to end: split the ligand
// library, dock every receptor/ligand pair of the process's structure
// type, and persist the aggregate result with partial-failure tolerance.
package batch

import (
	"context"
	"path/filepath"
	"sort"
	"time"

	"github.com/plasmodock/plasmodock/internal/infrastructure/monitoring/logging"
	"github.com/plasmodock/plasmodock/internal/infrastructure/toolexec"
	"github.com/plasmodock/plasmodock/pkg/errors"
)

// Splitter explodes a multi-molecule SDF into single-ligand PDBQT files
// via OpenBabel.
type Splitter struct {
	obabel  string
	runner  toolexec.Runner
	timeout time.Duration
	logger  logging.Logger
}

// NewSplitter constructs a Splitter.
func NewSplitter(obabelPath string, runner toolexec.Runner, timeout time.Duration, logger logging.Logger) *Splitter {
	return &Splitter{
		obabel:  obabelPath,
		runner:  runner,
		timeout: timeout,
		logger:  logger.Named("splitter"),
	}
}

// Split converts sdfPath into per-molecule PDBQT files inside outDir and
// returns their paths sorted by name, fixing the ligand order for the
// whole batch.  An empty result is not an error here; the orchestrator
// decides what zero ligands means.
func (s *Splitter) Split(ctx context.Context, sdfPath, outDir string) ([]string, error) {
	_, err := s.runner.Run(ctx, toolexec.Command{
		Path:    s.obabel,
		Args:    []string{"-isdf", sdfPath, "-opdbqt", "--split"},
		Dir:     outDir,
		Timeout: s.timeout,
		Tag:     "obabel_split",
	})
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeProcessSplitFailed,
			"splitting "+filepath.Base(sdfPath))
	}

	files, err := filepath.Glob(filepath.Join(outDir, "*.pdbqt"))
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternal, "listing split ligands")
	}
	sort.Strings(files)
	s.logger.Info("ligand library split",
		logging.String("sdf", filepath.Base(sdfPath)),
		logging.Int("ligands", len(files)),
	)
	return files, nil
}
