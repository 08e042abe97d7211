package artifacts

import (
	"archive/zip"
	"io"
	"os"
	"path/filepath"

	"github.com/plasmodock/plasmodock/pkg/errors"
)

// Archive bundles the whole run directory into a zip at ArchivePath and
// returns that path.  Entry names are relative to the run directory.
// The archive itself is excluded, as is any stale archive from an
// earlier delivery of the same job.
func (l Layout) Archive() (string, error) {
	path := l.ArchivePath()
	f, err := os.Create(path)
	if err != nil {
		return "", errors.Wrap(err, errors.ErrCodeInternal, "creating "+path)
	}
	defer f.Close()

	zw := zip.NewWriter(f)
	walkErr := filepath.Walk(l.Workdir, func(p string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() || p == path {
			return nil
		}
		if filepath.Ext(p) == ".zip" {
			return nil
		}
		rel, err := filepath.Rel(l.Workdir, p)
		if err != nil {
			return err
		}
		w, err := zw.Create(filepath.ToSlash(rel))
		if err != nil {
			return err
		}
		src, err := os.Open(p)
		if err != nil {
			return err
		}
		defer src.Close()
		_, err = io.Copy(w, src)
		return err
	})
	if walkErr != nil {
		zw.Close()
		return "", errors.Wrap(walkErr, errors.ErrCodeInternal, "bundling run directory")
	}
	if err := zw.Close(); err != nil {
		return "", errors.Wrap(err, errors.ErrCodeInternal, "finalizing archive")
	}
	return path, nil
}
